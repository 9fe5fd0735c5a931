// Package model defines the capabilities a model must expose to take part in
// gossip averaging, and provides two concrete linear models and a logistic
// regression learner.
//
// A Model carries a parameter vector and an age, the accumulated amount of
// training and merging that contributed to its current values. Averaging
// between peers is weighted by age (see the weighted package), which only
// requires the Addable capability. Models that also expose their raw
// parameters, as DenseCompressible or SparseCompressible, can be compressed
// slot by slot by the codec package; other models are passed through
// uncompressed.
//
// A Holder is the fixed-length sequence of models a node maintains, one per
// configured learner.
package model
