// Package codec implements the adaptive lossy compression of model
// parameters exchanged by gossiping peers.
//
// A Codec compresses a stream of scalars, one value at a time, and adapts its
// internal state to the values it has seen. Two codecs fed the same token
// stream stay in the same state, which is what lets a sender reproduce
// exactly what its peer reconstructed. Encoding a token advances the state
// the same way decoding it does.
//
// A ModelCodec is a bank of codecs, one per scalar parameter of a model, in a
// dense (slice) or sparse (map) layout. ModelCodec.Encode never mutates codec
// state: the same model can be encoded again without corrupting the adaptive
// state. Only Decode advances it, and both peers decode every transmitted
// payload, so their banks evolve in lock-step.
//
// A HolderCodec is a slice of ModelCodecs aligned with the positions of a
// model.Holder. Models that cannot be compressed pass through untouched.
package codec
