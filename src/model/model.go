package model

import (
	"fmt"

	"github.com/mosaicnetworks/gossiplearn/src/common"
)

// Model is the capability set every gossiped model implements.
type Model interface {
	// Kind identifies the concrete model type in the registry and on the
	// wire.
	Kind() string
	// Clone returns a deep copy.
	Clone() Model
	// Clear zeroes the parameters and the age, keeping the shape.
	Clear()
	// Age returns the accumulated training and merge weight.
	Age() float64
	// SetAge overwrites the age.
	SetAge(age float64)
}

// Addable models support in-place weighted accumulation:
// params += factor*other.params and age += factor*other.age.
type Addable interface {
	Model
	Add(other Model, factor float64) error
}

// DenseCompressible models expose a fixed-size parameter vector.
type DenseCompressible interface {
	Model
	// Params returns the parameter vector. Callers must not modify it.
	Params() []float64
	// SetParams copies params into the model.
	SetParams(params []float64)
}

// SparseCompressible models expose their parameters as an index map.
type SparseCompressible interface {
	Model
	// Entries returns the non-implicit parameters. Callers must not modify
	// it.
	Entries() map[int]float64
	// SetEntries replaces the parameters with a copy of entries.
	SetEntries(entries map[int]float64)
}

// Holder is the fixed-length, ordered sequence of models of a node.
type Holder []Model

// Clone returns a deep copy of the holder. Nil slots stay nil.
func (h Holder) Clone() Holder {
	res := make(Holder, len(h))
	for i, m := range h {
		if m != nil {
			res[i] = m.Clone()
		}
	}
	return res
}

// Ages returns the age of every model in the holder.
func (h Holder) Ages() []float64 {
	res := make([]float64, len(h))
	for i, m := range h {
		res[i] = m.Age()
	}
	return res
}

func errNotAddable(self, other Model) error {
	return common.NewProtocolErr("Model", common.NotAddable,
		fmt.Sprintf("cannot add %T to %s", other, self.Kind()))
}

func errShape(kind string, want, got int) error {
	return common.NewProtocolErr("Model", common.ShapeMismatch,
		fmt.Sprintf("%s: %d parameters, got %d", kind, want, got))
}
