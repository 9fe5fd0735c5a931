package model

import (
	"github.com/mosaicnetworks/gossiplearn/src/common"
)

var constructors = map[string]func() Model{
	LinearKind: func() Model { return &Linear{} },
	SparseKind: func() Model { return NewSparse() },
}

// New returns an empty model of the given kind.
func New(kind string) (Model, error) {
	ctor, ok := constructors[kind]
	if !ok {
		return nil, common.NewProtocolErr("Model", common.UnknownKind, kind)
	}
	return ctor(), nil
}

// NewHolder returns a holder of n fresh models of the given kind. Dense
// models are created over dim features.
func NewHolder(kind string, n int, dim int) (Holder, error) {
	h := make(Holder, n)
	for i := range h {
		switch kind {
		case LinearKind:
			h[i] = NewLinear(dim)
		default:
			m, err := New(kind)
			if err != nil {
				return nil, err
			}
			h[i] = m
		}
	}
	return h, nil
}
