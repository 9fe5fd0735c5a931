package codec

import (
	"github.com/mosaicnetworks/gossiplearn/src/model"
)

// CompressedKind is the kind reported by CompressedModel.
const CompressedKind = "compressed"

// CompressedModel is the encoded form of a compressible model. It keeps a
// reference to the model it was encoded from, which is not transmitted.
type CompressedModel struct {
	Source   string  `codec:"k"`
	ModelAge float64 `codec:"age"`
	Sparse   bool    `codec:"s"`
	Size     int     `codec:"n"`
	Indices  []int   `codec:"i"`
	Tokens   []Token `codec:"t"`

	original model.Model
}

// Original returns the model this was encoded from, or nil when the
// compressed model was received over the wire.
func (c *CompressedModel) Original() model.Model {
	return c.original
}

// Kind implements the model.Model interface.
func (c *CompressedModel) Kind() string { return CompressedKind }

// Clone implements the model.Model interface. The original reference is
// shared.
func (c *CompressedModel) Clone() model.Model {
	res := *c
	if c.Indices != nil {
		res.Indices = append([]int(nil), c.Indices...)
	}
	if c.Tokens != nil {
		res.Tokens = append([]Token(nil), c.Tokens...)
	}
	return &res
}

// Clear implements the model.Model interface.
func (c *CompressedModel) Clear() {
	c.Indices = nil
	c.Tokens = nil
	c.Size = 0
	c.ModelAge = 0
}

// Age implements the model.Model interface.
func (c *CompressedModel) Age() float64 { return c.ModelAge }

// SetAge implements the model.Model interface.
func (c *CompressedModel) SetAge(age float64) { c.ModelAge = age }

// template returns an empty model to decode into.
func (c *CompressedModel) template() (model.Model, error) {
	if c.original != nil {
		return c.original.Clone(), nil
	}
	return model.New(c.Source)
}
