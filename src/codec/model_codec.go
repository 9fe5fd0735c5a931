package codec

import (
	"fmt"
	"sort"

	"github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/mosaicnetworks/gossiplearn/src/model"
)

// ModelCodec compresses whole models with one Codec per scalar parameter.
type ModelCodec interface {
	// Encode compresses m without mutating any codec state.
	Encode(m model.Model) (*CompressedModel, error)
	// Decode reconstructs a model from c and advances the codec state.
	Decode(c *CompressedModel) (model.Model, error)
	// Clone returns a deep copy of the codec bank.
	Clone() ModelCodec
}

// NewModelCodec returns the ModelCodec matching m's capabilities, or nil if
// m is not compressible.
func NewModelCodec(prototype Codec, m model.Model) ModelCodec {
	switch m.(type) {
	case model.DenseCompressible:
		return NewDenseModelCodec(prototype)
	case model.SparseCompressible:
		return NewSparseModelCodec(prototype)
	default:
		return nil
	}
}

//+++++++++++++++++++++++++++++++++++++++
//DENSE

// DenseModelCodec is a fixed-size slice of Codecs. The slice is sized by the
// first model decoded and each slot is instantiated from the prototype on
// first use.
type DenseModelCodec struct {
	prototype Codec
	codecs    []Codec
}

// NewDenseModelCodec ...
func NewDenseModelCodec(prototype Codec) *DenseModelCodec {
	return &DenseModelCodec{prototype: prototype}
}

// Encode implements the ModelCodec interface.
func (d *DenseModelCodec) Encode(m model.Model) (*CompressedModel, error) {
	dm, ok := m.(model.DenseCompressible)
	if !ok {
		return nil, fmt.Errorf("dense codec cannot encode %s models", m.Kind())
	}
	params := dm.Params()
	if d.codecs != nil && len(params) != len(d.codecs) {
		return nil, shapeErr(len(d.codecs), len(params))
	}

	tokens := make([]Token, len(params))
	for i, v := range params {
		tokens[i] = d.peek(i).Encode(v)
	}

	return &CompressedModel{
		Source:   m.Kind(),
		ModelAge: m.Age(),
		Size:     len(params),
		Tokens:   tokens,
		original: m,
	}, nil
}

// Decode implements the ModelCodec interface.
func (d *DenseModelCodec) Decode(c *CompressedModel) (model.Model, error) {
	if c.Sparse || len(c.Tokens) != c.Size {
		return nil, shapeErr(c.Size, len(c.Tokens))
	}
	if d.codecs == nil {
		d.codecs = make([]Codec, c.Size)
	}
	if len(d.codecs) != c.Size {
		return nil, shapeErr(len(d.codecs), c.Size)
	}

	params := make([]float64, c.Size)
	for i, t := range c.Tokens {
		params[i] = d.slot(i).Decode(t)
	}

	m, err := c.template()
	if err != nil {
		return nil, err
	}
	dm, ok := m.(model.DenseCompressible)
	if !ok {
		return nil, fmt.Errorf("cannot decode dense parameters into %s models", m.Kind())
	}
	dm.SetParams(params)
	dm.SetAge(c.ModelAge)
	return dm, nil
}

// Clone implements the ModelCodec interface.
func (d *DenseModelCodec) Clone() ModelCodec {
	res := &DenseModelCodec{prototype: d.prototype}
	if d.codecs != nil {
		res.codecs = make([]Codec, len(d.codecs))
		for i, c := range d.codecs {
			if c != nil {
				res.codecs[i] = c.Clone()
			}
		}
	}
	return res
}

// peek returns a throw-away copy of slot i.
func (d *DenseModelCodec) peek(i int) Codec {
	if i < len(d.codecs) && d.codecs[i] != nil {
		return d.codecs[i].Clone()
	}
	return d.prototype.Clone()
}

func (d *DenseModelCodec) slot(i int) Codec {
	if d.codecs[i] == nil {
		d.codecs[i] = d.prototype.Clone()
	}
	return d.codecs[i]
}

//+++++++++++++++++++++++++++++++++++++++
//SPARSE

// SparseModelCodec maps parameter indexes to Codecs, instantiated from the
// prototype the first time an index is decoded.
type SparseModelCodec struct {
	prototype Codec
	codecs    map[int]Codec
}

// NewSparseModelCodec ...
func NewSparseModelCodec(prototype Codec) *SparseModelCodec {
	return &SparseModelCodec{
		prototype: prototype,
		codecs:    make(map[int]Codec),
	}
}

// Encode implements the ModelCodec interface. Indexes are sorted.
func (s *SparseModelCodec) Encode(m model.Model) (*CompressedModel, error) {
	sm, ok := m.(model.SparseCompressible)
	if !ok {
		return nil, fmt.Errorf("sparse codec cannot encode %s models", m.Kind())
	}
	entries := sm.Entries()

	indices := make([]int, 0, len(entries))
	for k := range entries {
		indices = append(indices, k)
	}
	sort.Ints(indices)

	tokens := make([]Token, len(indices))
	for i, k := range indices {
		tokens[i] = s.peek(k).Encode(entries[k])
	}

	return &CompressedModel{
		Source:   m.Kind(),
		ModelAge: m.Age(),
		Sparse:   true,
		Size:     len(indices),
		Indices:  indices,
		Tokens:   tokens,
		original: m,
	}, nil
}

// Decode implements the ModelCodec interface.
//
// Every existing slot whose index is absent from c is advanced with an
// implicit zero and the result discarded. The peer that produced c runs the
// same Decode on its own copy, so both banks keep the same per-slot state;
// skipping the implicit zero makes them diverge.
func (s *SparseModelCodec) Decode(c *CompressedModel) (model.Model, error) {
	if !c.Sparse || len(c.Indices) != len(c.Tokens) {
		return nil, shapeErr(len(c.Indices), len(c.Tokens))
	}

	entries := make(map[int]float64, len(c.Indices))
	for i, k := range c.Indices {
		entries[k] = s.slot(k).Decode(c.Tokens[i])
	}
	for k, codec := range s.codecs {
		if _, ok := entries[k]; !ok {
			codec.Encode(0)
		}
	}

	m, err := c.template()
	if err != nil {
		return nil, err
	}
	sm, ok := m.(model.SparseCompressible)
	if !ok {
		return nil, fmt.Errorf("cannot decode sparse parameters into %s models", m.Kind())
	}
	sm.SetEntries(entries)
	sm.SetAge(c.ModelAge)
	return sm, nil
}

// Clone implements the ModelCodec interface.
func (s *SparseModelCodec) Clone() ModelCodec {
	res := NewSparseModelCodec(s.prototype)
	for k, c := range s.codecs {
		res.codecs[k] = c.Clone()
	}
	return res
}

// Len returns the number of instantiated slots.
func (s *SparseModelCodec) Len() int {
	return len(s.codecs)
}

func (s *SparseModelCodec) peek(k int) Codec {
	if c, ok := s.codecs[k]; ok {
		return c.Clone()
	}
	return s.prototype.Clone()
}

func (s *SparseModelCodec) slot(k int) Codec {
	c, ok := s.codecs[k]
	if !ok {
		c = s.prototype.Clone()
		s.codecs[k] = c
	}
	return c
}

func shapeErr(want, got int) error {
	return common.NewProtocolErr("ModelCodec", common.ShapeMismatch,
		fmt.Sprintf("expected %d slots, got %d", want, got))
}
