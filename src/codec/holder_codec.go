package codec

import (
	"fmt"

	"github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/mosaicnetworks/gossiplearn/src/model"
)

// HolderCodec aligns one ModelCodec with every position of a model.Holder.
// The ModelCodec of a position is created from the first compressible model
// seen there. Models that are not compressible pass through untouched.
type HolderCodec struct {
	prototype Codec
	codecs    []ModelCodec
}

// NewHolderCodec returns a codec for holders of size positions whose slots
// are instantiated from prototype.
func NewHolderCodec(prototype Codec, size int) *HolderCodec {
	return &HolderCodec{
		prototype: prototype,
		codecs:    make([]ModelCodec, size),
	}
}

// Len returns the number of positions.
func (h *HolderCodec) Len() int {
	return len(h.codecs)
}

// Encode compresses every compressible model of holder. Codec state is not
// mutated.
func (h *HolderCodec) Encode(holder model.Holder) (model.Holder, error) {
	if len(holder) != len(h.codecs) {
		return nil, h.shapeErr(len(holder))
	}
	res := make(model.Holder, len(holder))
	for i, m := range holder {
		mc := h.codecFor(i, m)
		if mc == nil {
			res[i] = m
			continue
		}
		c, err := mc.Encode(m)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		res[i] = c
	}
	return res, nil
}

// Decode reconstructs every compressed model of holder, advancing the codec
// state of the corresponding positions.
func (h *HolderCodec) Decode(holder model.Holder) (model.Holder, error) {
	if len(holder) != len(h.codecs) {
		return nil, h.shapeErr(len(holder))
	}
	res := make(model.Holder, len(holder))
	for i, m := range holder {
		c, ok := m.(*CompressedModel)
		if !ok {
			res[i] = m
			continue
		}
		if h.codecs[i] == nil {
			if c.Sparse {
				h.codecs[i] = NewSparseModelCodec(h.prototype)
			} else {
				h.codecs[i] = NewDenseModelCodec(h.prototype)
			}
		}
		d, err := h.codecs[i].Decode(c)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		res[i] = d
	}
	return res, nil
}

// Clone returns a deep copy of every ModelCodec.
func (h *HolderCodec) Clone() *HolderCodec {
	res := &HolderCodec{
		prototype: h.prototype,
		codecs:    make([]ModelCodec, len(h.codecs)),
	}
	for i, c := range h.codecs {
		if c != nil {
			res.codecs[i] = c.Clone()
		}
	}
	return res
}

// codecFor returns the ModelCodec of position i, creating it for m if
// needed. It returns nil when m is not compressible. A fresh ModelCodec holds
// no slot state, so creating one here does not affect later decodes.
func (h *HolderCodec) codecFor(i int, m model.Model) ModelCodec {
	if h.codecs[i] == nil {
		h.codecs[i] = NewModelCodec(h.prototype, m)
		return h.codecs[i]
	}
	switch h.codecs[i].(type) {
	case *DenseModelCodec:
		if _, ok := m.(model.DenseCompressible); ok {
			return h.codecs[i]
		}
	case *SparseModelCodec:
		if _, ok := m.(model.SparseCompressible); ok {
			return h.codecs[i]
		}
	}
	return nil
}

func (h *HolderCodec) shapeErr(got int) error {
	return common.NewProtocolErr("HolderCodec", common.ShapeMismatch,
		fmt.Sprintf("expected %d positions, got %d", len(h.codecs), got))
}
