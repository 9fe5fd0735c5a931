package net

import (
	"fmt"

	"github.com/mosaicnetworks/gossiplearn/src/codec"
	"github.com/mosaicnetworks/gossiplearn/src/model"
	ucodec "github.com/ugorji/go/codec"
)

// Message is one half of a push-pull exchange. It carries the (possibly
// compressed) models of the sender along with the counters the receiving
// connection uses to order, deduplicate and roll back exchanges.
type Message struct {
	SourceID           string
	TargetID           string
	ProtocolID         int
	Payload            model.Holder
	SequenceID         int
	TransactionCounter int
	IsReply            bool
}

// WireModel is a model tagged with its kind so the receiver knows which
// concrete type to decode the body into.
type WireModel struct {
	Kind string `codec:"k"`
	Body []byte `codec:"b"`
}

// WireMessage is the serializable form of a Message.
type WireMessage struct {
	SourceID           string      `codec:"src"`
	TargetID           string      `codec:"dst"`
	ProtocolID         int         `codec:"proto"`
	SequenceID         int         `codec:"seq"`
	TransactionCounter int         `codec:"tx"`
	IsReply            bool        `codec:"reply"`
	Payload            []WireModel `codec:"payload"`
}

var msgpackHandle = &ucodec.MsgpackHandle{}

// ToWire converts the message to its serializable form.
func (m *Message) ToWire() (*WireMessage, error) {
	payload, err := WireHolder(m.Payload)
	if err != nil {
		return nil, err
	}
	return &WireMessage{
		SourceID:           m.SourceID,
		TargetID:           m.TargetID,
		ProtocolID:         m.ProtocolID,
		SequenceID:         m.SequenceID,
		TransactionCounter: m.TransactionCounter,
		IsReply:            m.IsReply,
		Payload:            payload,
	}, nil
}

// ReadWireInfo converts a WireMessage back into a Message.
func (w *WireMessage) ReadWireInfo() (*Message, error) {
	payload, err := ReadWireHolder(w.Payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		SourceID:           w.SourceID,
		TargetID:           w.TargetID,
		ProtocolID:         w.ProtocolID,
		SequenceID:         w.SequenceID,
		TransactionCounter: w.TransactionCounter,
		IsReply:            w.IsReply,
		Payload:            payload,
	}, nil
}

// WireHolder encodes every model of a holder.
func WireHolder(h model.Holder) ([]WireModel, error) {
	res := make([]WireModel, len(h))
	for i, m := range h {
		var body []byte
		enc := ucodec.NewEncoderBytes(&body, msgpackHandle)
		if err := enc.Encode(m); err != nil {
			return nil, fmt.Errorf("encoding %s model at position %d: %v", m.Kind(), i, err)
		}
		res[i] = WireModel{Kind: m.Kind(), Body: body}
	}
	return res, nil
}

// ReadWireHolder decodes the models of a holder. Compressed models are
// returned as *codec.CompressedModel, without a reference to an original.
func ReadWireHolder(wms []WireModel) (model.Holder, error) {
	res := make(model.Holder, len(wms))
	for i, wm := range wms {
		var m model.Model
		switch wm.Kind {
		case codec.CompressedKind:
			m = &codec.CompressedModel{}
		default:
			var err error
			m, err = model.New(wm.Kind)
			if err != nil {
				return nil, err
			}
		}
		dec := ucodec.NewDecoderBytes(wm.Body, msgpackHandle)
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("decoding %s model at position %d: %v", wm.Kind, i, err)
		}
		res[i] = m
	}
	return res, nil
}

// Marshal returns the msgpack encoding of the message.
func (m *Message) Marshal() ([]byte, error) {
	w, err := m.ToWire()
	if err != nil {
		return nil, err
	}
	var b []byte
	enc := ucodec.NewEncoderBytes(&b, msgpackHandle)
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return b, nil
}

// Unmarshal parses a message produced by Marshal.
func Unmarshal(data []byte) (*Message, error) {
	var w WireMessage
	dec := ucodec.NewDecoderBytes(data, msgpackHandle)
	if err := dec.Decode(&w); err != nil {
		return nil, err
	}
	return w.ReadWireInfo()
}
