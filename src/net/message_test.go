package net

import (
	"reflect"
	"testing"

	"github.com/mosaicnetworks/gossiplearn/src/codec"
	"github.com/mosaicnetworks/gossiplearn/src/model"
)

func testHolder(t *testing.T) model.Holder {
	lin := model.NewLinear(3)
	lin.Weights = []float64{0.5, -1.25, 3, 0.125}
	lin.ModelAge = 4

	sp := model.NewSparse()
	sp.Weights[7] = 2.5
	sp.Weights[model.BiasIndex] = -1
	sp.ModelAge = 2

	return model.Holder{lin, sp}
}

func TestMessage_MarshalPlain(t *testing.T) {
	msg := &Message{
		SourceID:           "a",
		TargetID:           "b",
		ProtocolID:         3,
		Payload:            testHolder(t),
		SequenceID:         12,
		TransactionCounter: 7,
		IsReply:            true,
	}

	data, err := msg.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(msg, got) {
		t.Fatalf("message mismatch:\n%#v\n%#v", msg, got)
	}
}

func TestMessage_MarshalCompressed(t *testing.T) {
	prototype, err := codec.New(codec.AdaptiveName, nil)
	if err != nil {
		t.Fatal(err)
	}
	hc := codec.NewHolderCodec(prototype, 2)

	payload, err := hc.Encode(testHolder(t))
	if err != nil {
		t.Fatal(err)
	}

	msg := &Message{SourceID: "a", TargetID: "b", Payload: payload, SequenceID: 1}
	data, err := msg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}

	for i := range payload {
		want := payload[i].(*codec.CompressedModel)
		c, ok := got.Payload[i].(*codec.CompressedModel)
		if !ok {
			t.Fatalf("position %d: got %T", i, got.Payload[i])
		}
		if c.Original() != nil {
			t.Fatalf("position %d: original should not travel", i)
		}
		if c.Source != want.Source || c.ModelAge != want.ModelAge ||
			c.Sparse != want.Sparse || c.Size != want.Size {
			t.Fatalf("position %d: header mismatch: %#v vs %#v", i, c, want)
		}
		if !reflect.DeepEqual(c.Tokens, want.Tokens) {
			t.Fatalf("position %d: tokens %v, want %v", i, c.Tokens, want.Tokens)
		}
		if want.Sparse && !reflect.DeepEqual(c.Indices, want.Indices) {
			t.Fatalf("position %d: indices %v, want %v", i, c.Indices, want.Indices)
		}
	}

	// The receiver decodes into the same values as the sender's own copy.
	local := hc.Clone()
	remote := codec.NewHolderCodec(prototype, 2)
	mine, err := local.Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	theirs, err := remote.Decode(got.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(mine, theirs) {
		t.Fatalf("decoded holders differ:\n%#v\n%#v", mine, theirs)
	}
}

func TestMessage_UnknownKind(t *testing.T) {
	w := &WireMessage{Payload: []WireModel{{Kind: "martian"}}}
	if _, err := w.ReadWireInfo(); err == nil {
		t.Fatal("expected error for unknown model kind")
	}
}
