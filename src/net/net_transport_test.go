package net

import (
	"reflect"
	"testing"
	"time"

	"github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/mosaicnetworks/gossiplearn/src/model"
)

func newTestTCPTransport(t *testing.T) *NetworkTransport {
	trans, err := NewTCPTransport("127.0.0.1:0", "", 2, time.Second, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	go trans.Listen()
	return trans
}

func TestNetworkTransport_StartStop(t *testing.T) {
	trans := newTestTCPTransport(t)
	if err := trans.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}
	if !trans.IsShutdown() {
		t.Fatal("transport should be shut down")
	}
	if err := trans.Send("127.0.0.1:1", &Message{}); err != ErrTransportShutdown {
		t.Fatalf("err: %v", err)
	}
}

func TestNetworkTransport_Send(t *testing.T) {
	trans1 := newTestTCPTransport(t)
	defer trans1.Close()
	trans2 := newTestTCPTransport(t)
	defer trans2.Close()

	msgs := []*Message{
		{
			SourceID:   trans2.LocalAddr(),
			TargetID:   trans1.LocalAddr(),
			Payload:    testHolder(t),
			SequenceID: 1,
		},
		{
			SourceID:           trans2.LocalAddr(),
			TargetID:           trans1.LocalAddr(),
			Payload:            testHolder(t),
			SequenceID:         2,
			TransactionCounter: 1,
			IsReply:            true,
		},
	}

	// Both messages go over the same pooled connection.
	for _, m := range msgs {
		if err := trans2.Send(trans1.LocalAddr(), m); err != nil {
			t.Fatalf("err: %v", err)
		}
	}

	for i, want := range msgs {
		select {
		case got := <-trans1.Consumer():
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("message %d mismatch:\n%#v\n%#v", i, got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for message %d", i)
		}
	}
}

func TestNetworkTransport_Reply(t *testing.T) {
	trans1 := newTestTCPTransport(t)
	defer trans1.Close()
	trans2 := newTestTCPTransport(t)
	defer trans2.Close()

	push := &Message{
		SourceID:   trans1.LocalAddr(),
		TargetID:   trans2.LocalAddr(),
		Payload:    model.Holder{model.NewLinear(1)},
		SequenceID: 1,
	}
	if err := trans1.Send(trans2.LocalAddr(), push); err != nil {
		t.Fatal(err)
	}

	var req *Message
	select {
	case req = <-trans2.Consumer():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for push")
	}

	reply := &Message{
		SourceID:   trans2.LocalAddr(),
		TargetID:   req.SourceID,
		Payload:    req.Payload,
		SequenceID: req.SequenceID,
		IsReply:    true,
	}
	if err := trans2.Send(req.SourceID, reply); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-trans1.Consumer():
		if !got.IsReply || got.SequenceID != 1 {
			t.Fatalf("unexpected reply %#v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reply")
	}
}

func TestNetworkTransport_UnreachablePeer(t *testing.T) {
	trans := newTestTCPTransport(t)
	defer trans.Close()

	dead := newTestTCPTransport(t)
	addr := dead.LocalAddr()
	dead.Close()

	if err := trans.Send(addr, &Message{Payload: model.Holder{}}); err == nil {
		t.Fatal("expected an error sending to a closed listener")
	}
}
