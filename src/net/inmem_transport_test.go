package net

import (
	"errors"
	"testing"
	"time"

	"github.com/mosaicnetworks/gossiplearn/src/model"
)

func connectedInmemPair() (*InmemTransport, *InmemTransport) {
	addr1, trans1 := NewInmemTransport("")
	addr2, trans2 := NewInmemTransport("")
	trans1.Connect(addr2, trans2)
	trans2.Connect(addr1, trans1)
	return trans1, trans2
}

func TestInmemTransport_Send(t *testing.T) {
	trans1, trans2 := connectedInmemPair()
	defer trans1.Close()
	defer trans2.Close()

	lin := model.NewLinear(2)
	lin.Weights[0] = 1
	msg := &Message{
		SourceID:   trans1.LocalAddr(),
		TargetID:   trans2.LocalAddr(),
		Payload:    model.Holder{lin},
		SequenceID: 1,
	}
	if err := trans1.Send(trans2.LocalAddr(), msg); err != nil {
		t.Fatal(err)
	}

	// The receiver works on its own copy.
	lin.Weights[0] = 42

	select {
	case got := <-trans2.Consumer():
		w := got.Payload[0].(*model.Linear).Weights[0]
		if w != 1 {
			t.Fatalf("received weight %v, want 1", w)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestInmemTransport_UnknownPeer(t *testing.T) {
	_, trans := NewInmemTransport("")
	err := trans.Send("nowhere", &Message{})
	if !errors.Is(err, ErrUnknownPeer) {
		t.Fatalf("err: %v", err)
	}

	trans.Close()
	if err := trans.Send("nowhere", &Message{}); err != ErrTransportShutdown {
		t.Fatalf("err: %v", err)
	}
}

func TestInmemTransport_DropFilter(t *testing.T) {
	trans1, trans2 := connectedInmemPair()
	defer trans1.Close()
	defer trans2.Close()

	trans1.SetDropFilter(func(m *Message) bool { return m.SequenceID%2 == 1 })

	for seq := 1; seq <= 4; seq++ {
		msg := &Message{SequenceID: seq, Payload: model.Holder{}}
		if err := trans1.Send(trans2.LocalAddr(), msg); err != nil {
			t.Fatal(err)
		}
	}

	received := map[int]bool{}
	timeout := time.After(200 * time.Millisecond)
loop:
	for {
		select {
		case m := <-trans2.Consumer():
			received[m.SequenceID] = true
		case <-timeout:
			break loop
		}
	}

	if len(received) != 2 || !received[2] || !received[4] {
		t.Fatalf("received %v, want only even sequences", received)
	}
}

func TestInmemTransport_DropRate(t *testing.T) {
	trans1, trans2 := connectedInmemPair()
	defer trans1.Close()
	defer trans2.Close()

	trans1.SetDropRate(1)
	if err := trans1.Send(trans2.LocalAddr(), &Message{Payload: model.Holder{}}); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-trans2.Consumer():
		t.Fatalf("message should have been dropped: %#v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInmemTransport_Latency(t *testing.T) {
	trans1, trans2 := connectedInmemPair()
	defer trans1.Close()
	defer trans2.Close()

	trans1.SetLatency(30*time.Millisecond, 40*time.Millisecond)

	start := time.Now()
	if err := trans1.Send(trans2.LocalAddr(), &Message{Payload: model.Holder{}}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-trans2.Consumer():
		if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
			t.Fatalf("delivered after %v", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}
