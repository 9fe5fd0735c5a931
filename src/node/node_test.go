package node

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/mosaicnetworks/gossiplearn/src/model"
	"github.com/mosaicnetworks/gossiplearn/src/net"
	"github.com/mosaicnetworks/gossiplearn/src/peers"
	"github.com/mosaicnetworks/gossiplearn/src/store"
)

// separable returns n instances labelled by the sign of x0 + x1.
func separable(rnd *rand.Rand, n int) model.Dataset {
	data := make(model.Dataset, n)
	for i := range data {
		x0, x1 := rnd.Float64()*2-1, rnd.Float64()*2-1
		label := 0.0
		if x0+x1 > 0 {
			label = 1
		}
		data[i] = model.Instance{Features: map[int]float64{0: x0, 1: x1}, Label: label}
	}
	return data
}

func initNodes(t *testing.T, n int, stores []store.Store) []*Node {
	rnd := rand.New(rand.NewSource(1))

	var ps []*peers.Peer
	var transports []*net.InmemTransport
	for i := 0; i < n; i++ {
		addr, trans := net.NewInmemTransport("")
		transports = append(transports, trans)
		ps = append(ps, peers.NewPeer(addr, ""))
	}
	for _, a := range transports {
		for _, b := range transports {
			a.Connect(b.LocalAddr(), b)
		}
	}
	peerSet := peers.NewPeerSet(ps)

	nodes := make([]*Node, n)
	for i := range nodes {
		conf := testConfig(t)
		conf.Features = 2
		conf.Epochs = 1
		conf.HeartbeatTimeout = 5 * time.Millisecond

		var s store.Store
		if stores != nil {
			s = stores[i]
			conf.Store = true
			conf.CheckpointInterval = 1
		}

		node, err := NewNode(conf, peerSet, separable(rnd, 20), s, transports[i])
		if err != nil {
			t.Fatal(err)
		}
		if err := node.Init(); err != nil {
			t.Fatal(err)
		}
		nodes[i] = node
	}
	return nodes
}

func shutdownNodes(nodes []*Node) {
	for _, n := range nodes {
		n.Shutdown()
	}
}

func TestGossip(t *testing.T) {
	nodes := initNodes(t, 4, nil)
	defer shutdownNodes(nodes)

	for _, n := range nodes {
		n.RunAsync(true)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		done := true
		for _, n := range nodes {
			stats := n.GetStats()
			if stats["updates"] == "0" || stats["updates"] == "1" {
				done = false
			}
		}
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("nodes did not exchange models in time")
		}
		time.Sleep(20 * time.Millisecond)
	}

	test := separable(rand.New(rand.NewSource(2)), 200)
	for _, n := range nodes {
		errs := n.Evaluate(test)
		if math.IsNaN(errs[0]) || errs[0] > 0.5 {
			t.Fatalf("node %s error = %v", n.ID(), errs[0])
		}
		stats := n.GetStats()
		if stats["state"] != Gossiping.String() {
			t.Fatalf("state = %s", stats["state"])
		}
	}
}

func TestSuspendedNodeAnswers(t *testing.T) {
	nodes := initNodes(t, 2, nil)
	defer shutdownNodes(nodes)

	nodes[1].Suspend()
	if nodes[1].GetState() != Suspended {
		t.Fatalf("state = %s", nodes[1].GetState())
	}

	nodes[0].RunAsync(true)
	nodes[1].RunAsync(true)

	deadline := time.Now().Add(5 * time.Second)
	for nodes[0].GetStats()["updates"] == "0" {
		if time.Now().After(deadline) {
			t.Fatal("suspended node did not answer")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if r := nodes[1].GetStats()["rounds"]; r != "0" {
		t.Fatalf("suspended node ran %s rounds", r)
	}

	nodes[1].Resume()
	if nodes[1].GetState() != Gossiping {
		t.Fatalf("state = %s", nodes[1].GetState())
	}
}

func TestCheckpointAndBootstrap(t *testing.T) {
	stores := []store.Store{store.NewInmemStore(), store.NewInmemStore()}
	nodes := initNodes(t, 2, stores)

	for _, n := range nodes {
		n.RunAsync(true)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := stores[0].GetCheckpoint(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no checkpoint saved")
		}
		time.Sleep(20 * time.Millisecond)
	}

	shutdownNodes(nodes)

	saved, err := stores[0].GetCheckpoint()
	if err != nil {
		t.Fatal(err)
	}
	if saved.Round == 0 || saved.Models[0].Age() <= 0 {
		t.Fatalf("checkpoint = %+v", saved)
	}

	// a new node restores the saved models
	conf := testConfig(t)
	conf.Features = 2
	conf.Bootstrap = true

	_, trans := net.NewInmemTransport("")
	n, err := NewNode(conf, peers.NewPeerSet(nil), nil, stores[0], trans)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Init(); err != nil {
		t.Fatal(err)
	}
	defer n.Shutdown()

	restored := n.GetModels()
	want := saved.Models[0].(*model.Linear)
	got := restored[0].(*model.Linear)
	if got.ModelAge != want.ModelAge || got.Weights[0] != want.Weights[0] {
		t.Fatalf("restored %+v, want %+v", got, want)
	}
	if n.core.GetRound() != saved.Round {
		t.Fatalf("round = %d, want %d", n.core.GetRound(), saved.Round)
	}
}

func TestBootstrapWithoutCheckpoint(t *testing.T) {
	conf := testConfig(t)
	conf.Bootstrap = true

	_, trans := net.NewInmemTransport("")
	n, err := NewNode(conf, peers.NewPeerSet(nil), nil, store.NewInmemStore(), trans)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Init(); err != nil {
		t.Fatal(err)
	}
	defer n.Shutdown()

	if n.GetState() != Gossiping {
		t.Fatalf("state = %s", n.GetState())
	}
	if _, err := n.store.GetCheckpoint(); !common.IsStore(err, common.KeyNotFound) {
		t.Fatalf("err = %v", err)
	}
}
