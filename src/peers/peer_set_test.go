package peers

import (
	"reflect"
	"testing"
)

func TestPeerSet(t *testing.T) {
	a := NewPeer("a:1", "alice")
	b := NewPeer("b:1", "bob")

	ps := NewPeerSet([]*Peer{a, b})
	if ps.Len() != 2 {
		t.Fatalf("len %d", ps.Len())
	}
	if ps.ByAddr["a:1"] != a || ps.ByID[b.ID()] != b {
		t.Fatal("lookup tables not populated")
	}

	c := NewPeer("c:1", "carol")
	ps2 := ps.WithNewPeer(c).WithNewPeer(a)
	if !reflect.DeepEqual(ps2.Addrs(), []string{"a:1", "b:1", "c:1"}) {
		t.Fatalf("addrs %v", ps2.Addrs())
	}
	if ps.Len() != 2 {
		t.Fatal("original set was modified")
	}

	ps3 := ps2.WithRemovedPeer(b)
	if !reflect.DeepEqual(ps3.Addrs(), []string{"a:1", "c:1"}) {
		t.Fatalf("addrs %v", ps3.Addrs())
	}
	if _, ok := ps3.ByID[b.ID()]; ok {
		t.Fatal("removed peer still indexed")
	}

	data, err := ps3.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	ps4, err := NewPeerSetFromPeerSliceBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ps4.IDs(), ps3.IDs()) {
		t.Fatalf("ids %v, want %v", ps4.IDs(), ps3.IDs())
	}
}

func TestExcludePeer(t *testing.T) {
	peers := []*Peer{NewPeer("a", ""), NewPeer("b", ""), NewPeer("c", "")}

	index, others := ExcludePeer(peers, "b")
	if index != 1 || len(others) != 2 || others[0].NetAddr != "a" || others[1].NetAddr != "c" {
		t.Fatalf("index %d, others %v", index, others)
	}

	index, others = ExcludePeer(peers, "z")
	if index != -1 || len(others) != 3 {
		t.Fatalf("index %d, others %v", index, others)
	}
}
