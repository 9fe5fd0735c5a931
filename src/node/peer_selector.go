package node

import (
	"math/rand"

	"github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/mosaicnetworks/gossiplearn/src/peers"
)

// PeerSelector defines and interface for Peer Selectors
type PeerSelector interface {
	Peers() *peers.PeerSet
	// Next returns the peer to push to, or nil if there is no neighbor.
	Next() *peers.Peer
}

// NewPeerSelector returns the selector registered under name, falling back to
// the random selector.
func NewPeerSelector(name string, peerSet *peers.PeerSet, self string) PeerSelector {
	switch name {
	case "shuffle":
		return NewShufflePeerSelector(peerSet, self)
	default:
		return NewRandomPeerSelector(peerSet, self)
	}
}

func selectorRand(self string) *rand.Rand {
	return rand.New(rand.NewSource(int64(common.Hash32([]byte(self))) ^ rand.Int63()))
}

//+++++++++++++++++++++++++++++++++++++++
//RANDOM

// RandomPeerSelector picks a neighbor uniformly at random, with replacement.
type RandomPeerSelector struct {
	peers           *peers.PeerSet
	selectablePeers []*peers.Peer
	rnd             *rand.Rand
}

// NewRandomPeerSelector is a factory method that returns a new instance of
// RandomPeerSelector. self is never selected.
func NewRandomPeerSelector(peerSet *peers.PeerSet, self string) *RandomPeerSelector {
	_, selectablePeers := peers.ExcludePeer(peerSet.Peers, self)
	return &RandomPeerSelector{
		peers:           peerSet,
		selectablePeers: selectablePeers,
		rnd:             selectorRand(self),
	}
}

// Peers returns a set of peers
func (ps *RandomPeerSelector) Peers() *peers.PeerSet {
	return ps.peers
}

// Next returns the next peer
func (ps *RandomPeerSelector) Next() *peers.Peer {
	if len(ps.selectablePeers) == 0 {
		return nil
	}
	return ps.selectablePeers[ps.rnd.Intn(len(ps.selectablePeers))]
}

//+++++++++++++++++++++++++++++++++++++++
//SHUFFLE

// ShufflePeerSelector visits every neighbor once, in random order, before
// starting a new pass in a fresh order.
type ShufflePeerSelector struct {
	peers           *peers.PeerSet
	selectablePeers []*peers.Peer
	order           []int
	rnd             *rand.Rand
}

// NewShufflePeerSelector returns a ShufflePeerSelector that never selects
// self.
func NewShufflePeerSelector(peerSet *peers.PeerSet, self string) *ShufflePeerSelector {
	_, selectablePeers := peers.ExcludePeer(peerSet.Peers, self)
	return &ShufflePeerSelector{
		peers:           peerSet,
		selectablePeers: selectablePeers,
		rnd:             selectorRand(self),
	}
}

// Peers returns a set of peers
func (ps *ShufflePeerSelector) Peers() *peers.PeerSet {
	return ps.peers
}

// Next returns the next peer of the current pass.
func (ps *ShufflePeerSelector) Next() *peers.Peer {
	if len(ps.selectablePeers) == 0 {
		return nil
	}
	if len(ps.order) == 0 {
		ps.order = ps.rnd.Perm(len(ps.selectablePeers))
	}
	i := ps.order[0]
	ps.order = ps.order[1:]
	return ps.selectablePeers[i]
}
