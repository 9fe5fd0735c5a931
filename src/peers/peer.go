package peers

import (
	"github.com/mosaicnetworks/gossiplearn/src/common"
)

// Peer is a member of the gossip network.
type Peer struct {
	NetAddr string
	Moniker string

	id uint32
}

// NewPeer creates a new peer.
func NewPeer(netAddr, moniker string) *Peer {
	return &Peer{
		NetAddr: netAddr,
		Moniker: moniker,
	}
}

// ID returns the FNV hash of the peer's address.
func (p *Peer) ID() uint32 {
	if p.id == 0 {
		p.id = common.Hash32([]byte(p.NetAddr))
	}
	return p.id
}

// ExcludePeer is used to exclude a single peer from a list of peers.
func ExcludePeer(peers []*Peer, peer string) (int, []*Peer) {
	index := -1
	otherPeers := make([]*Peer, 0, len(peers))
	for i, p := range peers {
		if p.NetAddr != peer {
			otherPeers = append(otherPeers, p)
		} else {
			index = i
		}
	}
	return index, otherPeers
}
