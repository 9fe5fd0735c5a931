package peers

import (
	"bytes"
	"encoding/json"
)

// PeerSet is a set of Peers forming a gossip network. Peers are unique by
// address.
type PeerSet struct {
	Peers  []*Peer          `json:"peers"`
	ByAddr map[string]*Peer `json:"-"`
	ByID   map[uint32]*Peer `json:"-"`
}

/* Constructors */

// NewPeerSet creates a new PeerSet from a list of Peers. Later duplicates of an
// address are ignored.
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		ByAddr: make(map[string]*Peer),
		ByID:   make(map[uint32]*Peer),
	}

	for _, peer := range peers {
		if _, ok := peerSet.ByAddr[peer.NetAddr]; ok {
			continue
		}
		peerSet.ByAddr[peer.NetAddr] = peer
		peerSet.ByID[peer.ID()] = peer
		peerSet.Peers = append(peerSet.Peers, peer)
	}

	return peerSet
}

// NewPeerSetFromPeerSliceBytes creates a new PeerSet from a peerSlice in Bytes
// format
func NewPeerSetFromPeerSliceBytes(peerSliceBytes []byte) (*PeerSet, error) {
	peers := []*Peer{}

	dec := json.NewDecoder(bytes.NewBuffer(peerSliceBytes))
	if err := dec.Decode(&peers); err != nil {
		return nil, err
	}

	return NewPeerSet(peers), nil
}

// WithNewPeer returns a new PeerSet with a list of peers including the new one.
func (peerSet *PeerSet) WithNewPeer(peer *Peer) *PeerSet {
	peers := append([]*Peer{}, peerSet.Peers...)
	return NewPeerSet(append(peers, peer))
}

// WithRemovedPeer returns a new PeerSet with a list of peers excluding the
// provided one
func (peerSet *PeerSet) WithRemovedPeer(peer *Peer) *PeerSet {
	_, others := ExcludePeer(peerSet.Peers, peer.NetAddr)
	return NewPeerSet(others)
}

/* ToSlice Methods */

// Addrs returns the network addresses of the peers, in order.
func (peerSet *PeerSet) Addrs() []string {
	res := make([]string, 0, len(peerSet.Peers))
	for _, peer := range peerSet.Peers {
		res = append(res, peer.NetAddr)
	}
	return res
}

// IDs returns the PeerSet's slice of IDs
func (peerSet *PeerSet) IDs() []uint32 {
	res := make([]uint32, 0, len(peerSet.Peers))
	for _, peer := range peerSet.Peers {
		res = append(res, peer.ID())
	}
	return res
}

/* Utilities */

// Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.Peers)
}

// Marshal marshals the peerset
func (peerSet *PeerSet) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(peerSet.Peers); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
