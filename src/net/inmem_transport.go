package net

import (
	"crypto/rand"
	"fmt"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/mosaicnetworks/gossiplearn/src/common"
)

// NewInmemAddr returns a new in-memory addr with
// a randomly generate UUID as the ID.
func NewInmemAddr() string {
	return generateUUID()
}

// generateUUID is used to generate a random UUID.
func generateUUID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%12x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16])
}

// DropFilter decides whether a message is lost in transit. It is called for
// every message sent through an InmemTransport, before the random drop rate
// is applied.
type DropFilter func(msg *Message) bool

// InmemTransport Implements the Transport interface, to allow nodes to be
// tested in-memory without going over a network. Messages go through the
// wire encoding, so receivers never share state with senders. Latency and
// loss can be simulated.
type InmemTransport struct {
	sync.RWMutex
	consumerCh chan *Message
	localAddr  string
	peers      map[string]*InmemTransport

	minLatency time.Duration
	maxLatency time.Duration
	dropRate   float64
	dropFilter DropFilter
	rnd        *mrand.Rand

	shutdown   bool
	shutdownCh chan struct{}
}

// NewInmemTransport is used to initialize a new transport
// and generates a random local address if none is specified
func NewInmemTransport(addr string) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	trans := &InmemTransport{
		consumerCh: make(chan *Message, 64),
		localAddr:  addr,
		peers:      make(map[string]*InmemTransport),
		rnd:        mrand.New(mrand.NewSource(int64(common.Hash32([]byte(addr))))),
		shutdownCh: make(chan struct{}),
	}
	return addr, trans
}

// SetLatency makes every outgoing message wait a uniformly distributed delay
// in [min, max] before delivery.
func (i *InmemTransport) SetLatency(min, max time.Duration) {
	if max < min {
		max = min
	}
	i.Lock()
	defer i.Unlock()
	i.minLatency = min
	i.maxLatency = max
}

// SetDropRate sets the probability with which an outgoing message is lost.
func (i *InmemTransport) SetDropRate(p float64) {
	i.Lock()
	defer i.Unlock()
	i.dropRate = p
}

// SetDropFilter installs f to decide which outgoing messages are lost. A nil
// filter removes it.
func (i *InmemTransport) SetDropFilter(f DropFilter) {
	i.Lock()
	defer i.Unlock()
	i.dropFilter = f
}

// Consumer implements the Transport interface.
func (i *InmemTransport) Consumer() <-chan *Message {
	return i.consumerCh
}

// LocalAddr implements the Transport interface.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// AdvertiseAddr implements the Transport interface.
func (i *InmemTransport) AdvertiseAddr() string {
	return i.localAddr
}

// Send implements the Transport interface. A message dropped by the
// simulated network is not an error.
func (i *InmemTransport) Send(target string, msg *Message) error {
	i.Lock()
	if i.shutdown {
		i.Unlock()
		return ErrTransportShutdown
	}
	peer, ok := i.peers[target]
	if !ok {
		i.Unlock()
		return fmt.Errorf("%w: failed to connect to peer: %v", ErrUnknownPeer, target)
	}
	dropped := i.dropFilter != nil && i.dropFilter(msg)
	if !dropped && i.dropRate > 0 {
		dropped = i.rnd.Float64() < i.dropRate
	}
	delay := i.minLatency
	if i.maxLatency > i.minLatency {
		delay += time.Duration(i.rnd.Int63n(int64(i.maxLatency - i.minLatency)))
	}
	i.Unlock()

	data, err := msg.Marshal()
	if err != nil {
		return err
	}
	if dropped {
		return nil
	}

	received, err := Unmarshal(data)
	if err != nil {
		return err
	}

	time.AfterFunc(delay, func() { peer.deliver(received) })

	return nil
}

func (i *InmemTransport) deliver(msg *Message) {
	select {
	case i.consumerCh <- msg:
	case <-i.shutdownCh:
	}
}

// Connect is used to connect this transport to another transport for
// a given peer name. This allows for local routing.
func (i *InmemTransport) Connect(peer string, t Transport) {
	trans := t.(*InmemTransport)
	i.Lock()
	defer i.Unlock()
	i.peers[peer] = trans
}

// Disconnect is used to remove the ability to route to a given peer.
func (i *InmemTransport) Disconnect(peer string) {
	i.Lock()
	defer i.Unlock()
	delete(i.peers, peer)
}

// DisconnectAll is used to remove all routes to peers.
func (i *InmemTransport) DisconnectAll() {
	i.Lock()
	defer i.Unlock()
	i.peers = make(map[string]*InmemTransport)
}

// Close is used to permanently disable the transport
func (i *InmemTransport) Close() error {
	i.Lock()
	defer i.Unlock()
	if !i.shutdown {
		close(i.shutdownCh)
		i.shutdown = true
	}
	i.peers = make(map[string]*InmemTransport)
	return nil
}

// Listen is an empty function as there is no need to defer
// initialisation of the InMem service
func (i *InmemTransport) Listen() {
}
