package node

import (
	"sync"
	"sync/atomic"
)

// State captures the state of a gossip learning node: Gossiping, Suspended or
// Shutdown
type State uint32

const (
	// Gossiping is the initial state of a node. It trains and initiates
	// exchanges on every heartbeat.
	Gossiping State = iota
	// Suspended nodes answer pushes but do not initiate exchanges.
	Suspended
	// Shutdown is shutdown
	Shutdown
)

// String ...
func (s State) String() string {
	switch s {
	case Gossiping:
		return "Gossiping"
	case Suspended:
		return "Suspended"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

type state struct {
	state State
	wg    sync.WaitGroup
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// Start a goroutine and add it to waitgroup
func (b *state) goFunc(f func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		f()
	}()
}

func (b *state) waitRoutines() {
	b.wg.Wait()
}
