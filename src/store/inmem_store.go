package store

import (
	"sync"

	cm "github.com/mosaicnetworks/gossiplearn/src/common"
)

// InmemStore keeps the last checkpoint in memory.
type InmemStore struct {
	sync.Mutex
	last *Checkpoint
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{}
}

// SetCheckpoint implements the Store interface. The models are copied.
func (s *InmemStore) SetCheckpoint(cp *Checkpoint) error {
	s.Lock()
	defer s.Unlock()
	s.last = &Checkpoint{
		Round:     cp.Round,
		Timestamp: cp.Timestamp,
		Models:    cp.Models.Clone(),
	}
	return nil
}

// GetCheckpoint implements the Store interface.
func (s *InmemStore) GetCheckpoint() (*Checkpoint, error) {
	s.Lock()
	defer s.Unlock()
	if s.last == nil {
		return nil, cm.NewStoreErr("Checkpoint", cm.KeyNotFound, checkpointKey)
	}
	return &Checkpoint{
		Round:     s.last.Round,
		Timestamp: s.last.Timestamp,
		Models:    s.last.Models.Clone(),
	}, nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}

// StorePath implements the Store interface.
func (s *InmemStore) StorePath() string {
	return ""
}
