// Package store persists checkpoints of a node's shared models so that a
// restarted node can resume gossiping from where it stopped instead of
// retraining from scratch.
package store

import (
	"github.com/mosaicnetworks/gossiplearn/src/model"
	"github.com/mosaicnetworks/gossiplearn/src/net"
	"github.com/ugorji/go/codec"
)

// Store is an interface for checkpoint backends.
type Store interface {
	// SetCheckpoint replaces the last checkpoint.
	SetCheckpoint(cp *Checkpoint) error
	// GetCheckpoint returns the last checkpoint, or a KeyNotFound StoreErr
	// if none was ever written.
	GetCheckpoint() (*Checkpoint, error)
	// Close releases the underlying resources.
	Close() error
	// StorePath returns the location of the persistent data, if any.
	StorePath() string
}

// Checkpoint is a snapshot of the shared models taken after a gossip round.
type Checkpoint struct {
	Round     int
	Timestamp int64
	Models    model.Holder
}

type wireCheckpoint struct {
	Round     int             `codec:"round"`
	Timestamp int64           `codec:"ts"`
	Models    []net.WireModel `codec:"models"`
}

// Marshal encodes the checkpoint with msgpack. Models are encoded the same
// way as on the wire.
func (c *Checkpoint) Marshal() ([]byte, error) {
	models, err := net.WireHolder(c.Models)
	if err != nil {
		return nil, err
	}

	w := wireCheckpoint{
		Round:     c.Round,
		Timestamp: c.Timestamp,
		Models:    models,
	}

	var b []byte
	enc := codec.NewEncoderBytes(&b, &codec.MsgpackHandle{})
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return b, nil
}

// Unmarshal parses a checkpoint produced by Marshal.
func (c *Checkpoint) Unmarshal(data []byte) error {
	var w wireCheckpoint
	dec := codec.NewDecoderBytes(data, &codec.MsgpackHandle{})
	if err := dec.Decode(&w); err != nil {
		return err
	}

	models, err := net.ReadWireHolder(w.Models)
	if err != nil {
		return err
	}

	c.Round = w.Round
	c.Timestamp = w.Timestamp
	c.Models = models
	return nil
}
