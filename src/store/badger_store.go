package store

import (
	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/sirupsen/logrus"
)

const checkpointKey = "checkpoint"

// BadgerStore persists checkpoints in a Badger database.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore opens an existing database or creates a new one if nothing is
// found in path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		sub := logger.WithFields(logrus.Fields{"ns": "badger"})
		opts = opts.WithLogger(sub)
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:   handle,
		path: path,
	}, nil
}

// SetCheckpoint implements the Store interface.
func (s *BadgerStore) SetCheckpoint(cp *Checkpoint) error {
	val, err := cp.Marshal()
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set([]byte(checkpointKey), val); err != nil {
		return err
	}

	return tx.Commit()
}

// GetCheckpoint implements the Store interface.
func (s *BadgerStore) GetCheckpoint() (*Checkpoint, error) {
	var cpBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(checkpointKey))
		if err != nil {
			return err
		}
		cpBytes, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, mapError(err, "Checkpoint", checkpointKey)
	}

	cp := new(Checkpoint)
	if err := cp.Unmarshal(cpBytes); err != nil {
		return nil, err
	}

	return cp, nil
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

func isDBKeyNotFound(err error) bool {
	return err.Error() == badger.ErrKeyNotFound.Error()
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
	}
	return err
}
