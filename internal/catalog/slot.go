package catalog

import (
	"context"
	"errors"
	"time"
)

// StorageKey names the slot holding the whole serialized collection.
const StorageKey = "chembase_products"

var ErrSlotEmpty = errors.New("slot empty")

// Slot is a single-key persistence surface: one named slot, whole-value
// read and write. Read returns ErrSlotEmpty when nothing was ever written.
type Slot interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Ping(ctx context.Context) error
}

// PersistenceReadError reports a slot payload that could not be loaded.
type PersistenceReadError struct {
	Key string
	Err error
}

func (e *PersistenceReadError) Error() string {
	return "read " + e.Key + ": " + e.Err.Error()
}

func (e *PersistenceReadError) Unwrap() error { return e.Err }

// PersistenceWriteError reports a collection that could not be written back.
type PersistenceWriteError struct {
	Key string
	Err error
}

func (e *PersistenceWriteError) Error() string {
	return "write " + e.Key + ": " + e.Err.Error()
}

func (e *PersistenceWriteError) Unwrap() error { return e.Err }

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
