// Package index is the term/document substrate queried by the faceted
// navigation engine: an inverted index of field -> term -> roaring posting
// list, with stored ids, sort values and reference counted readers.
package index

import (
	"context"
	"errors"
	"sync"
)

var ErrIndexClosed = errors.New("index closed")

type (
	// ReaderProvider source of readers, implemented by Index; the engine
	// depends on this interface only
	ReaderProvider interface {
		Acquire(ctx context.Context) (Reader, error)
	}

	// Index publish snapshots; readers of a replaced snapshot stay valid
	// until released
	Index struct {
		mu         sync.Mutex
		current    *snapshotReader
		generation uint64
		closed     bool
	}
)

func NewIndex(snap *Snapshot) *Index {
	ix := &Index{generation: 1}
	ix.current = newSnapshotReader(snap, ix.generation)
	return ix
}

// Acquire a reader on the current snapshot, caller must Release it
func (ix *Index) Acquire(ctx context.Context) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil, ErrIndexClosed
	}
	if !ix.current.incRef() {
		return nil, ErrIndexClosed
	}
	return &readerLease{snapshotReader: ix.current}, nil
}

// Reopen publish a new snapshot and retire the previous reader, returns the
// new generation
func (ix *Index) Reopen(snap *Snapshot) (uint64, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return 0, ErrIndexClosed
	}
	ix.generation++
	previous := ix.current
	ix.current = newSnapshotReader(snap, ix.generation)
	previous.decRef()
	return ix.generation, nil
}

func (ix *Index) Generation() uint64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.generation
}

// Close retire the current reader; outstanding leases stay usable
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil
	}
	ix.closed = true
	ix.current.decRef()
	return nil
}
