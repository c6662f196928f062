// Package storage persists video metadata records. VideoStore is implemented
// by an in-memory map, DynamoDB and Redis here, and by Postgres in the
// repository package.
package storage

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/VideoGate/internal/model"
)

// ErrNotFound is returned by UpdateStatus when the id does not exist.
var ErrNotFound = errors.New("video not found")

// VideoStore is the key-value contract for video records.
type VideoStore interface {
	// Put inserts or overwrites the record keyed by its ID.
	Put(ctx context.Context, video *model.Video) error
	// Get returns (nil, nil) when the id is unknown.
	Get(ctx context.Context, id string) (*model.Video, error)
	// UpdateStatus sets the status and refreshes UpdatedAt. Unknown ids yield
	// ErrNotFound and nothing is created.
	UpdateStatus(ctx context.Context, id string, status model.Status) error
	// ListByOwner scans the whole table; cost grows with table size.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Video, error)
}

// OpObserver counts store calls. *metrics.Recorder satisfies it.
type OpObserver interface {
	StoreOp(op string, err error)
}

// Instrument wraps store so every call is reported to observer.
func Instrument(store VideoStore, observer OpObserver) VideoStore {
	if observer == nil {
		return store
	}
	return &instrumented{next: store, observer: observer}
}

type instrumented struct {
	next     VideoStore
	observer OpObserver
}

func (i *instrumented) Put(ctx context.Context, video *model.Video) error {
	err := i.next.Put(ctx, video)
	i.observer.StoreOp("put", err)
	return err
}

func (i *instrumented) Get(ctx context.Context, id string) (*model.Video, error) {
	v, err := i.next.Get(ctx, id)
	i.observer.StoreOp("get", err)
	return v, err
}

func (i *instrumented) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	err := i.next.UpdateStatus(ctx, id, status)
	i.observer.StoreOp("update", err)
	return err
}

func (i *instrumented) ListByOwner(ctx context.Context, ownerID string) ([]model.Video, error) {
	v, err := i.next.ListByOwner(ctx, ownerID)
	i.observer.StoreOp("scan", err)
	return v, err
}
