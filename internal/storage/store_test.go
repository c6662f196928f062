package storage

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VideoGate/internal/model"
)

var created = time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)

func sampleVideo(id, owner string) *model.Video {
	return &model.Video{
		ID:            id,
		Title:         "Meu vídeo",
		Author:        "Iana",
		Status:        model.StatusUploaded,
		FilePath:      "s3://bucket/videos/" + id + "/clip.mp4",
		CreatedAt:     created,
		UpdatedAt:     created,
		OwnerID:       owner,
		OwnerUsername: "user-" + owner,
		OwnerEmail:    owner + "@example.com",
	}
}

// runStoreContract exercises the behavior every VideoStore must share.
func runStoreContract(t *testing.T, store VideoStore) {
	ctx := context.Background()

	t.Run("get unknown id", func(t *testing.T) {
		got, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("put then get", func(t *testing.T) {
		want := sampleVideo("v1", "u1")
		require.NoError(t, store.Put(ctx, want))

		got, err := store.Get(ctx, "v1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.FilePath, got.FilePath)
		assert.Equal(t, want.OwnerEmail, got.OwnerEmail)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
		assert.Empty(t, got.ZipPath)
	})

	t.Run("put overwrites", func(t *testing.T) {
		v := sampleVideo("v2", "u1")
		require.NoError(t, store.Put(ctx, v))
		v.ZipPath = "s3://bucket/out/v2.zip"
		v.Title = "renamed"
		require.NoError(t, store.Put(ctx, v))

		got, err := store.Get(ctx, "v2")
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
		assert.Equal(t, "s3://bucket/out/v2.zip", got.OutputLocator())
	})

	t.Run("update status", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, sampleVideo("v3", "u2")))
		require.NoError(t, store.UpdateStatus(ctx, "v3", model.StatusProcessing))

		got, err := store.Get(ctx, "v3")
		require.NoError(t, err)
		assert.Equal(t, model.StatusProcessing, got.Status)
		assert.True(t, got.UpdatedAt.After(created))
		assert.True(t, got.CreatedAt.Equal(created))
		assert.Equal(t, "u2", got.OwnerID)
	})

	t.Run("update unknown id", func(t *testing.T) {
		err := store.UpdateStatus(ctx, "ghost", model.StatusDone)
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

		got, err := store.Get(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list by owner", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, sampleVideo("o1", "owner-x")))
		require.NoError(t, store.Put(ctx, sampleVideo("o2", "owner-x")))
		require.NoError(t, store.Put(ctx, sampleVideo("o3", "owner-y")))

		got, err := store.ListByOwner(ctx, "owner-x")
		require.NoError(t, err)
		ids := make([]string, 0, len(got))
		for _, v := range got {
			ids = append(ids, v.ID)
		}
		sort.Strings(ids)
		assert.Equal(t, []string{"o1", "o2"}, ids)

		none, err := store.ListByOwner(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	v := sampleVideo("v1", "u1")
	require.NoError(t, s.Put(ctx, v))
	v.Title = "mutated after put"

	got, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Meu vídeo", got.Title)

	got.Status = model.StatusDone
	again, _ := s.Get(ctx, "v1")
	assert.Equal(t, model.StatusUploaded, again.Status)
}

type recordingObserver struct {
	ops []string
}

func (r *recordingObserver) StoreOp(op string, err error) {
	if err != nil {
		op += ":error"
	}
	r.ops = append(r.ops, op)
}

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	s := Instrument(NewMemoryStore(), obs)

	require.NoError(t, s.Put(ctx, sampleVideo("v1", "u1")))
	_, _ = s.Get(ctx, "v1")
	_ = s.UpdateStatus(ctx, "nope", model.StatusDone)
	_, _ = s.ListByOwner(ctx, "u1")

	assert.Equal(t, []string{"put", "get", "update:error", "scan"}, obs.ops)
	assert.IsType(t, &MemoryStore{}, Instrument(NewMemoryStore(), nil))
}
