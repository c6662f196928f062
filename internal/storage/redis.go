package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dharsanguruparan/VideoGate/internal/model"
)

const redisKeyPrefix = "video:"

// RedisStore keeps each record as a JSON string under "video:<id>".
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Put overwrites the record.
func (s *RedisStore) Put(ctx context.Context, video *model.Video) error {
	data, err := json.Marshal(video)
	if err != nil {
		return fmt.Errorf("marshal video: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+video.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", video.ID, err)
	}
	return nil
}

// Get reads one record.
func (s *RedisStore) Get(ctx context.Context, id string) (*model.Video, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	var video model.Video
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, fmt.Errorf("unmarshal video %s: %w", id, err)
	}
	return &video, nil
}

// UpdateStatus rewrites the record inside an optimistic WATCH transaction.
func (s *RedisStore) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	key := redisKeyPrefix + id
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var video model.Video
		if err := json.Unmarshal(data, &video); err != nil {
			return fmt.Errorf("unmarshal video %s: %w", id, err)
		}
		video.Status = status
		video.UpdatedAt = s.now()
		updated, err := json.Marshal(&video)
		if err != nil {
			return fmt.Errorf("marshal video: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update status %s: %w", id, err)
	}
	return nil
}

// ListByOwner iterates every "video:*" key with SCAN. SCAN only promises that
// each key present for the whole iteration is returned at least once, so keys
// seen before are skipped.
func (s *RedisStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Video, error) {
	videos := make([]model.Video, 0)
	seen := make(map[string]struct{})
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		video, err := s.Get(ctx, key[len(redisKeyPrefix):])
		if err != nil {
			return nil, err
		}
		if video != nil && video.OwnerID == ownerID {
			videos = append(videos, *video)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan videos: %w", err)
	}
	return videos, nil
}
