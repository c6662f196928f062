package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VideoGate/internal/config"
	"github.com/dharsanguruparan/VideoGate/internal/logging"
	"github.com/dharsanguruparan/VideoGate/internal/model"
	"github.com/dharsanguruparan/VideoGate/internal/queue"
	"github.com/dharsanguruparan/VideoGate/internal/s3storage"
)

func testConfig() *config.Config {
	return &config.Config{
		Address:      ":0",
		AuthBaseURL:  "http://auth.local",
		AWSRegion:    "us-east-1",
		S3Bucket:     "video-service-bucket",
		DynamoTable:  "videos",
		SQSQueueURL:  "http://localhost:4566/000000000000/videos",
		MaxUploadMB:  1,
		StoreBackend: config.StoreMemory,
		BlobBackend:  config.BlobS3,
		QueueBackend: config.QueueNSQ,
		NSQDAddress:  "127.0.0.1:4150",
		NSQTopic:     "video-processing",
		RedisAddr:    "127.0.0.1:6379",
	}
}

func TestStoreBackends(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		a := New(testConfig(), logging.Discard())
		defer a.Close()
		store, err := a.Store(ctx)
		require.NoError(t, err)
		again, err := a.Store(ctx)
		require.NoError(t, err)
		assert.Same(t, store, again)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig()
		cfg.StoreBackend = config.StoreRedis
		cfg.RedisAddr = mr.Addr()
		a := New(cfg, logging.Discard())
		defer a.Close()

		store, err := a.Store(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, &model.Video{ID: "v1", Status: model.StatusUploaded}))
		assert.True(t, mr.Exists("video:v1"))
	})

	t.Run("dynamodb", func(t *testing.T) {
		t.Setenv("AWS_ACCESS_KEY_ID", "test")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
		cfg := testConfig()
		cfg.StoreBackend = config.StoreDynamo
		a := New(cfg, logging.Discard())
		defer a.Close()
		_, err := a.Store(ctx)
		require.NoError(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := testConfig()
		cfg.StoreBackend = "cassandra"
		_, err := New(cfg, logging.Discard()).Store(ctx)
		assert.Error(t, err)
	})
}

func TestObjectAndQueueBackends(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	ctx := context.Background()

	a := New(testConfig(), logging.Discard())
	defer a.Close()
	objects, err := a.Objects(ctx)
	require.NoError(t, err)
	assert.IsType(t, &s3storage.AWSStore{}, objects)

	for backend, want := range map[string]any{
		config.QueueSQS:   &queue.SQSPublisher{},
		config.QueueAsynq: &queue.AsynqPublisher{},
		config.QueueNSQ:   &queue.NSQPublisher{},
	} {
		cfg := testConfig()
		cfg.QueueBackend = backend
		b := New(cfg, logging.Discard())
		pub, err := b.Queue(ctx)
		require.NoError(t, err, backend)
		assert.IsType(t, want, pub, backend)
		b.Close()
	}

	cfg := testConfig()
	cfg.BlobBackend = "gcs"
	_, err = New(cfg, logging.Discard()).Objects(ctx)
	assert.Error(t, err)
}

func TestServerAssembles(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	a := New(testConfig(), logging.Discard())
	defer a.Close()

	srv, err := a.Server(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler())
	assert.NotNil(t, a.Metrics())
}
