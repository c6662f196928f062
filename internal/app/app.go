// Package app builds the gateway's dependencies from configuration. Every
// backend is constructed lazily, at most once, and released by Close.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/dharsanguruparan/VideoGate/internal/api"
	"github.com/dharsanguruparan/VideoGate/internal/auth"
	"github.com/dharsanguruparan/VideoGate/internal/awsclient"
	"github.com/dharsanguruparan/VideoGate/internal/config"
	"github.com/dharsanguruparan/VideoGate/internal/database"
	"github.com/dharsanguruparan/VideoGate/internal/identity"
	"github.com/dharsanguruparan/VideoGate/internal/metrics"
	"github.com/dharsanguruparan/VideoGate/internal/queue"
	"github.com/dharsanguruparan/VideoGate/internal/repository"
	"github.com/dharsanguruparan/VideoGate/internal/s3storage"
	"github.com/dharsanguruparan/VideoGate/internal/storage"
	"github.com/dharsanguruparan/VideoGate/internal/videos"
)

// App owns the configured backends.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Recorder

	aws     *awsclient.Clients
	store   storage.VideoStore
	objects s3storage.ObjectStore
	queue   queue.Publisher
	closers []func()
}

// New prepares an App; nothing is dialed until a backend is requested.
func New(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger, metrics: metrics.New()}
}

// Metrics returns the shared recorder.
func (a *App) Metrics() *metrics.Recorder { return a.metrics }

// Close releases backends in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) awsClients(ctx context.Context) (*awsclient.Clients, error) {
	if a.aws != nil {
		return a.aws, nil
	}
	cfg, err := awsclient.Load(ctx, a.cfg.AWSRegion, a.cfg.AWSEndpointURL)
	if err != nil {
		return nil, err
	}
	a.aws = awsclient.NewClients(cfg)
	return a.aws, nil
}

func (a *App) redisClient() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	a.closers = append(a.closers, func() { _ = client.Close() })
	return client
}

// Store returns the configured VideoStore, instrumented with metrics.
func (a *App) Store(ctx context.Context) (storage.VideoStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	var (
		store storage.VideoStore
		err   error
	)
	switch a.cfg.StoreBackend {
	case config.StoreDynamo:
		clients, cerr := a.awsClients(ctx)
		if cerr != nil {
			return nil, cerr
		}
		store, err = storage.NewDynamoStore(clients.Dynamo, a.cfg.DynamoTable)
	case config.StorePostgres:
		pool, cerr := database.Connect(ctx, a.cfg.DatabaseURL)
		if cerr != nil {
			return nil, fmt.Errorf("connect database: %w", cerr)
		}
		a.closers = append(a.closers, pool.Close)
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		store = repository.NewVideoRepository(pool)
	case config.StoreRedis:
		rs := storage.NewRedisStore(a.redisClient())
		if err := rs.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		store = rs
	case config.StoreMemory:
		store = storage.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store backend %q", a.cfg.StoreBackend)
	}
	if err != nil {
		return nil, err
	}
	a.logger.Info("video store ready", "backend", a.cfg.StoreBackend)
	a.store = storage.Instrument(store, a.metrics)
	return a.store, nil
}

// Objects returns the configured object store.
func (a *App) Objects(ctx context.Context) (s3storage.ObjectStore, error) {
	if a.objects != nil {
		return a.objects, nil
	}
	switch a.cfg.BlobBackend {
	case config.BlobS3:
		clients, err := a.awsClients(ctx)
		if err != nil {
			return nil, err
		}
		a.objects = s3storage.NewAWSStore(clients.S3)
	case config.BlobMinio:
		ms, err := s3storage.NewMinioStore(s3storage.MinioOptions{
			Endpoint:  a.cfg.MinioEndpoint,
			AccessKey: a.cfg.MinioAccessKey,
			SecretKey: a.cfg.MinioSecretKey,
			UseSSL:    a.cfg.MinioUseSSL,
			Region:    a.cfg.AWSRegion,
		})
		if err != nil {
			return nil, err
		}
		if err := ms.EnsureBucket(ctx, a.cfg.S3Bucket); err != nil {
			return nil, err
		}
		a.objects = ms
	default:
		return nil, fmt.Errorf("unknown blob backend %q", a.cfg.BlobBackend)
	}
	a.logger.Info("object store ready", "backend", a.cfg.BlobBackend, "bucket", a.cfg.S3Bucket)
	return a.objects, nil
}

// Queue returns the configured publisher.
func (a *App) Queue(ctx context.Context) (queue.Publisher, error) {
	if a.queue != nil {
		return a.queue, nil
	}
	switch a.cfg.QueueBackend {
	case config.QueueSQS:
		clients, err := a.awsClients(ctx)
		if err != nil {
			return nil, err
		}
		p, err := queue.NewSQSPublisher(clients.SQS, a.cfg.SQSQueueURL)
		if err != nil {
			return nil, err
		}
		a.queue = p
	case config.QueueAsynq:
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.queue = queue.NewAsynqPublisher(client)
	case config.QueueNSQ:
		producer, err := queue.NewNSQProducer(a.cfg.NSQDAddress)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, producer.Stop)
		p, err := queue.NewNSQPublisher(producer, a.cfg.NSQTopic)
		if err != nil {
			return nil, err
		}
		a.queue = p
	default:
		return nil, fmt.Errorf("unknown queue backend %q", a.cfg.QueueBackend)
	}
	a.logger.Info("queue ready", "backend", a.cfg.QueueBackend)
	return a.queue, nil
}

// Videos builds the upload workflow on top of every backend.
func (a *App) Videos(ctx context.Context) (*videos.Service, error) {
	store, err := a.Store(ctx)
	if err != nil {
		return nil, err
	}
	objects, err := a.Objects(ctx)
	if err != nil {
		return nil, err
	}
	pub, err := a.Queue(ctx)
	if err != nil {
		return nil, err
	}
	return videos.New(videos.Options{
		Store:          store,
		Objects:        objects,
		Queue:          pub,
		Bucket:         a.cfg.S3Bucket,
		MaxUploadBytes: a.cfg.MaxUploadBytes(),
		Observer:       a.metrics,
		Logger:         a.logger,
	})
}

// Identity builds the auth-service client.
func (a *App) Identity() *identity.Client {
	client := identity.New(identity.Options{
		BaseURL:  a.cfg.AuthBaseURL,
		MePath:   a.cfg.AuthMePath,
		Timeout:  a.cfg.AuthTimeout,
		TTL:      a.cfg.AuthCacheTTL,
		Logger:   a.logger,
		Observer: a.metrics,
	})
	a.closers = append(a.closers, client.Close)
	return client
}

// Server assembles the HTTP server.
func (a *App) Server(ctx context.Context) (*api.Server, error) {
	svc, err := a.Videos(ctx)
	if err != nil {
		return nil, err
	}
	return api.New(api.Options{
		Address:        a.cfg.Address,
		Videos:         svc,
		Gate:           auth.NewGate(a.Identity(), a.logger),
		UploadScopes:   a.cfg.UploadScopes,
		ReadScopes:     a.cfg.ReadScopes,
		MaxUploadBytes: a.cfg.MaxUploadBytes(),
		Metrics:        a.metrics,
		Logger:         a.logger,
	}), nil
}
