// Package config centralizes how VideoGate reads its environment and exposes
// it as strongly typed Go values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend selectors. Each *_BACKEND variable names one of these values; the
// constants are untyped strings so they compare directly against viper output.
const (
	StoreDynamo   = "dynamodb"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"

	BlobS3    = "s3"
	BlobMinio = "minio"

	QueueSQS   = "sqs"
	QueueAsynq = "asynq"
	QueueNSQ   = "nsq"
)

// Config represents runtime configuration for the gateway. Fields are grouped
// by the component that consumes them; only the groups for the selected
// backends need to be filled in, which Validate checks.
type Config struct {
	Address string

	AuthBaseURL  string
	AuthMePath   string
	AuthTimeout  time.Duration
	AuthCacheTTL time.Duration
	UploadScopes []string
	ReadScopes   []string

	AWSRegion      string
	AWSEndpointURL string
	S3Bucket       string
	DynamoTable    string
	SQSQueueURL    string
	MaxUploadMB    int64

	StoreBackend string
	BlobBackend  string
	QueueBackend string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	NSQDAddress string
	NSQTopic    string

	LogLevel  string
	LogFormat string
}

const (
	// Durations are kept as plain seconds here because the environment
	// carries integers; Load multiplies by time.Second.
	defaultAddress      = ":8080"
	defaultAuthMePath   = "/api/v1/auth/me"
	defaultAuthTimeout  = 5
	defaultAuthCacheTTL = 30
	defaultRegion       = "us-east-1"
	defaultBucket       = "video-service-bucket"
	defaultTable        = "videos"
	defaultMaxUploadMB  = 200
	defaultRedisAddr    = "localhost:6379"
	defaultNSQTopic     = "video-processing"
)

// Load reads configuration from the environment (and an optional dotenv file
// named by VIDEOGATE_CONFIG_FILE), falling back to defaults.
func Load() (*Config, error) {
	// A private viper instance keeps tests from leaking settings into each
	// other through the package-level singleton. AutomaticEnv makes every Get
	// consult the environment first, so the file only fills gaps.
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if path := os.Getenv("VIDEOGATE_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		// The file uses KEY=value lines, the same shape as the environment.
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Address:        v.GetString("VIDEOGATE_ADDRESS"),
		AuthBaseURL:    strings.TrimRight(v.GetString("AUTH_BASE_URL"), "/"),
		AuthMePath:     v.GetString("AUTH_ME_PATH"),
		AuthTimeout:    time.Duration(v.GetInt("AUTH_TIMEOUT_SECONDS")) * time.Second,
		AuthCacheTTL:   time.Duration(v.GetInt("AUTH_CACHE_TTL_SECONDS")) * time.Second,
		UploadScopes:   strings.Fields(v.GetString("AUTH_UPLOAD_SCOPES")),
		ReadScopes:     strings.Fields(v.GetString("AUTH_READ_SCOPES")),
		AWSRegion:      v.GetString("AWS_REGION"),
		AWSEndpointURL: v.GetString("AWS_ENDPOINT_URL"),
		S3Bucket:       v.GetString("S3_BUCKET"),
		DynamoTable:    v.GetString("DDB_TABLE"),
		SQSQueueURL:    v.GetString("SQS_QUEUE_URL"),
		MaxUploadMB:    v.GetInt64("MAX_UPLOAD_MB"),
		StoreBackend:   strings.ToLower(v.GetString("STORE_BACKEND")),
		BlobBackend:    strings.ToLower(v.GetString("BLOB_BACKEND")),
		QueueBackend:   strings.ToLower(v.GetString("QUEUE_BACKEND")),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		MinioEndpoint:  v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey: v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey: v.GetString("MINIO_SECRET_KEY"),
		MinioUseSSL:    v.GetBool("MINIO_USE_SSL"),
		NSQDAddress:    v.GetString("NSQD_ADDRESS"),
		NSQTopic:       v.GetString("NSQ_TOPIC"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = defaultAuthTimeout * time.Second
	}
	if cfg.AuthCacheTTL <= 0 {
		cfg.AuthCacheTTL = defaultAuthCacheTTL * time.Second
	}
	// MAX_UPLOAD_MB=0 is honored: it rejects every non-empty upload.
	if cfg.MaxUploadMB < 0 {
		cfg.MaxUploadMB = defaultMaxUploadMB
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("VIDEOGATE_ADDRESS", defaultAddress)
	v.SetDefault("AUTH_ME_PATH", defaultAuthMePath)
	v.SetDefault("AUTH_TIMEOUT_SECONDS", defaultAuthTimeout)
	v.SetDefault("AUTH_CACHE_TTL_SECONDS", defaultAuthCacheTTL)
	v.SetDefault("AWS_REGION", defaultRegion)
	v.SetDefault("S3_BUCKET", defaultBucket)
	v.SetDefault("DDB_TABLE", defaultTable)
	v.SetDefault("MAX_UPLOAD_MB", defaultMaxUploadMB)
	v.SetDefault("STORE_BACKEND", StoreDynamo)
	v.SetDefault("BLOB_BACKEND", BlobS3)
	v.SetDefault("QUEUE_BACKEND", QueueSQS)
	v.SetDefault("REDIS_ADDR", defaultRedisAddr)
	v.SetDefault("NSQ_TOPIC", defaultNSQTopic)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// MaxUploadBytes converts the configured megabyte limit to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}

// Validate reports missing or contradictory settings. Every problem is
// collected and returned together through errors.Join, so an operator sees the
// whole list after one failed start instead of fixing them one at a time.
func (c *Config) Validate() error {
	var errs []error
	if c.AuthBaseURL == "" {
		errs = append(errs, errors.New("AUTH_BASE_URL is required"))
	}
	switch c.StoreBackend {
	case StoreDynamo, StoreMemory, StoreRedis:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	switch c.BlobBackend {
	case BlobS3:
	case BlobMinio:
		if c.MinioEndpoint == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT is required for the minio blob backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend))
	}
	switch c.QueueBackend {
	case QueueSQS, QueueAsynq:
	case QueueNSQ:
		if c.NSQDAddress == "" {
			errs = append(errs, errors.New("NSQD_ADDRESS is required for the nsq queue"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend))
	}
	return errors.Join(errs...)
}
