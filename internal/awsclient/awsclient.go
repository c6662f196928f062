// Package awsclient loads the shared AWS configuration and builds the
// service clients the gateway uses.
package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Load resolves credentials through the default chain. A non-empty endpoint
// overrides every service endpoint (LocalStack and similar).
func Load(ctx context.Context, region, endpoint string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}
	return cfg, nil
}

// Clients bundles the service clients built from one aws.Config.
type Clients struct {
	S3     *s3.Client
	Dynamo *dynamodb.Client
	SQS    *sqs.Client
}

// NewClients builds all clients. S3 switches to path-style addressing when a
// custom endpoint is configured since emulators rarely serve virtual hosts.
func NewClients(cfg aws.Config) *Clients {
	custom := cfg.BaseEndpoint != nil && *cfg.BaseEndpoint != ""
	return &Clients{
		S3: s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = custom
		}),
		Dynamo: dynamodb.NewFromConfig(cfg),
		SQS:    sqs.NewFromConfig(cfg),
	}
}
