package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutAPI is the subset of *s3.Client used for uploads.
type PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// PresignAPI is the subset of *s3.PresignClient used for downloads.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// AWSStore talks to S3 through aws-sdk-go-v2.
type AWSStore struct {
	client    PutAPI
	presigner PresignAPI
}

// NewAWSStore builds a store from an S3 client, deriving its presigner.
func NewAWSStore(client *s3.Client) *AWSStore {
	return &AWSStore{client: client, presigner: s3.NewPresignClient(client)}
}

// NewAWSStoreWith is NewAWSStore with explicit collaborators.
func NewAWSStoreWith(client PutAPI, presigner PresignAPI) *AWSStore {
	return &AWSStore{client: client, presigner: presigner}
}

// Put uploads data in a single PutObject call.
func (s *AWSStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PresignGet returns a GET URL valid for ttl.
func (s *AWSStore) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign object %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}
