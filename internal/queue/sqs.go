package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/dharsanguruparan/VideoGate/internal/model"
)

// SQSAPI is the subset of *sqs.Client the publisher calls.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends records to a single queue URL.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
}

// NewSQSPublisher requires a queue URL.
func NewSQSPublisher(client SQSAPI, queueURL string) (*SQSPublisher, error) {
	if queueURL == "" {
		return nil, errors.New("sqs queue url cannot be empty")
	}
	return &SQSPublisher{client: client, queueURL: queueURL}, nil
}

// Publish sends the record JSON as the message body.
func (p *SQSPublisher) Publish(ctx context.Context, video *model.Video) error {
	body, err := Encode(video)
	if err != nil {
		return err
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send message for %s: %w", video.ID, err)
	}
	return nil
}
