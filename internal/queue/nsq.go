package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/nsqio/go-nsq"

	"github.com/dharsanguruparan/VideoGate/internal/model"
)

// NSQProducer is satisfied by *nsq.Producer.
type NSQProducer interface {
	Publish(topic string, body []byte) error
}

// NSQPublisher publishes records to an nsqd topic.
type NSQPublisher struct {
	producer NSQProducer
	topic    string
}

// NewNSQProducer connects a producer to nsqd at addr.
func NewNSQProducer(addr string) (*nsq.Producer, error) {
	producer, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("create nsq producer: %w", err)
	}
	producer.SetLoggerLevel(nsq.LogLevelWarning)
	return producer, nil
}

// NewNSQPublisher requires a topic.
func NewNSQPublisher(producer NSQProducer, topic string) (*NSQPublisher, error) {
	if topic == "" {
		return nil, errors.New("nsq topic cannot be empty")
	}
	return &NSQPublisher{producer: producer, topic: topic}, nil
}

// Publish is synchronous; nsq.Producer has no context support so ctx is
// only checked before sending.
func (p *NSQPublisher) Publish(ctx context.Context, video *model.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := Encode(video)
	if err != nil {
		return err
	}
	if err := p.producer.Publish(p.topic, body); err != nil {
		return fmt.Errorf("publish %s to %s: %w", video.ID, p.topic, err)
	}
	return nil
}
