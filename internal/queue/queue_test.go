package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VideoGate/internal/model"
)

func testVideo() *model.Video {
	now := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	return &model.Video{
		ID:        "v1",
		Title:     "Meu vídeo",
		Author:    "Iana",
		Status:    model.StatusUploaded,
		FilePath:  "s3://bucket/videos/v1/clip.mp4",
		CreatedAt: now,
		UpdatedAt: now,
		OwnerID:   "42",
	}
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	return doc
}

type fakeSQS struct {
	in  *sqs.SendMessageInput
	err error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSPublisher(t *testing.T) {
	fake := &fakeSQS{}
	p, err := NewSQSPublisher(fake, "https://sqs.us-east-1.amazonaws.com/123/videos")
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), testVideo()))
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123/videos", aws.ToString(fake.in.QueueUrl))

	doc := decode(t, []byte(aws.ToString(fake.in.MessageBody)))
	assert.Equal(t, "v1", doc["id_video"])
	assert.Equal(t, "UPLOADED", doc["status"])
	assert.Equal(t, "s3://bucket/videos/v1/clip.mp4", doc["file_path"])
	assert.Equal(t, "42", doc["id"])

	fake.err = errors.New("queue does not exist")
	err = p.Publish(context.Background(), testVideo())
	assert.ErrorIs(t, err, fake.err)
}

func TestSQSPublisherRequiresURL(t *testing.T) {
	_, err := NewSQSPublisher(&fakeSQS{}, "")
	assert.Error(t, err)
}

type fakeEnqueuer struct {
	task *asynq.Task
	opts []asynq.Option
	err  error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.task = task
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "v1", Type: task.Type()}, nil
}

func TestAsynqPublisher(t *testing.T) {
	fake := &fakeEnqueuer{}
	p := NewAsynqPublisher(fake)

	require.NoError(t, p.Publish(context.Background(), testVideo()))
	assert.Equal(t, ProcessVideoTask, fake.task.Type())
	assert.Equal(t, "v1", decode(t, fake.task.Payload())["id_video"])

	var taskID string
	for _, o := range fake.opts {
		if o.Type() == asynq.TaskIDOpt {
			taskID, _ = o.Value().(string)
		}
	}
	assert.Equal(t, "v1", taskID)

	fake.err = asynq.ErrTaskIDConflict
	assert.ErrorIs(t, p.Publish(context.Background(), testVideo()), asynq.ErrTaskIDConflict)
}

type fakeProducer struct {
	topic string
	body  []byte
	calls int
}

func (f *fakeProducer) Publish(topic string, body []byte) error {
	f.calls++
	f.topic = topic
	f.body = body
	return nil
}

func TestNSQPublisher(t *testing.T) {
	fake := &fakeProducer{}
	p, err := NewNSQPublisher(fake, "video-processing")
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), testVideo()))
	assert.Equal(t, "video-processing", fake.topic)
	assert.Equal(t, "Meu vídeo", decode(t, fake.body)["titulo"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, testVideo()), context.Canceled)
	assert.Equal(t, 1, fake.calls)

	_, err = NewNSQPublisher(fake, "")
	assert.Error(t, err)
}
