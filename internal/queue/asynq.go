package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/VideoGate/internal/model"
)

// ProcessVideoTask is enqueued each time a video is uploaded.
const ProcessVideoTask = "video:process"

// Enqueuer is satisfied by *asynq.Client. Go interfaces are satisfied
// implicitly, so tests can pass a fake without asynq knowing about it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqPublisher enqueues processing tasks on a Redis-backed asynq queue.
type AsynqPublisher struct {
	client Enqueuer
}

// NewAsynqPublisher wraps an asynq client.
func NewAsynqPublisher(client Enqueuer) *AsynqPublisher {
	return &AsynqPublisher{client: client}
}

// Publish enqueues a ProcessVideoTask carrying the record JSON. The task id
// is the video id so a repeated publish is rejected by asynq.
func (p *AsynqPublisher) Publish(ctx context.Context, video *model.Video) error {
	data, err := Encode(video)
	if err != nil {
		return err
	}
	// asynq stores the payload as opaque bytes; the consumer decodes the same
	// JSON the other backends send.
	task := asynq.NewTask(ProcessVideoTask, data)
	if _, err := p.client.EnqueueContext(ctx, task, asynq.MaxRetry(5), asynq.TaskID(video.ID)); err != nil {
		return fmt.Errorf("enqueue process task: %w", err)
	}
	return nil
}
