// Package queue hands freshly uploaded video records to the processing
// pipeline. The message body is always the record's JSON document.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dharsanguruparan/VideoGate/internal/model"
)

// Publisher sends one message per uploaded video.
type Publisher interface {
	Publish(ctx context.Context, video *model.Video) error
}

// Encode serializes the record the way every backend sends it.
func Encode(video *model.Video) ([]byte, error) {
	data, err := json.Marshal(video)
	if err != nil {
		return nil, fmt.Errorf("marshal video %s: %w", video.ID, err)
	}
	return data, nil
}
