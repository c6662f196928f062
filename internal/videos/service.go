// Package videos implements the upload workflow: persist the object, record
// its metadata, announce it to the processing queue, and later hand out
// status and download links.
package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/VideoGate/internal/apperr"
	"github.com/dharsanguruparan/VideoGate/internal/identity"
	"github.com/dharsanguruparan/VideoGate/internal/logging"
	"github.com/dharsanguruparan/VideoGate/internal/model"
	"github.com/dharsanguruparan/VideoGate/internal/queue"
	"github.com/dharsanguruparan/VideoGate/internal/s3storage"
	"github.com/dharsanguruparan/VideoGate/internal/storage"
)

const (
	allowedMIMEPrefix = "video/"
	defaultFilename   = "upload.bin"
	maxTitleLen       = 200
	maxAuthorLen      = 100
)

// Observer receives upload and dependency outcomes. *metrics.Recorder
// satisfies it.
type Observer interface {
	AddUploadBytes(n int)
	ObjectOp(op string, err error)
	QueueOp(op string, err error)
}

type nopObserver struct{}

func (nopObserver) AddUploadBytes(int)     {}
func (nopObserver) ObjectOp(string, error) {}
func (nopObserver) QueueOp(string, error)  {}

// Options wires a Service.
type Options struct {
	Store          storage.VideoStore
	Objects        s3storage.ObjectStore
	Queue          queue.Publisher
	Bucket         string
	MaxUploadBytes int64
	Observer       Observer
	Logger         *slog.Logger
	Now            func() time.Time
	NewID          func() string
}

// Service runs the upload, status and download operations.
type Service struct {
	store    storage.VideoStore
	objects  s3storage.ObjectStore
	queue    queue.Publisher
	bucket   string
	maxBytes int64
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// New validates opts and builds a Service.
func New(opts Options) (*Service, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("videos: store is required")
	case opts.Objects == nil:
		return nil, errors.New("videos: object store is required")
	case opts.Queue == nil:
		return nil, errors.New("videos: queue publisher is required")
	case opts.Bucket == "":
		return nil, errors.New("videos: bucket is required")
	case opts.MaxUploadBytes < 0:
		return nil, errors.New("videos: max upload bytes cannot be negative")
	}
	s := &Service{
		store:    opts.Store,
		objects:  opts.Objects,
		queue:    opts.Queue,
		bucket:   opts.Bucket,
		maxBytes: opts.MaxUploadBytes,
		observer: opts.Observer,
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// UploadInput is one multipart upload.
type UploadInput struct {
	Title       string
	Author      string
	Filename    string
	ContentType string
	Body        io.Reader
	Owner       identity.Identity
}

// Links point at the follow-up routes for a video.
type Links struct {
	Status   string `json:"status"`
	Download string `json:"download"`
}

// UploadResult is returned to the client with 202 Accepted.
type UploadResult struct {
	ID     string       `json:"id_video"`
	Title  string       `json:"titulo"`
	Author string       `json:"autor"`
	Status model.Status `json:"status"`
	S3Key  string       `json:"s3_key"`
	Links  Links        `json:"links"`
}

// DownloadResult carries the presigned link, returned unmodified.
type DownloadResult struct {
	PresignedURL string `json:"presigned_url"`
}

// Upload stores the object, persists the record and publishes it. There is
// no rollback: a failure after the object write leaves the object (and,
// after the store write, the record) in place.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	logger := logging.FromContext(ctx, s.logger)
	id := s.newID()

	title, author, err := validateText(in.Title, in.Author)
	if err != nil {
		return nil, err
	}
	if !SupportedContentType(in.ContentType) {
		return nil, apperr.New(apperr.UnsupportedMediaType, "file type not supported (expected video/*)")
	}

	data, err := s.readBody(in.Body)
	if err != nil {
		return nil, err
	}

	key := ObjectKey(id, in.Filename)
	err = s.objects.Put(ctx, s.bucket, key, data, in.ContentType)
	s.observer.ObjectOp("put", err)
	if err != nil {
		logger.Error("object upload failed", "video_id", id, "key", key, "error", err)
		return nil, apperr.Wrap(apperr.BadGateway, fmt.Sprintf("storage failure: %v", err), err)
	}

	now := s.now()
	video := &model.Video{
		ID:            id,
		Title:         title,
		Author:        author,
		Status:        model.StatusUploaded,
		FilePath:      s3storage.Locator(s.bucket, key),
		CreatedAt:     now,
		UpdatedAt:     now,
		OwnerID:       in.Owner.ID(),
		OwnerUsername: in.Owner.Username(),
		OwnerEmail:    in.Owner.Email(),
	}
	if err := s.store.Put(ctx, video); err != nil {
		logger.Error("metadata write failed", "video_id", id, "error", err)
		return nil, apperr.Wrap(apperr.Internal, "failed to save video metadata", err)
	}

	err = s.queue.Publish(ctx, video)
	s.observer.QueueOp("send", err)
	if err != nil {
		logger.Error("queue publish failed", "video_id", id, "error", err)
		return nil, apperr.Wrap(apperr.Internal, "failed to enqueue video for processing", err)
	}

	logger.Info("video uploaded", "video_id", id, "bytes", len(data), "owner_id", video.OwnerID)
	return &UploadResult{
		ID:     id,
		Title:  title,
		Author: author,
		Status: video.Status,
		S3Key:  key,
		Links: Links{
			Status:   "/videos/" + id,
			Download: "/videos/download/" + id,
		},
	}, nil
}

// readBody reads at most one byte past the limit so oversized uploads are
// detected without buffering them whole.
// SupportedContentType reports whether an upload's declared content type is
// accepted.
func SupportedContentType(contentType string) bool {
	return strings.HasPrefix(contentType, allowedMIMEPrefix)
}

func (s *Service) readBody(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, apperr.New(apperr.BadRequest, "file is required")
	}
	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	s.observer.AddUploadBytes(len(data))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, s.tooLarge()
		}
		return nil, apperr.Wrap(apperr.BadRequest, "failed to read upload", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, s.tooLarge()
	}
	return data, nil
}

func (s *Service) tooLarge() error {
	return apperr.New(apperr.PayloadTooLarge, fmt.Sprintf("file exceeds the %dMB limit", s.maxBytes/(1024*1024)))
}

func validateText(title, author string) (string, string, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	switch {
	case title == "":
		return "", "", apperr.New(apperr.BadRequest, "titulo is required")
	case utf8.RuneCountInString(title) > maxTitleLen:
		return "", "", apperr.New(apperr.BadRequest, fmt.Sprintf("titulo exceeds %d characters", maxTitleLen))
	case author == "":
		return "", "", apperr.New(apperr.BadRequest, "autor is required")
	case utf8.RuneCountInString(author) > maxAuthorLen:
		return "", "", apperr.New(apperr.BadRequest, fmt.Sprintf("autor exceeds %d characters", maxAuthorLen))
	}
	return title, author, nil
}

// ObjectKey builds videos/{id}/{name}, keeping only the base name of the
// client-supplied filename.
func ObjectKey(id, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || strings.TrimSpace(name) == "" {
		name = defaultFilename
	}
	return "videos/" + id + "/" + name
}

// Status returns the stored record.
func (s *Service) Status(ctx context.Context, id string) (*model.Video, error) {
	video, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to read video", err)
	}
	if video == nil {
		return nil, apperr.New(apperr.NotFound, "video not found")
	}
	return video, nil
}

// Download presigns the processed output of a video.
func (s *Service) Download(ctx context.Context, id string) (*DownloadResult, error) {
	video, err := s.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	locator := video.OutputLocator()
	if locator == "" {
		return nil, apperr.New(apperr.Conflict, "processing not finished or zip unavailable")
	}
	bucket, key, err := s3storage.ParseLocator(locator)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, "invalid zip_path", err)
	}
	url, err := s.objects.PresignGet(ctx, bucket, key, s3storage.DownloadExpiry)
	s.observer.ObjectOp("sign", err)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to sign download url", err)
	}
	return &DownloadResult{PresignedURL: url}, nil
}

// List returns every video owned by ownerID.
func (s *Service) List(ctx context.Context, ownerID string) ([]model.Video, error) {
	if ownerID == "" {
		return nil, apperr.New(apperr.Forbidden, "identity has no id")
	}
	videos, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list videos", err)
	}
	return videos, nil
}

// SetStatus overwrites the status of an existing video.
func (s *Service) SetStatus(ctx context.Context, id string, status model.Status) error {
	return UpdateStatus(ctx, s.store, id, status)
}

// UpdateStatus is SetStatus for callers that only hold a store, such as the
// operator CLI, which has no use for object storage or a queue. The status is
// trimmed and must not be blank; a missing video is reported as NotFound and
// never created.
func UpdateStatus(ctx context.Context, store storage.VideoStore, id string, status model.Status) error {
	status = model.Status(strings.TrimSpace(string(status)))
	if status == "" {
		return apperr.New(apperr.BadRequest, "status is required")
	}
	err := store.UpdateStatus(ctx, id, status)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, "video not found", err)
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to update status", err)
	}
	return nil
}
