// Package api exposes the upload workflow over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/dharsanguruparan/VideoGate/internal/apperr"
	"github.com/dharsanguruparan/VideoGate/internal/auth"
	"github.com/dharsanguruparan/VideoGate/internal/logging"
	"github.com/dharsanguruparan/VideoGate/internal/metrics"
	"github.com/dharsanguruparan/VideoGate/internal/videos"
)

const (
	// formOverhead is allowed on top of the upload limit for multipart
	// framing and the text fields.
	formOverhead = 1 << 20
	// maxFieldBytes bounds a single text field.
	maxFieldBytes = 64 << 10
)

// Options wires a Server.
type Options struct {
	Address        string
	Videos         *videos.Service
	Gate           *auth.Gate
	UploadScopes   []string
	ReadScopes     []string
	MaxUploadBytes int64
	Metrics        *metrics.Recorder
	Logger         *slog.Logger
}

// Server exposes HTTP endpoints for uploads, status and downloads.
type Server struct {
	opts    Options
	logger  *slog.Logger
	handler http.Handler
	server  *http.Server
	once    sync.Once
}

// New constructs a Server and its route table.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{opts: opts, logger: logger}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	upload := s.opts.Gate.Middleware(s.opts.UploadScopes, s.writeError)
	read := s.opts.Gate.Middleware(s.opts.ReadScopes, s.writeError)

	s.handle(mux, "GET /health", http.HandlerFunc(s.handleHealth))
	s.handle(mux, "POST /videos/upload", upload(http.HandlerFunc(s.handleUpload)))
	s.handle(mux, "GET /videos", read(http.HandlerFunc(s.handleList)))
	s.handle(mux, "GET /videos/{id}", read(http.HandlerFunc(s.handleStatus)))
	s.handle(mux, "GET /videos/download/{id}", read(http.HandlerFunc(s.handleDownload)))
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}
	return corsMiddleware(requestIDMiddleware(s.logger, loggingMiddleware(s.logger, mux)))
}

// handle registers h and records its metrics under the route pattern.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.Handler) {
	if s.opts.Metrics == nil {
		mux.Handle(pattern, h)
		return
	}
	_, path, _ := cutMethod(pattern)
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		s.opts.Metrics.ObserveRequest(r.Method, path, rec.status, time.Since(start))
	}))
}

// Run starts the HTTP server and blocks until the context is cancelled.
// ReadHeaderTimeout bounds slow-header clients; bodies are left unbounded in
// time because uploads can legitimately take minutes.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.opts.Address,
			Handler:           s.handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	// The goroutine blocks on ctx.Done(); once the context is cancelled it
	// asks the server to stop accepting connections and drain in-flight
	// requests, which makes ListenAndServe return ErrServerClosed.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.logger.Info("api listening", "address", s.opts.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload streams the multipart body one part at a time. Text fields
// are read as they arrive. When the file part follows both text fields it is
// handed to the upload workflow without buffering, so an unsupported content
// type is rejected before any file bytes are read. A file part that arrives
// earlier is buffered up to the upload limit (plus one byte, so the workflow
// can still tell it is too large) until the remaining fields are known.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+formOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.BadRequest, "expecting multipart form", err))
		return
	}

	in := videos.UploadInput{Owner: user}
	var sawTitle, sawAuthor, sawFile bool
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Draining a rejected or oversized file can hit the body cap;
			// the workflow still decides what the caller sees.
			if sawFile {
				break
			}
			s.writeError(w, r, formError(err))
			return
		}
		switch part.FormName() {
		case "titulo", "autor":
			value, err := readField(part)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			if part.FormName() == "titulo" {
				in.Title, sawTitle = value, true
			} else {
				in.Author, sawAuthor = value, true
			}
		case "file":
			if sawFile {
				continue
			}
			sawFile = true
			in.Filename = part.FileName()
			in.ContentType = part.Header.Get("Content-Type")
			if sawTitle && sawAuthor {
				in.Body = part
				s.finishUpload(w, r, in)
				return
			}
			if !videos.SupportedContentType(in.ContentType) {
				in.Body = http.NoBody
				continue
			}
			data, err := io.ReadAll(io.LimitReader(part, s.opts.MaxUploadBytes+1))
			if err != nil {
				s.writeError(w, r, formError(err))
				return
			}
			in.Body = bytes.NewReader(data)
		}
	}
	if !sawFile {
		s.writeError(w, r, apperr.New(apperr.BadRequest, "file is required"))
		return
	}
	s.finishUpload(w, r, in)
}

func (s *Server) finishUpload(w http.ResponseWriter, r *http.Request, in videos.UploadInput) {
	res, err := s.opts.Videos.Upload(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, res)
}

// readField reads a text part, refusing anything longer than maxFieldBytes.
func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", formError(err)
	}
	if len(data) > maxFieldBytes {
		return "", apperr.New(apperr.BadRequest, fmt.Sprintf("form field %s is too large", part.FormName()))
	}
	return string(data), nil
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperr.Wrap(apperr.PayloadTooLarge, "file exceeds the upload limit", err)
	}
	return apperr.Wrap(apperr.BadRequest, "malformed multipart form", err)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	video, err := s.opts.Videos.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, video)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	res, err := s.opts.Videos.Download(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	list, err := s.opts.Videos.List(r.Context(), user.ID())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// writeError maps err to its status code and a {"detail": ...} body.
// Internal errors never leak their message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()
	detail := "internal server error"
	var appErr *apperr.Error
	if kind != apperr.Internal && errors.As(err, &appErr) {
		detail = appErr.Message
	}
	logger := logging.FromContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "kind", kind.String(), "status", status, "error", err)
	} else {
		logger.Info("request rejected", "kind", kind.String(), "status", status, "error", err)
	}
	if kind == apperr.Unauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	respondJSON(w, status, map[string]string{"detail": detail})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}
