package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VideoGate/internal/app"
	"github.com/dharsanguruparan/VideoGate/internal/apperr"
	"github.com/dharsanguruparan/VideoGate/internal/config"
	"github.com/dharsanguruparan/VideoGate/internal/logging"
	"github.com/dharsanguruparan/VideoGate/internal/model"
)

func memoryApp(t *testing.T) *app.App {
	t.Helper()
	a := app.New(&config.Config{StoreBackend: config.StoreMemory}, logging.Discard())
	store, err := a.Store(context.Background())
	require.NoError(t, err)
	now := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	for _, v := range []model.Video{
		{ID: "v1", Title: "one", Status: model.StatusUploaded, CreatedAt: now, UpdatedAt: now, OwnerID: "42"},
		{ID: "v2", Title: "two", Status: model.StatusUploaded, CreatedAt: now, UpdatedAt: now, OwnerID: "7"},
	} {
		v := v
		require.NoError(t, store.Put(context.Background(), &v))
	}
	return a
}

func run(t *testing.T, a *app.App, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(func() (*app.App, error) { return a, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusGet(t *testing.T) {
	a := memoryApp(t)
	out, err := run(t, a, "status", "get", "v1")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "v1", doc["id_video"])
	assert.Equal(t, "UPLOADED", doc["status"])

	_, err = run(t, a, "status", "get", "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestStatusSet(t *testing.T) {
	a := memoryApp(t)
	out, err := run(t, a, "status", "set", "v1", "PROCESSING")
	require.NoError(t, err)
	assert.Equal(t, "v1 -> PROCESSING\n", out)

	store, err := a.Store(context.Background())
	require.NoError(t, err)
	v, err := store.Get(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, v.Status)

	_, err = run(t, a, "status", "set", "ghost", "DONE")
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	missing, err := store.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStatusSetRejectsBlankStatus(t *testing.T) {
	a := memoryApp(t)
	for _, status := range []string{"", "   "} {
		_, err := run(t, a, "status", "set", "v1", status)
		require.Error(t, err)
		assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
	}

	store, err := a.Store(context.Background())
	require.NoError(t, err)
	v, err := store.Get(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUploaded, v.Status)
}

func TestList(t *testing.T) {
	a := memoryApp(t)
	out, err := run(t, a, "list", "--owner", "42")
	require.NoError(t, err)

	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "v1", list[0]["id_video"])

	_, err = run(t, a, "list")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if r.URL.Path != "/api/v1/auth/login" || creds["password"] != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer"}`))
	}))
	defer srv.Close()

	a := app.New(&config.Config{AuthBaseURL: srv.URL, StoreBackend: config.StoreMemory}, logging.Discard())
	out, err := run(t, a, "login", "--username", "iana", "--password", "s3cret")
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"tok","token_type":"bearer"}`, out)

	_, err = run(t, a, "login", "--username", "iana", "--password", "wrong")
	assert.ErrorContains(t, err, "invalid credentials")
}
