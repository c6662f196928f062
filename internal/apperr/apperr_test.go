package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrappedError(t *testing.T) {
	cause := errors.New("bucket unreachable")
	err := fmt.Errorf("upload: %w", Wrap(BadGateway, "storage write failed", cause))

	assert.Equal(t, BadGateway, KindOf(err))
	assert.True(t, Is(err, BadGateway))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "upload: storage write failed: bucket unreachable", err.Error())
}

func TestKindOfForeignErrorIsInternal(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, Internal))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Unauthorized:         http.StatusUnauthorized,
		Forbidden:            http.StatusForbidden,
		NotFound:             http.StatusNotFound,
		UnsupportedMediaType: http.StatusUnsupportedMediaType,
		PayloadTooLarge:      http.StatusRequestEntityTooLarge,
		BadGateway:           http.StatusBadGateway,
		ServiceUnavailable:   http.StatusServiceUnavailable,
		Conflict:             http.StatusConflict,
		BadRequest:           http.StatusBadRequest,
		Internal:             http.StatusInternalServerError,
	}
	for kind, status := range cases {
		require.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}
