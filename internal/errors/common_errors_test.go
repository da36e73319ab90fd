package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewMalformedSeries("line %d: bad date %q", 3, "Ticker"),
			expected: `[MALFORMED_SERIES] line 3: bad date "Ticker"`,
		},
		{
			name:     "with cause",
			err:      NewStorageError("write panel", fmt.Errorf("disk full")),
			expected: "[STORAGE] write panel: disk full",
		},
		{
			name:     "unknown join mode",
			err:      NewUnknownJoinMode("nearest"),
			expected: `[UNKNOWN_JOIN_MODE] unknown join mode "nearest"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_IsMatchesByType(t *testing.T) {
	err := fmt.Errorf("resample brent: %w", NewEmptyInput("series %s has no rows", "brent"))

	assert.True(t, errors.Is(err, ErrEmptyInput))
	assert.False(t, errors.Is(err, ErrMalformedSeries))
	assert.Equal(t, ErrTypeEmptyInput, TypeOf(err))
	assert.Equal(t, ErrorType(""), TypeOf(fmt.Errorf("plain")))
}

func TestAppError_UnwrapReachesCause(t *testing.T) {
	err := NewFileNotFound("data/cpi.csv", fs.ErrNotExist)

	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.Equal(t, "data/cpi.csv", err.Context["path"])
}

func TestAppError_WithContext(t *testing.T) {
	err := &AppError{Type: ErrTypeConfig, Message: "bad"}
	err.WithContext("field", "series").WithContext("index", 2)

	require.Len(t, err.Context, 2)
	assert.Equal(t, "series", err.Context["field"])
	assert.Equal(t, 2, err.Context["index"])
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "not found", err: NewFileNotFound("x.csv", nil), status: http.StatusNotFound, code: "FILE_NOT_FOUND"},
		{name: "no overlap", err: NewNoOverlap("nothing"), status: http.StatusConflict, code: "NO_OVERLAP"},
		{name: "malformed", err: NewMalformedSeries("bad"), status: http.StatusUnprocessableEntity, code: "MALFORMED_SERIES"},
		{name: "plain error", err: fmt.Errorf("boom"), status: http.StatusInternalServerError, code: "INTERNAL_SERVER_ERROR"},
		{name: "api error passes through", err: NotFoundError("series brent"), status: http.StatusNotFound, code: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromError(tt.err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.code, apiErr.ErrorCode)
		})
	}
}
