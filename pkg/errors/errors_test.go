package errors

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: NewNotFoundError("user", "user not found"), want: http.StatusNotFound},
		{name: "wrapped not found", err: fmt.Errorf("lookup: %w", NewNotFoundError("user", "")), want: http.StatusNotFound},
		{name: "validation", err: NewValidationError("id", "must be a number"), want: http.StatusBadRequest},
		{name: "internal", err: NewInternalError("boom", io.EOF), want: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("plain"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestNotFoundError_Message(t *testing.T) {
	assert.Equal(t, "user not found", NewNotFoundError("user", "").Error())
	assert.Equal(t, "no such user", NewNotFoundError("user", "no such user").Error())
}

func TestValidationError_Message(t *testing.T) {
	assert.Equal(t, "validation failed: id - must be a number", NewValidationError("id", "must be a number").Error())
	assert.Equal(t, "validation failed: bad input", NewValidationError("", "bad input").Error())
}

func TestTransportError_Unwrap(t *testing.T) {
	err := fmt.Errorf("get user: %w", NewTransportError(http.MethodGet, "http://localhost:1/users/1", io.ErrUnexpectedEOF))

	assert.True(t, IsTransport(err))
	assert.False(t, IsDecode(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "GET http://localhost:1/users/1")
}

func TestDecodeError_Unwrap(t *testing.T) {
	err := NewDecodeError(http.StatusNotFound, nil, io.EOF)

	assert.True(t, IsDecode(err))
	assert.False(t, IsNotFound(err))
	assert.ErrorIs(t, err, io.EOF)
	assert.Contains(t, err.Error(), "status 404")
}
