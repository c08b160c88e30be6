package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", Unauthenticated(), http.StatusUnauthorized},
		{"forbidden", Forbidden("nope"), http.StatusForbidden},
		{"not found", NotFound("hub", "h1"), http.StatusNotFound},
		{"bad request", BadRequest("bad"), http.StatusBadRequest},
		{"quota", QuotaExceeded("full"), http.StatusConflict},
		{"conflict", Conflict("taken"), http.StatusConflict},
		{"wrapped", fmt.Errorf("deleting upload: %w", Forbidden("nope")), http.StatusForbidden},
		{"unknown", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, `hub "h1" not found`, Message(NotFound("hub", "h1")))
	assert.Equal(t, "Internal server error", Message(errors.New("connection refused")))
}
