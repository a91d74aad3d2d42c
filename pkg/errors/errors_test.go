package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("parsing limit: %w", ErrInvalidInput), http.StatusBadRequest},
		{"missing artifact", ErrArtifactNotFound, http.StatusNotFound},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"not loaded", ErrIndexNotLoaded, http.StatusServiceUnavailable},
		{"corrupt", fmt.Errorf("loading: %w", ErrCorruptIndex), http.StatusServiceUnavailable},
		{"version", ErrIncompatibleFormat, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"app error", New(ErrInternal, http.StatusTeapot, "short and stout"), http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "limit %d out of range", -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid input: limit -1 out of range", err.Error())
}
