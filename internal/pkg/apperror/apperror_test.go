package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	notFound := New(http.StatusNotFound, "thing not found")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", notFound, http.StatusNotFound},
		{"wrapped app error", fmt.Errorf("lookup: %w", notFound), http.StatusNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsValidation(New(http.StatusBadRequest, "bad")))
	assert.False(t, IsValidation(New(http.StatusNotFound, "missing")))
	assert.True(t, IsConflict(New(http.StatusConflict, "taken")))
	assert.False(t, IsConflict(errors.New("boom")))

	inner := errors.New("db down")
	wrapped := Wrap(inner, http.StatusServiceUnavailable, "try later")
	assert.ErrorIs(t, wrapped, inner)
	assert.Equal(t, "try later", wrapped.Error())
}
