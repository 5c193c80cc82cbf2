package domainerrors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs(t *testing.T) {
	err := New(CodeNotFound, "employee not found")
	assert.True(t, Is(err, CodeNotFound))
	assert.False(t, Is(err, CodeInternal))
	assert.False(t, Is(fmt.Errorf("plain"), CodeNotFound))
}

func TestIsWrapped(t *testing.T) {
	err := fmt.Errorf("process scan: %w", New(CodeUnavailable, "store unreachable"))
	assert.True(t, Is(err, CodeUnavailable))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(CodeBadRequest))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(CodeConflict))
	assert.Equal(t, http.StatusServiceUnavailable, ToHTTPStatus(CodeUnavailable))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(CodeInternal))
}
