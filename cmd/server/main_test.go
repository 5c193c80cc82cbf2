package main

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"timeroom/internal/pipeline"
)

func TestNewDebouncer(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	window := 5 * time.Second

	t.Run("redis unreachable falls back to memory", func(t *testing.T) {
		d := newDebouncer(nil, errors.New("dial tcp: connection refused"), window, log)
		assert.IsType(t, &pipeline.MemoryDebouncer{}, d)
	})

	t.Run("redis unconfigured uses memory", func(t *testing.T) {
		d := newDebouncer(nil, nil, window, log)
		assert.IsType(t, &pipeline.MemoryDebouncer{}, d)
	})
}
