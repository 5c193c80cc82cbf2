package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDebouncer_SuppressesWithinWindow(t *testing.T) {
	d := NewMemoryDebouncer(5 * time.Second)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	ok, err := d.Accept(ctx, "AAAA0001", 1, base)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Accept(ctx, "AAAA0001", 1, base.Add(3*time.Second))
	require.NoError(t, err)
	assert.False(t, ok, "same pair inside the window must be suppressed")

	ok, err = d.Accept(ctx, "AAAA0001", 1, base.Add(5*time.Second))
	require.NoError(t, err)
	assert.True(t, ok, "window boundary reopens the pair")
}

func TestMemoryDebouncer_KeysByEPCAndAntenna(t *testing.T) {
	d := NewMemoryDebouncer(5 * time.Second)
	ctx := context.Background()
	now := time.Now()

	ok, _ := d.Accept(ctx, "AAAA0001", 1, now)
	require.True(t, ok)

	// Same tag on another antenna is an independent signature.
	ok, _ = d.Accept(ctx, "AAAA0001", 2, now)
	assert.True(t, ok)

	// Another tag on the same antenna too.
	ok, _ = d.Accept(ctx, "BBBB0001", 1, now)
	assert.True(t, ok)
}

func TestMemoryDebouncer_Reset(t *testing.T) {
	d := NewMemoryDebouncer(5 * time.Second)
	ctx := context.Background()
	now := time.Now()

	ok, _ := d.Accept(ctx, "AAAA0001", 1, now)
	require.True(t, ok)
	ok, _ = d.Accept(ctx, "AAAA0001", 1, now)
	require.False(t, ok)

	require.NoError(t, d.Reset(ctx))

	ok, _ = d.Accept(ctx, "AAAA0001", 1, now)
	assert.True(t, ok, "reset clears the window for every pair")
}

func TestMemoryDebouncer_SweepEvictsStaleEntries(t *testing.T) {
	d := NewMemoryDebouncer(5 * time.Second)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	d.Accept(ctx, "STALE001", 1, base)
	d.Accept(ctx, "FRESH001", 1, base.Add(9*time.Second))
	require.Equal(t, 2, d.Len())

	// Entries older than twice the window go; the rest stay.
	removed := d.Sweep(base.Add(11 * time.Second))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, d.Len())

	ok, _ := d.Accept(ctx, "FRESH001", 1, base.Add(11*time.Second))
	assert.False(t, ok, "surviving entries keep their window")
}
