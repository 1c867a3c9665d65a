package sysmem

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := context.Background()
	l.LogAllocate(ctx, KindChunk, 64, nil)
	assert.Contains(t, buf.String(), `"msg":"allocation completed"`)
	assert.Contains(t, buf.String(), `"size":64`)

	buf.Reset()
	l.LogReclaim(ctx, KindBuffer, 0x1000, 32, errors.New("boom"))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"kind":"buffer"`)

	buf.Reset()
	l.LogBackpressure(ctx, KindChunk, 128, time.Millisecond, false)
	assert.Contains(t, buf.String(), "capacity still exceeded after cool-down")
}

func TestLogger_Allocator(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	a := newTestAllocator(t, 100, WithLogger(l), WithActiveReclaim(false))

	_, err := a.CreateChunk(200, false)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	out := buf.String()
	assert.Contains(t, out, "allocation failed")
	assert.Contains(t, out, "capacity=100")
	assert.Contains(t, out, "kind=chunk")
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, nil))

	l.WithKind(KindBuffer).WithCapacity(4096).Info("pool ready")
	assert.Contains(t, buf.String(), "kind=buffer")
	assert.Contains(t, buf.String(), "capacity=4096")
}
