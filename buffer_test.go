package sysmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuffer(t *testing.T, size int64) *Buffer {
	t.Helper()
	a := newTestAllocator(t, 1024)
	h, err := a.CreateBuffer(size, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Destroy() })
	b, err := h.Buffer()
	require.NoError(t, err)
	return b
}

func TestBuffer_Window(t *testing.T) {
	b := newTestBuffer(t, 16)

	assert.Equal(t, 16, b.Capacity())
	assert.Equal(t, int64(16), b.Size())
	assert.Equal(t, 0, b.Position())
	assert.Equal(t, 16, b.Limit())
	assert.Equal(t, 16, b.Remaining())
	assert.NotZero(t, b.Address())

	copy(b.Window(), "hello")
	require.NoError(t, b.SetPosition(5))
	b.Flip()
	assert.Equal(t, 0, b.Position())
	assert.Equal(t, 5, b.Limit())
	assert.Equal(t, []byte("hello"), b.Window())
	assert.Len(t, b.Bytes(), 16)

	require.NoError(t, b.SetPosition(2))
	assert.Equal(t, []byte("llo"), b.Window())

	b.Clear()
	assert.Equal(t, 0, b.Position())
	assert.Equal(t, 16, b.Limit())
}

func TestBuffer_SetPositionAndLimit(t *testing.T) {
	b := newTestBuffer(t, 16)

	assert.ErrorIs(t, b.SetPosition(-1), ErrInvalidPosition)
	assert.ErrorIs(t, b.SetPosition(17), ErrInvalidPosition)
	assert.ErrorIs(t, b.SetLimit(-1), ErrInvalidLimit)
	assert.ErrorIs(t, b.SetLimit(17), ErrInvalidLimit)

	require.NoError(t, b.SetPosition(12))
	require.NoError(t, b.SetLimit(8))
	assert.Equal(t, 8, b.Position())
	assert.Equal(t, 8, b.Limit())
	assert.ErrorIs(t, b.SetPosition(9), ErrInvalidPosition)
	assert.Equal(t, 0, b.Remaining())
}

func TestPreservedWindow(t *testing.T) {
	tests := []struct {
		name               string
		position, limit    int
		newSize            int
		wantPos, wantLimit int
	}{
		{"shrink below both", 80, 100, 50, 0, 50},
		{"grow", 80, 100, 150, 80, 100},
		{"shrink between", 20, 100, 50, 20, 50},
		{"exact", 100, 100, 100, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, limit := preservedWindow(tt.position, tt.limit, tt.newSize)
			assert.Equal(t, tt.wantPos, pos)
			assert.Equal(t, tt.wantLimit, limit)
			assert.LessOrEqual(t, pos, limit)
		})
	}
}

func TestBuffer_ReleaseLive(t *testing.T) {
	b := newTestBuffer(t, 16)
	assert.ErrorIs(t, b.Release(), ErrLiveResource)
	assert.False(t, b.Reclaimed())
}
