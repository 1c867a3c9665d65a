package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInt64ToInt(t *testing.T) {
	t.Run("valid zero", func(t *testing.T) {
		got, err := Int64ToInt(0)
		assert.NoError(t, err)
		assert.Equal(t, 0, got)
	})

	t.Run("valid positive", func(t *testing.T) {
		got, err := Int64ToInt(4096)
		assert.NoError(t, err)
		assert.Equal(t, 4096, got)
	})

	t.Run("valid negative", func(t *testing.T) {
		got, err := Int64ToInt(-7)
		assert.NoError(t, err)
		assert.Equal(t, -7, got)
	})

	t.Run("platform max", func(t *testing.T) {
		got, err := Int64ToInt(int64(math.MaxInt))
		assert.NoError(t, err)
		assert.Equal(t, math.MaxInt, got)
	})
}

func TestInt64ToUint64(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := Int64ToUint64(math.MaxInt64)
		assert.NoError(t, err)
		assert.Equal(t, uint64(math.MaxInt64), got)
	})

	t.Run("invalid negative", func(t *testing.T) {
		_, err := Int64ToUint64(-1)
		assert.Error(t, err)
	})
}

func TestUint64ToInt64(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := Uint64ToInt64(1 << 40)
		assert.NoError(t, err)
		assert.Equal(t, int64(1<<40), got)
	})

	t.Run("invalid too large", func(t *testing.T) {
		_, err := Uint64ToInt64(math.MaxUint64)
		assert.Error(t, err)
	})
}
