package mmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAnon_ReadWriteClose(t *testing.T) {
	m, err := MapAnon(1024)
	require.NoError(t, err)

	assert.Equal(t, 1024, m.Size())
	assert.NotZero(t, m.Addr())

	data := m.Bytes()
	require.Len(t, data, 1024)
	for _, b := range data {
		require.Zero(t, b)
	}

	copy(data, "off-heap")
	assert.Equal(t, "off-heap", string(m.Bytes()[:8]))

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
	assert.Nil(t, m.Bytes())
	assert.Zero(t, m.Addr())

	// Idempotent
	require.NoError(t, m.Close())
}

func TestMapAnon_InvalidSize(t *testing.T) {
	_, err := MapAnon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = MapAnon(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMapping_Remap(t *testing.T) {
	t.Run("grow preserves contents", func(t *testing.T) {
		m, err := MapAnon(100)
		require.NoError(t, err)
		copy(m.Bytes(), "hello")

		grown, err := m.Remap(64 * 1024)
		require.NoError(t, err)
		defer grown.Close()

		assert.True(t, m.Closed())
		assert.Nil(t, m.Bytes())
		require.NoError(t, m.Close()) // moved mapping must not unmap the new region

		assert.Equal(t, 64*1024, grown.Size())
		assert.Equal(t, "hello", string(grown.Bytes()[:5]))
		assert.Zero(t, grown.Bytes()[64*1024-1])
	})

	t.Run("shrink keeps prefix", func(t *testing.T) {
		m, err := MapAnon(8192)
		require.NoError(t, err)
		copy(m.Bytes(), "prefix")

		shrunk, err := m.Remap(10)
		require.NoError(t, err)
		defer shrunk.Close()

		require.Len(t, shrunk.Bytes(), 10)
		assert.Equal(t, "prefix", string(shrunk.Bytes()[:6]))
	})

	t.Run("invalid size leaves mapping intact", func(t *testing.T) {
		m, err := MapAnon(64)
		require.NoError(t, err)
		defer m.Close()

		_, err = m.Remap(0)
		assert.ErrorIs(t, err, ErrInvalidSize)
		assert.False(t, m.Closed())
		assert.Len(t, m.Bytes(), 64)
	})

	t.Run("closed mapping", func(t *testing.T) {
		m, err := MapAnon(64)
		require.NoError(t, err)
		require.NoError(t, m.Close())

		_, err = m.Remap(128)
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestMapping_Advise(t *testing.T) {
	m, err := MapAnon(4096)
	require.NoError(t, err)

	for _, p := range []AccessPattern{AccessDefault, AccessSequential, AccessRandom, AccessWillNeed} {
		assert.NoError(t, m.Advise(p))
	}

	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
}
