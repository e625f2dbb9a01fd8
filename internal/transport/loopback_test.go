package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackReadWrite(t *testing.T) {
	l := NewLoopback()

	n, err := l.Read(make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, l.Write([]byte("hello")))

	buf := make([]byte, 16)
	n, err = l.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	// Fully drained.
	n, err = l.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLoopbackPartialRead(t *testing.T) {
	l := NewLoopback()
	require.NoError(t, l.Write([]byte("0123456789")))

	first := make([]byte, 4)
	n, err := l.Read(first)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(first[:n]))

	rest := make([]byte, 16)
	n, err = l.Read(rest)
	require.NoError(t, err)
	assert.Equal(t, "456789", string(rest[:n]))
}

func TestPairCrossWired(t *testing.T) {
	pair := NewPair()

	require.NoError(t, pair.A.Write([]byte("a-to-b")))
	buf := make([]byte, 16)
	n, err := pair.B.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "a-to-b", string(buf[:n]))

	require.NoError(t, pair.B.Write([]byte("b-to-a")))
	n, err = pair.A.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "b-to-a", string(buf[:n]))
}
