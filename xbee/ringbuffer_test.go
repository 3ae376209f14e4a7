package xbee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferPushPop(t *testing.T) {
	rb := newRingBuffer(4)
	require.True(t, rb.Push('a'))
	require.True(t, rb.Push('b'))
	assert.Equal(t, 2, rb.Len())

	b, ok := rb.Pop()
	require.True(t, ok)
	assert.Equal(t, byte('a'), b)
}

func TestRingBufferOverflowReportsFalse(t *testing.T) {
	rb := newRingBuffer(2)
	assert.True(t, rb.Push('a'))
	assert.True(t, rb.Push('b'))
	assert.False(t, rb.Push('c'), "pushing past capacity must fail, not silently wrap")
}

func TestRingBufferDrain(t *testing.T) {
	rb := newRingBuffer(8)
	rb.Push('x')
	rb.Push('y')
	rb.Push('z')

	dst := make([]byte, 2)
	n := rb.Drain(dst)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{'x', 'y'}, dst)
	assert.Equal(t, 1, rb.Len())
}

func TestRingBufferEmptyPopFails(t *testing.T) {
	rb := newRingBuffer(4)
	_, ok := rb.Pop()
	assert.False(t, ok)
	assert.True(t, rb.Empty())
}
