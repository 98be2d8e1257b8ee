package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCapacityMatchesSpecFormula(t *testing.T) {
	require.Equal(t, 38, Capacity(25, 1.0)) // ceil(25*1*1.5) = 38
	require.Equal(t, 1, Capacity(0, 3))     // floors at 1, never 0 or negative
	require.Equal(t, 1, Capacity(0.1, 0.1))
}

func TestRollingBufferSnapshotOrderBeforeWrap(t *testing.T) {
	b := NewRollingBuffer(5)
	for i := 0; i < 3; i++ {
		b.Append(Frame{Pix: []byte{byte(i)}, CapturedAt: time.Unix(int64(i), 0)})
	}
	snap := b.Snapshot()
	require.Len(t, snap, 3)
	for i, f := range snap {
		require.Equal(t, byte(i), f.Pix[0])
	}
}

func TestRollingBufferSnapshotOrderAfterWrap(t *testing.T) {
	b := NewRollingBuffer(3)
	for i := 0; i < 5; i++ {
		b.Append(Frame{Pix: []byte{byte(i)}})
	}
	// Capacity 3, 5 appends: buffer holds the last 3 values in order (2,3,4).
	snap := b.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, []byte{2}, snap[0].Pix)
	require.Equal(t, []byte{3}, snap[1].Pix)
	require.Equal(t, []byte{4}, snap[2].Pix)
}

func TestRollingBufferSnapshotIsDeepCopy(t *testing.T) {
	b := NewRollingBuffer(2)
	original := Frame{Pix: []byte{1, 2, 3}}
	b.Append(original)
	snap := b.Snapshot()
	snap[0].Pix[0] = 99
	require.Equal(t, byte(1), original.Pix[0], "mutating a snapshot must not affect the live buffer's backing array")
}

func TestRollingBufferLen(t *testing.T) {
	b := NewRollingBuffer(3)
	require.Equal(t, 0, b.Len())
	b.Append(Frame{})
	b.Append(Frame{})
	require.Equal(t, 2, b.Len())
	b.Append(Frame{})
	b.Append(Frame{})
	require.Equal(t, 3, b.Len(), "length caps at capacity once the buffer has wrapped")
}
