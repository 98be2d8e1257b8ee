package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddRejectsDuplicateLiveCode(t *testing.T) {
	r := New()
	c1 := NewControl("cam-1", "ZHOUJIERUQIN", "rtsp://x", false, "")
	require.True(t, r.Add(c1))

	c2 := NewControl("cam-1", "RENSHUTONGJI", "rtsp://y", false, "")
	require.False(t, r.Add(c2), "a second add with a live code must fail")
}

func TestAddSucceedsAfterRemove(t *testing.T) {
	r := New()
	c1 := NewControl("cam-1", "ZHOUJIERUQIN", "rtsp://x", false, "")
	require.True(t, r.Add(c1))
	r.Remove("cam-1")

	c2 := NewControl("cam-1", "ZHOUJIERUQIN", "rtsp://x", false, "")
	require.True(t, r.Add(c2))
}

func TestStatusForUnknownCodeIsSynthesizedNotError(t *testing.T) {
	snap := InactiveSnapshot("does-not-exist")
	require.Equal(t, StatusStopped, snap.Status)
	require.NotEmpty(t, snap.Error)
}

func TestListReturnsStableSnapshotOfAllControls(t *testing.T) {
	r := New()
	r.Add(NewControl("cam-1", "ZHOUJIERUQIN", "rtsp://x", false, ""))
	r.Add(NewControl("cam-2", "RENSHUTONGJI", "rtsp://y", false, ""))

	list := r.List()
	require.Len(t, list, 2)
}

func TestSnapshotReflectsPublishedGeometryAndStatus(t *testing.T) {
	c := NewControl("cam-1", "ZHOUJIERUQIN", "rtsp://x", true, "rtsp://out")
	c.SetGeometry(1920, 1080, 25)
	c.SetStatus(StatusRunning)
	c.SetCheckFPS(12.5)

	snap := c.Snapshot()
	require.Equal(t, 1920, snap.Width)
	require.Equal(t, 1080, snap.Height)
	require.Equal(t, 25.0, snap.InputFPS)
	require.Equal(t, StatusRunning, snap.Status)
	require.Equal(t, 12.5, snap.CheckFPS)
	require.Empty(t, snap.Error)
}

func TestSnapshotCarriesErrorMessage(t *testing.T) {
	c := NewControl("cam-1", "ZHOUJIERUQIN", "rtsp://x", false, "")
	c.SetError(errBoom)
	snap := c.Snapshot()
	require.Equal(t, StatusError, snap.Status)
	require.Equal(t, "boom", snap.Error)
}

var errBoom = testErr("boom")

type testErr string

func (e testErr) Error() string { return string(e) }
