package clipwriter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunSkipsWriteAndStillCallsOnCompleteWhenNoFramesBuffered(t *testing.T) {
	var completed int32

	Run(context.Background(), Params{
		Code:      "cam-1",
		Frames:    nil,
		Timestamp: time.Unix(0, 0),
		OnComplete: func() {
			atomic.AddInt32(&completed, 1)
		},
	})

	require.Equal(t, int32(1), atomic.LoadInt32(&completed), "OnComplete must fire even on the empty-buffer early return")
}

func TestRunToleratesNilOnComplete(t *testing.T) {
	require.NotPanics(t, func() {
		Run(context.Background(), Params{Code: "cam-1", Frames: nil, Timestamp: time.Unix(0, 0)})
	})
}
