package detector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"videoanalyzer/internal/behavior"
	"videoanalyzer/internal/frame"
)

type passthroughModel struct{}

func (passthroughModel) Detect(ctx context.Context, pix []byte, width, height int) ([]byte, []behavior.Detection, error) {
	return pix, nil, nil
}

// triggerPlugin fires an event on calls numbered in triggerOn (1-indexed),
// or on every call when triggerOn is nil.
type triggerPlugin struct {
	triggerOn map[int]bool
	calls     int
}

func (p *triggerPlugin) OnStart(state *behavior.State) {}

func (p *triggerPlugin) ProcessFrame(pix []byte, width, height int, dets []behavior.Detection, state *behavior.State) ([]byte, bool) {
	p.calls++
	if p.triggerOn == nil {
		return pix, true
	}
	return pix, p.triggerOn[p.calls]
}

func (p *triggerPlugin) OnStop(state *behavior.State) {}

func (p *triggerPlugin) AlarmData(state *behavior.State) *behavior.AlarmData {
	return &behavior.AlarmData{Desc: "triggered"}
}

func fixedStreamInfo() func() StreamInfo {
	return func() StreamInfo { return StreamInfo{Width: 64, Height: 48, InputFPS: 10} }
}

func runUntilDone(t *testing.T, p Params) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), p) }()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return in time")
		return nil
	}
}

func TestRunDropsAnnotatedFramesWhenQueueIsFull(t *testing.T) {
	rawQ := make(chan frame.Frame, 10)
	for i := 0; i < 5; i++ {
		rawQ <- frame.Frame{Pix: []byte{1, 2, 3}, Width: 64, Height: 48, CapturedAt: time.Unix(int64(i), 0)}
	}
	close(rawQ)

	// AnnotatedQ is never drained, so after its capacity fills the
	// detector must keep going rather than block.
	annQ := make(chan frame.Frame, 1)

	err := runUntilDone(t, Params{
		Code:                  "cam-1",
		Model:                 passthroughModel{},
		Plugin:                &triggerPlugin{triggerOn: map[int]bool{}},
		State:                 behavior.NewState(),
		RawQ:                  rawQ,
		AnnotatedQ:            annQ,
		StreamInfo:            fixedStreamInfo(),
		ClipDurationSeconds:   1,
		QueueGetTimeout:       50 * time.Millisecond,
		FPSUpdateInterval:     time.Hour,
		WaitStreamInfoTimeout: time.Second,
	})

	require.NoError(t, err)
	require.LessOrEqual(t, len(annQ), 1, "AnnotatedQ must never grow past its capacity")
}

func TestRunSnapshotExcludesTheTriggeringFrameItself(t *testing.T) {
	rawQ := make(chan frame.Frame, 10)
	for i := 0; i < 3; i++ {
		rawQ <- frame.Frame{Pix: []byte{1, 2, 3}, Width: 64, Height: 48, CapturedAt: time.Unix(int64(i), 0)}
	}
	close(rawQ)

	annQ := make(chan frame.Frame, 10)

	var snapshot []frame.Frame
	var eventFired int

	err := runUntilDone(t, Params{
		Code:                  "cam-1",
		Model:                 passthroughModel{},
		Plugin:                &triggerPlugin{triggerOn: map[int]bool{3: true}},
		State:                 behavior.NewState(),
		RawQ:                  rawQ,
		AnnotatedQ:            annQ,
		StreamInfo:            fixedStreamInfo(),
		ClipDurationSeconds:   1,
		QueueGetTimeout:       50 * time.Millisecond,
		FPSUpdateInterval:     time.Hour,
		WaitStreamInfoTimeout: time.Second,
		OnEvent: func(snap []frame.Frame, fps float64, width, height int, alarmData *behavior.AlarmData) {
			eventFired++
			snapshot = snap
		},
	})

	require.NoError(t, err)
	require.Equal(t, 1, eventFired)
	// The buffer snapshot is taken before the triggering (3rd) frame is
	// appended, so it holds only the first two frames.
	require.Len(t, snapshot, 2)
	require.Equal(t, time.Unix(0, 0), snapshot[0].CapturedAt)
	require.Equal(t, time.Unix(1, 0), snapshot[1].CapturedAt)
}

func TestRunDebouncesWhileClipAlreadyInProgress(t *testing.T) {
	rawQ := make(chan frame.Frame, 10)
	for i := 0; i < 5; i++ {
		rawQ <- frame.Frame{Pix: []byte{1, 2, 3}, Width: 64, Height: 48, CapturedAt: time.Unix(int64(i), 0)}
	}
	close(rawQ)

	annQ := make(chan frame.Frame, 10)

	var eventCount int
	err := runUntilDone(t, Params{
		Code:                  "cam-1",
		Model:                 passthroughModel{},
		Plugin:                &triggerPlugin{}, // triggers on every call
		State:                 behavior.NewState(),
		RawQ:                  rawQ,
		AnnotatedQ:            annQ,
		StreamInfo:            fixedStreamInfo(),
		ClipDurationSeconds:   1,
		QueueGetTimeout:       50 * time.Millisecond,
		FPSUpdateInterval:     time.Hour,
		WaitStreamInfoTimeout: time.Second,
		OnEvent: func(snap []frame.Frame, fps float64, width, height int, alarmData *behavior.AlarmData) {
			eventCount++
		},
	})

	require.NoError(t, err)
	require.Equal(t, 1, eventCount, "a second trigger must be suppressed while ClipInProgress/ClipWriterActive stay true")
}

func TestRunDegradesToPassThroughOnModelError(t *testing.T) {
	rawQ := make(chan frame.Frame, 1)
	rawQ <- frame.Frame{Pix: []byte{9, 9, 9}, Width: 64, Height: 48}
	close(rawQ)

	annQ := make(chan frame.Frame, 1)

	err := runUntilDone(t, Params{
		Code:                  "cam-1",
		Model:                 erroringModel{},
		Plugin:                &triggerPlugin{triggerOn: map[int]bool{}},
		State:                 behavior.NewState(),
		RawQ:                  rawQ,
		AnnotatedQ:            annQ,
		StreamInfo:            fixedStreamInfo(),
		ClipDurationSeconds:   1,
		QueueGetTimeout:       50 * time.Millisecond,
		FPSUpdateInterval:     time.Hour,
		WaitStreamInfoTimeout: time.Second,
	})

	require.NoError(t, err)
	out := <-annQ
	require.Equal(t, []byte{9, 9, 9}, out.Pix)
}

type erroringModel struct{}

func (erroringModel) Detect(ctx context.Context, pix []byte, width, height int) ([]byte, []behavior.Detection, error) {
	return nil, nil, errModelBoom
}

var errModelBoom = errBoom("model exploded")

type errBoom string

func (e errBoom) Error() string { return string(e) }

func TestWaitForStreamInfoTimesOutWhenGeometryNeverArrives(t *testing.T) {
	_, err := waitForStreamInfo(context.Background(), func() StreamInfo { return StreamInfo{} }, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrStreamInfoTimeout)
}
