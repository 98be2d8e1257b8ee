package detector

import (
	"context"
	"errors"
	"log"
	"time"

	"videoanalyzer/internal/behavior"
	"videoanalyzer/internal/frame"
)

// ErrStreamInfoTimeout is returned when the Puller never reports
// stream geometry within WaitStreamInfoTimeout.
var ErrStreamInfoTimeout = errors.New("timed out waiting for stream geometry")

// StreamInfo reports the stream geometry and measured input frame
// rate, as discovered by the Puller. The Detector blocks on this being
// populated before it can size its rolling buffer.
type StreamInfo struct {
	Width, Height int
	InputFPS      float64
}

// Params bundles everything one Detector run needs. It intentionally
// takes channels and callbacks rather than a shared Control struct, so
// this package has no dependency on the pipeline package that owns
// Control; the Manager wires the two together.
type Params struct {
	Code   string
	Model  Model
	Plugin behavior.Plugin
	State  *behavior.State

	RawQ       <-chan frame.Frame
	AnnotatedQ chan<- frame.Frame

	// StreamInfo is polled until Width/Height/InputFPS are all
	// positive, or WaitStreamInfoTimeout elapses (fatal in that case).
	StreamInfo func() StreamInfo

	ClipDurationSeconds   float64
	QueueGetTimeout       time.Duration
	FPSUpdateInterval     time.Duration
	WaitStreamInfoTimeout time.Duration

	// OnFPSUpdate reports the detector's measured processing fps,
	// recomputed every FPSUpdateInterval.
	OnFPSUpdate func(fps float64)

	// OnEvent is invoked when the behavior plugin reports a triggered
	// event and no clip write is already in flight. It receives a
	// snapshot of the rolling buffer plus stream geometry.
	OnEvent func(snapshot []frame.Frame, fps float64, width, height int, alarmData *behavior.AlarmData)
}

// Run executes the Detector loop until ctx is cancelled or RawQ is
// closed. It never panics across the worker boundary: a model error
// degrades to a pass-through frame with no detections rather than
// aborting the stream.
func Run(ctx context.Context, p Params) error {
	info, err := waitForStreamInfo(ctx, p.StreamInfo, p.WaitStreamInfoTimeout)
	if err != nil {
		return err
	}

	bufCap := frame.Capacity(info.InputFPS, p.ClipDurationSeconds)
	buffer := frame.NewRollingBuffer(bufCap)

	p.Plugin.OnStart(p.State)
	defer p.Plugin.OnStop(p.State)

	framesInWindow := 0
	lastFPSReport := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var f frame.Frame
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case f, ok = <-p.RawQ:
			if !ok {
				return nil
			}
		case <-time.After(p.QueueGetTimeout):
			continue
		}

		annotated, detections, derr := p.Model.Detect(ctx, f.Pix, f.Width, f.Height)
		if derr != nil {
			log.Printf("[Detector %s] detection error, passing frame through: %v", p.Code, derr)
			annotated = f.Pix
			detections = nil
		}

		annotated, eventTriggered := p.Plugin.ProcessFrame(annotated, f.Width, f.Height, detections, p.State)

		if eventTriggered && !p.State.ClipInProgress() && !p.State.ClipWriterActive() {
			p.State.SetClipInProgress(true)
			p.State.SetClipWriterActive(true)
			alarmData := p.Plugin.AlarmData(p.State)
			if alarmData == nil {
				alarmData = &behavior.AlarmData{Desc: "behavior triggered with no description", State: 0}
			}
			snapshot := buffer.Snapshot()
			if p.OnEvent != nil {
				p.OnEvent(snapshot, info.InputFPS, f.Width, f.Height, alarmData)
			}
		}

		buffer.Append(frame.Frame{Pix: annotated, Width: f.Width, Height: f.Height, CapturedAt: f.CapturedAt})

		select {
		case p.AnnotatedQ <- frame.Frame{Pix: annotated, Width: f.Width, Height: f.Height, CapturedAt: f.CapturedAt}:
		default:
			// AnnotatedQ full: drop, never block the detector.
		}

		framesInWindow++
		if elapsed := time.Since(lastFPSReport); elapsed >= p.FPSUpdateInterval {
			fps := float64(framesInWindow) / elapsed.Seconds()
			if p.OnFPSUpdate != nil {
				p.OnFPSUpdate(fps)
			}
			framesInWindow = 0
			lastFPSReport = time.Now()
		}
	}
}

func waitForStreamInfo(ctx context.Context, get func() StreamInfo, timeout time.Duration) (StreamInfo, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		info := get()
		if info.Width > 0 && info.Height > 0 && info.InputFPS > 0 {
			return info, nil
		}
		if time.Now().After(deadline) {
			return StreamInfo{}, ErrStreamInfoTimeout
		}
		select {
		case <-ctx.Done():
			return StreamInfo{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
