// Package behavior implements the pluggable per-stream analysis
// behaviors: a BehaviorPlugin receives each detector frame plus its
// detections and decides whether an alarm-worthy event occurred.
package behavior

import (
	"sync/atomic"
	"time"
)

// Detection is one bounding-box result from the detection model.
// ClassID follows the model's native class indexing; ClassName is
// populated for open-vocabulary models that report strings instead.
type Detection struct {
	ClassID   int
	ClassName string
	Score     float64
	X1, Y1    float64
	X2, Y2    float64
}

// State is the mutable bag a Plugin carries across calls for one
// running Control. clipInProgress/clipWriterActive are the two
// debounce flags shared with the Detector and Clip-writer: a plugin
// must never fire a second event while either is true. They are set
// by the Detector goroutine and cleared by the Clip-writer goroutine
// on completion, so they are atomics rather than plain bools.
type State struct {
	clipInProgress   atomic.Bool
	clipWriterActive atomic.Bool

	// Extension holds behavior-private fields (e.g. dwell start time).
	// Only the Detector goroutine touches it, so no locking is needed.
	Extension map[string]any
}

// NewState returns a State ready for a fresh Control.
func NewState() *State {
	return &State{Extension: make(map[string]any)}
}

// ClipInProgress reports the behavior-visible debounce flag: true
// between an event trigger and the writer's completion.
func (s *State) ClipInProgress() bool { return s.clipInProgress.Load() }

// SetClipInProgress sets the debounce flag.
func (s *State) SetClipInProgress(v bool) { s.clipInProgress.Store(v) }

// ClipWriterActive reports whether a Clip-writer currently exists for
// this Control.
func (s *State) ClipWriterActive() bool { return s.clipWriterActive.Load() }

// SetClipWriterActive sets the lifecycle flag.
func (s *State) SetClipWriterActive(v bool) { s.clipWriterActive.Store(v) }

// AlarmData is the behavior-supplied payload merged into the
// AlarmRecord when an event fires. ImagePath is optional: a plugin
// that has no behavior-specific snapshot image leaves it empty, and
// no image_path is recorded.
type AlarmData struct {
	Desc      string
	State     int
	ImagePath string
}

// Plugin is the contract every behavior implements. ProcessFrame is
// called once per detected frame, on the Detector goroutine; it must
// not block.
type Plugin interface {
	// OnStart is called once before the first ProcessFrame call.
	OnStart(state *State)

	// ProcessFrame inspects detections against frame, optionally
	// annotates it, and reports whether this call should trigger a
	// clip-save event. Implementations must not mutate frame's
	// dimensions.
	ProcessFrame(frame []byte, width, height int, detections []Detection, state *State) (annotated []byte, eventTriggered bool)

	// OnStop is called once after the last ProcessFrame call.
	OnStop(state *State)

	// AlarmData returns the alarm payload for the event just
	// triggered, or nil if the plugin never produces alarms.
	AlarmData(state *State) *AlarmData
}

// Now returns the current time; a package-level var so tests can
// substitute a fixed clock without touching plugin internals.
var Now = time.Now
