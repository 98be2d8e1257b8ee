// Package registry holds the process-wide Control table: one entry
// per active pipeline, keyed by its caller-supplied code. It is a
// mutex-guarded map with add/get/remove/list operations.
package registry

import (
	"sync"
	"time"
)

// Status is one of a Control's lifecycle states: starting, running,
// stopping, stopped, error.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
)

// Snapshot is the read-only view returned by Status/List. Field names
// match the HTTP control API's <status> payload.
type Snapshot struct {
	Code          string  `json:"code"`
	BehaviorCode  string  `json:"behaviorCode"`
	StreamURL     string  `json:"streamUrl"`
	PushStream    bool    `json:"pushStream"`
	PushStreamURL string  `json:"pushStreamUrl"`
	CheckFPS      float64 `json:"checkFps"`
	Status        Status  `json:"status"`
	Uptime        float64 `json:"uptime"`
	Error         string  `json:"error"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	InputFPS      float64 `json:"inputFps"`
}

// Control is one active pipeline's registry entry. Immutable
// configuration is set at construction; everything else is
// Detector/Manager-owned and guarded by mu.
type Control struct {
	Code          string
	BehaviorCode  string
	StreamURL     string
	PushStream    bool
	PushStreamURL string
	StartTime     time.Time

	mu       sync.RWMutex
	status   Status
	width    int
	height   int
	inputFPS float64
	checkFPS float64
	err      error

	// Cancel requests graceful shutdown of this Control's Manager.
	// Set by the caller that starts the Manager goroutine.
	Cancel func()

	// Done is closed by the Manager once finalisation completes.
	Done chan struct{}
}

// NewControl builds a Control in the "starting" state.
func NewControl(code, behaviorCode, streamURL string, pushStream bool, pushStreamURL string) *Control {
	return &Control{
		Code:          code,
		BehaviorCode:  behaviorCode,
		StreamURL:     streamURL,
		PushStream:    pushStream,
		PushStreamURL: pushStreamURL,
		StartTime:     time.Now(),
		status:        StatusStarting,
		Done:          make(chan struct{}),
	}
}

// SetStatus updates the lifecycle status.
func (c *Control) SetStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// SetError marks the Control errored and records the cause.
func (c *Control) SetError(err error) {
	c.mu.Lock()
	c.status = StatusError
	c.err = err
	c.mu.Unlock()
}

// SetGeometry publishes stream width/height/inputFPS once the Puller
// resolves them. InputFPS defaults to 25 by the Puller if the backend
// reports a non-positive value; Control stores whatever it is given.
func (c *Control) SetGeometry(width, height int, inputFPS float64) {
	c.mu.Lock()
	c.width, c.height, c.inputFPS = width, height, inputFPS
	c.mu.Unlock()
}

// Geometry returns the last published width/height/inputFPS.
func (c *Control) Geometry() (width, height int, inputFPS float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width, c.height, c.inputFPS
}

// SetCheckFPS records the Detector's most recently measured processing
// rate.
func (c *Control) SetCheckFPS(fps float64) {
	c.mu.Lock()
	c.checkFPS = fps
	c.mu.Unlock()
}

// Snapshot returns a coherent read-only copy of the Control's
// observable fields, published under c.mu without needing a
// registry-wide lock.
func (c *Control) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	errMsg := ""
	if c.err != nil {
		errMsg = c.err.Error()
	}
	return Snapshot{
		Code:          c.Code,
		BehaviorCode:  c.BehaviorCode,
		StreamURL:     c.StreamURL,
		PushStream:    c.PushStream,
		PushStreamURL: c.PushStreamURL,
		CheckFPS:      c.checkFPS,
		Status:        c.status,
		Uptime:        time.Since(c.StartTime).Seconds(),
		Error:         errMsg,
		Width:         c.width,
		Height:        c.height,
		InputFPS:      c.inputFPS,
	}
}

// Registry is the process-wide code -> Control table.
type Registry struct {
	mu       sync.RWMutex
	controls map[string]*Control
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{controls: make(map[string]*Control)}
}

// Add inserts c, failing if code already has a live entry.
func (r *Registry) Add(c *Control) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.controls[c.Code]; exists {
		return false
	}
	r.controls[c.Code] = c
	return true
}

// Get returns the Control for code, if any.
func (r *Registry) Get(code string) (*Control, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controls[code]
	return c, ok
}

// Remove deletes code's entry, tolerating its absence.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.controls, code)
}

// List returns a stable snapshot of every Control's observable state.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	codes := make([]string, 0, len(r.controls))
	for code := range r.controls {
		codes = append(codes, code)
	}
	controls := make([]*Control, len(codes))
	for i, code := range codes {
		controls[i] = r.controls[code]
	}
	r.mu.RUnlock()

	out := make([]Snapshot, len(controls))
	for i, c := range controls {
		out[i] = c.Snapshot()
	}
	return out
}

// Count reports the number of active Controls.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.controls)
}

// InactiveSnapshot synthesizes the "unknown code" response Status
// returns instead of an error.
func InactiveSnapshot(code string) Snapshot {
	return Snapshot{
		Code:   code,
		Status: StatusStopped,
		Error:  "control not found or inactive",
	}
}
