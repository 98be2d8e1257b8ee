package pipeline

import (
	"context"
	"fmt"
	"time"

	"videoanalyzer/internal/behavior"
	"videoanalyzer/internal/registry"
)

// Service implements the Control API: add, cancel, status, list. It
// owns the Registry and the Manager used to launch each Control's
// pipeline, the top-level orchestrator wrapping the registry.
type Service struct {
	reg     *registry.Registry
	manager *Manager
}

// NewService wires a Registry to a Manager.
func NewService(manager *Manager) *Service {
	return &Service{reg: registry.New(), manager: manager}
}

// Add installs a new Control and launches its pipeline. A live
// duplicate code, an unknown behavior code, and a model that fails to
// load are all rejected synchronously, before any goroutine is
// started: a model load failure is fatal at add time, not something
// that only surfaces later through the Control's status.
func (s *Service) Add(code, behaviorCode, streamURL string, pushStream bool, pushStreamURL string) (ok bool, msg string) {
	if pushStream && pushStreamURL == "" {
		return false, "pushStreamUrl is required when pushStream is true"
	}
	if !behavior.Known(behaviorCode) {
		return false, fmt.Sprintf("unknown behavior code: %s", behaviorCode)
	}

	model, classes, err := s.manager.ResolveModel(behaviorCode)
	if err != nil {
		return false, fmt.Sprintf("failed to load model for behavior %s: %v", behaviorCode, err)
	}

	ctrl := registry.NewControl(code, behaviorCode, streamURL, pushStream, pushStreamURL)
	if !s.reg.Add(ctrl) {
		return false, fmt.Sprintf("control %q already active", code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctrl.Cancel = cancel

	s.manager.Start(ctx, s.reg, ctrl, model, classes)
	return true, "control added"
}

// Cancel requests graceful shutdown and waits up to joinTimeout plus
// two seconds for the Manager to finish tearing the Control down.
func (s *Service) Cancel(code string) (ok bool, msg string) {
	ctrl, exists := s.reg.Get(code)
	if !exists {
		return false, "control not found"
	}

	ctrl.SetStatus(registry.StatusStopping)
	if ctrl.Cancel != nil {
		ctrl.Cancel()
	}

	select {
	case <-ctrl.Done:
		return true, "control stopped"
	case <-time.After(s.manager.cfg.JoinTimeout + 2*time.Second):
		s.reg.Remove(code)
		return false, "timed out waiting for graceful shutdown; forced cleanup"
	}
}

// Status returns a Control's snapshot, or a synthesized inactive
// snapshot for an unknown code.
func (s *Service) Status(code string) registry.Snapshot {
	ctrl, exists := s.reg.Get(code)
	if !exists {
		return registry.InactiveSnapshot(code)
	}
	return ctrl.Snapshot()
}

// List returns every active Control's snapshot.
func (s *Service) List() []registry.Snapshot {
	return s.reg.List()
}

// ActiveCount reports how many Controls are currently registered, for
// the /health endpoint.
func (s *Service) ActiveCount() int {
	return s.reg.Count()
}
