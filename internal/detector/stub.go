package detector

import (
	"context"

	"videoanalyzer/internal/behavior"
)

// StubModel is a pass-through Model that returns the input frame
// unmodified and reports no detections. The detection model itself is
// out of scope (treated as a pure function by the calling code); this
// stub lets the rest of the pipeline (queues, behaviors, rolling
// buffer, clip writing) run and be tested without a real inference
// runtime wired in.
type StubModel struct{}

// NewStubLoader returns a Loader that always hands back a StubModel,
// ignoring modelPath/classes. Suitable as the detector.Cache's Loader
// in tests or until a real inference backend is wired in.
func NewStubLoader() Loader {
	return func(modelPath string, classes []string) (Model, error) {
		return &StubModel{}, nil
	}
}

// Detect implements Model.
func (m *StubModel) Detect(ctx context.Context, pix []byte, width, height int) ([]byte, []behavior.Detection, error) {
	return pix, nil, nil
}
