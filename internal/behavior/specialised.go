package behavior

import (
	"fmt"
	"image/color"
)

// SpecialisedObject counts every detection the model returns without
// class filtering, for a dedicated single-purpose model (INSULATOR:
// insulator detection). It never fires an alarm event.
type SpecialisedObject struct {
	Code      string
	ModelName string
}

// NewSpecialisedObject constructs the INSULATOR behavior.
func NewSpecialisedObject(code, modelName string) *SpecialisedObject {
	return &SpecialisedObject{Code: code, ModelName: modelName}
}

func (s *SpecialisedObject) OnStart(state *State) {}

func (s *SpecialisedObject) ProcessFrame(frame []byte, width, height int, detections []Detection, state *State) ([]byte, bool) {
	count := len(detections)

	black := color.RGBA{A: 255}
	green := color.RGBA{G: 255, A: 255}
	cyan := color.RGBA{R: 0, G: 255, B: 255, A: 255}
	yellow := color.RGBA{R: 255, G: 255, B: 0, A: 255}

	label := fmt.Sprintf("Insulators Detected: %d", count)
	fillRect(frame, width, height, 5, 15, 10+13*len(label), 40, black)
	drawText(frame, width, height, 10, 35, label, green)

	bannerX := width - 300
	if bannerX < 0 {
		bannerX = 0
	}
	drawText(frame, width, height, bannerX, 30, "Specialized Insulator Model", cyan)

	if count > 0 {
		status := fmt.Sprintf("Status: %d insulator(s) monitored", count)
		drawText(frame, width, height, 10, height-20, status, yellow)
	}

	return frame, false
}

func (s *SpecialisedObject) OnStop(state *State) {}

func (s *SpecialisedObject) AlarmData(state *State) *AlarmData { return nil }
