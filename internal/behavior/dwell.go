package behavior

import (
	"fmt"
	"time"
)

// DwellIntrusion fires an event once a person has been continuously
// present for at least dwellSeconds. It checks the caller's
// ClipInProgress/ClipWriterActive flags to debounce against
// repeat-firing while a clip is already being written, rather than
// tracking that state itself.
type DwellIntrusion struct {
	Code         string
	DwellSeconds float64
}

const dwellStartKey = "dwell_person_detected_since"

// NewDwellIntrusion constructs the ZHOUJIERUQIN behavior.
func NewDwellIntrusion(code string, dwellSeconds float64) *DwellIntrusion {
	return &DwellIntrusion{Code: code, DwellSeconds: dwellSeconds}
}

func (d *DwellIntrusion) OnStart(state *State) {
	state.Extension[dwellStartKey] = nil
}

func (d *DwellIntrusion) ProcessFrame(frame []byte, width, height int, detections []Detection, state *State) ([]byte, bool) {
	personPresent := false
	for _, det := range detections {
		if det.ClassID == 0 {
			personPresent = true
			break
		}
	}

	now := Now()
	eventTriggered := false

	if personPresent {
		since, _ := state.Extension[dwellStartKey].(*time.Time)
		if since == nil {
			t := now
			state.Extension[dwellStartKey] = &t
		} else {
			duration := now.Sub(*since).Seconds()
			if duration >= d.DwellSeconds && !state.ClipInProgress() && !state.ClipWriterActive() {
				eventTriggered = true
			}
		}
	} else {
		state.Extension[dwellStartKey] = nil
	}

	return frame, eventTriggered
}

func (d *DwellIntrusion) OnStop(state *State) {
	state.Extension[dwellStartKey] = nil
}

func (d *DwellIntrusion) AlarmData(state *State) *AlarmData {
	return &AlarmData{
		Desc:  fmt.Sprintf("Intrusion: continuous person presence for at least %.0f seconds", d.DwellSeconds),
		State: 0,
	}
}
