package behavior

import (
	"fmt"
	"image/color"
	"strings"
)

// ObjectCount overlays a running count of a configured class set and
// never fires an alarm event; it is a pure annotation behavior
// (RENSHUTONGJI: "people counting").
type ObjectCount struct {
	Code          string
	TargetClasses []string // lower-cased class names to count; empty means "person" only
}

// NewObjectCount constructs the RENSHUTONGJI behavior. classes should
// be the behavior's configured class allow-list; if empty, it defaults
// to ["person"].
func NewObjectCount(code string, classes []string) *ObjectCount {
	if len(classes) == 0 {
		classes = []string{"person"}
	}
	lower := make([]string, len(classes))
	for i, c := range classes {
		lower[i] = strings.ToLower(c)
	}
	return &ObjectCount{Code: code, TargetClasses: lower}
}

func (o *ObjectCount) OnStart(state *State) {}

func (o *ObjectCount) matches(det Detection) bool {
	if det.ClassName != "" {
		name := strings.ToLower(det.ClassName)
		for _, t := range o.TargetClasses {
			if name == t {
				return true
			}
		}
		return false
	}
	// Numeric-class model: only "person" (class id 0) is addressable
	// without a label map.
	for _, t := range o.TargetClasses {
		if t == "person" && det.ClassID == 0 {
			return true
		}
	}
	return false
}

func (o *ObjectCount) ProcessFrame(frame []byte, width, height int, detections []Detection, state *State) ([]byte, bool) {
	count := 0
	for _, det := range detections {
		if o.matches(det) {
			count++
		}
	}

	var label string
	if len(o.TargetClasses) == 1 && o.TargetClasses[0] == "person" {
		label = fmt.Sprintf("People Count: %d", count)
	} else {
		label = fmt.Sprintf("%s Count: %d", strings.Join(o.TargetClasses, "/"), count)
	}

	green := color.RGBA{R: 0, G: 255, B: 0, A: 255}
	cyan := color.RGBA{R: 0, G: 255, B: 255, A: 255}

	drawText(frame, width, height, 10, 30, label, green)
	bannerX := width - 300
	if bannerX < 0 {
		bannerX = 0
	}
	classInfo := fmt.Sprintf("Classes: %s", strings.Join(o.TargetClasses, ", "))
	drawText(frame, width, height, bannerX, 30, classInfo, cyan)

	return frame, false
}

func (o *ObjectCount) OnStop(state *State) {}

func (o *ObjectCount) AlarmData(state *State) *AlarmData { return nil }
