package behavior

// Factory builds a Plugin for a given control code. Registered once
// per behavior code at process start.
type Factory func(code string, classes []string, clipDurationSeconds float64) Plugin

var factories = map[string]Factory{
	"ZHOUJIERUQIN": func(code string, classes []string, clipDurationSeconds float64) Plugin {
		return NewDwellIntrusion(code, clipDurationSeconds)
	},
	"RENSHUTONGJI": func(code string, classes []string, clipDurationSeconds float64) Plugin {
		return NewObjectCount(code, classes)
	},
	"INSULATOR": func(code string, classes []string, clipDurationSeconds float64) Plugin {
		return NewSpecialisedObject(code, "insulator")
	},
}

// New instantiates the Plugin registered for behaviorCode, or nil if
// the code is unknown. The caller must treat a nil result as a fatal
// configuration error.
func New(behaviorCode, code string, classes []string, clipDurationSeconds float64) Plugin {
	factory, ok := factories[behaviorCode]
	if !ok {
		return nil
	}
	return factory(code, classes, clipDurationSeconds)
}

// Known reports whether behaviorCode has a registered factory.
func Known(behaviorCode string) bool {
	_, ok := factories[behaviorCode]
	return ok
}
