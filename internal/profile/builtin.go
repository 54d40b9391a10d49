package profile

import "time"

// BuiltIn returns the predefined flow profiles.
func BuiltIn() map[string]Profile {
	return map[string]Profile{
		"steady": {
			Name:        "steady",
			Description: "Constant moderate flow.",
			Loop:        true,
			Phases: []Phase{
				{Name: "flow", FlowLPM: 12, Duration: time.Minute},
			},
		},
		"idle": {
			Name:        "idle",
			Description: "No flow at all; useful to watch empty reports.",
			Loop:        true,
			Phases: []Phase{
				{Name: "closed", FlowLPM: 0, Duration: time.Minute},
			},
		},
		"shower": {
			Name:        "shower",
			Description: "Short bursts of high flow separated by long idle gaps.",
			Loop:        true,
			Phases: []Phase{
				{Name: "idle", FlowLPM: 0, Duration: 2 * time.Minute},
				{Name: "warmup", Description: "Tap opened while the water heats.", FlowLPM: 6, Duration: 30 * time.Second},
				{Name: "shower", FlowLPM: 9.5, Duration: 5 * time.Minute},
				{Name: "rinse", FlowLPM: 4, Duration: 45 * time.Second},
			},
		},
		"irrigation": {
			Name:        "irrigation",
			Description: "Zone valves opening one after another.",
			Loop:        true,
			Phases: []Phase{
				{Name: "zone-1", FlowLPM: 18, Duration: 10 * time.Minute},
				{Name: "zone-2", FlowLPM: 25, Duration: 8 * time.Minute},
				{Name: "zone-3", FlowLPM: 14, Duration: 12 * time.Minute},
				{Name: "off", FlowLPM: 0, Duration: 30 * time.Minute},
			},
		},
	}
}
