package records

import "sort"

// Phase is a training period owned by the companion body-tracking data set. It is never
// written from here.
type Phase struct {
	ID    flexString `json:"id"`
	Name  string     `json:"name"`
	Start Date       `json:"start"`
	End   Date       `json:"end,omitempty"`
}

func (p Phase) Open() bool {
	return p.End == ""
}

// Contains reports whether d falls in [Start, End), or on/after Start for an open phase.
func (p Phase) Contains(d Date) bool {
	if d < p.Start {
		return false
	}
	return p.Open() || d < p.End
}

// CurrentPhase returns the open phase. Should the companion data carry several, the one
// started last wins.
func CurrentPhase(phases []Phase) (Phase, bool) {
	var open []Phase
	for _, p := range phases {
		if p.Open() {
			open = append(open, p)
		}
	}
	if len(open) == 0 {
		return Phase{}, false
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Start > open[j].Start })
	return open[0], true
}

// PhasesPayload is the companion data set document; only phases are read from it.
type PhasesPayload struct {
	Phases []Phase `json:"phases"`
}
