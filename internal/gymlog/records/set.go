package records

import (
	"encoding/json"
	"strings"
)

type SetState int

const (
	Draft SetState = iota
	Committed
)

func (s SetState) String() string {
	switch s {
	case Committed:
		return "committed"
	default:
		return "draft"
	}
}

// Set is one attempt. Weight and reps are kept as entered and parsed on use.
type Set struct {
	Weight string
	Reps   string
	State  SetState
}

func (s Set) Committed() bool {
	return s.State == Committed
}

func (s Set) HasValues() bool {
	return strings.TrimSpace(s.Weight) != "" || strings.TrimSpace(s.Reps) != ""
}

func (s Set) WeightValue() float64 {
	return ParseNumber(s.Weight)
}

func (s Set) RepsValue() int {
	return ParseReps(s.Reps)
}

// IsRecordCandidate reports whether the set may take part in record, streak and
// volume computations.
func (s Set) IsRecordCandidate() bool {
	return s.Committed() && s.HasValues()
}

type setJSON struct {
	Weight    flexString `json:"weight"`
	Reps      flexString `json:"reps"`
	Committed *bool      `json:"committed,omitempty"`
	// written by older clients instead of committed
	Done *bool `json:"done,omitempty"`
}

func (s Set) MarshalJSON() ([]byte, error) {
	committed := s.Committed()
	return json.Marshal(setJSON{
		Weight:    flexString(s.Weight),
		Reps:      flexString(s.Reps),
		Committed: &committed,
	})
}

// UnmarshalJSON resolves the legacy commit flag once: a set without values is a draft
// whatever its flag says, a set with values but no flag at all is committed.
func (s *Set) UnmarshalJSON(data []byte) error {
	var raw setJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Weight = string(raw.Weight)
	s.Reps = string(raw.Reps)

	flag := raw.Committed
	if flag == nil {
		flag = raw.Done
	}

	switch {
	case !s.HasValues():
		s.State = Draft
	case flag == nil || *flag:
		s.State = Committed
	default:
		s.State = Draft
	}
	return nil
}

func NewDraftSets(n int) []Set {
	if n < 0 {
		n = 0
	}
	return make([]Set, n)
}
