package records

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownSetKind = errors.New("unknown set kind")

type SetKind string

const (
	WarmupSet SetKind = "warmup"
	WorkSet   SetKind = "work"
)

func ParseSetKind(s string) (SetKind, error) {
	switch SetKind(s) {
	case WarmupSet, WorkSet:
		return SetKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSetKind, s)
	}
}

// ExerciseInstance is an exercise as performed in one workout. Its set counts are a
// snapshot of the routine template at the time the workout was created or last restructured.
type ExerciseInstance struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	WarmupSets []Set  `json:"warmupSets"`
	WorkSets   []Set  `json:"workSets"`
	Note       string `json:"notes"`
}

func NewExerciseInstance(def ExerciseDefinition, note string) ExerciseInstance {
	return ExerciseInstance{
		ID:         def.ID,
		Name:       def.Name,
		WarmupSets: NewDraftSets(def.WarmupSets),
		WorkSets:   NewDraftSets(def.WorkSets),
		Note:       note,
	}
}

func (e *ExerciseInstance) Sets(kind SetKind) ([]Set, error) {
	switch kind {
	case WarmupSet:
		return e.WarmupSets, nil
	case WorkSet:
		return e.WorkSets, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSetKind, kind)
	}
}

func (e ExerciseInstance) HasValues() bool {
	for _, s := range e.WarmupSets {
		if s.HasValues() {
			return true
		}
	}
	for _, s := range e.WorkSets {
		if s.HasValues() {
			return true
		}
	}
	return false
}

func (e ExerciseInstance) Clone() ExerciseInstance {
	c := e
	c.WarmupSets = append([]Set(nil), e.WarmupSets...)
	c.WorkSets = append([]Set(nil), e.WorkSets...)
	if c.WarmupSets == nil {
		c.WarmupSets = []Set{}
	}
	if c.WorkSets == nil {
		c.WorkSets = []Set{}
	}
	return c
}

// Workout is one calendar day's session.
type Workout struct {
	RoutineType string             `json:"routineType"`
	Exercises   []ExerciseInstance `json:"exercises"`
	Committed   bool               `json:"committed"`
}

func (w *Workout) UnmarshalJSON(data []byte) error {
	type workoutAlias Workout
	raw := struct {
		workoutAlias
		// older clients
		Completed *bool `json:"completed,omitempty"`
	}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = Workout(raw.workoutAlias)
	if raw.Completed != nil && *raw.Completed {
		w.Committed = true
	}
	if w.Exercises == nil {
		w.Exercises = []ExerciseInstance{}
	}
	return nil
}

func (w Workout) Clone() Workout {
	c := w
	c.Exercises = make([]ExerciseInstance, len(w.Exercises))
	for i, ex := range w.Exercises {
		c.Exercises[i] = ex.Clone()
	}
	return c
}

// HasEnteredData reports whether any set of the workout carries a value.
func (w Workout) HasEnteredData() bool {
	for _, ex := range w.Exercises {
		if ex.HasValues() {
			return true
		}
	}
	return false
}

func (w Workout) HasCommittedSet() bool {
	for _, ex := range w.Exercises {
		for _, s := range ex.WarmupSets {
			if s.IsRecordCandidate() {
				return true
			}
		}
		for _, s := range ex.WorkSets {
			if s.IsRecordCandidate() {
				return true
			}
		}
	}
	return false
}

// CountsForStats reports whether the workout is a finished session with at least
// one committed set; only such workouts feed streaks, records and phase counts.
func (w Workout) CountsForStats() bool {
	return w.Committed && w.HasCommittedSet()
}

// Exercise finds an instance by name.
func (w Workout) Exercise(name string) (ExerciseInstance, bool) {
	for _, ex := range w.Exercises {
		if ex.Name == name {
			return ex, true
		}
	}
	return ExerciseInstance{}, false
}
