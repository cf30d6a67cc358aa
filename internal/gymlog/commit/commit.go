// Package commit implements the draft/committed transitions of sets and workouts.
// Every operation mutates the given Record Log in place and reports, through an Effect,
// what the caller has to do next: persist the log, and possibly force a remote push.
package commit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/gymlog/internal/gymlog/records"
)

var (
	ErrNotLastExercise      = errors.New("workout can only be finished from its last exercise")
	ErrConfirmationRequired = errors.New("workout has entered data, confirmation required")
	ErrUnknownField         = errors.New("unknown set field")
	ErrExerciseOutOfRange   = errors.New("exercise index out of range")
)

// Effect tells the caller which side effects a transition requires.
type Effect struct {
	Persist   bool
	ForceSync bool
}

type Field string

const (
	WeightField Field = "weight"
	RepsField   Field = "reps"
)

func ParseField(s string) (Field, error) {
	switch Field(s) {
	case WeightField, RepsField:
		return Field(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// Slot addresses one set of one exercise of a workout.
type Slot struct {
	Date     records.Date
	Exercise int
	Kind     records.SetKind
	Index    int
}

func (s Slot) String() string {
	return fmt.Sprintf("%s/%d/%s/%d", s.Date, s.Exercise, s.Kind, s.Index)
}

// LoadableWeights snaps a weight to one the equipment can actually be loaded with.
type LoadableWeights interface {
	Nearest(def records.ExerciseDefinition, weight float64) float64
}

// AnyWeight accepts every weight, rounded to two decimals.
type AnyWeight struct{}

func (AnyWeight) Nearest(_ records.ExerciseDefinition, weight float64) float64 {
	return records.Round(weight, 2)
}

type target struct {
	workout  records.Workout
	exercise *records.ExerciseInstance
	sets     []records.Set
}

func (t target) set(idx int) *records.Set {
	return &t.sets[idx]
}

// locate clones the workout of the slot's date and resolves the addressed set on the clone.
func locate(log *records.Log, slot Slot) (target, error) {
	w, ok := log.Workout(slot.Date)
	if !ok {
		return target{}, records.ErrWorkoutNotFound
	}
	w = w.Clone()
	if slot.Exercise < 0 || slot.Exercise >= len(w.Exercises) {
		return target{}, fmt.Errorf("%w: %d", ErrExerciseOutOfRange, slot.Exercise)
	}
	ex := &w.Exercises[slot.Exercise]
	sets, err := ex.Sets(slot.Kind)
	if err != nil {
		return target{}, err
	}
	if slot.Index < 0 || slot.Index >= len(sets) {
		return target{}, fmt.Errorf("%w: %s", records.ErrSetNotFound, slot)
	}
	return target{workout: w, exercise: ex, sets: sets}, nil
}

func (t target) store(log *records.Log, d records.Date) {
	log.SetWorkout(d, t.workout)
}

// EditField replaces a weight or reps field with the raw entered text. The commit
// state is left alone, except that a set emptied by the edit falls back to draft.
func EditField(log *records.Log, slot Slot, field Field, value string) (Effect, error) {
	t, err := locate(log, slot)
	if err != nil {
		return Effect{}, err
	}

	s := t.set(slot.Index)
	switch field {
	case WeightField:
		s.Weight = value
	case RepsField:
		s.Reps = value
	default:
		return Effect{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if !s.HasValues() {
		s.State = records.Draft
	}

	t.store(log, slot.Date)
	return Effect{Persist: true}, nil
}

// Adjust is the increment/decrement control: it moves the field by one step in the given
// direction, commits the set and backfills the empty sibling field from the prior session.
// An empty field is first seeded from the prior session, then from the template's starting
// weight; only a non-empty field (or a zero seed) is stepped.
func Adjust(log *records.Log, slot Slot, field Field, direction int, weights LoadableWeights) (Effect, error) {
	if weights == nil {
		weights = AnyWeight{}
	}
	t, err := locate(log, slot)
	if err != nil {
		return Effect{}, err
	}

	def := definitionFor(log, t.workout.RoutineType, *t.exercise)
	prev, hasPrev := previousSlot(log, t.exercise.Name, slot)
	s := t.set(slot.Index)

	switch field {
	case WeightField:
		s.Weight = records.FormatNumber(adjustWeight(def, s.Weight, prev, hasPrev, direction, weights))
		if isBlank(s.Reps) && hasPrev && !isBlank(prev.Reps) {
			s.Reps = prev.Reps
		}
	case RepsField:
		s.Reps = records.FormatNumber(float64(adjustReps(s.Reps, prev, hasPrev, direction)))
		if isBlank(s.Weight) && hasPrev && !isBlank(prev.Weight) {
			s.Weight = prev.Weight
		}
	default:
		return Effect{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	s.State = records.Committed

	t.store(log, slot.Date)
	return Effect{Persist: true}, nil
}

func adjustWeight(def records.ExerciseDefinition, current string, prev records.Set, hasPrev bool, direction int, weights LoadableWeights) float64 {
	if isBlank(current) {
		seed := def.StartWeight
		if hasPrev && prev.WeightValue() > 0 {
			seed = prev.WeightValue()
		}
		if seed > 0 {
			return weights.Nearest(def, seed)
		}
	}

	next := records.ParseNumber(current) + float64(sign(direction))*def.IncrementOrDefault()
	if next < 0 {
		next = 0
	}
	return weights.Nearest(def, next)
}

func adjustReps(current string, prev records.Set, hasPrev bool, direction int) int {
	if isBlank(current) && hasPrev && prev.RepsValue() > 0 {
		return prev.RepsValue()
	}
	next := records.ParseReps(current) + sign(direction)
	if next < 0 {
		next = 0
	}
	return next
}

// Toggle flips the set's commit state. Entering committed backfills empty fields from the
// same slot of the prior session.
func Toggle(log *records.Log, slot Slot) (Effect, error) {
	t, err := locate(log, slot)
	if err != nil {
		return Effect{}, err
	}

	s := t.set(slot.Index)
	if s.Committed() {
		s.State = records.Draft
	} else {
		s.State = records.Committed
		if prev, ok := previousSlot(log, t.exercise.Name, slot); ok {
			backfill(s, prev)
		}
	}

	t.store(log, slot.Date)
	return Effect{Persist: true}, nil
}

// CopyFromPreviousSet fills the set's weight from the set before it, or for the first
// work set from the last warm-up set. Nothing to copy is not an error.
func CopyFromPreviousSet(log *records.Log, slot Slot) (Effect, error) {
	t, err := locate(log, slot)
	if err != nil {
		return Effect{}, err
	}

	var source string
	switch {
	case slot.Index > 0 && !isBlank(t.sets[slot.Index-1].Weight):
		source = t.sets[slot.Index-1].Weight
	case slot.Kind == records.WorkSet && len(t.exercise.WarmupSets) > 0:
		source = t.exercise.WarmupSets[len(t.exercise.WarmupSets)-1].Weight
	}
	if isBlank(source) {
		return Effect{}, nil
	}

	t.set(slot.Index).Weight = source
	t.store(log, slot.Date)
	return Effect{Persist: true}, nil
}

// FinishWorkout commits the whole session. It is only offered on the last exercise and
// is the one transition that pushes to the remote immediately.
func FinishWorkout(log *records.Log, d records.Date, exerciseIdx int) (Effect, error) {
	w, ok := log.Workout(d)
	if !ok {
		return Effect{}, records.ErrWorkoutNotFound
	}
	if len(w.Exercises) == 0 || exerciseIdx != len(w.Exercises)-1 {
		return Effect{}, ErrNotLastExercise
	}

	w = w.Clone()
	w.Committed = true
	log.SetWorkout(d, w)
	return Effect{Persist: true, ForceSync: true}, nil
}

func ReopenWorkout(log *records.Log, d records.Date) (Effect, error) {
	w, ok := log.Workout(d)
	if !ok {
		return Effect{}, records.ErrWorkoutNotFound
	}
	if !w.Committed {
		return Effect{}, nil
	}

	w = w.Clone()
	w.Committed = false
	log.SetWorkout(d, w)
	return Effect{Persist: true}, nil
}

// UpdateNote sets the exercise instance note and records it in the note index, so the
// next instance of the same exercise starts with it.
func UpdateNote(log *records.Log, d records.Date, exerciseIdx int, note string) (Effect, error) {
	w, ok := log.Workout(d)
	if !ok {
		return Effect{}, records.ErrWorkoutNotFound
	}
	if exerciseIdx < 0 || exerciseIdx >= len(w.Exercises) {
		return Effect{}, fmt.Errorf("%w: %d", ErrExerciseOutOfRange, exerciseIdx)
	}

	w = w.Clone()
	w.Exercises[exerciseIdx].Note = note
	log.SetWorkout(d, w)
	if log.Notes == nil {
		log.Notes = make(map[string]string)
	}
	log.Notes[w.Exercises[exerciseIdx].Name] = note
	return Effect{Persist: true}, nil
}

// SwitchRoutine replaces the day's workout with a fresh one of another routine type.
// Entered data is only discarded when confirmed.
func SwitchRoutine(log *records.Log, d records.Date, routineType string, confirm bool) (Effect, error) {
	w, ok := log.Workout(d)
	if !ok {
		return Effect{}, records.ErrWorkoutNotFound
	}
	if _, ok := log.Routines[routineType]; !ok {
		return Effect{}, fmt.Errorf("%w: %q", records.ErrUnknownRoutine, routineType)
	}
	if w.RoutineType == routineType {
		return Effect{}, nil
	}
	if w.HasEnteredData() && !confirm {
		return Effect{}, ErrConfirmationRequired
	}

	fresh, err := log.NewWorkout(routineType)
	if err != nil {
		return Effect{}, err
	}
	log.SetWorkout(d, fresh)
	return Effect{Persist: true}, nil
}

func DeleteWorkout(log *records.Log, d records.Date) (Effect, error) {
	if err := log.DeleteWorkout(d); err != nil {
		return Effect{}, err
	}
	return Effect{Persist: true}, nil
}

func definitionFor(log *records.Log, routineType string, ex records.ExerciseInstance) records.ExerciseDefinition {
	if def, ok := log.Routines.Definition(routineType, ex.ID, ex.Name); ok {
		return def
	}
	if def, ok := log.Routines.DefinitionByName(ex.Name); ok {
		return def
	}
	return records.ExerciseDefinition{ID: ex.ID, Name: ex.Name}
}

// previousSlot returns the same slot of the exercise in its most recent earlier session.
func previousSlot(log *records.Log, name string, slot Slot) (records.Set, bool) {
	ex, _, ok := log.PreviousSession(name, slot.Date)
	if !ok {
		return records.Set{}, false
	}
	sets, err := ex.Sets(slot.Kind)
	if err != nil || slot.Index >= len(sets) {
		return records.Set{}, false
	}
	return sets[slot.Index], true
}

func backfill(s *records.Set, prev records.Set) {
	if isBlank(s.Weight) {
		s.Weight = prev.Weight
	}
	if isBlank(s.Reps) {
		s.Reps = prev.Reps
	}
}

func isBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}

func sign(direction int) int {
	switch {
	case direction > 0:
		return 1
	case direction < 0:
		return -1
	default:
		return 0
	}
}
