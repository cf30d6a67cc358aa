// Package routines edits routine templates and keeps today's in-progress workout aligned
// with them.
package routines

import (
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/gymlog/internal/gymlog/records"
)

var (
	ErrDefinitionNotFound = errors.New("exercise definition not found")
	ErrInvalidDefinition  = errors.New("invalid exercise definition")
)

// Change reports what an edit touched. Routines is always set on success; Today is set
// when today's workout was restructured as a consequence.
type Change struct {
	Routines bool
	Today    bool
}

func validate(def records.ExerciseDefinition) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}
	if def.WarmupSets < 0 || def.WorkSets < 0 {
		return fmt.Errorf("%w: negative set count", ErrInvalidDefinition)
	}
	if def.Increment < 0 || def.StartWeight < 0 || def.BarWeight < 0 {
		return fmt.Errorf("%w: negative weight parameter", ErrInvalidDefinition)
	}
	return nil
}

func template(log *records.Log, routineType string) (records.RoutineTemplate, error) {
	tmpl, ok := log.Routines[routineType]
	if !ok {
		return records.RoutineTemplate{}, fmt.Errorf("%w: %q", records.ErrUnknownRoutine, routineType)
	}
	tmpl.Exercises = append([]records.ExerciseDefinition(nil), tmpl.Exercises...)
	return tmpl, nil
}

func indexOf(tmpl records.RoutineTemplate, id int) int {
	for i, def := range tmpl.Exercises {
		if def.ID == id {
			return i
		}
	}
	return -1
}

func commitTemplate(log *records.Log, routineType string, tmpl records.RoutineTemplate, today records.Date) Change {
	log.Routines[routineType] = tmpl
	return Change{Routines: true, Today: Propagate(log, routineType, today)}
}

// AddExercise appends a definition to a routine; its id is one past the highest in use.
func AddExercise(log *records.Log, routineType string, def records.ExerciseDefinition, today records.Date) (records.ExerciseDefinition, Change, error) {
	if err := validate(def); err != nil {
		return records.ExerciseDefinition{}, Change{}, err
	}
	tmpl, err := template(log, routineType)
	if err != nil {
		return records.ExerciseDefinition{}, Change{}, err
	}

	maxID := 0
	for _, d := range tmpl.Exercises {
		if d.ID > maxID {
			maxID = d.ID
		}
	}
	def.ID = maxID + 1
	tmpl.Exercises = append(tmpl.Exercises, def)

	return def, commitTemplate(log, routineType, tmpl, today), nil
}

// EditExercise replaces the definition with the given id, keeping the id.
func EditExercise(log *records.Log, routineType string, id int, def records.ExerciseDefinition, today records.Date) (Change, error) {
	if err := validate(def); err != nil {
		return Change{}, err
	}
	tmpl, err := template(log, routineType)
	if err != nil {
		return Change{}, err
	}
	i := indexOf(tmpl, id)
	if i < 0 {
		return Change{}, fmt.Errorf("%w: %s/%d", ErrDefinitionNotFound, routineType, id)
	}

	def.ID = id
	tmpl.Exercises[i] = def
	return commitTemplate(log, routineType, tmpl, today), nil
}

func DeleteExercise(log *records.Log, routineType string, id int, today records.Date) (Change, error) {
	tmpl, err := template(log, routineType)
	if err != nil {
		return Change{}, err
	}
	i := indexOf(tmpl, id)
	if i < 0 {
		return Change{}, fmt.Errorf("%w: %s/%d", ErrDefinitionNotFound, routineType, id)
	}

	tmpl.Exercises = append(tmpl.Exercises[:i], tmpl.Exercises[i+1:]...)
	return commitTemplate(log, routineType, tmpl, today), nil
}

// MoveExercise moves a definition up (negative delta) or down the routine. Moving past
// either end clamps.
func MoveExercise(log *records.Log, routineType string, id int, delta int, today records.Date) (Change, error) {
	tmpl, err := template(log, routineType)
	if err != nil {
		return Change{}, err
	}
	i := indexOf(tmpl, id)
	if i < 0 {
		return Change{}, fmt.Errorf("%w: %s/%d", ErrDefinitionNotFound, routineType, id)
	}

	j := i + delta
	if j < 0 {
		j = 0
	}
	if j > len(tmpl.Exercises)-1 {
		j = len(tmpl.Exercises) - 1
	}
	if i == j {
		return Change{}, nil
	}

	def := tmpl.Exercises[i]
	tmpl.Exercises = append(tmpl.Exercises[:i], tmpl.Exercises[i+1:]...)
	tmpl.Exercises = append(tmpl.Exercises[:j], append([]records.ExerciseDefinition{def}, tmpl.Exercises[j:]...)...)
	return commitTemplate(log, routineType, tmpl, today), nil
}

// Propagate re-derives today's exercise instances from the routine template, if today's
// workout is of that routine type. Instances are matched by id, then by name; matched
// instances keep their entered values while their set sequences are grown with drafts or
// truncated from the end. It reports whether today's workout was rewritten.
func Propagate(log *records.Log, routineType string, today records.Date) bool {
	w, ok := log.Workout(today)
	if !ok || w.RoutineType != routineType {
		return false
	}
	tmpl, ok := log.Routines[routineType]
	if !ok {
		return false
	}

	used := make([]bool, len(w.Exercises))
	match := func(def records.ExerciseDefinition) (records.ExerciseInstance, bool) {
		for i, ex := range w.Exercises {
			if !used[i] && ex.ID == def.ID {
				used[i] = true
				return ex, true
			}
		}
		for i, ex := range w.Exercises {
			if !used[i] && ex.Name == def.Name {
				used[i] = true
				return ex, true
			}
		}
		return records.ExerciseInstance{}, false
	}

	rebuilt := w.Clone()
	rebuilt.Exercises = make([]records.ExerciseInstance, 0, len(tmpl.Exercises))
	for _, def := range tmpl.Exercises {
		ex, found := match(def)
		if !found {
			rebuilt.Exercises = append(rebuilt.Exercises, records.NewExerciseInstance(def, log.NoteFor(def)))
			continue
		}
		ex = ex.Clone()
		ex.ID = def.ID
		ex.Name = def.Name
		ex.WarmupSets = resize(ex.WarmupSets, def.WarmupSets)
		ex.WorkSets = resize(ex.WorkSets, def.WorkSets)
		rebuilt.Exercises = append(rebuilt.Exercises, ex)
	}

	log.SetWorkout(today, rebuilt)
	return true
}

func resize(sets []records.Set, n int) []records.Set {
	if n < 0 {
		n = 0
	}
	if len(sets) >= n {
		return sets[:n]
	}
	return append(sets, records.NewDraftSets(n-len(sets))...)
}
