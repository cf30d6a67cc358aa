package tracker

import (
	"context"

	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/routines"
)

func (t *Tracker) Routines() records.Routines {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.log.Routines.Clone()
}

// routineEdit persists the routines and, when today's workout was realigned, the workouts.
func (t *Tracker) routineEdit(ctx context.Context, edit func(l *records.Log, today records.Date) (routines.Change, error)) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	change, err := edit(t.log, t.Today())
	if err != nil {
		return err
	}
	if change.Routines {
		if err := t.persistRoutines(ctx); err != nil {
			return err
		}
	}
	if change.Today {
		return t.persistWorkouts(ctx)
	}
	return nil
}

func (t *Tracker) AddExercise(ctx context.Context, routineType string, def records.ExerciseDefinition) (records.ExerciseDefinition, error) {
	var added records.ExerciseDefinition
	err := t.routineEdit(ctx, func(l *records.Log, today records.Date) (routines.Change, error) {
		var (
			change routines.Change
			err    error
		)
		added, change, err = routines.AddExercise(l, routineType, def, today)
		return change, err
	})
	return added, err
}

func (t *Tracker) EditExercise(ctx context.Context, routineType string, id int, def records.ExerciseDefinition) error {
	return t.routineEdit(ctx, func(l *records.Log, today records.Date) (routines.Change, error) {
		return routines.EditExercise(l, routineType, id, def, today)
	})
}

func (t *Tracker) DeleteExercise(ctx context.Context, routineType string, id int) error {
	return t.routineEdit(ctx, func(l *records.Log, today records.Date) (routines.Change, error) {
		return routines.DeleteExercise(l, routineType, id, today)
	})
}

func (t *Tracker) MoveExercise(ctx context.Context, routineType string, id, delta int) error {
	return t.routineEdit(ctx, func(l *records.Log, today records.Date) (routines.Change, error) {
		return routines.MoveExercise(l, routineType, id, delta, today)
	})
}
