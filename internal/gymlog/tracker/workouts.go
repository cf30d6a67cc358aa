package tracker

import (
	"context"

	"github.com/2beens/gymlog/internal/gymlog/commit"
	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/syncer"

	log "github.com/sirupsen/logrus"
)

// Workout returns the workout of day d, creating today's from the next routine on first
// read. A created workout is persisted locally; it reaches the remote with the next push.
func (t *Tracker) Workout(ctx context.Context, d records.Date) (records.Workout, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	w, created, err := t.log.EnsureWorkout(d, t.Today())
	if err != nil {
		return records.Workout{}, err
	}
	if created {
		log.Debugf("tracker: materialized %s workout for %s", w.RoutineType, d)
		if err := t.store.SaveWorkouts(ctx, t.log.Payload()); err != nil {
			log.Errorf("tracker: persist new workout: %s", err)
		}
	}
	return w.Clone(), nil
}

// transition runs a commit operation on day d and carries out its effect. The in-memory
// log keeps the change even when persisting fails.
func (t *Tracker) transition(ctx context.Context, operation string, d records.Date, op func(l *records.Log) (commit.Effect, error)) (records.Workout, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, _, err := t.log.EnsureWorkout(d, t.Today()); err != nil {
		return records.Workout{}, err
	}
	eff, err := op(t.log)
	if err != nil {
		return records.Workout{}, err
	}
	t.metrics.CounterSetTransitions.WithLabelValues(operation).Inc()

	if eff.Persist {
		if err := t.persistWorkouts(ctx); err != nil {
			return records.Workout{}, err
		}
	}
	if eff.ForceSync {
		t.engine.PushNow(syncer.ResourceWorkouts)
	}

	w, _ := t.log.Workout(d)
	return w.Clone(), nil
}

func (t *Tracker) EditField(ctx context.Context, slot commit.Slot, field commit.Field, value string) (records.Workout, error) {
	return t.transition(ctx, "edit", slot.Date, func(l *records.Log) (commit.Effect, error) {
		return commit.EditField(l, slot, field, value)
	})
}

func (t *Tracker) Adjust(ctx context.Context, slot commit.Slot, field commit.Field, direction int) (records.Workout, error) {
	return t.transition(ctx, "adjust", slot.Date, func(l *records.Log) (commit.Effect, error) {
		return commit.Adjust(l, slot, field, direction, t.weights)
	})
}

func (t *Tracker) Toggle(ctx context.Context, slot commit.Slot) (records.Workout, error) {
	return t.transition(ctx, "toggle", slot.Date, func(l *records.Log) (commit.Effect, error) {
		return commit.Toggle(l, slot)
	})
}

func (t *Tracker) CopyFromPreviousSet(ctx context.Context, slot commit.Slot) (records.Workout, error) {
	return t.transition(ctx, "copy", slot.Date, func(l *records.Log) (commit.Effect, error) {
		return commit.CopyFromPreviousSet(l, slot)
	})
}

// FinishWorkout commits the session and pushes it right away.
func (t *Tracker) FinishWorkout(ctx context.Context, d records.Date, exerciseIdx int) (records.Workout, error) {
	w, err := t.transition(ctx, "finish", d, func(l *records.Log) (commit.Effect, error) {
		return commit.FinishWorkout(l, d, exerciseIdx)
	})
	if err == nil {
		t.metrics.CounterFinishedWorkouts.Inc()
		log.Infof("tracker: workout %s finished", d)
	}
	return w, err
}

func (t *Tracker) ReopenWorkout(ctx context.Context, d records.Date) (records.Workout, error) {
	return t.transition(ctx, "reopen", d, func(l *records.Log) (commit.Effect, error) {
		return commit.ReopenWorkout(l, d)
	})
}

func (t *Tracker) UpdateNote(ctx context.Context, d records.Date, exerciseIdx int, note string) (records.Workout, error) {
	return t.transition(ctx, "note", d, func(l *records.Log) (commit.Effect, error) {
		return commit.UpdateNote(l, d, exerciseIdx, note)
	})
}

func (t *Tracker) SwitchRoutine(ctx context.Context, d records.Date, routineType string, confirm bool) (records.Workout, error) {
	return t.transition(ctx, "switch", d, func(l *records.Log) (commit.Effect, error) {
		return commit.SwitchRoutine(l, d, routineType, confirm)
	})
}

func (t *Tracker) DeleteWorkout(ctx context.Context, d records.Date) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	eff, err := commit.DeleteWorkout(t.log, d)
	if err != nil {
		return err
	}
	t.metrics.CounterSetTransitions.WithLabelValues("delete").Inc()
	if eff.Persist {
		return t.persistWorkouts(ctx)
	}
	return nil
}
