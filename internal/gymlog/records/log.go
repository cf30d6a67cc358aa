package records

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrFutureDate       = errors.New("date is in the future")
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrSetNotFound      = errors.New("set not found")
	ErrUnknownRoutine   = errors.New("unknown routine type")
)

// Log is the Record Log: every workout by date, the exercise note index, the routine
// templates and the phases read from the companion data set.
type Log struct {
	Workouts map[Date]Workout
	Notes    map[string]string
	Routines Routines
	Phases   []Phase
}

func NewLog() *Log {
	return &Log{
		Workouts: make(map[Date]Workout),
		Notes:    make(map[string]string),
		Routines: DefaultRoutines(),
	}
}

// WorkoutPayload is the synchronized workout+note document.
type WorkoutPayload struct {
	Workouts map[Date]Workout  `json:"workouts"`
	Notes    map[string]string `json:"notes"`
}

func (l *Log) Payload() WorkoutPayload {
	return WorkoutPayload{
		Workouts: l.Workouts,
		Notes:    l.Notes,
	}
}

func (l *Log) Clone() *Log {
	c := &Log{
		Workouts: make(map[Date]Workout, len(l.Workouts)),
		Notes:    make(map[string]string, len(l.Notes)),
		Routines: l.Routines.Clone(),
		Phases:   append([]Phase(nil), l.Phases...),
	}
	for d, w := range l.Workouts {
		c.Workouts[d] = w.Clone()
	}
	for k, v := range l.Notes {
		c.Notes[k] = v
	}
	return c
}

// Dates returns all workout dates, oldest first.
func (l *Log) Dates() []Date {
	dates := make([]Date, 0, len(l.Workouts))
	for d := range l.Workouts {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates
}

func (l *Log) Workout(d Date) (Workout, bool) {
	w, ok := l.Workouts[d]
	return w, ok
}

func (l *Log) SetWorkout(d Date, w Workout) {
	if l.Workouts == nil {
		l.Workouts = make(map[Date]Workout)
	}
	l.Workouts[d] = w
}

func (l *Log) DeleteWorkout(d Date) error {
	if _, ok := l.Workouts[d]; !ok {
		return ErrWorkoutNotFound
	}
	delete(l.Workouts, d)
	return nil
}

// NextRoutineType is the routine type following the most recent workout's type, in program order.
func (l *Log) NextRoutineType() string {
	types := l.Routines.Types()
	if len(types) == 0 {
		return ""
	}

	dates := l.Dates()
	if len(dates) == 0 {
		return types[0]
	}

	last := l.Workouts[dates[len(dates)-1]].RoutineType
	for i, t := range types {
		if t == last {
			return types[(i+1)%len(types)]
		}
	}
	return types[0]
}

// NewWorkout derives a fresh draft workout from a routine template. Instances start with the
// indexed note for their exercise name, falling back to the template note.
func (l *Log) NewWorkout(routineType string) (Workout, error) {
	tmpl, ok := l.Routines[routineType]
	if !ok {
		return Workout{}, fmt.Errorf("%w: %q", ErrUnknownRoutine, routineType)
	}

	w := Workout{
		RoutineType: routineType,
		Exercises:   make([]ExerciseInstance, 0, len(tmpl.Exercises)),
	}
	for _, def := range tmpl.Exercises {
		w.Exercises = append(w.Exercises, NewExerciseInstance(def, l.NoteFor(def)))
	}
	return w, nil
}

func (l *Log) NoteFor(def ExerciseDefinition) string {
	if n, ok := l.Notes[def.Name]; ok && n != "" {
		return n
	}
	return def.Note
}

// EnsureWorkout returns the workout of day d. Today's workout is created from the next
// routine on first read; other days are never materialized.
func (l *Log) EnsureWorkout(d, today Date) (_ Workout, created bool, _ error) {
	if today < d {
		return Workout{}, false, ErrFutureDate
	}
	if w, ok := l.Workouts[d]; ok {
		return w, false, nil
	}
	if d != today {
		return Workout{}, false, ErrWorkoutNotFound
	}

	w, err := l.NewWorkout(l.NextRoutineType())
	if err != nil {
		return Workout{}, false, err
	}
	l.SetWorkout(d, w)
	return w, true, nil
}

// PreviousSession returns the exercise as performed in the most recent workout before
// the given date in which it has any entered value.
func (l *Log) PreviousSession(name string, before Date) (ExerciseInstance, Date, bool) {
	dates := l.Dates()
	for i := len(dates) - 1; i >= 0; i-- {
		d := dates[i]
		if d >= before {
			continue
		}
		ex, ok := l.Workouts[d].Exercise(name)
		if ok && ex.HasValues() {
			return ex, d, true
		}
	}
	return ExerciseInstance{}, "", false
}
