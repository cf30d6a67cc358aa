package stats

import (
	"github.com/2beens/gymlog/internal/gymlog/records"
)

// Record is the best weight lifted for an exercise and the most reps done at it.
type Record struct {
	Found  bool         `json:"found"`
	Weight float64      `json:"weight"`
	Reps   int          `json:"reps"`
	Date   records.Date `json:"date,omitempty"`
}

type PRKind string

const (
	NoPR     PRKind = ""
	WeightPR PRKind = "weight"
	RepPR    PRKind = "reps"
)

// PersonalRecord computes the record from committed work sets of committed workouts
// strictly before the given date.
func (a *Analyzer) PersonalRecord(log *records.Log, name string, before records.Date) Record {
	var rec Record
	for _, d := range log.Dates() {
		if d >= before {
			break
		}
		w := log.Workouts[d]
		if !w.Committed {
			continue
		}
		ex, ok := w.Exercise(name)
		if !ok {
			continue
		}
		for _, s := range a.workSets(log, w, ex) {
			rec = rec.update(s, d)
		}
	}
	return rec
}

func (r Record) update(s weighedSet, d records.Date) Record {
	switch {
	case !r.Found || s.Weight > r.Weight:
		return Record{Found: true, Weight: s.Weight, Reps: s.Reps, Date: d}
	case sameWeight(s.Weight, r.Weight) && s.Reps > r.Reps:
		r.Reps = s.Reps
		r.Date = d
	}
	return r
}

// Classify flags a set against the record to date. Any heavier set is a weight PR; a rep PR
// matches the record weight within PREpsilon with more reps.
func (r Record) Classify(weight float64, reps int) PRKind {
	if !r.Found {
		return NoPR
	}
	switch {
	case weight > r.Weight:
		return WeightPR
	case sameWeight(weight, r.Weight) && reps > r.Reps:
		return RepPR
	default:
		return NoPR
	}
}

// SetPRFlag classifies one set of the given day's exercise. Draft and empty sets are never PRs.
func (a *Analyzer) SetPRFlag(log *records.Log, d records.Date, exerciseIdx int, kind records.SetKind, setIdx int) PRKind {
	w, ok := log.Workout(d)
	if !ok || exerciseIdx < 0 || exerciseIdx >= len(w.Exercises) {
		return NoPR
	}
	ex := w.Exercises[exerciseIdx]
	sets, err := ex.Sets(kind)
	if err != nil || kind != records.WorkSet || setIdx < 0 || setIdx >= len(sets) {
		return NoPR
	}
	s := sets[setIdx]
	if !s.IsRecordCandidate() {
		return NoPR
	}

	def := definitionOf(log, w.RoutineType, ex)
	return a.PersonalRecord(log, ex.Name, d).Classify(a.Normalize(def, s.WeightValue()), s.RepsValue())
}

// SessionOneRepMax is the best Epley estimate among the exercise's committed work sets of the day.
func (a *Analyzer) SessionOneRepMax(log *records.Log, d records.Date, name string) float64 {
	w, ok := log.Workout(d)
	if !ok {
		return 0
	}
	ex, ok := w.Exercise(name)
	if !ok {
		return 0
	}
	best := 0.0
	for _, s := range a.workSets(log, w, ex) {
		if e := Epley(s.Weight, s.Reps); e > best {
			best = e
		}
	}
	return best
}

// HistoryPoint is one session of an exercise.
type HistoryPoint struct {
	Date      records.Date `json:"date"`
	TopWeight float64      `json:"topWeight"`
	TopReps   int          `json:"topReps"`
	OneRepMax float64      `json:"oneRepMax"`
	Volume    float64      `json:"volume"`
	RecordAt  Record       `json:"recordAt"`
}

// ExerciseHistory lists the exercise's progression over counting workouts, oldest first.
func (a *Analyzer) ExerciseHistory(log *records.Log, name string) []HistoryPoint {
	points := []HistoryPoint{}
	var rec Record
	for _, d := range log.Dates() {
		w := log.Workouts[d]
		if !w.CountsForStats() {
			continue
		}
		ex, ok := w.Exercise(name)
		if !ok {
			continue
		}
		sets := a.workSets(log, w, ex)
		if len(sets) == 0 {
			continue
		}

		p := HistoryPoint{Date: d}
		for _, s := range sets {
			if s.Weight > p.TopWeight || (s.Weight == p.TopWeight && s.Reps > p.TopReps) {
				p.TopWeight, p.TopReps = s.Weight, s.Reps
			}
			if e := Epley(s.Weight, s.Reps); e > p.OneRepMax {
				p.OneRepMax = e
			}
			p.Volume += s.Weight * float64(s.Reps)
			rec = rec.update(s, d)
		}
		p.Volume = records.Round(p.Volume, 1)
		p.RecordAt = rec
		points = append(points, p)
	}
	return points
}
