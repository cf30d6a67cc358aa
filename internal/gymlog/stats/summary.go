package stats

import (
	"time"

	"github.com/2beens/gymlog/internal/gymlog/records"
)

type PhaseSummary struct {
	Phase       records.Phase `json:"phase"`
	Sessions    int           `json:"sessions"`
	DaysElapsed int           `json:"daysElapsed"`
}

// SummarizePhase counts counting workouts inside the phase range. Days elapsed run from the
// phase start to its end, or to today for the open phase.
func SummarizePhase(log *records.Log, p records.Phase, today records.Date) PhaseSummary {
	sum := PhaseSummary{Phase: p}
	for d, w := range log.Workouts {
		if p.Contains(d) && d <= today && w.CountsForStats() {
			sum.Sessions++
		}
	}
	end := today
	if !p.Open() && p.End < today {
		end = p.End
	}
	if days := p.Start.DaysUntil(end); days > 0 {
		sum.DaysElapsed = days
	}
	return sum
}

type SetSummary struct {
	Kind      records.SetKind `json:"kind"`
	Index     int             `json:"index"`
	Weight    float64         `json:"weight"`
	Reps      int             `json:"reps"`
	OneRepMax float64         `json:"oneRepMax"`
	PR        PRKind          `json:"pr,omitempty"`
}

type ExerciseSummary struct {
	Name      string      `json:"name"`
	Sets      int         `json:"sets"`
	Volume    float64     `json:"volume"`
	Best      *SetSummary `json:"best,omitempty"`
	OneRepMax float64     `json:"oneRepMax"`
}

type DaySummary struct {
	Date        records.Date      `json:"date"`
	RoutineType string            `json:"routineType"`
	Committed   bool              `json:"committed"`
	Volume      float64           `json:"volume"`
	Sets        int               `json:"sets"`
	Reps        int               `json:"reps"`
	Exercises   []ExerciseSummary `json:"exercises"`
}

// Day summarizes the committed sets of one day. Warm-up and work sets both add to volume,
// sets and reps; the best set and its PR flag consider work sets only.
func (a *Analyzer) Day(log *records.Log, d records.Date) (DaySummary, bool) {
	w, ok := log.Workout(d)
	if !ok {
		return DaySummary{}, false
	}

	sum := DaySummary{
		Date:        d,
		RoutineType: w.RoutineType,
		Committed:   w.Committed,
		Exercises:   make([]ExerciseSummary, 0, len(w.Exercises)),
	}
	for _, ex := range w.Exercises {
		def := definitionOf(log, w.RoutineType, ex)
		es := ExerciseSummary{Name: ex.Name}

		add := func(kind records.SetKind, sets []records.Set) {
			for i, s := range sets {
				if !s.IsRecordCandidate() {
					continue
				}
				weight := a.Normalize(def, s.WeightValue())
				reps := s.RepsValue()
				es.Sets++
				es.Volume += weight * float64(reps)
				sum.Reps += reps

				if kind != records.WorkSet {
					continue
				}
				if es.Best == nil || weight > es.Best.Weight || (weight == es.Best.Weight && reps > es.Best.Reps) {
					es.Best = &SetSummary{Kind: kind, Index: i, Weight: weight, Reps: reps, OneRepMax: Epley(weight, reps)}
				}
				if e := Epley(weight, reps); e > es.OneRepMax {
					es.OneRepMax = e
				}
			}
		}
		add(records.WarmupSet, ex.WarmupSets)
		add(records.WorkSet, ex.WorkSets)

		if es.Best != nil {
			es.Best.PR = a.PersonalRecord(log, ex.Name, d).Classify(es.Best.Weight, es.Best.Reps)
		}
		es.Volume = records.Round(es.Volume, 1)
		sum.Sets += es.Sets
		sum.Volume += es.Volume
		sum.Exercises = append(sum.Exercises, es)
	}
	sum.Volume = records.Round(sum.Volume, 1)
	return sum, true
}

type CalendarDay struct {
	Date        records.Date `json:"date"`
	RoutineType string       `json:"routineType"`
	Committed   bool         `json:"committed"`
	Sets        int          `json:"sets"`
	Volume      float64      `json:"volume"`
}

// Calendar lists the logged days of a month.
func (a *Analyzer) Calendar(log *records.Log, year int, month time.Month) []CalendarDay {
	first := records.DateOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
	next := records.DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC))

	days := []CalendarDay{}
	for _, d := range log.Dates() {
		if d < first || d >= next {
			continue
		}
		sum, _ := a.Day(log, d)
		days = append(days, CalendarDay{
			Date:        d,
			RoutineType: sum.RoutineType,
			Committed:   sum.Committed,
			Sets:        sum.Sets,
			Volume:      sum.Volume,
		})
	}
	return days
}

type Overview struct {
	Today            records.Date  `json:"today"`
	TotalSessions    int           `json:"totalSessions"`
	SessionsThisYear int           `json:"sessionsThisYear"`
	WeeklyStreak     int           `json:"weeklyStreak"`
	DayStreak        int           `json:"dayStreak"`
	NextRoutine      string        `json:"nextRoutine"`
	CurrentPhase     *PhaseSummary `json:"currentPhase,omitempty"`
}

func (a *Analyzer) Overview(log *records.Log, today records.Date) Overview {
	o := Overview{
		Today:            today,
		SessionsThisYear: SessionsThisYear(log, today),
		WeeklyStreak:     a.WeeklyStreak(log, today),
		DayStreak:        DayGapStreak(log, today),
		NextRoutine:      log.NextRoutineType(),
	}
	for d, w := range log.Workouts {
		if d <= today && w.CountsForStats() {
			o.TotalSessions++
		}
	}
	if p, ok := records.CurrentPhase(log.Phases); ok {
		ps := SummarizePhase(log, p, today)
		o.CurrentPhase = &ps
	}
	return o
}
