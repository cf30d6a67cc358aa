package tracker

import (
	"time"

	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/stats"
)

func (t *Tracker) Overview() stats.Overview {
	var o stats.Overview
	t.View(func(l *records.Log, today records.Date) {
		o = t.analyzer.Overview(l, today)
	})
	return o
}

func (t *Tracker) Day(d records.Date) (stats.DaySummary, bool) {
	var (
		s  stats.DaySummary
		ok bool
	)
	t.View(func(l *records.Log, _ records.Date) {
		s, ok = t.analyzer.Day(l, d)
	})
	return s, ok
}

func (t *Tracker) Calendar(year int, month time.Month) []stats.CalendarDay {
	var days []stats.CalendarDay
	t.View(func(l *records.Log, _ records.Date) {
		days = t.analyzer.Calendar(l, year, month)
	})
	return days
}

func (t *Tracker) ExerciseHistory(name string) []stats.HistoryPoint {
	var h []stats.HistoryPoint
	t.View(func(l *records.Log, _ records.Date) {
		h = t.analyzer.ExerciseHistory(l, name)
	})
	return h
}

// PersonalRecord is the record of an exercise over everything logged up to and including
// today.
func (t *Tracker) PersonalRecord(name string) stats.Record {
	var r stats.Record
	t.View(func(l *records.Log, today records.Date) {
		r = t.analyzer.PersonalRecord(l, name, today.AddDays(1))
	})
	return r
}

// SetPR marks a committed work set that beats the record set before its day.
type SetPR struct {
	Exercise int          `json:"exercise"`
	Set      int          `json:"set"`
	Kind     stats.PRKind `json:"kind"`
}

func (t *Tracker) PRFlags(d records.Date) []SetPR {
	var prs []SetPR
	t.View(func(l *records.Log, _ records.Date) {
		w, ok := l.Workout(d)
		if !ok {
			return
		}
		for i, ex := range w.Exercises {
			for j := range ex.WorkSets {
				if kind := t.analyzer.SetPRFlag(l, d, i, records.WorkSet, j); kind != stats.NoPR {
					prs = append(prs, SetPR{Exercise: i, Set: j, Kind: kind})
				}
			}
		}
	})
	return prs
}
