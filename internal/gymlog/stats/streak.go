package stats

import (
	"github.com/2beens/gymlog/internal/gymlog/records"
)

// WeeklyStreak counts consecutive complete weeks. A week is complete when it holds a
// counting workout of every routine type of the program. The most recent week is the
// current one, or the previous one when nothing was logged yet this week; it adds to the
// streak when complete but never breaks it. Walking back from the week before it, the
// first incomplete week ends the streak.
func (a *Analyzer) WeeklyStreak(log *records.Log, today records.Date) int {
	weeks := make(map[records.Week]map[string]bool)
	seen := make(map[string]bool)
	for d, w := range log.Workouts {
		if d > today || !w.CountsForStats() {
			continue
		}
		wk := d.Week()
		if weeks[wk] == nil {
			weeks[wk] = make(map[string]bool)
		}
		weeks[wk][w.RoutineType] = true
		seen[w.RoutineType] = true
	}

	required := log.Routines.Types()
	if len(required) == 0 {
		for t := range seen {
			required = append(required, t)
		}
	}
	if len(required) == 0 {
		return 0
	}

	complete := func(wk records.Week) bool {
		types := weeks[wk]
		for _, t := range required {
			if !types[t] {
				return false
			}
		}
		return true
	}

	// weeks are walked through their Mondays so year boundaries need no special casing
	monday := today.AddDays(-(isoWeekday(today) - 1))
	if len(weeks[monday.Week()]) == 0 {
		monday = monday.AddDays(-7)
	}

	streak := 0
	if complete(monday.Week()) {
		streak++
	}
	for m := monday.AddDays(-7); complete(m.Week()); m = m.AddDays(-7) {
		streak++
	}
	return streak
}

func isoWeekday(d records.Date) int {
	wd := int(d.Time().Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DayGapStreak counts counting workouts walking back from today for as long as consecutive
// sessions are at most DayGapLimit days apart.
func DayGapStreak(log *records.Log, today records.Date) int {
	dates := log.Dates()
	streak := 0
	last := today
	for i := len(dates) - 1; i >= 0; i-- {
		d := dates[i]
		if d > today || !log.Workouts[d].CountsForStats() {
			continue
		}
		if d.DaysUntil(last) > DayGapLimit {
			break
		}
		streak++
		last = d
	}
	return streak
}

// SessionsThisYear counts counting workouts in today's calendar year up to today.
func SessionsThisYear(log *records.Log, today records.Date) int {
	year := today.Time().Year()
	n := 0
	for d, w := range log.Workouts {
		if d <= today && d.Time().Year() == year && w.CountsForStats() {
			n++
		}
	}
	return n
}
