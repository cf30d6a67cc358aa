// Package stats derives records, streaks and summaries from the Record Log. Nothing here
// mutates the log and nothing is cached: every figure is computed from the log it is given.
package stats

import (
	"math"

	"github.com/2beens/gymlog/internal/gymlog/records"
)

const (
	// PREpsilon absorbs unit conversion rounding when comparing weights.
	PREpsilon = 0.1
	// DayGapLimit is the largest gap in days that keeps the day streak alive.
	DayGapLimit = 3

	lbToKg = 0.453592
)

type Analyzer struct {
	base records.Unit
}

// NewAnalyzer returns an analyzer comparing weights in the given base unit.
func NewAnalyzer(base records.Unit) *Analyzer {
	if base == "" {
		base = records.Kilograms
	}
	return &Analyzer{base: base}
}

func (a *Analyzer) Base() records.Unit {
	return a.base
}

// Normalize converts a weight entered in the definition's unit to the base unit,
// rounded to one decimal when a conversion happened.
func (a *Analyzer) Normalize(def records.ExerciseDefinition, weight float64) float64 {
	switch unit := def.UnitOr(a.base); {
	case unit == a.base:
		return weight
	case unit == records.Pounds && a.base == records.Kilograms:
		return records.Round(weight*lbToKg, 1)
	case unit == records.Kilograms && a.base == records.Pounds:
		return records.Round(weight/lbToKg, 1)
	default:
		return weight
	}
}

// Epley estimates a one-rep max, rounded to one decimal.
func Epley(weight float64, reps int) float64 {
	if reps <= 0 || weight <= 0 {
		return 0
	}
	return records.Round(weight*(1+float64(reps)/30), 1)
}

func definitionOf(log *records.Log, routineType string, ex records.ExerciseInstance) records.ExerciseDefinition {
	if def, ok := log.Routines.Definition(routineType, ex.ID, ex.Name); ok {
		return def
	}
	if def, ok := log.Routines.DefinitionByName(ex.Name); ok {
		return def
	}
	return records.ExerciseDefinition{ID: ex.ID, Name: ex.Name}
}

// weighedSet is a record candidate with its weight in the base unit.
type weighedSet struct {
	Weight float64
	Reps   int
}

func (a *Analyzer) workSets(log *records.Log, w records.Workout, ex records.ExerciseInstance) []weighedSet {
	def := definitionOf(log, w.RoutineType, ex)
	var out []weighedSet
	for _, s := range ex.WorkSets {
		if !s.IsRecordCandidate() {
			continue
		}
		out = append(out, weighedSet{
			Weight: a.Normalize(def, s.WeightValue()),
			Reps:   s.RepsValue(),
		})
	}
	return out
}

func sameWeight(a, b float64) bool {
	return math.Abs(a-b) <= PREpsilon
}
