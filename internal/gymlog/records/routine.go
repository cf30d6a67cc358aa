package records

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Unit string

const (
	Kilograms Unit = "kg"
	Pounds    Unit = "lb"
)

type Equipment string

const (
	Barbell    Equipment = "barbell"
	Dumbbell   Equipment = "dumbbell"
	Machine    Equipment = "machine"
	Cable      Equipment = "cable"
	Bodyweight Equipment = "bodyweight"
)

const (
	DefaultIncrement = 2.5
	DefaultBarWeight = 20
)

type ExerciseDefinition struct {
	ID          int       `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	WarmupSets  int       `json:"warmupSets" yaml:"warmupSets"`
	WorkSets    int       `json:"workSets" yaml:"workSets"`
	Reps        string    `json:"reps" yaml:"reps"`
	Note        string    `json:"notes" yaml:"notes"`
	Unit        Unit      `json:"unit,omitempty" yaml:"unit,omitempty"`
	Equipment   Equipment `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	StartWeight float64   `json:"startWeight,omitempty" yaml:"startWeight,omitempty"`
	Increment   float64   `json:"increment,omitempty" yaml:"increment,omitempty"`
	BarWeight   float64   `json:"barWeight,omitempty" yaml:"barWeight,omitempty"`
}

// RepRange parses the target rep range ("5-8" or "8").
func (d ExerciseDefinition) RepRange() (min, max int) {
	parts := strings.SplitN(d.Reps, "-", 2)
	min, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	max = min
	if len(parts) == 2 {
		max, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	if max < min {
		max = min
	}
	return min, max
}

func (d ExerciseDefinition) UnitOr(base Unit) Unit {
	if d.Unit == "" {
		return base
	}
	return d.Unit
}

func (d ExerciseDefinition) IncrementOrDefault() float64 {
	if d.Increment <= 0 {
		return DefaultIncrement
	}
	return d.Increment
}

func (d ExerciseDefinition) BarWeightOrDefault() float64 {
	if d.Equipment != Barbell {
		return 0
	}
	if d.BarWeight <= 0 {
		return DefaultBarWeight
	}
	return d.BarWeight
}

type RoutineTemplate struct {
	Name      string               `json:"name" yaml:"name"`
	Order     int                  `json:"order,omitempty" yaml:"order,omitempty"`
	Exercises []ExerciseDefinition `json:"exercises" yaml:"exercises"`
}

// Routines maps a routine type ("push", "pull") to its template.
type Routines map[string]RoutineTemplate

// Types returns routine types in program order.
func (r Routines) Types() []string {
	types := make([]string, 0, len(r))
	for t := range r {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		oi, oj := r[types[i]].Order, r[types[j]].Order
		if oi != oj {
			return oi < oj
		}
		return types[i] < types[j]
	})
	return types
}

func (r Routines) Clone() Routines {
	c := make(Routines, len(r))
	for t, tmpl := range r {
		tmpl.Exercises = append([]ExerciseDefinition(nil), tmpl.Exercises...)
		c[t] = tmpl
	}
	return c
}

// Definition looks up an exercise definition of a routine, by id first and by name second.
func (r Routines) Definition(routineType string, id int, name string) (ExerciseDefinition, bool) {
	tmpl, ok := r[routineType]
	if !ok {
		return ExerciseDefinition{}, false
	}
	for _, def := range tmpl.Exercises {
		if def.ID == id && def.Name == name {
			return def, true
		}
	}
	for _, def := range tmpl.Exercises {
		if def.Name == name {
			return def, true
		}
	}
	return ExerciseDefinition{}, false
}

// DefinitionByName searches all routines for an exercise name.
func (r Routines) DefinitionByName(name string) (ExerciseDefinition, bool) {
	for _, t := range r.Types() {
		for _, def := range r[t].Exercises {
			if def.Name == name {
				return def, true
			}
		}
	}
	return ExerciseDefinition{}, false
}

func DefaultRoutines() Routines {
	return Routines{
		"push": {
			Name:  "Push",
			Order: 0,
			Exercises: []ExerciseDefinition{
				{ID: 1, Name: "Incline Chest Press", WarmupSets: 2, WorkSets: 3, Reps: "3-15", Equipment: Machine},
				{ID: 2, Name: "Butterfly", WarmupSets: 1, WorkSets: 2, Reps: "5-8", Equipment: Machine},
				{ID: 3, Name: "Lateral Raise Machine", WarmupSets: 1, WorkSets: 2, Reps: "5-8", Equipment: Machine},
				{ID: 4, Name: "Triceps Cable Pushdowns", WarmupSets: 1, WorkSets: 2, Reps: "5-8", Equipment: Cable},
				{ID: 5, Name: "Seated Leg Extensions", WarmupSets: 1, WorkSets: 3, Reps: "5-10", Equipment: Machine},
				{ID: 6, Name: "Standing Calf Raises", WarmupSets: 1, WorkSets: 3, Reps: "5-15", Equipment: Machine},
				{ID: 7, Name: "Crunch Cable", WarmupSets: 0, WorkSets: 3, Reps: "8", Equipment: Cable},
			},
		},
		"pull": {
			Name:  "Pull",
			Order: 1,
			Exercises: []ExerciseDefinition{
				{ID: 1, Name: "Lat Pulldown", WarmupSets: 2, WorkSets: 2, Reps: "5-15", Equipment: Cable},
				{ID: 2, Name: "RDL", WarmupSets: 2, WorkSets: 2, Reps: "5-10", Equipment: Barbell, BarWeight: DefaultBarWeight},
				{ID: 3, Name: "Upper Back Row (gray)", WarmupSets: 1, WorkSets: 2, Reps: "5-8", Equipment: Machine},
				{ID: 4, Name: "Low Machine Row", WarmupSets: 0, WorkSets: 2, Reps: "4-5", Equipment: Machine},
				{ID: 5, Name: "Reverse Butterfly", WarmupSets: 1, WorkSets: 1, Reps: "5-8", Equipment: Machine},
				{ID: 6, Name: "Preacher Curl", WarmupSets: 1, WorkSets: 2, Reps: "5-10", Equipment: Machine},
				{ID: 7, Name: "Seated Leg Curl", WarmupSets: 1, WorkSets: 3, Reps: "4-15", Equipment: Machine},
				{ID: 8, Name: "Hip Adduction", WarmupSets: 1, WorkSets: 3, Reps: "5-15", Equipment: Machine},
			},
		},
	}
}

// LoadRoutinesYAML reads routine templates from a YAML seed file.
func LoadRoutinesYAML(path string) (Routines, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routines file: %w", err)
	}

	var routines Routines
	if err := yaml.Unmarshal(data, &routines); err != nil {
		return nil, fmt.Errorf("parse routines file: %w", err)
	}
	if len(routines) == 0 {
		return nil, fmt.Errorf("routines file %s has no routines", path)
	}
	return routines, nil
}
