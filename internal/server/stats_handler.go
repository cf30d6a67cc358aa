package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/stats"
	"github.com/2beens/gymlog/internal/gymlog/tracker"
	"github.com/2beens/gymlog/pkg"

	"github.com/gorilla/mux"
)

type ExerciseRecordResponse struct {
	Name   string       `json:"name"`
	Record stats.Record `json:"record"`
}

type ExerciseHistoryResponse struct {
	Name    string               `json:"name"`
	History []stats.HistoryPoint `json:"history"`
}

type StatsHandler struct {
	tracker *tracker.Tracker
}

func NewStatsHandler(tracker *tracker.Tracker) *StatsHandler {
	return &StatsHandler{tracker: tracker}
}

func (h *StatsHandler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/stats/overview", h.HandleOverview).Methods("GET", "OPTIONS").Name("stats-overview")
	r.HandleFunc("/stats/day/{date}", h.HandleDay).Methods("GET", "OPTIONS").Name("stats-day")
	r.HandleFunc("/stats/calendar/{year:[0-9]{4}}/{month:[0-9]{1,2}}", h.HandleCalendar).Methods("GET", "OPTIONS").Name("stats-calendar")
	r.HandleFunc("/stats/exercises/{name}/history", h.HandleExerciseHistory).Methods("GET", "OPTIONS").Name("stats-exercise-history")
	r.HandleFunc("/stats/exercises/{name}/record", h.HandleExerciseRecord).Methods("GET", "OPTIONS").Name("stats-exercise-record")
	r.HandleFunc("/phases", h.HandlePhases).Methods("GET", "OPTIONS").Name("list-phases")
}

func (h *StatsHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSONOK(w, h.tracker.Overview())
}

func (h *StatsHandler) HandleDay(w http.ResponseWriter, r *http.Request) {
	d, err := pathDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, ok := h.tracker.Day(d)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: %s", records.ErrWorkoutNotFound, d))
		return
	}
	pkg.WriteJSONOK(w, summary)
}

func (h *StatsHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	year, err := pathInt(r, "year")
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := pathInt(r, "month")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if month < 1 || month > 12 {
		writeError(w, r, fmt.Errorf("%w: month %d", errBadRequest, month))
		return
	}

	days := h.tracker.Calendar(year, time.Month(month))
	if days == nil {
		days = []stats.CalendarDay{}
	}
	pkg.WriteJSONOK(w, days)
}

func (h *StatsHandler) HandleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	history := h.tracker.ExerciseHistory(name)
	if history == nil {
		history = []stats.HistoryPoint{}
	}
	pkg.WriteJSONOK(w, ExerciseHistoryResponse{Name: name, History: history})
}

func (h *StatsHandler) HandleExerciseRecord(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	pkg.WriteJSONOK(w, ExerciseRecordResponse{Name: name, Record: h.tracker.PersonalRecord(name)})
}

func (h *StatsHandler) HandlePhases(w http.ResponseWriter, r *http.Request) {
	phases := h.tracker.Phases()
	if phases == nil {
		phases = []records.Phase{}
	}
	pkg.WriteJSONOK(w, phases)
}
