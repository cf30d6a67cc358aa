package server

import (
	"net/http"

	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/tracker"
	"github.com/2beens/gymlog/pkg"

	"github.com/gorilla/mux"
)

type moveRequest struct {
	Delta int `json:"delta"`
}

type RoutinesHandler struct {
	tracker *tracker.Tracker
}

func NewRoutinesHandler(tracker *tracker.Tracker) *RoutinesHandler {
	return &RoutinesHandler{tracker: tracker}
}

func (h *RoutinesHandler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/routines", h.HandleList).Methods("GET", "OPTIONS").Name("list-routines")
	r.HandleFunc("/routines/{type}/exercises", h.HandleAdd).Methods("POST", "OPTIONS").Name("add-routine-exercise")
	r.HandleFunc("/routines/{type}/exercises/{id:[0-9]+}", h.HandleEdit).Methods("PUT", "OPTIONS").Name("edit-routine-exercise")
	r.HandleFunc("/routines/{type}/exercises/{id:[0-9]+}", h.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-routine-exercise")
	r.HandleFunc("/routines/{type}/exercises/{id:[0-9]+}/move", h.HandleMove).Methods("POST", "OPTIONS").Name("move-routine-exercise")
}

func (h *RoutinesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSONOK(w, h.tracker.Routines())
}

func (h *RoutinesHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var def records.ExerciseDefinition
	if err := decodeBody(r, &def); err != nil {
		writeError(w, r, err)
		return
	}
	added, err := h.tracker.AddExercise(r.Context(), mux.Vars(r)["type"], def)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pkg.WriteJSON(w, http.StatusCreated, added)
}

func (h *RoutinesHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var def records.ExerciseDefinition
	if err := decodeBody(r, &def); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tracker.EditExercise(r.Context(), mux.Vars(r)["type"], id, def); err != nil {
		writeError(w, r, err)
		return
	}
	pkg.WriteJSONOK(w, h.tracker.Routines())
}

func (h *RoutinesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tracker.DeleteExercise(r.Context(), mux.Vars(r)["type"], id); err != nil {
		writeError(w, r, err)
		return
	}
	pkg.WriteJSONOK(w, h.tracker.Routines())
}

func (h *RoutinesHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tracker.MoveExercise(r.Context(), mux.Vars(r)["type"], id, req.Delta); err != nil {
		writeError(w, r, err)
		return
	}
	pkg.WriteJSONOK(w, h.tracker.Routines())
}
