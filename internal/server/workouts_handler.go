package server

import (
	"net/http"

	"github.com/2beens/gymlog/internal/gymlog/commit"
	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/tracker"
	"github.com/2beens/gymlog/pkg"

	"github.com/gorilla/mux"
)

type WorkoutResponse struct {
	Date    records.Date    `json:"date"`
	Workout records.Workout `json:"workout"`
	Records []tracker.SetPR `json:"records"`
}

type fieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type adjustRequest struct {
	Field     string `json:"field"`
	Direction int    `json:"direction"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type finishRequest struct {
	Exercise int `json:"exercise"`
}

type switchRoutineRequest struct {
	Type    string `json:"type"`
	Confirm bool   `json:"confirm"`
}

type WorkoutsHandler struct {
	tracker *tracker.Tracker
}

func NewWorkoutsHandler(tracker *tracker.Tracker) *WorkoutsHandler {
	return &WorkoutsHandler{tracker: tracker}
}

func (h *WorkoutsHandler) SetupRoutes(r *mux.Router) {
	const setPath = "/workouts/{date}/exercises/{idx:[0-9]+}/sets/{kind}/{set:[0-9]+}"

	r.HandleFunc("/workouts/{date}", h.HandleGet).Methods("GET", "OPTIONS").Name("get-workout")
	r.HandleFunc("/workouts/{date}", h.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")
	r.HandleFunc(setPath, h.HandleEditField).Methods("PUT", "OPTIONS").Name("edit-set")
	r.HandleFunc(setPath+"/adjust", h.HandleAdjust).Methods("POST", "OPTIONS").Name("adjust-set")
	r.HandleFunc(setPath+"/toggle", h.HandleToggle).Methods("POST", "OPTIONS").Name("toggle-set")
	r.HandleFunc(setPath+"/copy-previous", h.HandleCopyPrevious).Methods("POST", "OPTIONS").Name("copy-previous-set")
	r.HandleFunc("/workouts/{date}/exercises/{idx:[0-9]+}/note", h.HandleNote).Methods("PUT", "OPTIONS").Name("update-note")
	r.HandleFunc("/workouts/{date}/finish", h.HandleFinish).Methods("POST", "OPTIONS").Name("finish-workout")
	r.HandleFunc("/workouts/{date}/reopen", h.HandleReopen).Methods("POST", "OPTIONS").Name("reopen-workout")
	r.HandleFunc("/workouts/{date}/routine", h.HandleSwitchRoutine).Methods("POST", "OPTIONS").Name("switch-routine")
}

func (h *WorkoutsHandler) respond(w http.ResponseWriter, r *http.Request, workout records.Workout, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, _ := pathDate(r)
	prs := h.tracker.PRFlags(d)
	if prs == nil {
		prs = []tracker.SetPR{}
	}
	pkg.WriteJSONOK(w, WorkoutResponse{
		Date:    d,
		Workout: workout,
		Records: prs,
	})
}

func (h *WorkoutsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	d, err := pathDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	workout, err := h.tracker.Workout(r.Context(), d)
	h.respond(w, r, workout, err)
}

func (h *WorkoutsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	d, err := pathDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tracker.DeleteWorkout(r.Context(), d); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WorkoutsHandler) HandleEditField(w http.ResponseWriter, r *http.Request) {
	slot, err := pathSlot(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fieldRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	field, err := commit.ParseField(req.Field)
	if err != nil {
		writeError(w, r, err)
		return
	}
	workout, err := h.tracker.EditField(r.Context(), slot, field, req.Value)
	h.respond(w, r, workout, err)
}

func (h *WorkoutsHandler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	slot, err := pathSlot(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req adjustRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	field, err := commit.ParseField(req.Field)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Direction == 0 {
		writeError(w, r, errBadRequest)
		return
	}
	workout, err := h.tracker.Adjust(r.Context(), slot, field, req.Direction)
	h.respond(w, r, workout, err)
}

func (h *WorkoutsHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	slot, err := pathSlot(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	workout, err := h.tracker.Toggle(r.Context(), slot)
	h.respond(w, r, workout, err)
}

func (h *WorkoutsHandler) HandleCopyPrevious(w http.ResponseWriter, r *http.Request) {
	slot, err := pathSlot(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	workout, err := h.tracker.CopyFromPreviousSet(r.Context(), slot)
	h.respond(w, r, workout, err)
}

func (h *WorkoutsHandler) HandleNote(w http.ResponseWriter, r *http.Request) {
	d, err := pathDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	idx, err := pathInt(r, "idx")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req noteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	workout, err := h.tracker.UpdateNote(r.Context(), d, idx, req.Note)
	h.respond(w, r, workout, err)
}

// HandleFinish commits the workout. The body names the exercise the user is on; only the
// last one may finish.
func (h *WorkoutsHandler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	d, err := pathDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req finishRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	workout, err := h.tracker.FinishWorkout(r.Context(), d, req.Exercise)
	h.respond(w, r, workout, err)
}

func (h *WorkoutsHandler) HandleReopen(w http.ResponseWriter, r *http.Request) {
	d, err := pathDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	workout, err := h.tracker.ReopenWorkout(r.Context(), d)
	h.respond(w, r, workout, err)
}

func (h *WorkoutsHandler) HandleSwitchRoutine(w http.ResponseWriter, r *http.Request) {
	d, err := pathDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req switchRoutineRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	workout, err := h.tracker.SwitchRoutine(r.Context(), d, req.Type, req.Confirm)
	h.respond(w, r, workout, err)
}
