package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/2beens/gymlog/internal/gymlog/commit"
	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/routines"
	"github.com/2beens/gymlog/internal/gymlog/tracker"
	"github.com/2beens/gymlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var errBadRequest = errors.New("bad request")

// statusFor maps domain errors onto a status code and a message safe to show.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, records.ErrInvalidDate),
		errors.Is(err, records.ErrUnknownSetKind),
		errors.Is(err, records.ErrFutureDate),
		errors.Is(err, commit.ErrUnknownField),
		errors.Is(err, commit.ErrExerciseOutOfRange),
		errors.Is(err, routines.ErrInvalidDefinition),
		errors.Is(err, tracker.ErrIncompleteAccount):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, records.ErrWorkoutNotFound),
		errors.Is(err, records.ErrExerciseNotFound),
		errors.Is(err, records.ErrSetNotFound),
		errors.Is(err, records.ErrUnknownRoutine),
		errors.Is(err, routines.ErrDefinitionNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, commit.ErrNotLastExercise),
		errors.Is(err, commit.ErrConfirmationRequired):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorf("%s %s: %s", r.Method, r.URL.Path, err)
	} else {
		log.Debugf("%s %s: %s", r.Method, r.URL.Path, err)
	}
	pkg.WriteError(w, status, message)
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %s", errBadRequest, err)
	}
	return nil
}

func pathDate(r *http.Request) (records.Date, error) {
	return records.ParseDate(mux.Vars(r)["date"])
}

func pathInt(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", errBadRequest, name, raw)
	}
	return v, nil
}

// pathSlot reads /workouts/{date}/exercises/{idx}/sets/{kind}/{set}.
func pathSlot(r *http.Request) (commit.Slot, error) {
	d, err := pathDate(r)
	if err != nil {
		return commit.Slot{}, err
	}
	exercise, err := pathInt(r, "idx")
	if err != nil {
		return commit.Slot{}, err
	}
	kind, err := records.ParseSetKind(mux.Vars(r)["kind"])
	if err != nil {
		return commit.Slot{}, err
	}
	set, err := pathInt(r, "set")
	if err != nil {
		return commit.Slot{}, err
	}
	return commit.Slot{Date: d, Exercise: exercise, Kind: kind, Index: set}, nil
}
