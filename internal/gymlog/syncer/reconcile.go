package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/remote"
	"github.com/2beens/gymlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

// Remote is what a load managed to read. A nil field was not available; the matching
// failure kind in LoadResult tells whether it is absent or unreachable.
type Remote struct {
	Workouts *records.WorkoutPayload
	Routines records.Routines
	Phases   []records.Phase
}

// ApplyFunc folds a load into the live Record Log and persists it. It reports whether the
// local workouts carried changes the remote did not have, in which case the merged log
// must be pushed.
type ApplyFunc func(ctx context.Context, r Remote) (pushWorkouts bool, err error)

type LoadResult struct {
	Workouts FailureKind `json:"workouts,omitempty"`
	Routines FailureKind `json:"routines,omitempty"`
	Phases   FailureKind `json:"phases,omitempty"`
	Merged   bool        `json:"merged"`
	Push     *Result     `json:"push,omitempty"`
	Err      error       `json:"-"`
}

// Reconcile merges a local workout payload into the remote one. When any local date is
// missing remotely or differs from it, local is overlaid onto remote (local wins per date
// and per note) and true is returned. Otherwise the remote payload is adopted as is.
func Reconcile(local, rem records.WorkoutPayload) (records.WorkoutPayload, bool) {
	changed := false
	for d, w := range local.Workouts {
		rw, ok := rem.Workouts[d]
		if !ok || !sameJSON(w, rw) {
			changed = true
			break
		}
	}

	if !changed {
		adopted := records.WorkoutPayload{
			Workouts: make(map[records.Date]records.Workout, len(rem.Workouts)),
			Notes:    make(map[string]string, len(rem.Notes)),
		}
		for d, w := range rem.Workouts {
			adopted.Workouts[d] = w.Clone()
		}
		for k, v := range rem.Notes {
			adopted.Notes[k] = v
		}
		return adopted, false
	}

	merged := records.WorkoutPayload{
		Workouts: make(map[records.Date]records.Workout, len(rem.Workouts)+len(local.Workouts)),
		Notes:    make(map[string]string, len(rem.Notes)+len(local.Notes)),
	}
	for d, w := range rem.Workouts {
		merged.Workouts[d] = w.Clone()
	}
	for d, w := range local.Workouts {
		merged.Workouts[d] = w.Clone()
	}
	for k, v := range rem.Notes {
		merged.Notes[k] = v
	}
	for k, v := range local.Notes {
		merged.Notes[k] = v
	}
	return merged, true
}

func sameJSON(a, b any) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

// Load reads the remote workouts, routines and phases, hands them to apply and, when apply
// asks for it, pushes the merged workouts once. Remote failures are logged and reported,
// never returned: local data stays usable.
func (e *Engine) Load(ctx context.Context, apply ApplyFunc) (res LoadResult) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "syncer.load")
	defer func() {
		outcome := "ok"
		switch {
		case res.Err != nil:
			outcome = "failed"
		case res.Workouts != FailureNone:
			outcome = string(res.Workouts)
		case res.Merged:
			outcome = "merged"
		}
		e.metrics.CounterLoads.WithLabelValues(outcome).Inc()
		tracing.EndSpanWithErrCheck(span, res.Err)
	}()

	e.mutex.Lock()
	host, phasesHost := e.host, e.phasesHost
	e.mutex.Unlock()

	var r Remote
	if host == nil {
		res.Workouts = FailureNotConnected
		res.Routines = FailureNotConnected
	} else {
		e.setStatus(StatusChecking, FailureNone, nil)
		r.Workouts, res.Workouts = fetchWorkouts(ctx, host)
		r.Routines, res.Routines = fetchRoutines(ctx, host)
	}
	if phasesHost == nil {
		res.Phases = FailureNotConnected
	} else {
		r.Phases, res.Phases = fetchPhases(ctx, phasesHost)
	}

	push, err := apply(ctx, r)
	if err != nil {
		res.Err = fmt.Errorf("apply remote data: %w", err)
		log.Errorf("syncer: %s", res.Err)
		e.setStatus(StatusFailed, FailureLocal, res.Err)
		return res
	}
	res.Merged = push

	if push {
		log.Infof("syncer: local workouts ahead of remote, pushing merged log")
		pushed := e.Push(ctx, ResourceWorkouts)
		res.Push = &pushed
		return res
	}

	if host != nil {
		if res.Workouts == FailureNone {
			e.touchLastSync(ctx)
			e.setStatus(StatusSynced, FailureNone, nil)
		} else {
			e.setStatus(StatusFailed, res.Workouts, nil)
		}
	}
	return res
}

func fetchWorkouts(ctx context.Context, host remote.BlobHost) (*records.WorkoutPayload, FailureKind) {
	blob, err := host.Fetch(ctx, remote.WorkoutsPath)
	if errors.Is(err, remote.ErrNotFound) {
		return &records.WorkoutPayload{
			Workouts: make(map[records.Date]records.Workout),
			Notes:    make(map[string]string),
		}, FailureNone
	}
	if err != nil {
		kind := classify(err)
		log.Warnf("syncer: load workouts (%s): %s", kind, err)
		return nil, kind
	}

	var p records.WorkoutPayload
	if err := json.Unmarshal(blob.Content, &p); err != nil {
		log.Warnf("syncer: load workouts: malformed payload: %s", err)
		return nil, FailureMalformed
	}
	if p.Workouts == nil {
		p.Workouts = make(map[records.Date]records.Workout)
	}
	if p.Notes == nil {
		p.Notes = make(map[string]string)
	}
	return &p, FailureNone
}

func fetchRoutines(ctx context.Context, host remote.BlobHost) (records.Routines, FailureKind) {
	blob, err := host.Fetch(ctx, remote.RoutinesPath)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, FailureNone
	}
	if err != nil {
		kind := classify(err)
		log.Warnf("syncer: load routines (%s): %s", kind, err)
		return nil, kind
	}

	var routines records.Routines
	if err := json.Unmarshal(blob.Content, &routines); err != nil {
		log.Warnf("syncer: load routines: malformed payload: %s", err)
		return nil, FailureMalformed
	}
	return routines, FailureNone
}

func fetchPhases(ctx context.Context, host remote.BlobHost) ([]records.Phase, FailureKind) {
	blob, err := host.Fetch(ctx, remote.PhasesPath)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, FailureNone
	}
	if err != nil {
		kind := classify(err)
		log.Warnf("syncer: load phases (%s): %s", kind, err)
		return nil, kind
	}

	var p records.PhasesPayload
	if err := json.Unmarshal(blob.Content, &p); err != nil {
		log.Warnf("syncer: load phases: malformed payload: %s", err)
		return nil, FailureMalformed
	}
	return p.Phases, FailureNone
}
