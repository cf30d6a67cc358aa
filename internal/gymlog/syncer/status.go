package syncer

import (
	"context"
	"errors"
	"net"

	"github.com/2beens/gymlog/internal/remote"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusChecking  Status = "checking"
	StatusSyncing   Status = "syncing"
	StatusSynced    Status = "synced"
	StatusNoChanges Status = "no-changes"
	StatusFailed    Status = "failed"
)

// FailureKind keeps "no data" apart from the different ways a remote operation can fail.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureNetwork      FailureKind = "network"
	FailureConflict     FailureKind = "conflict"
	FailureAuth         FailureKind = "auth"
	FailureMalformed    FailureKind = "malformed"
	FailureHost         FailureKind = "host"
	FailureLocal        FailureKind = "local"
	FailureNotConnected FailureKind = "not-connected"
)

func classify(err error) FailureKind {
	var netErr net.Error
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, remote.ErrConflict):
		return FailureConflict
	case errors.Is(err, remote.ErrUnauthorized):
		return FailureAuth
	case errors.Is(err, remote.ErrMalformed):
		return FailureMalformed
	case errors.Is(err, remote.ErrNotConnected):
		return FailureNotConnected
	case errors.Is(err, remote.ErrUnreachable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr):
		return FailureNetwork
	default:
		return FailureHost
	}
}

// Resource is one independently versioned remote document the engine pushes.
type Resource string

const (
	ResourceWorkouts Resource = "workouts"
	ResourceRoutines Resource = "routines"
)

var resources = []Resource{ResourceWorkouts, ResourceRoutines}

func (r Resource) path() string {
	if r == ResourceRoutines {
		return remote.RoutinesPath
	}
	return remote.WorkoutsPath
}

type Outcome string

const (
	OutcomePushed    Outcome = "pushed"
	OutcomeNoChanges Outcome = "no-changes"
	OutcomeFailed    Outcome = "failed"
)

// Result is the outcome of a single push.
type Result struct {
	Resource Resource    `json:"resource"`
	Outcome  Outcome     `json:"outcome"`
	Failure  FailureKind `json:"failure,omitempty"`
	Version  string      `json:"version,omitempty"`
	Err      error       `json:"-"`
}

func failed(res Resource, kind FailureKind, err error) Result {
	return Result{Resource: res, Outcome: OutcomeFailed, Failure: kind, Err: err}
}
