// Package remote talks to the versioned blob host the Record Log is synchronized with.
package remote

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("remote resource not found")
	ErrConflict     = errors.New("remote version conflict")
	ErrUnauthorized = errors.New("remote credentials rejected")
	ErrUnreachable  = errors.New("remote host unreachable")
	ErrMalformed    = errors.New("malformed remote response")
	ErrNotConnected = errors.New("remote account not connected")
)

// Resource paths of one connected account.
const (
	WorkoutsPath = "workouts.json"
	RoutinesPath = "routines.json"
	PhasesPath   = "data.json"
)

// Account identifies a repository on the blob host and the bearer token to reach it.
type Account struct {
	Token string `json:"token"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func (a Account) Connected() bool {
	return a.Token != "" && a.Owner != "" && a.Repo != ""
}

func (a Account) String() string {
	return fmt.Sprintf("%s/%s", a.Owner, a.Repo)
}

// Blob is a resource's decoded content and the version token it was read at.
type Blob struct {
	Content []byte
	Version string
}

// BlobHost reads resources with their version and replaces them conditionally. Put with an
// empty version creates the resource; otherwise the host rejects it with ErrConflict unless
// version is still current. Put returns the new version.
type BlobHost interface {
	Fetch(ctx context.Context, path string) (Blob, error)
	Put(ctx context.Context, path string, content []byte, version string) (string, error)
}
