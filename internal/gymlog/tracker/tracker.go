// Package tracker holds the application state: the live Record Log, the Local Store it
// is persisted to and the Sync Engine that mirrors it remotely. All mutations are
// serialized; each one runs a commit or routine transition, persists the affected
// snapshot and marks it dirty for the sync engine.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/gymlog/internal/gymlog/commit"
	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/stats"
	"github.com/2beens/gymlog/internal/gymlog/syncer"
	"github.com/2beens/gymlog/internal/remote"
	"github.com/2beens/gymlog/internal/storage"
	"github.com/2beens/gymlog/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
)

type Params struct {
	Store    *storage.RecordStore
	Engine   *syncer.Engine
	Analyzer *stats.Analyzer
	Metrics  *metrics.Manager
	// RecordsHosts and PhasesHosts build the hosts of connected accounts.
	RecordsHosts remote.HostFactory
	PhasesHosts  remote.HostFactory
	// Defaults seed the routines when none are stored.
	Defaults records.Routines
	Weights  commit.LoadableWeights
	Location *time.Location
	Now      func() time.Time
}

type Tracker struct {
	store        *storage.RecordStore
	engine       *syncer.Engine
	analyzer     *stats.Analyzer
	metrics      *metrics.Manager
	recordsHosts remote.HostFactory
	phasesHosts  remote.HostFactory
	weights      commit.LoadableWeights
	location     *time.Location
	now          func() time.Time

	mutex       sync.Mutex
	log         *records.Log
	credentials storage.Credentials
}

// New opens the Record Log from the Local Store and connects the stored accounts. It does
// not contact the remote; call Load for that.
func New(ctx context.Context, p Params) (*Tracker, error) {
	if p.Defaults == nil {
		p.Defaults = records.DefaultRoutines()
	}
	if p.Analyzer == nil {
		p.Analyzer = stats.NewAnalyzer(records.Kilograms)
	}
	if p.Weights == nil {
		p.Weights = commit.AnyWeight{}
	}
	if p.Location == nil {
		p.Location = time.Local
	}
	if p.Now == nil {
		p.Now = time.Now
	}

	l, err := p.Store.LoadLog(ctx, p.Defaults)
	if err != nil {
		return nil, fmt.Errorf("load record log: %w", err)
	}
	creds, err := p.Store.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	t := &Tracker{
		store:        p.Store,
		engine:       p.Engine,
		analyzer:     p.Analyzer,
		metrics:      p.Metrics,
		recordsHosts: p.RecordsHosts,
		phasesHosts:  p.PhasesHosts,
		weights:      p.Weights,
		location:     p.Location,
		now:          p.Now,
		log:          l,
		credentials:  creds,
	}
	t.engine.RestoreLastSync(ctx)
	t.connectHosts()

	log.Debugf("tracker: opened record log with %d workouts, %d routines", len(l.Workouts), len(l.Routines))
	return t, nil
}

func (t *Tracker) Today() records.Date {
	return records.DateOf(t.now().In(t.location))
}

func (t *Tracker) Analyzer() *stats.Analyzer {
	return t.analyzer
}

// connectHosts points the sync engine at the hosts of the current credentials.
func (t *Tracker) connectHosts() {
	var recordsHost, phasesHost remote.BlobHost
	if t.credentials.Records.Connected() && t.recordsHosts != nil {
		recordsHost = t.recordsHosts(t.credentials.Records)
	}
	if t.credentials.Phases.Connected() && t.phasesHosts != nil {
		phasesHost = t.phasesHosts(t.credentials.Phases)
	}
	t.engine.SetHosts(recordsHost, phasesHost)
}

// Snapshot returns a deep copy of the Record Log.
func (t *Tracker) Snapshot() *records.Log {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.log.Clone()
}

// View runs fn with the live log under the state lock. fn must not retain or modify it.
func (t *Tracker) View(fn func(l *records.Log, today records.Date)) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	fn(t.log, t.Today())
}

func (t *Tracker) persistWorkouts(ctx context.Context) error {
	if err := t.store.SaveWorkouts(ctx, t.log.Payload()); err != nil {
		log.Errorf("tracker: persist workouts: %s", err)
		return fmt.Errorf("persist workouts: %w", err)
	}
	t.engine.MarkDirty(syncer.ResourceWorkouts)
	return nil
}

func (t *Tracker) persistRoutines(ctx context.Context) error {
	if err := t.store.SaveRoutines(ctx, t.log.Routines); err != nil {
		log.Errorf("tracker: persist routines: %s", err)
		return fmt.Errorf("persist routines: %w", err)
	}
	t.engine.MarkDirty(syncer.ResourceRoutines)
	return nil
}
