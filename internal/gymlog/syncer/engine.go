// Package syncer keeps the Local Store and the remote blob host eventually consistent.
// Mutations arm a per-resource debounce timer; finishing a workout, backgrounding the app
// and explicit requests push at once. Every push re-reads the local snapshot and the
// remote version, skips the write when the contents already match and otherwise writes
// conditioned on the version it read. A failed push leaves the resource dirty.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/remote"
	"github.com/2beens/gymlog/internal/storage"
	"github.com/2beens/gymlog/internal/telemetry/metrics"
	"github.com/2beens/gymlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultDebounce      = 5 * time.Second
	DefaultSyncedDisplay = 2 * time.Second
	DefaultFailedDisplay = 3 * time.Second
	DefaultPushTimeout   = 30 * time.Second
)

type Config struct {
	// Debounce is the quiet window after the last mutation before a push.
	Debounce time.Duration
	// SyncedDisplay is how long synced / no-changes stays visible.
	SyncedDisplay time.Duration
	// FailedDisplay is how long failed stays visible.
	FailedDisplay time.Duration
	PushTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.SyncedDisplay <= 0 {
		c.SyncedDisplay = DefaultSyncedDisplay
	}
	if c.FailedDisplay <= 0 {
		c.FailedDisplay = DefaultFailedDisplay
	}
	if c.PushTimeout <= 0 {
		c.PushTimeout = DefaultPushTimeout
	}
	return c
}

// State is a snapshot of the engine for display.
type State struct {
	Status      Status            `json:"status"`
	Failure     FailureKind       `json:"failure,omitempty"`
	LastError   string            `json:"lastError,omitempty"`
	LastSync    time.Time         `json:"lastSync"`
	Connected   bool              `json:"connected"`
	PhasesAlive bool              `json:"phasesConnected"`
	Dirty       map[Resource]bool `json:"dirty"`
}

type Engine struct {
	store   *storage.RecordStore
	metrics *metrics.Manager
	cfg     Config
	now     func() time.Time

	// background pushes run under ctx and are tracked by wg; Close cancels and waits
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mutex      sync.Mutex
	closed     bool
	host       remote.BlobHost
	phasesHost remote.BlobHost
	generation uint64
	dirty      map[Resource]uint64
	timers     map[Resource]*time.Timer
	timerSeq   map[Resource]uint64

	status      Status
	failure     FailureKind
	lastErr     error
	lastSync    time.Time
	statusTimer *time.Timer
	statusSeq   uint64
}

func NewEngine(store *storage.RecordStore, metricsManager *metrics.Manager, cfg Config) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:    store,
		metrics:  metricsManager,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		dirty:    make(map[Resource]uint64),
		timers:   make(map[Resource]*time.Timer),
		timerSeq: make(map[Resource]uint64),
		status:   StatusIdle,
	}
}

// SetHosts connects (or, with nil, disconnects) the records host and the read-only
// phases host.
func (e *Engine) SetHosts(records, phases remote.BlobHost) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.host = records
	e.phasesHost = phases
}

// RestoreLastSync seeds the last sync time from the Local Store.
func (e *Engine) RestoreLastSync(ctx context.Context) {
	ts, err := e.store.LastSync(ctx)
	if err != nil {
		log.Warnf("syncer: read last sync time: %s", err)
		return
	}
	e.mutex.Lock()
	e.lastSync = ts
	e.mutex.Unlock()
}

func (e *Engine) State() State {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	st := State{
		Status:      e.status,
		Failure:     e.failure,
		LastSync:    e.lastSync,
		Connected:   e.host != nil,
		PhasesAlive: e.phasesHost != nil,
		Dirty:       make(map[Resource]bool, len(resources)),
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	for _, r := range resources {
		st.Dirty[r] = e.dirty[r] != 0
	}
	return st
}

func (e *Engine) IsDirty(res Resource) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.dirty[res] != 0
}

// MarkDirty records a local mutation of the resource and (re)arms its debounce timer.
func (e *Engine) MarkDirty(res Resource) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.closed {
		return
	}

	e.generation++
	e.dirty[res] = e.generation
	e.metrics.GaugeDirty.WithLabelValues(string(res)).Set(1)

	e.stopTimerLocked(res)
	seq := e.timerSeq[res]
	e.timers[res] = time.AfterFunc(e.cfg.Debounce, func() {
		e.fireTimer(res, seq)
	})
	log.Tracef("syncer: %s dirty, push armed in %s", res, e.cfg.Debounce)

	if e.status == StatusIdle {
		e.setStatusLocked(StatusPending, FailureNone, nil)
	}
}

// stopTimerLocked cancels the pending debounce of res. A callback that already fired
// sees a stale sequence number and does nothing.
func (e *Engine) stopTimerLocked(res Resource) {
	if t, ok := e.timers[res]; ok {
		t.Stop()
		delete(e.timers, res)
	}
	e.timerSeq[res]++
}

func (e *Engine) fireTimer(res Resource, seq uint64) {
	e.mutex.Lock()
	if e.closed || e.timerSeq[res] != seq {
		e.mutex.Unlock()
		return
	}
	delete(e.timers, res)
	e.wg.Add(1)
	e.mutex.Unlock()

	defer e.wg.Done()
	log.Debugf("syncer: debounce elapsed for %s", res)
	e.pushWithTimeout(res)
}

func (e *Engine) pushWithTimeout(res Resource) Result {
	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.PushTimeout)
	defer cancel()
	return e.Push(ctx, res)
}

// PushNow bypasses the debounce window and pushes res in the background.
func (e *Engine) PushNow(res Resource) {
	e.mutex.Lock()
	if e.closed {
		e.mutex.Unlock()
		return
	}
	e.stopTimerLocked(res)
	e.wg.Add(1)
	e.mutex.Unlock()

	go func() {
		defer e.wg.Done()
		e.pushWithTimeout(res)
	}()
}

// Background promotes every pending debounce to an immediate push, so nothing scheduled
// is dropped when the app goes away. It reports how many pushes were started.
func (e *Engine) Background() int {
	e.mutex.Lock()
	var pending []Resource
	for _, r := range resources {
		if e.dirty[r] != 0 {
			pending = append(pending, r)
		}
	}
	e.mutex.Unlock()

	for _, r := range pending {
		e.PushNow(r)
	}
	return len(pending)
}

// Sync pushes every resource right away and waits for the outcomes.
func (e *Engine) Sync(ctx context.Context) []Result {
	e.mutex.Lock()
	for _, r := range resources {
		e.stopTimerLocked(r)
	}
	e.mutex.Unlock()

	results := make([]Result, 0, len(resources))
	for _, r := range resources {
		results = append(results, e.Push(ctx, r))
	}
	return results
}

// Wait blocks until all background pushes started so far are done.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close stops all timers, cancels in-flight pushes and waits for them. Pending debounces
// are dropped; call Background first to flush them.
func (e *Engine) Close() {
	e.mutex.Lock()
	if e.closed {
		e.mutex.Unlock()
		return
	}
	e.closed = true
	for _, r := range resources {
		e.stopTimerLocked(r)
	}
	if e.statusTimer != nil {
		e.statusTimer.Stop()
	}
	e.mutex.Unlock()

	e.cancel()
	e.wg.Wait()
}

func (e *Engine) setStatus(st Status, kind FailureKind, err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.setStatusLocked(st, kind, err)
}

// setStatusLocked sets the status and, for transient statuses, schedules the fall back to
// pending (while anything is dirty) or idle.
func (e *Engine) setStatusLocked(st Status, kind FailureKind, err error) {
	e.status = st
	e.failure = kind
	e.lastErr = err

	if e.statusTimer != nil {
		e.statusTimer.Stop()
		e.statusTimer = nil
	}
	e.statusSeq++

	var display time.Duration
	switch st {
	case StatusSynced, StatusNoChanges:
		display = e.cfg.SyncedDisplay
	case StatusFailed:
		display = e.cfg.FailedDisplay
	default:
		return
	}
	if e.closed {
		return
	}

	seq := e.statusSeq
	e.statusTimer = time.AfterFunc(display, func() {
		e.mutex.Lock()
		defer e.mutex.Unlock()
		if e.statusSeq != seq {
			return
		}
		e.statusTimer = nil
		e.status = StatusIdle
		for _, r := range resources {
			if e.dirty[r] != 0 {
				e.status = StatusPending
			}
		}
	})
}

func (e *Engine) clearDirty(res Resource, gen uint64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if gen != 0 && e.dirty[res] == gen {
		e.dirty[res] = 0
		e.metrics.GaugeDirty.WithLabelValues(string(res)).Set(0)
	}
}

func (e *Engine) touchLastSync(ctx context.Context) {
	ts := e.now()
	e.mutex.Lock()
	e.lastSync = ts
	e.mutex.Unlock()
	if err := e.store.SetLastSync(ctx, ts); err != nil {
		log.Errorf("syncer: persist last sync time: %s", err)
	}
}

// localPayload reads the resource from the Local Store and encodes it the way it is
// stored remotely.
func (e *Engine) localPayload(ctx context.Context, res Resource) ([]byte, error) {
	l, err := e.store.LoadLog(ctx, records.DefaultRoutines())
	if err != nil {
		return nil, err
	}
	if res == ResourceRoutines {
		return encode(l.Routines)
	}
	return encode(l.Payload())
}

// Push runs the push protocol for one resource.
func (e *Engine) Push(ctx context.Context, res Resource) (result Result) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "syncer.push")
	span.SetAttributes(attribute.String("resource", string(res)))
	start := e.now()
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(result.Outcome)))
		tracing.EndSpanWithErrCheck(span, result.Err)
		e.metrics.CounterPushes.WithLabelValues(string(res), string(result.Outcome)).Inc()
		e.metrics.HistPushDuration.WithLabelValues(string(res)).Observe(e.now().Sub(start).Seconds())
	}()

	e.mutex.Lock()
	host := e.host
	gen := e.dirty[res]
	e.mutex.Unlock()

	if host == nil {
		return failed(res, FailureNotConnected, remote.ErrNotConnected)
	}
	e.setStatus(StatusChecking, FailureNone, nil)

	payload, err := e.localPayload(ctx, res)
	if err != nil {
		err = fmt.Errorf("read local %s: %w", res, err)
		log.Errorf("syncer: %s", err)
		e.setStatus(StatusFailed, FailureLocal, err)
		return failed(res, FailureLocal, err)
	}

	current, err := host.Fetch(ctx, res.path())
	switch {
	case errors.Is(err, remote.ErrNotFound):
		current = remote.Blob{}
	case err != nil:
		return e.pushFailed(res, fmt.Errorf("fetch %s: %w", res, err))
	case sameContent(res, current.Content, payload):
		log.Debugf("syncer: %s unchanged remotely, nothing to write", res)
		e.clearDirty(res, gen)
		e.touchLastSync(ctx)
		e.setStatus(StatusNoChanges, FailureNone, nil)
		return Result{Resource: res, Outcome: OutcomeNoChanges, Version: current.Version}
	}

	e.setStatus(StatusSyncing, FailureNone, nil)
	version, err := host.Put(ctx, res.path(), payload, current.Version)
	if err != nil {
		return e.pushFailed(res, fmt.Errorf("write %s: %w", res, err))
	}

	e.clearDirty(res, gen)
	e.touchLastSync(ctx)
	e.setStatus(StatusSynced, FailureNone, nil)
	log.Debugf("syncer: pushed %s, version %s", res, version)
	return Result{Resource: res, Outcome: OutcomePushed, Version: version}
}

func (e *Engine) pushFailed(res Resource, err error) Result {
	kind := classify(err)
	log.Errorf("syncer: push %s failed (%s): %s", res, kind, err)
	e.setStatus(StatusFailed, kind, err)
	return failed(res, kind, err)
}

// encode is the canonical remote encoding: two space indented JSON.
func encode(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// sameContent decodes the remote content and re-encodes it canonically, so formatting
// differences of other writers do not count as changes. Undecodable content never matches.
func sameContent(res Resource, remoteContent, local []byte) bool {
	var canonical []byte
	var err error
	if res == ResourceRoutines {
		var r records.Routines
		if err = json.Unmarshal(remoteContent, &r); err == nil {
			canonical, err = encode(r)
		}
	} else {
		var p records.WorkoutPayload
		if err = json.Unmarshal(remoteContent, &p); err == nil {
			canonical, err = encode(p)
		}
	}
	if err != nil {
		return false
	}
	return bytes.Equal(canonical, local)
}
