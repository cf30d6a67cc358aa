package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/syncer"
	"github.com/2beens/gymlog/internal/remote"
	"github.com/2beens/gymlog/internal/storage"

	log "github.com/sirupsen/logrus"
)

var ErrIncompleteAccount = errors.New("account needs token, owner and repo")

// Load pulls the remote data sets into the live log. Local workouts win over remote ones
// and trigger a push of the merged log; routines are replaced by the remote ones; phases
// are kept in memory only.
func (t *Tracker) Load(ctx context.Context) syncer.LoadResult {
	return t.engine.Load(ctx, t.applyRemote)
}

func (t *Tracker) applyRemote(ctx context.Context, r syncer.Remote) (bool, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if r.Phases != nil {
		t.log.Phases = r.Phases
	}
	if len(r.Routines) > 0 {
		t.log.Routines = r.Routines
		if err := t.store.SaveRoutines(ctx, t.log.Routines); err != nil {
			return false, fmt.Errorf("persist remote routines: %w", err)
		}
	}
	if r.Workouts == nil {
		return false, nil
	}

	merged, changed := syncer.Reconcile(t.log.Payload(), *r.Workouts)
	t.log.Workouts = merged.Workouts
	t.log.Notes = merged.Notes
	if err := t.store.SaveWorkouts(ctx, merged); err != nil {
		return false, fmt.Errorf("persist loaded workouts: %w", err)
	}
	if changed {
		log.Debugf("tracker: local workouts ahead of remote, %d dates after merge", len(merged.Workouts))
	}
	return changed, nil
}

// Sync pushes both resources now.
func (t *Tracker) Sync(ctx context.Context) []syncer.Result {
	return t.engine.Sync(ctx)
}

// Background flushes pending pushes, as when the app is hidden.
func (t *Tracker) Background() int {
	return t.engine.Background()
}

func (t *Tracker) SyncState() syncer.State {
	return t.engine.State()
}

// Accounts returns the connected accounts without their tokens.
func (t *Tracker) Accounts() storage.Credentials {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	c := t.credentials
	c.Records.Token = ""
	c.Phases.Token = ""
	return c
}

// ConnectRecords stores the records account and loads from it.
func (t *Tracker) ConnectRecords(ctx context.Context, account remote.Account) (syncer.LoadResult, error) {
	if !account.Connected() {
		return syncer.LoadResult{}, ErrIncompleteAccount
	}
	if err := t.updateCredentials(ctx, func(c *storage.Credentials) { c.Records = account }); err != nil {
		return syncer.LoadResult{}, err
	}
	log.Infof("tracker: connected records account %s", account)
	return t.Load(ctx), nil
}

// ConnectPhases stores the companion phases account and loads from it.
func (t *Tracker) ConnectPhases(ctx context.Context, account remote.Account) (syncer.LoadResult, error) {
	if !account.Connected() {
		return syncer.LoadResult{}, ErrIncompleteAccount
	}
	if err := t.updateCredentials(ctx, func(c *storage.Credentials) { c.Phases = account }); err != nil {
		return syncer.LoadResult{}, err
	}
	log.Infof("tracker: connected phases account %s", account)
	return t.Load(ctx), nil
}

func (t *Tracker) DisconnectRecords(ctx context.Context) error {
	return t.updateCredentials(ctx, func(c *storage.Credentials) { c.Records = remote.Account{} })
}

// DisconnectPhases also forgets the phases read from the companion account.
func (t *Tracker) DisconnectPhases(ctx context.Context) error {
	err := t.updateCredentials(ctx, func(c *storage.Credentials) { c.Phases = remote.Account{} })
	if err != nil {
		return err
	}
	t.mutex.Lock()
	t.log.Phases = nil
	t.mutex.Unlock()
	return nil
}

// updateCredentials persists the changed accounts, wiping the key when none is left, and
// reconnects the sync engine.
func (t *Tracker) updateCredentials(ctx context.Context, update func(c *storage.Credentials)) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	creds := t.credentials
	update(&creds)

	var err error
	if !creds.Records.Connected() && !creds.Phases.Connected() {
		creds = storage.Credentials{}
		err = t.store.DeleteCredentials(ctx)
	} else {
		err = t.store.SaveCredentials(ctx, creds)
	}
	if err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}

	t.credentials = creds
	t.connectHosts()
	return nil
}

// Close flushes pending pushes, waits for them and stops the sync engine.
func (t *Tracker) Close() {
	if n := t.engine.Background(); n > 0 {
		log.Infof("tracker: flushing %d pending pushes", n)
	}
	t.engine.Wait()
	t.engine.Close()
}

// Phases returns the phases read from the companion account.
func (t *Tracker) Phases() []records.Phase {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return append([]records.Phase(nil), t.log.Phases...)
}
