// Package backup exports dated snapshots of the Record Log to a backup folder.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/telemetry/metrics"
	"github.com/2beens/gymlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=backup_test

type snapshotSource interface {
	Snapshot() *records.Log
}

type folderStore interface {
	EnsureFolder(ctx context.Context, name string) (string, error)
	ListFiles(ctx context.Context, folderID string) ([]string, error)
	Upload(ctx context.Context, folderID, name string, content []byte) (string, error)
}

// Snapshot is the exported document: everything needed to restore the log.
type Snapshot struct {
	ExportedAt time.Time                        `json:"exportedAt"`
	Workouts   map[records.Date]records.Workout `json:"workouts"`
	Notes      map[string]string                `json:"notes"`
	Routines   records.Routines                 `json:"routines"`
}

type Service struct {
	source     snapshotSource
	folders    folderStore
	folderName string
	metrics    *metrics.Manager
	now        func() time.Time

	folderID string
}

func NewService(source snapshotSource, folders folderStore, folderName string, metricsManager *metrics.Manager) *Service {
	return &Service{
		source:     source,
		folders:    folders,
		folderName: folderName,
		metrics:    metricsManager,
		now:        time.Now,
	}
}

// DoBackup uploads one snapshot named after the current day. A second backup on the same
// day gets a counter suffix instead of replacing the first.
func (s *Service) DoBackup(ctx context.Context) (_ string, err error) {
	ctx, span := tracing.GlobalBackupTracer.Start(ctx, "backup.doBackup")
	start := s.now()
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		s.metrics.CounterBackups.WithLabelValues(outcome).Inc()
		s.metrics.HistBackupDuration.Observe(s.now().Sub(start).Seconds())
	}()

	if s.folderID == "" {
		folderID, err := s.folders.EnsureFolder(ctx, s.folderName)
		if err != nil {
			return "", fmt.Errorf("ensure backups folder: %w", err)
		}
		s.folderID = folderID
	}

	existing, err := s.folders.ListFiles(ctx, s.folderID)
	if err != nil {
		return "", fmt.Errorf("list backup files: %w", err)
	}

	l := s.source.Snapshot()
	content, err := json.MarshalIndent(Snapshot{
		ExportedAt: s.now().UTC(),
		Workouts:   l.Workouts,
		Notes:      l.Notes,
		Routines:   l.Routines,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	name := nextFileName(records.DateOf(s.now()), existing)
	fileID, err := s.folders.Upload(ctx, s.folderID, name, content)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	log.Infof("backup: snapshot %s with %d workouts saved: %s", name, len(l.Workouts), fileID)
	return name, nil
}

func nextFileName(day records.Date, existing []string) string {
	taken := make(map[string]bool, len(existing))
	for _, name := range existing {
		taken[name] = true
	}

	name := fmt.Sprintf("gymlog-%s.json", day)
	for i := 2; taken[name]; i++ {
		name = fmt.Sprintf("gymlog-%s_%d.json", day, i)
	}
	return name
}

// Run backs up every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Debugf("backup: running every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Debugln("backup: stopped")
			return
		case <-ticker.C:
			if _, err := s.DoBackup(ctx); err != nil {
				log.Errorf("backup: %s", err)
			}
		}
	}
}
