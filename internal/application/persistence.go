package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"apiary-voice/internal/domain"
)

type CommitMode string

const (
	CommitQueued CommitMode = "queued"
	CommitStored CommitMode = "stored"
)

type CommitResult struct {
	Mode     CommitMode
	RecordID string
	// File is the queue file id when Mode is CommitQueued.
	File string
}

type SyncReport struct {
	Synced    int
	Remaining int
	Files     []string
}

// PersistenceRouter sends completed records to the remote store or, when the
// device is offline, to the local pending queue.
type PersistenceRouter struct {
	records  RecordStore
	queue    PendingQueue
	mode     ModeDetector
	notifier Notifier
	logger   *slog.Logger
}

func NewPersistenceRouter(
	records RecordStore,
	queue PendingQueue,
	mode ModeDetector,
	notifier Notifier,
	logger *slog.Logger,
) *PersistenceRouter {
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	return &PersistenceRouter{
		records:  records,
		queue:    queue,
		mode:     mode,
		notifier: notifier,
		logger:   logger,
	}
}

func (r *PersistenceRouter) Commit(ctx context.Context, record domain.Record) (*CommitResult, error) {
	if r.mode.Offline() {
		pending, err := r.queue.Enqueue(ctx, record)
		if err != nil {
			return nil, &domain.PersistenceError{Stage: domain.StageLocal, RecordID: record.RecordID, Err: err}
		}
		r.logger.Info("record queued", "record_id", record.RecordID, "file", pending.FileID)
		notify(ctx, r.notifier, r.logger,
			fmt.Sprintf("Monitoreo de colmena %d (%s) guardado localmente", record.HiveNumber, record.ApiaryName))
		return &CommitResult{Mode: CommitQueued, RecordID: record.RecordID, File: pending.FileID}, nil
	}

	if err := r.records.Insert(ctx, record); err != nil {
		return nil, &domain.PersistenceError{Stage: domain.StageRemote, RecordID: record.RecordID, Err: err}
	}
	r.logger.Info("record stored", "record_id", record.RecordID)
	notify(ctx, r.notifier, r.logger,
		fmt.Sprintf("Monitoreo de colmena %d (%s) guardado", record.HiveNumber, record.ApiaryName))
	return &CommitResult{Mode: CommitStored, RecordID: record.RecordID}, nil
}

// Reconcile pushes queued records to the remote store oldest first. A queue
// file is removed only after its insert succeeded; the first failure stops
// the run.
func (r *PersistenceRouter) Reconcile(ctx context.Context) (SyncReport, error) {
	pending, err := r.queue.List(ctx)
	if err != nil {
		return SyncReport{}, fmt.Errorf("listing pending records: %w", err)
	}

	report := SyncReport{Remaining: len(pending)}
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		err := r.records.Insert(ctx, p.Record)
		if err == nil {
			err = r.queue.Remove(ctx, p.FileID)
		}
		if err != nil {
			r.logger.Warn("sync stopped", "file", p.FileID, "record_id", p.Record.RecordID, "error", err)
			notify(ctx, r.notifier, r.logger,
				fmt.Sprintf("Sincronización incompleta: %d enviados, %d pendientes", report.Synced, report.Remaining))
			return report, &domain.SyncError{
				RecordID:  p.Record.RecordID,
				File:      p.FileID,
				Synced:    report.Synced,
				Remaining: report.Remaining,
				Err:       err,
			}
		}

		report.Synced++
		report.Remaining--
		report.Files = append(report.Files, p.FileID)
		r.logger.Info("record synced", "file", p.FileID, "record_id", p.Record.RecordID)
	}

	if report.Synced > 0 {
		r.logger.Info("sync finished", "synced", report.Synced)
	}
	return report, nil
}

func (r *PersistenceRouter) Pending(ctx context.Context) ([]domain.PendingRecord, error) {
	pending, err := r.queue.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pending records: %w", err)
	}
	return pending, nil
}

// WatchAndReconcile runs Reconcile at start, whenever changes fires and on
// every interval tick, until ctx is done. Sync failures are logged and retried
// on the next trigger.
func (r *PersistenceRouter) WatchAndReconcile(ctx context.Context, changes <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sync := func() {
		if _, err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("reconciling", "error", err)
		}
	}

	sync()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			sync()
		case <-ticker.C:
			sync()
		}
	}
}
