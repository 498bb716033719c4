// workers/checkin_worker.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skport-checkin/models"
	"skport-checkin/services"
	"skport-checkin/utils"
)

// ErrRunInProgress is returned when a batch is started while another one is still running.
var ErrRunInProgress = errors.New("a check-in run is already in progress")

type BatchRunner interface {
	RunAll(ctx context.Context, profiles []models.Profile) models.RunBatch
}

type RunRecorder interface {
	SaveRun(ctx context.Context, run *models.CheckInRun) error
}

// CheckInWorker runs one batch at a time and fans the outcome out to history,
// the report archive and every notifier. Only the batch itself can fail a run;
// the rest is best-effort.
type CheckInWorker struct {
	Runner    BatchRunner
	Profiles  []models.Profile
	History   RunRecorder
	Archive   utils.ReportArchive
	Notifiers []services.Notifier
	Logger    *zap.Logger

	now func() time.Time
	mu  sync.Mutex
}

func NewCheckInWorker(runner BatchRunner, profiles []models.Profile, logger *zap.Logger) *CheckInWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckInWorker{
		Runner:   runner,
		Profiles: profiles,
		Logger:   logger,
		now:      time.Now,
	}
}

// RunOnce executes a full batch synchronously.
func (w *CheckInWorker) RunOnce(ctx context.Context) (*models.CheckInRun, error) {
	if !w.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer w.mu.Unlock()
	return w.run(ctx), nil
}

// TriggerAsync starts a batch in the background. It fails fast with
// ErrRunInProgress instead of queueing behind a running batch.
func (w *CheckInWorker) TriggerAsync(ctx context.Context) error {
	if !w.mu.TryLock() {
		return ErrRunInProgress
	}
	go func() {
		defer w.mu.Unlock()
		w.run(ctx)
	}()
	return nil
}

// Wait blocks until the batch in progress, if any, has finished including its
// history, archive and notifier steps.
func (w *CheckInWorker) Wait() {
	w.mu.Lock()
	defer w.mu.Unlock()
}

func (w *CheckInWorker) run(ctx context.Context) *models.CheckInRun {
	runID := uuid.NewString()
	startedAt := w.now().UTC()
	log := w.Logger.With(zap.String("run_id", runID))

	batch := w.Runner.RunAll(ctx, w.Profiles)
	finishedAt := w.now().UTC()

	run := buildRun(runID, startedAt, finishedAt, batch)
	summary := models.RunSummary{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Succeeded:  run.Succeeded,
		Failed:     run.Failed,
		Results:    batch,
	}

	if w.History != nil {
		if err := w.History.SaveRun(ctx, run); err != nil {
			log.Error("[WORKER] ⚠️ failed to record run history", zap.Error(err))
		}
	}
	if w.Archive != nil {
		if err := w.archive(ctx, summary); err != nil {
			log.Error("[WORKER] ⚠️ failed to archive run report", zap.Error(err))
		}
	}
	for _, n := range w.Notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			log.Error("[WORKER] ⚠️ notification failed", zap.Error(err))
		}
	}

	log.Info("[WORKER] ✅ run finished",
		zap.Int("total", run.Total), zap.Int("succeeded", run.Succeeded), zap.Int("failed", run.Failed))
	return run
}

func (w *CheckInWorker) archive(ctx context.Context, summary models.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}
	if err := w.Archive.Put(ctx, utils.RunReportKey(summary.StartedAt, summary.RunID), data); err != nil {
		return err
	}

	var errs []error
	for i, r := range summary.Results {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		key := utils.AccountReportKey(summary.StartedAt, summary.RunID, i, r.Name)
		if err := w.Archive.Put(ctx, key, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildRun(runID string, startedAt, finishedAt time.Time, batch models.RunBatch) *models.CheckInRun {
	succeeded, failed := batch.Counts()
	run := &models.CheckInRun{
		ID:         runID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Total:      len(batch),
		Succeeded:  succeeded,
		Failed:     failed,
		Results:    make([]models.ClaimRecord, 0, len(batch)),
	}
	for i, r := range batch {
		run.Results = append(run.Results, models.ClaimRecord{
			ID:          uuid.NewString(),
			RunID:       runID,
			Position:    i,
			AccountName: r.Name,
			Success:     r.Success,
			Status:      r.Status,
			Rewards:     r.Rewards,
			CreatedAt:   finishedAt,
		})
	}
	return run
}
