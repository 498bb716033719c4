// services/scheduler.go
package services

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// CheckInScheduler fires the daily check-in on a cron expression in UTC.
type CheckInScheduler struct {
	sched gocron.Scheduler
	job   gocron.Job
}

// StartCheckInScheduler registers task on schedule and starts the scheduler.
// A run that is still going when the next tick arrives is not overlapped.
func StartCheckInScheduler(schedule string, task func(), logger *zap.Logger) (*CheckInScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	job, err := sched.NewJob(
		gocron.CronJob(schedule, false),
		gocron.NewTask(func() {
			logger.Info("[Scheduler] ⏰ daily check-in triggered")
			task()
		}),
		gocron.WithName("daily-check-in"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("invalid CHECKIN_SCHEDULE %q: %w", schedule, err)
	}

	sched.Start()
	s := &CheckInScheduler{sched: sched, job: job}
	if next, err := s.NextRun(); err == nil {
		logger.Info("[Scheduler] ✅ daily check-in scheduled",
			zap.String("schedule", schedule), zap.Time("next_run", next))
	}
	return s, nil
}

func (s *CheckInScheduler) NextRun() (time.Time, error) {
	return s.job.NextRun()
}

func (s *CheckInScheduler) Shutdown() error {
	return s.sched.Shutdown()
}
