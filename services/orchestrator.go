// services/orchestrator.go
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"skport-checkin/models"
)

type TokenResolver interface {
	RefreshToken(ctx context.Context, profile models.Profile) (string, error)
}

type Claimer interface {
	Claim(ctx context.Context, profile models.Profile, token string) models.ClaimResult
}

// CheckInService runs the refresh-then-claim sequence for every profile, one at a time.
type CheckInService struct {
	Resolver TokenResolver
	Claimer  Claimer
	Delay    time.Duration
	Logger   *zap.Logger
}

func NewCheckInService(resolver TokenResolver, claimer Claimer, delay time.Duration, logger *zap.Logger) *CheckInService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckInService{
		Resolver: resolver,
		Claimer:  claimer,
		Delay:    delay,
		Logger:   logger,
	}
}

// RunAll processes profiles sequentially in order and returns exactly one
// result per profile. After each account except the last it pauses for Delay.
func (s *CheckInService) RunAll(ctx context.Context, profiles []models.Profile) models.RunBatch {
	start := time.Now()
	s.Logger.Info("[RUN] 🚀 starting check-in run", zap.Int("accounts", len(profiles)))

	batch := make(models.RunBatch, 0, len(profiles))
	for i, profile := range profiles {
		if i > 0 {
			s.pause(ctx)
		}
		s.Logger.Info("[RUN] working...", zap.Int("index", i+1), zap.String("account", profile.AccountName))
		batch = append(batch, s.runOne(ctx, profile))
	}

	succeeded, failed := batch.Counts()
	runDuration.Observe(time.Since(start).Seconds())
	if failed == 0 {
		lastRunSuccess.Set(1)
	} else {
		lastRunSuccess.Set(0)
	}
	s.Logger.Info("[RUN] ✅ run complete",
		zap.Int("succeeded", succeeded), zap.Int("failed", failed), zap.Duration("took", time.Since(start)))
	return batch
}

// pause waits Delay between two accounts. A cancelled context cuts the wait
// short; the remaining accounts are still attempted and reported.
func (s *CheckInService) pause(ctx context.Context) {
	if s.Delay <= 0 {
		return
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		s.Logger.Warn("[RUN] ⚠️ pacing interrupted", zap.Error(ctx.Err()))
	}
}

func (s *CheckInService) runOne(ctx context.Context, profile models.Profile) (result models.ClaimResult) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("[RUN] 💥 panic while processing account",
				zap.String("account", profile.AccountName), zap.Any("panic", r))
			result = models.ClaimResult{
				Name:    profile.AccountName,
				Status:  StatusException,
				Rewards: fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	token, err := s.Resolver.RefreshToken(ctx, profile)
	if err != nil {
		claimOutcomes.WithLabelValues(outcomeAuthFailed).Inc()
		s.Logger.Error("[RUN] ⛔ token refresh failed",
			zap.String("account", profile.AccountName), zap.Error(err))
		return models.ClaimResult{
			Name:    profile.AccountName,
			Success: false,
			Status:  StatusAuthFailed,
			Rewards: err.Error(),
		}
	}

	return s.Claimer.Claim(ctx, profile.WithToken(token), token)
}
