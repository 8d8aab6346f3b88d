package challenge

import (
	"context"
	"time"

	"vaultline/internal/platform/scheduler"
	"vaultline/internal/unlock/ports"
	"vaultline/pkg/platform/audit"
	"vaultline/pkg/requestcontext"
)

// SweepResult counts what one sweep removed.
type SweepResult struct {
	Sessions int
	Lockouts int
}

// Sweep deletes expired sessions and resets lockout counters that have gone
// a full lock duration without a failure.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	now := requestcontext.Now(ctx)
	var result SweepResult

	sessions, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return result, err
	}
	result.Sessions = sessions
	s.metrics.AddSessionsSwept(sessions)

	lockouts, err := s.lockouts.ResetStale(ctx, now.Add(-s.config.LockDuration), now)
	if err != nil {
		return result, err
	}
	result.Lockouts = lockouts

	if sessions > 0 || lockouts > 0 {
		ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventSessionsSwept,
			"sessions", sessions,
			"lockouts", lockouts,
		)
	}
	return result, nil
}

// SweepJob wraps Sweep for the scheduler.
func (s *Service) SweepJob(schedule string) scheduler.Job {
	return scheduler.Job{
		Name:     "challenge-sweep",
		Schedule: schedule,
		Timeout:  30 * time.Second,
		Run: func(ctx context.Context) error {
			_, err := s.Sweep(ctx)
			return err
		},
	}
}
