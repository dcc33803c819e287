package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const pruneTimeout = 2 * time.Minute

// SessionPruner deletes session rows that have been dead since before cutoff.
type SessionPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler runs housekeeping on a cron schedule. Nothing it does affects
// correctness: expiry and revocation are always checked at use time.
type Scheduler struct {
	cron      *cron.Cron
	sessions  SessionPruner
	schedule  string
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func NewScheduler(sessions SessionPruner, schedule string, retention time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		sessions:  sessions,
		schedule:  schedule,
		retention: retention,
		now:       time.Now,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if s.sessions == nil || s.schedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
		defer cancel()
		_, _ = s.PruneSessions(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Dur("retention", s.retention).Msg("scheduler started")
	return nil
}

// Stop halts the schedule and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// PruneSessions removes sessions revoked or fully expired more than the
// retention period ago.
func (s *Scheduler) PruneSessions(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	deleted, err := s.sessions.PruneBefore(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("prune sessions failed")
		return 0, err
	}
	s.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("pruned sessions")
	return deleted, nil
}
