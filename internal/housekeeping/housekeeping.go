// Package housekeeping runs periodic maintenance jobs on a cron schedule.
package housekeeping

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/good-yellow-bee/incidentdesk/internal/metrics"
	"github.com/good-yellow-bee/incidentdesk/internal/storage"
)

// DefaultSessionPurgeSchedule runs the session purge every fifteen minutes.
const DefaultSessionPurgeSchedule = "*/15 * * * *"

// Options configures a Scheduler.
type Options struct {
	// SessionPurgeSchedule is a standard five-field cron expression.
	SessionPurgeSchedule string
	// JobTimeout bounds a single job run.
	JobTimeout time.Duration
	Logger     zerolog.Logger
	Now        func() time.Time
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		SessionPurgeSchedule: DefaultSessionPurgeSchedule,
		JobTimeout:           time.Minute,
		Logger:               zerolog.Nop(),
		Now:                  time.Now,
	}
}

// Scheduler owns the cron runner and the registered jobs.
type Scheduler struct {
	cron     *cron.Cron
	sessions storage.SessionRepository
	opts     *Options
	logger   zerolog.Logger
}

// New creates a Scheduler and registers the built-in jobs.
func New(sessions storage.SessionRepository, opts *Options) (*Scheduler, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.SessionPurgeSchedule == "" {
		opts.SessionPurgeSchedule = DefaultSessionPurgeSchedule
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		sessions: sessions,
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "housekeeping").Logger(),
	}
	if err := s.Add("purge_sessions", opts.SessionPurgeSchedule, func(ctx context.Context) error {
		_, err := s.PurgeSessions(ctx)
		return err
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Add registers a job under a cron schedule.
func (s *Scheduler) Add(name, schedule string, job func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("housekeeping job failed")
			return
		}
		s.logger.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("housekeeping job finished")
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
	}
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("housekeeping started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("housekeeping stopped")
	return nil
}

// PurgeSessions deletes expired stored sessions.
func (s *Scheduler) PurgeSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.opts.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if n > 0 {
		metrics.SessionsPurgedTotal.Add(float64(n))
		s.logger.Info().Int64("sessions", n).Msg("purged expired sessions")
	}
	return n, nil
}

// ValidateSchedule reports whether schedule is a valid five-field cron
// expression.
func ValidateSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}
