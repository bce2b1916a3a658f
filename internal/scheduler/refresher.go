package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"skycast/internal/session"
)

// Refresher periodically re-fetches weather for the session's current
// location so a long-running instance does not serve stale conditions.
type Refresher struct {
	scheduler *gocron.Scheduler
	coord     *session.Coordinator
	interval  time.Duration
	log       zerolog.Logger
}

// New creates a Refresher. An interval <= 0 disables refreshing.
func New(coord *session.Coordinator, interval time.Duration) *Refresher {
	return &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		coord:     coord,
		interval:  interval,
		log:       log.With().Str("component", "refresher").Logger(),
	}
}

// Start schedules the periodic refresh job and starts the underlying
// scheduler.
func (r *Refresher) Start() error {
	if r.interval <= 0 {
		r.log.Info().Msg("session refresh disabled")
		return nil
	}

	_, err := r.scheduler.Every(r.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := r.coord.Refresh(ctx); err != nil {
			r.log.Error().Err(err).Msg("session refresh failed")
		}
	})
	if err != nil {
		return err
	}

	r.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (r *Refresher) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}
