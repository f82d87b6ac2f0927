// Package housekeeping runs the low-frequency maintenance job the
// trading-cycle engine needs alongside the market-gated scheduler:
// sentiment cache eviction, which doesn't warrant its own timer loop.
// It is kept on robfig/cron/v3, the
// library the fixed-interval AutoTraderScheduler deliberately avoids
// (a cron expression can't express its market-hours gate directly).
package housekeeping

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one housekeeping task.
type Job interface {
	Run() error
	Name() string
}

// Runner owns the cron schedule driving housekeeping jobs.
type Runner struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New constructs a Runner.
func New(log zerolog.Logger) *Runner {
	return &Runner{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "housekeeping").Logger(),
	}
}

// Start begins executing registered jobs on their schedules.
func (r *Runner) Start() {
	r.cron.Start()
	r.log.Info().Msg("housekeeping runner started")
}

// Stop waits for any in-flight job to finish, then halts the runner.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.log.Info().Msg("housekeeping runner stopped")
}

// AddJob registers job on the given cron schedule, e.g. "0 0 * * * *"
// for hourly.
func (r *Runner) AddJob(schedule string, job Job) error {
	_, err := r.cron.AddFunc(schedule, func() {
		r.log.Debug().Str("job", job.Name()).Msg("running housekeeping job")
		if err := job.Run(); err != nil {
			r.log.Error().Err(err).Str("job", job.Name()).Msg("housekeeping job failed")
			return
		}
		r.log.Debug().Str("job", job.Name()).Msg("housekeeping job completed")
	})
	if err != nil {
		return err
	}
	r.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("housekeeping job registered")
	return nil
}
