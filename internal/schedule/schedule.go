// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule triggers a job once a day at a wall-clock time.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultClock is the trigger time used when none is configured.
const DefaultClock = "15:40"

// Clock is a time of day in the local zone.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// ParseClock parses a 24-hour "HH:MM" time.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid schedule time %q; expected HH:MM 24-hour format", s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) schedule() cron.Schedule {
	// A Clock from ParseClock always forms a valid cron expression.
	s, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", c.Minute, c.Hour))
	if err != nil {
		panic(err)
	}
	return s
}

// NextRun returns the first trigger strictly after now, in now's location.
func NextRun(now time.Time, c Clock) time.Time {
	return c.schedule().Next(now)
}

// Daily runs job every day at c until ctx is cancelled or job fails. A
// trigger that fires while a run is still going is a no-op. A job error
// stops the schedule and is returned once the runner has drained; job must
// therefore only fail for conditions that would break every later run too.
// On cancellation Daily returns ctx.Err().
func Daily(ctx context.Context, c Clock, job func(context.Context) error) error {
	zerolog.Ctx(ctx).Info().Stringer("at", c).Time("next", NextRun(time.Now(), c)).Msg("scheduled daily run")
	return run(ctx, c.schedule(), job)
}

func run(ctx context.Context, sched cron.Schedule, job func(context.Context) error) error {
	ctx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	log := zerolog.Ctx(ctx)
	logger := cronLogger{log}

	runner := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	runner.Schedule(sched, cron.FuncJob(func() {
		if err := job(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled run failed, stopping schedule")
			stop(err)
			return
		}
		log.Info().Time("next", sched.Next(time.Now())).Msg("waiting for next scheduled run")
	}))

	runner.Start()
	<-ctx.Done()
	<-runner.Stop().Done()
	return context.Cause(ctx)
}

// cronLogger routes cron's logr-style calls to zerolog.
type cronLogger struct{ log *zerolog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
