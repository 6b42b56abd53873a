// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/feed"
	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/notify"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/pipeline"
	"github.com/pdiddy/paper-digest/internal/schedule"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, filter, persist and deliver the latest papers",
	Long: `Run executes the digest pipeline. In once mode it runs a single digest and
exits. In periodic mode it runs every day at --schedule-time (HH:MM, local
time) until interrupted.

Category and delivery failures are logged and do not change the exit code;
configuration and paper store errors do.`,
	RunE: runDigest,
}

func init() {
	runCmd.Flags().String("mode", "periodic", "execution mode: once or periodic")
	runCmd.Flags().String("schedule-time", "", "daily trigger time in periodic mode (default "+schedule.DefaultClock+")")
	runCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile after each run")

	viper.BindPFlag("schedule_time", runCmd.Flags().Lookup("schedule-time"))

	rootCmd.AddCommand(runCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	mode, _ := cmd.Flags().GetString("mode")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	metrics := observability.NewMetrics()
	runner, err := buildRunner(cfg, logger, metrics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	job := func(ctx context.Context) error {
		_, err := runner.Run(ctx)
		if werr := metrics.WriteTextfile(metricsFile); werr != nil {
			logger.Warn().Err(werr).Msg("metrics not written")
		}
		return err
	}

	switch mode {
	case "once":
		return job(ctx)
	case "periodic":
		at := cfg.ScheduleTime
		if at == "" {
			at = schedule.DefaultClock
		}
		clock, err := schedule.ParseClock(at)
		if err != nil {
			return err
		}
		// Run only fails on store errors, which end the schedule and the process.
		err = schedule.Daily(ctx, clock, job)
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("scheduler stopped")
			return nil
		}
		return err
	default:
		return fmt.Errorf("unsupported mode %q: use once or periodic", mode)
	}
}

// buildRunner wires the collaborators enabled by cfg.
func buildRunner(cfg types.DigestConfig, log zerolog.Logger, m *observability.Metrics) (*pipeline.Runner, error) {
	if len(cfg.Categories) == 0 {
		return nil, fmt.Errorf("category_list is empty: configure at least one arXiv category")
	}

	r := &pipeline.Runner{
		Config:  cfg,
		Fetcher: feed.NewClient(cfg.FeedConfig, cfg.HTTPConfig, log, m),
		Log:     log,
		Metrics: m,
	}

	if cfg.UseForFiltering || cfg.UseForTranslation {
		client := llm.NewClient(cfg.LLMConfig, cfg.HTTPConfig)
		if err := client.Validate(); err != nil {
			return nil, err
		}
		if cfg.UseForFiltering {
			target, err := pipeline.ReadTarget(cfg.PaperToHuntFile)
			if err != nil {
				return nil, err
			}
			r.Target = target
			r.Matcher = &llm.Matcher{LLM: client, Target: target, Log: log, Metrics: m}
		}
		if cfg.UseForTranslation {
			r.Translator = &llm.Translator{LLM: client, Log: log, Metrics: m}
		}
	}

	if cfg.WebhookURL != "" {
		r.Notifier = notify.NewLarkNotifier(cfg.NotifyConfig, cfg.HTTPConfig, log, m)
	} else {
		log.Warn().Msg("webhook_url is not set, papers will be stored but not delivered")
	}
	return r, nil
}
