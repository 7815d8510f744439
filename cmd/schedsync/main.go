package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"schedsync/internal/config"
	appLog "schedsync/internal/log"
	"schedsync/internal/notion"
	"schedsync/internal/syncer"
)

var Version = "dev"

type options struct {
	configPath string
	logLevel   string
	dryRun     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "schedsync",
		Short: "Generate Notion tasks from recurring schedule entries",
		Long: `schedsync archives the tasks it generated on its previous run and
creates one task per upcoming occurrence of every schedule entry.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, logOut)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "configPath", "", "path to the YAML config file")
	f.StringVar(&opts.logLevel, "logLevel", string(appLog.LevelWarn), "log level: debug, info, warn or error")
	f.BoolVar(&opts.dryRun, "dryRun", false, "compute everything but skip writes to Notion")
	_ = cmd.MarkFlagRequired("configPath")

	return cmd
}

func run(ctx context.Context, opts options, logOut io.Writer) error {
	level, err := appLog.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	log := appLog.New(logOut, level)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	log.Info("schedsync starting",
		"version", Version,
		"config_path", opts.configPath,
		"time_zone", cfg.Location().String(),
		"extra_properties", len(cfg.ExtraPropertiesToSync),
		"dry_run", opts.dryRun,
		"refresh_cron", cfg.RefreshCron,
	)

	s := newSyncer(cfg, opts, log)
	if _, err := s.Run(ctx); err != nil {
		return err
	}
	if cfg.RefreshCron == "" {
		return nil
	}
	return repeat(ctx, s, cfg, opts, log)
}

func newSyncer(cfg *config.Config, opts options, log *appLog.Logger) *syncer.Syncer {
	client := notion.NewClient(cfg.Token, notion.WithRateLimit(cfg.RequestsPerSecond))
	return syncer.New(client, cfg, syncer.Options{
		DryRun: opts.dryRun,
		Log:    log,
	})
}

// repeat runs the sync on cfg.RefreshCron until ctx is cancelled. Failed
// runs are logged and the next tick tries again. A tick that fires while
// the previous run is still going is skipped.
//
// The config file is watched; a valid new version is used from the next
// tick on. The cron schedule and zone themselves are fixed at startup.
func repeat(ctx context.Context, first *syncer.Syncer, cfg *config.Config, opts options, log *appLog.Logger) error {
	var current atomic.Pointer[syncer.Syncer]
	current.Store(first)

	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(cfg.RefreshCron, func() {
		if _, err := current.Load().Run(ctx); err != nil {
			log.Error("scheduled sync failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("refreshCron %q: %w", cfg.RefreshCron, err)
	}

	go func() {
		err := config.Watch(ctx, opts.configPath,
			func(next *config.Config) {
				if next.RefreshCron != cfg.RefreshCron || next.TimeZone != cfg.TimeZone {
					log.Warn("cron schedule keeps its startup refreshCron and timeZone until restart",
						"refresh_cron", next.RefreshCron,
						"time_zone", next.TimeZone,
					)
				}
				current.Store(newSyncer(next, opts, log))
				log.Info("config reloaded", "config_path", opts.configPath)
			},
			func(err error) {
				log.Error("config reload failed, keeping previous config", err, "config_path", opts.configPath)
			},
		)
		if err != nil {
			log.Error("config watch stopped", err, "config_path", opts.configPath)
		}
	}()

	c.Start()
	log.Info("waiting for next scheduled sync", "cron", cfg.RefreshCron)

	<-ctx.Done()
	log.Info("signal received, shutting down")
	<-c.Stop().Done()
	return nil
}
