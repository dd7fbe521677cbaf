package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/regatta-live/regata-server/internal/app"
	"github.com/regatta-live/regata-server/internal/config"
	"github.com/regatta-live/regata-server/internal/log"
	"github.com/regatta-live/regata-server/internal/replay"
	"github.com/regatta-live/regata-server/internal/store"
	"github.com/regatta-live/regata-server/internal/store/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "regata",
		Short:        "Live regatta tracking server",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newSeedCmd(), newReplayCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tracking server",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLogger := log.New("info")

			cfg, path, err := config.Load(bootLogger, configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting regata server")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&overrides.DatabasePath, "db", "", "SQLite database path")
	cmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().DurationVar(&overrides.FinishGracePeriod, "grace-period", 0, "race finalization grace period")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var (
		filePath string
		raceName string
		dbPath   string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a recorded track file into the store as a race",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New("info")
			ctx := cmd.Context()

			tf, err := replay.LoadTrackFile(filePath)
			if err != nil {
				return err
			}

			st, err := sqlite.New(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			// Skip if a race with this name already exists.
			if existing, err := st.GetRaceByName(ctx, raceName); err == nil {
				logger.Warn().Str("race_id", existing.ID).Str("name", raceName).Msg("race already exists, skipping seed")
				return nil
			}

			race := &store.Race{
				ID:        uuid.NewString(),
				Name:      raceName,
				Buoys:     tf.Buoys,
				Positions: tf.Positions,
				StartTmst: tf.StartTmst,
			}
			if tf.EndTmst != 0 {
				race.EndTmst = &tf.EndTmst
			}
			if err := st.CreateRace(ctx, race); err != nil {
				return err
			}

			logger.Info().Str("race_id", race.ID).Str("name", raceName).Msg("race seeded")
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "boat_positions.json", "track file to load")
	cmd.Flags().StringVar(&raceName, "name", "", "race name")
	cmd.Flags().StringVar(&dbPath, "db", "regata.db", "SQLite database path")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newReplayCmd() *cobra.Command {
	var (
		filePath string
		url      string
		raceID   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recorded track file against a live server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New("info")

			tf, err := replay.LoadTrackFile(filePath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r := &replay.Replayer{
				URL:      url,
				RaceID:   raceID,
				Interval: interval,
				Log:      logger,
			}
			if err := r.Run(ctx, tf); err != nil && ctx.Err() == nil {
				return err
			}
			logger.Info().Msg("replay finished")
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "boat_positions.json", "track file to replay")
	cmd.Flags().StringVar(&url, "url", "ws://localhost:8080/ws", "server websocket URL")
	cmd.Flags().StringVar(&raceID, "race", "", "race id to record replayed points against")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Millisecond, "delay between points")
	return cmd
}
