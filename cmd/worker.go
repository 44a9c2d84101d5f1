package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/johnmangawang-git/mci-delivery-tracker/config"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that retries pending completions and deduplicates customers`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	_, customerService, completionService, _, cleanup, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Start the scheduled jobs
	g.Go(func() error {
		log.Info().
			Dur("reconcile_interval", cfg.Worker.ReconcileInterval).
			Dur("dedupe_interval", cfg.Worker.DedupeInterval).
			Msg("Starting background jobs")

		// Create a scheduler
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		// Retry deliveries whose proof was captured but whose move to
		// history never happened
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.ReconcileInterval),
			gocron.NewTask(func() {
				if err := completionService.ReconcilePendingCompletions(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to reconcile pending completions")
				}
			}),
		)
		if err != nil {
			return err
		}

		// Fold duplicate customer records created by concurrent bookings
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.DedupeInterval),
			gocron.NewTask(func() {
				merged, err := customerService.MergeDuplicates(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Failed to merge duplicate customers")
					return
				}
				if merged > 0 {
					log.Info().Int("merged", merged).Msg("Merged duplicate customers")
				}
			}),
		)
		if err != nil {
			return err
		}

		// Start the scheduler
		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		// Shutdown the scheduler
		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
