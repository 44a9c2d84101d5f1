package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/johnmangawang-git/mci-delivery-tracker/config"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/api"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/cache"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/db"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/gateway"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/notify"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/repositories"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/search"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/services"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for delivery bookings, customers and proof of delivery`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
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

	deliveryService, customerService, completionService, tracer, cleanup, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Initialize and start the server
	server := api.NewServer(cfg, deliveryService, customerService, completionService, tracer)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	// Shutdown the server
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

// buildServices wires the shared service graph used by both the API server
// and the background worker.
func buildServices(cfg config.Config) (
	*services.DeliveryService,
	*services.CustomerService,
	*services.CompletionService,
	tracing.Tracer,
	func(),
	error,
) {
	// Initialize database connection. A failure here is survivable, the
	// gateway falls back to the local snapshot store.
	conn, err := db.Connect(cfg.DB)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to remote store, operating on local cache")
		conn = nil
	} else if err := db.Migrate(conn); err != nil {
		return nil, nil, nil, nil, nil, err
	}

	// Initialize local cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = cache.Disabled()
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.Noop()
	}

	// Initialize Elasticsearch client
	var searchClient *search.Client
	if cfg.Elastic.Enabled {
		searchClient, err = search.NewClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
			searchClient = nil
		}
	}

	// Initialize the persistence gateway
	store := gateway.New(
		repositories.NewDeliveryRepository(conn),
		repositories.NewCustomerRepository(conn),
		repositories.NewProofRepository(conn),
		repositories.NewPendingCompletionRepository(conn),
		redisCache,
		gateway.WithOnlineCheck(func() bool { return conn != nil }),
	)

	// Initialize services
	hub := notify.NewHub()
	notifier := notify.NewLogNotifier()
	customerService := services.NewCustomerService(store, hub)
	deliveryService := services.NewDeliveryService(store, customerService, hub)
	completionService := services.NewCompletionService(store, deliveryService, hub, notifier, searchClient, tracer)

	cleanup := func() {
		tracer.Close()
		if redisCache != nil {
			if err := redisCache.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close Redis cache")
			}
		}
	}

	return deliveryService, customerService, completionService, tracer, cleanup, nil
}
