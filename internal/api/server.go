package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/johnmangawang-git/mci-delivery-tracker/config"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/api/handlers"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/services"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config            config.Config
	router            *gin.Engine
	httpServer        *http.Server
	deliveryService   *services.DeliveryService
	customerService   *services.CustomerService
	completionService *services.CompletionService
	tracer            tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	deliveryService *services.DeliveryService,
	customerService *services.CustomerService,
	completionService *services.CompletionService,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:            cfg,
		deliveryService:   deliveryService,
		customerService:   customerService,
		completionService: completionService,
		tracer:            tracer,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.Default()

	// Recovery middleware
	router.Use(gin.Recovery())

	// Register handlers
	deliveryHandler := handlers.NewDeliveryHandler(s.deliveryService, s.tracer)
	deliveryHandler.RegisterRoutes(router)

	customerHandler := handlers.NewCustomerHandler(s.customerService, s.tracer)
	customerHandler.RegisterRoutes(router)

	epodHandler := handlers.NewEPodHandler(s.completionService, s.tracer)
	epodHandler.RegisterRoutes(router)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
