package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/services"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/tracing"
)

// DeliveryHandler handles delivery-related HTTP requests
type DeliveryHandler struct {
	deliveryService *services.DeliveryService
	tracer          tracing.Tracer
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveryService *services.DeliveryService, tracer tracing.Tracer) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: deliveryService,
		tracer:          tracer,
	}
}

// BookDeliveryRequest represents an incoming booking request
type BookDeliveryRequest struct {
	DRNumber        string                  `json:"drNumber" binding:"required"`
	CustomerName    string                  `json:"customerName" binding:"required"`
	CustomerContact string                  `json:"customerContact"`
	Origin          string                  `json:"origin"`
	Destination     string                  `json:"destination"`
	TruckPlate      string                  `json:"truckPlate"`
	DistanceKM      float64                 `json:"distanceKm"`
	AdditionalCosts []models.AdditionalCost `json:"additionalCosts"`
	Status          models.DeliveryStatus   `json:"status"`
}

// SetStatusRequest represents a status change request
type SetStatusRequest struct {
	Status models.DeliveryStatus `json:"status" binding:"required"`
}

// BookDelivery books a new delivery or updates an existing one
func (h *DeliveryHandler) BookDelivery(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-book-delivery")
	defer h.tracer.EndTransaction(txn)

	var req BookDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "dr_number", req.DRNumber)
	h.tracer.AddAttribute(txn, "customer_name", req.CustomerName)

	delivery := &models.Delivery{
		DRNumber:        req.DRNumber,
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
		Origin:          req.Origin,
		Destination:     req.Destination,
		TruckPlate:      req.TruckPlate,
		DistanceKM:      req.DistanceKM,
		AdditionalCosts: req.AdditionalCosts,
		Status:          req.Status,
	}

	saved, err := h.deliveryService.Save(c, delivery)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// ListDeliveries returns the active or history collection
func (h *DeliveryHandler) ListDeliveries(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-deliveries")
	defer h.tracer.EndTransaction(txn)

	collection := c.DefaultQuery("collection", "active")

	var (
		deliveries []models.Delivery
		err        error
	)
	switch collection {
	case "active":
		deliveries, err = h.deliveryService.FetchActive(c)
	case "history":
		deliveries, err = h.deliveryService.FetchHistory(c)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection must be active or history"})
		return
	}

	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deliveries)
}

// SetDeliveryStatus updates the lifecycle status of a delivery
func (h *DeliveryHandler) SetDeliveryStatus(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-set-delivery-status")
	defer h.tracer.EndTransaction(txn)

	drNumber := c.Param("drNumber")
	h.tracer.AddAttribute(txn, "dr_number", drNumber)

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	if err := h.deliveryService.SetStatus(c, drNumber, req.Status); err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"drNumber": drNumber, "status": req.Status})
}

// RegisterRoutes registers the handler's routes
func (h *DeliveryHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/deliveries", h.BookDelivery)
	router.GET("/api/deliveries", h.ListDeliveries)
	router.PATCH("/api/deliveries/:drNumber/status", h.SetDeliveryStatus)
}
