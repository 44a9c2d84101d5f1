package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/services"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/tracing"
)

// EPodHandler handles electronic proof-of-delivery HTTP requests
type EPodHandler struct {
	completionService *services.CompletionService
	tracer            tracing.Tracer
}

// NewEPodHandler creates a new proof-of-delivery handler
func NewEPodHandler(completionService *services.CompletionService, tracer tracing.Tracer) *EPodHandler {
	return &EPodHandler{
		completionService: completionService,
		tracer:            tracer,
	}
}

// CompleteRequest represents a single-delivery completion request
type CompleteRequest struct {
	SignatureImage  string `json:"signatureImage" binding:"required"`
	CustomerName    string `json:"customerName"`
	CustomerContact string `json:"customerContact"`
}

// CompleteBatchRequest represents a multi-delivery completion request
type CompleteBatchRequest struct {
	DRNumbers       []string `json:"drNumbers" binding:"required"`
	SignatureImage  string   `json:"signatureImage" binding:"required"`
	CustomerName    string   `json:"customerName"`
	CustomerContact string   `json:"customerContact"`
}

// CompleteDelivery captures a proof of delivery and moves the delivery to history
func (h *EPodHandler) CompleteDelivery(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-complete-delivery")
	defer h.tracer.EndTransaction(txn)

	drNumber := c.Param("drNumber")
	h.tracer.AddAttribute(txn, "dr_number", drNumber)

	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	contact := services.ContactDetails{
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
	}
	if err := h.completionService.Complete(c, drNumber, req.SignatureImage, contact); err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"drNumber": drNumber, "completed": true})
}

// CompleteBatch completes several deliveries against one signature capture
func (h *EPodHandler) CompleteBatch(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-complete-batch")
	defer h.tracer.EndTransaction(txn)

	var req CompleteBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	contact := services.ContactDetails{
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
	}
	result, err := h.completionService.CompleteBatch(c, req.DRNumbers, req.SignatureImage, contact)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	failed := map[string]string{}
	for drNumber, ferr := range result.Failed {
		failed[drNumber] = ferr.Error()
	}

	status := http.StatusOK
	if len(failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"completed": result.Completed, "failed": failed})
}

// ListProofs returns all captured proofs of delivery
func (h *EPodHandler) ListProofs(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-proofs")
	defer h.tracer.EndTransaction(txn)

	proofs, err := h.completionService.FetchProofs(c)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, proofs)
}

// RegisterRoutes registers the handler's routes
func (h *EPodHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/epod/:drNumber/complete", h.CompleteDelivery)
	router.POST("/api/epod/complete-batch", h.CompleteBatch)
	router.GET("/api/epod", h.ListProofs)
}
