package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/services"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/tracing"
)

// CustomerHandler handles customer-related HTTP requests
type CustomerHandler struct {
	customerService *services.CustomerService
	tracer          tracing.Tracer
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customerService *services.CustomerService, tracer tracing.Tracer) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		tracer:          tracer,
	}
}

// SaveCustomerRequest represents an explicit customer create or edit
type SaveCustomerRequest struct {
	ID            string `json:"id"`
	ContactPerson string `json:"contactPerson" binding:"required"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Email         string `json:"email"`
	Notes         string `json:"notes"`
}

// ListCustomers returns the deduplicated customer roster
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-customers")
	defer h.tracer.EndTransaction(txn)

	customers, err := h.customerService.FetchAll(c)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, customers)
}

// SaveCustomer creates or updates a customer record
func (h *CustomerHandler) SaveCustomer(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-save-customer")
	defer h.tracer.EndTransaction(txn)

	var req SaveCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "contact_person", req.ContactPerson)

	customer := &models.Customer{
		ID:            req.ID,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Address:       req.Address,
		Email:         req.Email,
		Notes:         req.Notes,
	}

	saved, err := h.customerService.Save(c, customer)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// MergeCustomers runs the deduplication pass on demand
func (h *CustomerHandler) MergeCustomers(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-merge-customers")
	defer h.tracer.EndTransaction(txn)

	merged, err := h.customerService.MergeDuplicates(c)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"merged": merged})
}

// RegisterRoutes registers the handler's routes
func (h *CustomerHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/customers", h.ListCustomers)
	router.POST("/api/customers", h.SaveCustomer)
	router.POST("/api/customers/merge", h.MergeCustomers)
}
