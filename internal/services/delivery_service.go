package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/gateway"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/notify"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/resolver"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/validation"
)

// DeliveryService is the delivery lifecycle manager. It is the only
// component allowed to move a record between the active and history
// collections; everything else reads them through the gateway.
type DeliveryService struct {
	store     *gateway.Gateway
	customers *CustomerService
	hub       *notify.Hub
	now       func() time.Time
}

// NewDeliveryService creates a new delivery service.
func NewDeliveryService(store *gateway.Gateway, customers *CustomerService, hub *notify.Hub) *DeliveryService {
	return &DeliveryService{
		store:     store,
		customers: customers,
		hub:       hub,
		now:       time.Now,
	}
}

// Save books or updates a delivery. A first booking for a DR number also
// registers the booking against the customer identity it references. A DR
// number that already completed is refused: history is append-only and
// Completed is terminal, so the number cannot be reused for a new booking.
func (s *DeliveryService) Save(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error) {
	if strings.TrimSpace(delivery.DRNumber) == "" {
		return nil, &ValidationError{Field: "drNumber", Reason: "DR number is required"}
	}
	if strings.TrimSpace(delivery.CustomerName) == "" {
		return nil, &ValidationError{Field: "customerName", Reason: "customer name is required"}
	}
	if delivery.DistanceKM < 0 {
		return nil, &ValidationError{Field: "distanceKm", Reason: "distance cannot be negative"}
	}
	for _, cost := range delivery.AdditionalCosts {
		if cost.Amount < 0 {
			return nil, &ValidationError{Field: "additionalCosts", Reason: "cost amounts cannot be negative"}
		}
	}
	if err := validation.ValidateStruct(delivery); err != nil {
		field, reason := validation.Describe(err)
		return nil, &ValidationError{Field: field, Reason: reason}
	}
	if delivery.Status == "" {
		delivery.Status = models.StatusActive
	}
	if !delivery.Status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown delivery status"}
	}
	if delivery.Status == models.StatusCompleted {
		// History is only entered through the completion workflow.
		return nil, &ValidationError{Field: "status", Reason: "deliveries are completed through the proof-of-delivery workflow"}
	}

	active, err := s.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesActive)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load active deliveries")
	}
	isNew := resolver.IndexDelivery(active, *delivery) < 0

	history, err := s.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesHistory)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load delivery history")
	}
	if resolver.IndexDeliveryByDR(history, delivery.DRNumber) >= 0 {
		return nil, &ValidationError{Field: "drNumber", Reason: "DR number belongs to a completed delivery and cannot be rebooked"}
	}

	saved, err := s.store.SaveDelivery(ctx, delivery)
	if err != nil {
		return nil, errors.Wrap(err, "failed to save delivery")
	}

	if isNew {
		_, err := s.customers.AutoCreate(ctx, saved.CustomerName, saved.CustomerContact, saved.Destination)
		if err != nil {
			// The booking stands even when the customer ledger update fails;
			// the next booking or merge pass reconciles the count.
			log.Warn().Err(err).Str("dr_number", saved.DRNumber).Msg("failed to register booking against customer")
		}
	}

	s.hub.DataChanged(string(gateway.CollectionDeliveriesActive))
	return saved, nil
}

// FetchActive returns the active collection, newest booking first.
func (s *DeliveryService) FetchActive(ctx context.Context) ([]models.Delivery, error) {
	return s.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesActive)
}

// FetchHistory returns the history collection, most recently completed first.
func (s *DeliveryService) FetchHistory(ctx context.Context) ([]models.Delivery, error) {
	return s.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesHistory)
}

// SetStatus transitions the delivery with the given DR number. Completed is
// terminal: the record is stamped, copied to the head of history, and removed
// from active. Completing an already-completed DR is a no-op so a retried
// completion never duplicates the history entry.
func (s *DeliveryService) SetStatus(ctx context.Context, drNumber string, status models.DeliveryStatus) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown delivery status"}
	}

	active, err := s.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesActive)
	if err != nil {
		return errors.Wrap(err, "failed to load active deliveries")
	}

	idx := resolver.IndexDeliveryByDR(active, drNumber)
	if idx < 0 {
		if status == models.StatusCompleted {
			history, err := s.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesHistory)
			if err != nil {
				return errors.Wrap(err, "failed to load delivery history")
			}
			if resolver.IndexDeliveryByDR(history, drNumber) >= 0 {
				// Already in history; a second completion changes nothing.
				return nil
			}
		}
		return &NotFoundError{Entity: "delivery", Key: drNumber}
	}

	delivery := active[idx]
	if status != models.StatusCompleted {
		delivery.Status = status
		if _, err := s.store.SaveDelivery(ctx, &delivery); err != nil {
			return errors.Wrap(err, "failed to persist status change")
		}
		s.hub.DataChanged(string(gateway.CollectionDeliveriesActive))
		return nil
	}

	now := s.now()
	delivery.Status = models.StatusCompleted
	if delivery.CompletedAt == nil {
		delivery.CompletedAt = &now
	}
	if _, err := s.store.SaveDelivery(ctx, &delivery); err != nil {
		return errors.Wrap(err, "failed to move delivery into history")
	}
	if _, err := s.store.RemoveDelivery(ctx, gateway.CollectionDeliveriesActive, drNumber); err != nil {
		return errors.Wrap(err, "failed to remove completed delivery from active")
	}

	log.Info().Str("dr_number", drNumber).Msg("delivery completed")
	s.hub.DataChanged(string(gateway.CollectionDeliveriesActive))
	s.hub.DataChanged(string(gateway.CollectionDeliveriesHistory))
	return nil
}
