package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/dedupe"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/gateway"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/notify"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/resolver"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/validation"
)

// CustomerService owns the customer lifecycle: explicit saves, auto-creation
// from bookings, and the de-duplication pass that runs on every load.
type CustomerService struct {
	store *gateway.Gateway
	hub   *notify.Hub
	now   func() time.Time
}

// NewCustomerService creates a new customer service.
func NewCustomerService(store *gateway.Gateway, hub *notify.Hub) *CustomerService {
	return &CustomerService{
		store: store,
		hub:   hub,
		now:   time.Now,
	}
}

// FetchAll returns the live customer set with duplicates merged. The merge
// re-runs on every load; merging an already-merged set is a no-op, so the
// pass is safe to repeat.
func (s *CustomerService) FetchAll(ctx context.Context) ([]models.Customer, error) {
	customers, _, err := s.loadMerged(ctx)
	return customers, err
}

// MergeDuplicates runs a merge pass and reports how many duplicate records
// were folded away.
func (s *CustomerService) MergeDuplicates(ctx context.Context) (int, error) {
	_, merges, err := s.loadMerged(ctx)
	return merges, err
}

func (s *CustomerService) loadMerged(ctx context.Context) ([]models.Customer, int, error) {
	customers, err := s.store.FetchCustomers(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to load customers")
	}

	result := dedupe.MergeDuplicates(customers)
	if result.Merges == 0 {
		return result.Customers, 0, nil
	}

	log.Info().Int("merges", result.Merges).Msg("folding duplicate customer records")
	for i := range result.Changed {
		if _, err := s.store.SaveCustomer(ctx, &result.Changed[i]); err != nil {
			return nil, 0, errors.Wrap(err, "failed to persist merged customer")
		}
	}
	for _, id := range result.Retired {
		if _, err := s.store.RemoveCustomer(ctx, id); err != nil {
			return nil, 0, errors.Wrapf(err, "failed to retire duplicate customer %s", id)
		}
	}
	s.hub.DataChanged(string(gateway.CollectionCustomers))
	return result.Customers, result.Merges, nil
}

// AutoCreate registers a booking against a customer identity: an existing
// (name, phone) gets its booking count incremented and its last delivery
// date bumped; an unseen identity gets a fresh sequence ID. Two concurrent
// calls for a brand-new identity can both insert; the next merge pass folds
// the pair back into one record.
func (s *CustomerService) AutoCreate(ctx context.Context, contactPerson, phone, address string) (*models.Customer, error) {
	if strings.TrimSpace(contactPerson) == "" {
		return nil, &ValidationError{Field: "contactPerson", Reason: "contact person is required"}
	}

	customers, _, err := s.loadMerged(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if idx := resolver.IndexCustomerByKey(customers, contactPerson, phone); idx >= 0 {
		existing := customers[idx]
		existing.BookingsCount++
		existing.LastDeliveryDate = &now
		saved, err := s.store.SaveCustomer(ctx, &existing)
		if err != nil {
			return nil, errors.Wrap(err, "failed to update customer booking stats")
		}
		s.hub.DataChanged(string(gateway.CollectionCustomers))
		return saved, nil
	}

	customer := &models.Customer{
		ID:               nextCustomerID(customers),
		ContactPerson:    strings.TrimSpace(contactPerson),
		Phone:            strings.TrimSpace(phone),
		Address:          address,
		Status:           models.CustomerActive,
		BookingsCount:    1,
		LastDeliveryDate: &now,
	}
	saved, err := s.store.SaveCustomer(ctx, customer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create customer")
	}
	log.Info().Str("customer_id", saved.ID).Str("contact_person", saved.ContactPerson).Msg("customer auto-created from booking")
	s.hub.DataChanged(string(gateway.CollectionCustomers))
	return saved, nil
}

// Save persists an explicitly edited customer record. A candidate matching an
// existing record by ID or natural key updates that record instead of forking
// a duplicate.
func (s *CustomerService) Save(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if strings.TrimSpace(customer.ContactPerson) == "" {
		return nil, &ValidationError{Field: "contactPerson", Reason: "contact person is required"}
	}
	if customer.BookingsCount < 0 {
		return nil, &ValidationError{Field: "bookingsCount", Reason: "bookings count cannot be negative"}
	}
	if err := validation.ValidateStruct(customer); err != nil {
		field, reason := validation.Describe(err)
		return nil, &ValidationError{Field: field, Reason: reason}
	}

	customers, _, err := s.loadMerged(ctx)
	if err != nil {
		return nil, err
	}

	if idx := resolver.IndexCustomer(customers, *customer); idx >= 0 {
		existing := customers[idx]
		customer.ID = existing.ID
		customer.CreatedAt = existing.CreatedAt
	} else if customer.ID == "" {
		customer.ID = nextCustomerID(customers)
	}
	if customer.Status == "" {
		customer.Status = models.CustomerActive
	}

	saved, err := s.store.SaveCustomer(ctx, customer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to save customer")
	}
	s.hub.DataChanged(string(gateway.CollectionCustomers))
	return saved, nil
}

// nextCustomerID synthesizes a zero-padded sequence token, CUST-001 style.
// The sequence seeds from the live record count and skips over tokens still
// held by surviving records after a merge pass retired lower numbers.
func nextCustomerID(customers []models.Customer) string {
	taken := make(map[string]bool, len(customers))
	for _, c := range customers {
		taken[c.ID] = true
	}
	for seq := len(customers) + 1; ; seq++ {
		id := fmt.Sprintf("CUST-%03d", seq)
		if !taken[id] {
			return id
		}
	}
}
