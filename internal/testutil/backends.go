package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/repositories"
)

// DeliveryBackend is an in-memory delivery repository. Setting Err makes
// every call fail, simulating a remote store outage.
type DeliveryBackend struct {
	mu   sync.Mutex
	Err  error
	rows []models.Delivery
}

func NewDeliveryBackend() *DeliveryBackend {
	return &DeliveryBackend{}
}

func (b *DeliveryBackend) Upsert(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}
	for i := range b.rows {
		if b.rows[i].DRNumber == delivery.DRNumber {
			// The stored row keeps its original identity, matching the
			// conflict clause on the natural key.
			delivery.ID = b.rows[i].ID
			delivery.CreatedAt = b.rows[i].CreatedAt
			b.rows[i] = *delivery
			saved := b.rows[i]
			return &saved, nil
		}
	}
	b.rows = append(b.rows, *delivery)
	saved := *delivery
	return &saved, nil
}

func (b *DeliveryBackend) GetByDRNumber(ctx context.Context, drNumber string) (*models.Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	for i := range b.rows {
		if b.rows[i].DRNumber == drNumber {
			row := b.rows[i]
			return &row, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (b *DeliveryBackend) FindByCompletion(ctx context.Context, completed bool) ([]models.Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	var out []models.Delivery
	for _, row := range b.rows {
		if row.Completed() == completed {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if completed {
			if out[i].CompletedAt == nil || out[j].CompletedAt == nil {
				return out[j].CompletedAt == nil
			}
			return out[i].CompletedAt.After(*out[j].CompletedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (b *DeliveryBackend) Delete(ctx context.Context, drNumber string, completed bool) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return false, b.Err
	}
	for i := range b.rows {
		if b.rows[i].DRNumber == drNumber && b.rows[i].Completed() == completed {
			b.rows = append(b.rows[:i], b.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Rows returns a copy of the stored deliveries.
func (b *DeliveryBackend) Rows() []models.Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Delivery(nil), b.rows...)
}

// CustomerBackend is an in-memory customer repository.
type CustomerBackend struct {
	mu   sync.Mutex
	Err  error
	rows []models.Customer
}

func NewCustomerBackend() *CustomerBackend {
	return &CustomerBackend{}
}

func (b *CustomerBackend) Upsert(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	for i := range b.rows {
		if b.rows[i].ID == customer.ID {
			b.rows[i] = *customer
			saved := b.rows[i]
			return &saved, nil
		}
	}
	b.rows = append(b.rows, *customer)
	saved := *customer
	return &saved, nil
}

func (b *CustomerBackend) FindAll(ctx context.Context) ([]models.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	out := append([]models.Customer(nil), b.rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (b *CustomerBackend) Delete(ctx context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return false, b.Err
	}
	for i := range b.rows {
		if b.rows[i].ID == id {
			b.rows = append(b.rows[:i], b.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ProofBackend is an in-memory proof-of-delivery repository. Pending is the
// backend that receives the marker written by UpsertWithPending.
type ProofBackend struct {
	mu      sync.Mutex
	Err     error
	Pending *PendingBackend
	rows    []models.ProofOfDelivery
}

func NewProofBackend(pending *PendingBackend) *ProofBackend {
	return &ProofBackend{Pending: pending}
}

func (b *ProofBackend) Upsert(ctx context.Context, proof *models.ProofOfDelivery) (*models.ProofOfDelivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	return b.upsertLocked(proof)
}

func (b *ProofBackend) upsertLocked(proof *models.ProofOfDelivery) (*models.ProofOfDelivery, error) {
	for i := range b.rows {
		if b.rows[i].DRNumber == proof.DRNumber {
			proof.ID = b.rows[i].ID
			proof.CreatedAt = b.rows[i].CreatedAt
			b.rows[i] = *proof
			saved := b.rows[i]
			return &saved, nil
		}
	}
	proof.ID = uint(len(b.rows) + 1)
	b.rows = append(b.rows, *proof)
	saved := *proof
	return &saved, nil
}

func (b *ProofBackend) UpsertWithPending(ctx context.Context, proof *models.ProofOfDelivery, pending *models.PendingCompletion) (*models.ProofOfDelivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	saved, err := b.upsertLocked(proof)
	if err != nil {
		return nil, err
	}
	if b.Pending != nil {
		if _, err := b.Pending.Upsert(ctx, pending); err != nil {
			return nil, err
		}
	}
	return saved, nil
}

func (b *ProofBackend) FindAll(ctx context.Context) ([]models.ProofOfDelivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	out := append([]models.ProofOfDelivery(nil), b.rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SignedAt.After(out[j].SignedAt)
	})
	return out, nil
}

func (b *ProofBackend) GetByDRNumber(ctx context.Context, drNumber string) (*models.ProofOfDelivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	for i := range b.rows {
		if b.rows[i].DRNumber == drNumber {
			row := b.rows[i]
			return &row, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// Rows returns a copy of the stored proofs.
func (b *ProofBackend) Rows() []models.ProofOfDelivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.ProofOfDelivery(nil), b.rows...)
}

// PendingBackend is an in-memory pending-completion repository.
type PendingBackend struct {
	mu   sync.Mutex
	Err  error
	rows []models.PendingCompletion
}

func NewPendingBackend() *PendingBackend {
	return &PendingBackend{}
}

func (b *PendingBackend) Upsert(ctx context.Context, pending *models.PendingCompletion) (*models.PendingCompletion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	for i := range b.rows {
		if b.rows[i].DRNumber == pending.DRNumber {
			pending.ID = b.rows[i].ID
			pending.CreatedAt = b.rows[i].CreatedAt
			b.rows[i] = *pending
			saved := b.rows[i]
			return &saved, nil
		}
	}
	pending.ID = uint(len(b.rows) + 1)
	b.rows = append(b.rows, *pending)
	saved := *pending
	return &saved, nil
}

func (b *PendingBackend) FindAll(ctx context.Context) ([]models.PendingCompletion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	out := append([]models.PendingCompletion(nil), b.rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (b *PendingBackend) Delete(ctx context.Context, drNumber string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return false, b.Err
	}
	for i := range b.rows {
		if b.rows[i].DRNumber == drNumber {
			b.rows = append(b.rows[:i], b.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Rows returns a copy of the stored markers.
func (b *PendingBackend) Rows() []models.PendingCompletion {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.PendingCompletion(nil), b.rows...)
}
