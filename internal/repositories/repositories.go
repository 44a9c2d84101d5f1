package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/db"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
)

// DeliveryRepository provides remote access to delivery data. The active and
// history collections are both backed by the deliveries table; membership is
// a status filter, never a second copy of the row.
type DeliveryRepository interface {
	Upsert(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error)
	GetByDRNumber(ctx context.Context, drNumber string) (*models.Delivery, error)
	FindByCompletion(ctx context.Context, completed bool) ([]models.Delivery, error)
	Delete(ctx context.Context, drNumber string, completed bool) (bool, error)
}

type deliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository creates a new delivery repository.
func NewDeliveryRepository(conn *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: conn}
}

// Upsert inserts or updates a delivery by its DR number. The conditional
// insert runs server-side so two racing saves for the same DR cannot fork
// into two rows.
func (r *deliveryRepository) Upsert(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error) {
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "dr_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_name", "customer_contact", "origin", "destination",
			"truck_plate", "distance_km", "additional_costs", "status",
			"completed_at", "updated_at",
		}),
	}).Create(delivery).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert delivery")
	}

	// Re-read so the caller sees the canonical row, including the stable ID
	// assigned by whichever write won.
	return r.GetByDRNumber(ctx, delivery.DRNumber)
}

// GetByDRNumber gets a delivery by its natural key.
func (r *deliveryRepository) GetByDRNumber(ctx context.Context, drNumber string) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).Where("dr_number = ?", drNumber).First(&delivery).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get delivery by DR number")
	}
	return &delivery, nil
}

// FindByCompletion lists the active collection (completed=false, newest
// booking first) or the history collection (completed=true, most recently
// completed first).
func (r *deliveryRepository) FindByCompletion(ctx context.Context, completed bool) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	query := r.db.WithContext(ctx)
	if completed {
		query = query.Where("status = ?", models.StatusCompleted).Order("completed_at DESC")
	} else {
		query = query.Where("status <> ?", models.StatusCompleted).Order("created_at DESC")
	}
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list deliveries")
	}
	return deliveries, nil
}

// Delete removes a delivery from one status class by DR number.
func (r *deliveryRepository) Delete(ctx context.Context, drNumber string, completed bool) (bool, error) {
	query := r.db.WithContext(ctx).Where("dr_number = ?", drNumber)
	if completed {
		query = query.Where("status = ?", models.StatusCompleted)
	} else {
		query = query.Where("status <> ?", models.StatusCompleted)
	}
	result := query.Delete(&models.Delivery{})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to delete delivery")
	}
	return result.RowsAffected > 0, nil
}

// CustomerRepository provides remote access to customer data.
type CustomerRepository interface {
	Upsert(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	FindAll(ctx context.Context) ([]models.Customer, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository.
func NewCustomerRepository(conn *gorm.DB) CustomerRepository {
	return &customerRepository{db: conn}
}

// Upsert inserts or updates a customer by its sequence ID. Natural-key
// de-duplication happens above this layer; the merge pass reconciles any
// identity that slipped through as two rows.
func (r *customerRepository) Upsert(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"contact_person", "phone", "address", "email", "status", "notes",
			"bookings_count", "last_delivery_date", "updated_at",
		}),
	}).Create(customer).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert customer")
	}
	return customer, nil
}

// FindAll lists customers oldest first, the iteration order the resolver's
// tie-break depends on.
func (r *customerRepository) FindAll(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&customers).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list customers")
	}
	return customers, nil
}

// Delete removes a customer row. Used by the merge pass to retire folded
// duplicates.
func (r *customerRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Customer{})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to delete customer")
	}
	return result.RowsAffected > 0, nil
}

// ProofRepository provides remote access to proof-of-delivery records.
type ProofRepository interface {
	Upsert(ctx context.Context, proof *models.ProofOfDelivery) (*models.ProofOfDelivery, error)
	UpsertWithPending(ctx context.Context, proof *models.ProofOfDelivery, pending *models.PendingCompletion) (*models.ProofOfDelivery, error)
	FindAll(ctx context.Context) ([]models.ProofOfDelivery, error)
	GetByDRNumber(ctx context.Context, drNumber string) (*models.ProofOfDelivery, error)
}

type proofRepository struct {
	db *gorm.DB
}

// NewProofRepository creates a new proof-of-delivery repository.
func NewProofRepository(conn *gorm.DB) ProofRepository {
	return &proofRepository{db: conn}
}

func proofConflict() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "dr_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_name", "customer_contact", "truck_plate", "origin",
			"destination", "signature_image", "status", "signed_at", "updated_at",
		}),
	}
}

// Upsert writes a proof with overwrite-on-resubmit semantics: a second
// signing for the same DR replaces the stored artifact.
func (r *proofRepository) Upsert(ctx context.Context, proof *models.ProofOfDelivery) (*models.ProofOfDelivery, error) {
	err := r.db.WithContext(ctx).Clauses(proofConflict()).Create(proof).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert proof of delivery")
	}
	return proof, nil
}

// UpsertWithPending writes the proof and its pending-completion marker in a
// single transaction, so a crash cannot leave a proof with no trace of the
// still-outstanding status transition.
func (r *proofRepository) UpsertWithPending(ctx context.Context, proof *models.ProofOfDelivery, pending *models.PendingCompletion) (*models.ProofOfDelivery, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(proofConflict()).Create(proof).Error; err != nil {
			return errors.Wrap(err, "failed to upsert proof of delivery")
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dr_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"signed_at", "attempts", "updated_at"}),
		}).Create(pending).Error
		if err != nil {
			return errors.Wrap(err, "failed to record pending completion")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proof, nil
}

// FindAll lists proofs newest signing first.
func (r *proofRepository) FindAll(ctx context.Context) ([]models.ProofOfDelivery, error) {
	var proofs []models.ProofOfDelivery
	err := r.db.WithContext(ctx).Order("signed_at DESC").Find(&proofs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list proofs of delivery")
	}
	return proofs, nil
}

// GetByDRNumber gets a proof by its DR number.
func (r *proofRepository) GetByDRNumber(ctx context.Context, drNumber string) (*models.ProofOfDelivery, error) {
	var proof models.ProofOfDelivery
	err := r.db.WithContext(ctx).Where("dr_number = ?", drNumber).First(&proof).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get proof by DR number")
	}
	return &proof, nil
}

// PendingCompletionRepository tracks completion transitions that still need
// to be confirmed against the delivery collections.
type PendingCompletionRepository interface {
	Upsert(ctx context.Context, pending *models.PendingCompletion) (*models.PendingCompletion, error)
	FindAll(ctx context.Context) ([]models.PendingCompletion, error)
	Delete(ctx context.Context, drNumber string) (bool, error)
}

type pendingCompletionRepository struct {
	db *gorm.DB
}

// NewPendingCompletionRepository creates a new pending-completion repository.
func NewPendingCompletionRepository(conn *gorm.DB) PendingCompletionRepository {
	return &pendingCompletionRepository{db: conn}
}

func (r *pendingCompletionRepository) Upsert(ctx context.Context, pending *models.PendingCompletion) (*models.PendingCompletion, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dr_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"signed_at", "attempts", "updated_at"}),
	}).Create(pending).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert pending completion")
	}
	return pending, nil
}

func (r *pendingCompletionRepository) FindAll(ctx context.Context) ([]models.PendingCompletion, error) {
	var pendings []models.PendingCompletion
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&pendings).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending completions")
	}
	return pendings, nil
}

func (r *pendingCompletionRepository) Delete(ctx context.Context, drNumber string) (bool, error) {
	result := r.db.WithContext(ctx).Where("dr_number = ?", drNumber).Delete(&models.PendingCompletion{})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to delete pending completion")
	}
	return result.RowsAffected > 0, nil
}
