package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// DeliveryStatus is the operational state of a delivery.
type DeliveryStatus string

const (
	StatusActive     DeliveryStatus = "Active"
	StatusInTransit  DeliveryStatus = "In Transit"
	StatusOnSchedule DeliveryStatus = "On Schedule"
	StatusDelayed    DeliveryStatus = "Delayed"
	StatusCompleted  DeliveryStatus = "Completed"
)

// Valid reports whether s is one of the known delivery statuses.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInTransit, StatusOnSchedule, StatusDelayed, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusCompleted
}

// AdditionalCost is a single surcharge line on a delivery.
type AdditionalCost struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// AdditionalCosts is the ordered surcharge list, stored as a jsonb column.
// Business logic only ever sees this canonical shape; the storage mapping
// lives entirely in Value/Scan.
type AdditionalCosts []AdditionalCost

// Value implements driver.Valuer.
func (c AdditionalCosts) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal additional costs")
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (c *AdditionalCosts) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("unsupported additional costs column type %T", value)
	}
	if len(data) == 0 {
		*c = nil
		return nil
	}
	if err := json.Unmarshal(data, c); err != nil {
		return errors.Wrap(err, "failed to unmarshal additional costs")
	}
	return nil
}

// Total returns the sum of all surcharge amounts.
func (c AdditionalCosts) Total() float64 {
	var total float64
	for _, cost := range c {
		total += cost.Amount
	}
	return total
}

// Delivery represents one booked shipment. Membership in the active or
// history collection is derived from Status, never stored separately.
type Delivery struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DRNumber        string          `gorm:"column:dr_number;not null;uniqueIndex" json:"drNumber" validate:"required,dr_number"`
	CustomerName    string          `gorm:"not null" json:"customerName"`
	CustomerContact string          `json:"customerContact"`
	Origin          string          `json:"origin"`
	Destination     string          `json:"destination"`
	TruckPlate      string          `json:"truckPlate"`
	DistanceKM      float64         `gorm:"column:distance_km;not null;default:0" json:"distanceKm"`
	AdditionalCosts AdditionalCosts `gorm:"type:jsonb" json:"additionalCosts"`
	Status          DeliveryStatus  `gorm:"not null;index" json:"status"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Completed reports whether the delivery belongs to the history collection.
func (d *Delivery) Completed() bool {
	return d.Status == StatusCompleted
}

// CustomerStatus marks a customer record as live or retired.
type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
)

// Customer is the canonical identity for a contact used across deliveries.
// The ID is a zero-padded sequence token (CUST-001), not a UUID, because it
// is shown to operators and printed on documents.
type Customer struct {
	ID               string         `gorm:"primaryKey;size:32" json:"id" validate:"omitempty,customer_id"`
	ContactPerson    string         `gorm:"not null" json:"contactPerson" validate:"required"`
	Phone            string         `gorm:"not null;index" json:"phone"`
	Address          string         `json:"address"`
	Email            string         `json:"email" validate:"omitempty,email"`
	Status           CustomerStatus `gorm:"not null;default:active" json:"status"`
	Notes            string         `json:"notes"`
	BookingsCount    int            `gorm:"not null;default:0" json:"bookingsCount"`
	LastDeliveryDate *time.Time     `json:"lastDeliveryDate,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProofOfDelivery is the immutable record of a completed handoff. At most one
// exists per DR number; a second signing overwrites the first.
type ProofOfDelivery struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	DRNumber        string    `gorm:"column:dr_number;not null;uniqueIndex" json:"drNumber"`
	CustomerName    string    `json:"customerName"`
	CustomerContact string    `json:"customerContact"`
	TruckPlate      string    `json:"truckPlate"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	SignatureImage  string    `gorm:"type:text;not null" json:"signatureImage"`
	Status          string    `gorm:"not null;default:Completed" json:"status"`
	SignedAt        time.Time `json:"signedAt"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// PendingCompletion marks a proof that has been captured but whose status
// transition has not been confirmed yet. The worker retries these until the
// delivery lands in history.
type PendingCompletion struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	DRNumber  string    `gorm:"column:dr_number;not null;uniqueIndex" json:"drNumber"`
	SignedAt  time.Time `json:"signedAt"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// SetupModels configures GORM models and runs migrations.
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Delivery{},
		&Customer{},
		&ProofOfDelivery{},
		&PendingCompletion{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}
	return nil
}
