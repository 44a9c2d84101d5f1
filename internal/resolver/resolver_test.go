package resolver

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
)

func TestCustomerKeyNormalizes(t *testing.T) {
	require.Equal(t, CustomerKey("Ana Santos", "0917-111-2222"), CustomerKey("  ana santos ", " 0917-111-2222 "))
	require.NotEqual(t, CustomerKey("Ana Santos", "0917-111-2222"), CustomerKey("Ana Santos", "0917-111-2223"))
}

func TestIndexDeliveryPrefersIDOverDRNumber(t *testing.T) {
	id := uuid.New()
	deliveries := []models.Delivery{
		{ID: uuid.New(), DRNumber: "DR-1001"},
		{ID: id, DRNumber: "DR-1002"},
	}

	// The candidate's ID wins even though its DR number matches another row.
	candidate := models.Delivery{ID: id, DRNumber: "DR-1001"}
	require.Equal(t, 1, IndexDelivery(deliveries, candidate))

	// Without an ID, the DR number decides.
	candidate = models.Delivery{DRNumber: "DR-1001"}
	require.Equal(t, 0, IndexDelivery(deliveries, candidate))
}

func TestIndexDeliveryByDROldestWinsOnDuplicates(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	deliveries := []models.Delivery{
		{ID: uuid.New(), DRNumber: "DR-1001", CreatedAt: newer},
		{ID: uuid.New(), DRNumber: "DR-1001", CreatedAt: older},
	}

	require.Equal(t, 1, IndexDeliveryByDR(deliveries, "DR-1001"))
	require.Equal(t, -1, IndexDeliveryByDR(deliveries, "DR-9999"))
}

func TestIndexCustomerFallsBackToNaturalKey(t *testing.T) {
	customers := []models.Customer{
		{ID: "CUST-001", ContactPerson: "Ben Reyes", Phone: "0918-000-1111"},
		{ID: "CUST-002", ContactPerson: "Carla Cruz", Phone: "0919-222-3333"},
	}

	require.Equal(t, 1, IndexCustomer(customers, models.Customer{ID: "CUST-002"}))
	require.Equal(t, 0, IndexCustomer(customers, models.Customer{ContactPerson: "ben reyes", Phone: "0918-000-1111"}))
	require.Equal(t, -1, IndexCustomer(customers, models.Customer{ContactPerson: "Nobody", Phone: "000"}))
}

func TestIndexProofAndPendingByDR(t *testing.T) {
	proofs := []models.ProofOfDelivery{{DRNumber: "DR-1001"}, {DRNumber: "DR-1002"}}
	require.Equal(t, 1, IndexProofByDR(proofs, "DR-1002"))
	require.Equal(t, -1, IndexProofByDR(proofs, "DR-1003"))

	pendings := []models.PendingCompletion{{DRNumber: "DR-1001"}}
	require.Equal(t, 0, IndexPendingByDR(pendings, "DR-1001"))
	require.Equal(t, -1, IndexPendingByDR(pendings, "DR-1002"))
}
