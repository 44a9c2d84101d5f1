package gateway_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/gateway"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/testutil"
)

type fixture struct {
	deliveries *testutil.DeliveryBackend
	customers  *testutil.CustomerBackend
	proofs     *testutil.ProofBackend
	pending    *testutil.PendingBackend
	local      *testutil.MemoryStore
	store      *gateway.Gateway
}

func newFixture(opts ...gateway.Option) *fixture {
	f := &fixture{
		deliveries: testutil.NewDeliveryBackend(),
		customers:  testutil.NewCustomerBackend(),
		pending:    testutil.NewPendingBackend(),
		local:      testutil.NewMemoryStore(),
	}
	f.proofs = testutil.NewProofBackend(f.pending)
	f.store = gateway.New(f.deliveries, f.customers, f.proofs, f.pending, f.local, opts...)
	return f
}

func (f *fixture) failRemote() {
	err := errors.New("connection refused")
	f.deliveries.Err = err
	f.customers.Err = err
	f.proofs.Err = err
	f.pending.Err = err
}

func TestSaveDeliveryStampsAndMirrors(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	f := newFixture(gateway.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	saved, err := f.store.SaveDelivery(ctx, &models.Delivery{
		DRNumber:     "DR-1001",
		CustomerName: "Ana Santos",
		Status:       models.StatusActive,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, saved.ID)
	require.Equal(t, now, saved.CreatedAt)
	require.Equal(t, now, saved.UpdatedAt)

	// The remote row exists and the local snapshot mirrors it.
	require.Len(t, f.deliveries.Rows(), 1)
	var snapshot []models.Delivery
	require.NoError(t, f.local.ReadCollection(ctx, "deliveries-active", &snapshot))
	require.Len(t, snapshot, 1)
	require.Equal(t, "DR-1001", snapshot[0].DRNumber)
}

func TestFetchDeliveriesEmptyIsNotAnError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	deliveries, err := f.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesActive)
	require.NoError(t, err)
	require.NotNil(t, deliveries)
	require.Empty(t, deliveries)
}

func TestSaveDeliveryFallsBackToLocalStore(t *testing.T) {
	f := newFixture()
	f.failRemote()
	ctx := context.Background()

	saved, err := f.store.SaveDelivery(ctx, &models.Delivery{
		DRNumber:     "DR-2001",
		CustomerName: "Ben Reyes",
		Status:       models.StatusActive,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, saved.ID)

	// Nothing reached the remote store, but reads still see the record.
	require.Empty(t, f.deliveries.Rows())
	deliveries, err := f.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesActive)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	require.Equal(t, "DR-2001", deliveries[0].DRNumber)
}

func TestFetchDeliveriesServesSnapshotDuringOutage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.store.SaveDelivery(ctx, &models.Delivery{
		DRNumber:     "DR-3001",
		CustomerName: "Carla Cruz",
		Status:       models.StatusInTransit,
	})
	require.NoError(t, err)

	f.failRemote()
	f.store.InvalidateDeliveryReads(ctx)

	deliveries, err := f.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesActive)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	require.Equal(t, models.StatusInTransit, deliveries[0].Status)
}

func TestSaveDeliveryRoutesCompletedToHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	completedAt := time.Now()
	_, err := f.store.SaveDelivery(ctx, &models.Delivery{
		DRNumber:     "DR-4001",
		CustomerName: "Dina Lim",
		Status:       models.StatusCompleted,
		CompletedAt:  &completedAt,
	})
	require.NoError(t, err)

	history, err := f.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesHistory)
	require.NoError(t, err)
	require.Len(t, history, 1)

	active, err := f.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesActive)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestRemoveDeliveryPrunesBothStores(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.store.SaveDelivery(ctx, &models.Delivery{
		DRNumber:     "DR-5001",
		CustomerName: "Ed Tan",
		Status:       models.StatusActive,
	})
	require.NoError(t, err)

	removed, err := f.store.RemoveDelivery(ctx, gateway.CollectionDeliveriesActive, "DR-5001")
	require.NoError(t, err)
	require.True(t, removed)

	require.Empty(t, f.deliveries.Rows())
	deliveries, err := f.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesActive)
	require.NoError(t, err)
	require.Empty(t, deliveries)

	removed, err = f.store.RemoveDelivery(ctx, gateway.CollectionDeliveriesActive, "DR-5001")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestSaveProofWithPendingWritesBoth(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	proof := &models.ProofOfDelivery{
		DRNumber:       "DR-6001",
		SignatureImage: "data:image/png;base64,abc",
		SignedAt:       time.Now(),
	}
	pending := &models.PendingCompletion{DRNumber: "DR-6001", SignedAt: proof.SignedAt}

	_, err := f.store.SaveProofWithPending(ctx, proof, pending)
	require.NoError(t, err)

	require.Len(t, f.proofs.Rows(), 1)
	require.Len(t, f.pending.Rows(), 1)

	markers, err := f.store.FetchPendingCompletions(ctx)
	require.NoError(t, err)
	require.Len(t, markers, 1)
	require.Equal(t, "DR-6001", markers[0].DRNumber)

	removed, err := f.store.RemovePendingCompletion(ctx, "DR-6001")
	require.NoError(t, err)
	require.True(t, removed)
}

func TestSaveProofOverwritesOnResubmit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := &models.ProofOfDelivery{DRNumber: "DR-7001", SignatureImage: "sig-1", SignedAt: time.Now()}
	_, err := f.store.SaveProofWithPending(ctx, first, &models.PendingCompletion{DRNumber: "DR-7001"})
	require.NoError(t, err)

	second := &models.ProofOfDelivery{DRNumber: "DR-7001", SignatureImage: "sig-2", SignedAt: time.Now()}
	_, err = f.store.SaveProofWithPending(ctx, second, &models.PendingCompletion{DRNumber: "DR-7001"})
	require.NoError(t, err)

	proofs, err := f.store.FetchProofs(ctx)
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	require.Equal(t, "sig-2", proofs[0].SignatureImage)
}

func TestSaveProofAloneMirrorsLocally(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.store.SaveProof(ctx, &models.ProofOfDelivery{
		DRNumber:       "DR-8001",
		SignatureImage: "sig",
		SignedAt:       time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, f.proofs.Rows(), 1)
	require.Empty(t, f.pending.Rows())

	f.failRemote()
	proofs, err := f.store.FetchProofs(ctx)
	require.NoError(t, err)
	require.Len(t, proofs, 1)
}

func TestSaveCustomerFallsBackAndMergesLocally(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	saved, err := f.store.SaveCustomer(ctx, &models.Customer{
		ID:            "CUST-001",
		ContactPerson: "Fe Uy",
		Phone:         "0917-555-0000",
		Status:        models.CustomerActive,
	})
	require.NoError(t, err)

	f.failRemote()

	saved.BookingsCount = 7
	_, err = f.store.SaveCustomer(ctx, saved)
	require.NoError(t, err)

	customers, err := f.store.FetchCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, 7, customers[0].BookingsCount)
}
