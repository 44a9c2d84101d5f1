package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
)

func TestSaveDeliveryValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.deliveries.Save(ctx, &models.Delivery{CustomerName: "Ana Santos"})
	require.True(t, IsValidation(err))

	_, err = env.deliveries.Save(ctx, &models.Delivery{DRNumber: "DR-1001"})
	require.True(t, IsValidation(err))

	_, err = env.deliveries.Save(ctx, &models.Delivery{
		DRNumber: "DR-1001", CustomerName: "Ana Santos", DistanceKM: -3,
	})
	require.True(t, IsValidation(err))

	_, err = env.deliveries.Save(ctx, &models.Delivery{
		DRNumber: "DR-1001", CustomerName: "Ana Santos",
		AdditionalCosts: models.AdditionalCosts{{Description: "toll", Amount: -50}},
	})
	require.True(t, IsValidation(err))

	_, err = env.deliveries.Save(ctx, &models.Delivery{
		DRNumber: "DR-1001", CustomerName: "Ana Santos", Status: models.StatusCompleted,
	})
	require.True(t, IsValidation(err))

	// A malformed DR number is caught by the tag validator and reported
	// against the offending field.
	_, err = env.deliveries.Save(ctx, &models.Delivery{
		DRNumber: "1001", CustomerName: "Ana Santos",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "drNumber", verr.Field)
}

func TestSaveDeliveryDefaultsToActive(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	saved, err := env.deliveries.Save(ctx, &models.Delivery{
		DRNumber:     "DR-1001",
		CustomerName: "Ana Santos",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, saved.Status)

	active, err := env.deliveries.FetchActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestBookingRegistersCustomer(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.deliveries.Save(ctx, &models.Delivery{
		DRNumber:        "DR-2001",
		CustomerName:    "Ana Santos",
		CustomerContact: "0917-111-2222",
		Destination:     "Makati",
	})
	require.NoError(t, err)

	customers, err := env.customers.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, "CUST-001", customers[0].ID)
	require.Equal(t, 1, customers[0].BookingsCount)
	require.NotNil(t, customers[0].LastDeliveryDate)

	// A second booking for the same identity bumps the count.
	_, err = env.deliveries.Save(ctx, &models.Delivery{
		DRNumber:        "DR-2002",
		CustomerName:    "Ana Santos",
		CustomerContact: "0917-111-2222",
		Destination:     "Pasig",
	})
	require.NoError(t, err)

	customers, err = env.customers.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, 2, customers[0].BookingsCount)
}

func TestRebookingSameDRDoesNotDoubleCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	booking := &models.Delivery{
		DRNumber:        "DR-3001",
		CustomerName:    "Ben Reyes",
		CustomerContact: "0918-000-1111",
	}
	saved, err := env.deliveries.Save(ctx, booking)
	require.NoError(t, err)

	// Editing the same DR updates in place and leaves the ledger alone.
	saved.Destination = "Taguig"
	_, err = env.deliveries.Save(ctx, saved)
	require.NoError(t, err)

	active, err := env.deliveries.FetchActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "Taguig", active[0].Destination)

	customers, err := env.customers.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, 1, customers[0].BookingsCount)
}

func TestSetStatusTransitions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.deliveries.Save(ctx, &models.Delivery{
		DRNumber:     "DR-4001",
		CustomerName: "Carla Cruz",
	})
	require.NoError(t, err)

	require.NoError(t, env.deliveries.SetStatus(ctx, "DR-4001", models.StatusDelayed))

	active, err := env.deliveries.FetchActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, models.StatusDelayed, active[0].Status)

	err = env.deliveries.SetStatus(ctx, "DR-9999", models.StatusDelayed)
	require.True(t, IsNotFound(err))

	err = env.deliveries.SetStatus(ctx, "DR-4001", models.DeliveryStatus("Lost"))
	require.True(t, IsValidation(err))
}

func TestSetStatusCompletedMovesToHistory(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.deliveries.Save(ctx, &models.Delivery{
		DRNumber:     "DR-5001",
		CustomerName: "Dina Lim",
	})
	require.NoError(t, err)

	require.NoError(t, env.deliveries.SetStatus(ctx, "DR-5001", models.StatusCompleted))

	active, err := env.deliveries.FetchActive(ctx)
	require.NoError(t, err)
	require.Empty(t, active)

	history, err := env.deliveries.FetchHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, models.StatusCompleted, history[0].Status)
	require.NotNil(t, history[0].CompletedAt)

	// Completing again is a no-op, not an error, and history stays single.
	require.NoError(t, env.deliveries.SetStatus(ctx, "DR-5001", models.StatusCompleted))
	history, err = env.deliveries.FetchHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)

	// But a non-terminal transition on a completed DR is a not-found.
	err = env.deliveries.SetStatus(ctx, "DR-5001", models.StatusDelayed)
	require.True(t, IsNotFound(err))
}

func TestRebookingCompletedDRIsRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.deliveries.Save(ctx, &models.Delivery{
		DRNumber:        "DR-7001",
		CustomerName:    "Fe Uy",
		CustomerContact: "0921-444-5555",
	})
	require.NoError(t, err)
	require.NoError(t, env.deliveries.SetStatus(ctx, "DR-7001", models.StatusCompleted))

	// The number is spent: re-booking it must not resurrect the delivery
	// or touch the history entry.
	_, err = env.deliveries.Save(ctx, &models.Delivery{
		DRNumber:        "DR-7001",
		CustomerName:    "Fe Uy",
		CustomerContact: "0921-444-5555",
	})
	require.True(t, IsValidation(err))

	active, err := env.deliveries.FetchActive(ctx)
	require.NoError(t, err)
	require.Empty(t, active)

	history, err := env.deliveries.FetchHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, models.StatusCompleted, history[0].Status)
	require.NotNil(t, history[0].CompletedAt)

	customers, err := env.customers.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, 1, customers[0].BookingsCount)
}

func TestRebookingCompletedDRIsRejectedOffline(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.deliveries.Save(ctx, &models.Delivery{
		DRNumber:        "DR-7002",
		CustomerName:    "Fe Uy",
		CustomerContact: "0921-444-5555",
	})
	require.NoError(t, err)
	require.NoError(t, env.deliveries.SetStatus(ctx, "DR-7002", models.StatusCompleted))

	// The local history snapshot is enough to refuse the number, so active
	// and history stay disjoint even when the remote store is unreachable.
	env.failRemote()
	_, err = env.deliveries.Save(ctx, &models.Delivery{
		DRNumber:        "DR-7002",
		CustomerName:    "Fe Uy",
		CustomerContact: "0921-444-5555",
	})
	require.True(t, IsValidation(err))

	active, err := env.deliveries.FetchActive(ctx)
	require.NoError(t, err)
	require.Empty(t, active)

	history, err := env.deliveries.FetchHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestBookingSurvivesRemoteOutage(t *testing.T) {
	env := newTestEnv()
	env.failRemote()
	ctx := context.Background()

	_, err := env.deliveries.Save(ctx, &models.Delivery{
		DRNumber:        "DR-6001",
		CustomerName:    "Ed Tan",
		CustomerContact: "0919-222-3333",
	})
	require.NoError(t, err)

	active, err := env.deliveries.FetchActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	customers, err := env.customers.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Equal(t, 1, customers[0].BookingsCount)
}
