// Package resolver decides insert-vs-update for candidate records by matching
// them against an existing set, first by backend identifier and then by
// natural key. The natural keys are the DR number for deliveries and the
// normalized (contact person, phone) pair for customers; every component that
// de-duplicates goes through the definitions here so the paths cannot fork.
package resolver

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
)

// CustomerKey returns the normalized natural key for a customer identity.
func CustomerKey(contactPerson, phone string) string {
	return strings.ToLower(strings.TrimSpace(contactPerson)) + "|" + strings.TrimSpace(phone)
}

// IndexDeliveryByDR finds a delivery by DR number. Duplicate DR numbers are a
// data-corruption case; the oldest record wins deterministically.
func IndexDeliveryByDR(deliveries []models.Delivery, drNumber string) int {
	return oldestMatch(len(deliveries), func(i int) (bool, time.Time) {
		return deliveries[i].DRNumber == drNumber, deliveries[i].CreatedAt
	})
}

// IndexDelivery matches a candidate delivery against the existing set, by ID
// when the candidate carries one, then by DR number.
func IndexDelivery(deliveries []models.Delivery, candidate models.Delivery) int {
	if candidate.ID != uuid.Nil {
		for i := range deliveries {
			if deliveries[i].ID == candidate.ID {
				return i
			}
		}
	}
	return IndexDeliveryByDR(deliveries, candidate.DRNumber)
}

// IndexCustomerByKey finds a customer by the normalized name+phone natural
// key, oldest first on corrupted duplicates.
func IndexCustomerByKey(customers []models.Customer, contactPerson, phone string) int {
	key := CustomerKey(contactPerson, phone)
	return oldestMatch(len(customers), func(i int) (bool, time.Time) {
		return CustomerKey(customers[i].ContactPerson, customers[i].Phone) == key, customers[i].CreatedAt
	})
}

// IndexCustomer matches a candidate customer by sequence ID, then by the
// natural key.
func IndexCustomer(customers []models.Customer, candidate models.Customer) int {
	if candidate.ID != "" {
		for i := range customers {
			if customers[i].ID == candidate.ID {
				return i
			}
		}
	}
	return IndexCustomerByKey(customers, candidate.ContactPerson, candidate.Phone)
}

// IndexProofByDR finds a proof-of-delivery record by DR number.
func IndexProofByDR(proofs []models.ProofOfDelivery, drNumber string) int {
	for i := range proofs {
		if proofs[i].DRNumber == drNumber {
			return i
		}
	}
	return -1
}

// IndexPendingByDR finds a pending-completion marker by DR number.
func IndexPendingByDR(pendings []models.PendingCompletion, drNumber string) int {
	for i := range pendings {
		if pendings[i].DRNumber == drNumber {
			return i
		}
	}
	return -1
}

// oldestMatch scans n entries and returns the matching index with the
// earliest creation time, or -1.
func oldestMatch(n int, probe func(i int) (bool, time.Time)) int {
	best := -1
	var bestAt time.Time
	for i := 0; i < n; i++ {
		ok, createdAt := probe(i)
		if !ok {
			continue
		}
		if best == -1 || createdAt.Before(bestAt) {
			best = i
			bestAt = createdAt
		}
	}
	return best
}
