// Package dedupe folds customer records that share a natural key into one
// canonical record. The merge is total: it consumes the whole customer set
// and emits one record per identity, so running it after every load keeps the
// live set free of duplicates regardless of which path created them.
package dedupe

import (
	"sort"
	"strings"
	"time"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/resolver"
)

// Result describes the outcome of a merge pass.
type Result struct {
	Customers []models.Customer
	// Merges is the number of duplicate records folded away, i.e. the input
	// size minus the output size.
	Merges int
	// Retired holds the IDs of records absorbed into a surviving one.
	Retired []string
	// Changed holds the surviving records whose fields were altered by a
	// fold, so callers can persist just those instead of the whole set.
	Changed []models.Customer
}

// MergeDuplicates groups customers by the normalized name+phone natural key
// and folds each group into its most recently created member. Groups of one
// pass through untouched, which makes the merge idempotent.
func MergeDuplicates(customers []models.Customer) Result {
	groups := make(map[string][]models.Customer)
	order := make([]string, 0, len(customers))
	for _, c := range customers {
		key := resolver.CustomerKey(c.ContactPerson, c.Phone)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	result := Result{Customers: make([]models.Customer, 0, len(order))}
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			result.Customers = append(result.Customers, group[0])
			continue
		}

		// Most recent record is the base; the rest fold into it.
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CreatedAt.After(group[j].CreatedAt)
		})

		merged := group[0]
		notes := appendDistinctNote(nil, merged.Notes)
		for _, dup := range group[1:] {
			merged.BookingsCount += dup.BookingsCount
			if laterDate(dup.LastDeliveryDate, merged.LastDeliveryDate) {
				merged.LastDeliveryDate = dup.LastDeliveryDate
			}
			if len(dup.Address) > len(merged.Address) {
				merged.Address = dup.Address
			}
			if len(dup.Email) > len(merged.Email) {
				merged.Email = dup.Email
			}
			notes = appendDistinctNote(notes, dup.Notes)
			result.Retired = append(result.Retired, dup.ID)
		}
		merged.Notes = strings.Join(notes, "; ")
		result.Customers = append(result.Customers, merged)
		result.Changed = append(result.Changed, merged)
		result.Merges += len(group) - 1
	}
	return result
}

func laterDate(candidate, current *time.Time) bool {
	if candidate == nil {
		return false
	}
	return current == nil || candidate.After(*current)
}

func appendDistinctNote(notes []string, note string) []string {
	note = strings.TrimSpace(note)
	if note == "" {
		return notes
	}
	// Already-merged notes may carry several segments; keep each distinct so
	// a second pass does not duplicate them.
	for _, segment := range strings.Split(note, "; ") {
		if segment == "" {
			continue
		}
		found := false
		for _, existing := range notes {
			if existing == segment {
				found = true
				break
			}
		}
		if !found {
			notes = append(notes, segment)
		}
	}
	return notes
}
