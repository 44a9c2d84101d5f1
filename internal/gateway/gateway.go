// Package gateway is the persistence boundary for the tracker. Every read
// and write tries the remote store first and degrades to the local snapshot
// store when the remote is unreachable; callers never see a remote outage as
// an error, only a result sourced from whichever backend answered.
package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/repositories"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/resolver"
)

// Collection identifies one locally persisted logical collection.
type Collection string

// Stable local snapshot keys. Each holds the whole collection as one JSON
// array, rewritten on every successful local write.
const (
	CollectionDeliveriesActive  Collection = "deliveries-active"
	CollectionDeliveriesHistory Collection = "deliveries-history"
	CollectionCustomers         Collection = "customers"
	CollectionProofOfDelivery   Collection = "proof-of-delivery"
	CollectionPendingCompletion Collection = "pending-completions"
)

// readCacheTTL bounds how stale a cached fetch result may get between
// explicit invalidations.
const readCacheTTL = 30 * time.Second

func readKey(c Collection) string {
	return "reads:" + string(c)
}

// LocalStore is the persistent local cache the gateway degrades to. The
// redis-backed implementation lives in internal/cache; tests inject an
// in-memory one.
type LocalStore interface {
	ReadCollection(ctx context.Context, key string, out interface{}) error
	WriteCollection(ctx context.Context, key string, v interface{}) error
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Gateway provides uniform save/fetch/remove semantics over the remote
// repositories and the local snapshot store.
type Gateway struct {
	deliveries repositories.DeliveryRepository
	customers  repositories.CustomerRepository
	proofs     repositories.ProofRepository
	pending    repositories.PendingCompletionRepository
	local      LocalStore
	online     func() bool
	now        func() time.Time
}

// Option configures optional gateway behavior.
type Option func(*Gateway)

// WithOnlineCheck installs a connectivity hint the gateway consults before
// attempting the remote store. A false result skips the doomed attempt.
func WithOnlineCheck(fn func() bool) Option {
	return func(g *Gateway) { g.online = fn }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New creates a gateway over the given backends.
func New(
	deliveries repositories.DeliveryRepository,
	customers repositories.CustomerRepository,
	proofs repositories.ProofRepository,
	pending repositories.PendingCompletionRepository,
	local LocalStore,
	opts ...Option,
) *Gateway {
	g := &Gateway{
		deliveries: deliveries,
		customers:  customers,
		proofs:     proofs,
		pending:    pending,
		local:      local,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) remoteReachable() bool {
	return g.online == nil || g.online()
}

func (g *Gateway) fellBack(op string, err error) {
	log.Warn().Err(err).Str("op", op).Msg("remote store unavailable, falling back to local cache")
}

// deliveryCollection derives collection membership from status, the only
// source of truth for active-vs-history.
func deliveryCollection(d *models.Delivery) Collection {
	if d.Completed() {
		return CollectionDeliveriesHistory
	}
	return CollectionDeliveriesActive
}

// SaveDelivery persists a delivery into the collection its status implies.
// The record gets a fresh UpdatedAt, and a CreatedAt on first insert.
func (g *Gateway) SaveDelivery(ctx context.Context, d *models.Delivery) (*models.Delivery, error) {
	now := g.now()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	defer g.invalidateDeliveryReads(ctx)

	if g.remoteReachable() {
		saved, err := g.deliveries.Upsert(ctx, d)
		if err == nil {
			// Mirror into the snapshot so offline reads stay current.
			if lerr := g.localUpsertDelivery(ctx, saved); lerr != nil {
				log.Warn().Err(lerr).Str("dr_number", saved.DRNumber).Msg("failed to mirror delivery into local cache")
			}
			return saved, nil
		}
		g.fellBack("save delivery", err)
	}

	if err := g.localUpsertDelivery(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (g *Gateway) localUpsertDelivery(ctx context.Context, d *models.Delivery) error {
	key := string(deliveryCollection(d))
	var deliveries []models.Delivery
	if err := g.local.ReadCollection(ctx, key, &deliveries); err != nil {
		return err
	}
	if idx := resolver.IndexDelivery(deliveries, *d); idx >= 0 {
		deliveries[idx] = *d
	} else if d.Completed() {
		// History is ordered most-recent-first; new completions go to the head.
		deliveries = append([]models.Delivery{*d}, deliveries...)
	} else {
		deliveries = append(deliveries, *d)
	}
	return g.local.WriteCollection(ctx, key, deliveries)
}

// FetchDeliveries returns one delivery collection, serving the read cache
// when warm, the remote store when reachable, and the local snapshot
// otherwise. An empty or absent snapshot yields an empty slice, not an error.
func (g *Gateway) FetchDeliveries(ctx context.Context, collection Collection) ([]models.Delivery, error) {
	var cached []models.Delivery
	if err := g.local.Get(ctx, readKey(collection), &cached); err == nil {
		return cached, nil
	}

	if g.remoteReachable() {
		deliveries, err := g.deliveries.FindByCompletion(ctx, collection == CollectionDeliveriesHistory)
		if err == nil {
			if deliveries == nil {
				deliveries = []models.Delivery{}
			}
			if lerr := g.local.WriteCollection(ctx, string(collection), deliveries); lerr != nil {
				log.Warn().Err(lerr).Str("collection", string(collection)).Msg("failed to refresh local snapshot")
			}
			if lerr := g.local.Set(ctx, readKey(collection), deliveries, readCacheTTL); lerr != nil {
				log.Warn().Err(lerr).Str("collection", string(collection)).Msg("failed to warm read cache")
			}
			return deliveries, nil
		}
		g.fellBack("fetch deliveries", err)
	}

	var deliveries []models.Delivery
	if err := g.local.ReadCollection(ctx, string(collection), &deliveries); err != nil {
		return nil, err
	}
	if deliveries == nil {
		deliveries = []models.Delivery{}
	}
	return deliveries, nil
}

// RemoveDelivery removes a delivery from one collection by DR number and
// reports whether anything was removed.
func (g *Gateway) RemoveDelivery(ctx context.Context, collection Collection, drNumber string) (bool, error) {
	defer g.invalidateDeliveryReads(ctx)

	removedRemote := false
	if g.remoteReachable() {
		removed, err := g.deliveries.Delete(ctx, drNumber, collection == CollectionDeliveriesHistory)
		if err == nil {
			removedRemote = removed
		} else {
			g.fellBack("remove delivery", err)
		}
	}

	removedLocal, err := g.localRemoveDelivery(ctx, collection, drNumber)
	if err != nil {
		if removedRemote {
			log.Warn().Err(err).Str("dr_number", drNumber).Msg("failed to mirror delivery removal into local cache")
			return true, nil
		}
		return false, err
	}
	return removedRemote || removedLocal, nil
}

func (g *Gateway) localRemoveDelivery(ctx context.Context, collection Collection, drNumber string) (bool, error) {
	var deliveries []models.Delivery
	if err := g.local.ReadCollection(ctx, string(collection), &deliveries); err != nil {
		return false, err
	}
	idx := resolver.IndexDeliveryByDR(deliveries, drNumber)
	if idx < 0 {
		return false, nil
	}
	deliveries = append(deliveries[:idx], deliveries[idx+1:]...)
	return true, g.local.WriteCollection(ctx, string(collection), deliveries)
}

// InvalidateDeliveryReads drops cached fetch results so the next FetchDeliveries
// hits the backing stores.
func (g *Gateway) InvalidateDeliveryReads(ctx context.Context) {
	g.invalidateDeliveryReads(ctx)
}

func (g *Gateway) invalidateDeliveryReads(ctx context.Context) {
	err := g.local.Delete(ctx, readKey(CollectionDeliveriesActive), readKey(CollectionDeliveriesHistory))
	if err != nil {
		log.Warn().Err(err).Msg("failed to invalidate delivery read cache")
	}
}

// SaveCustomer persists a customer, refreshing its timestamps.
func (g *Gateway) SaveCustomer(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	now := g.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if g.remoteReachable() {
		saved, err := g.customers.Upsert(ctx, c)
		if err == nil {
			if lerr := g.localUpsertCustomer(ctx, saved); lerr != nil {
				log.Warn().Err(lerr).Str("customer_id", saved.ID).Msg("failed to mirror customer into local cache")
			}
			return saved, nil
		}
		g.fellBack("save customer", err)
	}

	if err := g.localUpsertCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (g *Gateway) localUpsertCustomer(ctx context.Context, c *models.Customer) error {
	var customers []models.Customer
	if err := g.local.ReadCollection(ctx, string(CollectionCustomers), &customers); err != nil {
		return err
	}
	if idx := resolver.IndexCustomer(customers, *c); idx >= 0 {
		customers[idx] = *c
	} else {
		customers = append(customers, *c)
	}
	return g.local.WriteCollection(ctx, string(CollectionCustomers), customers)
}

// FetchCustomers returns the customer collection, oldest first.
func (g *Gateway) FetchCustomers(ctx context.Context) ([]models.Customer, error) {
	if g.remoteReachable() {
		customers, err := g.customers.FindAll(ctx)
		if err == nil {
			if customers == nil {
				customers = []models.Customer{}
			}
			if lerr := g.local.WriteCollection(ctx, string(CollectionCustomers), customers); lerr != nil {
				log.Warn().Err(lerr).Msg("failed to refresh customer snapshot")
			}
			return customers, nil
		}
		g.fellBack("fetch customers", err)
	}

	var customers []models.Customer
	if err := g.local.ReadCollection(ctx, string(CollectionCustomers), &customers); err != nil {
		return nil, err
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	return customers, nil
}

// RemoveCustomer removes a customer by sequence ID. The merge pass uses this
// to retire records folded into a surviving identity.
func (g *Gateway) RemoveCustomer(ctx context.Context, id string) (bool, error) {
	removedRemote := false
	if g.remoteReachable() {
		removed, err := g.customers.Delete(ctx, id)
		if err == nil {
			removedRemote = removed
		} else {
			g.fellBack("remove customer", err)
		}
	}

	var customers []models.Customer
	if err := g.local.ReadCollection(ctx, string(CollectionCustomers), &customers); err != nil {
		if removedRemote {
			return true, nil
		}
		return false, err
	}
	for i := range customers {
		if customers[i].ID == id {
			customers = append(customers[:i], customers[i+1:]...)
			return true, g.local.WriteCollection(ctx, string(CollectionCustomers), customers)
		}
	}
	return removedRemote, nil
}

// SaveProofWithPending persists a proof-of-delivery together with its
// pending-completion marker as one logical operation. On the remote path the
// pair is transactional; on the local path the two snapshots are written in
// order, proof first.
func (g *Gateway) SaveProofWithPending(ctx context.Context, proof *models.ProofOfDelivery, pending *models.PendingCompletion) (*models.ProofOfDelivery, error) {
	now := g.now()
	if proof.CreatedAt.IsZero() {
		proof.CreatedAt = now
	}
	proof.UpdatedAt = now
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = now
	}
	pending.UpdatedAt = now

	if g.remoteReachable() {
		saved, err := g.proofs.UpsertWithPending(ctx, proof, pending)
		if err == nil {
			if lerr := g.localUpsertProof(ctx, saved); lerr != nil {
				log.Warn().Err(lerr).Str("dr_number", saved.DRNumber).Msg("failed to mirror proof into local cache")
			}
			if lerr := g.localUpsertPending(ctx, pending); lerr != nil {
				log.Warn().Err(lerr).Str("dr_number", pending.DRNumber).Msg("failed to mirror pending completion into local cache")
			}
			return saved, nil
		}
		g.fellBack("save proof of delivery", err)
	}

	if err := g.localUpsertProof(ctx, proof); err != nil {
		return nil, err
	}
	if err := g.localUpsertPending(ctx, pending); err != nil {
		return nil, err
	}
	return proof, nil
}

func (g *Gateway) localUpsertProof(ctx context.Context, proof *models.ProofOfDelivery) error {
	var proofs []models.ProofOfDelivery
	if err := g.local.ReadCollection(ctx, string(CollectionProofOfDelivery), &proofs); err != nil {
		return err
	}
	if idx := resolver.IndexProofByDR(proofs, proof.DRNumber); idx >= 0 {
		proofs[idx] = *proof
	} else {
		proofs = append(proofs, *proof)
	}
	return g.local.WriteCollection(ctx, string(CollectionProofOfDelivery), proofs)
}

func (g *Gateway) localUpsertPending(ctx context.Context, pending *models.PendingCompletion) error {
	var pendings []models.PendingCompletion
	if err := g.local.ReadCollection(ctx, string(CollectionPendingCompletion), &pendings); err != nil {
		return err
	}
	if idx := resolver.IndexPendingByDR(pendings, pending.DRNumber); idx >= 0 {
		pendings[idx] = *pending
	} else {
		pendings = append(pendings, *pending)
	}
	return g.local.WriteCollection(ctx, string(CollectionPendingCompletion), pendings)
}

// SaveProof persists a proof on its own, overwrite-on-resubmit by DR number.
// The completion workflow uses SaveProofWithPending instead so the marker
// rides the same write.
func (g *Gateway) SaveProof(ctx context.Context, proof *models.ProofOfDelivery) (*models.ProofOfDelivery, error) {
	now := g.now()
	if proof.CreatedAt.IsZero() {
		proof.CreatedAt = now
	}
	proof.UpdatedAt = now

	if g.remoteReachable() {
		saved, err := g.proofs.Upsert(ctx, proof)
		if err == nil {
			if lerr := g.localUpsertProof(ctx, saved); lerr != nil {
				log.Warn().Err(lerr).Str("dr_number", saved.DRNumber).Msg("failed to mirror proof into local cache")
			}
			return saved, nil
		}
		g.fellBack("save proof of delivery", err)
	}

	if err := g.localUpsertProof(ctx, proof); err != nil {
		return nil, err
	}
	return proof, nil
}

// FetchProofs returns all proof-of-delivery records.
func (g *Gateway) FetchProofs(ctx context.Context) ([]models.ProofOfDelivery, error) {
	if g.remoteReachable() {
		proofs, err := g.proofs.FindAll(ctx)
		if err == nil {
			if proofs == nil {
				proofs = []models.ProofOfDelivery{}
			}
			if lerr := g.local.WriteCollection(ctx, string(CollectionProofOfDelivery), proofs); lerr != nil {
				log.Warn().Err(lerr).Msg("failed to refresh proof snapshot")
			}
			return proofs, nil
		}
		g.fellBack("fetch proofs", err)
	}

	var proofs []models.ProofOfDelivery
	if err := g.local.ReadCollection(ctx, string(CollectionProofOfDelivery), &proofs); err != nil {
		return nil, err
	}
	if proofs == nil {
		proofs = []models.ProofOfDelivery{}
	}
	return proofs, nil
}

// SavePendingCompletion persists a pending-completion marker on its own,
// used by the reconciliation pass to bump attempt counts.
func (g *Gateway) SavePendingCompletion(ctx context.Context, pending *models.PendingCompletion) (*models.PendingCompletion, error) {
	now := g.now()
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = now
	}
	pending.UpdatedAt = now

	if g.remoteReachable() {
		saved, err := g.pending.Upsert(ctx, pending)
		if err == nil {
			if lerr := g.localUpsertPending(ctx, saved); lerr != nil {
				log.Warn().Err(lerr).Str("dr_number", saved.DRNumber).Msg("failed to mirror pending completion into local cache")
			}
			return saved, nil
		}
		g.fellBack("save pending completion", err)
	}

	if err := g.localUpsertPending(ctx, pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// FetchPendingCompletions returns all outstanding completion markers.
func (g *Gateway) FetchPendingCompletions(ctx context.Context) ([]models.PendingCompletion, error) {
	if g.remoteReachable() {
		pendings, err := g.pending.FindAll(ctx)
		if err == nil {
			if pendings == nil {
				pendings = []models.PendingCompletion{}
			}
			if lerr := g.local.WriteCollection(ctx, string(CollectionPendingCompletion), pendings); lerr != nil {
				log.Warn().Err(lerr).Msg("failed to refresh pending completion snapshot")
			}
			return pendings, nil
		}
		g.fellBack("fetch pending completions", err)
	}

	var pendings []models.PendingCompletion
	if err := g.local.ReadCollection(ctx, string(CollectionPendingCompletion), &pendings); err != nil {
		return nil, err
	}
	if pendings == nil {
		pendings = []models.PendingCompletion{}
	}
	return pendings, nil
}

// RemovePendingCompletion clears a marker once its status transition landed.
func (g *Gateway) RemovePendingCompletion(ctx context.Context, drNumber string) (bool, error) {
	removedRemote := false
	if g.remoteReachable() {
		removed, err := g.pending.Delete(ctx, drNumber)
		if err == nil {
			removedRemote = removed
		} else {
			g.fellBack("remove pending completion", err)
		}
	}

	var pendings []models.PendingCompletion
	if err := g.local.ReadCollection(ctx, string(CollectionPendingCompletion), &pendings); err != nil {
		if removedRemote {
			return true, nil
		}
		return false, err
	}
	idx := resolver.IndexPendingByDR(pendings, drNumber)
	if idx < 0 {
		return removedRemote, nil
	}
	pendings = append(pendings[:idx], pendings[idx+1:]...)
	return true, g.local.WriteCollection(ctx, string(CollectionPendingCompletion), pendings)
}
