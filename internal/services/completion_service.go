package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/gateway"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/models"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/notify"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/resolver"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/search"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/tracing"
)

// ContactDetails carries caller-supplied customer fields for a proof when
// the delivery record itself cannot be found to enrich from.
type ContactDetails struct {
	CustomerName    string
	CustomerContact string
}

// BatchResult reports the outcome of a multi-delivery completion, one entry
// per requested DR number.
type BatchResult struct {
	Completed []string
	Failed    map[string]error
}

// CompletionService runs the proof-of-delivery workflow: capture the signed
// proof, move the delivery to history, and keep both sides reconciled when
// the second step fails.
type CompletionService struct {
	store      *gateway.Gateway
	deliveries *DeliveryService
	hub        *notify.Hub
	notifier   notify.Notifier
	searcher   *search.Client
	tracer     tracing.Tracer
	now        func() time.Time
}

// NewCompletionService creates a completion service. searcher may be nil
// when history indexing is disabled.
func NewCompletionService(
	store *gateway.Gateway,
	deliveries *DeliveryService,
	hub *notify.Hub,
	notifier notify.Notifier,
	searcher *search.Client,
	tracer tracing.Tracer,
) *CompletionService {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	return &CompletionService{
		store:      store,
		deliveries: deliveries,
		hub:        hub,
		notifier:   notifier,
		searcher:   searcher,
		tracer:     tracer,
		now:        time.Now,
	}
}

// Complete captures a signed proof for drNumber and transitions the delivery
// to history. The proof and a pending-completion marker are written together,
// so a failure between the two steps leaves a marker the worker can retry
// instead of a silently stuck delivery.
func (s *CompletionService) Complete(ctx context.Context, drNumber, signatureImage string, contact ContactDetails) error {
	txn := s.tracer.StartTransaction("complete-delivery")
	defer s.tracer.EndTransaction(txn)
	s.tracer.AddAttribute(txn, "dr_number", drNumber)

	if drNumber == "" {
		return &ValidationError{Field: "drNumber", Reason: "is required"}
	}
	if signatureImage == "" {
		return &ValidationError{Field: "signatureImage", Reason: "is required"}
	}

	signedAt := s.now()
	proof := &models.ProofOfDelivery{
		DRNumber:        drNumber,
		CustomerName:    contact.CustomerName,
		CustomerContact: contact.CustomerContact,
		SignatureImage:  signatureImage,
		Status:          string(models.StatusCompleted),
		SignedAt:        signedAt,
	}

	span := s.tracer.StartSpan("enrich-proof", txn)
	s.enrichProof(ctx, proof)
	span.End()

	pending := &models.PendingCompletion{
		DRNumber: drNumber,
		SignedAt: signedAt,
	}

	span = s.tracer.StartSpan("save-proof", txn)
	_, err := s.store.SaveProofWithPending(ctx, proof, pending)
	span.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return errors.Wrapf(err, "failed to save proof of delivery for %s", drNumber)
	}

	span = s.tracer.StartSpan("transition-to-history", txn)
	err = s.deliveries.SetStatus(ctx, drNumber, models.StatusCompleted)
	span.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		if IsNotFound(err) {
			// No such delivery anywhere. Clear the marker so the worker does
			// not retry a transition that can never land.
			if _, rerr := s.store.RemovePendingCompletion(ctx, drNumber); rerr != nil {
				log.Warn().Err(rerr).Str("dr_number", drNumber).Msg("failed to clear pending completion marker")
			}
			return err
		}
		s.notifier.Notify(
			fmt.Sprintf("Proof for %s saved but delivery could not be moved to history", drNumber),
			notify.SeverityError,
		)
		return &PartialCompletionError{DRNumber: drNumber, ProofSaved: true, Err: err}
	}

	if _, err := s.store.RemovePendingCompletion(ctx, drNumber); err != nil {
		log.Warn().Err(err).Str("dr_number", drNumber).Msg("failed to clear pending completion marker")
	}

	s.indexCompletion(ctx, drNumber, proof)

	s.hub.DataChanged(string(gateway.CollectionProofOfDelivery))
	s.notifier.Notify(fmt.Sprintf("Delivery %s completed", drNumber), notify.SeveritySuccess)

	log.Info().
		Str("dr_number", drNumber).
		Time("signed_at", signedAt).
		Msg("Delivery completed with proof of delivery")
	return nil
}

// CompleteBatch completes several deliveries against one signature capture.
// Each DR number is processed independently so one failure does not abort
// the rest.
func (s *CompletionService) CompleteBatch(ctx context.Context, drNumbers []string, signatureImage string, contact ContactDetails) (*BatchResult, error) {
	if len(drNumbers) == 0 {
		return nil, &ValidationError{Field: "drNumbers", Reason: "is required"}
	}
	if signatureImage == "" {
		return nil, &ValidationError{Field: "signatureImage", Reason: "is required"}
	}

	result := &BatchResult{Failed: map[string]error{}}
	for _, drNumber := range drNumbers {
		if err := s.Complete(ctx, drNumber, signatureImage, contact); err != nil {
			result.Failed[drNumber] = err
			continue
		}
		result.Completed = append(result.Completed, drNumber)
	}

	if len(result.Failed) > 0 {
		s.notifier.Notify(
			fmt.Sprintf("Batch completion finished: %d completed, %d failed", len(result.Completed), len(result.Failed)),
			notify.SeverityWarning,
		)
	}
	return result, nil
}

// FetchProofs returns all captured proofs of delivery.
func (s *CompletionService) FetchProofs(ctx context.Context) ([]models.ProofOfDelivery, error) {
	return s.store.FetchProofs(ctx)
}

// ReconcilePendingCompletions retries the status transition for every
// delivery whose proof was captured but whose move to history never
// happened. Markers are removed only once the transition succeeds.
func (s *CompletionService) ReconcilePendingCompletions(ctx context.Context) error {
	txn := s.tracer.StartTransaction("reconcile-pending-completions")
	defer s.tracer.EndTransaction(txn)

	span := s.tracer.StartSpan("fetch-pending", txn)
	pendings, err := s.store.FetchPendingCompletions(ctx)
	span.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return errors.Wrap(err, "failed to fetch pending completions")
	}

	if len(pendings) == 0 {
		return nil
	}
	log.Info().Msgf("Found %d pending completions for reconciliation", len(pendings))

	for _, pending := range pendings {
		err := s.deliveries.SetStatus(ctx, pending.DRNumber, models.StatusCompleted)
		if err != nil {
			if IsNotFound(err) {
				log.Warn().Str("dr_number", pending.DRNumber).
					Msg("Dropping pending completion for unknown delivery")
				if _, derr := s.store.RemovePendingCompletion(ctx, pending.DRNumber); derr != nil {
					log.Warn().Err(derr).Str("dr_number", pending.DRNumber).
						Msg("failed to clear pending completion marker")
				}
				continue
			}
			pending.Attempts++
			if _, saveErr := s.store.SavePendingCompletion(ctx, &pending); saveErr != nil {
				log.Error().Err(saveErr).Str("dr_number", pending.DRNumber).
					Msg("Failed to record reconciliation attempt")
			}
			log.Warn().
				Err(err).
				Str("dr_number", pending.DRNumber).
				Int("attempts", pending.Attempts).
				Msg("Failed to complete delivery during reconciliation")
			s.tracer.RecordError(txn, err)
			continue
		}

		if _, err := s.store.RemovePendingCompletion(ctx, pending.DRNumber); err != nil {
			log.Warn().Err(err).Str("dr_number", pending.DRNumber).
				Msg("failed to clear pending completion marker")
		}
		log.Info().
			Str("dr_number", pending.DRNumber).
			Msg("Successfully completed delivery during reconciliation")
	}

	return nil
}

// enrichProof fills route fields from the delivery record when the caller
// did not supply them. Active deliveries are checked first, then history for
// re-signed completions.
func (s *CompletionService) enrichProof(ctx context.Context, proof *models.ProofOfDelivery) {
	delivery := s.findDelivery(ctx, proof.DRNumber)
	if delivery == nil {
		return
	}
	if proof.CustomerName == "" {
		proof.CustomerName = delivery.CustomerName
	}
	if proof.CustomerContact == "" {
		proof.CustomerContact = delivery.CustomerContact
	}
	proof.TruckPlate = delivery.TruckPlate
	proof.Origin = delivery.Origin
	proof.Destination = delivery.Destination
}

func (s *CompletionService) findDelivery(ctx context.Context, drNumber string) *models.Delivery {
	active, err := s.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesActive)
	if err == nil {
		if i := resolver.IndexDeliveryByDR(active, drNumber); i >= 0 {
			return &active[i]
		}
	}
	history, err := s.store.FetchDeliveries(ctx, gateway.CollectionDeliveriesHistory)
	if err == nil {
		if i := resolver.IndexDeliveryByDR(history, drNumber); i >= 0 {
			return &history[i]
		}
	}
	return nil
}

// indexCompletion pushes the completed delivery into the search index. Best
// effort only, the completion has already been committed.
func (s *CompletionService) indexCompletion(ctx context.Context, drNumber string, proof *models.ProofOfDelivery) {
	if s.searcher == nil {
		return
	}
	delivery := s.findDelivery(ctx, drNumber)
	if delivery == nil {
		return
	}
	if err := s.searcher.IndexCompletedDelivery(ctx, delivery, proof); err != nil {
		log.Warn().Err(err).Str("dr_number", drNumber).
			Msg("failed to index completed delivery")
	}
}
