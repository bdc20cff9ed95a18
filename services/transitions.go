package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	classifier "github.com/phillip/food-rescue-go/classifier"
	lifecycle "github.com/phillip/food-rescue-go/lifecycle"
	metrics "github.com/phillip/food-rescue-go/metrics"
	models "github.com/phillip/food-rescue-go/models"
)

// RequestTransition applies one intent to a posting. A positive
// expectedVersion makes the write fail with ErrVersionConflict unless the
// stored posting is still at that version.
func (s *RescueService) RequestTransition(ctx context.Context, postingID primitive.ObjectID, cmd lifecycle.Command, expectedVersion int64) (models.Posting, error) {
	after, err := s.transition(ctx, postingID, cmd, expectedVersion)
	metrics.Transitions.WithLabelValues(string(cmd.Intent), resultLabel(err)).Inc()
	if err != nil {
		s.logger.Info("transition refused",
			zap.String("posting_id", postingID.Hex()),
			zap.String("intent", string(cmd.Intent)),
			zap.String("actor_id", cmd.Actor.ID.Hex()),
			zap.Error(err))
	}
	return after, err
}

// UpdateVolunteerLocation records the assigned volunteer's live position.
func (s *RescueService) UpdateVolunteerLocation(ctx context.Context, postingID primitive.ObjectID, volunteer models.Actor, pos models.Coordinates) (models.Posting, error) {
	return s.RequestTransition(ctx, postingID, lifecycle.Command{
		Intent:            lifecycle.IntentUpdateLocation,
		Actor:             volunteer,
		VolunteerLocation: &pos,
	}, 0)
}

// OverrideSafety marks the food as checked by the donor in person.
func (s *RescueService) OverrideSafety(ctx context.Context, postingID primitive.ObjectID, donor models.Actor) (models.Posting, error) {
	return s.RequestTransition(ctx, postingID, lifecycle.Command{
		Intent: lifecycle.IntentOverrideSafety,
		Actor:  donor,
	}, 0)
}

func (s *RescueService) transition(ctx context.Context, postingID primitive.ObjectID, cmd lifecycle.Command, expectedVersion int64) (models.Posting, error) {
	if !lifecycle.Known(cmd.Intent) {
		return models.Posting{}, models.Validationf("unknown intent %q", cmd.Intent)
	}
	current, err := s.stores.Postings.Get(ctx, postingID)
	if err != nil {
		return models.Posting{}, err
	}
	if err := versionMatches(current, expectedVersion); err != nil {
		return current, err
	}

	// A delivery whose impact credit failed part way is finished by approving it again.
	if cmd.Intent == lifecycle.IntentApproveDelivery && current.Status == models.StatusDelivered &&
		current.IsDonor(cmd.Actor.ID) && !current.ImpactSettled() {
		s.logger.Info("resuming impact credit", zap.String("posting_id", postingID.Hex()))
		return s.creditImpact(ctx, current)
	}

	switch cmd.Intent {
	case lifecycle.IntentRequest, lifecycle.IntentClaim, lifecycle.IntentExpressInterest:
		var u *models.User
		cmd.Actor, u = s.profile(ctx, cmd.Actor)
		if cmd.Intent == lifecycle.IntentRequest && cmd.RequesterAddress == nil && u != nil {
			cmd.RequesterAddress = u.Address
		}
	}

	// Dry run first so a doomed intent never reaches the classifier.
	probe := current.Clone()
	if err := lifecycle.Apply(&probe, cmd); err != nil {
		return current, err
	}
	if lifecycle.NeedsProof(cmd.Intent) {
		if err := s.checkProof(ctx, cmd); err != nil {
			return current, err
		}
	}

	before, after, err := s.stores.Postings.Update(ctx, postingID, func(p *models.Posting) error {
		if err := versionMatches(*p, expectedVersion); err != nil {
			return err
		}
		return lifecycle.Apply(p, cmd)
	})
	if err != nil {
		return before, err
	}

	t := lifecycle.Transition{Intent: cmd.Intent, Actor: cmd.Actor, Old: before, New: after}
	if t.StatusChanged() {
		s.logger.Info("posting transitioned",
			zap.String("posting_id", postingID.Hex()),
			zap.String("from", string(before.Status)),
			zap.String("to", string(after.Status)))
	}
	s.fanout.Publish(ctx, t)
	s.deleteImages(ctx, clearedProofs(before, after)...)

	if t.Completed() {
		return s.creditImpact(ctx, after)
	}
	return after, nil
}

// clearedProofs lists proof images the write dropped from the posting.
func clearedProofs(before, after models.Posting) []string {
	var urls []string
	if before.PickupProofURL != "" && before.PickupProofURL != after.PickupProofURL {
		urls = append(urls, before.PickupProofURL)
	}
	if before.DeliveryProofURL != "" && before.DeliveryProofURL != after.DeliveryProofURL {
		urls = append(urls, before.DeliveryProofURL)
	}
	return urls
}

func versionMatches(p models.Posting, expected int64) error {
	if expected > 0 && p.Version != expected {
		return fmt.Errorf("%w: posting %s is at version %d, not %d",
			models.ErrVersionConflict, p.ID.Hex(), p.Version, expected)
	}
	return nil
}

// checkProof asks the classifier about a proof image. An unreachable
// classifier accepts the photo; an explicit rejection blocks the intent.
func (s *RescueService) checkProof(ctx context.Context, cmd lifecycle.Command) error {
	kind := classifier.ProofPickup
	if cmd.Intent == lifecycle.IntentSubmitDeliveryProof {
		kind = classifier.ProofDelivery
	}
	verdict, err := s.classifier.ClassifyProof(ctx, kind, cmd.ProofURL)
	if err != nil {
		metrics.ClassifierFallbacks.WithLabelValues(string(kind)).Inc()
		s.logger.Warn("proof check degraded", zap.String("kind", string(kind)), zap.Error(err))
		verdict = classifier.ProofFallback
	}
	if !verdict.IsValid {
		return fmt.Errorf("%w: %s", models.ErrProofRejected, verdict.Feedback)
	}
	return nil
}

// creditImpact adds one to the impact score of each delivery party not yet
// credited, recording each credit on the posting. A failed user write is
// returned so the donor can approve again to finish the remaining credits.
func (s *RescueService) creditImpact(ctx context.Context, p models.Posting) (models.Posting, error) {
	for _, id := range p.ImpactParties() {
		if slices.Contains(p.CreditedUserIDs, id) {
			continue
		}
		if _, err := s.stores.Users.Update(ctx, id, func(u *models.User) error {
			u.ImpactScore++
			return nil
		}); err != nil {
			s.logger.Error("failed to credit impact",
				zap.String("posting_id", p.ID.Hex()),
				zap.String("user_id", id.Hex()),
				zap.Error(err))
			return p, fmt.Errorf("credit impact to user %s: %w", id.Hex(), err)
		}

		_, next, err := s.stores.Postings.Update(ctx, p.ID, func(q *models.Posting) error {
			if !slices.Contains(q.CreditedUserIDs, id) {
				q.CreditedUserIDs = append(q.CreditedUserIDs, id)
			}
			return nil
		})
		if err != nil {
			return p, fmt.Errorf("record impact credit on posting %s: %w", p.ID.Hex(), err)
		}
		p = next
	}
	return p, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, models.ErrVersionConflict):
		return metrics.ResultConflict
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrValidation):
		return metrics.ResultRejected
	}
	return metrics.ResultError
}
