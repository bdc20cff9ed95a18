package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	classifier "github.com/phillip/food-rescue-go/classifier"
	metrics "github.com/phillip/food-rescue-go/metrics"
	models "github.com/phillip/food-rescue-go/models"
	rating "github.com/phillip/food-rescue-go/rating"
)

type CreatePostingInput struct {
	FoodName     string         `json:"food_name" validate:"required,max=120"`
	Description  string         `json:"description" validate:"max=2000"`
	FoodCategory string         `json:"food_category" validate:"max=60"`
	Quantity     string         `json:"quantity" validate:"required,max=60"`
	ExpiresAt    time.Time      `json:"expires_at" validate:"required"`
	Tags         []string       `json:"tags" validate:"max=20,dive,max=40"`
	ImageURL     string         `json:"image_url" validate:"omitempty,url"`
	Location     models.Address `json:"location"`
}

// ---------------- CREATE ----------------

// CreatePosting publishes a donation as AVAILABLE, runs the safety check on
// its photo and notifies nearby volunteers.
func (s *RescueService) CreatePosting(ctx context.Context, donor models.Actor, in CreatePostingInput) (models.Posting, error) {
	if donor.Role != models.RoleDonor {
		return models.Posting{}, fmt.Errorf("%w: only donors can post food", models.ErrForbidden)
	}
	if err := s.check(in); err != nil {
		return models.Posting{}, err
	}
	if _, located := in.Location.Coordinates(); in.Location.IsBlank() && !located {
		return models.Posting{}, models.Validationf("pickup location needs an address or coordinates")
	}

	p := models.Posting{
		DonorID:      donor.ID,
		DonorName:    donor.Name,
		FoodName:     in.FoodName,
		Description:  in.Description,
		FoodCategory: in.FoodCategory,
		Quantity:     in.Quantity,
		ExpiresAt:    in.ExpiresAt.UTC(),
		Tags:         in.Tags,
		ImageURL:     in.ImageURL,
		Location:     in.Location,
		Status:       models.StatusAvailable,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if u, err := s.stores.Users.Get(ctx, donor.ID); err == nil {
		p.DonorName = u.DisplayName()
		p.DonorOrg = u.OrgName
	}

	s.fillAddress(ctx, &p.Location)
	if p.ImageURL != "" {
		v, err := s.classifier.ClassifySafety(ctx, p.ImageURL)
		if err != nil {
			metrics.ClassifierFallbacks.WithLabelValues("safety").Inc()
			s.logger.Warn("safety check degraded", zap.Error(err))
			v = classifier.SafetyFallback
		}
		p.SafetyVerdict = &v
	}

	if err := s.stores.Postings.Create(ctx, &p); err != nil {
		return models.Posting{}, err
	}
	s.logger.Info("posting created",
		zap.String("posting_id", p.ID.Hex()),
		zap.String("donor_id", donor.ID.Hex()))

	s.matcher.NotifyNearby(ctx, &p)
	return p, nil
}

// ---------------- LIST ----------------

// ListPostings scans all postings, newest first, keeping those filter matches.
func (s *RescueService) ListPostings(ctx context.Context, filter models.PostingFilter) ([]models.Posting, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.Validationf("unknown status %q", filter.Status)
	}
	all, err := s.stores.Postings.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Posting, 0, len(all))
	for i := range all {
		if filter.Match(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// ---------------- GET ----------------
func (s *RescueService) GetPosting(ctx context.Context, id primitive.ObjectID) (models.Posting, error) {
	return s.stores.Postings.Get(ctx, id)
}

// ---------------- DELETE ----------------

// DeletePosting removes a posting on behalf of its donor. Postings with a
// proof awaiting sign-off cannot be deleted.
func (s *RescueService) DeletePosting(ctx context.Context, id primitive.ObjectID, actor models.Actor) error {
	gone, err := s.stores.Postings.Delete(ctx, id, func(p models.Posting) error {
		if !p.IsDonor(actor.ID) {
			return fmt.Errorf("%w: only the donor can delete this posting", models.ErrForbidden)
		}
		if p.Status.AwaitingVerification() {
			return fmt.Errorf("%w: cannot delete while %s", models.ErrInvalidTransition, p.Status)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("posting deleted", zap.String("posting_id", id.Hex()))
	s.deleteImages(ctx, gone.ImageURL, gone.PickupProofURL, gone.DeliveryProofURL)
	return nil
}

// ---------------- RATE ----------------

// AddRating lets a donor or requester rate the delivery of a posting once.
func (s *RescueService) AddRating(ctx context.Context, postingID primitive.ObjectID, rater models.Actor, value int, feedback string) (models.Posting, error) {
	p, err := s.stores.Postings.Get(ctx, postingID)
	if err != nil {
		return models.Posting{}, err
	}
	if !p.IsDonor(rater.ID) && !p.IsRequester(rater.ID) {
		return models.Posting{}, fmt.Errorf("%w: only the donor or requester can rate", models.ErrForbidden)
	}
	if p.Status != models.StatusDelivered {
		return models.Posting{}, fmt.Errorf("%w: posting is %s, not delivered", models.ErrInvalidTransition, p.Status)
	}

	after, err := s.ratings.Add(ctx, postingID, rating.Input{Rater: rater, Value: value, Feedback: feedback})
	if err != nil && !errors.Is(err, models.ErrValidation) {
		s.logger.Info("rating refused", zap.String("posting_id", postingID.Hex()), zap.Error(err))
	}
	return after, err
}
