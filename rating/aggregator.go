// Package rating records ratings on postings and folds them into the
// assigned volunteer's running average.
package rating

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	metrics "github.com/phillip/food-rescue-go/metrics"
	models "github.com/phillip/food-rescue-go/models"
	notify "github.com/phillip/food-rescue-go/notify"
	store "github.com/phillip/food-rescue-go/store"
)

const (
	MinValue = 1
	MaxValue = 5
)

// Fold adds value to a running mean over count samples.
func Fold(avg float64, count, value int) (float64, int) {
	return (avg*float64(count) + float64(value)) / float64(count+1), count + 1
}

type Input struct {
	Rater    models.Actor
	Value    int
	Feedback string
}

type Aggregator struct {
	postings store.PostingStore
	users    store.UserStore
	fanout   *notify.FanOut
	logger   *zap.Logger
}

func NewAggregator(postings store.PostingStore, users store.UserStore, fanout *notify.FanOut, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{postings: postings, users: users, fanout: fanout, logger: logger}
}

// Add appends the rating to the posting and, when a volunteer is assigned,
// updates their reputation and notifies them. A rater may rate a posting once.
//
// The rating is stored before the volunteer's average is updated. If that
// second write fails the error is returned and the rating stays uncounted, so
// the same rater can call Add again to finish folding the stored value.
func (a *Aggregator) Add(ctx context.Context, postingID primitive.ObjectID, in Input) (models.Posting, error) {
	if in.Value < MinValue || in.Value > MaxValue {
		return models.Posting{}, models.Validationf("rating must be between %d and %d", MinValue, MaxValue)
	}

	r := models.Rating{
		RaterID:   in.Rater.ID,
		RaterRole: in.Rater.Role,
		Value:     in.Value,
		Feedback:  in.Feedback,
		CreatedAt: time.Now().UTC(),
	}
	_, after, err := a.postings.Update(ctx, postingID, func(p *models.Posting) error {
		if i := p.RatingIndex(in.Rater.ID); i >= 0 {
			if p.Ratings[i].Counted {
				return fmt.Errorf("posting %s: %w", p.ID.Hex(), models.ErrAlreadyRated)
			}
			return nil
		}
		// Nothing to fold without a volunteer.
		r.Counted = p.VolunteerID == nil
		p.Ratings = append(p.Ratings, r)
		return nil
	})
	if err != nil {
		return models.Posting{}, err
	}
	stored := after.Ratings[after.RatingIndex(in.Rater.ID)]
	if stored.Counted {
		metrics.Ratings.Inc()
		return after, nil
	}

	volunteerID := *after.VolunteerID
	if _, err := a.users.Update(ctx, volunteerID, func(u *models.User) error {
		u.AverageRating, u.RatingsCount = Fold(u.AverageRating, u.RatingsCount, stored.Value)
		return nil
	}); err != nil {
		a.logger.Error("fold rating into volunteer",
			zap.String("posting_id", postingID.Hex()),
			zap.String("volunteer_id", volunteerID.Hex()),
			zap.Error(err))
		return after, fmt.Errorf("fold rating into volunteer %s: %w", volunteerID.Hex(), err)
	}

	_, after, err = a.postings.Update(ctx, postingID, func(p *models.Posting) error {
		if i := p.RatingIndex(in.Rater.ID); i >= 0 {
			p.Ratings[i].Counted = true
		}
		return nil
	})
	if err != nil {
		return after, fmt.Errorf("mark rating counted on posting %s: %w", postingID.Hex(), err)
	}
	metrics.Ratings.Inc()
	a.fanout.Send(ctx, notify.Rated(volunteerID, after.FoodName, stored.Value))
	return after, nil
}
