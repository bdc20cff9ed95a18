// Package services is the query surface of the food rescue service. It ties
// the stores, the lifecycle engine, proximity matching, rating and the
// notification fan-out together behind one facade the HTTP layer calls.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	classifier "github.com/phillip/food-rescue-go/classifier"
	models "github.com/phillip/food-rescue-go/models"
	notify "github.com/phillip/food-rescue-go/notify"
	proximity "github.com/phillip/food-rescue-go/proximity"
	rating "github.com/phillip/food-rescue-go/rating"
	store "github.com/phillip/food-rescue-go/store"
	utils "github.com/phillip/food-rescue-go/utils"
)

// Classifier judges food and proof photos.
type Classifier interface {
	ClassifySafety(ctx context.Context, imageURL string) (models.SafetyVerdict, error)
	ClassifyProof(ctx context.Context, kind classifier.ProofKind, imageURL string) (classifier.ProofVerdict, error)
}

// Geocoder fills in address lines for bare coordinates.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error)
}

type Deps struct {
	Stores     *store.Stores
	Classifier Classifier
	Geocoder   Geocoder
	// Images is optional; without it uploads are refused and deletes skip cleanup.
	Images    utils.ImageStore
	Proximity proximity.Config
	Logger    *zap.Logger
}

type RescueService struct {
	stores     *store.Stores
	classifier Classifier
	geocoder   Geocoder
	images     utils.ImageStore
	fanout     *notify.FanOut
	matcher    *proximity.Matcher
	ratings    *rating.Aggregator
	validate   *validator.Validate
	logger     *zap.Logger
}

func NewRescueService(d Deps) *RescueService {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cls, geo := d.Classifier, d.Geocoder
	if cls == nil {
		cls = classifier.Unavailable{}
	}
	if geo == nil {
		geo = classifier.Unavailable{}
	}

	fanout := notify.NewFanOut(d.Stores.Notifications, logger.Named("notify"))
	return &RescueService{
		stores:     d.Stores,
		classifier: cls,
		geocoder:   geo,
		images:     d.Images,
		fanout:     fanout,
		matcher:    proximity.NewMatcher(d.Proximity, d.Stores.Users, fanout, logger.Named("proximity")),
		ratings:    rating.NewAggregator(d.Stores.Postings, d.Stores.Users, fanout, logger.Named("rating")),
		validate:   validator.New(),
		logger:     logger,
	}
}

// check runs struct validation and folds the result into ErrValidation.
func (s *RescueService) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return models.Validationf("%s", strings.Join(fields, "; "))
	}
	return models.Validationf("%v", err)
}

// UploadImage stores an uploaded photo and returns its public URL.
func (s *RescueService) UploadImage(ctx context.Context, file io.Reader, folder string) (string, error) {
	if s.images == nil {
		return "", fmt.Errorf("%w: image storage not configured", models.ErrExternalService)
	}
	return s.images.Upload(ctx, file, folder)
}

// deleteImages removes stored photos; failures only leave orphans behind.
func (s *RescueService) deleteImages(ctx context.Context, urls ...string) {
	if s.images == nil {
		return
	}
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := s.images.Delete(ctx, u); err != nil {
			s.logger.Warn("failed to delete image", zap.String("url", u), zap.Error(err))
		}
	}
}

// profile resolves the actor's display name from the stored user, keeping the
// session name when the profile is unavailable.
func (s *RescueService) profile(ctx context.Context, a models.Actor) (models.Actor, *models.User) {
	u, err := s.stores.Users.Get(ctx, a.ID)
	if err != nil {
		return a, nil
	}
	a.Name = u.DisplayName()
	return a, &u
}

// fillAddress reverse-geocodes a located but otherwise blank address in place.
func (s *RescueService) fillAddress(ctx context.Context, a *models.Address) {
	if a == nil || !a.IsBlank() {
		return
	}
	pos, ok := a.Coordinates()
	if !ok {
		return
	}
	found, err := s.geocoder.ReverseGeocode(ctx, pos.Lat, pos.Lng)
	if err != nil || found == nil {
		s.logger.Info("reverse geocode unavailable", zap.Error(err))
		return
	}
	a.Line1, a.Line2, a.Pincode = found.Line1, found.Line2, found.Pincode
	if a.Landmark == "" {
		a.Landmark = found.Landmark
	}
}
