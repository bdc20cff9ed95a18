package services

import (
	"context"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	models "github.com/phillip/food-rescue-go/models"
)

type RegisterUserInput struct {
	Name              string          `json:"name" validate:"required,max=120"`
	Email             string          `json:"email" validate:"required,email"`
	ContactNo         string          `json:"contact_no" validate:"max=20"`
	Role              models.UserRole `json:"role" validate:"required,oneof=DONOR VOLUNTEER REQUESTER"`
	Address           *models.Address `json:"address"`
	OrgCategory       string          `json:"org_category" validate:"max=60"`
	OrgName           string          `json:"org_name" validate:"max=120"`
	ProfilePictureURL string          `json:"profile_picture_url" validate:"omitempty,url"`
}

// RegisterUser stores a new profile. Identity itself is issued elsewhere; the
// returned id is what the session token must carry.
func (s *RescueService) RegisterUser(ctx context.Context, in RegisterUserInput) (models.User, error) {
	if err := s.check(in); err != nil {
		return models.User{}, err
	}
	u := models.User{
		Name:                 in.Name,
		Email:                in.Email,
		ContactNo:            in.ContactNo,
		Role:                 in.Role,
		Address:              in.Address,
		OrgCategory:          in.OrgCategory,
		OrgName:              in.OrgName,
		FavoriteRequesterIDs: []primitive.ObjectID{},
		ProfilePictureURL:    in.ProfilePictureURL,
	}
	s.fillAddress(ctx, u.Address)

	if err := s.stores.Users.Create(ctx, &u); err != nil {
		return models.User{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("role", string(u.Role)))
	return u, nil
}

func (s *RescueService) GetUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return s.stores.Users.Get(ctx, id)
}

// ToggleFavorite adds or removes a requester from a donor's favorites.
func (s *RescueService) ToggleFavorite(ctx context.Context, donor models.Actor, requesterID primitive.ObjectID) (models.User, error) {
	if donor.Role != models.RoleDonor {
		return models.User{}, fmt.Errorf("%w: only donors keep favorites", models.ErrForbidden)
	}
	requester, err := s.stores.Users.Get(ctx, requesterID)
	if err != nil {
		return models.User{}, err
	}
	if requester.Role != models.RoleRequester {
		return models.User{}, models.Validationf("user %s is not a requester", requesterID.Hex())
	}

	return s.stores.Users.Update(ctx, donor.ID, func(u *models.User) error {
		if i := slices.Index(u.FavoriteRequesterIDs, requesterID); i >= 0 {
			u.FavoriteRequesterIDs = slices.Delete(u.FavoriteRequesterIDs, i, i+1)
			return nil
		}
		u.FavoriteRequesterIDs = append(u.FavoriteRequesterIDs, requesterID)
		return nil
	})
}
