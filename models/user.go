package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	RoleDonor     UserRole = "DONOR"
	RoleVolunteer UserRole = "VOLUNTEER"
	RoleRequester UserRole = "REQUESTER"
)

func (r UserRole) Valid() bool {
	return r == RoleDonor || r == RoleVolunteer || r == RoleRequester
}

type User struct {
	ID                   primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name                 string               `bson:"name" json:"name"`
	Email                string               `bson:"email" json:"email"`
	ContactNo            string               `bson:"contact_no,omitempty" json:"contact_no,omitempty"`
	Role                 UserRole             `bson:"role" json:"role"`
	Address              *Address             `bson:"address,omitempty" json:"address,omitempty"`
	OrgCategory          string               `bson:"org_category,omitempty" json:"org_category,omitempty"`
	OrgName              string               `bson:"org_name,omitempty" json:"org_name,omitempty"`
	FavoriteRequesterIDs []primitive.ObjectID `bson:"favorite_requester_ids" json:"favorite_requester_ids"`
	ProfilePictureURL    string               `bson:"profile_picture_url,omitempty" json:"profile_picture_url,omitempty"`

	// Reputation, only written by the rating aggregator and delivery completion.
	ImpactScore   int     `bson:"impact_score" json:"impact_score"`
	AverageRating float64 `bson:"average_rating" json:"average_rating"`
	RatingsCount  int     `bson:"ratings_count" json:"ratings_count"`

	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DisplayName falls back to the organisation name, then to the role.
func (u *User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.OrgName != "":
		return u.OrgName
	}
	return string(u.Role)
}

func (u User) Clone() User {
	out := u
	out.Address = u.Address.clone()
	out.FavoriteRequesterIDs = slices.Clone(u.FavoriteRequesterIDs)
	return out
}

// Actor is the identity the session provider vouches for on every request.
type Actor struct {
	ID   primitive.ObjectID `json:"id"`
	Role UserRole           `json:"role"`
	Name string             `json:"name,omitempty"`
}
