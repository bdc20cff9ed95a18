package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostingStatus string

const (
	StatusAvailable                   PostingStatus = "AVAILABLE"
	StatusRequested                   PostingStatus = "REQUESTED"
	StatusPickupVerificationPending   PostingStatus = "PICKUP_VERIFICATION_PENDING"
	StatusInTransit                   PostingStatus = "IN_TRANSIT"
	StatusDeliveryVerificationPending PostingStatus = "DELIVERY_VERIFICATION_PENDING"
	StatusDelivered                   PostingStatus = "DELIVERED"
)

// Valid reports whether s is one of the six lifecycle states.
func (s PostingStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusRequested, StatusPickupVerificationPending,
		StatusInTransit, StatusDeliveryVerificationPending, StatusDelivered:
		return true
	}
	return false
}

// AwaitingVerification is true while the donor has a proof to sign off.
func (s PostingStatus) AwaitingVerification() bool {
	return s == StatusPickupVerificationPending || s == StatusDeliveryVerificationPending
}

type SafetyVerdict struct {
	IsSafe    bool   `bson:"is_safe" json:"is_safe"`
	Reasoning string `bson:"reasoning" json:"reasoning"`
}

type InterestedVolunteer struct {
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	UserName string             `bson:"user_name" json:"user_name"`
}

// Posting is one donation and its lifecycle state.
type Posting struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DonorID   primitive.ObjectID `bson:"donor_id" json:"donor_id"`
	DonorName string             `bson:"donor_name" json:"donor_name"`
	DonorOrg  string             `bson:"donor_org,omitempty" json:"donor_org,omitempty"`

	FoodName      string         `bson:"food_name" json:"food_name"`
	Description   string         `bson:"description,omitempty" json:"description,omitempty"`
	FoodCategory  string         `bson:"food_category,omitempty" json:"food_category,omitempty"`
	Quantity      string         `bson:"quantity" json:"quantity"`
	ExpiresAt     time.Time      `bson:"expires_at" json:"expires_at"`
	Tags          []string       `bson:"tags" json:"tags"`
	ImageURL      string         `bson:"image_url,omitempty" json:"image_url,omitempty"`
	SafetyVerdict *SafetyVerdict `bson:"safety_verdict,omitempty" json:"safety_verdict,omitempty"`

	Location          Address      `bson:"location" json:"location"`
	RequesterAddress  *Address     `bson:"requester_address,omitempty" json:"requester_address,omitempty"`
	VolunteerLocation *Coordinates `bson:"volunteer_location,omitempty" json:"volunteer_location,omitempty"`

	Status PostingStatus `bson:"status" json:"status"`

	RequesterID   *primitive.ObjectID `bson:"requester_id,omitempty" json:"requester_id,omitempty"`
	RequesterName string              `bson:"requester_name,omitempty" json:"requester_name,omitempty"`
	VolunteerID   *primitive.ObjectID `bson:"volunteer_id,omitempty" json:"volunteer_id,omitempty"`
	VolunteerName string              `bson:"volunteer_name,omitempty" json:"volunteer_name,omitempty"`

	PickupProofURL   string `bson:"pickup_proof_url,omitempty" json:"pickup_proof_url,omitempty"`
	DeliveryProofURL string `bson:"delivery_proof_url,omitempty" json:"delivery_proof_url,omitempty"`
	VolunteerNotes   string `bson:"volunteer_notes,omitempty" json:"volunteer_notes,omitempty"`

	Ratings              []Rating              `bson:"ratings" json:"ratings"`
	InterestedVolunteers []InterestedVolunteer `bson:"interested_volunteers" json:"interested_volunteers"`

	// CreditedUserIDs records whose impact score already counts this delivery.
	CreditedUserIDs []primitive.ObjectID `bson:"credited_user_ids,omitempty" json:"-"`

	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsDonor, IsVolunteer and IsRequester compare an actor against the posting's parties.
func (p *Posting) IsDonor(id primitive.ObjectID) bool { return p.DonorID == id }

func (p *Posting) IsVolunteer(id primitive.ObjectID) bool {
	return p.VolunteerID != nil && *p.VolunteerID == id
}

func (p *Posting) IsRequester(id primitive.ObjectID) bool {
	return p.RequesterID != nil && *p.RequesterID == id
}

// RatingIndex returns the position of rater's rating, or -1.
func (p *Posting) RatingIndex(rater primitive.ObjectID) int {
	for i, r := range p.Ratings {
		if r.RaterID == rater {
			return i
		}
	}
	return -1
}

// ImpactParties are the users credited when the posting is delivered.
func (p *Posting) ImpactParties() []primitive.ObjectID {
	ids := []primitive.ObjectID{p.DonorID}
	if p.VolunteerID != nil {
		ids = append(ids, *p.VolunteerID)
	}
	return ids
}

// ImpactSettled reports whether every party's impact credit has been recorded.
func (p *Posting) ImpactSettled() bool {
	for _, id := range p.ImpactParties() {
		if !slices.Contains(p.CreditedUserIDs, id) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so a store can mutate it without touching the pre-image.
func (p Posting) Clone() Posting {
	out := p
	out.Tags = slices.Clone(p.Tags)
	out.Ratings = slices.Clone(p.Ratings)
	out.InterestedVolunteers = slices.Clone(p.InterestedVolunteers)
	out.CreditedUserIDs = slices.Clone(p.CreditedUserIDs)
	out.Location = *p.Location.clone()
	out.RequesterAddress = p.RequesterAddress.clone()
	if p.SafetyVerdict != nil {
		v := *p.SafetyVerdict
		out.SafetyVerdict = &v
	}
	if p.VolunteerLocation != nil {
		c := *p.VolunteerLocation
		out.VolunteerLocation = &c
	}
	if p.RequesterID != nil {
		id := *p.RequesterID
		out.RequesterID = &id
	}
	if p.VolunteerID != nil {
		id := *p.VolunteerID
		out.VolunteerID = &id
	}
	return out
}

// PostingFilter is the read-model predicate applied over a full scan.
// Zero-valued fields match everything.
type PostingFilter struct {
	Status      PostingStatus
	DonorID     *primitive.ObjectID
	VolunteerID *primitive.ObjectID
	RequesterID *primitive.ObjectID
}

func (f PostingFilter) Match(p *Posting) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.DonorID != nil && p.DonorID != *f.DonorID {
		return false
	}
	if f.VolunteerID != nil && !p.IsVolunteer(*f.VolunteerID) {
		return false
	}
	if f.RequesterID != nil && !p.IsRequester(*f.RequesterID) {
		return false
	}
	return true
}
