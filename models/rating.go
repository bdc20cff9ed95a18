package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Rating ---
type Rating struct {
	RaterID   primitive.ObjectID `bson:"rater_id" json:"rater_id"`
	RaterRole UserRole           `bson:"rater_role" json:"rater_role"`
	Value     int                `bson:"value" json:"value"` // 1–5
	Feedback  string             `bson:"feedback,omitempty" json:"feedback,omitempty"`
	// Counted is set once the value is folded into the volunteer's average.
	Counted   bool               `bson:"counted" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
