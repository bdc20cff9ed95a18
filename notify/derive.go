// Package notify turns lifecycle transitions into per-party notifications and
// appends them to the notification store.
package notify

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	lifecycle "github.com/phillip/food-rescue-go/lifecycle"
	models "github.com/phillip/food-rescue-go/models"
)

// Derive returns the notifications a transition produces. It only looks at
// the old and new images, so it is safe to call with any recorded event.
// Field-only writes (interest, claim, location, safety override) produce nothing.
func Derive(t lifecycle.Transition) []models.Notification {
	if !t.StatusChanged() {
		return nil
	}
	old, cur := t.Old, t.New
	food := cur.FoodName

	var out []models.Notification
	add := func(to *primitive.ObjectID, typ models.NotificationType, format string, args ...any) {
		if to == nil || to.IsZero() {
			return
		}
		out = append(out, models.Notification{
			UserID:  *to,
			Type:    typ,
			Message: fmt.Sprintf(format, args...),
		})
	}
	donor := cur.DonorID

	switch cur.Status {
	case models.StatusPickupVerificationPending:
		add(&donor, models.NotificationAction,
			"ACTION REQUIRED: Volunteer %s has uploaded a pickup proof for %q. Please verify now.",
			cur.VolunteerName, food)

	case models.StatusInTransit:
		switch old.Status {
		case models.StatusPickupVerificationPending:
			add(cur.VolunteerID, models.NotificationSuccess,
				"Pickup Approved! You can now proceed to deliver %q.", food)
			add(cur.RequesterID, models.NotificationInfo,
				"Status Update: %s has picked up %q!", cur.VolunteerName, food)
		case models.StatusDeliveryVerificationPending:
			add(cur.RequesterID, models.NotificationInfo,
				"Delivery Verification Rejected for %q. Please re-upload a clear image of the food reception.", food)
		}

	case models.StatusRequested:
		if old.Status != models.StatusPickupVerificationPending {
			break
		}
		if cur.VolunteerID != nil && old.VolunteerID != nil && *cur.VolunteerID == *old.VolunteerID {
			add(&donor, models.NotificationInfo,
				"Update: Volunteer %s has retracted their pickup proof for %q to re-verify.",
				cur.VolunteerName, food)
		} else {
			add(old.VolunteerID, models.NotificationInfo,
				"Pickup Verification Rejected for %q. Please check the image or contact the donor.", food)
		}

	case models.StatusDeliveryVerificationPending:
		add(&donor, models.NotificationAction,
			"ACTION REQUIRED: Delivery proof uploaded for %q. Please verify to complete the donation.", food)

	case models.StatusDelivered:
		add(&donor, models.NotificationSuccess,
			"Donation Complete: %q has been successfully delivered and verified!", food)
		add(cur.VolunteerID, models.NotificationSuccess,
			"Mission Accomplished! %q delivery verified.", food)
		add(cur.RequesterID, models.NotificationSuccess,
			"Enjoy your meal! %q is officially marked as delivered.", food)
	}
	return out
}

// Proximity is the notice a nearby volunteer gets when a posting is created.
func Proximity(volunteer primitive.ObjectID, p *models.Posting, distanceKm float64) models.Notification {
	return models.Notification{
		UserID:  volunteer,
		Type:    models.NotificationInfo,
		Message: fmt.Sprintf("New food donation: %s near %s (%.1fkm away)", p.FoodName, p.Location.Near(), distanceKm),
	}
}

// Rated tells the volunteer about a rating they received.
func Rated(volunteer primitive.ObjectID, food string, value int) models.Notification {
	return models.Notification{
		UserID:  volunteer,
		Type:    models.NotificationSuccess,
		Message: fmt.Sprintf("You received a %d-star rating for delivering %s!", value, food),
	}
}
