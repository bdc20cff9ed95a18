// Package lifecycle is the posting state machine.
//
// Apply is pure: it checks an intent against the posting's current status and
// the acting party, then mutates the posting in place. It is meant to run
// inside store.PostingStore.Update so the precondition check and the write
// happen against the same version of the record.
package lifecycle

import (
	"fmt"
	"slices"

	models "github.com/phillip/food-rescue-go/models"
)

type Intent string

const (
	IntentRequest             Intent = "REQUEST"
	IntentExpressInterest     Intent = "EXPRESS_INTEREST"
	IntentClaim               Intent = "CLAIM"
	IntentSubmitPickupProof   Intent = "SUBMIT_PICKUP_PROOF"
	IntentApprovePickup       Intent = "APPROVE_PICKUP"
	IntentRejectPickup        Intent = "REJECT_PICKUP"
	IntentRetractPickup       Intent = "RETRACT_PICKUP"
	IntentSubmitDeliveryProof Intent = "SUBMIT_DELIVERY_PROOF"
	IntentApproveDelivery     Intent = "APPROVE_DELIVERY"
	IntentRejectDelivery      Intent = "REJECT_DELIVERY"

	// Field updates that share the serialized write path but never move status.
	IntentUpdateLocation Intent = "UPDATE_LOCATION"
	IntentOverrideSafety Intent = "OVERRIDE_SAFETY"
)

// ManualSafetyReasoning is recorded when a donor overrides the classifier.
const ManualSafetyReasoning = "Manually verified by donor as safe."

// Command is one actor's intent plus whatever payload the intent carries.
type Command struct {
	Intent            Intent
	Actor             models.Actor
	ProofURL          string
	Notes             string
	RequesterAddress  *models.Address
	VolunteerLocation *models.Coordinates
}

// Transition is emitted after a successful write.
type Transition struct {
	Intent Intent
	Actor  models.Actor
	Old    models.Posting
	New    models.Posting
}

func (t Transition) StatusChanged() bool { return t.Old.Status != t.New.Status }

// Completed is true only for the write that moved the posting into DELIVERED.
func (t Transition) Completed() bool {
	return t.Old.Status != models.StatusDelivered && t.New.Status == models.StatusDelivered
}

type rule struct {
	from       []models.PostingStatus
	to         models.PostingStatus // empty keeps the current status
	roles      []models.UserRole
	allow      func(p *models.Posting, a models.Actor) bool
	needsProof bool
	apply      func(p *models.Posting, cmd Command)
}

func isDonor(p *models.Posting, a models.Actor) bool     { return p.IsDonor(a.ID) }
func isVolunteer(p *models.Posting, a models.Actor) bool { return p.IsVolunteer(a.ID) }

var rules = map[Intent]rule{
	IntentRequest: {
		from:  []models.PostingStatus{models.StatusAvailable},
		to:    models.StatusRequested,
		roles: []models.UserRole{models.RoleRequester},
		apply: func(p *models.Posting, cmd Command) {
			id := cmd.Actor.ID
			p.RequesterID = &id
			p.RequesterName = cmd.Actor.Name
			p.RequesterAddress = cmd.RequesterAddress
		},
	},
	IntentExpressInterest: {
		from:  []models.PostingStatus{models.StatusAvailable},
		roles: []models.UserRole{models.RoleVolunteer},
		apply: func(p *models.Posting, cmd Command) {
			for _, v := range p.InterestedVolunteers {
				if v.UserID == cmd.Actor.ID {
					return
				}
			}
			p.InterestedVolunteers = append(p.InterestedVolunteers, models.InterestedVolunteer{
				UserID:   cmd.Actor.ID,
				UserName: cmd.Actor.Name,
			})
		},
	},
	IntentClaim: {
		from:  []models.PostingStatus{models.StatusRequested},
		roles: []models.UserRole{models.RoleVolunteer},
		allow: func(p *models.Posting, _ models.Actor) bool { return p.VolunteerID == nil },
		apply: func(p *models.Posting, cmd Command) {
			id := cmd.Actor.ID
			p.VolunteerID = &id
			p.VolunteerName = cmd.Actor.Name
		},
	},
	IntentSubmitPickupProof: {
		from:       []models.PostingStatus{models.StatusRequested},
		to:         models.StatusPickupVerificationPending,
		roles:      []models.UserRole{models.RoleVolunteer},
		allow:      isVolunteer,
		needsProof: true,
		apply: func(p *models.Posting, cmd Command) {
			p.PickupProofURL = cmd.ProofURL
			if cmd.Notes != "" {
				p.VolunteerNotes = cmd.Notes
			}
			if cmd.VolunteerLocation != nil {
				loc := *cmd.VolunteerLocation
				p.VolunteerLocation = &loc
			}
		},
	},
	IntentApprovePickup: {
		from:  []models.PostingStatus{models.StatusPickupVerificationPending},
		to:    models.StatusInTransit,
		roles: []models.UserRole{models.RoleDonor},
		allow: isDonor,
	},
	IntentRejectPickup: {
		from:  []models.PostingStatus{models.StatusPickupVerificationPending},
		to:    models.StatusRequested,
		roles: []models.UserRole{models.RoleDonor},
		allow: isDonor,
		apply: func(p *models.Posting, _ Command) {
			p.PickupProofURL = ""
			p.VolunteerID = nil
			p.VolunteerName = ""
			p.VolunteerLocation = nil
		},
	},
	IntentRetractPickup: {
		from:  []models.PostingStatus{models.StatusPickupVerificationPending},
		to:    models.StatusRequested,
		roles: []models.UserRole{models.RoleVolunteer},
		allow: isVolunteer,
		apply: func(p *models.Posting, _ Command) {
			p.PickupProofURL = ""
		},
	},
	IntentSubmitDeliveryProof: {
		from:  []models.PostingStatus{models.StatusInTransit},
		to:    models.StatusDeliveryVerificationPending,
		roles: []models.UserRole{models.RoleRequester, models.RoleVolunteer},
		allow: func(p *models.Posting, a models.Actor) bool {
			return p.IsRequester(a.ID) || p.IsVolunteer(a.ID)
		},
		needsProof: true,
		apply: func(p *models.Posting, cmd Command) {
			p.DeliveryProofURL = cmd.ProofURL
			if cmd.Notes != "" {
				p.VolunteerNotes = cmd.Notes
			}
		},
	},
	IntentApproveDelivery: {
		from:  []models.PostingStatus{models.StatusDeliveryVerificationPending},
		to:    models.StatusDelivered,
		roles: []models.UserRole{models.RoleDonor},
		allow: isDonor,
		apply: func(p *models.Posting, _ Command) {
			p.PickupProofURL = ""
			p.DeliveryProofURL = ""
		},
	},
	IntentRejectDelivery: {
		from:  []models.PostingStatus{models.StatusDeliveryVerificationPending},
		to:    models.StatusInTransit,
		roles: []models.UserRole{models.RoleDonor},
		allow: isDonor,
		apply: func(p *models.Posting, _ Command) {
			p.DeliveryProofURL = ""
		},
	},
	IntentUpdateLocation: {
		from:  []models.PostingStatus{models.StatusInTransit},
		roles: []models.UserRole{models.RoleVolunteer},
		allow: isVolunteer,
		apply: func(p *models.Posting, cmd Command) {
			loc := *cmd.VolunteerLocation
			p.VolunteerLocation = &loc
		},
	},
	IntentOverrideSafety: {
		from: []models.PostingStatus{
			models.StatusAvailable, models.StatusRequested, models.StatusPickupVerificationPending,
			models.StatusInTransit, models.StatusDeliveryVerificationPending,
		},
		roles: []models.UserRole{models.RoleDonor},
		allow: isDonor,
		apply: func(p *models.Posting, _ Command) {
			p.SafetyVerdict = &models.SafetyVerdict{IsSafe: true, Reasoning: ManualSafetyReasoning}
		},
	},
}

// Known reports whether intent names a rule.
func Known(intent Intent) bool {
	_, ok := rules[intent]
	return ok
}

// NeedsProof reports whether intent carries a proof image the classifier must accept.
func NeedsProof(intent Intent) bool {
	return rules[intent].needsProof
}

// Apply validates cmd against p and, when allowed, mutates p. On error p is untouched.
func Apply(p *models.Posting, cmd Command) error {
	r, ok := rules[cmd.Intent]
	if !ok {
		return models.Validationf("unknown intent %q", cmd.Intent)
	}
	if !slices.Contains(r.from, p.Status) ||
		!slices.Contains(r.roles, cmd.Actor.Role) ||
		(r.allow != nil && !r.allow(p, cmd.Actor)) {
		return fmt.Errorf("%w: %s by %s from %s", models.ErrInvalidTransition, cmd.Intent, cmd.Actor.Role, p.Status)
	}
	if r.needsProof && cmd.ProofURL == "" {
		return models.Validationf("%s requires a proof image", cmd.Intent)
	}
	if cmd.Intent == IntentUpdateLocation && cmd.VolunteerLocation == nil {
		return models.Validationf("location is required")
	}

	if r.apply != nil {
		r.apply(p, cmd)
	}
	if r.to != "" {
		p.Status = r.to
	}
	return nil
}

// Edges lists every status change the engine can produce.
func Edges() map[models.PostingStatus][]models.PostingStatus {
	out := map[models.PostingStatus][]models.PostingStatus{}
	for _, r := range rules {
		if r.to == "" {
			continue
		}
		for _, from := range r.from {
			if !slices.Contains(out[from], r.to) {
				out[from] = append(out[from], r.to)
			}
		}
	}
	return out
}
