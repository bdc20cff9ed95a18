package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/food-rescue-go/models"
)

type parties struct {
	donor, volunteer, requester, stranger models.Actor
}

func newParties() parties {
	return parties{
		donor:     models.Actor{ID: primitive.NewObjectID(), Role: models.RoleDonor, Name: "Hotel Annapurna"},
		volunteer: models.Actor{ID: primitive.NewObjectID(), Role: models.RoleVolunteer, Name: "Ravi"},
		requester: models.Actor{ID: primitive.NewObjectID(), Role: models.RoleRequester, Name: "Hope Shelter"},
		stranger:  models.Actor{ID: primitive.NewObjectID(), Role: models.RoleVolunteer, Name: "Meera"},
	}
}

// postingAt builds a posting in status with the parties filled in the way the
// invariants require for that status.
func postingAt(ps parties, status models.PostingStatus) models.Posting {
	p := models.Posting{
		ID:       primitive.NewObjectID(),
		DonorID:  ps.donor.ID,
		FoodName: "Idli",
		Status:   status,
	}
	if status != models.StatusAvailable {
		rid := ps.requester.ID
		p.RequesterID = &rid
	}
	switch status {
	case models.StatusPickupVerificationPending:
		p.PickupProofURL = "https://img/pickup.jpg"
		fallthrough
	case models.StatusInTransit:
		vid := ps.volunteer.ID
		p.VolunteerID = &vid
	case models.StatusDeliveryVerificationPending:
		vid := ps.volunteer.ID
		p.VolunteerID = &vid
		p.DeliveryProofURL = "https://img/delivery.jpg"
	case models.StatusDelivered:
		vid := ps.volunteer.ID
		p.VolunteerID = &vid
	}
	return p
}

func TestApply_ValidTransitions(t *testing.T) {
	ps := newParties()
	claimed := func(status models.PostingStatus) models.Posting {
		p := postingAt(ps, status)
		vid := ps.volunteer.ID
		p.VolunteerID = &vid
		return p
	}

	tests := []struct {
		name    string
		posting models.Posting
		cmd     Command
		want    models.PostingStatus
		check   func(t *testing.T, p models.Posting)
	}{
		{
			name:    "requester requests available posting",
			posting: postingAt(ps, models.StatusAvailable),
			cmd:     Command{Intent: IntentRequest, Actor: ps.requester, RequesterAddress: &models.Address{Line1: "Shelter Rd"}},
			want:    models.StatusRequested,
			check: func(t *testing.T, p models.Posting) {
				require.NotNil(t, p.RequesterID)
				assert.Equal(t, ps.requester.ID, *p.RequesterID)
				assert.Equal(t, "Shelter Rd", p.RequesterAddress.Line1)
			},
		},
		{
			name:    "volunteer records interest",
			posting: postingAt(ps, models.StatusAvailable),
			cmd:     Command{Intent: IntentExpressInterest, Actor: ps.volunteer},
			want:    models.StatusAvailable,
			check: func(t *testing.T, p models.Posting) {
				require.Len(t, p.InterestedVolunteers, 1)
				assert.Equal(t, "Ravi", p.InterestedVolunteers[0].UserName)
			},
		},
		{
			name:    "volunteer claims requested posting",
			posting: postingAt(ps, models.StatusRequested),
			cmd:     Command{Intent: IntentClaim, Actor: ps.volunteer},
			want:    models.StatusRequested,
			check: func(t *testing.T, p models.Posting) {
				assert.True(t, p.IsVolunteer(ps.volunteer.ID))
			},
		},
		{
			name:    "assigned volunteer submits pickup proof",
			posting: claimed(models.StatusRequested),
			cmd:     Command{Intent: IntentSubmitPickupProof, Actor: ps.volunteer, ProofURL: "https://img/p.jpg"},
			want:    models.StatusPickupVerificationPending,
			check: func(t *testing.T, p models.Posting) {
				assert.Equal(t, "https://img/p.jpg", p.PickupProofURL)
			},
		},
		{
			name:    "donor approves pickup",
			posting: postingAt(ps, models.StatusPickupVerificationPending),
			cmd:     Command{Intent: IntentApprovePickup, Actor: ps.donor},
			want:    models.StatusInTransit,
		},
		{
			name:    "donor rejects pickup and releases volunteer",
			posting: postingAt(ps, models.StatusPickupVerificationPending),
			cmd:     Command{Intent: IntentRejectPickup, Actor: ps.donor},
			want:    models.StatusRequested,
			check: func(t *testing.T, p models.Posting) {
				assert.Empty(t, p.PickupProofURL)
				assert.Nil(t, p.VolunteerID)
			},
		},
		{
			name:    "volunteer retracts pickup and stays assigned",
			posting: postingAt(ps, models.StatusPickupVerificationPending),
			cmd:     Command{Intent: IntentRetractPickup, Actor: ps.volunteer},
			want:    models.StatusRequested,
			check: func(t *testing.T, p models.Posting) {
				assert.Empty(t, p.PickupProofURL)
				assert.True(t, p.IsVolunteer(ps.volunteer.ID))
			},
		},
		{
			name:    "requester submits delivery proof",
			posting: postingAt(ps, models.StatusInTransit),
			cmd:     Command{Intent: IntentSubmitDeliveryProof, Actor: ps.requester, ProofURL: "https://img/d.jpg"},
			want:    models.StatusDeliveryVerificationPending,
			check: func(t *testing.T, p models.Posting) {
				assert.Equal(t, "https://img/d.jpg", p.DeliveryProofURL)
			},
		},
		{
			name:    "volunteer submits delivery proof",
			posting: postingAt(ps, models.StatusInTransit),
			cmd:     Command{Intent: IntentSubmitDeliveryProof, Actor: ps.volunteer, ProofURL: "https://img/d.jpg"},
			want:    models.StatusDeliveryVerificationPending,
		},
		{
			name:    "donor approves delivery",
			posting: postingAt(ps, models.StatusDeliveryVerificationPending),
			cmd:     Command{Intent: IntentApproveDelivery, Actor: ps.donor},
			want:    models.StatusDelivered,
			check: func(t *testing.T, p models.Posting) {
				assert.Empty(t, p.PickupProofURL)
				assert.Empty(t, p.DeliveryProofURL)
			},
		},
		{
			name:    "donor rejects delivery",
			posting: postingAt(ps, models.StatusDeliveryVerificationPending),
			cmd:     Command{Intent: IntentRejectDelivery, Actor: ps.donor},
			want:    models.StatusInTransit,
			check: func(t *testing.T, p models.Posting) {
				assert.Empty(t, p.DeliveryProofURL)
				assert.True(t, p.IsVolunteer(ps.volunteer.ID))
			},
		},
		{
			name:    "volunteer shares live location",
			posting: postingAt(ps, models.StatusInTransit),
			cmd:     Command{Intent: IntentUpdateLocation, Actor: ps.volunteer, VolunteerLocation: &models.Coordinates{Lat: 12.9, Lng: 77.6}},
			want:    models.StatusInTransit,
			check: func(t *testing.T, p models.Posting) {
				require.NotNil(t, p.VolunteerLocation)
				assert.Equal(t, 12.9, p.VolunteerLocation.Lat)
			},
		},
		{
			name:    "donor overrides safety verdict",
			posting: postingAt(ps, models.StatusAvailable),
			cmd:     Command{Intent: IntentOverrideSafety, Actor: ps.donor},
			want:    models.StatusAvailable,
			check: func(t *testing.T, p models.Posting) {
				require.NotNil(t, p.SafetyVerdict)
				assert.True(t, p.SafetyVerdict.IsSafe)
				assert.Equal(t, ManualSafetyReasoning, p.SafetyVerdict.Reasoning)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.posting.Clone()
			require.NoError(t, Apply(&p, tt.cmd))
			assert.Equal(t, tt.want, p.Status)
			if tt.check != nil {
				tt.check(t, p)
			}
		})
	}
}

func TestApply_ExhaustiveOnlyTableEdges(t *testing.T) {
	ps := newParties()
	edges := Edges()
	statuses := []models.PostingStatus{
		models.StatusAvailable, models.StatusRequested, models.StatusPickupVerificationPending,
		models.StatusInTransit, models.StatusDeliveryVerificationPending, models.StatusDelivered,
	}
	actors := []models.Actor{ps.donor, ps.volunteer, ps.requester, ps.stranger}

	for _, status := range statuses {
		for intent := range rules {
			for _, actor := range actors {
				p := postingAt(ps, status)
				before := p.Clone()
				err := Apply(&p, Command{
					Intent:            intent,
					Actor:             actor,
					ProofURL:          "https://img/x.jpg",
					VolunteerLocation: &models.Coordinates{Lat: 1, Lng: 1},
				})
				if err != nil {
					assert.ErrorIs(t, err, models.ErrInvalidTransition, "%s %s %s", status, intent, actor.Name)
					assert.Equal(t, before, p, "rejected %s must not mutate", intent)
					continue
				}
				if p.Status != status {
					assert.Contains(t, edges[status], p.Status, "%s -> %s via %s", status, p.Status, intent)
				}
				if p.Status == models.StatusInTransit || p.Status == models.StatusDeliveryVerificationPending ||
					p.Status == models.StatusDelivered || p.Status == models.StatusPickupVerificationPending {
					assert.NotNil(t, p.VolunteerID, "volunteer required in %s", p.Status)
				}
				if p.Status != models.StatusAvailable {
					assert.NotNil(t, p.RequesterID, "requester required in %s", p.Status)
				}
				assert.Equal(t, before.DonorID, p.DonorID)
			}
		}
	}
}

func TestApply_DeliveredIsTerminal(t *testing.T) {
	ps := newParties()
	for intent := range rules {
		for _, actor := range []models.Actor{ps.donor, ps.volunteer, ps.requester} {
			p := postingAt(ps, models.StatusDelivered)
			err := Apply(&p, Command{Intent: intent, Actor: actor, ProofURL: "x", VolunteerLocation: &models.Coordinates{}})
			assert.ErrorIs(t, err, models.ErrInvalidTransition, "%s by %s", intent, actor.Role)
		}
	}
}

func TestApply_SecondClaimRejected(t *testing.T) {
	ps := newParties()
	p := postingAt(ps, models.StatusRequested)
	require.NoError(t, Apply(&p, Command{Intent: IntentClaim, Actor: ps.volunteer}))

	err := Apply(&p, Command{Intent: IntentClaim, Actor: ps.stranger})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.True(t, p.IsVolunteer(ps.volunteer.ID))
}

func TestApply_UnassignedVolunteerCannotSubmitPickup(t *testing.T) {
	ps := newParties()
	p := postingAt(ps, models.StatusRequested)
	vid := ps.volunteer.ID
	p.VolunteerID = &vid

	err := Apply(&p, Command{Intent: IntentSubmitPickupProof, Actor: ps.stranger, ProofURL: "x"})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestApply_OtherDonorCannotApprove(t *testing.T) {
	ps := newParties()
	p := postingAt(ps, models.StatusPickupVerificationPending)
	other := models.Actor{ID: primitive.NewObjectID(), Role: models.RoleDonor}

	err := Apply(&p, Command{Intent: IntentApprovePickup, Actor: other})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestApply_ProofRequired(t *testing.T) {
	ps := newParties()
	p := postingAt(ps, models.StatusInTransit)
	before := p.Clone()

	err := Apply(&p, Command{Intent: IntentSubmitDeliveryProof, Actor: ps.requester})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, before, p)
}

func TestApply_InterestIsASet(t *testing.T) {
	ps := newParties()
	p := postingAt(ps, models.StatusAvailable)
	require.NoError(t, Apply(&p, Command{Intent: IntentExpressInterest, Actor: ps.volunteer}))
	require.NoError(t, Apply(&p, Command{Intent: IntentExpressInterest, Actor: ps.volunteer}))
	require.NoError(t, Apply(&p, Command{Intent: IntentExpressInterest, Actor: ps.stranger}))
	assert.Len(t, p.InterestedVolunteers, 2)
}

func TestApply_UnknownIntent(t *testing.T) {
	ps := newParties()
	p := postingAt(ps, models.StatusAvailable)
	err := Apply(&p, Command{Intent: "TELEPORT", Actor: ps.donor})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestEdges_MatchLifecycle(t *testing.T) {
	edges := Edges()
	assert.ElementsMatch(t, []models.PostingStatus{models.StatusRequested}, edges[models.StatusAvailable])
	assert.ElementsMatch(t, []models.PostingStatus{models.StatusPickupVerificationPending}, edges[models.StatusRequested])
	assert.ElementsMatch(t, []models.PostingStatus{models.StatusInTransit, models.StatusRequested}, edges[models.StatusPickupVerificationPending])
	assert.ElementsMatch(t, []models.PostingStatus{models.StatusDeliveryVerificationPending}, edges[models.StatusInTransit])
	assert.ElementsMatch(t, []models.PostingStatus{models.StatusDelivered, models.StatusInTransit}, edges[models.StatusDeliveryVerificationPending])
	assert.Empty(t, edges[models.StatusDelivered])
}
