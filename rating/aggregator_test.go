package rating

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/food-rescue-go/models"
	notify "github.com/phillip/food-rescue-go/notify"
	store "github.com/phillip/food-rescue-go/store"
)

func TestFold(t *testing.T) {
	avg, count := 0.0, 0
	for _, v := range []int{4, 5, 3} {
		avg, count = Fold(avg, count, v)
	}
	assert.InDelta(t, 4.0, avg, 1e-9)
	assert.Equal(t, 3, count)
}

type fixture struct {
	stores    *store.Stores
	agg       *Aggregator
	posting   models.Posting
	volunteer models.User
}

func setup(t *testing.T, withVolunteer bool) fixture {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemory()

	v := &models.User{Name: "Ravi", Role: models.RoleVolunteer}
	require.NoError(t, s.Users.Create(ctx, v))

	p := &models.Posting{DonorID: primitive.NewObjectID(), FoodName: "Dal", Status: models.StatusDelivered}
	if withVolunteer {
		p.VolunteerID = &v.ID
	}
	require.NoError(t, s.Postings.Create(ctx, p))

	return fixture{
		stores:    s,
		agg:       NewAggregator(s.Postings, s.Users, notify.NewFanOut(s.Notifications, nil), nil),
		posting:   *p,
		volunteer: *v,
	}
}

func rater(role models.UserRole) models.Actor {
	return models.Actor{ID: primitive.NewObjectID(), Role: role}
}

func TestAdd_FoldsIntoVolunteer(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)

	for _, v := range []int{4, 5, 3} {
		_, err := f.agg.Add(ctx, f.posting.ID, Input{Rater: rater(models.RoleRequester), Value: v})
		require.NoError(t, err)
	}

	u, err := f.stores.Users.Get(ctx, f.volunteer.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, u.AverageRating, 1e-9)
	assert.Equal(t, 3, u.RatingsCount)

	p, err := f.stores.Postings.Get(ctx, f.posting.ID)
	require.NoError(t, err)
	assert.Len(t, p.Ratings, 3)

	notes, err := f.stores.Notifications.ListForUser(ctx, f.volunteer.ID)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, models.NotificationSuccess, notes[0].Type)
}

func TestAdd_RejectsOutOfRange(t *testing.T) {
	f := setup(t, true)
	for _, v := range []int{0, 6, -1} {
		_, err := f.agg.Add(context.Background(), f.posting.ID, Input{Rater: rater(models.RoleDonor), Value: v})
		assert.ErrorIs(t, err, models.ErrValidation, "value %d", v)
	}
}

func TestAdd_OncePerRater(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	r := rater(models.RoleDonor)

	_, err := f.agg.Add(ctx, f.posting.ID, Input{Rater: r, Value: 5})
	require.NoError(t, err)
	_, err = f.agg.Add(ctx, f.posting.ID, Input{Rater: r, Value: 1})
	assert.ErrorIs(t, err, models.ErrAlreadyRated)

	u, err := f.stores.Users.Get(ctx, f.volunteer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.RatingsCount)
	assert.InDelta(t, 5.0, u.AverageRating, 1e-9)
}

func TestAdd_WithoutVolunteer(t *testing.T) {
	ctx := context.Background()
	f := setup(t, false)

	p, err := f.agg.Add(ctx, f.posting.ID, Input{Rater: rater(models.RoleRequester), Value: 2, Feedback: "late"})
	require.NoError(t, err)
	require.Len(t, p.Ratings, 1)
	assert.Equal(t, "late", p.Ratings[0].Feedback)

	u, err := f.stores.Users.Get(ctx, f.volunteer.ID)
	require.NoError(t, err)
	assert.Zero(t, u.RatingsCount)
}

func TestAdd_UnknownPosting(t *testing.T) {
	f := setup(t, true)
	_, err := f.agg.Add(context.Background(), primitive.NewObjectID(), Input{Rater: rater(models.RoleDonor), Value: 3})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// downUsers fails every reputation write while down is set.
type downUsers struct {
	store.UserStore
	down bool
}

func (d *downUsers) Update(ctx context.Context, id primitive.ObjectID, mutate func(*models.User) error) (models.User, error) {
	if d.down {
		return models.User{}, errors.New("connection reset")
	}
	return d.UserStore.Update(ctx, id, mutate)
}

func TestAdd_FoldFailureIsReturnedAndRetryable(t *testing.T) {
	ctx := context.Background()
	f := setup(t, true)
	users := &downUsers{UserStore: f.stores.Users, down: true}
	agg := NewAggregator(f.stores.Postings, users, notify.NewFanOut(f.stores.Notifications, nil), nil)
	r := rater(models.RoleRequester)

	_, err := agg.Add(ctx, f.posting.ID, Input{Rater: r, Value: 5})
	require.Error(t, err)

	p, err := f.stores.Postings.Get(ctx, f.posting.ID)
	require.NoError(t, err)
	require.Len(t, p.Ratings, 1)
	assert.False(t, p.Ratings[0].Counted)

	// The stored value is folded, not the one sent on retry.
	users.down = false
	_, err = agg.Add(ctx, f.posting.ID, Input{Rater: r, Value: 2})
	require.NoError(t, err)

	u, err := f.stores.Users.Get(ctx, f.volunteer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.RatingsCount)
	assert.InDelta(t, 5.0, u.AverageRating, 1e-9)

	notes, err := f.stores.Notifications.ListForUser(ctx, f.volunteer.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "You received a 5-star rating for delivering Dal!", notes[0].Message)

	_, err = agg.Add(ctx, f.posting.ID, Input{Rater: r, Value: 5})
	assert.ErrorIs(t, err, models.ErrAlreadyRated)
}
