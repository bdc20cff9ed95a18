package proximity

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/food-rescue-go/models"
	notify "github.com/phillip/food-rescue-go/notify"
	store "github.com/phillip/food-rescue-go/store"
	utils "github.com/phillip/food-rescue-go/utils"
)

const originLat, originLng = 12.9716, 77.5946

// northOf returns a latitude d kilometres due north of originLat.
func northOf(d float64) float64 {
	return originLat + d/utils.EarthRadiusKm*180/math.Pi
}

func ptr(f float64) *float64 { return &f }

func addUser(t *testing.T, s *store.Stores, role models.UserRole, lat, lng *float64) models.User {
	t.Helper()
	u := &models.User{Name: string(role), Role: role}
	if lat != nil || lng != nil {
		u.Address = &models.Address{Line1: "somewhere", Lat: lat, Lng: lng}
	}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return *u
}

func newPosting() *models.Posting {
	return &models.Posting{
		ID:       primitive.NewObjectID(),
		FoodName: "Chapati",
		Location: models.Address{Landmark: "Bus Stand", Lat: ptr(originLat), Lng: ptr(originLng)},
	}
}

func TestNotifyNearby_RadiusEdge(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := NewMatcher(DefaultConfig(), s.Users, notify.NewFanOut(s.Notifications, nil), nil)

	inside := addUser(t, s, models.RoleVolunteer, ptr(northOf(9.99)), ptr(originLng))
	outside := addUser(t, s, models.RoleVolunteer, ptr(northOf(10.01)), ptr(originLng))
	donor := addUser(t, s, models.RoleDonor, ptr(originLat), ptr(originLng))
	noCoords := addUser(t, s, models.RoleVolunteer, nil, nil)

	n := m.NotifyNearby(ctx, newPosting())
	assert.Equal(t, 1, n)

	got, err := s.Notifications.ListForUser(ctx, inside.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "New food donation: Chapati near Bus Stand (10.0km away)", got[0].Message)
	assert.Equal(t, models.NotificationInfo, got[0].Type)

	for _, u := range []models.User{outside, donor, noCoords} {
		got, err := s.Notifications.ListForUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, got, "%s should not be notified", u.Name)
	}
}

func TestNotifyNearby_PostingWithoutCoordinates(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := NewMatcher(DefaultConfig(), s.Users, notify.NewFanOut(s.Notifications, nil), nil)
	v := addUser(t, s, models.RoleVolunteer, ptr(originLat), ptr(originLng))

	p := newPosting()
	p.Location.Lng = nil
	assert.Equal(t, 0, m.NotifyNearby(ctx, p))

	got, err := s.Notifications.ListForUser(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFind_HalfCoordinatesSkipped(t *testing.T) {
	s := store.NewMemory()
	m := NewMatcher(DefaultConfig(), s.Users, notify.NewFanOut(s.Notifications, nil), nil)
	addUser(t, s, models.RoleVolunteer, ptr(originLat), nil)

	matches, err := m.Find(context.Background(), newPosting())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestConfigWithin_Boundary(t *testing.T) {
	inclusive := Config{RadiusKm: 10, Inclusive: true}
	exclusive := Config{RadiusKm: 10, Inclusive: false}

	assert.True(t, inclusive.Within(10))
	assert.False(t, exclusive.Within(10))

	for _, c := range []Config{inclusive, exclusive} {
		assert.True(t, c.Within(9.99))
		assert.False(t, c.Within(10.01))
		assert.True(t, c.Within(0))
	}
}

func TestNewMatcher_DefaultsRadius(t *testing.T) {
	m := NewMatcher(Config{}, nil, nil, nil)
	assert.Equal(t, DefaultRadiusKm, m.cfg.RadiusKm)
}
