package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/food-rescue-go/models"
)

func newPosting() *models.Posting {
	return &models.Posting{
		DonorID:  primitive.NewObjectID(),
		FoodName: "Vegetable biryani",
		Quantity: "12 plates",
		Location: models.Address{Line1: "12 MG Road", Line2: "Indiranagar", Pincode: "560038"},
		Status:   models.StatusAvailable,
		Tags:     []string{"veg"},
	}
}

// runPostingStoreContract exercises behavior every PostingStore must share.
func runPostingStoreContract(t *testing.T, s PostingStore) {
	ctx := context.Background()

	t.Run("create assigns id and version", func(t *testing.T) {
		p := newPosting()
		require.NoError(t, s.Create(ctx, p))
		assert.False(t, p.ID.IsZero())
		assert.Equal(t, int64(1), p.Version)

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.FoodName, got.FoodName)
		assert.Equal(t, models.StatusAvailable, got.Status)
	})

	t.Run("create rejects duplicate id", func(t *testing.T) {
		p := newPosting()
		require.NoError(t, s.Create(ctx, p))
		dup := newPosting()
		dup.ID = p.ID
		err := s.Create(ctx, dup)
		assert.True(t, errors.Is(err, models.ErrDuplicateID), "got %v", err)
	})

	t.Run("get unknown id", func(t *testing.T) {
		_, err := s.Get(ctx, primitive.NewObjectID())
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("update returns pre and post image", func(t *testing.T) {
		p := newPosting()
		require.NoError(t, s.Create(ctx, p))

		before, after, err := s.Update(ctx, p.ID, func(next *models.Posting) error {
			next.Status = models.StatusRequested
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusAvailable, before.Status)
		assert.Equal(t, models.StatusRequested, after.Status)
		assert.Equal(t, before.Version+1, after.Version)
	})

	t.Run("mutate error leaves record unchanged", func(t *testing.T) {
		p := newPosting()
		require.NoError(t, s.Create(ctx, p))
		stored, err := s.Get(ctx, p.ID)
		require.NoError(t, err)

		_, _, err = s.Update(ctx, p.ID, func(next *models.Posting) error {
			next.Status = models.StatusDelivered
			next.Tags = append(next.Tags, "mutated")
			return models.ErrInvalidTransition
		})
		require.ErrorIs(t, err, models.ErrInvalidTransition)

		again, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, stored, again)
	})

	t.Run("update cannot change donor", func(t *testing.T) {
		p := newPosting()
		require.NoError(t, s.Create(ctx, p))
		_, after, err := s.Update(ctx, p.ID, func(next *models.Posting) error {
			next.DonorID = primitive.NewObjectID()
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, p.DonorID, after.DonorID)
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		p := newPosting()
		p.Tags = nil
		require.NoError(t, s.Create(ctx, p))

		const writers = 6
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := s.Update(ctx, p.ID, func(next *models.Posting) error {
					next.Tags = append(next.Tags, "t")
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, got.Tags, writers)
		assert.Equal(t, int64(1+writers), got.Version)
	})

	t.Run("delete", func(t *testing.T) {
		p := newPosting()
		require.NoError(t, s.Create(ctx, p))
		gone, err := s.Delete(ctx, p.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, p.FoodName, gone.FoodName)
		_, err = s.Get(ctx, p.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = s.Delete(ctx, p.ID, nil)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("delete guard keeps record", func(t *testing.T) {
		p := newPosting()
		require.NoError(t, s.Create(ctx, p))
		_, err := s.Delete(ctx, p.ID, func(models.Posting) error { return models.ErrInvalidTransition })
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		_, err = s.Get(ctx, p.ID)
		assert.NoError(t, err)
	})
}

func runNotificationStoreContract(t *testing.T, s NotificationStore) {
	ctx := context.Background()
	user := primitive.NewObjectID()
	other := primitive.NewObjectID()

	require.NoError(t, s.Append(ctx,
		models.Notification{UserID: user, Message: "first", Type: models.NotificationInfo},
		models.Notification{UserID: other, Message: "elsewhere", Type: models.NotificationInfo},
	))
	require.NoError(t, s.Append(ctx, models.Notification{UserID: user, Message: "second", Type: models.NotificationAction}))

	list, err := s.ListForUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)
	assert.Equal(t, "first", list[1].Message)

	read, err := s.MarkRead(ctx, list[1].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	n, err := s.MarkAllRead(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err = s.ListForUser(ctx, user)
	require.NoError(t, err)
	for _, item := range list {
		assert.True(t, item.IsRead)
	}

	untouched, err := s.ListForUser(ctx, other)
	require.NoError(t, err)
	require.Len(t, untouched, 1)
	assert.False(t, untouched[0].IsRead)

	_, err = s.MarkRead(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func runUserStoreContract(t *testing.T, s UserStore) {
	ctx := context.Background()
	u := &models.User{Name: "Asha", Role: models.RoleVolunteer}
	require.NoError(t, s.Create(ctx, u))

	updated, err := s.Update(ctx, u.ID, func(next *models.User) error {
		next.ImpactScore++
		next.Role = models.RoleDonor
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ImpactScore)
	assert.Equal(t, models.RoleVolunteer, updated.Role, "role is immutable")

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, users)

	_, err = s.Update(ctx, primitive.NewObjectID(), func(*models.User) error { return nil })
	assert.ErrorIs(t, err, models.ErrNotFound)
}
