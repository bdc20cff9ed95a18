// Package store holds the durable keyed collections behind the rescue service.
//
// Every record carries a version. Update loads the current image, applies the
// caller's mutate function to a deep copy and writes it back only if the
// version is unchanged, retrying against the fresh image on conflict. A
// mutate error aborts without writing, so rejected intents never touch the
// stored record.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/food-rescue-go/models"
)

// maxCASAttempts bounds how often a conflicting Update re-reads and re-applies.
const maxCASAttempts = 8

type PostingStore interface {
	Create(ctx context.Context, p *models.Posting) error
	Get(ctx context.Context, id primitive.ObjectID) (models.Posting, error)
	List(ctx context.Context) ([]models.Posting, error)
	// Update returns the pre- and post-image of the record.
	Update(ctx context.Context, id primitive.ObjectID, mutate func(*models.Posting) error) (models.Posting, models.Posting, error)
	// Delete removes the record if guard accepts its current image, and
	// returns that image. A nil guard always accepts.
	Delete(ctx context.Context, id primitive.ObjectID, guard func(models.Posting) error) (models.Posting, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id primitive.ObjectID) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, mutate func(*models.User) error) (models.User, error)
}

type NotificationStore interface {
	Append(ctx context.Context, notifications ...models.Notification) error
	// ListForUser returns the recipient's notifications, newest first.
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type MessageStore interface {
	Append(ctx context.Context, m *models.ChatMessage) error
	// ListForPosting returns the thread oldest first.
	ListForPosting(ctx context.Context, postingID primitive.ObjectID) ([]models.ChatMessage, error)
}

// Stores bundles the collections one service instance works against.
type Stores struct {
	Postings      PostingStore
	Users         UserStore
	Notifications NotificationStore
	Messages      MessageStore
}
