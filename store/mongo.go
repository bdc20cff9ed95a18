package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/phillip/food-rescue-go/models"
)

const (
	postingsCollection      = "postings"
	usersCollection         = "users"
	notificationsCollection = "notifications"
	messagesCollection      = "messages"

	opTimeout   = 5 * time.Second
	scanTimeout = 10 * time.Second
)

// NewMongo binds the stores to collections of db.
func NewMongo(db *mongo.Database) *Stores {
	return &Stores{
		Postings:      &mongoPostings{col: db.Collection(postingsCollection)},
		Users:         &mongoUsers{col: db.Collection(usersCollection)},
		Notifications: &mongoNotifications{col: db.Collection(notificationsCollection)},
		Messages:      &mongoMessages{col: db.Collection(messagesCollection)},
	}
}

// EnsureIndexes creates the recipient and thread lookups. Postings and users
// are read by full scan and need none beyond _id.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	if _, err := db.Collection(notificationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("notifications index: %w", err)
	}
	if _, err := db.Collection(messagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "posting_id", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("messages index: %w", err)
	}
	return nil
}

func notFound(kind string, id primitive.ObjectID, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", kind, id.Hex(), models.ErrNotFound)
	}
	return fmt.Errorf("find %s %s: %w", kind, id.Hex(), err)
}

func inserted(kind string, id primitive.ObjectID, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s: %w", kind, id.Hex(), models.ErrDuplicateID)
	}
	return fmt.Errorf("insert %s: %w", kind, err)
}

// ---------------- POSTINGS ----------------

type mongoPostings struct {
	col *mongo.Collection
}

func (s *mongoPostings) Create(ctx context.Context, p *models.Posting) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	stamp(&p.CreatedAt, &p.UpdatedAt, &p.Version)
	_, err := s.col.InsertOne(ctx, p)
	return inserted("posting", p.ID, err)
}

func (s *mongoPostings) Get(ctx context.Context, id primitive.ObjectID) (models.Posting, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var p models.Posting
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Posting{}, notFound("posting", id, err)
	}
	return p, nil
}

func (s *mongoPostings) List(ctx context.Context) ([]models.Posting, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	cursor, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("could not fetch postings: %w", err)
	}
	postings := []models.Posting{}
	if err := cursor.All(ctx, &postings); err != nil {
		return nil, fmt.Errorf("could not decode postings: %w", err)
	}
	return postings, nil
}

func (s *mongoPostings) Update(ctx context.Context, id primitive.ObjectID, mutate func(*models.Posting) error) (models.Posting, models.Posting, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		before, err := s.Get(ctx, id)
		if err != nil {
			return models.Posting{}, models.Posting{}, err
		}
		next := before.Clone()
		if err := mutate(&next); err != nil {
			return before, before, err
		}
		next.ID, next.DonorID, next.CreatedAt = before.ID, before.DonorID, before.CreatedAt
		next.Version = before.Version + 1
		next.UpdatedAt = now()

		ok, err := s.replace(ctx, before.Version, &next)
		if err != nil {
			return before, before, err
		}
		if ok {
			return before, next, nil
		}
	}
	return models.Posting{}, models.Posting{}, fmt.Errorf("posting %s: %w", id.Hex(), models.ErrVersionConflict)
}

// replace writes next only if the stored version still equals expected.
func (s *mongoPostings) replace(ctx context.Context, expected int64, next *models.Posting) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": next.ID, "version": expected}, next)
	if err != nil {
		return false, fmt.Errorf("failed to update posting: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *mongoPostings) Delete(ctx context.Context, id primitive.ObjectID, guard func(models.Posting) error) (models.Posting, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return models.Posting{}, err
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return current, err
			}
		}

		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		res, err := s.col.DeleteOne(opCtx, bson.M{"_id": id, "version": current.Version})
		cancel()
		if err != nil {
			return current, fmt.Errorf("failed to delete posting: %w", err)
		}
		if res.DeletedCount == 1 {
			return current, nil
		}
	}
	return models.Posting{}, fmt.Errorf("posting %s: %w", id.Hex(), models.ErrVersionConflict)
}

// ---------------- USERS ----------------

type mongoUsers struct {
	col *mongo.Collection
}

func (s *mongoUsers) Create(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	stamp(&u.CreatedAt, &u.UpdatedAt, &u.Version)
	_, err := s.col.InsertOne(ctx, u)
	return inserted("user", u.ID, err)
}

func (s *mongoUsers) Get(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var u models.User
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.User{}, notFound("user", id, err)
	}
	return u, nil
}

func (s *mongoUsers) List(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	cursor, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("could not fetch users: %w", err)
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("could not decode users: %w", err)
	}
	return users, nil
}

func (s *mongoUsers) Update(ctx context.Context, id primitive.ObjectID, mutate func(*models.User) error) (models.User, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return models.User{}, err
		}
		next := current.Clone()
		if err := mutate(&next); err != nil {
			return current, err
		}
		next.ID, next.Role, next.CreatedAt = current.ID, current.Role, current.CreatedAt
		next.Version = current.Version + 1
		next.UpdatedAt = now()

		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		res, err := s.col.ReplaceOne(opCtx, bson.M{"_id": id, "version": current.Version}, next)
		cancel()
		if err != nil {
			return current, fmt.Errorf("failed to update user: %w", err)
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
	}
	return models.User{}, fmt.Errorf("user %s: %w", id.Hex(), models.ErrVersionConflict)
}

// ---------------- NOTIFICATIONS ----------------

type mongoNotifications struct {
	col *mongo.Collection
}

func (s *mongoNotifications) Append(ctx context.Context, notifications ...models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	docs := make([]interface{}, 0, len(notifications))
	for _, n := range notifications {
		if n.ID.IsZero() {
			n.ID = primitive.NewObjectID()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now()
		}
		docs = append(docs, n)
	}
	if _, err := s.col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

func (s *mongoNotifications) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	cursor, err := s.col.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("could not fetch notifications: %w", err)
	}
	out := []models.Notification{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("could not decode notifications: %w", err)
	}
	return out, nil
}

func (s *mongoNotifications) MarkRead(ctx context.Context, id primitive.ObjectID) (models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var n models.Notification
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err != nil {
		return models.Notification{}, notFound("notification", id, err)
	}
	return n, nil
}

func (s *mongoNotifications) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.col.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.ModifiedCount, nil
}

// ---------------- MESSAGES ----------------

type mongoMessages struct {
	col *mongo.Collection
}

func (s *mongoMessages) Append(ctx context.Context, m *models.ChatMessage) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	_, err := s.col.InsertOne(ctx, m)
	return inserted("message", m.ID, err)
}

func (s *mongoMessages) ListForPosting(ctx context.Context, postingID primitive.ObjectID) ([]models.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	cursor, err := s.col.Find(ctx, bson.M{"posting_id": postingID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("could not fetch messages: %w", err)
	}
	out := []models.ChatMessage{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("could not decode messages: %w", err)
	}
	return out, nil
}
