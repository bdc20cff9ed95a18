package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/food-rescue-go/models"
)

// NewMemory returns process-local stores. Updates are serialized by a mutex,
// so the version check never fails here; versions still advance so callers
// see the same values they would from Mongo.
func NewMemory() *Stores {
	return &Stores{
		Postings:      &memoryPostings{byID: map[primitive.ObjectID]models.Posting{}},
		Users:         &memoryUsers{byID: map[primitive.ObjectID]models.User{}},
		Notifications: &memoryNotifications{},
		Messages:      &memoryMessages{},
	}
}

func now() time.Time { return time.Now().UTC() }

// ---------------- POSTINGS ----------------

type memoryPostings struct {
	mu    sync.RWMutex
	byID  map[primitive.ObjectID]models.Posting
	order []primitive.ObjectID
}

func (s *memoryPostings) Create(_ context.Context, p *models.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, ok := s.byID[p.ID]; ok {
		return fmt.Errorf("posting %s: %w", p.ID.Hex(), models.ErrDuplicateID)
	}
	stamp(&p.CreatedAt, &p.UpdatedAt, &p.Version)
	s.byID[p.ID] = p.Clone()
	s.order = append(s.order, p.ID)
	return nil
}

func (s *memoryPostings) Get(_ context.Context, id primitive.ObjectID) (models.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return models.Posting{}, fmt.Errorf("posting %s: %w", id.Hex(), models.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *memoryPostings) List(_ context.Context) ([]models.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Posting, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.byID[s.order[i]].Clone())
	}
	return out, nil
}

func (s *memoryPostings) Update(_ context.Context, id primitive.ObjectID, mutate func(*models.Posting) error) (models.Posting, models.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.byID[id]
	if !ok {
		return models.Posting{}, models.Posting{}, fmt.Errorf("posting %s: %w", id.Hex(), models.ErrNotFound)
	}
	next := before.Clone()
	if err := mutate(&next); err != nil {
		return before.Clone(), before.Clone(), err
	}
	next.ID, next.DonorID, next.CreatedAt = before.ID, before.DonorID, before.CreatedAt
	next.Version = before.Version + 1
	next.UpdatedAt = now()
	s.byID[id] = next.Clone()
	return before.Clone(), next, nil
}

func (s *memoryPostings) Delete(_ context.Context, id primitive.ObjectID, guard func(models.Posting) error) (models.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return models.Posting{}, fmt.Errorf("posting %s: %w", id.Hex(), models.ErrNotFound)
	}
	if guard != nil {
		if err := guard(current.Clone()); err != nil {
			return current.Clone(), err
		}
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return current, nil
}

// ---------------- USERS ----------------

type memoryUsers struct {
	mu    sync.RWMutex
	byID  map[primitive.ObjectID]models.User
	order []primitive.ObjectID
}

func (s *memoryUsers) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, ok := s.byID[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID.Hex(), models.ErrDuplicateID)
	}
	stamp(&u.CreatedAt, &u.UpdatedAt, &u.Version)
	s.byID[u.ID] = u.Clone()
	s.order = append(s.order, u.ID)
	return nil
}

func (s *memoryUsers) Get(_ context.Context, id primitive.ObjectID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id.Hex(), models.ErrNotFound)
	}
	return u.Clone(), nil
}

func (s *memoryUsers) List(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out, nil
}

func (s *memoryUsers) Update(_ context.Context, id primitive.ObjectID, mutate func(*models.User) error) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id.Hex(), models.ErrNotFound)
	}
	next := current.Clone()
	if err := mutate(&next); err != nil {
		return current.Clone(), err
	}
	next.ID, next.Role, next.CreatedAt = current.ID, current.Role, current.CreatedAt
	next.Version = current.Version + 1
	next.UpdatedAt = now()
	s.byID[id] = next.Clone()
	return next, nil
}

// ---------------- NOTIFICATIONS ----------------

type memoryNotifications struct {
	mu  sync.RWMutex
	all []models.Notification
}

func (s *memoryNotifications) Append(_ context.Context, notifications ...models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range notifications {
		if n.ID.IsZero() {
			n.ID = primitive.NewObjectID()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now()
		}
		s.all = append(s.all, n)
	}
	return nil
}

func (s *memoryNotifications) ListForUser(_ context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Notification{}
	for i := len(s.all) - 1; i >= 0; i-- {
		if s.all[i].UserID == userID {
			out = append(out, s.all[i])
		}
	}
	// Walking backwards puts later appends first among equal timestamps.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryNotifications) MarkRead(_ context.Context, id primitive.ObjectID) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.all {
		if s.all[i].ID == id {
			s.all[i].IsRead = true
			return s.all[i], nil
		}
	}
	return models.Notification{}, fmt.Errorf("notification %s: %w", id.Hex(), models.ErrNotFound)
}

func (s *memoryNotifications) MarkAllRead(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for i := range s.all {
		if s.all[i].UserID == userID && !s.all[i].IsRead {
			s.all[i].IsRead = true
			n++
		}
	}
	return n, nil
}

// ---------------- MESSAGES ----------------

type memoryMessages struct {
	mu  sync.RWMutex
	all []models.ChatMessage
}

func (s *memoryMessages) Append(_ context.Context, m *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	s.all = append(s.all, *m)
	return nil
}

func (s *memoryMessages) ListForPosting(_ context.Context, postingID primitive.ObjectID) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.ChatMessage{}
	for _, m := range s.all {
		if m.PostingID == postingID {
			out = append(out, m)
		}
	}
	return out, nil
}

func stamp(createdAt, updatedAt *time.Time, version *int64) {
	t := now()
	if createdAt.IsZero() {
		*createdAt = t
	}
	*updatedAt = t
	*version = 1
}
