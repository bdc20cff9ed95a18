package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/food-rescue-go/models"
)

const maxMessageLength = 1000

// ---------------- NOTIFICATIONS ----------------

func (s *RescueService) ListNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	return s.stores.Notifications.ListForUser(ctx, userID)
}

// MarkRead flags one of the caller's notifications as read.
func (s *RescueService) MarkRead(ctx context.Context, userID, id primitive.ObjectID) (models.Notification, error) {
	mine, err := s.stores.Notifications.ListForUser(ctx, userID)
	if err != nil {
		return models.Notification{}, err
	}
	if !slices.ContainsFunc(mine, func(n models.Notification) bool { return n.ID == id }) {
		return models.Notification{}, fmt.Errorf("notification %s: %w", id.Hex(), models.ErrNotFound)
	}
	return s.stores.Notifications.MarkRead(ctx, id)
}

func (s *RescueService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.stores.Notifications.MarkAllRead(ctx, userID)
}

// ---------------- MESSAGES ----------------

// PostMessage appends to a posting's chat thread. Only the donor, the
// assigned volunteer and the requester take part.
func (s *RescueService) PostMessage(ctx context.Context, postingID primitive.ObjectID, sender models.Actor, text string) (models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxMessageLength {
		return models.ChatMessage{}, models.Validationf("message must be 1 to %d characters", maxMessageLength)
	}
	if _, err := s.partyTo(ctx, postingID, sender); err != nil {
		return models.ChatMessage{}, err
	}
	sender, _ = s.profile(ctx, sender)

	m := models.ChatMessage{
		PostingID:  postingID,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		SenderRole: sender.Role,
		Text:       text,
	}
	if err := s.stores.Messages.Append(ctx, &m); err != nil {
		return models.ChatMessage{}, err
	}
	return m, nil
}

func (s *RescueService) ListMessages(ctx context.Context, postingID primitive.ObjectID, reader models.Actor) ([]models.ChatMessage, error) {
	if _, err := s.partyTo(ctx, postingID, reader); err != nil {
		return nil, err
	}
	return s.stores.Messages.ListForPosting(ctx, postingID)
}

func (s *RescueService) partyTo(ctx context.Context, postingID primitive.ObjectID, a models.Actor) (models.Posting, error) {
	p, err := s.stores.Postings.Get(ctx, postingID)
	if err != nil {
		return models.Posting{}, err
	}
	if !p.IsDonor(a.ID) && !p.IsVolunteer(a.ID) && !p.IsRequester(a.ID) {
		return models.Posting{}, fmt.Errorf("%w: not a party to posting %s", models.ErrForbidden, postingID.Hex())
	}
	return p, nil
}
