// Package proximity notifies volunteers near a newly created posting.
package proximity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	metrics "github.com/phillip/food-rescue-go/metrics"
	models "github.com/phillip/food-rescue-go/models"
	notify "github.com/phillip/food-rescue-go/notify"
	store "github.com/phillip/food-rescue-go/store"
	utils "github.com/phillip/food-rescue-go/utils"
)

const DefaultRadiusKm = 10.0

type Config struct {
	RadiusKm float64
	// Inclusive matches a volunteer sitting exactly on the radius.
	Inclusive bool
}

func DefaultConfig() Config {
	return Config{RadiusKm: DefaultRadiusKm, Inclusive: true}
}

// Within reports whether distanceKm falls inside the configured radius.
func (c Config) Within(distanceKm float64) bool {
	if c.Inclusive {
		return distanceKm <= c.RadiusKm
	}
	return distanceKm < c.RadiusKm
}

// Match is one volunteer inside the radius.
type Match struct {
	Volunteer  models.User
	DistanceKm float64
}

type Matcher struct {
	cfg    Config
	users  store.UserStore
	fanout *notify.FanOut
	logger *zap.Logger
}

func NewMatcher(cfg Config, users store.UserStore, fanout *notify.FanOut, logger *zap.Logger) *Matcher {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = DefaultRadiusKm
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{cfg: cfg, users: users, fanout: fanout, logger: logger}
}

// Find scans every user and returns the volunteers within range of p.
// Postings or volunteers without coordinates never match.
func (m *Matcher) Find(ctx context.Context, p *models.Posting) ([]Match, error) {
	origin, ok := p.Location.Coordinates()
	if !ok {
		return nil, nil
	}
	users, err := m.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var out []Match
	for _, u := range users {
		if u.Role != models.RoleVolunteer {
			continue
		}
		pos, ok := u.Address.Coordinates()
		if !ok {
			continue
		}
		d := utils.Distance(origin, pos)
		if m.cfg.Within(d) {
			out = append(out, Match{Volunteer: u, DistanceKm: d})
		}
	}
	return out, nil
}

// NotifyNearby sends one INFO notification per matched volunteer. Failures are
// logged; posting creation never depends on them.
func (m *Matcher) NotifyNearby(ctx context.Context, p *models.Posting) int {
	matches, err := m.Find(ctx, p)
	if err != nil {
		m.logger.Warn("proximity scan failed",
			zap.String("posting_id", p.ID.Hex()),
			zap.Error(err))
		return 0
	}
	if len(matches) == 0 {
		return 0
	}

	batch := make([]models.Notification, 0, len(matches))
	for _, match := range matches {
		batch = append(batch, notify.Proximity(match.Volunteer.ID, p, match.DistanceKm))
	}
	m.fanout.Send(ctx, batch...)
	metrics.ProximityMatches.Add(float64(len(matches)))

	m.logger.Info("nearby volunteers notified",
		zap.String("posting_id", p.ID.Hex()),
		zap.Int("count", len(matches)))
	return len(matches)
}
