package classifier

import (
	"context"
	"fmt"

	models "github.com/phillip/food-rescue-go/models"
)

// Unavailable stands in when no API key is configured. Every call fails with
// ErrExternalService so callers take their fallback path.
type Unavailable struct{}

var errNotConfigured = fmt.Errorf("%w: classifier not configured", models.ErrExternalService)

func (Unavailable) ClassifySafety(context.Context, string) (models.SafetyVerdict, error) {
	return models.SafetyVerdict{}, errNotConfigured
}

func (Unavailable) ClassifyProof(context.Context, ProofKind, string) (ProofVerdict, error) {
	return ProofVerdict{}, errNotConfigured
}

func (Unavailable) ReverseGeocode(context.Context, float64, float64) (*models.Address, error) {
	return nil, errNotConfigured
}
