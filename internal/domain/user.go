package domain

import (
	"strings"
	"time"
)

// Tier is the subscription level that drives rate-limit capacity.
type Tier string

const (
	TierPlatinum Tier = "platinum"
	TierGold     Tier = "gold"
	TierSilver   Tier = "silver"
	TierStandard Tier = "standard"
)

// ParseTier maps stored tier names onto the fixed tier set. Legacy plan
// names (free, basic, pro) and unknown values collapse to standard.
func ParseTier(raw string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierPlatinum:
		return TierPlatinum
	case TierGold:
		return TierGold
	case TierSilver:
		return TierSilver
	default:
		return TierStandard
	}
}

// Premium reports whether the tier gets elevated handling.
func (t Tier) Premium() bool {
	return t == TierPlatinum || t == TierGold
}

// User is a subscriber who submits support queries.
type User struct {
	ID          string
	Name        string
	Email       string
	Tier        Tier
	Active      bool
	Balance     float64
	RenewalDate *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
