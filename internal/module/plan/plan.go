package plan

import (
	"errors"
	"fmt"

	"github.com/thevvip/server/internal/shared/config"
)

var (
	ErrUnknownPlan        = errors.New("unknown plan")
	ErrPriceNotConfigured = errors.New("plan price not configured")
)

// ID identifies a membership tier.
type ID string

const (
	Free     ID = "Free"
	Gold     ID = "Gold"
	Platinum ID = "Platinum"
	VVIP     ID = "VVIP"
)

// rank orders tiers for upgrade/downgrade comparison. Free ranks lowest.
var rank = map[ID]int{
	Free:     0,
	Gold:     1,
	Platinum: 2,
	VVIP:     3,
}

// Plan describes one membership tier.
type Plan struct {
	ID      ID
	Rank    int
	PriceID string // empty for Free
}

// Paid reports whether the plan bills through the payment processor.
func (p Plan) Paid() bool {
	return p.ID != Free
}

// Catalog is the static set of membership tiers.
type Catalog struct {
	plans map[ID]Plan
}

// NewCatalog builds the catalog from configured processor price ids.
// Paid tiers may be left without a price id; resolving such a tier for
// checkout fails with ErrPriceNotConfigured at that point.
func NewCatalog(cfg *config.StripeConfig) *Catalog {
	plans := map[ID]Plan{
		Free:     {ID: Free, Rank: rank[Free]},
		Gold:     {ID: Gold, Rank: rank[Gold], PriceID: cfg.PriceGold},
		Platinum: {ID: Platinum, Rank: rank[Platinum], PriceID: cfg.PricePlatinum},
		VVIP:     {ID: VVIP, Rank: rank[VVIP], PriceID: cfg.PriceVVIP},
	}
	return &Catalog{plans: plans}
}

// Get returns the plan for the given id.
func (c *Catalog) Get(id ID) (Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, id)
	}
	return p, nil
}

// PaidPlan returns a paid plan with a usable price id.
func (c *Catalog) PaidPlan(id ID) (Plan, error) {
	p, err := c.Get(id)
	if err != nil {
		return Plan{}, err
	}
	if !p.Paid() {
		return Plan{}, fmt.Errorf("%w: %q is not a paid plan", ErrUnknownPlan, id)
	}
	if p.PriceID == "" {
		return Plan{}, fmt.Errorf("%w: %q", ErrPriceNotConfigured, id)
	}
	return p, nil
}

// ByPriceID resolves a processor price id back to its plan.
func (c *Catalog) ByPriceID(priceID string) (Plan, bool) {
	if priceID == "" {
		return Plan{}, false
	}
	for _, p := range c.plans {
		if p.PriceID == priceID {
			return p, true
		}
	}
	return Plan{}, false
}

// Compare returns a negative value when a ranks below b, zero when equal,
// and a positive value when a ranks above b.
func Compare(a, b ID) int {
	return rank[a] - rank[b]
}

// Valid reports whether id names a known tier.
func Valid(id ID) bool {
	_, ok := rank[id]
	return ok
}
