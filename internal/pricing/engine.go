package pricing

import (
	"fmt"
	"time"

	"github.com/adityahutama/pasarsegar-backend/pkg/config"
	"github.com/shopspring/decimal"
)

const bpsScale = 10000

// Quote is the derived price for one cart line. It is computed on demand and
// never stored.
type Quote struct {
	UnitPriceFinal int64 `json:"unit_price_final"`
	LineTotal      int64 `json:"line_total"`
	Savings        int64 `json:"savings"`
	RateBps        int   `json:"rate_bps"`
}

// Engine turns (base unit price, quantity, days remaining) into an effective
// unit price. It holds only immutable configuration; identical inputs always
// produce identical quotes.
type Engine struct {
	tiers          []config.ShelfLifeTier
	bulkThreshold  int
	bulkBonusBps   int
	rateCeilingBps int
}

// NewEngine builds an engine from the pricing configuration.
func NewEngine(cfg config.PricingConfig) (*Engine, error) {
	tiers, err := cfg.ShelfLifeTiers()
	if err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("at least one shelf-life tier is required")
	}
	if cfg.BulkThreshold < 1 {
		return nil, fmt.Errorf("bulk threshold must be >= 1")
	}
	if cfg.BulkBonusBps < 0 {
		return nil, fmt.Errorf("bulk bonus must be >= 0")
	}
	if cfg.RateCeilingBps < 0 || cfg.RateCeilingBps >= bpsScale {
		return nil, fmt.Errorf("rate ceiling must be in [0,%d)", bpsScale)
	}
	return &Engine{
		tiers:          tiers,
		bulkThreshold:  cfg.BulkThreshold,
		bulkBonusBps:   cfg.BulkBonusBps,
		rateCeilingBps: cfg.RateCeilingBps,
	}, nil
}

// Price computes the effective unit price for the given inputs. Out-of-domain
// daysRemaining values are clamped to the nearest tier: anything at or below
// the most aggressive tier (including expired stock) uses its rate; anything
// beyond the mildest tier uses the mildest rate.
func (e *Engine) Price(unitPriceBase int64, quantity, daysRemaining int) Quote {
	if unitPriceBase < 0 {
		unitPriceBase = 0
	}

	rate := e.shelfLifeRate(daysRemaining)
	if quantity >= e.bulkThreshold {
		rate += e.bulkBonusBps
	}
	if rate > e.rateCeilingBps {
		rate = e.rateCeilingBps
	}

	unitFinal := applyRate(unitPriceBase, rate)
	return Quote{
		UnitPriceFinal: unitFinal,
		LineTotal:      unitFinal * int64(quantity),
		Savings:        (unitPriceBase - unitFinal) * int64(quantity),
		RateBps:        rate,
	}
}

func (e *Engine) shelfLifeRate(daysRemaining int) int {
	// Tiers are sorted by days ascending; pick the first tier the remaining
	// shelf life falls under, as days tick down toward expiration.
	for _, tier := range e.tiers {
		if daysRemaining <= tier.Days {
			return tier.RateBps
		}
	}
	return e.tiers[len(e.tiers)-1].RateBps
}

func applyRate(base int64, rateBps int) int64 {
	if rateBps <= 0 {
		return base
	}
	factor := decimal.NewFromInt(int64(bpsScale - rateBps))
	return decimal.NewFromInt(base).
		Mul(factor).
		Div(decimal.NewFromInt(bpsScale)).
		Round(0).
		IntPart()
}

// DaysRemaining reports the number of whole calendar days between now and the
// expiration date. Expired stock yields negative values, which Price clamps.
func DaysRemaining(expiration, now time.Time) int {
	expDay := time.Date(expiration.Year(), expiration.Month(), expiration.Day(), 0, 0, 0, 0, time.UTC)
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(expDay.Sub(nowDay) / (24 * time.Hour))
}
