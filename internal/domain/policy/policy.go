// Package policy implements the action decision table for at-risk stock.
//
// The table is priority ordered on remaining shelf life; the first matching
// rule wins. Band boundaries are inclusive on the urgent side, so a product
// sitting exactly on a threshold gets the more urgent treatment. A missing
// expiry probability simply fails the probability-gated rule and falls
// through to the monitor tier.
package policy

import (
	"database/sql"
	"math"
)

// Recommended action messages. These are the stable, user-facing values
// persisted with every assessment.
const (
	ActionDiscard         = "already expired - discard or immediate action"
	ActionPriceCut        = "immediate price reduction 50%+"
	ActionPlanPromotion   = "plan promotion within 7 days"
	ActionWeeklyPromotion = "include in weekly promotion"
	ActionTransfer        = "transfer to higher-turnover store"
	ActionMonitor         = "monitor and re-evaluate in 14 days"
)

// Shelf-life band thresholds, in days.
const (
	priceCutBandDays  = 30
	promotionBandDays = 40
	watchBandDays     = 100
)

// Probability gate for the watch band.
const watchProbability = 0.5

// Days-to-action values per band.
const (
	planHorizonDays    = 7
	watchHorizonDays   = 14
	monitorCapDays     = 60
	monitorLifeFactor  = 0.7
	defaultTransferKey = "JARDIM"
)

// Tier orders decisions by urgency. Higher is more urgent.
type Tier int

const (
	TierMonitor Tier = iota
	TierWatch
	TierPlanned
	TierImmediate
	TierExpired
)

func (t Tier) String() string {
	switch t {
	case TierExpired:
		return "expired"
	case TierImmediate:
		return "immediate"
	case TierPlanned:
		return "planned"
	case TierWatch:
		return "watch"
	default:
		return "monitor"
	}
}

// Decision is the outcome for a single row.
type Decision struct {
	Action       string
	DaysToAction int
	Tier         Tier
}

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithTransferSection sets the section whose watch-band rows are routed to
// a higher-turnover store instead of the weekly promotion.
func WithTransferSection(section string) Option {
	return func(t *Table) {
		if section != "" {
			t.transferSection = section
		}
	}
}

// Table is the deterministic decision table. It is stateless after
// construction and safe for concurrent use.
type Table struct {
	transferSection string
}

// New constructs a decision table with configuration options.
func New(opts ...Option) *Table {
	t := &Table{
		transferSection: defaultTransferKey,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Decide maps remaining shelf life, an optional expiry probability, and the
// product section to a recommended action. Negative remaining shelf life is
// valid input and always lands in the expired tier.
func (t *Table) Decide(remainingShelfLife int, expiryProbability sql.NullFloat64, section string) Decision {
	switch {
	case remainingShelfLife <= 0:
		return Decision{Action: ActionDiscard, DaysToAction: 0, Tier: TierExpired}

	case remainingShelfLife <= priceCutBandDays:
		return Decision{Action: ActionPriceCut, DaysToAction: 0, Tier: TierImmediate}

	case remainingShelfLife <= promotionBandDays:
		return Decision{Action: ActionPlanPromotion, DaysToAction: planHorizonDays, Tier: TierPlanned}

	case remainingShelfLife < watchBandDays &&
		expiryProbability.Valid && expiryProbability.Float64 > watchProbability:
		action := ActionWeeklyPromotion
		if section == t.transferSection {
			action = ActionTransfer
		}
		return Decision{Action: action, DaysToAction: watchHorizonDays, Tier: TierWatch}

	default:
		days := int(math.Floor(float64(remainingShelfLife) * monitorLifeFactor))
		if days > monitorCapDays {
			days = monitorCapDays
		}
		return Decision{Action: ActionMonitor, DaysToAction: days, Tier: TierMonitor}
	}
}
