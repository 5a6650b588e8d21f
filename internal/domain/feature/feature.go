// Package feature derives the numeric risk features from validated
// inventory snapshots. The transform is pure: it never mutates its input,
// performs no I/O, and computes everything from the evaluation instant
// passed by the caller.
package feature

import (
	"database/sql"
	"time"

	"github.com/DataCraft-Labs/smartshelf/internal/domain/snapshot"
)

// salesWindowDays is the trailing window behind units_sold_90d.
const salesWindowDays = 90

// hoursPerDay converts a duration to whole stocked days.
const hoursPerDay = 24

// Transform augments each snapshot with the derived features. DaysInStock
// and RemainingShelfLife are recomputed from now on every call; they must
// never be cached across evaluation cycles.
func Transform(now time.Time, snaps []snapshot.Snapshot) []snapshot.Features {
	rows := make([]snapshot.Features, len(snaps))
	for i, s := range snaps {
		rows[i] = transformOne(now, s)
	}
	return rows
}

func transformOne(now time.Time, s snapshot.Snapshot) snapshot.Features {
	f := snapshot.Features{Snapshot: s}

	f.DaysInStock = int(now.Sub(s.ReceivedAt).Hours() / hoursPerDay)
	f.RemainingShelfLife = s.ShelfLifeDays - f.DaysInStock
	f.SalesVelocity = float64(s.UnitsSold90d) / salesWindowDays

	// A product with no recent sales has unknown coverage, not infinite
	// coverage. Same for a row with unknown stock.
	if s.CurrentStock.Valid && f.SalesVelocity > 0 {
		f.StockCoverageDays = sql.NullFloat64{
			Float64: float64(s.CurrentStock.Int64) / f.SalesVelocity,
			Valid:   true,
		}
	}

	if f.StockCoverageDays.Valid && f.RemainingShelfLife != 0 {
		f.RiskIndex = sql.NullFloat64{
			Float64: f.StockCoverageDays.Float64 / float64(f.RemainingShelfLife),
			Valid:   true,
		}
	}

	// An unevaluable risk index never implies expiry on its own.
	f.WillExpire = (f.RiskIndex.Valid && f.RiskIndex.Float64 > 1.0) || f.RemainingShelfLife <= 0

	return f
}
