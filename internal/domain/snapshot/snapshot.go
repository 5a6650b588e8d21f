// Package snapshot defines the record shapes flowing through the risk
// pipeline: raw inventory rows as delivered by ingestion, validated
// snapshots, derived feature rows, and the final risk assessments.
package snapshot

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Accepted layouts for receipt timestamps, tried in order.
var receiptLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// Record is an untrusted inventory row, one per (product, store, batch),
// as produced by the external ingestion process. ReceivedAt is kept as the
// raw string until validation.
type Record struct {
	ProductID      string          `db:"product_id"`
	ProductName    string          `db:"product_name"`
	Section        string          `db:"section"`
	SubsectionCode string          `db:"subsection_code"`
	StoreCode      string          `db:"store_code"`
	ReceivedAt     string          `db:"received_at"`
	ShelfLifeDays  int             `db:"shelf_life_days"`
	UnitsSold90d   int             `db:"units_sold_90d"`
	CurrentStock   sql.NullInt64   `db:"current_stock"`
	Price          sql.NullFloat64 `db:"price"`
	Seasonal       bool            `db:"is_seasonal"`
}

// Snapshot is a validated inventory row. Identifier fields are immutable
// for the lifetime of the snapshot.
type Snapshot struct {
	ProductID      string          `db:"product_id"`
	ProductName    string          `db:"product_name"`
	Section        string          `db:"section"`
	SubsectionCode string          `db:"subsection_code"`
	StoreCode      string          `db:"store_code"`
	ReceivedAt     time.Time       `db:"received_at"`
	ShelfLifeDays  int             `db:"shelf_life_days"`
	UnitsSold90d   int             `db:"units_sold_90d"`
	CurrentStock   sql.NullInt64   `db:"current_stock"`
	Price          sql.NullFloat64 `db:"price"`
	Seasonal       bool            `db:"is_seasonal"`
}

// Features is a snapshot augmented with the derived risk features.
// StockCoverageDays is invalid when the sales velocity is zero or the
// current stock is unknown; RiskIndex is invalid when the remaining shelf
// life is zero or the coverage is unknown. Invalid here means "coverage
// unknown", never zero and never infinity.
type Features struct {
	Snapshot
	DaysInStock        int             `db:"days_in_stock"`
	RemainingShelfLife int             `db:"remaining_shelf_life"`
	SalesVelocity      float64         `db:"sales_velocity"`
	StockCoverageDays  sql.NullFloat64 `db:"stock_coverage_days"`
	RiskIndex          sql.NullFloat64 `db:"risk_index"`
	WillExpire         bool            `db:"will_expire"`
}

// Assessment is the pipeline output: one feature row plus the classifier
// probability and the recommended action. ExpiryProbability is invalid
// when no model was available for the evaluation.
type Assessment struct {
	Features
	ExpiryProbability sql.NullFloat64 `db:"expiry_probability"`
	DaysToAction      int             `db:"days_to_action"`
	RecommendedAction string          `db:"recommended_action"`
	Urgency           string          `db:"urgency"`
}

// RowError reports a rejected row together with its batch position, so
// callers can surface partial failures instead of a silent abort.
type RowError struct {
	Index     int
	ProductID string
	Err       error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (product %q): %v", e.Index, e.ProductID, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Validate checks a raw record and converts it into a Snapshot.
func (r Record) Validate() (Snapshot, error) {
	if strings.TrimSpace(r.ProductID) == "" {
		return Snapshot{}, fmt.Errorf("%w: product_id", ErrMissingField)
	}
	if strings.TrimSpace(r.StoreCode) == "" {
		return Snapshot{}, fmt.Errorf("%w: store_code", ErrMissingField)
	}
	received, err := ParseReceipt(r.ReceivedAt)
	if err != nil {
		return Snapshot{}, err
	}
	if r.ShelfLifeDays <= 0 {
		return Snapshot{}, fmt.Errorf("%w: shelf_life_days %d", ErrInvalidValue, r.ShelfLifeDays)
	}
	if r.UnitsSold90d < 0 {
		return Snapshot{}, fmt.Errorf("%w: units_sold_90d %d", ErrInvalidValue, r.UnitsSold90d)
	}
	if r.CurrentStock.Valid && r.CurrentStock.Int64 < 0 {
		return Snapshot{}, fmt.Errorf("%w: current_stock %d", ErrInvalidValue, r.CurrentStock.Int64)
	}
	if r.Price.Valid && r.Price.Float64 < 0 {
		return Snapshot{}, fmt.Errorf("%w: price %g", ErrInvalidValue, r.Price.Float64)
	}
	return Snapshot{
		ProductID:      r.ProductID,
		ProductName:    r.ProductName,
		Section:        r.Section,
		SubsectionCode: r.SubsectionCode,
		StoreCode:      r.StoreCode,
		ReceivedAt:     received,
		ShelfLifeDays:  r.ShelfLifeDays,
		UnitsSold90d:   r.UnitsSold90d,
		CurrentStock:   r.CurrentStock,
		Price:          r.Price,
		Seasonal:       r.Seasonal,
	}, nil
}

// ParseReceipt parses a receipt timestamp in any of the accepted layouts.
func ParseReceipt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: received_at is empty", ErrBadTimestamp)
	}
	for _, layout := range receiptLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

// Key identifies a (product, store, batch) row for duplicate suppression.
func (s Snapshot) Key() string {
	return s.ProductID + "|" + s.StoreCode + "|" + s.ReceivedAt.Format("2006-01-02 15:04")
}
