package feature_test

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/DataCraft-Labs/smartshelf/internal/domain/feature"
	"github.com/DataCraft-Labs/smartshelf/internal/domain/snapshot"
	. "github.com/smartystreets/goconvey/convey"
)

var evalTime = time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)

func snap(receivedDaysAgo, shelfLife, unitsSold int, stock sql.NullInt64) snapshot.Snapshot {
	return snapshot.Snapshot{
		ProductID:      "80123456",
		Section:        "JARDIM",
		SubsectionCode: "204",
		StoreCode:      "03",
		ReceivedAt:     evalTime.AddDate(0, 0, -receivedDaysAgo),
		ShelfLifeDays:  shelfLife,
		UnitsSold90d:   unitsSold,
		CurrentStock:   stock,
	}
}

func TestTransform(t *testing.T) {
	Convey("Given a product received 40 days ago with a 100-day shelf life", t, func() {
		s := snap(40, 100, 9, sql.NullInt64{Int64: 20, Valid: true})

		Convey("When the transform runs", func() {
			rows := feature.Transform(evalTime, []snapshot.Snapshot{s})
			So(rows, ShouldHaveLength, 1)
			f := rows[0]

			Convey("Then the derived features follow the stock math", func() {
				So(f.DaysInStock, ShouldEqual, 40)
				So(f.RemainingShelfLife, ShouldEqual, 60)
				So(f.SalesVelocity, ShouldAlmostEqual, 0.1)
				So(f.StockCoverageDays.Valid, ShouldBeTrue)
				So(f.StockCoverageDays.Float64, ShouldAlmostEqual, 200)
				So(f.RiskIndex.Valid, ShouldBeTrue)
				So(f.RiskIndex.Float64, ShouldAlmostEqual, 200.0/60.0, 1e-9)
			})

			Convey("And the stock outlasting the shelf life labels it as expiring", func() {
				So(f.WillExpire, ShouldBeTrue)
			})
		})
	})

	Convey("Given the same product with zero recent sales", t, func() {
		s := snap(40, 100, 0, sql.NullInt64{Int64: 20, Valid: true})
		f := feature.Transform(evalTime, []snapshot.Snapshot{s})[0]

		Convey("Then the coverage is unknown, not zero or infinite", func() {
			So(f.SalesVelocity, ShouldEqual, 0)
			So(f.StockCoverageDays.Valid, ShouldBeFalse)
			So(f.RiskIndex.Valid, ShouldBeFalse)
		})

		Convey("And an unknown risk index never implies expiry on its own", func() {
			So(f.WillExpire, ShouldBeFalse)
		})
	})

	Convey("Given a product with unknown stock", t, func() {
		s := snap(10, 100, 9, sql.NullInt64{})
		f := feature.Transform(evalTime, []snapshot.Snapshot{s})[0]

		Convey("Then coverage and risk index are unknown", func() {
			So(f.StockCoverageDays.Valid, ShouldBeFalse)
			So(f.RiskIndex.Valid, ShouldBeFalse)
			So(f.WillExpire, ShouldBeFalse)
		})
	})

	Convey("Given a product exactly at the end of its shelf life", t, func() {
		s := snap(100, 100, 9, sql.NullInt64{Int64: 20, Valid: true})
		f := feature.Transform(evalTime, []snapshot.Snapshot{s})[0]

		Convey("Then the risk index is unevaluable but the shelf-life clause still labels it", func() {
			So(f.RemainingShelfLife, ShouldEqual, 0)
			So(f.RiskIndex.Valid, ShouldBeFalse)
			So(f.WillExpire, ShouldBeTrue)
		})
	})

	Convey("Given an already expired product", t, func() {
		s := snap(120, 100, 9, sql.NullInt64{Int64: 20, Valid: true})
		f := feature.Transform(evalTime, []snapshot.Snapshot{s})[0]

		Convey("Then the remaining shelf life goes negative and the label is set", func() {
			So(f.RemainingShelfLife, ShouldEqual, -20)
			So(f.WillExpire, ShouldBeTrue)
		})
	})
}

func TestTransformIsIdempotent(t *testing.T) {
	Convey("Given a mixed batch", t, func() {
		snaps := []snapshot.Snapshot{
			snap(40, 100, 9, sql.NullInt64{Int64: 20, Valid: true}),
			snap(40, 100, 0, sql.NullInt64{Int64: 20, Valid: true}),
			snap(120, 100, 9, sql.NullInt64{}),
		}

		Convey("When the transform runs twice at the same instant", func() {
			first := feature.Transform(evalTime, snaps)
			second := feature.Transform(evalTime, snaps)

			Convey("Then the outputs are identical", func() {
				So(reflect.DeepEqual(first, second), ShouldBeTrue)
			})
		})

		Convey("When the transform runs", func() {
			original := make([]snapshot.Snapshot, len(snaps))
			copy(original, snaps)
			_ = feature.Transform(evalTime, snaps)

			Convey("Then the input is not mutated", func() {
				So(reflect.DeepEqual(snaps, original), ShouldBeTrue)
			})
		})
	})
}
