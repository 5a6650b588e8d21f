package snapshot_test

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DataCraft-Labs/smartshelf/internal/domain/snapshot"
	. "github.com/smartystreets/goconvey/convey"
)

func validRecord() snapshot.Record {
	return snapshot.Record{
		ProductID:      "80123456",
		ProductName:    "Azaleia P17",
		Section:        "JARDIM",
		SubsectionCode: "204",
		StoreCode:      "03",
		ReceivedAt:     "2026-07-01 08:30",
		ShelfLifeDays:  60,
		UnitsSold90d:   18,
		CurrentStock:   sql.NullInt64{Int64: 24, Valid: true},
		Price:          sql.NullFloat64{Float64: 39.9, Valid: true},
		Seasonal:       true,
	}
}

func TestRecordValidate(t *testing.T) {
	Convey("Given a raw inventory record", t, func() {
		Convey("When every field is well formed", func() {
			snap, err := validRecord().Validate()

			Convey("Then it converts into a snapshot", func() {
				So(err, ShouldBeNil)
				So(snap.ProductID, ShouldEqual, "80123456")
				So(snap.ReceivedAt.Year(), ShouldEqual, 2026)
				So(snap.ReceivedAt.Month(), ShouldEqual, time.July)
				So(snap.CurrentStock.Valid, ShouldBeTrue)
				So(snap.Seasonal, ShouldBeTrue)
			})
		})

		Convey("When the receipt timestamp is malformed", func() {
			r := validRecord()
			r.ReceivedAt = "01/07/2026"
			_, err := r.Validate()

			Convey("Then it fails with the timestamp error kind", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, snapshot.ErrBadTimestamp), ShouldBeTrue)
			})
		})

		Convey("When the product id is missing", func() {
			r := validRecord()
			r.ProductID = "  "
			_, err := r.Validate()

			So(errors.Is(err, snapshot.ErrMissingField), ShouldBeTrue)
		})

		Convey("When the store code is missing", func() {
			r := validRecord()
			r.StoreCode = ""
			_, err := r.Validate()

			So(errors.Is(err, snapshot.ErrMissingField), ShouldBeTrue)
		})

		Convey("When numeric fields are out of range", func() {
			Convey("A zero shelf life is rejected", func() {
				r := validRecord()
				r.ShelfLifeDays = 0
				_, err := r.Validate()
				So(errors.Is(err, snapshot.ErrInvalidValue), ShouldBeTrue)
			})

			Convey("Negative sales are rejected", func() {
				r := validRecord()
				r.UnitsSold90d = -1
				_, err := r.Validate()
				So(errors.Is(err, snapshot.ErrInvalidValue), ShouldBeTrue)
			})

			Convey("Negative stock is rejected", func() {
				r := validRecord()
				r.CurrentStock = sql.NullInt64{Int64: -5, Valid: true}
				_, err := r.Validate()
				So(errors.Is(err, snapshot.ErrInvalidValue), ShouldBeTrue)
			})
		})

		Convey("When nullable fields are null", func() {
			r := validRecord()
			r.CurrentStock = sql.NullInt64{}
			r.Price = sql.NullFloat64{}
			snap, err := r.Validate()

			Convey("Then the row is still valid", func() {
				So(err, ShouldBeNil)
				So(snap.CurrentStock.Valid, ShouldBeFalse)
				So(snap.Price.Valid, ShouldBeFalse)
			})
		})
	})
}

func TestParseReceipt(t *testing.T) {
	Convey("Given receipt timestamps in the accepted layouts", t, func() {
		layouts := []string{
			"2026-07-01 08:30",
			"2026-07-01 08:30:15",
			"2026-07-01T08:30:00Z",
			"2026-07-01",
		}
		for _, s := range layouts {
			ts, err := snapshot.ParseReceipt(s)
			So(err, ShouldBeNil)
			So(ts.Day(), ShouldEqual, 1)
		}

		Convey("And an empty string is rejected", func() {
			_, err := snapshot.ParseReceipt("   ")
			So(errors.Is(err, snapshot.ErrBadTimestamp), ShouldBeTrue)
		})
	})
}

func TestSnapshotKey(t *testing.T) {
	Convey("Given two snapshots of the same product batch", t, func() {
		a, err := validRecord().Validate()
		So(err, ShouldBeNil)
		b, err := validRecord().Validate()
		So(err, ShouldBeNil)

		Convey("Then their keys collide", func() {
			So(a.Key(), ShouldEqual, b.Key())
		})

		Convey("And a different store yields a different key", func() {
			r := validRecord()
			r.StoreCode = "05"
			c, err := r.Validate()
			So(err, ShouldBeNil)
			So(c.Key(), ShouldNotEqual, a.Key())
		})
	})
}

func TestRowError(t *testing.T) {
	Convey("Given a row error", t, func() {
		inner := snapshot.ErrBadTimestamp
		e := snapshot.RowError{Index: 7, ProductID: "80123456", Err: inner}

		Convey("Then it unwraps to the inner kind", func() {
			So(errors.Is(e, snapshot.ErrBadTimestamp), ShouldBeTrue)
			So(e.Error(), ShouldContainSubstring, "row 7")
		})
	})
}
