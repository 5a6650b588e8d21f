package classifier

import "github.com/DataCraft-Labs/smartshelf/internal/domain/snapshot"

// featureNames is the model input layout, in vector order. Persisted with
// the artifact so a loaded model rejects a mismatched layout.
var featureNames = []string{
	"days_in_stock",
	"units_sold_90d",
	"current_stock",
	"shelf_life_days",
	"price",
	"is_seasonal",
	"subsection_code",
	"store_code",
}

// missingValue encodes unknown current_stock/price. It sits below every
// legitimate value so a split can isolate missing rows.
const missingValue = -1

// Vector builds the model input for one row using the trained encoder.
// The returned count is the number of categorical values that were unseen
// at training time and fell back to UnseenCode.
func Vector(f snapshot.Features, enc Encoder) ([]float64, int) {
	unseen := 0

	stock := float64(missingValue)
	if f.CurrentStock.Valid {
		stock = float64(f.CurrentStock.Int64)
	}
	price := float64(missingValue)
	if f.Price.Valid {
		price = f.Price.Float64
	}
	seasonal := 0.0
	if f.Seasonal {
		seasonal = 1.0
	}
	subsection, ok := enc.Subsection(f.SubsectionCode)
	if !ok {
		unseen++
	}
	store, ok := enc.Store(f.StoreCode)
	if !ok {
		unseen++
	}

	return []float64{
		float64(f.DaysInStock),
		float64(f.UnitsSold90d),
		stock,
		float64(f.ShelfLifeDays),
		price,
		seasonal,
		float64(subsection),
		float64(store),
	}, unseen
}
