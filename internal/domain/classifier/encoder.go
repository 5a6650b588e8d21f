package classifier

import (
	"sort"

	"github.com/DataCraft-Labs/smartshelf/internal/domain/snapshot"
)

// UnseenCode is the reserved category code for values that were not part of
// the training set. It never collides with a trained code (those start at 0).
const UnseenCode = -1

// Encoder holds the dense integer category codes for store and subsection
// values, derived once from the training set and persisted with the model.
// It is never re-derived from inference-time data.
type Encoder struct {
	Stores      map[string]int `json:"stores"`
	Subsections map[string]int `json:"subsections"`
}

// NewEncoder builds stable category mappings from the training rows.
// Codes are assigned in sorted value order so the mapping is reproducible.
func NewEncoder(rows []snapshot.Features) Encoder {
	return Encoder{
		Stores:      codesFor(rows, func(f snapshot.Features) string { return f.StoreCode }),
		Subsections: codesFor(rows, func(f snapshot.Features) string { return f.SubsectionCode }),
	}
}

func codesFor(rows []snapshot.Features, key func(snapshot.Features) string) map[string]int {
	distinct := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		distinct[key(r)] = struct{}{}
	}
	values := make([]string, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	sort.Strings(values)

	codes := make(map[string]int, len(values))
	for i, v := range values {
		codes[v] = i
	}
	return codes
}

// Store maps a store code to its trained category code. The second return
// is false for values unseen at training time, which map to UnseenCode.
func (e Encoder) Store(code string) (int, bool) {
	if c, ok := e.Stores[code]; ok {
		return c, true
	}
	return UnseenCode, false
}

// Subsection maps a subsection code to its trained category code.
func (e Encoder) Subsection(code string) (int, bool) {
	if c, ok := e.Subsections[code]; ok {
		return c, true
	}
	return UnseenCode, false
}
