// Package datagen produces synthetic inventory batches for training and
// testing. The catalog and noise characteristics mimic a home-improvement
// retailer: a few perishable sections, long-lived hardware, deliberate
// outliers and missing values.
package datagen

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/DataCraft-Labs/smartshelf/internal/domain/snapshot"
)

// Default generation parameters.
const (
	defaultSeed          = 42
	defaultProductCount  = 5000
	defaultStorePresence = 0.3
)

// Noise probabilities and ranges.
const (
	shortLifeProb     = 0.10
	longLifeProb      = 0.05
	priceOutlierProb  = 0.05
	staleStockProb    = 0.05
	staleStockDays    = 730
	zeroSalesProb     = 0.10
	stockOutlierProb  = 0.05
	missingValueProb  = 0.02
	seasonalProb      = 0.3
	receiptSlackDays  = 50
	maxBaseStock      = 80
	salesWindowDays   = 90
	productIDFloor    = 80_000_000
	productIDCeil     = 99_999_999
	subsectionCodeMin = 100
	subsectionCodeMax = 999
	receiptLayout     = "2006-01-02 15:04"
)

// subsection is a catalog entry with its shelf-life band in days.
type subsection struct {
	name    string
	minLife int
	maxLife int
}

var catalog = map[string][]subsection{
	"JARDIM":    {{"Plantas para Jardim", 14, 60}},
	"PINTURA":   {{"Centro de cor", 365, 730}, {"Adesivos e colas", 180, 365}},
	"FERRAGENS": {{"Ferragens de Moveis", 365, 1095}},
	"MATERIAIS": {{"Cimento, areia, arg, cascalho", 180, 730}},
}

var productNames = map[string][]string{
	"Plantas para Jardim":          {"Azaleia P17", "Samambaia Grande", "Orquidea Branca", "Lavanda", "Hortensia Azul", "Bromelia", "Cacto Miniatura", "Bougainville", "Palmeira Areca"},
	"Centro de cor":                {"Tinta Acrilica Branco Neve", "Corante Azul Ceu", "Tinta Spray Fosca", "Esmalte Sintetico Preto", "Tinta Latex Cinza Urbano"},
	"Adesivos e colas":             {"Cola Madeira Extra Forte", "Adesivo Epoxi Transparente", "Supercola Instantanea", "Cola PVA Branca 1L", "Adesivo PU 400g"},
	"Ferragens de Moveis":          {"Dobradica Aco 3pol", "Parafuso Sextavado 5mm", "Puxador Inox Curvo", "Trilho Telescopico 35cm", "Fechadura Magnetica"},
	"Cimento, areia, arg, cascalho": {"Saco de Cimento CP II 50kg", "Areia Media Ensacada", "Argamassa AC1 20kg", "Cascalho Lavado", "Argila Expandida 10L"},
}

var sectionOrder = []string{"JARDIM", "PINTURA", "FERRAGENS", "MATERIAIS"}

var storeNames = []string{"NITEROI", "MORUMBI", "SOROCABA", "TAGUATINGA", "MARGINAL TIETE 2", "VITORIA", "RIO NORTE"}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSeed fixes the random source so batches are reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithProductCount sets the catalog size.
func WithProductCount(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.products = n
		}
	}
}

// WithStorePresence sets the probability that a product is stocked at a
// given store.
func WithStorePresence(p float64) Option {
	return func(g *Generator) {
		if p > 0 && p <= 1 {
			g.storePresence = p
		}
	}
}

// Generator produces synthetic batches. Not safe for concurrent use; create
// one per goroutine.
type Generator struct {
	seed          int64
	products      int
	storePresence float64
	rng           *rand.Rand
}

// New creates a generator with configuration options.
func New(opts ...Option) *Generator {
	g := &Generator{
		seed:          defaultSeed,
		products:      defaultProductCount,
		storePresence: defaultStorePresence,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.rng = rand.New(rand.NewSource(g.seed)) //nolint:gosec // deterministic seed for reproducible batches
	return g
}

// product is an internal catalog row.
type product struct {
	id             string
	name           string
	section        string
	subsectionCode string
	shelfLife      int
	price          float64
	seasonal       bool
}

// Batch generates one inventory batch dated relative to now. Returns the
// batch id and the raw records, one per stocked (product, store) pair.
func (g *Generator) Batch(now time.Time) (string, []snapshot.Record) {
	batchID := uuid.New().String()
	products := g.buildCatalog()

	var records []snapshot.Record
	for _, p := range products {
		for i := range storeNames {
			if g.rng.Float64() >= g.storePresence {
				continue
			}
			records = append(records, g.record(now, p, fmt.Sprintf("%02d", i)))
		}
	}
	return batchID, records
}

func (g *Generator) buildCatalog() []product {
	products := make([]product, 0, g.products)
	for i := 0; i < g.products; i++ {
		section := sectionOrder[g.rng.Intn(len(sectionOrder))]
		subs := catalog[section]
		sub := subs[g.rng.Intn(len(subs))]
		names := productNames[sub.name]

		products = append(products, product{
			id:             fmt.Sprintf("%d", productIDFloor+g.rng.Intn(productIDCeil-productIDFloor)),
			name:           names[g.rng.Intn(len(names))],
			section:        section,
			subsectionCode: fmt.Sprintf("%d", subsectionCodeMin+g.rng.Intn(subsectionCodeMax-subsectionCodeMin)),
			shelfLife:      g.shelfLife(sub),
			price:          g.price(),
			seasonal:       g.rng.Float64() < seasonalProb,
		})
	}
	return products
}

// shelfLife draws a shelf life inside the subsection band, with a small
// share of implausibly short and implausibly long values.
func (g *Generator) shelfLife(sub subsection) int {
	p := g.rng.Float64()
	switch {
	case p < shortLifeProb:
		return 3 + g.rng.Intn(7)
	case p < shortLifeProb+longLifeProb:
		return sub.maxLife + 1 + g.rng.Intn(365)
	default:
		return sub.minLife + g.rng.Intn(sub.maxLife-sub.minLife)
	}
}

func (g *Generator) price() float64 {
	price := 5 + g.rng.Float64()*495
	if g.rng.Float64() < priceOutlierProb {
		price *= float64(10 + g.rng.Intn(90))
	}
	return float64(int(price*100)) / 100
}

func (g *Generator) record(now time.Time, p product, storeCode string) snapshot.Record {
	daysInStock := g.rng.Intn(p.shelfLife + receiptSlackDays)
	if g.rng.Float64() < staleStockProb {
		daysInStock += staleStockDays
	}
	receivedAt := now.AddDate(0, 0, -daysInStock).Truncate(time.Minute)

	unitsSold := 0
	if g.rng.Float64() >= zeroSalesProb {
		velocity := g.rng.ExpFloat64()
		unitsSold = int(velocity * salesWindowDays * (0.3 + g.rng.Float64()*1.7))
	}

	stock := int64(1 + g.rng.Intn(maxBaseStock))
	if g.rng.Float64() < stockOutlierProb {
		stock *= 10
	}

	currentStock := sql.NullInt64{Int64: stock, Valid: true}
	if g.rng.Float64() < missingValueProb {
		currentStock = sql.NullInt64{}
	}
	price := sql.NullFloat64{Float64: p.price, Valid: true}
	if g.rng.Float64() < missingValueProb {
		price = sql.NullFloat64{}
	}

	return snapshot.Record{
		ProductID:      p.id,
		ProductName:    p.name,
		Section:        p.section,
		SubsectionCode: p.subsectionCode,
		StoreCode:      storeCode,
		ReceivedAt:     receivedAt.Format(receiptLayout),
		ShelfLifeDays:  p.shelfLife,
		UnitsSold90d:   unitsSold,
		CurrentStock:   currentStock,
		Price:          price,
		Seasonal:       p.seasonal,
	}
}
