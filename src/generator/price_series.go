package generator

import (
	"math"

	"quote-streamer/src/models"
)

// PriceSeries holds the last price of every tracked symbol and applies the
// bounded random walk. It is owned by the generator goroutine and is not
// synchronized.
type PriceSeries struct {
	order   []models.Symbol
	prices  map[models.Symbol]float64
	maxStep float64
	floor   float64
}

// -----------------------------------------------------------------------------

// NewPriceSeries starts every symbol at initial. The iteration order is the
// order of symbols, with duplicates and Unknown dropped.
func NewPriceSeries(symbols []models.Symbol, initial, maxStep, floor float64) *PriceSeries {
	ps := &PriceSeries{
		prices:  make(map[models.Symbol]float64, len(symbols)),
		maxStep: maxStep,
		floor:   floor,
	}
	for _, s := range symbols {
		if s == models.Unknown {
			continue
		}
		if _, dup := ps.prices[s]; dup {
			continue
		}
		ps.order = append(ps.order, s)
		ps.prices[s] = math.Max(initial, floor)
	}
	return ps
}

// -----------------------------------------------------------------------------

// Symbols returns the tracked symbols in iteration order.
func (ps *PriceSeries) Symbols() []models.Symbol {
	out := make([]models.Symbol, len(ps.order))
	copy(out, ps.order)
	return out
}

// Last returns the current price of s.
func (ps *PriceSeries) Last(s models.Symbol) (float64, bool) {
	p, ok := ps.prices[s]
	return p, ok
}

// -----------------------------------------------------------------------------

// Step advances s by one tick. u is a uniform sample in [0, 1) and is mapped
// to a relative change in [-maxStep, +maxStep).
func (ps *PriceSeries) Step(s models.Symbol, u float64) float64 {
	old, ok := ps.prices[s]
	if !ok {
		return 0
	}
	change := (2*u - 1) * ps.maxStep
	next := NextPrice(old, change, ps.floor)
	ps.prices[s] = next
	return next
}

// -----------------------------------------------------------------------------

// NextPrice applies a relative change and clamps the result to floor.
func NextPrice(old, change, floor float64) float64 {
	next := old * (1 + change)
	if math.IsNaN(next) || next < floor {
		return floor
	}
	return next
}
