package generator

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"quote-streamer/src/interfaces"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"
)

// Rand is the random source used for price steps and volumes.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Clock supplies quote timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options configures a TickGenerator.
type Options struct {
	Symbols              []models.Symbol
	LiquidSymbols        []models.Symbol
	Interval             time.Duration
	InitialPrice         float64
	MaxStep              float64
	PriceFloor           float64
	ChannelBuffer        int
	OffHoursVolumeFactor float64
}

type slot struct {
	id   uint64
	ch   chan models.MQuote
	live bool
}

type pendingSub struct {
	id uint64
	ch chan models.MQuote
}

// TickGenerator advances one shared PriceSeries at a fixed cadence and
// broadcasts every tick to all subscribers. Subscribe and Unsubscribe are safe
// for concurrent use; the price series and slot arena belong to the Run
// goroutine.
type TickGenerator struct {
	Rand   Rand
	Clock  Clock
	Market interfaces.IMarketHours
	Logger *logger.Logger

	series   *PriceSeries
	liquid   map[models.Symbol]struct{}
	interval time.Duration
	buffer   int
	offHours float64

	mu       sync.Mutex
	nextID   uint64
	pending  []pendingSub
	removals []uint64
	closed   bool

	slots  []slot
	free   []int
	index  map[uint64]int
	active atomic.Int64
	ticks  atomic.Uint64
}

// -----------------------------------------------------------------------------

// NewTickGenerator builds a generator with a time-seeded random source and the
// wall clock. Callers may replace Rand, Clock and Market before Run.
func NewTickGenerator(opts Options, log *logger.Logger) *TickGenerator {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.ChannelBuffer <= 0 {
		opts.ChannelBuffer = 1
	}
	if opts.OffHoursVolumeFactor <= 0 {
		opts.OffHoursVolumeFactor = 1
	}

	liquid := make(map[models.Symbol]struct{}, len(opts.LiquidSymbols))
	for _, s := range opts.LiquidSymbols {
		liquid[s] = struct{}{}
	}

	return &TickGenerator{
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		Clock:    systemClock{},
		Logger:   log,
		series:   NewPriceSeries(opts.Symbols, opts.InitialPrice, opts.MaxStep, opts.PriceFloor),
		liquid:   liquid,
		interval: opts.Interval,
		buffer:   opts.ChannelBuffer,
		offHours: opts.OffHoursVolumeFactor,
		index:    make(map[uint64]int),
	}
}

// -----------------------------------------------------------------------------

// Symbols returns the symbols ticked every cycle, in order.
func (g *TickGenerator) Symbols() []models.Symbol {
	return g.series.Symbols()
}

// Subscribers returns the number of admitted subscriber slots.
func (g *TickGenerator) Subscribers() int {
	return int(g.active.Load())
}

// Ticks returns the number of completed cycles.
func (g *TickGenerator) Ticks() uint64 {
	return g.ticks.Load()
}

// -----------------------------------------------------------------------------

// Subscribe registers a new receiver. It is admitted at the start of the next
// cycle, so it never observes a partial cycle. After shutdown the returned
// channel is already closed.
func (g *TickGenerator) Subscribe() (uint64, <-chan models.MQuote) {
	ch := make(chan models.MQuote, g.buffer)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		close(ch)
		return 0, ch
	}
	g.nextID++
	g.pending = append(g.pending, pendingSub{id: g.nextID, ch: ch})
	return g.nextID, ch
}

// Unsubscribe releases a receiver. Unknown or already pruned ids are ignored.
func (g *TickGenerator) Unsubscribe(id uint64) {
	if id == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.removals = append(g.removals, id)
}

// -----------------------------------------------------------------------------

// Run ticks until ctx is cancelled, then closes every subscriber channel.
func (g *TickGenerator) Run(ctx context.Context) {
	g.Logger.Info("Tick generator started: %d symbols every %v", len(g.series.order), g.interval)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.Tick()
	for {
		select {
		case <-ctx.Done():
			g.shutdown()
			g.Logger.Info("Tick generator stopped after %d cycles", g.ticks.Load())
			return
		case <-ticker.C:
			g.Tick()
		}
	}
}

// Tick runs one generation cycle. Run calls it on every interval; it must not
// be called concurrently with Run.
func (g *TickGenerator) Tick() {
	g.admit()

	now := g.Clock.Now()
	damp := g.Market != nil && g.offHours != 1 && !g.Market.IsOpen(now)

	for _, s := range g.series.order {
		q := models.MQuote{
			Symbol:    s,
			Price:     g.series.Step(s, g.Rand.Float64()),
			Volume:    g.volume(s, damp),
			Timestamp: now.UnixMilli(),
		}
		g.broadcast(q)
	}
	g.ticks.Add(1)
}

// -----------------------------------------------------------------------------

func (g *TickGenerator) volume(s models.Symbol, damp bool) uint32 {
	var v int
	if _, ok := g.liquid[s]; ok {
		v = 1000 + g.Rand.Intn(5000)
	} else {
		v = 100 + g.Rand.Intn(1000)
	}
	if damp {
		v = int(float64(v) * g.offHours)
		if v < 1 {
			v = 1
		}
	}
	return uint32(v)
}

// -----------------------------------------------------------------------------

// admit moves pending subscriptions into the arena and applies queued
// unsubscriptions.
func (g *TickGenerator) admit() {
	g.mu.Lock()
	pending, removals := g.pending, g.removals
	g.pending, g.removals = nil, nil
	g.mu.Unlock()

	for _, p := range pending {
		var idx int
		if n := len(g.free); n > 0 {
			idx = g.free[n-1]
			g.free = g.free[:n-1]
			g.slots[idx] = slot{id: p.id, ch: p.ch, live: true}
		} else {
			idx = len(g.slots)
			g.slots = append(g.slots, slot{id: p.id, ch: p.ch, live: true})
		}
		g.index[p.id] = idx
		g.active.Add(1)
	}

	for _, id := range removals {
		if idx, ok := g.index[id]; ok {
			g.release(idx)
		}
	}
}

// broadcast offers q to every live slot without blocking. A slot whose buffer
// is full is pruned.
func (g *TickGenerator) broadcast(q models.MQuote) {
	for i := range g.slots {
		sl := &g.slots[i]
		if !sl.live {
			continue
		}
		select {
		case sl.ch <- q:
		default:
			g.Logger.Warning("Subscriber %d is not draining its channel; dropping it", sl.id)
			g.release(i)
		}
	}
}

func (g *TickGenerator) release(idx int) {
	sl := &g.slots[idx]
	if !sl.live {
		return
	}
	close(sl.ch)
	delete(g.index, sl.id)
	*sl = slot{}
	g.free = append(g.free, idx)
	g.active.Add(-1)
}

// -----------------------------------------------------------------------------

func (g *TickGenerator) shutdown() {
	g.mu.Lock()
	g.closed = true
	pending := g.pending
	g.pending, g.removals = nil, nil
	g.mu.Unlock()

	for _, p := range pending {
		close(p.ch)
	}
	for i := range g.slots {
		g.release(i)
	}
}
