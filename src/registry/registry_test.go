package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quote-streamer/src/codec"
	"quote-streamer/src/generator"
	"quote-streamer/src/models"
)

type recordingTransport struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     error
}

func (t *recordingTransport) Name() string { return "test" }

func (t *recordingTransport) Send(_ models.SubscriberKey, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return t.fail
	}
	t.payloads = append(t.payloads, append([]byte(nil), payload...))
	return nil
}

func (t *recordingTransport) symbols(tb testing.TB) []models.Symbol {
	tb.Helper()
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.Symbol
	for _, p := range t.payloads {
		q, err := codec.JSONCodec{}.DecodeQuote(p)
		if err != nil {
			tb.Fatalf("decode payload: %v", err)
		}
		out = append(out, q.Symbol)
	}
	return out
}

type wsTransport struct {
	recordingTransport
}

func (t *wsTransport) Name() string { return "websocket" }

type memoryJournal struct {
	mu     sync.Mutex
	events []models.MSessionEvent
}

func (j *memoryJournal) Initialize() error { return nil }
func (j *memoryJournal) Close() error      { return nil }

func (j *memoryJournal) Record(ev models.MSessionEvent) {
	j.mu.Lock()
	j.events = append(j.events, ev)
	j.mu.Unlock()
}

func (j *memoryJournal) RecentSessions(int) ([]models.MSessionEvent, error) { return nil, nil }

func (j *memoryJournal) kinds() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.events))
	for i, ev := range j.events {
		out[i] = ev.Event
	}
	return out
}

// -----------------------------------------------------------------------------

func newGenerator() *generator.TickGenerator {
	return generator.NewTickGenerator(generator.Options{
		Symbols:       []models.Symbol{"AAPL", "MSFT", "GOOGL", "TSLA"},
		LiquidSymbols: []models.Symbol{"AAPL", "MSFT", "TSLA"},
		Interval:      10 * time.Millisecond,
		InitialPrice:  100,
		MaxStep:       0.01,
		PriceFloor:    0.01,
		ChannelBuffer: 64,
	}, nil)
}

func key(t *testing.T, raw string) models.SubscriberKey {
	t.Helper()
	k, err := models.ParseSubscriberKey(raw)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func processed(r *Registry, k models.SubscriberKey, n uint64) func() bool {
	return func() bool {
		info, ok := r.Lookup(k)
		return ok && info.Sent+info.Filtered >= n
	}
}

// -----------------------------------------------------------------------------

func TestDispatcherForwardsOnlySubscribedSymbols(t *testing.T) {
	gen := newGenerator()
	reg := NewRegistry(gen, codec.JSONCodec{}, nil, nil)
	defer reg.Close()

	a, b := key(t, "127.0.0.1:4000"), key(t, "127.0.0.1:4001")
	ta, tb := &recordingTransport{}, &recordingTransport{}

	if _, err := reg.Register(a, []models.Symbol{"AAPL", "MSFT", "AAPL", models.Unknown}, ta); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register(b, []models.Symbol{"TSLA"}, tb); err != nil {
		t.Fatal(err)
	}

	gen.Tick()
	waitFor(t, "first subscriber", processed(reg, a, 4))
	waitFor(t, "second subscriber", processed(reg, b, 4))

	got := ta.symbols(t)
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "MSFT" {
		t.Errorf("first subscriber got %v, want [AAPL MSFT]", got)
	}
	got = tb.symbols(t)
	if len(got) != 1 || got[0] != "TSLA" {
		t.Errorf("second subscriber got %v, want [TSLA]", got)
	}

	info, _ := reg.Lookup(a)
	if info.Sent != 2 || info.Filtered != 2 {
		t.Errorf("counters: sent %d filtered %d", info.Sent, info.Filtered)
	}
}

func TestRegisterRejectsEmptySymbolSet(t *testing.T) {
	reg := NewRegistry(newGenerator(), codec.JSONCodec{}, nil, nil)
	defer reg.Close()

	_, err := reg.Register(key(t, "127.0.0.1:4000"), []models.Symbol{models.Unknown}, &recordingTransport{})
	if !errors.Is(err, ErrNoSymbols) {
		t.Fatalf("got %v, want ErrNoSymbols", err)
	}
	if reg.Len() != 0 {
		t.Error("rejected subscription left an entry")
	}
}

// -----------------------------------------------------------------------------

func TestResubscribeReplacesDispatcher(t *testing.T) {
	gen := newGenerator()
	journal := &memoryJournal{}
	reg := NewRegistry(gen, codec.JSONCodec{}, journal, nil)
	defer reg.Close()

	k := key(t, "10.1.1.1:5000")
	first := &recordingTransport{}
	second := &recordingTransport{}

	id1, err := reg.Register(k, []models.Symbol{"AAPL"}, first)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := reg.Register(k, []models.Symbol{"TSLA"}, second)
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Fatal("replacement reused the subscription id")
	}
	if reg.Len() != 1 {
		t.Fatalf("got %d subscriptions, want 1", reg.Len())
	}

	gen.Tick()
	waitFor(t, "replacement dispatcher", processed(reg, k, 4))
	if got := first.symbols(t); len(got) != 0 {
		t.Errorf("replaced dispatcher still sent %v", got)
	}
	if got := second.symbols(t); len(got) != 1 || got[0] != "TSLA" {
		t.Errorf("replacement got %v", got)
	}
	if gen.Subscribers() != 1 {
		t.Errorf("generator has %d subscribers, want 1", gen.Subscribers())
	}

	want := []string{models.SessionSubscribed, models.SessionReplaced, models.SessionSubscribed}
	got := journal.kinds()
	if len(got) != len(want) {
		t.Fatalf("journal %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("journal %v, want %v", got, want)
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	gen := newGenerator()
	journal := &memoryJournal{}
	reg := NewRegistry(gen, codec.JSONCodec{}, journal, nil)
	defer reg.Close()

	k := key(t, "127.0.0.1:4000")
	tr := &recordingTransport{}
	if _, err := reg.Register(k, []models.Symbol{"AAPL"}, tr); err != nil {
		t.Fatal(err)
	}
	gen.Tick()

	if !reg.Stop(k) {
		t.Fatal("first stop should find the subscription")
	}
	if reg.Stop(k) || reg.Evict(k) {
		t.Fatal("second stop should be a no-op")
	}
	if reg.Len() != 0 {
		t.Fatalf("registry still holds %d entries", reg.Len())
	}

	before := len(tr.symbols(t))
	gen.Tick()
	gen.Tick()
	if after := len(tr.symbols(t)); after != before {
		t.Errorf("stopped dispatcher kept sending: %d -> %d", before, after)
	}
	if gen.Subscribers() != 0 {
		t.Errorf("generator still has %d subscribers", gen.Subscribers())
	}

	kinds := journal.kinds()
	if kinds[len(kinds)-1] != models.SessionStopped {
		t.Errorf("last journal event %q, want stopped", kinds[len(kinds)-1])
	}
}

func TestSendFailureRemovesSubscriber(t *testing.T) {
	gen := newGenerator()
	journal := &memoryJournal{}
	reg := NewRegistry(gen, codec.JSONCodec{}, journal, nil)
	defer reg.Close()

	k := key(t, "127.0.0.1:4000")
	if _, err := reg.Register(k, []models.Symbol{"AAPL"}, &recordingTransport{fail: errors.New("connection refused")}); err != nil {
		t.Fatal(err)
	}
	gen.Tick()

	waitFor(t, "failed dispatcher to exit", func() bool { return reg.Len() == 0 })
	waitFor(t, "send_failed event", func() bool { return len(journal.kinds()) == 2 })
	if kinds := journal.kinds(); kinds[0] != models.SessionSubscribed || kinds[1] != models.SessionSendFailed {
		t.Errorf("journal %v, want [subscribed send_failed]", kinds)
	}
	if reg.Stop(k) {
		t.Error("stop after self-removal should report not found")
	}
}

// -----------------------------------------------------------------------------

func TestGeneratorShutdownEndsDispatchers(t *testing.T) {
	gen := newGenerator()
	reg := NewRegistry(gen, codec.JSONCodec{}, nil, nil)

	for _, raw := range []string{"127.0.0.1:4000", "127.0.0.1:4001", "127.0.0.1:4002"} {
		if _, err := reg.Register(key(t, raw), []models.Symbol{"MSFT"}, &recordingTransport{}); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		gen.Run(ctx)
		close(done)
	}()

	waitFor(t, "subscribers admitted", func() bool { return gen.Subscribers() == 3 })
	cancel()
	<-done

	waitFor(t, "dispatchers to exit", func() bool { return reg.Len() == 0 })
	reg.Close()

	if _, err := reg.Register(key(t, "127.0.0.1:4003"), []models.Symbol{"MSFT"}, &recordingTransport{}); !errors.Is(err, ErrClosed) {
		t.Errorf("register after close: got %v, want ErrClosed", err)
	}
}

func TestListIsSortedSnapshot(t *testing.T) {
	reg := NewRegistry(newGenerator(), codec.JSONCodec{}, nil, nil)
	defer reg.Close()

	for _, raw := range []string{"127.0.0.1:4002", "127.0.0.1:4000"} {
		if _, err := reg.Register(key(t, raw), []models.Symbol{"AAPL", "TSLA"}, &recordingTransport{}); err != nil {
			t.Fatal(err)
		}
	}
	list := reg.List()
	if len(list) != 2 || list[0].Key != "127.0.0.1:4000" || list[1].Key != "127.0.0.1:4002" {
		t.Fatalf("unexpected list %+v", list)
	}
	if list[0].Transport != "test" || len(list[0].Symbols) != 2 {
		t.Errorf("unexpected entry %+v", list[0])
	}
}

func TestRegisterAfterSourceShutdown(t *testing.T) {
	gen := newGenerator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen.Run(ctx)

	journal := &memoryJournal{}
	reg := NewRegistry(gen, codec.JSONCodec{}, journal, nil)
	defer reg.Close()

	_, err := reg.Register(key(t, "127.0.0.1:4000"), []models.Symbol{"AAPL"}, &recordingTransport{})
	if !errors.Is(err, ErrSourceClosed) {
		t.Fatalf("got %v, want ErrSourceClosed", err)
	}
	if reg.Len() != 0 || len(journal.kinds()) != 0 {
		t.Errorf("dead subscription left traces: len %d, journal %v", reg.Len(), journal.kinds())
	}
}

func TestKeyHeldByAnotherTransport(t *testing.T) {
	reg := NewRegistry(newGenerator(), codec.JSONCodec{}, nil, nil)
	defer reg.Close()

	k := key(t, "127.0.0.1:4000")
	udpID, err := reg.Register(k, []models.Symbol{"AAPL"}, &recordingTransport{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register(k, []models.Symbol{"MSFT"}, &wsTransport{}); !errors.Is(err, ErrKeyInUse) {
		t.Fatalf("got %v, want ErrKeyInUse", err)
	}
	if info, ok := reg.Lookup(k); !ok || info.SubscriptionID != udpID {
		t.Errorf("original subscription disturbed: %+v %v", info, ok)
	}
}

func TestStopSubscriptionMatchesID(t *testing.T) {
	reg := NewRegistry(newGenerator(), codec.JSONCodec{}, nil, nil)
	defer reg.Close()

	k := key(t, "127.0.0.1:4000")
	oldID, err := reg.Register(k, []models.Symbol{"AAPL"}, &recordingTransport{})
	if err != nil {
		t.Fatal(err)
	}
	newID, err := reg.Register(k, []models.Symbol{"TSLA"}, &recordingTransport{})
	if err != nil {
		t.Fatal(err)
	}

	if reg.StopSubscription(k, oldID) {
		t.Fatal("stale id stopped the replacement")
	}
	if reg.Len() != 1 {
		t.Fatalf("got %d subscriptions, want 1", reg.Len())
	}
	if !reg.StopSubscription(k, newID) {
		t.Fatal("current id should stop the subscription")
	}
	if reg.Len() != 0 {
		t.Errorf("registry still holds %d entries", reg.Len())
	}
}
