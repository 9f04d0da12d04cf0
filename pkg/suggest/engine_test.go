package suggest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// stubFetcher serves canned lists with optional per-query latency, recording
// every dispatched call.
type stubFetcher struct {
	mu     sync.Mutex
	calls  []string
	lists  map[string][]Suggestion
	delays map[string]time.Duration
	err    error
}

func (f *stubFetcher) FetchSuggestions(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	delay := f.delays[query]
	list := f.lists[query]
	err := f.err
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestEngine(f Fetcher) *Engine {
	return NewEngine(f, Options{QuietInterval: 20 * time.Millisecond})
}

func TestEngineShortQueryTouchesNothing(t *testing.T) {
	fetcher := &stubFetcher{lists: map[string][]Suggestion{}}
	e := newTestEngine(fetcher)

	for _, input := range []string{"", "a", " a ", "  "} {
		e.OnInput(input)
	}
	time.Sleep(80 * time.Millisecond)

	if n := fetcher.callCount(); n != 0 {
		t.Errorf("short queries must not fetch, got %d calls", n)
	}
	if got := e.CacheStats()["cachedQueries"]; got != 0 {
		t.Errorf("short queries must not create cache entries, got %d", got)
	}
	if e.State().Open {
		t.Error("dropdown must stay closed for short queries")
	}
	if m := e.Metrics(); m.Requests != 0 {
		t.Errorf("no requests should be counted, got %d", m.Requests)
	}
}

func TestEngineBurstCollapsesToOneFetch(t *testing.T) {
	fetcher := &stubFetcher{lists: map[string][]Suggestion{
		"red s": {{ID: "p1", Name: "red shoes"}},
	}}
	e := newTestEngine(fetcher)

	// "r" is below the minimum and only clears; the next three race the
	// quiet window, so two timers get replaced
	e.OnInput("r")
	e.OnInput("re")
	e.OnInput("red")
	e.OnInput("red s")

	time.Sleep(120 * time.Millisecond)

	if n := fetcher.callCount(); n != 1 {
		t.Fatalf("burst should collapse to 1 fetch, got %d (%v)", n, fetcher.calls)
	}
	if fetcher.calls[0] != "red s" {
		t.Errorf("fetch should carry the latest text, got %q", fetcher.calls[0])
	}
	if m := e.Metrics(); m.Debounced != 2 {
		t.Errorf("expected 2 debounced keystrokes, got %d", m.Debounced)
	}

	snap := e.State()
	if !snap.Open || len(snap.Suggestions) != 1 {
		t.Errorf("dropdown should show the fetched list, got open=%v len=%d", snap.Open, len(snap.Suggestions))
	}
	if snap.Selected != -1 {
		t.Errorf("fresh list must start unselected, got %d", snap.Selected)
	}
}

func TestEngineSpacedTypingFetchesPerPauseAndCaches(t *testing.T) {
	fetcher := &stubFetcher{lists: map[string][]Suggestion{
		"re":  {{ID: "p1", Name: "red shoes"}},
		"red": {{ID: "p1", Name: "red shoes"}, {ID: "p2", Name: "red socks"}},
	}}
	e := newTestEngine(fetcher)

	// each pause exceeds the quiet window, so every keystroke fetches
	e.OnInput("re")
	time.Sleep(80 * time.Millisecond)
	e.OnInput("red")
	time.Sleep(80 * time.Millisecond)

	if n := fetcher.callCount(); n != 2 {
		t.Fatalf("expected one fetch per pause, got %d", n)
	}

	// same normalized query again: served from cache, no third request
	e.OnInput("red")
	time.Sleep(80 * time.Millisecond)

	if n := fetcher.callCount(); n != 2 {
		t.Fatalf("repeat query must hit the cache, got %d fetches", n)
	}
	m := e.Metrics()
	if m.Requests != 2 {
		t.Errorf("expected 2 requests, got %d", m.Requests)
	}
	if m.CacheHits != 1 {
		t.Errorf("expected 1 cache hit, got %d", m.CacheHits)
	}
	if m.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %v", m.HitRate)
	}
	if got := e.CacheStats()["cachedQueries"]; got != 2 {
		t.Errorf("expected one cache entry per unique query, got %d", got)
	}
}

// Overlapping fetches: the slow response for the older query arrives last but
// must be discarded, because its generation is no longer the latest. The
// legacy front end let it win; the generation tag is the deliberate fix.
func TestEngineStaleResponseDiscarded(t *testing.T) {
	fetcher := &stubFetcher{
		lists: map[string][]Suggestion{
			"shoe":  {{ID: "x", Name: "shoe polish"}},
			"shoes": {{ID: "y", Name: "shoe rack"}},
		},
		delays: map[string]time.Duration{
			"shoe":  150 * time.Millisecond,
			"shoes": 20 * time.Millisecond,
		},
	}
	e := newTestEngine(fetcher)

	e.OnInput("shoe")
	time.Sleep(50 * time.Millisecond) // timer fired, slow fetch in flight
	e.OnInput("shoes")
	time.Sleep(300 * time.Millisecond) // both fetches completed

	if n := fetcher.callCount(); n != 2 {
		t.Fatalf("expected both fetches dispatched, got %d", n)
	}

	snap := e.State()
	if len(snap.Suggestions) != 1 || snap.Suggestions[0].ID != "y" {
		t.Fatalf("visible list must belong to the newest query, got %+v", snap.Suggestions)
	}

	// the stale response is still cached under its own key
	if list, ok := e.cache.Get("shoe"); !ok || list[0].ID != "x" {
		t.Error("stale response should still land in the cache under its own key")
	}
}

func TestEngineFetchFailureIsSilent(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	e := newTestEngine(fetcher)

	e.OnInput("red shoes")
	time.Sleep(100 * time.Millisecond)

	snap := e.State()
	if snap.Open {
		t.Error("failed fetch should close the dropdown")
	}
	m := e.Metrics()
	if m.Requests != 1 {
		t.Errorf("the failed request still counts as issued, got %d", m.Requests)
	}
	if got := e.CacheStats()["cachedQueries"]; got != 0 {
		t.Errorf("failures must not be cached, got %d entries", got)
	}
}

func TestEngineKeyboardFlow(t *testing.T) {
	fetcher := &stubFetcher{lists: map[string][]Suggestion{
		"red": {{ID: "p1", Name: "red shoes"}, {ID: "p2", Name: "red socks"}},
	}}
	e := newTestEngine(fetcher)

	e.OnInput("red")
	time.Sleep(100 * time.Millisecond)

	if action, _ := e.OnKey(KeyArrowDown); action != ActionNone {
		t.Errorf("arrow keys need no caller action, got %v", action)
	}
	e.OnKey(KeyArrowDown)
	e.OnKey(KeyArrowDown) // clamped at the last entry

	action, chosen := e.OnKey(KeyEnter)
	if action != ActionCommit {
		t.Fatalf("enter with a highlight should commit, got %v", action)
	}
	if chosen.ID != "p2" {
		t.Errorf("expected the clamped selection p2, got %s", chosen.ID)
	}
	if e.Query() != "red socks" {
		t.Errorf("commit must replace the query text, got %q", e.Query())
	}
	if e.State().Open {
		t.Error("commit must close the dropdown")
	}
}

func TestEngineEnterWithoutSelectionRecommends(t *testing.T) {
	fetcher := &stubFetcher{lists: map[string][]Suggestion{
		"red": {{ID: "p1", Name: "red shoes"}},
	}}
	e := newTestEngine(fetcher)

	e.OnInput("red")
	time.Sleep(100 * time.Millisecond)

	action, _ := e.OnKey(KeyEnter)
	if action != ActionRecommend {
		t.Fatalf("enter without a highlight should trigger the recommend flow, got %v", action)
	}
	if e.State().Open {
		t.Error("recommend must close the dropdown")
	}
	if e.Query() != "red" {
		t.Errorf("recommend must keep the typed text, got %q", e.Query())
	}

	// enter while closed also recommends
	action, _ = e.OnKey(KeyEnter)
	if action != ActionRecommend {
		t.Errorf("enter in closed state should recommend, got %v", action)
	}
}

func TestEngineEscapeAndRefocus(t *testing.T) {
	fetcher := &stubFetcher{lists: map[string][]Suggestion{
		"red": {{ID: "p1", Name: "red shoes"}},
	}}
	e := newTestEngine(fetcher)

	e.OnInput("red")
	time.Sleep(100 * time.Millisecond)

	e.OnKey(KeyEscape)
	if e.State().Open {
		t.Fatal("escape should close the dropdown")
	}
	if e.Query() != "red" {
		t.Error("escape must not clear the typed text")
	}

	e.OnFocus()
	if !e.State().Open {
		t.Error("refocus with a list in memory should reopen the dropdown")
	}

	e.OnPointerOutside()
	if e.State().Open {
		t.Error("pointer outside should close the dropdown")
	}
}

func TestEngineSelectionResetsOnTextChange(t *testing.T) {
	fetcher := &stubFetcher{lists: map[string][]Suggestion{
		"red": {{ID: "p1", Name: "red shoes"}, {ID: "p2", Name: "red socks"}},
	}}
	e := newTestEngine(fetcher)

	e.OnInput("red")
	time.Sleep(100 * time.Millisecond)
	e.OnKey(KeyArrowDown)
	if e.State().Selected != 0 {
		t.Fatalf("expected selection 0, got %d", e.State().Selected)
	}

	e.OnInput("red s")
	if e.State().Selected != -1 {
		t.Errorf("text change must reset the selection, got %d", e.State().Selected)
	}
}

// While a slow fetch is in flight, names already seen this session appear as
// instant hints and are then replaced by the network result.
func TestEngineHistoryHintsWhileFetching(t *testing.T) {
	fetcher := &stubFetcher{
		lists: map[string][]Suggestion{
			"red":    {{ID: "p1", Name: "red shoes"}},
			"red sh": {{ID: "p9", Name: "red shirt"}},
		},
		delays: map[string]time.Duration{
			"red sh": 200 * time.Millisecond,
		},
	}
	e := newTestEngine(fetcher)

	// seed the session history
	e.OnInput("red")
	time.Sleep(100 * time.Millisecond)

	e.OnInput("red sh")
	time.Sleep(60 * time.Millisecond) // timer fired, slow fetch pending

	snap := e.State()
	if !snap.Open || len(snap.Suggestions) != 1 || snap.Suggestions[0].ID != "p1" {
		t.Fatalf("expected the history hint while fetching, got %+v", snap.Suggestions)
	}

	time.Sleep(250 * time.Millisecond)
	snap = e.State()
	if len(snap.Suggestions) != 1 || snap.Suggestions[0].ID != "p9" {
		t.Errorf("network result should replace the hints, got %+v", snap.Suggestions)
	}
}

// Deleting back below the minimum while a fetch is in flight: the late
// completion must not reopen the cleared dropdown.
func TestEngineShortQueryInvalidatesInFlightFetch(t *testing.T) {
	fetcher := &stubFetcher{
		lists:  map[string][]Suggestion{"ab": {{ID: "p1", Name: "ab thing"}}},
		delays: map[string]time.Duration{"ab": 150 * time.Millisecond},
	}
	e := newTestEngine(fetcher)

	e.OnInput("ab")
	time.Sleep(50 * time.Millisecond) // timer fired, fetch in flight
	e.OnInput("a")
	time.Sleep(250 * time.Millisecond) // fetch completed after the clear

	snap := e.State()
	if snap.Open || len(snap.Suggestions) != 0 {
		t.Fatalf("late fetch must not reopen the dropdown after a short-query clear, got %+v", snap)
	}
	if _, ok := e.cache.Get("ab"); !ok {
		t.Error("the late response should still land in the cache")
	}
}

func TestEngineCacheHitInvalidatesInFlightFetch(t *testing.T) {
	fetcher := &stubFetcher{
		lists: map[string][]Suggestion{
			"blue": {{ID: "b", Name: "blue jeans"}},
			"slow": {{ID: "s", Name: "slow cooker"}},
		},
		delays: map[string]time.Duration{"slow": 200 * time.Millisecond},
	}
	e := newTestEngine(fetcher)

	e.OnInput("blue") // prime the cache
	time.Sleep(80 * time.Millisecond)

	e.OnInput("slow")
	time.Sleep(50 * time.Millisecond) // slow fetch in flight
	e.OnInput("blue")                 // served from cache immediately
	time.Sleep(300 * time.Millisecond)

	snap := e.State()
	if len(snap.Suggestions) != 1 || snap.Suggestions[0].ID != "b" {
		t.Fatalf("late fetch must not replace a cache-hit list, got %+v", snap.Suggestions)
	}
}

func TestEngineCommitInvalidatesInFlightFetch(t *testing.T) {
	fetcher := &stubFetcher{
		lists: map[string][]Suggestion{
			"red":   {{ID: "r", Name: "red shoes"}},
			"red s": {{ID: "x", Name: "red socks"}},
		},
		delays: map[string]time.Duration{"red s": 200 * time.Millisecond},
	}
	e := newTestEngine(fetcher)

	e.OnInput("red")
	time.Sleep(80 * time.Millisecond)
	e.OnInput("red s")
	time.Sleep(50 * time.Millisecond) // fetch for "red s" in flight

	e.OnKey(KeyArrowDown)
	action, chosen := e.OnKey(KeyEnter)
	if action != ActionCommit || chosen.ID != "r" {
		t.Fatalf("expected commit of the visible selection, got %v %+v", action, chosen)
	}

	time.Sleep(300 * time.Millisecond) // "red s" completes after the commit
	snap := e.State()
	if snap.Open {
		t.Errorf("late fetch must not reopen the dropdown after a commit, got %+v", snap.Suggestions)
	}
	if e.Query() != "red shoes" {
		t.Errorf("commit text must survive the late completion, got %q", e.Query())
	}
}

func TestEngineRenderCallback(t *testing.T) {
	fetcher := &stubFetcher{lists: map[string][]Suggestion{
		"red": {{ID: "p1", Name: "red shoes"}},
	}}
	e := newTestEngine(fetcher)

	var mu sync.Mutex
	var last Snapshot
	renders := 0
	e.OnRender(func(snap Snapshot) {
		mu.Lock()
		last = snap
		renders++
		mu.Unlock()
	})

	e.OnInput("red")
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if renders == 0 {
		t.Fatal("render callback never invoked")
	}
	if !last.Open || len(last.Suggestions) != 1 {
		t.Errorf("final render should carry the fetched list, got %+v", last)
	}
}
