package suggest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultCandidateLimit is how many candidates a suggestion fetch asks for.
const DefaultCandidateLimit = 8

// DefaultFetchTimeout bounds a single suggestion request.
const DefaultFetchTimeout = 10 * time.Second

// Options tune an Engine. Zero values fall back to the package defaults.
type Options struct {
	QuietInterval  time.Duration
	CacheCapacity  int
	CandidateLimit int
	FetchTimeout   time.Duration
}

// Snapshot is what the presentation layer renders from: the single source of
// truth for dropdown visibility, list content, and the highlighted index.
type Snapshot struct {
	Query       string
	Suggestions []Suggestion
	Selected    int
	Open        bool
}

// Engine owns the whole suggestion pipeline for one session: normalizer,
// debouncer, FIFO query cache, fetch dispatcher, dropdown state machine,
// history index, and telemetry. One instance per session, passed by
// reference to event handlers; there is no ambient global state.
//
// The source this reimplements ran on a single-threaded event loop. Here the
// loop becomes one mutex: keystrokes, timer fires, and fetch completions all
// serialize on mu, which preserves the original's event-ordering discipline.
type Engine struct {
	fetcher  Fetcher
	cache    *QueryCache
	debounce *Debouncer
	dropdown *Dropdown
	history  *HistoryIndex
	counters *Counters

	// generation tags every dispatched fetch; completions that no longer
	// carry the latest value are discarded as stale. This deliberately
	// replaces the source's last-writer-wins race between overlapping
	// fetches. Every path that clears or replaces the dropdown on its own
	// (short-text clear, cache hit, commit) also bumps it, so a late
	// completion cannot reopen state the user already moved past.
	generation atomic.Uint64

	limit        int
	fetchTimeout time.Duration
	text         string
	onRender     func(Snapshot)
	mu           sync.Mutex
}

// NewEngine wires an engine around the given fetcher.
func NewEngine(fetcher Fetcher, opts Options) *Engine {
	limit := opts.CandidateLimit
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Engine{
		fetcher:      fetcher,
		cache:        NewQueryCache(opts.CacheCapacity),
		debounce:     NewDebouncer(opts.QuietInterval),
		dropdown:     NewDropdown(),
		history:      NewHistoryIndex(),
		counters:     &Counters{},
		limit:        limit,
		fetchTimeout: timeout,
	}
}

// OnRender registers the callback invoked after every state change. The
// callback receives a snapshot and must not call back into the engine.
func (e *Engine) OnRender(fn func(Snapshot)) {
	e.mu.Lock()
	e.onRender = fn
	e.mu.Unlock()
}

// OnInput reacts to a keystroke: it records the new text, resets the
// selection, and (re)arms the debounce timer. Text too short to normalize
// clears the dropdown with no cache or network access.
func (e *Engine) OnInput(text string) {
	e.mu.Lock()
	e.text = text
	key, ok := NormalizeQuery(text)
	if !ok {
		e.debounce.Cancel()
		e.generation.Add(1) // in-flight fetches must not reopen the cleared dropdown
		e.dropdown.Clear()
		e.mu.Unlock()
		e.render()
		return
	}
	e.dropdown.ResetSelection()
	e.mu.Unlock()

	if e.debounce.Trigger(key, e.lookup) {
		e.counters.AddDebounced()
	}
	e.render()
}

// OnKey feeds a keyboard event to the state machine and tells the caller
// what to do next. For ActionCommit the returned suggestion's name has
// already become the engine's query text; for ActionRecommend the caller
// runs the primary recommend flow with Query().
func (e *Engine) OnKey(k Key) (Action, Suggestion) {
	e.mu.Lock()
	action := ActionNone
	var chosen Suggestion

	switch k {
	case KeyArrowDown:
		e.dropdown.MoveDown()
	case KeyArrowUp:
		e.dropdown.MoveUp()
	case KeyEscape:
		e.dropdown.Escape()
	case KeyEnter:
		if s, ok := e.dropdown.CommitSelected(); ok {
			e.text = s.Name
			e.debounce.Cancel()
			e.generation.Add(1) // in-flight fetches must not undo the commit
			action, chosen = ActionCommit, s
		} else {
			e.dropdown.Escape()
			action = ActionRecommend
		}
	}
	e.mu.Unlock()
	e.render()
	return action, chosen
}

// OnFocus reopens the dropdown when a non-empty list is still in memory.
func (e *Engine) OnFocus() {
	e.mu.Lock()
	e.dropdown.Refocus()
	e.mu.Unlock()
	e.render()
}

// OnPointerOutside closes the dropdown after a click outside the input and
// the dropdown region.
func (e *Engine) OnPointerOutside() {
	e.mu.Lock()
	e.dropdown.PointerOutside()
	e.mu.Unlock()
	e.render()
}

// Query returns the current input text.
func (e *Engine) Query() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// State returns the current render snapshot.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Metrics reads the session telemetry.
func (e *Engine) Metrics() MetricsSnapshot {
	return e.counters.Snapshot()
}

// CacheStats exposes cache occupancy for debugging surfaces.
func (e *Engine) CacheStats() map[string]int {
	return e.cache.Stats()
}

// SetQuietInterval adjusts the debounce window at runtime (config reload).
func (e *Engine) SetQuietInterval(interval time.Duration) {
	e.debounce.SetInterval(interval)
}

// SetCandidateLimit adjusts how many candidates later fetches ask for.
func (e *Engine) SetCandidateLimit(limit int) {
	if limit <= 0 {
		return
	}
	e.mu.Lock()
	e.limit = limit
	e.mu.Unlock()
}

// lookup runs on timer fire: cache first, then dispatch. A hit renders
// immediately and issues no request; a miss shows instant history hints (if
// any) and dispatches a tagged fetch.
func (e *Engine) lookup(key string) {
	e.mu.Lock()
	if list, ok := e.cache.Get(key); ok {
		e.counters.AddCacheHit()
		e.generation.Add(1) // earlier fetches must not replace the hit
		e.dropdown.SetSuggestions(list)
		e.mu.Unlock()
		log.Debugf("Cache hit for query '%s' (%d suggestions)", key, len(list))
		e.render()
		return
	}

	gen := e.generation.Add(1)
	limit := e.limit
	if hints := e.history.Lookup(key, limit); len(hints) > 0 {
		e.dropdown.SetSuggestions(hints)
		log.Debugf("Showing %d local hints for '%s' while fetching", len(hints), key)
	}
	e.mu.Unlock()

	e.counters.AddRequest()
	e.render()
	go e.fetch(key, gen, limit)
}

// fetch performs the network call for one dispatched generation. Failures
// are swallowed into an empty list: the dropdown closes and nothing reaches
// the primary error channel. Stale completions only skip the state update;
// a successful response is still cached under its own key.
func (e *Engine) fetch(key string, gen uint64, limit int) {
	ctx, cancel := context.WithTimeout(context.Background(), e.fetchTimeout)
	defer cancel()

	list, err := e.fetcher.FetchSuggestions(ctx, key, limit)
	if err != nil {
		log.Debugf("Suggestion fetch for '%s' failed: %v", key, err)
		list = nil
	}

	e.mu.Lock()
	if err == nil {
		e.cache.Put(key, list)
		e.history.Add(list)
	}
	if gen != e.generation.Load() {
		e.mu.Unlock()
		log.Debugf("Discarding stale suggestions for '%s'", key)
		return
	}
	e.dropdown.SetSuggestions(list)
	e.mu.Unlock()
	e.render()
}

// render invokes the registered callback outside the engine lock.
func (e *Engine) render() {
	e.mu.Lock()
	fn := e.onRender
	snap := e.snapshotLocked()
	e.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// snapshotLocked builds a Snapshot. Caller holds e.mu.
func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Query:       e.text,
		Suggestions: e.dropdown.Suggestions(),
		Selected:    e.dropdown.Selected(),
		Open:        e.dropdown.IsOpen(),
	}
}
