package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/seyard/shopquery/pkg/client"
	"github.com/seyard/shopquery/pkg/config"
	"github.com/seyard/shopquery/pkg/suggest"
)

// Server binds one suggestion engine and one backend client to a msgpack
// stdio stream. Requests are processed in arrival order; asynchronous fetch
// completions are pushed as extra state messages.
type Server struct {
	engine     *suggest.Engine
	backend    *client.Client
	cfg        *config.Config
	configPath string

	dec *msgpack.Decoder
	enc *msgpack.Encoder

	// writeMu serializes response writes against pushed state updates.
	writeMu sync.Mutex

	// syncing suppresses render pushes while a handler drives the engine
	// synchronously; those state changes land in the direct response instead.
	syncing atomic.Bool

	// lastEventID tags pushed updates with the input event that caused them.
	lastEventID string
	idMu        sync.Mutex

	stopWatch chan struct{}
}

// NewServer creates a session server over stdin/stdout.
func NewServer(engine *suggest.Engine, backend *client.Client, cfg *config.Config, configPath string) *Server {
	s := &Server{
		engine:     engine,
		backend:    backend,
		cfg:        cfg,
		configPath: configPath,
		dec:        msgpack.NewDecoder(os.Stdin),
		enc:        msgpack.NewEncoder(os.Stdout),
		stopWatch:  make(chan struct{}),
	}
	engine.OnRender(s.pushState)
	return s
}

// Start emits the ready message and processes requests until stdin closes.
// When a config path is known, suggest-section changes are applied live.
func (s *Server) Start() error {
	log.Debug("Starting session server")
	s.send(ReadyResponse{Status: "ready"})

	if s.configPath != "" {
		go func() {
			if err := config.Watch(s.configPath, s.applyConfig, s.stopWatch); err != nil {
				log.Warnf("Config watch disabled: %v", err)
			}
		}()
		defer close(s.stopWatch)
	}

	for {
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			return err
		}
		s.handleRequest(req)
	}
}

// handleRequest dispatches one decoded message.
func (s *Server) handleRequest(req Request) {
	switch req.Event {
	case EventInput:
		s.handleInput(req)
	case EventKey:
		s.handleKey(req)
	case EventFocus:
		s.trackEvent(req.ID)
		start := time.Now()
		s.runSync(s.engine.OnFocus)
		s.send(s.stateResponse(req.ID, start, "", ""))
	case EventBlur:
		s.trackEvent(req.ID)
		start := time.Now()
		s.runSync(s.engine.OnPointerOutside)
		s.send(s.stateResponse(req.ID, start, "", ""))
	case EventMetrics:
		s.send(MetricsResponse{
			ID:      req.ID,
			Metrics: s.engine.Metrics(),
			Cached:  s.engine.CacheStats()["cachedQueries"],
		})
	case EventAdmin:
		s.handleAdmin(req)
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown event: %s", req.Event), 400)
	}
}

// handleInput feeds a keystroke buffer to the engine. The immediate response
// reflects the pre-fetch state; the fetch completion arrives as a push.
func (s *Server) handleInput(req Request) {
	s.trackEvent(req.ID)
	start := time.Now()
	s.runSync(func() { s.engine.OnInput(req.Text) })
	s.send(s.stateResponse(req.ID, start, "", ""))
}

// handleKey maps wire key names onto state machine events.
func (s *Server) handleKey(req Request) {
	var k suggest.Key
	switch req.Key {
	case "down":
		k = suggest.KeyArrowDown
	case "up":
		k = suggest.KeyArrowUp
	case "enter":
		k = suggest.KeyEnter
	case "esc":
		k = suggest.KeyEscape
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown key: %s", req.Key), 400)
		return
	}

	s.trackEvent(req.ID)
	start := time.Now()
	var action suggest.Action
	var chosen suggest.Suggestion
	s.runSync(func() { action, chosen = s.engine.OnKey(k) })

	actionName, query := "", ""
	switch action {
	case suggest.ActionCommit:
		actionName, query = "commit", chosen.Name
	case suggest.ActionRecommend:
		actionName, query = "recommend", s.engine.Query()
	}
	s.send(s.stateResponse(req.ID, start, actionName, query))
}

// handleAdmin forwards admin actions to the backend synchronously.
func (s *Server) handleAdmin(req Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch req.Action {
	case "reload":
		res, err := s.backend.Reload(ctx)
		if err != nil {
			s.sendError(req.ID, err.Error(), 502)
			return
		}
		s.send(AdminResponse{ID: req.ID, Status: "ok", NumProducts: res.NumProducts})
	case "stats":
		res, err := s.backend.Stats(ctx)
		if err != nil {
			s.sendError(req.ID, err.Error(), 502)
			return
		}
		s.send(AdminResponse{
			ID:          req.ID,
			Status:      "ok",
			NumProducts: res.NumProducts,
			Detail:      fmt.Sprintf("%d categories", len(res.TopCategories)),
		})
	case "clear_category_cache":
		res, err := s.backend.ClearCategoryCache(ctx)
		if err != nil {
			s.sendError(req.ID, err.Error(), 502)
			return
		}
		s.send(AdminResponse{ID: req.ID, Status: "ok", Detail: res.Message})
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown admin action: %s", req.Action), 400)
	}
}

// applyConfig picks up live-tunable suggest settings from a reloaded file.
func (s *Server) applyConfig(cfg *config.Config) {
	if ms := cfg.Suggest.DebounceMs; ms > 0 {
		s.engine.SetQuietInterval(time.Duration(ms) * time.Millisecond)
	}
	s.engine.SetCandidateLimit(cfg.Suggest.MaxCandidates)
	s.cfg = cfg
	log.Debugf("Applied config: debounce=%dms candidates=%d",
		cfg.Suggest.DebounceMs, cfg.Suggest.MaxCandidates)
}

// runSync drives the engine on behalf of one request with render pushes
// suppressed. Requests are handled one at a time, so the direct response
// built afterwards already carries any state change made here.
func (s *Server) runSync(fn func()) {
	s.syncing.Store(true)
	defer s.syncing.Store(false)
	fn()
}

// pushState forwards asynchronous engine state changes to the host, tagged
// with the event that caused them. Renders caused by a synchronous handler
// are skipped; only fetches completing after the response produce a push.
func (s *Server) pushState(snap suggest.Snapshot) {
	if s.syncing.Load() {
		return
	}
	s.idMu.Lock()
	id := s.lastEventID
	s.idMu.Unlock()

	s.send(StateResponse{
		ID:          id,
		Open:        snap.Open,
		Suggestions: snap.Suggestions,
		Selected:    snap.Selected,
		Count:       len(snap.Suggestions),
		Query:       snap.Query,
	})
}

// stateResponse snapshots the engine into a wire response.
func (s *Server) stateResponse(id string, start time.Time, action, query string) StateResponse {
	snap := s.engine.State()
	return StateResponse{
		ID:          id,
		Open:        snap.Open,
		Suggestions: snap.Suggestions,
		Selected:    snap.Selected,
		Count:       len(snap.Suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
		Action:      action,
		Query:       query,
	}
}

func (s *Server) trackEvent(id string) {
	s.idMu.Lock()
	s.lastEventID = id
	s.idMu.Unlock()
}

// send encodes one response onto stdout.
func (s *Server) send(response interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.enc.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

// sendError emits an error message for a failed request.
func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}
