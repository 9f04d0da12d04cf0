// Package cli is the interactive line-oriented session: plain input runs the
// primary recommend action, "?prefix" exercises the suggestion engine, colon
// commands reach the admin surface.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/seyard/shopquery/internal/utils"
	"github.com/seyard/shopquery/pkg/client"
	"github.com/seyard/shopquery/pkg/suggest"
)

// InputHandler reads lines from stdin and routes them to the engine, the
// recommend flow, or the admin commands.
type InputHandler struct {
	engine     *suggest.Engine
	backend    *client.Client
	topK       int
	language   string
	showScores bool

	// rendered receives engine snapshots so suggestion updates that arrive
	// after the debounce window can be printed.
	rendered chan suggest.Snapshot
}

// NewInputHandler wires the interactive session.
func NewInputHandler(engine *suggest.Engine, backend *client.Client, topK int, language string, showScores bool) *InputHandler {
	h := &InputHandler{
		engine:     engine,
		backend:    backend,
		topK:       topK,
		language:   language,
		showScores: showScores,
		rendered:   make(chan suggest.Snapshot, 8),
	}
	engine.OnRender(func(snap suggest.Snapshot) {
		select {
		case h.rendered <- snap:
		default:
		}
	})
	return h
}

// Start begins the interface loop. It terminates when stdin closes or a quit
// command is read.
func (h *InputHandler) Start() error {
	log.Printf("ShopQuery session (backend %s)", h.backend.BaseURL())
	log.Print("type a product to get recommendations, ?prefix for suggestions, :help for commands")
	reader := bufio.NewReader(os.Stdin)

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ":quit" || line == ":exit" {
			return nil
		}
		if strings.HasPrefix(line, ":") {
			h.handleCommand(line)
			continue
		}
		if strings.HasPrefix(line, "?") {
			h.handleSuggest(strings.TrimPrefix(line, "?"))
			continue
		}
		h.handleRecommend(line)
	}
}

// handleSuggest pushes the text through the whole suggestion pipeline -
// normalizer, debounce, cache, dispatcher - and prints the resulting
// dropdown list.
func (h *InputHandler) handleSuggest(text string) {
	if _, ok := suggest.NormalizeQuery(text); !ok {
		log.Warnf("Need at least %d characters for suggestions", suggest.MinQueryLength)
		return
	}
	if !utils.IsSearchableQuery(strings.TrimSpace(text)) {
		log.Infof("No results for '%s'", text)
		return
	}

	h.drainSnapshots()
	start := time.Now()
	h.engine.OnInput(text)

	snap := h.awaitSuggestions(3 * time.Second)
	elapsed := time.Since(start)

	if !snap.Open || len(snap.Suggestions) == 0 {
		log.Warnf("No suggestions for '%s'", text)
		return
	}
	log.Printf("Found %d suggestions for '%s' in [ %v ]:", len(snap.Suggestions), text, elapsed)
	for i, s := range snap.Suggestions {
		clName := fmt.Sprintf("\033[38;5;75m%s\033[0m", s.Name)
		if h.showScores && s.Score > 0 {
			log.Printf("%2d. %-40s (%.4f)", i+1, clName, s.Score)
		} else {
			log.Printf("%2d. %s", i+1, clName)
		}
	}
}

// handleRecommend runs the primary recommend action. Failures surface here,
// on the primary error channel, with no retry.
func (h *InputHandler) handleRecommend(query string) {
	ctx, cancel := context.WithTimeout(context.Background(), client.DefaultTimeout)
	defer cancel()

	start := time.Now()
	res, err := h.backend.Recommend(ctx, query, h.topK)
	if err != nil {
		log.Errorf("Recommend failed: %v", err)
		return
	}
	log.Printf("Anchor: %s", res.Anchor.Name)
	h.printItems(res, time.Since(start))
}

// handleCommand dispatches a colon command.
func (h *InputHandler) handleCommand(line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {
	case ":help":
		log.Print(":reload            reload products and rebuild the index")
		log.Print(":stats             product and category statistics")
		log.Print(":metrics           session telemetry (requests, hits, debounced)")
		log.Print(":top N             set recommend depth")
		log.Print(":score on|off      toggle score display")
		log.Print(":image PATH        recommend from an image file")
		log.Print(":voice PATH        recommend from an audio file")
		log.Print(":clearcache        clear the backend category cache")
		log.Print(":quit              exit")
	case ":reload":
		res, err := h.backend.Reload(ctx)
		if err != nil {
			log.Errorf("Reload failed: %v", err)
			return
		}
		log.Printf("Reloaded %s products", utils.FormatWithCommas(res.NumProducts))
	case ":stats":
		res, err := h.backend.Stats(ctx)
		if err != nil {
			log.Errorf("Stats failed: %v", err)
			return
		}
		log.Printf("Products: %s", utils.FormatWithCommas(res.NumProducts))
		for _, cat := range res.TopCategories {
			log.Printf("  %-24s %s", cat.Name, utils.FormatWithCommas(cat.Count))
		}
		if res.CategoryMapper != nil {
			log.Printf("Category cache: %d total, %d valid, %d expired",
				res.CategoryMapper.TotalCached, res.CategoryMapper.ValidCached, res.CategoryMapper.ExpiredCached)
		}
	case ":metrics":
		m := h.engine.Metrics()
		log.Printf("requests: %d  cache hits: %d  debounced: %d  hit rate: %.2f",
			m.Requests, m.CacheHits, m.Debounced, m.HitRate)
	case ":top":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			log.Error("Usage: :top N")
			return
		}
		h.topK = n
		log.Printf("Recommend depth set to %d", n)
	case ":score":
		switch arg {
		case "on":
			h.showScores = true
			log.Print("Score display on")
		case "off":
			h.showScores = false
			log.Print("Score display off")
		default:
			log.Error("Usage: :score on|off")
		}
	case ":image":
		h.handleUpload(arg, true)
	case ":voice":
		h.handleUpload(arg, false)
	case ":clearcache":
		res, err := h.backend.ClearCategoryCache(ctx)
		if err != nil {
			log.Errorf("Clear cache failed: %v", err)
			return
		}
		log.Print(res.Message)
	default:
		log.Errorf("Unknown command: %s (try :help)", cmd)
	}
}

// handleUpload validates and uploads a file. Extension violations are local
// errors; nothing goes on the wire for them.
func (h *InputHandler) handleUpload(path string, image bool) {
	if path == "" {
		log.Error("Missing file path")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), client.UploadTimeout)
	defer cancel()

	start := time.Now()
	var res *client.RecommendResponse
	var err error
	if image {
		res, err = h.backend.RecommendImage(ctx, path, h.topK, "")
	} else {
		res, err = h.backend.RecommendVoice(ctx, path, h.topK, h.language)
	}
	if err != nil {
		log.Errorf("Upload failed: %v", err)
		return
	}

	if res.Understanding != "" {
		log.Printf("Understanding: %s", res.Understanding)
	}
	if res.Transcription != "" {
		log.Printf("Transcription: %s (%s, %.1fs)", res.Transcription, res.Language, res.Duration)
	}
	log.Printf("Anchor: %s", res.Anchor.Name)
	h.printItems(res, time.Since(start))
}

// printItems renders a recommendation list.
func (h *InputHandler) printItems(res *client.RecommendResponse, elapsed time.Duration) {
	log.Debugf("Took [ %v ]", elapsed)
	for i, item := range res.Items {
		clName := fmt.Sprintf("\033[38;5;75m%s\033[0m", item.Name)
		if h.showScores && item.Score > 0 {
			log.Printf("%2d. %-40s (%.4f)", i+1, clName, item.Score)
		} else {
			log.Printf("%2d. %s", i+1, clName)
		}
	}
}

// awaitSuggestions waits for the first snapshot carrying suggestions, or the
// last one seen when the deadline passes.
func (h *InputHandler) awaitSuggestions(wait time.Duration) suggest.Snapshot {
	deadline := time.After(wait)
	var last suggest.Snapshot
	for {
		select {
		case snap := <-h.rendered:
			last = snap
			if snap.Open && len(snap.Suggestions) > 0 {
				return snap
			}
		case <-deadline:
			return last
		}
	}
}

// drainSnapshots discards stale renders from earlier lines.
func (h *InputHandler) drainSnapshots() {
	for {
		select {
		case <-h.rendered:
		default:
			return
		}
	}
}
