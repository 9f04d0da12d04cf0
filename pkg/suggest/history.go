package suggest

import (
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// HistoryIndex keeps every suggestion fetched this session in a patricia trie
// keyed by lowercased name, so the engine can show instant local hints on a
// cache miss while the network fetch is still pending. Session-scoped, never
// persisted.
type HistoryIndex struct {
	trie *patricia.Trie
	mu   sync.RWMutex
}

// NewHistoryIndex creates an empty index.
func NewHistoryIndex() *HistoryIndex {
	return &HistoryIndex{trie: patricia.NewTrie()}
}

// Add records the suggestions under their lowercased names. Later inserts for
// the same name overwrite earlier ones.
func (hi *HistoryIndex) Add(list []Suggestion) {
	hi.mu.Lock()
	defer hi.mu.Unlock()
	for _, s := range list {
		if s.Name == "" {
			continue
		}
		hi.trie.Set(patricia.Prefix(strings.ToLower(s.Name)), s)
	}
}

// Lookup returns up to limit suggestions whose name starts with prefix,
// matched case-insensitively. Order follows the trie walk, not relevance.
func (hi *HistoryIndex) Lookup(prefix string, limit int) []Suggestion {
	hi.mu.RLock()
	defer hi.mu.RUnlock()

	var hints []Suggestion
	lower := strings.ToLower(prefix)

	err := hi.trie.VisitSubtree(patricia.Prefix(lower), func(p patricia.Prefix, item patricia.Item) error {
		if limit > 0 && len(hints) >= limit {
			return patricia.SkipSubtree
		}
		s, ok := item.(Suggestion)
		if !ok {
			log.Errorf("Unknown item type: %T for name %s", item, p)
			return nil
		}
		hints = append(hints, s)
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting history subtree: %v", err)
	}
	return hints
}

// Size returns the number of distinct names indexed.
func (hi *HistoryIndex) Size() int {
	hi.mu.RLock()
	defer hi.mu.RUnlock()
	count := 0
	hi.trie.Visit(func(patricia.Prefix, patricia.Item) error {
		count++
		return nil
	})
	return count
}
