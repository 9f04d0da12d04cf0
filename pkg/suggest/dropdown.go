package suggest

// Key identifies a keyboard event consumed by the dropdown state machine.
type Key int

const (
	KeyArrowDown Key = iota
	KeyArrowUp
	KeyEnter
	KeyEscape
)

// Action is what the caller must do after a key event. The engine owns the
// transitions; the presentation layer only reads the resulting state.
type Action int

const (
	// ActionNone needs no follow-up beyond a re-render.
	ActionNone Action = iota
	// ActionCommit replaces the input text with the chosen suggestion.
	ActionCommit
	// ActionRecommend triggers the primary recommend flow for the typed text.
	ActionRecommend
)

// Dropdown tracks visibility and the keyboard-selected index.
// selected is -1 when nothing is highlighted, and is reset to -1 whenever the
// suggestion list or the query text changes.
type Dropdown struct {
	suggestions []Suggestion
	selected    int
	open        bool
}

// NewDropdown starts in the closed state with no selection.
func NewDropdown() *Dropdown {
	return &Dropdown{selected: -1}
}

// SetSuggestions replaces the list. Non-empty opens the dropdown, empty
// closes it; either way the selection resets.
func (dd *Dropdown) SetSuggestions(list []Suggestion) {
	dd.suggestions = list
	dd.selected = -1
	dd.open = len(list) > 0
}

// MoveDown advances the highlight, clamped to the last entry.
func (dd *Dropdown) MoveDown() {
	if !dd.open {
		return
	}
	if dd.selected < len(dd.suggestions)-1 {
		dd.selected++
	}
}

// MoveUp retreats the highlight, clamped to -1 (nothing highlighted).
func (dd *Dropdown) MoveUp() {
	if !dd.open {
		return
	}
	if dd.selected > -1 {
		dd.selected--
	}
}

// CommitSelected returns the highlighted suggestion, closing the dropdown and
// clearing the list. ok is false when nothing was highlighted.
func (dd *Dropdown) CommitSelected() (Suggestion, bool) {
	if !dd.open || dd.selected < 0 || dd.selected >= len(dd.suggestions) {
		return Suggestion{}, false
	}
	chosen := dd.suggestions[dd.selected]
	dd.suggestions = nil
	dd.selected = -1
	dd.open = false
	return chosen, true
}

// ResetSelection drops the highlight without touching list or visibility.
// Invoked whenever the query text changes.
func (dd *Dropdown) ResetSelection() {
	dd.selected = -1
}

// Escape hides the dropdown but keeps the list in memory so a refocus can
// reopen it. The typed text is untouched.
func (dd *Dropdown) Escape() {
	dd.open = false
}

// PointerOutside handles a click outside both the input and the dropdown.
func (dd *Dropdown) PointerOutside() {
	dd.open = false
}

// Refocus reopens the dropdown when a non-empty list is still in memory.
func (dd *Dropdown) Refocus() {
	if len(dd.suggestions) > 0 {
		dd.open = true
	}
}

// Clear drops the list and closes the dropdown.
func (dd *Dropdown) Clear() {
	dd.suggestions = nil
	dd.selected = -1
	dd.open = false
}

// IsOpen reports dropdown visibility.
func (dd *Dropdown) IsOpen() bool { return dd.open }

// Selected returns the highlighted index, -1 for none.
func (dd *Dropdown) Selected() int { return dd.selected }

// Suggestions returns the current list in backend relevance order.
func (dd *Dropdown) Suggestions() []Suggestion { return dd.suggestions }
