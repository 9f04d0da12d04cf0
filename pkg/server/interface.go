/*
Package server implements msgpack IPC for the product-search session.

The protocol runs binary msgpack over stdin/stdout so an editor or GUI shell
can drive the suggestion engine and the recommend/admin surface out of
process. Each message carries an ID field; responses echo it. Fetches that
complete after the response was written are pushed as extra state messages
with the same ID.

Input events feed the engine:

	{"id": "ev_001", "ev": "input", "x": "red sh"}
	{"id": "ev_002", "ev": "key", "k": "down"}

The server answers with the dropdown state:

	{"id": "ev_002", "o": true, "s": [{"id": "p1", "n": "red shoes"}], "sel": 0, "c": 1, "t": 112}

Key events may carry an action for the host to perform: "commit" means the
host replaces its input text with the returned query; "recommend" means it
should issue a recommend request for the typed text.

Admin and metrics messages round-trip to the backend or the counters:

	{"id": "adm_01", "ev": "admin", "action": "reload"}
	{"id": "m_01", "ev": "metrics"}

Suggestion failures never produce error messages: the dropdown just closes.
Errors are only emitted for malformed requests and failed admin calls.
*/
package server

import "github.com/seyard/shopquery/pkg/suggest"

// Event names accepted in Request.Event.
const (
	EventInput   = "input"
	EventKey     = "key"
	EventFocus   = "focus"
	EventBlur    = "blur"
	EventMetrics = "metrics"
	EventAdmin   = "admin"
)

// Request is one incoming IPC message. Event selects the handler; the other
// fields are read per event.
type Request struct {
	ID     string `msgpack:"id"`
	Event  string `msgpack:"ev"`
	Text   string `msgpack:"x,omitempty"`      // input
	Key    string `msgpack:"k,omitempty"`      // key: "up", "down", "enter", "esc"
	Action string `msgpack:"action,omitempty"` // admin: "reload", "stats", "clear_category_cache"
	TopK   int    `msgpack:"tk,omitempty"`     // admin recommend depth override
}

// StateResponse reports the dropdown state after an event, plus any action
// the host must perform.
type StateResponse struct {
	ID          string               `msgpack:"id"`
	Open        bool                 `msgpack:"o"`
	Suggestions []suggest.Suggestion `msgpack:"s"`
	Selected    int                  `msgpack:"sel"`
	Count       int                  `msgpack:"c"`
	TimeTaken   int64                `msgpack:"t"`
	Action      string               `msgpack:"a,omitempty"`
	Query       string               `msgpack:"q,omitempty"`
}

// MetricsResponse reports the session telemetry.
type MetricsResponse struct {
	ID      string                  `msgpack:"id"`
	Metrics suggest.MetricsSnapshot `msgpack:"m"`
	Cached  int                     `msgpack:"cq"`
}

// AdminResponse carries the backend's reply to an admin action.
type AdminResponse struct {
	ID          string `msgpack:"id"`
	Status      string `msgpack:"status"`
	NumProducts int    `msgpack:"num_products,omitempty"`
	Detail      string `msgpack:"detail,omitempty"`
}

// ErrorResponse holds basic error information for malformed or failed requests.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

// ReadyResponse signals that the session is accepting events.
type ReadyResponse struct {
	Status string `msgpack:"status"`
}
