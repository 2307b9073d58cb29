package friskd

import (
	"encoding/json"

	"frisk/internal/model"
)

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
	// CodeConfigError reports search parameters that were rejected before
	// anything ran.
	CodeConfigError = -32001
)

const MethodNotify = "search.notify"

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

type ErrorObject struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData locates a configuration error in the request.
type ErrorData struct {
	Field   string `json:"field,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Offset  int    `json:"offset"`
}

// Notification is a server-initiated message; it has no id.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type ContextParams struct {
	ContextID string `json:"context_id"`
}

type ContextOpenResult struct {
	ContextID string `json:"context_id"`
}

type SearchStartParams struct {
	ContextID string             `json:"context_id"`
	Params    model.SearchParams `json:"params"`
}

type SearchStartResult struct {
	SearchID model.SearchID `json:"search_id"`
}

type SearchStatusResult struct {
	Running  bool           `json:"running"`
	SearchID model.SearchID `json:"search_id"`
	Summary  model.Summary  `json:"summary"`

	// Params is nil until the context has started a search.
	Params *model.SearchParams `json:"params,omitempty"`
}

type EntryAtParams struct {
	ContextID string `json:"context_id"`
	Offset    int    `json:"offset"`
}

// FindParams leaves an option nil to use the daemon's configured default.
type FindParams struct {
	ContextID     string `json:"context_id"`
	Text          string `json:"text"`
	Regex         *bool  `json:"regex,omitempty"`
	CaseSensitive *bool  `json:"case_sensitive,omitempty"`
	WholeWord     *bool  `json:"whole_word,omitempty"`
	From          int    `json:"from"`
}

type FindResult struct {
	Found  bool `json:"found"`
	Offset int  `json:"offset"`
	Length int  `json:"length"`
}

type NotifyParams struct {
	ContextID    string             `json:"context_id"`
	Notification model.Notification `json:"notification"`
}
