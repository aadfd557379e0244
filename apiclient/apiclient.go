// Package apiclient talks to the remote language API.
//
// Every call is a logical request keyed by {system: "LanguageFiles", action}
// plus action-specific parameters, and every answer is an envelope:
//
//	{"status": "OK", "data": <payload>}
//	{"status": "ERROR", "error_type": "NotFound", "error_code": 404, "data": "..."}
//
// Two clients are provided: Canned, which answers from fixed data, and
// HTTPClient, which performs the call over HTTP and decodes a JSON envelope.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Action names a remote operation of the LanguageFiles system.
type Action string

const (
	// ActionLanguageFile fetches the PHP language file of an application.
	ActionLanguageFile Action = "getLanguageFile"
	// ActionAppletLanguages lists the languages an applet supports.
	ActionAppletLanguages Action = "getAppletLanguages"
	// ActionAppletLanguageFile fetches the XML language file of an applet.
	ActionAppletLanguageFile Action = "getAppletLanguageFile"
)

// Request parameter names.
const (
	ParamLanguage = "language"
	ParamApplet   = "applet"
)

// Defaults for the routing fields of a request.
const (
	DefaultTarget = "system_api"
	DefaultMode   = "language_api"
	SystemName    = "LanguageFiles"
)

// StatusOK is the only status value that marks a successful envelope.
const StatusOK = "OK"

// Request is a single logical call to the language API.
type Request struct {
	Target string
	Mode   string
	System string
	Action Action
	Params map[string]string
}

// NewRequest builds a request for action with the default target and mode.
// The params map is copied.
func NewRequest(action Action, params map[string]string) *Request {
	return &Request{
		Target: DefaultTarget,
		Mode:   DefaultMode,
		System: SystemName,
		Action: action,
		Params: maps.Clone(params),
	}
}

// Param returns a request parameter, or "" if unset.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// String renders the request for debug output, e.g.
// "getAppletLanguageFile applet=JSM2_MemberApplet language=en".
func (r *Request) String() string {
	var sb strings.Builder
	sb.WriteString(string(r.Action))
	for _, k := range slices.Sorted(maps.Keys(r.Params)) {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(r.Params[k])
	}
	return sb.String()
}

// Response is the envelope returned by every call.
type Response struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	ErrorType Code            `json:"error_type,omitempty"`
	ErrorCode Code            `json:"error_code,omitempty"`
}

// OK wraps data in a successful envelope.
func OK(data any) (*Response, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return &Response{Status: StatusOK, Data: bytes.TrimSpace(buf.Bytes())}, nil
}

// Code is an error type or code that may arrive as a JSON string or number.
type Code string

// UnmarshalJSON accepts "E42", 42 and null.
func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Code(n.String())
	return nil
}

// Client performs calls against the language API.
//
// A nil response with a nil error means the call yielded no result; callers
// treat that as a failed call.
type Client interface {
	Call(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to the Client interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Call implements Client.
func (f Func) Call(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// renderData turns a payload into text for error messages. JSON strings are
// unquoted, anything else is shown as raw JSON.
func renderData(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if isEmptyPayload(raw) {
		return ""
	}
	return string(raw)
}
