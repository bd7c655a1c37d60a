package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ValentinKolb/kvRelay/lib/store"
)

// --------------------------------------------------------------------------
// Actions and client visible error messages
// --------------------------------------------------------------------------

// Action names the operation a client requests
type Action string

const (
	ActionSet       Action = "set"
	ActionGet       Action = "get"
	ActionDelete    Action = "delete"
	ActionIncrement Action = "increment"
	ActionSearch    Action = "search"
)

// Error messages sent to clients. Store errors are never sent verbatim,
// they are mapped to ErrMsgStoreUnavailable or ErrMsgOperationFailed.
const (
	ErrMsgInvalidKeyOrValue = "Invalid key or value"
	ErrMsgInvalidKey        = "Invalid key"
	ErrMsgKeyNotFound       = "Key not found"
	ErrMsgInvalidAddition   = "Invalid key or value for addition"
	ErrMsgUnknownAction     = "Unknown action"
	ErrMsgStoreUnavailable  = "Store unavailable"
	ErrMsgOperationFailed   = "Operation failed"
)

// --------------------------------------------------------------------------
// Command (client -> relay)
// --------------------------------------------------------------------------

// Command is a single decoded client request.
// A command lives only as long as it takes to produce its reply.
type Command struct {
	Action Action `json:"action"`
	Key    string `json:"key,omitempty"` // Used for: set, get, delete, increment
	// Value may be any JSON value, see ValueText. Used for: set, increment (the delta)
	Value json.RawMessage `json:"value,omitempty"`
	// Query filters search results by value equality. nil means no filter.
	Query *string `json:"query,omitempty"`
	// Pattern restricts search to keys matching the glob ("" means every key)
	Pattern string `json:"pattern,omitempty"`
	// Variable is the legacy name of Key, it is only read when Key is empty
	Variable string `json:"variable,omitempty"`
}

// KeyName returns the key the command addresses
func (c *Command) KeyName() string {
	if c.Key != "" {
		return c.Key
	}
	return c.Variable
}

// ValueText returns the textual representation of the value under which it is stored.
// Strings are returned verbatim, every other JSON value as its compact JSON text.
// The boolean is false if the value is absent or null.
func (c *Command) ValueText() (string, bool) {
	if isNull(c.Value) {
		return "", false
	}
	if s, ok := rawString(c.Value); ok {
		return s, true
	}
	if bytes.TrimSpace(c.Value)[0] == '"' {
		return "", false
	}
	return compactText(c.Value), true
}

// NewSetCommand creates a new set command
func NewSetCommand(key, value string) Command {
	return Command{
		Action: ActionSet,
		Key:    key,
		Value:  quote(value),
	}
}

// NewGetCommand creates a new get command
func NewGetCommand(key string) Command {
	return Command{
		Action: ActionGet,
		Key:    key,
	}
}

// NewDeleteCommand creates a new delete command
func NewDeleteCommand(key string) Command {
	return Command{
		Action: ActionDelete,
		Key:    key,
	}
}

// NewIncrementCommand creates a new increment command, the delta is sent as a string
func NewIncrementCommand(key string, delta int64) Command {
	return Command{
		Action: ActionIncrement,
		Key:    key,
		Value:  quote(strconv.FormatInt(delta, 10)),
	}
}

// NewSearchCommand creates a new search command. A nil query returns every pair.
func NewSearchCommand(query *string, pattern string) Command {
	return Command{
		Action:  ActionSearch,
		Query:   query,
		Pattern: pattern,
	}
}

// UnmarshalJSON decodes a command without rejecting wrongly typed fields, so that
// they end up as validation errors instead of undecodable messages:
// a non-string action is an unknown action, a non-string key (or variable) is
// an invalid key, a non-string query is compared as its compact JSON text and a
// non-string pattern is ignored.
func (c *Command) UnmarshalJSON(b []byte) error {
	var wire struct {
		Action   json.RawMessage `json:"action"`
		Key      json.RawMessage `json:"key"`
		Value    json.RawMessage `json:"value"`
		Query    json.RawMessage `json:"query"`
		Pattern  json.RawMessage `json:"pattern"`
		Variable json.RawMessage `json:"variable"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	action, _ := rawString(wire.Action)
	key, keyOK := rawString(wire.Key)
	variable, variableOK := rawString(wire.Variable)
	pattern, _ := rawString(wire.Pattern)

	// a wrongly typed key must not fall back to the legacy variable
	if !keyOK && !isNull(wire.Key) {
		variable = ""
	}
	if !variableOK {
		variable = ""
	}

	var query *string
	if !isNull(wire.Query) {
		if q, ok := rawString(wire.Query); ok {
			query = &q
		} else {
			q := compactText(wire.Query)
			query = &q
		}
	}

	var value json.RawMessage
	if len(wire.Value) > 0 {
		value = wire.Value
	}

	*c = Command{
		Action:   Action(action),
		Key:      key,
		Value:    value,
		Query:    query,
		Pattern:  pattern,
		Variable: variable,
	}
	return nil
}

// rawString returns the string held by raw, the boolean is false if raw is not a JSON string
func rawString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// isNull reports whether raw is absent or the JSON null literal
func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// compactText returns the compact JSON text of raw
func compactText(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(bytes.TrimSpace(raw))
	}
	return buf.String()
}

// quote encodes s as a JSON string
func quote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// --------------------------------------------------------------------------
// Reply (relay -> client)
// --------------------------------------------------------------------------

// ReplyType selects the JSON shape of a Reply
type ReplyType uint8

const (
	ReplyTValue  ReplyType = iota // {"key": ..., "value": ...}
	ReplyTSearch                  // {"results": [{"key": ..., "value": ...}, ...]}
	ReplyTError                   // {"error": ...}
)

// Reply is the response to exactly one Command.
type Reply struct {
	Type ReplyType

	Key string
	// Value is a string (set, get), an int64 (increment) or nil (delete)
	Value   any
	Results []store.KeyValue
	Err     string
}

// NewValueReply creates a new {key, value} reply
func NewValueReply(key string, value any) *Reply {
	return &Reply{
		Type:  ReplyTValue,
		Key:   key,
		Value: value,
	}
}

// NewSearchReply creates a new {results} reply. A nil slice is sent as an empty list.
func NewSearchReply(results []store.KeyValue) *Reply {
	if results == nil {
		results = []store.KeyValue{}
	}
	return &Reply{
		Type:    ReplyTSearch,
		Results: results,
	}
}

// NewErrorReply creates a new {error} reply
func NewErrorReply(msg string) *Reply {
	return &Reply{
		Type: ReplyTError,
		Err:  msg,
	}
}

// IsError reports whether the reply carries an error
func (r *Reply) IsError() bool {
	return r.Type == ReplyTError
}

// MarshalJSON encodes the reply in the shape selected by its type
func (r Reply) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case ReplyTError:
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Err})
	case ReplyTSearch:
		results := r.Results
		if results == nil {
			results = []store.KeyValue{}
		}
		return json.Marshal(struct {
			Results []store.KeyValue `json:"results"`
		}{results})
	default:
		return json.Marshal(struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		}{r.Key, r.Value})
	}
}

// UnmarshalJSON decodes any of the three reply shapes.
// Integer values are decoded as int64, strings as string and null as nil.
func (r *Reply) UnmarshalJSON(b []byte) error {
	var wire struct {
		Key     *string          `json:"key"`
		Value   json.RawMessage  `json:"value"`
		Results []store.KeyValue `json:"results"`
		Error   *string          `json:"error"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	switch {
	case wire.Error != nil:
		*r = *NewErrorReply(*wire.Error)
	case wire.Results != nil:
		*r = *NewSearchReply(wire.Results)
	case wire.Key != nil:
		value, err := decodeValue(wire.Value)
		if err != nil {
			return err
		}
		*r = *NewValueReply(*wire.Key, value)
	default:
		return fmt.Errorf("unrecognized reply: %s", b)
	}
	return nil
}

// decodeValue decodes the value of a {key, value} reply
func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.String(), nil
	}
	return v, nil
}
