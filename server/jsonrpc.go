package server

import (
	"encoding/json"

	"github.com/moonraker-sim/moonraker-sim/sim"
)

// Version is the only protocol version accepted or emitted.
const Version = "2.0"

// JSON-RPC 2.0 error codes, plus domain codes in the server-error range.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeStateError  = -32000
	CodeNotFound    = -32001
	CodeIdempotency = -32002
)

// Request is a validated inbound JSON-RPC message. ID is nil for notifications.
type Request struct {
	Method string
	Params json.RawMessage
	ID     json.RawMessage
}

// Notification reports whether the request must not produce a response.
func (r *Request) Notification() bool {
	return r.ID == nil
}

// Response is the outbound side of a request. Exactly one of Result and Error
// is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// RPCError is the JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// Notify is an outbound JSON-RPC notification frame.
type Notify struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// NewNotify frames a notification.
func NewNotify(method string, params any) Notify {
	return Notify{JSONRPC: Version, Method: method, Params: params}
}

// DecodeRequest validates one frame. Invalid JSON yields CodeParseError; a
// structurally valid JSON value that is not a proper envelope (missing
// jsonrpc, non-string method) yields CodeInvalidRequest.
func DecodeRequest(data []byte) (*Request, *RPCError) {
	var raw struct {
		JSONRPC json.RawMessage `json:"jsonrpc"`
		Method  json.RawMessage `json:"method"`
		Params  json.RawMessage `json:"params"`
		ID      json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &RPCError{Code: CodeParseError, Message: "invalid JSON frame"}
	}
	var version string
	if raw.JSONRPC == nil || json.Unmarshal(raw.JSONRPC, &version) != nil || version != Version {
		return nil, &RPCError{Code: CodeInvalidRequest, Message: `missing or invalid "jsonrpc" member`}
	}
	var method string
	if raw.Method == nil || json.Unmarshal(raw.Method, &method) != nil || method == "" {
		return nil, &RPCError{Code: CodeInvalidRequest, Message: `missing or invalid "method" member`}
	}
	return &Request{Method: method, Params: raw.Params, ID: raw.ID}, nil
}

// errorFrom maps engine errors onto RPC error objects.
func errorFrom(err error) *RPCError {
	if rpcErr, ok := err.(*RPCError); ok {
		return rpcErr
	}
	code := CodeInternalError
	switch sim.KindOf(err) {
	case sim.KindValidation:
		code = CodeInvalidParams
	case sim.KindNotFound:
		code = CodeNotFound
	case sim.KindState:
		code = CodeStateError
	case sim.KindIdempotency:
		code = CodeIdempotency
	}
	return &RPCError{Code: code, Message: err.Error()}
}
