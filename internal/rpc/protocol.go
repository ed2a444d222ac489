// Package rpc exposes the engine as JSON-RPC 2.0 over a local socket. The
// daemon runs a Server; the CLI talks to it through a Client.
package rpc

import (
	"errors"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/may-la-specs/internal/spec"
)

const (
	MethodHealth  = "health"
	MethodContext = "context"
	MethodSearch  = "search"
	MethodGetSpec = "spec.get"
	MethodSync    = "sync"
)

// Application error codes, outside the range reserved by JSON-RPC.
const (
	CodeStoreUnavailable int64 = -32003
	CodeNotFound         int64 = -32004
)

type HealthResult struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type SearchParams struct {
	Query  string      `json:"query"`
	Limit  int         `json:"limit,omitempty"`
	Status spec.Status `json:"status,omitempty"`
}

type GetParams struct {
	ID string `json:"id"`
}

// toWire maps an engine error onto a JSON-RPC error object.
func toWire(err error) *jsonrpc2.Error {
	var wire *jsonrpc2.Error
	switch {
	case errors.As(err, &wire):
		return wire
	case errors.Is(err, spec.ErrNotFound):
		return &jsonrpc2.Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, spec.ErrStoreUnavailable):
		return &jsonrpc2.Error{Code: CodeStoreUnavailable, Message: err.Error()}
	default:
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	}
}

// fromWire restores the sentinel behind a JSON-RPC error so callers can use
// errors.Is on both sides of the socket.
func fromWire(err error) error {
	var wire *jsonrpc2.Error
	if !errors.As(err, &wire) {
		return err
	}
	switch wire.Code {
	case CodeNotFound:
		return &remoteError{msg: wire.Message, sentinel: spec.ErrNotFound}
	case CodeStoreUnavailable:
		return &remoteError{msg: wire.Message, sentinel: spec.ErrStoreUnavailable}
	default:
		return err
	}
}

// remoteError keeps the daemon's message verbatim and unwraps to the
// matching sentinel.
type remoteError struct {
	msg      string
	sentinel error
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.sentinel }
