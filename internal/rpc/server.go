package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/may-la-specs/internal/logger"
	"github.com/alucardeht/may-la-specs/pkg/specs"
	"github.com/alucardeht/may-la-specs/pkg/version"
)

var log = logger.ForComponent("rpc")

// resyncer is implemented by services that can refresh their index on
// demand, such as *specs.Engine.
type resyncer interface {
	Resync(ctx context.Context) (specs.Diff, error)
}

type Server struct {
	svc specs.Service

	mu    sync.Mutex
	conns map[*jsonrpc2.Conn]struct{}
}

func NewServer(svc specs.Service) *Server {
	return &Server{
		svc:   svc,
		conns: make(map[*jsonrpc2.Conn]struct{}),
	}
}

// Serve accepts connections on ln until ctx is done or ln is closed. Open
// connections are closed before it returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer s.closeAll()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.ServeConn(ctx, conn)
	}
}

// ServeConn handles requests on rwc in the background. Each request runs
// in its own goroutine.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) *jsonrpc2.Conn {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(s.handle)))

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-conn.DisconnectNotify()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()
	return conn
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

func (s *Server) handle(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	result, err := s.dispatch(ctx, req)
	if err != nil {
		log.Debug("request failed", "method", req.Method, "error", err)
		return nil, toWire(err)
	}
	return result, nil
}

func (s *Server) dispatch(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case MethodHealth:
		return HealthResult{Status: "ok", Version: version.Resolve()}, nil

	case MethodContext:
		return s.svc.Context(ctx)

	case MethodSearch:
		var params SearchParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		results, err := s.svc.Search(ctx, params.Query, specs.SearchOptions{
			Limit:  params.Limit,
			Status: params.Status,
		})
		if err != nil {
			return nil, err
		}
		if results == nil {
			results = []specs.SearchResult{}
		}
		return results, nil

	case MethodGetSpec:
		var params GetParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		if params.ID == "" {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "id is required"}
		}
		return s.svc.Get(ctx, params.ID)

	case MethodSync:
		if r, ok := s.svc.(resyncer); ok {
			return r.Resync(ctx)
		}
		fallthrough

	default:
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method not found: %s", req.Method),
		}
	}
}

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return nil
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}
