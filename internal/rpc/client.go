package rpc

import (
	"context"
	"io"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/may-la-specs/pkg/specs"
)

// Client implements specs.Service against a running daemon.
type Client struct {
	conn *jsonrpc2.Conn
}

var _ specs.Service = (*Client)(nil)

// NewClient speaks JSON-RPC over rwc. The daemon never calls back, so
// incoming requests are ignored.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser) *Client {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	return &Client{conn: jsonrpc2.NewConn(ctx, stream, noopHandler{})}
}

type noopHandler struct{}

func (noopHandler) Handle(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) {}

func (c *Client) Health(ctx context.Context) (*HealthResult, error) {
	var result HealthResult
	if err := c.call(ctx, MethodHealth, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Search(ctx context.Context, query string, opts specs.SearchOptions) ([]specs.SearchResult, error) {
	var results []specs.SearchResult
	params := SearchParams{Query: query, Limit: opts.Limit, Status: opts.Status}
	if err := c.call(ctx, MethodSearch, params, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) Context(ctx context.Context) (*specs.ProjectContext, error) {
	var result specs.ProjectContext
	if err := c.call(ctx, MethodContext, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Get(ctx context.Context, id string) (*specs.Spec, error) {
	var result specs.Spec
	if err := c.call(ctx, MethodGetSpec, GetParams{ID: id}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Resync asks the daemon to reconcile its index with the store now.
func (c *Client) Resync(ctx context.Context) (specs.Diff, error) {
	var diff specs.Diff
	err := c.call(ctx, MethodSync, nil, &diff)
	return diff, err
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	return fromWire(c.conn.Call(ctx, method, params, result))
}
