// Package layout computes ELK layouts through a supervised ELK server.
//
// A [Client] validates the graph before anything reaches the engine, sends
// it as one request line and parses the reply into an [elk.Layout]:
//
//	client, err := layout.Open(cfg, logger)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	l, err := client.Compute(ctx, graph)
//
// The client never caches. Engine errors keep their codes from
// [github.com/matzehuels/elkbridge/pkg/errors]; a reply that is valid JSON
// but not a layout of the submitted graph is MALFORMED_RESPONSE.
package layout

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/elkbridge/pkg/elk"
	"github.com/matzehuels/elkbridge/pkg/engine"
	"github.com/matzehuels/elkbridge/pkg/errors"
	"github.com/matzehuels/elkbridge/pkg/observability"
)

// Engine is the part of [engine.Supervisor] the client uses.
type Engine interface {
	Exchange(ctx context.Context, payload any) (json.RawMessage, error)
	State() engine.State
	PID() int
	Shutdown()
}

var _ Engine = (*engine.Supervisor)(nil)

// Client computes layouts. It is safe for concurrent use; requests are
// serialized by the engine.
type Client struct {
	engine  Engine
	logger  *log.Logger
	hooks   observability.LayoutHooks
	version string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHooks overrides the registered layout hooks.
func WithHooks(h observability.LayoutHooks) Option {
	return func(c *Client) {
		if h != nil {
			c.hooks = h
		}
	}
}

// WithEngineVersion labels the engine for cache keys and reports.
func WithEngineVersion(v string) Option {
	return func(c *Client) { c.version = v }
}

// NewClient returns a client talking to e.
func NewClient(e Engine, opts ...Option) *Client {
	c := &Client{
		engine: e,
		logger: log.Default(),
		hooks:  observability.Layout(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EngineVersion returns the label set with WithEngineVersion.
func (c *Client) EngineVersion() string { return c.version }

// State returns the engine lifecycle state.
func (c *Client) State() engine.State { return c.engine.State() }

// PID returns the engine pid, or 0 when no engine is running.
func (c *Client) PID() int { return c.engine.PID() }

// Compute validates g, sends it to the engine and returns the layout of
// every element in g.
func (c *Client) Compute(ctx context.Context, g *elk.Graph) (elk.Layout, error) {
	if g == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graph is nil")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	algorithm := g.Algorithm()
	nodes := 0
	g.Walk(func(*elk.Node) { nodes++ })

	c.hooks.OnLayoutStart(ctx, algorithm, nodes)
	start := time.Now()
	l, err := c.compute(ctx, g)
	elapsed := time.Since(start)
	c.hooks.OnLayoutComplete(ctx, algorithm, elapsed, err)

	if err != nil {
		c.logger.Debug("layout failed", "graph", g.ID, "code", errors.GetCode(err), "elapsed", elapsed)
		return nil, err
	}
	c.logger.Debug("layout computed", "graph", g.ID, "nodes", nodes, "elements", len(l), "elapsed", elapsed)
	return l, nil
}

func (c *Client) compute(ctx context.Context, g *elk.Graph) (elk.Layout, error) {
	raw, err := c.engine.Exchange(ctx, g)
	if err != nil {
		return nil, err
	}
	l, err := elk.ParseLayout(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedResponse, err, "elk server returned an invalid layout")
	}
	if missing := l.Missing(g); len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.New(errors.ErrCodeMalformedResponse, "elk server layout is missing %s", summarize(missing))
	}
	return l, nil
}

// ComputeJSON parses and validates a graph document, then computes it.
func (c *Client) ComputeJSON(ctx context.Context, data []byte) (elk.Layout, error) {
	g, err := elk.ParseGraph(data)
	if err != nil {
		return nil, err
	}
	return c.Compute(ctx, g)
}

// Close stops the engine. The client may still be used afterwards; the next
// request launches a new engine.
func (c *Client) Close() error {
	c.engine.Shutdown()
	return nil
}

func summarize(ids []string) string {
	const max = 5
	if len(ids) <= max {
		return strings.Join(ids, ", ")
	}
	return strings.Join(ids[:max], ", ") + ", ..."
}
