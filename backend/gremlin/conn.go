package gremlin

import (
	"context"
	"errors"
	"fmt"

	gremlingo "github.com/apache/tinkerpop/gremlin-go/v3/driver"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/graphweave/graphweave/backend"
	"github.com/graphweave/graphweave/gwerrors"
)

// PoolConfig carries the Gremlin server connection settings.
type PoolConfig struct {
	URL      string
	Username string
	Password string
	MaxConns int64
}

// Pool wraps one gremlin-go client. The client multiplexes requests over
// its own websocket pool; the semaphore bounds concurrent requests.
type Pool struct {
	client *gremlingo.Client
	sem    *semaphore.Weighted
	log    *logrus.Entry
}

var _ backend.Pool = (*Pool)(nil)

func NewPool(cfg PoolConfig) (*Pool, error) {
	client, err := gremlingo.NewClient(cfg.URL, func(settings *gremlingo.ClientSettings) {
		if cfg.Username != "" {
			settings.AuthInfo = gremlingo.BasicAuthInfo(cfg.Username, cfg.Password)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gremlin client: %w", err)
	}
	max := cfg.MaxConns
	if max <= 0 {
		max = 16
	}
	return &Pool{
		client: client,
		sem:    semaphore.NewWeighted(max),
		log:    logrus.WithField("component", "gremlin.pool"),
	}, nil
}

func (p *Pool) Acquire(ctx context.Context) (backend.Connection, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, &gwerrors.BackendError{Op: "acquire", Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	}
	return &Conn{client: p.client, release: func() { p.sem.Release(1) }, log: p.log}, nil
}

func (p *Pool) Close(ctx context.Context) error {
	p.client.Close()
	return nil
}

// Conn submits traversals through the shared client. Gremlin servers
// commit each traversal on its own, so Begin, Commit, and Rollback are
// no-ops here; a failed request can leave earlier traversals applied.
type Conn struct {
	client  *gremlingo.Client
	release func()
	log     *logrus.Entry
}

var _ backend.Connection = (*Conn)(nil)

func (c *Conn) Begin(ctx context.Context) error    { return nil }
func (c *Conn) Commit(ctx context.Context) error   { return nil }
func (c *Conn) Rollback(ctx context.Context) error { return nil }

func (c *Conn) Execute(ctx context.Context, stmt backend.Statement) ([]backend.RawRow, error) {
	c.log.WithFields(logrus.Fields{
		"query":    stmt.Query,
		"bindings": len(stmt.Params),
	}).Debug("submitting traversal")

	rs, err := c.client.Submit(stmt.Query, stmt.Params)
	if err != nil {
		return nil, wrapBackendErr("submit", err)
	}
	results, err := rs.All()
	if err != nil {
		return nil, wrapBackendErr("collect", err)
	}

	rows := make([]backend.RawRow, 0, len(results))
	for _, res := range results {
		rows = append(rows, toRow(res.GetInterface()))
	}
	return rows, nil
}

func (c *Conn) Close(ctx context.Context) error {
	if c.release != nil {
		c.release()
		c.release = nil
	}
	return nil
}

// toRow normalizes one traversal result. Projected maps keyed src/rel/dst
// become the row directly; anything else lands under the value alias.
func toRow(val any) backend.RawRow {
	if m, ok := asMap(val); ok {
		if _, isProj := m["src"]; isProj {
			row := backend.RawRow{}
			for k, v := range m {
				row[fmt.Sprint(mapKey(k))] = normalize(v)
			}
			return row
		}
	}
	return backend.RawRow{"value": normalize(val)}
}

// normalize converts elementMap results into backend cells. Element maps
// mix property keys (strings) with T and Direction tokens; tokens are
// told apart by dynamic type, falling back to their printed form.
func normalize(val any) any {
	m, ok := asMap(val)
	if !ok {
		return val
	}

	props := map[string]any{}
	meta := map[string]any{}
	for k, v := range m {
		if isToken(k) {
			meta[fmt.Sprint(mapKey(k))] = v
		} else {
			props[fmt.Sprint(mapKey(k))] = v
		}
	}

	label, _ := meta["label"].(string)
	if label == "" {
		// some serializers hand tokens back as plain strings
		label, _ = props["label"].(string)
		delete(props, "label")
	}
	id, _ := props["id"].(string)

	if _, edge := meta["IN"]; edge {
		return backend.RelCell{ID: id, Label: label, Props: props}
	}
	return backend.NodeCell{ID: id, Label: label, Props: props}
}

func asMap(val any) (map[any]any, bool) {
	switch m := val.(type) {
	case map[any]any:
		return m, true
	case map[string]any:
		out := make(map[any]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	default:
		return nil, false
	}
}

// isToken reports whether an element-map key is a T or Direction token
// rather than a property name.
func isToken(k any) bool {
	_, isString := k.(string)
	return !isString
}

func mapKey(k any) any {
	if s, ok := k.(fmt.Stringer); ok {
		return s.String()
	}
	return k
}

func wrapBackendErr(op string, err error) error {
	return &gwerrors.BackendError{
		Op:      op,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}
