package cypher

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/graphweave/graphweave/backend"
	"github.com/graphweave/graphweave/gwerrors"
)

// PoolConfig carries the Neo4j connection settings.
type PoolConfig struct {
	URI      string
	Username string
	Password string
	Database string
	MaxConns int64
}

// Pool hands out Neo4j sessions capped by a weighted semaphore. The driver
// keeps its own socket pool underneath; the semaphore bounds concurrent
// requests rather than sockets.
type Pool struct {
	driver   neo4j.DriverWithContext
	database string
	sem      *semaphore.Weighted
	log      *logrus.Entry
}

var _ backend.Pool = (*Pool)(nil)

// NewPool creates a Neo4j pool and verifies connectivity before returning.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}
	max := cfg.MaxConns
	if max <= 0 {
		max = 16
	}
	return &Pool{
		driver:   driver,
		database: cfg.Database,
		sem:      semaphore.NewWeighted(max),
		log:      logrus.WithField("component", "cypher.pool"),
	}, nil
}

func (p *Pool) Acquire(ctx context.Context) (backend.Connection, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, &gwerrors.BackendError{Op: "acquire", Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	}
	session := p.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: p.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	return &Conn{session: session, release: func() { p.sem.Release(1) }, log: p.log}, nil
}

func (p *Pool) Close(ctx context.Context) error {
	return p.driver.Close(ctx)
}

// Conn is one Neo4j session with an optional explicit transaction. A nil
// transaction means statements run in their own auto-commit transactions.
type Conn struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	release func()
	log     *logrus.Entry
}

var _ backend.Connection = (*Conn)(nil)

func (c *Conn) Begin(ctx context.Context) error {
	tx, err := c.session.BeginTransaction(ctx)
	if err != nil {
		return wrapBackendErr("begin", err)
	}
	c.tx = tx
	return nil
}

func (c *Conn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit(ctx)
	c.tx = nil
	if err != nil {
		return wrapBackendErr("commit", err)
	}
	return nil
}

func (c *Conn) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback(ctx)
	c.tx = nil
	if err != nil {
		return wrapBackendErr("rollback", err)
	}
	return nil
}

func (c *Conn) Execute(ctx context.Context, stmt backend.Statement) ([]backend.RawRow, error) {
	c.log.WithFields(logrus.Fields{
		"query":  stmt.Query,
		"params": len(stmt.Params),
	}).Debug("executing statement")

	var result neo4j.ResultWithContext
	var err error
	if c.tx != nil {
		result, err = c.tx.Run(ctx, stmt.Query, stmt.Params)
	} else {
		result, err = c.session.Run(ctx, stmt.Query, stmt.Params)
	}
	if err != nil {
		return nil, wrapBackendErr("execute", err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, wrapBackendErr("collect", err)
	}

	rows := make([]backend.RawRow, 0, len(records))
	for _, rec := range records {
		row := backend.RawRow{}
		for _, key := range rec.Keys {
			val, _ := rec.Get(key)
			row[key] = normalize(val)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *Conn) Close(ctx context.Context) error {
	if c.tx != nil {
		c.tx.Rollback(ctx)
		c.tx = nil
	}
	err := c.session.Close(ctx)
	if c.release != nil {
		c.release()
		c.release = nil
	}
	return err
}

// normalize converts driver entities into backend cells so that nothing
// above the connection depends on driver types.
func normalize(val any) any {
	switch v := val.(type) {
	case dbtype.Node:
		cell := backend.NodeCell{Props: map[string]any{}}
		if len(v.Labels) > 0 {
			cell.Label = v.Labels[0]
		}
		for k, pv := range v.Props {
			cell.Props[k] = pv
		}
		if id, ok := cell.Props["id"].(string); ok {
			cell.ID = id
		}
		return cell
	case dbtype.Relationship:
		cell := backend.RelCell{Label: v.Type, Props: map[string]any{}}
		for k, pv := range v.Props {
			cell.Props[k] = pv
		}
		if id, ok := cell.Props["id"].(string); ok {
			cell.ID = id
		}
		return cell
	default:
		return val
	}
}

func wrapBackendErr(op string, err error) error {
	return &gwerrors.BackendError{
		Op:      op,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}
