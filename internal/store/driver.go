// Package store guards all reads and writes to the persistent graph store
// behind connection management, a circuit breaker and typed query helpers.
package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Driver is the minimal contract the resilient store requires from a graph
// database driver. Writes must be visible to subsequent reads on the same
// connection and conditional updates must be expressible in the query
// language.
type Driver interface {
	Connect(ctx context.Context, host string, port int) error
	ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// BoltDriver implements Driver over the Neo4j bolt protocol.
type BoltDriver struct {
	user     string
	password string
	driver   neo4j.DriverWithContext
}

// NewBoltDriver creates an unconnected bolt driver with basic auth.
func NewBoltDriver(user, password string) *BoltDriver {
	return &BoltDriver{user: user, password: password}
}

// Connect dials the database and verifies connectivity.
func (d *BoltDriver) Connect(ctx context.Context, host string, port int) error {
	uri := fmt.Sprintf("bolt://%s:%d", host, port)
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(d.user, d.password, ""))
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return fmt.Errorf("failed to verify connectivity: %w", err)
	}
	d.driver = driver
	return nil
}

// ExecuteQuery runs a single Cypher query and collects all result rows.
func (d *BoltDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	if d.driver == nil {
		return nil, fmt.Errorf("driver is not connected")
	}
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.AsMap())
	}
	return rows, nil
}

// Close releases the underlying connection. It is safe to call on an
// unconnected driver.
func (d *BoltDriver) Close(ctx context.Context) error {
	if d.driver == nil {
		return nil
	}
	err := d.driver.Close(ctx)
	d.driver = nil
	return err
}
