package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

// Default breaker parameters.
const (
	DefaultBreakerThreshold   = 5
	DefaultBreakerResetWindow = 30 * time.Second
)

// schemaQueries are run idempotently on every successful connect.
var schemaQueries = []string{
	`CREATE CONSTRAINT job_id IF NOT EXISTS FOR (j:Job) REQUIRE j.id IS UNIQUE`,
	`CREATE CONSTRAINT execution_id IF NOT EXISTS FOR (e:WorkflowExecution) REQUIRE e.id IS UNIQUE`,
	`CREATE CONSTRAINT step_execution_id IF NOT EXISTS FOR (s:StepExecution) REQUIRE s.id IS UNIQUE`,
	`CREATE INDEX job_status IF NOT EXISTS FOR (j:Job) ON (j.status, j.createdAt)`,
}

// ResilientStore is the guarded entry point for every graph store
// operation. A circuit breaker bounds the blast radius of a degraded
// store; failures are never retried inside Execute.
type ResilientStore struct {
	driver  Driver
	breaker *Breaker

	mu        sync.Mutex
	connected bool
}

// NewResilientStore wraps a driver with a fresh breaker using the default
// threshold and reset window.
func NewResilientStore(driver Driver) *ResilientStore {
	return NewResilientStoreWithBreaker(driver, NewBreaker(DefaultBreakerThreshold, DefaultBreakerResetWindow))
}

// NewResilientStoreWithBreaker wraps a driver with the given breaker.
func NewResilientStoreWithBreaker(driver Driver, breaker *Breaker) *ResilientStore {
	return &ResilientStore{driver: driver, breaker: breaker}
}

// Connect attempts to establish the store connection up to maxAttempts
// times, then fails with a NetworkError. On success it initializes the
// schema constraints idempotently.
func (s *ResilientStore) Connect(ctx context.Context, host string, port int, maxAttempts int) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.driver.Connect(ctx, host, port); err != nil {
			lastErr = err
			log.Printf("WARN: store connect attempt %d/%d failed: %v", attempt, maxAttempts, err)
			continue
		}
		// Execute requires the connected flag, so it is raised for the
		// schema pass and dropped again if that pass fails; a later
		// Connect then starts over instead of returning early with the
		// schema missing.
		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()
		if err := s.initSchema(ctx); err != nil {
			s.mu.Lock()
			s.connected = false
			s.mu.Unlock()
			return err
		}
		return nil
	}
	return &domain.NetworkError{Host: host, Port: port, Attempts: maxAttempts, Err: lastErr}
}

func (s *ResilientStore) initSchema(ctx context.Context) error {
	for _, q := range schemaQueries {
		if _, err := s.Execute(ctx, q, nil); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Execute runs a query through the circuit breaker. When the breaker is
// open the call fails immediately with a CircuitOpenError and the
// underlying driver is never touched.
func (s *ResilientStore) Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()
	if !connected {
		return nil, fmt.Errorf("store is not connected")
	}

	if err := s.breaker.Allow(); err != nil {
		return nil, err
	}

	rows, err := s.driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		s.breaker.RecordFailure()
		return nil, fmt.Errorf("store query failed: %w", err)
	}
	s.breaker.RecordSuccess()
	return rows, nil
}

// Disconnect releases the underlying connection. Idempotent.
func (s *ResilientStore) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = false
	s.mu.Unlock()
	return s.driver.Close(ctx)
}

// BreakerState exposes the current breaker state for health reporting.
func (s *ResilientStore) BreakerState() BreakerState {
	return s.breaker.State()
}
