// Package graph implements the versioned knowledge-graph store on top of
// Neo4j. Entities accrue an append-only chain of state snapshots linked by
// PREVIOUS edges with a single CURRENT pointer per entity; relationships are
// modeled as independently versioned direct and relay edges between states.
//
// Every exported operation runs as one atomic transaction against the
// backing store. The sole exception is EvolveRelationship, which composes a
// sequence of independently committing transactions (see evolve.go).
package graph

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"
)

// Config holds the connection settings for the backing Neo4j instance.
type Config struct {
	URI      string // bolt:// or neo4j:// URI
	Username string
	Password string
	Database string // empty selects the server default database
}

// Store is the handle to the knowledge graph. It is constructed explicitly
// and injected into every component that needs it; the host process owns
// its lifecycle.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	breaker  *gobreaker.CircuitBreaker

	// createdBy is stamped onto every state this store writes.
	createdBy string
}

// Open connects to Neo4j, verifies connectivity, and ensures the uniqueness
// constraints and indexes the store relies on.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("graph: failed to create driver for %s: %w", cfg.URI, err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph: failed to reach %s: %w", cfg.URI, err)
	}

	s := &Store{
		driver:    driver,
		database:  cfg.Database,
		createdBy: "ai_agent",
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "neo4j",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Domain errors (not found, conflict, validation) are normal
		// outcomes and must not open the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || isDomainError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("graph: circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	if err := s.ensureConstraints(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	return s, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// ensureConstraints creates the uniqueness constraints on entity and state
// ids plus the entity_id index used by version-chain lookups.
func (s *Store) ensureConstraints(ctx context.Context) error {
	statements := []string{
		`CREATE CONSTRAINT entity_id_unique IF NOT EXISTS
		 FOR (e:Entity) REQUIRE e.id IS UNIQUE`,
		`CREATE CONSTRAINT state_id_unique IF NOT EXISTS
		 FOR (s:State) REQUIRE s.id IS UNIQUE`,
		`CREATE INDEX state_entity_id_index IF NOT EXISTS
		 FOR (s:State) ON (s.entity_id)`,
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("graph: failed to ensure constraints: %w", err)
		}
	}
	return nil
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// write runs work inside a single managed write transaction, routed through
// the circuit breaker so a down store fails fast.
func (s *Store) write(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	return s.breaker.Execute(func() (any, error) {
		session := s.session(ctx, neo4j.AccessModeWrite)
		defer session.Close(ctx)
		return session.ExecuteWrite(ctx, work)
	})
}

// read runs work inside a single managed read transaction, routed through
// the circuit breaker.
func (s *Store) read(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	return s.breaker.Execute(func() (any, error) {
		session := s.session(ctx, neo4j.AccessModeRead)
		defer session.Close(ctx)
		return session.ExecuteRead(ctx, work)
	})
}

// now returns the timestamp stamped onto nodes and edges at write time.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// one consumes a result and returns its first record, or nil when the
// result is empty.
func one(ctx context.Context, result neo4j.ResultWithContext) (*neo4j.Record, error) {
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func recordString(record *neo4j.Record, key string) string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return ""
	}
	str, _ := value.(string)
	return str
}

func recordInt(record *neo4j.Record, key string) int64 {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return 0
	}
	n, _ := value.(int64)
	return n
}

func recordBool(record *neo4j.Record, key string) bool {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return false
	}
	b, _ := value.(bool)
	return b
}

// recordBoolPtr distinguishes an absent/null property from an explicit
// false: it returns nil for the former.
func recordBoolPtr(record *neo4j.Record, key string) *bool {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return nil
	}
	b, ok := value.(bool)
	if !ok {
		return nil
	}
	return &b
}

func recordStrings(record *neo4j.Record, key string) []string {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return nil
	}
	raw, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// kindFromLabels extracts the first classifying label, skipping the generic
// Entity label.
func kindFromLabels(labels []string) string {
	for _, label := range labels {
		if label != "Entity" {
			return label
		}
	}
	return "unknown"
}

// snippet truncates content for list views.
// snippet caps content at max characters. Truncation counts runes, not
// bytes, so multi-byte text is never cut mid-rune.
func snippet(content string, max int) string {
	runes := []rune(content)
	if len(runes) > max {
		return string(runes[:max]) + " [truncated]"
	}
	return content
}
