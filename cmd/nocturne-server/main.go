// Command nocturne-server runs the Nocturne memory graph API: a versioned
// knowledge-graph store backed by Neo4j with a SQLite snapshot journal for
// session review and rollback.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/KomuDhara/nocturne-memory/internal/config"
	"github.com/KomuDhara/nocturne-memory/internal/graph"
	"github.com/KomuDhara/nocturne-memory/internal/journal"
	"github.com/KomuDhara/nocturne-memory/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := graph.Open(ctx, graph.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	})
	if err != nil {
		log.Fatalf("Failed to connect to Neo4j: %v", err)
	}
	defer store.Close(context.Background())

	if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
		log.Fatalf("Failed to create journal directory: %v", err)
	}
	jrnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		log.Fatalf("Failed to open snapshot journal: %v", err)
	}
	defer jrnl.Close()

	addr, _, err := server.Start(ctx, cfg, store, jrnl)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Nocturne memory graph API running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}
