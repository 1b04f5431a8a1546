// Package storage defines the record store the curation pipeline runs
// over. The store is the only durable shared state in the system.
package storage

import (
	"context"
	"errors"

	"github.com/musekit/curator/internal/storage/sqlite"
	"github.com/musekit/curator/internal/types"
)

// ErrNotFound is returned when a queue item does not exist
var ErrNotFound = errors.New("queue item not found")

// Storage defines the interface for queue item storage backends
type Storage interface {
	// CreateItem persists a new queue item, assigning ID and timestamps.
	// Inserting an existing source URL fails the unique constraint; intake
	// is expected to fetch-by-URL first.
	CreateItem(ctx context.Context, item *types.QueueItem, actor string) error

	// GetItem retrieves an item by ID, or nil when missing
	GetItem(ctx context.Context, id string) (*types.QueueItem, error)

	// GetItemBySourceURL retrieves an item by its unique source URL, or
	// nil when missing
	GetItemBySourceURL(ctx context.Context, sourceURL string) (*types.QueueItem, error)

	// UpdateItem applies allowlisted field updates to an item
	UpdateItem(ctx context.Context, id string, updates map[string]interface{}, actor string) error

	// ListByStatus returns items in a status, oldest first, bounded by limit
	ListByStatus(ctx context.Context, status types.Status, limit int) ([]*types.QueueItem, error)

	// ListByStatuses returns items in any of the statuses, oldest first,
	// bounded by limit
	ListByStatuses(ctx context.Context, statuses []types.Status, limit int) ([]*types.QueueItem, error)

	// GetApprovedForGeneration returns APPROVED items not yet converted
	// into characters, highest quality score first
	GetApprovedForGeneration(ctx context.Context, limit int) ([]*types.QueueItem, error)

	// GetStatistics returns per-status counts plus the total
	GetStatistics(ctx context.Context) (*types.Statistics, error)

	// GetEvents returns the most recent audit events for an item
	GetEvents(ctx context.Context, itemID string, limit int) ([]*types.Event, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path.
	// Default: ".curator/queue.db"
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".curator/queue.db",
	}
}

// NewStorage creates a new SQLite storage backend
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = ".curator/queue.db"
	}
	return sqlite.New(cfg.Path)
}
