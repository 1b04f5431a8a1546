package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/musekit/curator/internal/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend
func New(path string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// itemColumns is the shared SELECT column list for queue items
const itemColumns = `id, source_url, source_id, source_platform, status, age_rating,
	quality_score, content_tags, description, source_rating, author, gender,
	species, generated_char_id, rejection_reason, processed_at, rejected_at,
	created_at, updated_at`

// CreateItem persists a new queue item, assigning its ID and timestamps
func (s *SQLiteStorage) CreateItem(ctx context.Context, item *types.QueueItem, actor string) error {
	if item.Status == "" {
		item.Status = types.StatusPending
	}
	if err := item.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	tagsJSON, err := json.Marshal(item.ContentTags)
	if err != nil {
		return fmt.Errorf("failed to encode content tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO queue_items (
			id, source_url, source_id, source_platform, status, age_rating,
			quality_score, content_tags, description, source_rating, author,
			gender, species, generated_char_id, rejection_reason,
			processed_at, rejected_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID, item.SourceURL, nullString(item.SourceID), nullString(item.SourcePlatform),
		item.Status, nullString(string(item.AgeRating)), item.QualityScore,
		string(tagsJSON), nullString(item.Description), item.SourceRating,
		nullString(item.Author), nullString(item.Gender), nullString(item.Species),
		nullString(item.GeneratedCharID), nullString(item.RejectionReason),
		item.ProcessedAt, item.RejectedAt, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert queue item: %w", err)
	}

	// Record creation event in the same transaction
	eventData, _ := json.Marshal(item)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (item_id, event_type, actor, new_value, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, item.ID, types.EventCreated, actor, string(eventData), now)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return tx.Commit()
}

// GetItem retrieves an item by ID, or nil when missing
func (s *SQLiteStorage) GetItem(ctx context.Context, id string) (*types.QueueItem, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM queue_items WHERE id = ?", itemColumns), id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}
	return item, nil
}

// GetItemBySourceURL retrieves an item by its unique source URL, or nil
// when missing
func (s *SQLiteStorage) GetItemBySourceURL(ctx context.Context, sourceURL string) (*types.QueueItem, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM queue_items WHERE source_url = ?", itemColumns), sourceURL)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item by source url: %w", err)
	}
	return item, nil
}

// Allowed fields for update to prevent SQL injection
var allowedUpdateFields = map[string]bool{
	"status":            true,
	"age_rating":        true,
	"quality_score":     true,
	"content_tags":      true,
	"description":       true,
	"gender":            true,
	"species":           true,
	"generated_char_id": true,
	"rejection_reason":  true,
	"processed_at":      true,
	"rejected_at":       true,
}

// UpdateItem applies allowlisted field updates to an item
func (s *SQLiteStorage) UpdateItem(ctx context.Context, id string, updates map[string]interface{}, actor string) error {
	// Get old item for the audit event
	oldItem, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if oldItem == nil {
		return fmt.Errorf("queue item %s not found", id)
	}

	setClauses := []string{"updated_at = ?"}
	args := []interface{}{time.Now()}

	for key, value := range updates {
		if !allowedUpdateFields[key] {
			return fmt.Errorf("invalid field for update: %s", key)
		}

		switch key {
		case "status":
			status, ok := value.(types.Status)
			if !ok {
				if str, okStr := value.(string); okStr {
					status = types.Status(str)
				} else {
					return fmt.Errorf("status must be a Status value")
				}
			}
			if !status.IsValid() {
				return fmt.Errorf("invalid status: %s", status)
			}
			value = string(status)
		case "age_rating":
			if rating, ok := value.(types.AgeRating); ok {
				if !rating.IsValid() {
					return fmt.Errorf("invalid age rating: %s", rating)
				}
				value = string(rating)
			}
		case "quality_score":
			if score, ok := value.(float64); ok {
				if score < 0 || score > 5 {
					return fmt.Errorf("quality_score must be between 0 and 5 (got %.2f)", score)
				}
			}
		case "content_tags":
			if tags, ok := value.([]types.ContentTag); ok {
				encoded, encErr := json.Marshal(tags)
				if encErr != nil {
					return fmt.Errorf("failed to encode content tags: %w", encErr)
				}
				value = string(encoded)
			}
		}

		setClauses = append(setClauses, fmt.Sprintf("%s = ?", key))
		args = append(args, value)
	}
	args = append(args, id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("UPDATE queue_items SET %s WHERE id = ?", strings.Join(setClauses, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update queue item: %w", err)
	}

	oldData, _ := json.Marshal(oldItem)
	newData, _ := json.Marshal(updates)

	eventType := types.EventUpdated
	if _, ok := updates["status"]; ok {
		eventType = types.EventStatusChanged
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (item_id, event_type, actor, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, eventType, actor, string(oldData), string(newData), time.Now())
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return tx.Commit()
}

// ListByStatus returns items in a status, oldest first, bounded by limit
func (s *SQLiteStorage) ListByStatus(ctx context.Context, status types.Status, limit int) ([]*types.QueueItem, error) {
	return s.ListByStatuses(ctx, []types.Status{status}, limit)
}

// ListByStatuses returns items in any of the statuses, oldest first,
// bounded by limit
func (s *SQLiteStorage) ListByStatuses(ctx context.Context, statuses []types.Status, limit int) ([]*types.QueueItem, error) {
	if len(statuses) == 0 {
		return nil, fmt.Errorf("at least one status is required")
	}

	placeholders := make([]string, len(statuses))
	args := make([]interface{}, 0, len(statuses)+1)
	for i, status := range statuses {
		placeholders[i] = "?"
		args = append(args, string(status))
	}

	query := fmt.Sprintf(`
		SELECT %s FROM queue_items
		WHERE status IN (%s)
		ORDER BY created_at ASC
	`, itemColumns, strings.Join(placeholders, ", "))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetApprovedForGeneration returns APPROVED items not yet converted into
// characters, highest quality score first
func (s *SQLiteStorage) GetApprovedForGeneration(ctx context.Context, limit int) ([]*types.QueueItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM queue_items
		WHERE status = ? AND generated_char_id IS NULL
		ORDER BY quality_score DESC
	`, itemColumns)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, string(types.StatusApproved))
	if err != nil {
		return nil, fmt.Errorf("failed to list approved items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetStatistics returns per-status counts plus the total
func (s *SQLiteStorage) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM queue_items GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count queue items: %w", err)
	}
	defer rows.Close()

	stats := &types.Statistics{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}

		switch types.Status(status) {
		case types.StatusPending:
			stats.Pending = count
		case types.StatusProcessing:
			stats.Processing = count
		case types.StatusApproved:
			stats.Approved = count
		case types.StatusRejected:
			stats.Rejected = count
		case types.StatusFailed:
			stats.Failed = count
		case types.StatusCompleted:
			stats.Completed = count
		}
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status counts: %w", err)
	}

	return stats, nil
}

// GetEvents returns the most recent audit events for an item
func (s *SQLiteStorage) GetEvents(ctx context.Context, itemID string, limit int) ([]*types.Event, error) {
	query := `
		SELECT id, item_id, event_type, actor, old_value, new_value, created_at
		FROM events
		WHERE item_id = ?
		ORDER BY created_at DESC, id DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*types.Event
	for rows.Next() {
		var event types.Event
		var actor, oldValue, newValue sql.NullString
		if err := rows.Scan(&event.ID, &event.ItemID, &event.EventType,
			&actor, &oldValue, &newValue, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Actor = actor.String
		event.OldValue = oldValue.String
		event.NewValue = newValue.String
		events = append(events, &event)
	}
	return events, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// rowScanner abstracts over *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanItem reads one queue item from a row
func scanItem(row rowScanner) (*types.QueueItem, error) {
	var item types.QueueItem
	var sourceID, sourcePlatform, ageRating, description sql.NullString
	var author, gender, species, generatedCharID, rejectionReason sql.NullString
	var qualityScore, sourceRating sql.NullFloat64
	var processedAt, rejectedAt sql.NullTime
	var tagsJSON string

	err := row.Scan(
		&item.ID, &item.SourceURL, &sourceID, &sourcePlatform, &item.Status,
		&ageRating, &qualityScore, &tagsJSON, &description, &sourceRating,
		&author, &gender, &species, &generatedCharID, &rejectionReason,
		&processedAt, &rejectedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.SourceID = sourceID.String
	item.SourcePlatform = sourcePlatform.String
	item.AgeRating = types.AgeRating(ageRating.String)
	item.Description = description.String
	item.Author = author.String
	item.Gender = gender.String
	item.Species = species.String
	item.GeneratedCharID = generatedCharID.String
	item.RejectionReason = rejectionReason.String
	if qualityScore.Valid {
		score := qualityScore.Float64
		item.QualityScore = &score
	}
	if sourceRating.Valid {
		rating := sourceRating.Float64
		item.SourceRating = &rating
	}
	if processedAt.Valid {
		item.ProcessedAt = &processedAt.Time
	}
	if rejectedAt.Valid {
		item.RejectedAt = &rejectedAt.Time
	}

	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &item.ContentTags); err != nil {
			return nil, fmt.Errorf("failed to decode content tags for %s: %w", item.ID, err)
		}
	}

	return &item, nil
}

// scanItems reads all queue items from a result set
func scanItems(rows *sql.Rows) ([]*types.QueueItem, error) {
	var items []*types.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// nullString maps "" to NULL so optional text columns stay NULL-clean
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
