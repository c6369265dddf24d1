package store

import (
	"context"

	"github.com/danielmvs/fleetsync/internal/models"
)

// emptyList is what Get returns on a cache miss, so callers can always
// unmarshal the result as a JSON array.
var emptyList = []byte("[]")

// Get returns the last-saved snapshot for a category. A miss is not an
// error: the empty JSON array is returned, and storage failures degrade the
// same way (logged, never surfaced).
func (s *Store) Get(ctx context.Context, category models.Category) []byte {
	var body []byte
	query := `SELECT body FROM snapshots WHERE category = ?`
	err := s.db.QueryRowContext(ctx, query, string(category)).Scan(&body)
	if err != nil {
		s.log.Debug(ctx, "snapshot miss", "category", category, "err", err)
		return emptyList
	}
	return body
}

// Save overwrites the whole snapshot for a category (no partial merge:
// reference data is always refetched wholesale, last full read wins).
// Persistence errors are logged and swallowed.
func (s *Store) Save(ctx context.Context, category models.Category, body []byte) {
	query := `INSERT INTO snapshots (category, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(category) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, string(category), body); err != nil {
		s.log.Warn(ctx, "failed to save snapshot", "category", category, "err", err)
	}
}
