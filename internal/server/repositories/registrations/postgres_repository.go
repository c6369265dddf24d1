package registrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danielmvs/fleetsync/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *Record) (int64, error) {
	query :=
		`INSERT INTO registrations (kind, payload, idempotency_key)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (idempotency_key) DO NOTHING
		 RETURNING id
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, query, rec.Kind, rec.Payload, rec.IdempotencyKey).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("db error: %w", err)
	}

	// conflict: a retried submission; hand back the row it created before
	query = `SELECT id FROM registrations WHERE idempotency_key = $1`
	if err := r.db.QueryRowContext(ctx, query, rec.IdempotencyKey).Scan(&id); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Record, error) {
	query := `SELECT id, kind, payload, idempotency_key FROM registrations ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*Record{}
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Payload, &rec.IdempotencyKey); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
