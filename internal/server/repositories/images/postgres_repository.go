package images

import (
	"context"
	"fmt"

	"github.com/danielmvs/fleetsync/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, key string) error {
	query := `INSERT INTO images (key) VALUES ($1) ON CONFLICT (key) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}
