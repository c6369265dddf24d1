package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danielmvs/fleetsync/internal/dbx"
	"github.com/danielmvs/fleetsync/internal/models"
	"github.com/google/uuid"
)

// Queued pairs a registration with the idempotency key frozen at enqueue
// time. The key never changes across sync attempts, so a confirmed POST
// whose response was lost cannot double-insert on the next drain.
type Queued struct {
	Registration   *models.Registration
	IdempotencyKey string
}

// InsertRegistration enqueues a record. Records created offline carry a
// negative ID and Offline=true and are stored with pending=1; records
// confirmed online are stored as plain history rows.
func (s *Store) InsertRegistration(ctx context.Context, r *models.Registration) error {
	if err := r.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal registration: %w", err)
	}

	pending := 0
	if r.Offline {
		pending = 1
	}

	query := `INSERT INTO registrations (id, kind, payload, pending, idempotency_key) VALUES (?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, r.ID, string(r.Kind), payload, pending, uuid.NewString())
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}

// Registrations lists the whole queue, oldest first.
func (s *Store) Registrations(ctx context.Context) ([]*models.Registration, error) {
	return s.selectRegistrations(ctx, `SELECT payload FROM registrations ORDER BY created_at ASC, id DESC`)
}

// PendingRegistrations lists records still awaiting server confirmation, in
// the order they were created. The reconciler drains them sequentially so
// earlier writes reach the server first.
func (s *Store) PendingRegistrations(ctx context.Context) ([]*Queued, error) {
	query := `SELECT payload, idempotency_key FROM registrations WHERE pending = 1 ORDER BY created_at ASC, id DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	defer rows.Close()

	var pending []*Queued
	for rows.Next() {
		var payload []byte
		var key string
		if err := rows.Scan(&payload, &key); err != nil {
			return nil, err
		}
		r := &models.Registration{}
		if err := json.Unmarshal(payload, r); err != nil {
			return nil, fmt.Errorf("corrupt queued registration: %w", err)
		}
		pending = append(pending, &Queued{Registration: r, IdempotencyKey: key})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pending, nil
}

// selectRegistrations runs a query that yields payload columns and
// unmarshals each row into a registration.
func (s *Store) selectRegistrations(ctx context.Context, query string, args ...any) ([]*models.Registration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	defer rows.Close()

	var regs []*models.Registration
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		r := &models.Registration{}
		if err := json.Unmarshal(payload, r); err != nil {
			return nil, fmt.Errorf("corrupt queued registration: %w", err)
		}
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

// Confirm atomically replaces the temporary-ID row with the server-confirmed
// record: the pending marker disappears together with the negative ID.
func (s *Store) Confirm(ctx context.Context, tempID int64, confirmed *models.Registration) error {
	if !confirmed.Confirmed() {
		return fmt.Errorf("refusing to confirm registration with non-positive id %d", confirmed.ID)
	}

	payload, err := json.Marshal(confirmed)
	if err != nil {
		return fmt.Errorf("failed to marshal confirmed registration: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = ? AND pending = 1`, tempID)
		if err != nil {
			return fmt.Errorf("failed to remove pending registration: %w", err)
		}
		ra, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if ra != 1 {
			return fmt.Errorf("wrong rows affected count: %d", ra)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO registrations (id, kind, payload, pending, idempotency_key) VALUES (?, ?, ?, 0, ?)`,
			confirmed.ID, string(confirmed.Kind), payload, uuid.NewString())
		if err != nil {
			return fmt.Errorf("failed to insert confirmed registration: %w", err)
		}
		return nil
	})
}
