package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Image is a locally cached inspection photo awaiting upload.
type Image struct {
	Key         string
	ContentType string
	Data        []byte
	Pending     bool
}

// SaveImage caches a data-URL encoded photo under key. Like snapshot writes,
// failures (quota, malformed input) are logged and swallowed.
func (s *Store) SaveImage(ctx context.Context, key string, dataURL string) {
	contentType, data, err := decodeDataURL(dataURL)
	if err != nil {
		s.log.Warn(ctx, "failed to decode image data url", "key", key, "err", err)
		return
	}

	query := `INSERT INTO images (key, content_type, data, pending) VALUES (?, ?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET content_type = excluded.content_type, data = excluded.data, pending = 1`
	if _, err := s.db.ExecContext(ctx, query, key, contentType, data); err != nil {
		s.log.Warn(ctx, "failed to save image", "key", key, "err", err)
	}
}

// PendingImages lists photos not yet uploaded, oldest first.
func (s *Store) PendingImages(ctx context.Context) ([]*Image, error) {
	query := `SELECT key, content_type, data FROM images WHERE pending = 1 ORDER BY created_at ASC, key ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	defer rows.Close()

	var pending []*Image
	for rows.Next() {
		img := &Image{Pending: true}
		if err := rows.Scan(&img.Key, &img.ContentType, &img.Data); err != nil {
			return nil, err
		}
		pending = append(pending, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pending, nil
}

// MarkImageSynced clears the pending marker after a successful upload.
func (s *Store) MarkImageSynced(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE images SET pending = 0 WHERE key = ? AND pending = 1`, key)
	if err != nil {
		return fmt.Errorf("failed to mark image synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

// decodeDataURL splits "data:<mediatype>;base64,<payload>" into its content
// type and raw bytes.
func decodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, errors.New("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("malformed data url")
	}

	contentType := "application/octet-stream"
	base64Encoded := false
	for i, part := range strings.Split(meta, ";") {
		if i == 0 && part != "" {
			contentType = part
			continue
		}
		if part == "base64" {
			base64Encoded = true
		}
	}

	if !base64Encoded {
		return contentType, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("bad base64 payload: %w", err)
	}
	return contentType, data, nil
}
