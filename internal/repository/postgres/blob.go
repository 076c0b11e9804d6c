package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"hoja/pkg/errors"
)

// BlobStore is a kv.Store over the kv_blobs table.
type BlobStore struct {
	db *sqlx.DB
}

func NewBlobStore(db *sqlx.DB) *BlobStore {
	return &BlobStore{db: db}
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.db.GetContext(ctx, &value, `SELECT value FROM kv_blobs WHERE key = $1`, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "failed to read blob")
	}
	return value, nil
}

func (s *BlobStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_blobs (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, err.Error())
	}
	return nil
}
