package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var _ KV = (*KVRepo)(nil)

type KVRepo struct{ db *sqlx.DB }

func NewKVRepo(db *sqlx.DB) *KVRepo { return &KVRepo{db: db} }

func (r *KVRepo) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.GetContext(ctx, &v, `SELECT value FROM kv_store WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *KVRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_store(key, value, updated_at)
		VALUES(?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE
		SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

func (r *KVRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
	return err
}
