package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// ConfigLoader loads the raw question-config JSONB document from Postgres.
type ConfigLoader struct {
	pool *pgxpool.Pool
	id   string
}

func NewConfigLoader(pool *pgxpool.Pool, id string) *ConfigLoader {
	return &ConfigLoader{pool: pool, id: id}
}

func (l *ConfigLoader) LoadConfig(ctx context.Context) ([]byte, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_configs WHERE id=$1`, l.id).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("load question config %q: %w", l.id, err)
	}
	return raw, nil
}
