package kv

import (
	"context"
	"fmt"

	"github.com/lorekeep/lorekeep/internal/db"
)

// Surreal is a Store backed by the SurrealDB kvstore table. Each key maps to
// one record; values are opaque serialized strings.
type Surreal struct {
	client *db.Client
}

// NewSurreal creates a SurrealDB-backed store. The client's schema must have
// been initialized.
func NewSurreal(client *db.Client) *Surreal {
	return &Surreal{client: client}
}

type kvRow struct {
	Value string `json:"value"`
}

func (s *Surreal) Get(ctx context.Context, key string) (string, error) {
	results, err := db.Query[[]kvRow](ctx, s.client, `
		SELECT value FROM type::record("kvstore", $key)
	`, map[string]any{"key": key})
	if err != nil {
		return "", fmt.Errorf("kv get: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", ErrNotFound
	}
	return (*results)[0].Result[0].Value, nil
}

func (s *Surreal) Set(ctx context.Context, key, value string) error {
	_, err := db.Query[any](ctx, s.client, `
		UPSERT type::record("kvstore", $key) SET value = $value, updated_at = time::now()
	`, map[string]any{"key": key, "value": value})
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

func (s *Surreal) Remove(ctx context.Context, key string) error {
	_, err := db.Query[any](ctx, s.client, `
		DELETE type::record("kvstore", $key)
	`, map[string]any{"key": key})
	if err != nil {
		return fmt.Errorf("kv remove: %w", err)
	}
	return nil
}
