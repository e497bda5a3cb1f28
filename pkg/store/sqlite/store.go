package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-optionbuilder/pkg/store"
)

var _ store.Store = (*OptionStore)(nil)

// OptionStore implements store.Store on top of the options and entity_meta
// tables. Values are stored JSON-encoded.
type OptionStore struct {
	db *DB
}

// NewOptionStore creates a store over a migrated database.
func NewOptionStore(db *DB) *OptionStore {
	return &OptionStore{db: db}
}

// Options returns every stored site option.
func (s *OptionStore) Options(ctx context.Context) (map[string]any, error) {
	rows, err := s.db.DB.QueryContext(ctx, `SELECT key, value FROM options`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query options: %w", err)
	}
	defer rows.Close()

	result := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("sqlite: scan option: %w", err)
		}
		decoded, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("sqlite: decode option %q: %w", key, err)
		}
		result[key] = decoded
	}
	return result, rows.Err()
}

// SetOption inserts or replaces a site option.
func (s *OptionStore) SetOption(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sqlite: encode option %q: %w", key, err)
	}
	_, err = s.db.DB.ExecContext(ctx, `
		INSERT INTO options (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, string(raw))
	if err != nil {
		return fmt.Errorf("sqlite: save option %q: %w", key, err)
	}
	return nil
}

// SetMeta inserts or replaces an entity meta value.
func (s *OptionStore) SetMeta(ctx context.Context, entityID, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sqlite: encode meta %q: %w", key, err)
	}
	_, err = s.db.DB.ExecContext(ctx, `
		INSERT INTO entity_meta (entity_id, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(entity_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, entityID, key, string(raw))
	if err != nil {
		return fmt.Errorf("sqlite: save meta %q for %q: %w", key, entityID, err)
	}
	return nil
}

// Get retrieves the meta value stored under key.
func (s *OptionStore) Get(ctx context.Context, entityID, key string) (any, bool, error) {
	raw, ok, err := s.rawMeta(ctx, entityID, key)
	if err != nil || !ok {
		return nil, false, err
	}
	decoded, err := decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: decode meta %q for %q: %w", key, entityID, err)
	}
	return decoded, true, nil
}

// GetScoped decodes the JSON object stored under containerKey. Rows that do
// not hold an object are reported as absent.
func (s *OptionStore) GetScoped(ctx context.Context, entityID, containerKey string) (map[string]any, error) {
	raw, ok, err := s.rawMeta(ctx, entityID, containerKey)
	if err != nil || !ok {
		return nil, err
	}
	var scoped map[string]any
	if err := json.Unmarshal([]byte(raw), &scoped); err != nil {
		return nil, nil
	}
	return scoped, nil
}

func (s *OptionStore) rawMeta(ctx context.Context, entityID, key string) (string, bool, error) {
	var raw string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT value FROM entity_meta WHERE entity_id = ? AND key = ?`,
		entityID, key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlite: query meta %q for %q: %w", key, entityID, err)
	}
	return raw, true, nil
}

func decode(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}
