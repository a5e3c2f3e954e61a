package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SetJSON stores v as a JSON document.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("[store SetJSON] marshal %s: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}

// GetJSON loads the JSON document under key. Missing keys return ErrNotFound.
func GetJSON[T any](ctx context.Context, s Store, key string) (*T, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("[store GetJSON] malformed document %s: %w", key, err)
	}
	return &v, nil
}

// ReplaceJSON rewrites the document under key without extending its lifetime.
func ReplaceJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("[store ReplaceJSON] marshal %s: %w", key, err)
	}
	return s.Replace(ctx, key, data)
}
