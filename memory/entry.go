package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known keys.
const (
	KeyHistory = "history.json"
)

// LoadJSON decodes the document stored under key into v. A missing or
// undecodable document leaves v untouched and reports false; only I/O
// failures are returned as errors.
func LoadJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, err := s.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// SaveJSON encodes v with indentation and stores it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, key, err)
	}
	return s.Save(ctx, key, data)
}
