package store

import (
	"context"
	"fmt"
)

// NewStore opens a store backend by kind: "fs" (path is a directory) or
// "sqlite" (path is a database file).
func NewStore(ctx context.Context, kind, path string) (Store, error) {
	switch kind {
	case "", "fs":
		return NewFSStore(path)
	case "sqlite":
		s := NewSQLiteStore(path)
		if err := s.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes stores that hold resources.
func CloseIfSupported(s Store) error {
	closer, ok := s.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
