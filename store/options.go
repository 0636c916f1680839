package store

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/simplelru"
)

type Option func(*Store) error

// Cache replaces the default read cache.
func Cache(c lru.LRUCache) Option {
	return func(s *Store) error {
		if c == nil {
			return fmt.Errorf("cache must not be nil")
		}
		s.cache = c
		return nil
	}
}

// CacheSize resizes the read cache.
func CacheSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			return fmt.Errorf("cache size must be greater than zero")
		}
		s.cache.Resize(size)
		return nil
	}
}
