package storage

import (
	"context"
	"errors"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

var _ Store = (*CachedStore)(nil)

// CachedStore is a read-through, write-through cache in front of a slower store.
type CachedStore struct {
	next  Store
	cache *freecache.Cache
}

// NewCachedStore wraps next with a cache of the given size in bytes (freecache enforces
// a 512KB minimum).
func NewCachedStore(next Store, sizeBytes int) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: freecache.NewCache(sizeBytes),
	}
}

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if v, err := s.cache.Get([]byte(key)); err == nil {
		return v, nil
	}

	v, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set([]byte(key), v, 0); err != nil {
		// too large for the cache, serve it uncached
		log.Tracef("cache set %s: %s", key, err)
	}
	return v, nil
}

func (s *CachedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.next.Set(ctx, key, value); err != nil {
		s.cache.Del([]byte(key))
		return err
	}
	if err := s.cache.Set([]byte(key), value, 0); err != nil {
		s.cache.Del([]byte(key))
	}
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, key string) error {
	s.cache.Del([]byte(key))
	if err := s.next.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *CachedStore) Close() error {
	s.cache.Clear()
	return s.next.Close()
}
