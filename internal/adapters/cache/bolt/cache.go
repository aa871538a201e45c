package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vncsmyrnk/user-service/internal/core/ports"
	"go.etcd.io/bbolt"
)

const (
	entriesBucket     = "entries"
	generationsBucket = "generations"
)

type entry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cache is a bbolt-backed TTL cache. Each bbolt transaction is serialized, so
// the generation check in SetWithTTL and the bump in Delete are atomic with
// respect to each other.
type Cache struct {
	db  *bbolt.DB
	now func() time.Time
}

type Option func(*Cache)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func Open(path string, opts ...Option) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}

	c := &Cache{db: db, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

var _ ports.Cache = (*Cache)(nil)

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var (
		value      []byte
		generation uint64
		found      bool
	)
	err := c.db.View(func(tx *bbolt.Tx) error {
		generation = readGeneration(tx.Bucket([]byte(generationsBucket)), key)

		payload := tx.Bucket([]byte(entriesBucket)).Get([]byte(key))
		if payload == nil {
			return nil
		}
		var e entry
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("failed to decode cache entry: %w", err)
		}
		if !c.now().Before(e.ExpiresAt) {
			return nil
		}
		value, found = e.Value, true
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if !found {
		return nil, generation, ports.ErrCacheMiss
	}
	return value, generation, nil
}

// SetWithTTL overwrites key unless Delete ran since generation was read, in
// which case it returns ports.ErrCacheStale and stores nothing.
func (c *Cache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration, generation uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("cache ttl must be positive")
	}

	payload, err := json.Marshal(entry{Value: value, ExpiresAt: c.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		if readGeneration(tx.Bucket([]byte(generationsBucket)), key) != generation {
			return ports.ErrCacheStale
		}
		return tx.Bucket([]byte(entriesBucket)).Put([]byte(key), payload)
	})
}

// Delete removes key and advances its generation. Deleting an absent key is
// not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(entriesBucket)).Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete cache entry: %w", err)
		}
		gens := tx.Bucket([]byte(generationsBucket))
		next := readGeneration(gens, key) + 1
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, next)
		return gens.Put([]byte(key), buf)
	})
}

func (c *Cache) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(entriesBucket)) == nil {
			return errors.New("cache bucket is missing")
		}
		return nil
	})
}

// Sweep drops expired entries. Generations are kept so fills racing a sweep
// are still checked against the last invalidation.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	removed := 0
	now := c.now()
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(entriesBucket))

		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var e entry
			if err := json.Unmarshal(v, &e); err != nil || !now.Before(e.ExpiresAt) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("failed to delete expired entry: %w", err)
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

func (c *Cache) ensureBuckets() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{entriesBucket, generationsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func readGeneration(b *bbolt.Bucket, key string) uint64 {
	raw := b.Get([]byte(key))
	if len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}
