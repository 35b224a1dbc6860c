// Package cache keeps version content blobs close at hand.
//
// Version blobs are immutable once written, which makes them ideal
// cache entries: no invalidation is ever needed for a hit to be
// correct. Lookups walk three levels:
//
//	L1: in-memory LRU with expiry (fast, bounded)
//	L2: bloom filter cutting short lookups for keys never cached
//	L3: BadgerDB on disk, surviving restarts
package cache

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ContentCache is the three-level blob cache.
type ContentCache struct {
	l1 *expirable.LRU[string, []byte]

	bloom *bloom.BloomFilter
	mu    sync.RWMutex

	l3 *badger.DB

	hits   uint64
	misses uint64
}

// Config holds cache tuning parameters.
type Config struct {
	MemoryItems int           // L1 entry budget
	TTL         time.Duration // L1 entry lifetime
	BloomSize   uint          // expected number of cached blobs
	BloomFPRate float64       // acceptable false positive rate
	Dir         string        // BadgerDB directory
}

// DefaultConfig sizes the cache for a single-team deployment.
func DefaultConfig() Config {
	return Config{
		MemoryItems: 1024,
		TTL:         5 * time.Minute,
		BloomSize:   100000,
		BloomFPRate: 0.01,
		Dir:         "./storage/cache",
	}
}

// New opens the cache, including its on-disk level.
func New(cfg Config) (*ContentCache, error) {
	if cfg.MemoryItems <= 0 {
		cfg.MemoryItems = 1024
	}
	if cfg.BloomSize == 0 {
		cfg.BloomSize = 100000
	}
	if cfg.BloomFPRate == 0 {
		cfg.BloomFPRate = 0.01
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = nil
	opts.SyncWrites = false
	opts.NumVersionsToKeep = 1

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &ContentCache{
		l1:    expirable.NewLRU[string, []byte](cfg.MemoryItems, nil, cfg.TTL),
		bloom: bloom.NewWithEstimates(cfg.BloomSize, cfg.BloomFPRate),
		l3:    db,
	}, nil
}

// VersionKey builds the cache key for one version of one file.
func VersionKey(fileID, versionID string) string {
	return fileID + "/" + versionID
}

// Get walks L1, the bloom filter, then L3. An L3 hit is promoted back
// into L1.
func (c *ContentCache) Get(key string) ([]byte, bool) {
	if value, ok := c.l1.Get(key); ok {
		c.recordHit()
		return value, true
	}

	c.mu.RLock()
	inBloom := c.bloom.Test([]byte(key))
	c.mu.RUnlock()
	if !inBloom {
		c.recordMiss()
		return nil, false
	}

	var value []byte
	err := c.l3.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == nil {
		c.l1.Add(key, value)
		c.recordHit()
		return value, true
	}

	c.recordMiss()
	return nil, false
}

// Set writes the blob through all levels.
func (c *ContentCache) Set(key string, value []byte) error {
	c.l1.Add(key, value)

	c.mu.Lock()
	c.bloom.Add([]byte(key))
	c.mu.Unlock()

	return c.l3.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Close flushes and closes the on-disk level.
func (c *ContentCache) Close() error {
	return c.l3.Close()
}

// Stats reports hit counters for the stats endpoint.
func (c *ContentCache) Stats() Stats {
	c.mu.RLock()
	hits, misses := c.hits, c.misses
	c.mu.RUnlock()

	total := hits + misses
	rate := float64(0)
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
		L1Size:  c.l1.Len(),
	}
}

// Stats holds cache performance counters.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	L1Size  int     `json:"l1_size"`
}

func (c *ContentCache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *ContentCache) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}
