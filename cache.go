// Copyright 2025 The octominmax authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// cacheEntry is a single cached item with its expiry
type cacheEntry struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Cache is a simple JSON file cache with TTLs, isolated per account. It
// holds product-catalog lookups between runs so a daily comparison does not
// re-walk the whole public catalog.
type Cache struct {
	filePath      string
	accountNumber string
	entries       map[string]*cacheEntry
	mutex         sync.RWMutex
	logger        *Logger
}

// NewCache creates a cache persisted under basePath
func NewCache(basePath string, accountNumber string, logger *Logger) (*Cache, error) {
	cache := &Cache{
		filePath:      filepath.Join(basePath, fmt.Sprintf("cache_%s.json", accountNumber)),
		accountNumber: accountNumber,
		entries:       make(map[string]*cacheEntry),
		logger:        logger,
	}

	if err := cache.load(); err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to load cache, starting fresh", "error", err)
		}
	}

	cache.evictExpired()

	logger.Debug("Cache initialized", "path", cache.filePath, "entries", len(cache.entries))

	return cache, nil
}

// Set stores a value with a TTL and persists the cache
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	now := time.Now()
	c.entries[key] = &cacheEntry{
		Data:      data,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	if err := c.save(); err != nil {
		return err
	}

	c.logger.Debug("Cache set", "key", key, "ttl", ttl)
	return nil
}

// Get retrieves a value if present and unexpired
func (c *Cache) Get(key string, target interface{}) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.ExpiresAt) {
		c.logger.Debug("Cache miss", "key", key)
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	c.logger.Debug("Cache hit", "key", key)
	return true, nil
}

// evictExpired drops expired entries; callers hold no lock during startup
func (c *Cache) evictExpired() {
	now := time.Now()
	removed := 0

	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("Evicted expired cache entries", "count", removed)
	}
}

// load reads the cache from disk
func (c *Cache) load() error {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		return fmt.Errorf("failed to unmarshal cache file: %w", err)
	}

	return nil
}

// save writes the cache to disk
func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.WriteFile(c.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// Close evicts expired entries and persists the cache a final time
func (c *Cache) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.evictExpired()
	return c.save()
}
