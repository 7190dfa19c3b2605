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
	"time"
)

// Storage persists run results and backs the resolver's lookup cache.
// Comparison state itself is never persisted; only run artifacts and
// cacheable catalog lookups live here.
type Storage struct {
	basePath string
	cache    *Cache
	logger   *Logger
}

// NewStorage creates a storage handler rooted at basePath
func NewStorage(basePath string, accountNumber string, logger *Logger) (*Storage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, &StorageError{
			Operation: "create_directory",
			Path:      basePath,
			Err:       err,
		}
	}

	cache, err := NewCache(basePath, accountNumber, logger)
	if err != nil {
		return nil, &StorageError{
			Operation: "initialize_cache",
			Path:      basePath,
			Err:       err,
		}
	}

	logger.Debug("Storage initialized", "path", basePath)

	return &Storage{
		basePath: basePath,
		cache:    cache,
		logger:   logger,
	}, nil
}

// SaveRunResult saves one comparison run's outcome
func (s *Storage) SaveRunResult(result *RunResult, accountNumber string) error {
	filename := fmt.Sprintf("%s_run_%s.json", accountNumber, result.GeneratedAt.Format("2006-01-02_15-04-05"))
	path := filepath.Join(s.basePath, filename)

	s.logger.LogStorageOperation("save_run_result", path)

	return s.saveJSON(path, result)
}

// LoadLatestRunResult loads the most recent run result for the account,
// or nil when none exists
func (s *Storage) LoadLatestRunResult(accountNumber string) (*RunResult, error) {
	pattern := filepath.Join(s.basePath, fmt.Sprintf("%s_run_*.json", accountNumber))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, &StorageError{
			Operation: "glob_run_results",
			Path:      pattern,
			Err:       err,
		}
	}

	if len(matches) == 0 {
		return nil, nil
	}

	// Filenames sort chronologically
	latest := matches[len(matches)-1]

	s.logger.LogStorageOperation("load_latest_run_result", latest)

	var result RunResult
	if err := s.loadJSON(latest, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// saveJSON saves data as indented JSON to a file
func (s *Storage) saveJSON(path string, data interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return &StorageError{
			Operation: "create_file",
			Path:      path,
			Err:       err,
		}
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(data); err != nil {
		return &StorageError{
			Operation: "encode_json",
			Path:      path,
			Err:       err,
		}
	}

	return nil
}

// loadJSON loads data from a JSON file
func (s *Storage) loadJSON(path string, target interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return &StorageError{
			Operation: "open_file",
			Path:      path,
			Err:       err,
		}
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(target); err != nil {
		return &StorageError{
			Operation: "decode_json",
			Path:      path,
			Err:       err,
		}
	}

	return nil
}

// SaveCache stores a value in the lookup cache with a TTL
func (s *Storage) SaveCache(key string, data interface{}, ttl time.Duration) error {
	return s.cache.Set(key, data, ttl)
}

// LoadCache loads a value from the lookup cache if present and unexpired
func (s *Storage) LoadCache(key string, target interface{}) (bool, error) {
	return s.cache.Get(key, target)
}

// Close closes all storage resources
func (s *Storage) Close() error {
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}
