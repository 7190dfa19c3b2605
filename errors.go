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
	"fmt"
	"time"
)

// APIError represents a transport-level API failure
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API error at %s (status %d): %s: %v", e.Endpoint, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("API error at %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// AuthError represents an authentication or authorization error
type AuthError struct {
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("authentication error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TariffUnresolvableError marks a candidate tariff whose rates could not be
// resolved from the product catalog. It is caught per tariff during a
// comparison; only that tariff is excluded from the run.
type TariffUnresolvableError struct {
	TariffID string
	Reason   string
}

func (e *TariffUnresolvableError) Error() string {
	return fmt.Sprintf("tariff %s unresolvable: %s", e.TariffID, e.Reason)
}

// PricingError is a data-integrity fault raised when a consumption reading
// does not map to exactly one eligible rate period. Silently skipping the
// reading would understate the tariff's cost, so pricing aborts instead.
type PricingError struct {
	ReadAt  time.Time
	Matches int
}

func (e *PricingError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no eligible rate period covers reading at %s", e.ReadAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("%d rate periods cover reading at %s, expected exactly one", e.Matches, e.ReadAt.Format(time.RFC3339))
}

// PreconditionError represents a missing account basic (IMPORT agreement,
// tariff code, standing charge, MPAN, device id). Fatal to the whole run:
// no partial comparison is meaningful without them.
type PreconditionError struct {
	Field   string
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("account precondition failed for %s: %s", e.Field, e.Message)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// StorageError represents a storage operation error
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s at %s: %v", e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
