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
	"strings"
)

// Tariff is one known tariff definition. Identity is the ID: two tariffs are
// the same tariff iff their IDs match, regardless of which instance holds
// them. ProductCode starts empty and is filled in by the rate resolver once
// per run; it is never persisted.
type Tariff struct {
	ID             string
	DisplayName    string
	APIDisplayName string // label used to find the product in the public catalog
	CodeMatcher    string // substring matched against the account's tariff code
	URLName        string // used only by UI-automation switch fallbacks
	Switchable     bool
	ProductCode    string
}

// Matches reports whether the account tariff code belongs to this tariff
func (t *Tariff) Matches(tariffCode string) bool {
	return strings.Contains(strings.ToLower(tariffCode), strings.ToLower(t.CodeMatcher))
}

// Same compares tariffs by ID
func (t *Tariff) Same(other *Tariff) bool {
	return other != nil && t.ID == other.ID
}

// Catalog is the static registry of known tariffs. Immutable after
// construction except for the per-run ProductCode field on its entries.
type Catalog struct {
	tariffs []*Tariff
}

// DefaultCatalog seeds the catalog with the tariffs the agent knows how to
// compare. Flexible is a valid current tariff but never a switch target.
func DefaultCatalog() *Catalog {
	return &Catalog{
		tariffs: []*Tariff{
			{ID: "go", DisplayName: "Octopus Go", APIDisplayName: "Octopus Go", CodeMatcher: "go", URLName: "go", Switchable: true},
			{ID: "agile", DisplayName: "Agile Octopus", APIDisplayName: "Agile Octopus", CodeMatcher: "agile", URLName: "agile", Switchable: true},
			{ID: "cosy", DisplayName: "Cosy Octopus", APIDisplayName: "Cosy Octopus", CodeMatcher: "cosy", URLName: "cosy-octopus", Switchable: true},
			{ID: "flexible", DisplayName: "Flexible Octopus", APIDisplayName: "Flexible Octopus", CodeMatcher: "var", URLName: "", Switchable: false},
		},
	}
}

// FindByID returns the catalog entry with the given ID
func (c *Catalog) FindByID(id string) (*Tariff, bool) {
	for _, t := range c.tariffs {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// MatchCurrent returns the single catalog entry whose matcher matches the
// account's live tariff code. Zero or multiple matches is a configuration
// fault surfaced to the caller.
func (c *Catalog) MatchCurrent(tariffCode string) (*Tariff, error) {
	var matched []*Tariff
	for _, t := range c.tariffs {
		if t.Matches(tariffCode) {
			matched = append(matched, t)
		}
	}

	switch len(matched) {
	case 1:
		return matched[0], nil
	case 0:
		return nil, &ConfigError{
			Field:   "catalog",
			Message: fmt.Sprintf("no supported tariff matches code %q", tariffCode),
		}
	default:
		ids := make([]string, len(matched))
		for i, t := range matched {
			ids[i] = t.ID
		}
		return nil, &ConfigError{
			Field:   "catalog",
			Message: fmt.Sprintf("tariff code %q matches multiple tariffs: %s", tariffCode, strings.Join(ids, ", ")),
		}
	}
}

// FromIDList resolves a comma-separated list of tariff IDs into catalog
// entries, preserving the order given. Unknown IDs produce a warning via
// warn and are skipped; the run continues with the rest.
func (c *Catalog) FromIDList(ids string, warn func(string)) []*Tariff {
	var resolved []*Tariff
	seen := make(map[string]bool)

	for _, raw := range strings.Split(ids, ",") {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		t, ok := c.FindByID(id)
		if !ok {
			if warn != nil {
				warn(fmt.Sprintf("Warning: No tariff found for ID '%s'", id))
			}
			continue
		}
		resolved = append(resolved, t)
	}

	return resolved
}
