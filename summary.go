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

	"github.com/shopspring/decimal"
)

var pencePerPound = decimal.NewFromInt(100)

// formatPounds renders a pence amount as a pound string, e.g. "£5.23"
func formatPounds(pence decimal.Decimal) string {
	return "£" + pence.Div(pencePerPound).StringFixed(2)
}

// AddPriced records a successfully priced candidate
func (s *CostSummary) AddPriced(t *Tariff, cost decimal.Decimal) {
	s.Entries = append(s.Entries, CostEntry{Tariff: t, Cost: cost, Priced: true})
}

// AddUnpriced records a candidate whose rate resolution or pricing failed.
// Distinct from a zero cost: the tariff stays visible in the summary but is
// excluded from cheapest-selection.
func (s *CostSummary) AddUnpriced(t *Tariff) {
	s.Entries = append(s.Entries, CostEntry{Tariff: t})
}

// Lines renders the human-readable per-tariff breakdown sent with every
// outcome notification
func (s *CostSummary) Lines() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current tariff %s: %s\n", s.Current.DisplayName, formatPounds(s.CurrentCost))
	for _, entry := range s.Entries {
		if entry.Priced {
			fmt.Fprintf(&b, "Potential cost on %s: %s\n", entry.Tariff.DisplayName, formatPounds(entry.Cost))
		} else {
			fmt.Fprintf(&b, "No cost for %s\n", entry.Tariff.DisplayName)
		}
	}

	return b.String()
}

// CheapestSwitchable selects the cheapest tariff over the switchable and
// priced set, the current tariff included when it is itself switchable.
// Ties resolve to the earliest tariff in evaluation order, which keeps the
// selection deterministic for a fixed candidate order.
func (s *CostSummary) CheapestSwitchable() (*Tariff, decimal.Decimal, bool) {
	var (
		best     *Tariff
		bestCost decimal.Decimal
	)

	consider := func(t *Tariff, cost decimal.Decimal) {
		if !t.Switchable {
			return
		}
		if best == nil || cost.LessThan(bestCost) {
			best = t
			bestCost = cost
		}
	}

	consider(s.Current, s.CurrentCost)
	for _, entry := range s.Entries {
		if entry.Priced {
			consider(entry.Tariff, entry.Cost)
		}
	}

	if best == nil {
		return nil, decimal.Zero, false
	}
	return best, bestCost, true
}
