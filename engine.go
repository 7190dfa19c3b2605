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

	"github.com/shopspring/decimal"
)

// AccountGateway is the account side of the remote data API
type AccountGateway interface {
	AccountSnapshot(catalog *Catalog, day time.Time) (*AccountSnapshot, error)
}

// RateSource resolves a tariff's standing charge and rate periods for a day
type RateSource interface {
	ResolveRates(tariff *Tariff, regionCode string, day time.Time) (decimal.Decimal, []RatePeriod, string, error)
}

// Notifier delivers messages to the user. Fire-and-forget: implementations
// must not fail the run over delivery problems.
type Notifier interface {
	Notify(message, title string)
	NotifyError(message, title string)
}

// Authenticator re-authenticates against the remote API at run start
type Authenticator interface {
	Authenticate() error
}

// savingsBuffer is the minimum daily saving, in pence, that justifies a
// switch. Savings must strictly exceed it.
var savingsBuffer = decimal.NewFromInt(2)

// Outcome is the comparison engine's verdict for one run
type Outcome int

const (
	OutcomeAlreadyOptimal Outcome = iota
	OutcomeNoCandidates
	OutcomeBelowThreshold
	OutcomeSwitch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadyOptimal:
		return "already_optimal"
	case OutcomeNoCandidates:
		return "no_candidates"
	case OutcomeBelowThreshold:
		return "below_threshold"
	case OutcomeSwitch:
		return "switch"
	default:
		return "unknown"
	}
}

// Decision is the result of one comparison
type Decision struct {
	Outcome    Outcome
	Summary    *CostSummary
	Snapshot   *AccountSnapshot
	Target     *Tariff
	TargetCost decimal.Decimal
	Savings    decimal.Decimal
}

// Engine runs the tariff cost comparison
type Engine struct {
	accounts AccountGateway
	rates    RateSource
	catalog  *Catalog
	logger   *Logger
}

// NewEngine creates a comparison engine
func NewEngine(accounts AccountGateway, rates RateSource, catalog *Catalog, logger *Logger) *Engine {
	return &Engine{
		accounts: accounts,
		rates:    rates,
		catalog:  catalog,
		logger:   logger,
	}
}

// CompareAndDecide fetches the account snapshot, prices every candidate
// tariff against today's consumption, ranks the results and decides whether
// a switch is worthwhile. A candidate failing to price never aborts the
// comparison; a failure fetching the snapshot itself does.
func (e *Engine) CompareAndDecide(candidates []*Tariff, day time.Time) (*Decision, error) {
	snapshot, err := e.accounts.AccountSnapshot(e.catalog, day)
	if err != nil {
		return nil, err
	}
	e.logger.LogComparisonStage("account_snapshot")

	// The supplier already attributes a cost to each interval under the
	// current tariff; the current cost is that attribution plus the
	// standing charge
	currentCost := snapshot.StandingCharge
	for _, reading := range snapshot.Consumption {
		currentCost = currentCost.Add(reading.CostWithTax)
	}

	summary := &CostSummary{
		Current:     snapshot.CurrentTariff,
		CurrentCost: currentCost,
	}

	for _, tariff := range candidates {
		if tariff.Same(snapshot.CurrentTariff) {
			continue
		}

		cost, err := e.priceTariff(tariff, snapshot, day)
		if err != nil {
			e.logger.LogTariffUnpriced(tariff.ID, err)
			summary.AddUnpriced(tariff)
			continue
		}
		summary.AddPriced(tariff, cost)
	}
	e.logger.LogComparisonStage("candidate_pricing")

	decision := &Decision{
		Summary:  summary,
		Snapshot: snapshot,
	}

	cheapest, cheapestCost, ok := summary.CheapestSwitchable()
	if !ok {
		decision.Outcome = OutcomeNoCandidates
		return decision, nil
	}

	decision.Target = cheapest
	decision.TargetCost = cheapestCost

	if cheapest.Same(snapshot.CurrentTariff) {
		decision.Outcome = OutcomeAlreadyOptimal
		return decision, nil
	}

	decision.Savings = currentCost.Sub(cheapestCost)
	if decision.Savings.GreaterThan(savingsBuffer) {
		decision.Outcome = OutcomeSwitch
	} else {
		decision.Outcome = OutcomeBelowThreshold
	}

	e.logger.Info("Comparison decided",
		"outcome", decision.Outcome.String(),
		"current_cost", currentCost.String(),
		"cheapest", cheapest.ID,
		"cheapest_cost", cheapestCost.String(),
	)

	return decision, nil
}

// priceTariff resolves a candidate's rates and prices today's consumption
// against them
func (e *Engine) priceTariff(tariff *Tariff, snapshot *AccountSnapshot, day time.Time) (decimal.Decimal, error) {
	standingCharge, periods, _, err := e.rates.ResolveRates(tariff, snapshot.RegionCode, day)
	if err != nil {
		return decimal.Zero, err
	}

	costs, err := PriceConsumption(snapshot.Consumption, periods)
	if err != nil {
		return decimal.Zero, err
	}

	return TotalCost(costs, standingCharge), nil
}

// Runner wires one comparison run end to end: authentication, comparison,
// notifications, the conditional switch workflow and run-result persistence.
type Runner struct {
	auth     Authenticator
	engine   *Engine
	workflow *SwitchWorkflow
	notifier Notifier
	storage  *Storage // optional
	catalog  *Catalog
	config   *Config
	logger   *Logger
}

// NewRunner creates a run orchestrator
func NewRunner(auth Authenticator, engine *Engine, workflow *SwitchWorkflow, notifier Notifier, storage *Storage, catalog *Catalog, config *Config, logger *Logger) *Runner {
	return &Runner{
		auth:     auth,
		engine:   engine,
		workflow: workflow,
		notifier: notifier,
		storage:  storage,
		catalog:  catalog,
		config:   config,
		logger:   logger,
	}
}

// RunOnce executes a full comparison run for the given UTC day
func (r *Runner) RunOnce(day time.Time) error {
	welcome := ""
	if r.config.DryRun {
		welcome = "DRY RUN: "
	}
	welcome += "Starting comparison of today's costs..."
	r.notifier.Notify(welcome, notificationTitle)

	if r.auth != nil {
		if err := r.auth.Authenticate(); err != nil {
			return err
		}
	}

	candidates := r.catalog.FromIDList(r.config.Tariffs, func(msg string) {
		r.notifier.Notify(msg, notificationTitle)
	})
	if len(candidates) == 0 {
		return &ConfigError{Field: "tariffs", Message: fmt.Sprintf("no known tariff IDs in %q", r.config.Tariffs)}
	}

	decision, err := r.engine.CompareAndDecide(candidates, day)
	if err != nil {
		return err
	}

	summary := decision.Summary.Lines()

	switch decision.Outcome {
	case OutcomeAlreadyOptimal:
		r.notifier.Notify(fmt.Sprintf("%s\nYou are already on the cheapest tariff: %s at %s",
			summary, decision.Target.DisplayName, formatPounds(decision.TargetCost)), notificationTitle)

	case OutcomeNoCandidates:
		r.notifier.Notify(summary+"\nNo switchable tariff could be priced today.", notificationTitle)

	case OutcomeBelowThreshold:
		r.notifier.Notify(summary+"\nNot switching today.", notificationTitle)

	case OutcomeSwitch:
		r.notifier.Notify(fmt.Sprintf("%s\nInitiating switch to %s", summary, decision.Target.DisplayName), notificationTitle)

		if r.config.DryRun {
			r.notifier.Notify("DRY RUN: Not going through with switch today.", notificationTitle)
			break
		}

		r.workflow.Execute(decision.Snapshot, decision.Target, day)
	}

	r.persist(decision, day)
	return nil
}

// persist records the run outcome; failures only warn
func (r *Runner) persist(decision *Decision, day time.Time) {
	if r.storage == nil {
		return
	}

	result := &RunResult{
		GeneratedAt:   time.Now().UTC(),
		Day:           day.UTC().Format("2006-01-02"),
		CurrentTariff: decision.Summary.Current.ID,
		CurrentCost:   decision.Summary.CurrentCost,
		Outcome:       decision.Outcome.String(),
		Savings:       decision.Savings,
		DryRun:        r.config.DryRun,
	}
	if decision.Target != nil {
		result.TargetTariff = decision.Target.ID
	}
	for _, entry := range decision.Summary.Entries {
		rc := RunCost{TariffID: entry.Tariff.ID}
		if entry.Priced {
			cost := entry.Cost
			rc.Cost = &cost
		}
		result.Costs = append(result.Costs, rc)
	}

	if err := r.storage.SaveRunResult(result, r.config.AccountNumber); err != nil {
		r.logger.Warn("Failed to save run result", "error", err)
	}
}
