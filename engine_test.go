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
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	snapshot *AccountSnapshot
	err      error
}

func (a *fakeAccounts) AccountSnapshot(catalog *Catalog, day time.Time) (*AccountSnapshot, error) {
	return a.snapshot, a.err
}

// fakeRate is one tariff's scripted rate resolution: a standing charge plus a
// single flat open-ended unit rate, or an error.
type fakeRate struct {
	standing decimal.Decimal
	unitRate decimal.Decimal
	err      error
}

type fakeRates struct {
	rates map[string]fakeRate
}

func (r *fakeRates) ResolveRates(tariff *Tariff, regionCode string, day time.Time) (decimal.Decimal, []RatePeriod, string, error) {
	scripted, ok := r.rates[tariff.ID]
	if !ok || scripted.err != nil {
		err := scripted.err
		if err == nil {
			err = &TariffUnresolvableError{TariffID: tariff.ID, Reason: "not scripted"}
		}
		return decimal.Zero, nil, "", err
	}

	tariff.ProductCode = tariff.ID + "-product"
	periods := []RatePeriod{
		{ValidFrom: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), UnitRateIncVAT: scripted.unitRate},
	}
	return scripted.standing, periods, tariff.ProductCode, nil
}

type fakeAuth struct {
	calls int
	err   error
}

func (a *fakeAuth) Authenticate() error {
	a.calls++
	return a.err
}

// snapshotWithCost builds a snapshot whose current-tariff cost sums to
// standing + the given supplier cost attributions, with 5 kWh consumed per
// reading.
func snapshotWithCost(current *Tariff, standing float64, costs ...float64) *AccountSnapshot {
	snapshot := &AccountSnapshot{
		CurrentTariff:  current,
		StandingCharge: decimal.NewFromFloat(standing),
		RegionCode:     "C",
		MeterPointID:   "1234567890123",
		DeviceID:       "device-1",
	}
	for i, c := range costs {
		snapshot.Consumption = append(snapshot.Consumption, ConsumptionReading{
			ReadAt:      tsUTC(0, 30*(i+1)),
			DeltaWh:     decimal.NewFromInt(5000),
			CostWithTax: decimal.NewFromFloat(c),
		})
	}
	return snapshot
}

func newTestEngine(snapshot *AccountSnapshot, rates map[string]fakeRate) (*Engine, *Catalog) {
	catalog := DefaultCatalog()
	engine := NewEngine(&fakeAccounts{snapshot: snapshot}, &fakeRates{rates: rates}, catalog, NewLogger(false))
	return engine, catalog
}

func catalogTariffs(catalog *Catalog, ids ...string) []*Tariff {
	var tariffs []*Tariff
	for _, id := range ids {
		t, ok := catalog.FindByID(id)
		if !ok {
			panic("unknown tariff " + id)
		}
		tariffs = append(tariffs, t)
	}
	return tariffs
}

func TestCompareAndDecideSwitch(t *testing.T) {
	catalog := DefaultCatalog()
	current, _ := catalog.FindByID("go")

	// Current: 50 standing + 475 + 475 = 1000p.
	// Agile: 150 standing + 10 kWh at a flat 20p/kWh = 350p.
	snapshot := snapshotWithCost(current, 50, 475, 475)
	engine := NewEngine(&fakeAccounts{snapshot: snapshot}, &fakeRates{rates: map[string]fakeRate{
		"agile": {standing: decimal.NewFromInt(150), unitRate: decimal.NewFromInt(20)},
	}}, catalog, NewLogger(false))

	decision, err := engine.CompareAndDecide(catalogTariffs(catalog, "go", "agile"), tsUTC(0, 0))
	require.NoError(t, err)

	assert.Equal(t, OutcomeSwitch, decision.Outcome)
	require.NotNil(t, decision.Target)
	assert.Equal(t, "agile", decision.Target.ID)
	assert.True(t, decision.TargetCost.Equal(decimal.NewFromInt(350)), "got %s", decision.TargetCost)
	assert.True(t, decision.Savings.Equal(decimal.NewFromInt(650)), "got %s", decision.Savings)
	assert.True(t, decision.Summary.CurrentCost.Equal(decimal.NewFromInt(1000)))
}

func TestCompareAndDecideSavingsBoundary(t *testing.T) {
	catalog := DefaultCatalog()
	current, _ := catalog.FindByID("go")

	agileRates := map[string]fakeRate{
		"agile": {standing: decimal.NewFromInt(450), unitRate: decimal.Zero},
	}

	// Savings of exactly 2p: not enough.
	snapshot := snapshotWithCost(current, 2, 225, 225) // 452p
	engine, _ := newTestEngine(snapshot, agileRates)
	decision, err := engine.CompareAndDecide(catalogTariffs(catalog, "agile"), tsUTC(0, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeBelowThreshold, decision.Outcome)
	assert.True(t, decision.Savings.Equal(decimal.NewFromInt(2)))

	// A hundredth of a penny over the buffer: switch.
	snapshot = snapshotWithCost(current, 2.01, 225, 225) // 452.01p
	engine, _ = newTestEngine(snapshot, agileRates)
	decision, err = engine.CompareAndDecide(catalogTariffs(catalog, "agile"), tsUTC(0, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSwitch, decision.Outcome)
	assert.True(t, decision.Savings.Equal(decimal.NewFromFloat(2.01)))
}

func TestCompareAndDecideAlreadyOptimal(t *testing.T) {
	catalog := DefaultCatalog()
	current, _ := catalog.FindByID("go")

	snapshot := snapshotWithCost(current, 50, 100, 100) // 250p
	engine, _ := newTestEngine(snapshot, map[string]fakeRate{
		"agile": {standing: decimal.NewFromInt(150), unitRate: decimal.NewFromInt(20)}, // 350p
	})

	decision, err := engine.CompareAndDecide(catalogTariffs(catalog, "go", "agile"), tsUTC(0, 0))
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadyOptimal, decision.Outcome)
	assert.Equal(t, "go", decision.Target.ID)
}

func TestCompareAndDecideUnpricedCandidateTolerated(t *testing.T) {
	catalog := DefaultCatalog()
	current, _ := catalog.FindByID("flexible")

	snapshot := snapshotWithCost(current, 50, 475, 475) // 1000p
	engine, _ := newTestEngine(snapshot, map[string]fakeRate{
		"agile": {err: errors.New("catalog down")},
		"go":    {standing: decimal.NewFromInt(100), unitRate: decimal.NewFromInt(10)}, // 200p
	})

	decision, err := engine.CompareAndDecide(catalogTariffs(catalog, "go", "agile"), tsUTC(0, 0))
	require.NoError(t, err, "one failing candidate must not abort the comparison")

	assert.Equal(t, OutcomeSwitch, decision.Outcome)
	assert.Equal(t, "go", decision.Target.ID)

	// The failed candidate stays visible in the summary as unpriced
	require.Len(t, decision.Summary.Entries, 2)
	assert.False(t, decision.Summary.Entries[1].Priced)
	assert.Contains(t, decision.Summary.Lines(), "No cost for Agile Octopus")
}

func TestCompareAndDecideNoCandidates(t *testing.T) {
	catalog := DefaultCatalog()
	current, _ := catalog.FindByID("flexible") // not switchable

	snapshot := snapshotWithCost(current, 50, 475)
	engine, _ := newTestEngine(snapshot, map[string]fakeRate{
		"go":    {err: errors.New("down")},
		"agile": {err: errors.New("down")},
	})

	decision, err := engine.CompareAndDecide(catalogTariffs(catalog, "go", "agile"), tsUTC(0, 0))
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoCandidates, decision.Outcome)
	assert.Nil(t, decision.Target)
}

func TestCompareAndDecideSkipsCurrentTariff(t *testing.T) {
	catalog := DefaultCatalog()
	current, _ := catalog.FindByID("go")

	snapshot := snapshotWithCost(current, 50, 475)
	engine, _ := newTestEngine(snapshot, map[string]fakeRate{
		"go":    {standing: decimal.NewFromInt(1), unitRate: decimal.Zero},
		"agile": {standing: decimal.NewFromInt(150), unitRate: decimal.NewFromInt(20)},
	})

	decision, err := engine.CompareAndDecide(catalogTariffs(catalog, "go", "agile"), tsUTC(0, 0))
	require.NoError(t, err)

	// Go is the current tariff: it is never re-priced from the catalog, only
	// costed from the supplier's own attribution.
	require.Len(t, decision.Summary.Entries, 1)
	assert.Equal(t, "agile", decision.Summary.Entries[0].Tariff.ID)
}

func TestCompareAndDecideSnapshotFailureAborts(t *testing.T) {
	catalog := DefaultCatalog()
	engine := NewEngine(&fakeAccounts{err: errors.New("account down")}, &fakeRates{}, catalog, NewLogger(false))

	_, err := engine.CompareAndDecide(catalogTariffs(catalog, "agile"), tsUTC(0, 0))
	require.Error(t, err)
}

func runnerFixture(t *testing.T, dryRun bool, rates map[string]fakeRate, snapshot *AccountSnapshot) (*Runner, *fakeGateway, *fakeNotifier, *fakeAuth) {
	t.Helper()

	catalog := DefaultCatalog()
	engine := NewEngine(&fakeAccounts{snapshot: snapshot}, &fakeRates{rates: rates}, catalog, NewLogger(false))

	gateway := &fakeGateway{
		enrolmentID:   "enrol-1",
		acceptedVer:   "1.1",
		verifyResults: []bool{true},
	}
	notifier := &fakeNotifier{}
	workflow, _ := newTestWorkflow(gateway, notifier)

	config := &Config{
		AccountNumber: "A-12345678",
		Tariffs:       "go,agile",
		DryRun:        dryRun,
	}
	auth := &fakeAuth{}
	runner := NewRunner(auth, engine, workflow, notifier, nil, catalog, config, NewLogger(false))
	return runner, gateway, notifier, auth
}

func TestRunOnceDryRunStopsBeforeSwitch(t *testing.T) {
	catalog := DefaultCatalog()
	current, _ := catalog.FindByID("go")
	snapshot := snapshotWithCost(current, 50, 475, 475)

	runner, gateway, notifier, auth := runnerFixture(t, true, map[string]fakeRate{
		"agile": {standing: decimal.NewFromInt(150), unitRate: decimal.NewFromInt(20)},
	}, snapshot)

	err := runner.RunOnce(tsUTC(0, 0))
	require.NoError(t, err)

	assert.Equal(t, 1, auth.calls)
	assert.Zero(t, gateway.startCalls, "dry run must never contact the switch gateway")

	require.NotEmpty(t, notifier.messages)
	assert.Equal(t, "DRY RUN: Starting comparison of today's costs...", notifier.messages[0])
	assert.Contains(t, notifier.messages[len(notifier.messages)-2], "Initiating switch to Agile Octopus")
	assert.Equal(t, "DRY RUN: Not going through with switch today.", notifier.messages[len(notifier.messages)-1])
}

func TestRunOnceExecutesSwitch(t *testing.T) {
	catalog := DefaultCatalog()
	current, _ := catalog.FindByID("go")
	snapshot := snapshotWithCost(current, 50, 475, 475)

	runner, gateway, notifier, _ := runnerFixture(t, false, map[string]fakeRate{
		"agile": {standing: decimal.NewFromInt(150), unitRate: decimal.NewFromInt(20)},
	}, snapshot)

	err := runner.RunOnce(tsUTC(0, 0))
	require.NoError(t, err)

	assert.Equal(t, 1, gateway.startCalls)
	assert.Equal(t, StateVerified, runner.workflow.State())
	assert.Contains(t, notifier.messages[len(notifier.messages)-1], "Process finished.")
}

func TestRunOnceBelowThreshold(t *testing.T) {
	catalog := DefaultCatalog()
	current, _ := catalog.FindByID("go")
	snapshot := snapshotWithCost(current, 2, 225, 225) // 452p

	runner, gateway, notifier, _ := runnerFixture(t, false, map[string]fakeRate{
		"agile": {standing: decimal.NewFromInt(450), unitRate: decimal.Zero}, // saves exactly 2p
	}, snapshot)

	err := runner.RunOnce(tsUTC(0, 0))
	require.NoError(t, err)

	assert.Zero(t, gateway.startCalls)
	assert.Contains(t, notifier.messages[len(notifier.messages)-1], "Not switching today.")
}

func TestRunOnceUnknownTariffsRejected(t *testing.T) {
	catalog := DefaultCatalog()
	current, _ := catalog.FindByID("go")
	snapshot := snapshotWithCost(current, 50, 475)

	runner, _, notifier, _ := runnerFixture(t, false, nil, snapshot)
	runner.config.Tariffs = "tracker,snug"

	err := runner.RunOnce(tsUTC(0, 0))
	require.Error(t, err)

	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "tariffs", configErr.Field)

	// Both unknown IDs were reported before the run aborted
	var warnings int
	for _, msg := range notifier.messages {
		if len(msg) > 0 && msg[0] == 'W' {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestRunOnceAuthFailureAborts(t *testing.T) {
	catalog := DefaultCatalog()
	current, _ := catalog.FindByID("go")
	snapshot := snapshotWithCost(current, 50, 475)

	runner, gateway, _, auth := runnerFixture(t, false, nil, snapshot)
	auth.err = &AuthError{Message: "bad key"}

	err := runner.RunOnce(tsUTC(0, 0))
	require.Error(t, err)
	assert.Zero(t, gateway.startCalls)
}
