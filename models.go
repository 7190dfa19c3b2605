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
	"time"

	"github.com/shopspring/decimal"
)

// ConsumptionReading is one half-hourly telemetry interval. ReadAt marks the
// end of the interval; CostWithTax is the supplier's own cost attribution
// under the current tariff and is zero when the API returns null.
type ConsumptionReading struct {
	ReadAt      time.Time       `json:"readAt"`
	DeltaWh     decimal.Decimal `json:"deltaWh"`
	CostWithTax decimal.Decimal `json:"costWithTax"`
}

// RatePeriod is a time-bounded unit rate for a tariff. A nil ValidTo means
// the rate is open-ended; a nil PaymentMethod means it applies regardless of
// how the account pays.
type RatePeriod struct {
	ValidFrom      time.Time       `json:"valid_from"`
	ValidTo        *time.Time      `json:"valid_to,omitempty"`
	PaymentMethod  *string         `json:"payment_method,omitempty"`
	UnitRateIncVAT decimal.Decimal `json:"value_inc_vat"`
}

// PeriodCost is the priced counterpart of one ConsumptionReading.
// CalculatedCost is already rounded to 4 decimal places of pence.
type PeriodCost struct {
	PeriodEnd      time.Time       `json:"periodEnd"`
	ConsumptionKWh decimal.Decimal `json:"consumptionKwh"`
	Rate           decimal.Decimal `json:"rate"`
	CalculatedCost decimal.Decimal `json:"calculatedCost"`
}

// AccountSnapshot is everything a comparison run needs to know about the
// account. Built fresh at the start of each run, never persisted.
type AccountSnapshot struct {
	CurrentTariff  *Tariff
	StandingCharge decimal.Decimal // pence/day
	RegionCode     string
	Consumption    []ConsumptionReading
	MeterPointID   string // MPAN, required to execute a switch
	DeviceID       string
}

// CostEntry is one candidate tariff's evaluation result. Unpriced entries
// (Priced false) are tariffs whose rate resolution or pricing failed; they
// appear in the summary but never in cheapest-selection.
type CostEntry struct {
	Tariff *Tariff
	Cost   decimal.Decimal
	Priced bool
}

// CostSummary collects the current tariff's cost and every candidate's
// result, in evaluation order.
type CostSummary struct {
	Current     *Tariff
	CurrentCost decimal.Decimal
	Entries     []CostEntry
}

// RunResult is the persisted artifact of one comparison run.
type RunResult struct {
	GeneratedAt   time.Time       `json:"generatedAt"`
	Day           string          `json:"day"`
	CurrentTariff string          `json:"currentTariff"`
	CurrentCost   decimal.Decimal `json:"currentCost"`
	Costs         []RunCost       `json:"costs"`
	Outcome       string          `json:"outcome"`
	TargetTariff  string          `json:"targetTariff,omitempty"`
	Savings       decimal.Decimal `json:"savings"`
	DryRun        bool            `json:"dryRun"`
}

// RunCost is one candidate row in a RunResult.
type RunCost struct {
	TariffID string           `json:"tariffId"`
	Cost     *decimal.Decimal `json:"cost"` // nil when the tariff was unpriced
}

// GraphQL response structures

// ObtainTokenResponse represents the Kraken token response
type ObtainTokenResponse struct {
	Data struct {
		ObtainKrakenToken struct {
			Token string `json:"token"`
		} `json:"obtainKrakenToken"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// AccountResponse represents the account agreements GraphQL response
type AccountResponse struct {
	Data struct {
		Account struct {
			ElectricityAgreements []struct {
				ValidFrom  string  `json:"validFrom"`
				ValidTo    *string `json:"validTo"`
				MeterPoint struct {
					MPAN      string `json:"mpan"`
					Direction string `json:"direction"`
					Meters    []struct {
						SmartDevices []struct {
							DeviceID string `json:"deviceId"`
						} `json:"smartDevices"`
					} `json:"meters"`
				} `json:"meterPoint"`
				Tariff struct {
					TariffCode     string   `json:"tariffCode"`
					StandingCharge *float64 `json:"standingCharge"`
				} `json:"tariff"`
			} `json:"electricityAgreements"`
		} `json:"account"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// TelemetryResponse represents the smart meter telemetry GraphQL response.
// Kraken serialises the numeric fields as strings.
type TelemetryResponse struct {
	Data struct {
		SmartMeterTelemetry []struct {
			ReadAt           string  `json:"readAt"`
			ConsumptionDelta *string `json:"consumptionDelta"`
			CostDeltaWithTax *string `json:"costDeltaWithTax"`
		} `json:"smartMeterTelemetry"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// StartSwitchResponse represents the product switch mutation response
type StartSwitchResponse struct {
	Data struct {
		StartProductSwitch struct {
			EnrolmentID string `json:"enrolmentId"`
		} `json:"startProductSwitch"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// TermsVersionResponse represents the terms version query response
type TermsVersionResponse struct {
	Data struct {
		TermsAndConditionsForProduct struct {
			Version struct {
				Major int `json:"major"`
				Minor int `json:"minor"`
			} `json:"version"`
		} `json:"termsAndConditionsForProduct"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// AcceptTermsResponse represents the accept-terms mutation response
type AcceptTermsResponse struct {
	Data struct {
		AcceptTermsAndConditions struct {
			AcceptedVersion string `json:"acceptedVersion"`
		} `json:"acceptTermsAndConditions"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

// REST response structures

// Link is a hypermedia link on a REST resource
type Link struct {
	Href   string `json:"href"`
	Method string `json:"method"`
	Rel    string `json:"rel"`
}

// Product is one entry of the public product catalog
type Product struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Direction   string `json:"direction"`
	Brand       string `json:"brand"`
	Links       []Link `json:"links"`
}

// SelfLink returns the product's self-referencing detail link
func (p *Product) SelfLink() (string, bool) {
	for _, l := range p.Links {
		if l.Rel == "self" {
			return l.Href, true
		}
	}
	return "", false
}

// ProductsResponse represents the paginated product catalog response
type ProductsResponse struct {
	Count   int       `json:"count"`
	Next    *string   `json:"next"`
	Results []Product `json:"results"`
}

// PricingVariant is one payment-method pricing block within a region
type PricingVariant struct {
	StandingChargeIncVAT *float64 `json:"standing_charge_inc_vat"`
	Links                []Link   `json:"links"`
}

// UnitRatesLink returns the variant's standard-unit-rates link
func (v *PricingVariant) UnitRatesLink() (string, bool) {
	for _, l := range v.Links {
		if l.Rel == "standard_unit_rates" {
			return l.Href, true
		}
	}
	return "", false
}

// RegionTariff holds the pricing variants offered in one region
type RegionTariff struct {
	DirectDebitMonthly *PricingVariant `json:"direct_debit_monthly"`
	Varying            *PricingVariant `json:"varying"`
}

// ProductDetail represents one product's detail response, keyed per region
// code ("_A" .. "_P")
type ProductDetail struct {
	Code                             string                  `json:"code"`
	SingleRegisterElectricityTariffs map[string]RegionTariff `json:"single_register_electricity_tariffs"`
}

// UnitRatesResponse represents the standard-unit-rates response
type UnitRatesResponse struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []struct {
		ValidFrom     string  `json:"valid_from"`
		ValidTo       *string `json:"valid_to"`
		PaymentMethod *string `json:"payment_method"`
		ValueIncVAT   float64 `json:"value_inc_vat"`
	} `json:"results"`
}
