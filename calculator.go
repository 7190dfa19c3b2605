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

// farFuture substitutes for an open-ended rate period's missing valid_to
var farFuture = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

var wattHoursPerKWh = decimal.NewFromInt(1000)

// eligiblePaymentMethod restricts rate matching to periods priced for no
// particular payment method or for direct debit. Other payment-method
// variants (e.g. prepayment) must never price a reading.
func eligiblePaymentMethod(p *RatePeriod) bool {
	return p.PaymentMethod == nil || *p.PaymentMethod == PaymentMethodDirectDebit
}

// matchRatePeriod selects the unique eligible rate period covering readAt,
// with an inclusive lower bound and an exclusive-or-open upper bound.
// Zero or multiple covering periods is a data-integrity fault.
func matchRatePeriod(readAt time.Time, periods []RatePeriod) (*RatePeriod, error) {
	var match *RatePeriod
	matches := 0

	for i := range periods {
		p := &periods[i]
		if !eligiblePaymentMethod(p) {
			continue
		}

		end := farFuture
		if p.ValidTo != nil {
			end = *p.ValidTo
		}
		if readAt.Before(p.ValidFrom) || !readAt.Before(end) {
			continue
		}

		matches++
		match = p
	}

	if matches != 1 {
		return nil, &PricingError{ReadAt: readAt, Matches: matches}
	}
	return match, nil
}

// PriceConsumption prices each reading against the unique rate period
// covering it. Each period cost is rounded to 4 decimal places of pence
// individually; callers sum the already-rounded values. Pure function of
// its inputs.
func PriceConsumption(readings []ConsumptionReading, periods []RatePeriod) ([]PeriodCost, error) {
	costs := make([]PeriodCost, 0, len(readings))

	for _, reading := range readings {
		period, err := matchRatePeriod(reading.ReadAt, periods)
		if err != nil {
			return nil, err
		}

		kwh := reading.DeltaWh.Div(wattHoursPerKWh)
		costs = append(costs, PeriodCost{
			PeriodEnd:      reading.ReadAt,
			ConsumptionKWh: kwh,
			Rate:           period.UnitRateIncVAT,
			CalculatedCost: kwh.Mul(period.UnitRateIncVAT).Round(4),
		})
	}

	return costs, nil
}

// TotalCost sums the per-period costs and adds the standing charge exactly
// once. Units are pence throughout.
func TotalCost(costs []PeriodCost, standingCharge decimal.Decimal) decimal.Decimal {
	total := standingCharge
	for _, pc := range costs {
		total = total.Add(pc.CalculatedCost)
	}
	return total
}
