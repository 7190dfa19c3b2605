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

// productAPI is the slice of the REST client the resolver needs
type productAPI interface {
	FetchProducts() ([]Product, error)
	FetchProductDetail(selfLink string) (*ProductDetail, error)
	FetchStandardUnitRates(ratesLink string, day time.Time) ([]RatePeriod, error)
}

// resolvedProduct is the cached product-catalog lookup for one tariff
type resolvedProduct struct {
	Code     string `json:"code"`
	SelfLink string `json:"selfLink"`
}

// resolvedRates is the cached outcome of a full rate resolution
type resolvedRates struct {
	StandingCharge decimal.Decimal `json:"standingCharge"`
	Periods        []RatePeriod    `json:"periods"`
	ProductCode    string          `json:"productCode"`
}

// RateResolver turns a tariff and a region into the day's standing charge
// and unit-rate periods by walking the public product catalog. Lookups are
// cached: product identities for 24 hours, a day's resolved rates for 6.
type RateResolver struct {
	api     productAPI
	storage *Storage // optional; nil disables caching
	logger  *Logger
}

// NewRateResolver creates a rate resolver
func NewRateResolver(api productAPI, storage *Storage, logger *Logger) *RateResolver {
	return &RateResolver{
		api:     api,
		storage: storage,
		logger:  logger,
	}
}

// ResolveRates resolves the standing charge (pence/day, inc VAT), the unit
// rate periods for the given day, and the concrete product code for a
// tariff in a region. Missing product, region, pricing variant or standing
// charge raise a TariffUnresolvableError; transport failures surface as
// APIError. Either way the caller treats the tariff as unpriced and moves
// on. The resolved product code is also written back onto the tariff.
func (r *RateResolver) ResolveRates(tariff *Tariff, regionCode string, day time.Time) (decimal.Decimal, []RatePeriod, string, error) {
	cacheKey := fmt.Sprintf("rates_%s_%s_%s", tariff.ID, regionCode, day.UTC().Format("2006-01-02"))

	if r.storage != nil {
		var cached resolvedRates
		if hit, err := r.storage.LoadCache(cacheKey, &cached); err != nil {
			r.logger.Warn("Failed to load rates from cache", "error", err)
		} else if hit {
			tariff.ProductCode = cached.ProductCode
			return cached.StandingCharge, cached.Periods, cached.ProductCode, nil
		}
	}

	product, err := r.findProduct(tariff)
	if err != nil {
		return decimal.Zero, nil, "", err
	}

	detail, err := r.api.FetchProductDetail(product.SelfLink)
	if err != nil {
		return decimal.Zero, nil, "", err
	}

	region, ok := detail.SingleRegisterElectricityTariffs["_"+regionCode]
	if !ok {
		return decimal.Zero, nil, "", &TariffUnresolvableError{
			TariffID: tariff.ID,
			Reason:   fmt.Sprintf("product %s has no pricing for region %s", product.Code, regionCode),
		}
	}

	variant := region.DirectDebitMonthly
	if variant == nil {
		variant = region.Varying
	}
	if variant == nil {
		return decimal.Zero, nil, "", &TariffUnresolvableError{
			TariffID: tariff.ID,
			Reason:   fmt.Sprintf("product %s region %s offers neither direct_debit_monthly nor varying pricing", product.Code, regionCode),
		}
	}

	if variant.StandingChargeIncVAT == nil {
		return decimal.Zero, nil, "", &TariffUnresolvableError{
			TariffID: tariff.ID,
			Reason:   fmt.Sprintf("product %s region %s has no standing_charge_inc_vat", product.Code, regionCode),
		}
	}

	ratesLink, ok := variant.UnitRatesLink()
	if !ok {
		return decimal.Zero, nil, "", &TariffUnresolvableError{
			TariffID: tariff.ID,
			Reason:   fmt.Sprintf("product %s region %s has no standard_unit_rates link", product.Code, regionCode),
		}
	}

	periods, err := r.api.FetchStandardUnitRates(ratesLink, day)
	if err != nil {
		return decimal.Zero, nil, "", err
	}

	standingCharge := decimal.NewFromFloat(*variant.StandingChargeIncVAT)
	tariff.ProductCode = product.Code

	if r.storage != nil {
		cached := resolvedRates{
			StandingCharge: standingCharge,
			Periods:        periods,
			ProductCode:    product.Code,
		}
		if err := r.storage.SaveCache(cacheKey, cached, 6*time.Hour); err != nil {
			r.logger.Warn("Failed to cache resolved rates", "error", err)
		}
	}

	r.logger.Info("Resolved tariff rates",
		"tariff", tariff.ID,
		"product", product.Code,
		"region", regionCode,
		"periods", len(periods),
	)

	return standingCharge, periods, product.Code, nil
}

// findProduct locates the catalog product for a tariff: Octopus brand,
// IMPORT direction, display name equal to the tariff's API display name
func (r *RateResolver) findProduct(tariff *Tariff) (*resolvedProduct, error) {
	cacheKey := fmt.Sprintf("product_%s", tariff.ID)

	if r.storage != nil {
		var cached resolvedProduct
		if hit, err := r.storage.LoadCache(cacheKey, &cached); err != nil {
			r.logger.Warn("Failed to load product from cache", "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	products, err := r.api.FetchProducts()
	if err != nil {
		return nil, err
	}

	for i := range products {
		p := &products[i]
		if p.DisplayName != tariff.APIDisplayName || p.Direction != DirectionImport || p.Brand != OctopusBrand {
			continue
		}

		selfLink, ok := p.SelfLink()
		if !ok {
			return nil, &TariffUnresolvableError{
				TariffID: tariff.ID,
				Reason:   fmt.Sprintf("product %s has no self link", p.Code),
			}
		}

		resolved := &resolvedProduct{Code: p.Code, SelfLink: selfLink}
		if r.storage != nil {
			// Product identities rarely change
			if err := r.storage.SaveCache(cacheKey, resolved, 24*time.Hour); err != nil {
				r.logger.Warn("Failed to cache product", "error", err)
			}
		}
		return resolved, nil
	}

	return nil, &TariffUnresolvableError{
		TariffID: tariff.ID,
		Reason:   fmt.Sprintf("no %s IMPORT product named %q in the catalog", OctopusBrand, tariff.APIDisplayName),
	}
}
