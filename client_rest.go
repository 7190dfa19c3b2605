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
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// restGet performs an unauthenticated GET against the public REST API and
// decodes the JSON response into target
func (c *OctopusClient) restGet(endpoint string, target interface{}) error {
	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", GetUserAgent())

	c.logger.LogAPIRequest("GET", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{
			Endpoint: endpoint,
			Message:  "REST request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.logger.LogAPIError(endpoint, resp.StatusCode, fmt.Errorf("%s", string(bodyBytes)))
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    string(bodyBytes),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}

	return nil
}

// FetchProducts fetches the public product catalog, following pagination
func (c *OctopusClient) FetchProducts() ([]Product, error) {
	endpoint := fmt.Sprintf("%s/products/", c.baseURL)

	var products []Product
	for endpoint != "" {
		var page ProductsResponse
		if err := c.restGet(endpoint, &page); err != nil {
			return nil, err
		}
		products = append(products, page.Results...)

		endpoint = ""
		if page.Next != nil && *page.Next != "" {
			endpoint = *page.Next
		}
	}

	c.logger.Debug("Product catalog fetched", "products", len(products))
	return products, nil
}

// FetchProductDetail follows a product's self link to its detail resource,
// which carries the per-region pricing blocks
func (c *OctopusClient) FetchProductDetail(selfLink string) (*ProductDetail, error) {
	var detail ProductDetail
	if err := c.restGet(selfLink, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FetchStandardUnitRates follows a standard-unit-rates link scoped to one
// UTC calendar day and returns the rate periods, following pagination
func (c *OctopusClient) FetchStandardUnitRates(ratesLink string, day time.Time) ([]RatePeriod, error) {
	start, end := dayWindow(day)

	endpoint := ratesLink
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	endpoint = fmt.Sprintf("%s%speriod_from=%s&period_to=%s",
		endpoint, sep, url.QueryEscape(start), url.QueryEscape(end))

	var periods []RatePeriod
	for endpoint != "" {
		var page UnitRatesResponse
		if err := c.restGet(endpoint, &page); err != nil {
			return nil, err
		}

		for _, r := range page.Results {
			validFrom, err := time.Parse(time.RFC3339, r.ValidFrom)
			if err != nil {
				return nil, fmt.Errorf("failed to parse valid_from %q: %w", r.ValidFrom, err)
			}

			var validTo *time.Time
			if r.ValidTo != nil && *r.ValidTo != "" {
				t, err := time.Parse(time.RFC3339, *r.ValidTo)
				if err != nil {
					return nil, fmt.Errorf("failed to parse valid_to %q: %w", *r.ValidTo, err)
				}
				utc := t.UTC()
				validTo = &utc
			}

			periods = append(periods, RatePeriod{
				ValidFrom:      validFrom.UTC(),
				ValidTo:        validTo,
				PaymentMethod:  r.PaymentMethod,
				UnitRateIncVAT: decimal.NewFromFloat(r.ValueIncVAT),
			})
		}

		endpoint = ""
		if page.Next != nil && *page.Next != "" {
			endpoint = *page.Next
		}
	}

	c.logger.Debug("Unit rates fetched", "periods", len(periods))
	return periods, nil
}
