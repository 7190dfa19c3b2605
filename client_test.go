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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWireDecimal(t *testing.T) {
	val := "123.456"
	assert.True(t, parseWireDecimal(&val).Equal(decimal.NewFromFloat(123.456)))

	assert.True(t, parseWireDecimal(nil).IsZero())

	empty := ""
	assert.True(t, parseWireDecimal(&empty).IsZero())

	garbage := "n/a"
	assert.True(t, parseWireDecimal(&garbage).IsZero())
}

func TestDayWindow(t *testing.T) {
	// Local times normalise to the UTC calendar day
	day := time.Date(2026, 8, 31, 14, 30, 0, 0, time.FixedZone("BST", 3600))
	start, end := dayWindow(day)
	assert.Equal(t, "2026-08-31T00:00:00Z", start)
	assert.Equal(t, "2026-08-31T23:59:59Z", end)
}

func TestSuffix(t *testing.T) {
	assert.Equal(t, "***5678", suffix("A-12345678"))
	assert.Equal(t, "abc", suffix("abc"))
}

func TestFetchProductsPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"count":2,"next":null,"results":[{"code":"GO-22-10-14","display_name":"Octopus Go","direction":"IMPORT","brand":"OCTOPUS_ENERGY","links":[]}]}`)
			return
		}
		fmt.Fprintf(w, `{"count":2,"next":"%s/products/?page=2","results":[{"code":"AGILE-24-10-01","display_name":"Agile Octopus","direction":"IMPORT","brand":"OCTOPUS_ENERGY","links":[]}]}`, server.URL)
	}))
	defer server.Close()

	client := NewOctopusClient("A-12345678", "sk_live_abcdefghijklmnop", server.URL, NewLogger(false))

	products, err := client.FetchProducts()
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "AGILE-24-10-01", products[0].Code)
	assert.Equal(t, "GO-22-10-14", products[1].Code)
}

func TestFetchStandardUnitRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2026-08-31T00:00:00Z", r.URL.Query().Get("period_from"))
		assert.Equal(t, "2026-08-31T23:59:59Z", r.URL.Query().Get("period_to"))

		fmt.Fprint(w, `{"count":2,"next":null,"results":[
			{"valid_from":"2026-08-31T00:00:00Z","valid_to":"2026-08-31T00:30:00Z","payment_method":null,"value_inc_vat":21.5},
			{"valid_from":"2026-08-31T00:30:00Z","valid_to":null,"payment_method":"DIRECT_DEBIT","value_inc_vat":19.2}
		]}`)
	}))
	defer server.Close()

	client := NewOctopusClient("A-12345678", "sk_live_abcdefghijklmnop", server.URL, NewLogger(false))

	periods, err := client.FetchStandardUnitRates(server.URL+"/rates/", time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, periods, 2)

	assert.True(t, periods[0].UnitRateIncVAT.Equal(decimal.NewFromFloat(21.5)))
	assert.Nil(t, periods[0].PaymentMethod)
	require.NotNil(t, periods[0].ValidTo)
	assert.Equal(t, time.UTC, periods[0].ValidTo.Location())

	assert.Nil(t, periods[1].ValidTo, "null valid_to stays open-ended")
	require.NotNil(t, periods[1].PaymentMethod)
	assert.Equal(t, PaymentMethodDirectDebit, *periods[1].PaymentMethod)
}

// graphQLTestServer answers the token, account and telemetry queries with
// canned responses, dispatching on the query text
func graphQLTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/graphql/", r.URL.Path)

		var payload struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		switch {
		case strings.Contains(payload.Query, "obtainKrakenToken"):
			fmt.Fprint(w, `{"data":{"obtainKrakenToken":{"token":"jwt-token"}}}`)

		case strings.Contains(payload.Query, "smartMeterTelemetry"):
			assert.Equal(t, "device-1", payload.Variables["deviceId"])
			fmt.Fprint(w, `{"data":{"smartMeterTelemetry":[
				{"readAt":"2026-08-31T00:30:00Z","consumptionDelta":"250","costDeltaWithTax":"5.375"},
				{"readAt":"2026-08-31T01:00:00Z","consumptionDelta":null,"costDeltaWithTax":null}
			]}}`)

		case strings.Contains(payload.Query, "electricityAgreements"):
			assert.Equal(t, "jwt-token", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"data":{"account":{"electricityAgreements":[{
				"validFrom":"2026-01-15T00:00:00Z",
				"validTo":null,
				"meterPoint":{
					"mpan":"1234567890123",
					"direction":"IMPORT",
					"meters":[{"smartDevices":[{"deviceId":"device-1"}]}]
				},
				"tariff":{"tariffCode":"E-1R-GO-VAR-22-10-14-C","standingCharge":47.85}
			}]}}}`)

		default:
			t.Errorf("unexpected GraphQL query: %s", payload.Query)
		}
	}))
}

func TestAccountSnapshot(t *testing.T) {
	server := graphQLTestServer(t)
	defer server.Close()

	client := NewOctopusClient("A-12345678", "sk_live_abcdefghijklmnop", server.URL, NewLogger(false))

	snapshot, err := client.AccountSnapshot(DefaultCatalog(), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "go", snapshot.CurrentTariff.ID)
	assert.True(t, snapshot.StandingCharge.Equal(decimal.NewFromFloat(47.85)))
	assert.Equal(t, "C", snapshot.RegionCode)
	assert.Equal(t, "1234567890123", snapshot.MeterPointID)
	assert.Equal(t, "device-1", snapshot.DeviceID)

	require.Len(t, snapshot.Consumption, 2)
	assert.True(t, snapshot.Consumption[0].DeltaWh.Equal(decimal.NewFromInt(250)))
	assert.True(t, snapshot.Consumption[0].CostWithTax.Equal(decimal.NewFromFloat(5.375)))
	// Null telemetry values read as zero
	assert.True(t, snapshot.Consumption[1].DeltaWh.IsZero())
	assert.True(t, snapshot.Consumption[1].CostWithTax.IsZero())
}

func TestHasAgreementStarting(t *testing.T) {
	server := graphQLTestServer(t)
	defer server.Close()

	client := NewOctopusClient("A-12345678", "sk_live_abcdefghijklmnop", server.URL, NewLogger(false))

	ok, err := client.HasAgreementStarting(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.HasAgreementStarting(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticateBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"obtainKrakenToken":{"token":""}},"errors":[{"message":"Invalid API key"}]}`)
	}))
	defer server.Close()

	client := NewOctopusClient("A-12345678", "bad-key-but-long-enough", server.URL, NewLogger(false))

	err := client.Authenticate()
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, "Invalid API key")
}

func TestRestGetErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewOctopusClient("A-12345678", "sk_live_abcdefghijklmnop", server.URL, NewLogger(false))

	_, err := client.FetchProducts()
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}
