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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OctopusClient handles communication with the Octopus Energy GraphQL API.
// It also implements the switch gateway operations used by the workflow.
type OctopusClient struct {
	accountNumber string
	apiKey        string
	baseURL       string
	httpClient    *http.Client
	logger        *Logger

	// JWT token management
	jwtToken  string
	jwtExpiry time.Time
	jwtMutex  sync.RWMutex

	// Rate limiting
	lastRequest  time.Time
	requestMutex sync.Mutex
}

// NewOctopusClient creates a new Octopus Energy API client
func NewOctopusClient(accountNumber, apiKey, baseURL string, logger *Logger) *OctopusClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OctopusClient{
		accountNumber: accountNumber,
		apiKey:        apiKey,
		baseURL:       baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (c *OctopusClient) graphQLEndpoint() string {
	return c.baseURL + "/graphql/"
}

// ensureValidToken ensures we have a valid JWT token
func (c *OctopusClient) ensureValidToken() error {
	c.jwtMutex.RLock()
	hasValidToken := c.jwtToken != "" && time.Now().Before(c.jwtExpiry)
	c.jwtMutex.RUnlock()

	if hasValidToken {
		return nil
	}

	return c.refreshJWTToken()
}

// refreshJWTToken obtains a new JWT token from the API
func (c *OctopusClient) refreshJWTToken() error {
	c.jwtMutex.Lock()
	defer c.jwtMutex.Unlock()

	c.logger.Debug("Refreshing JWT token")

	payload := map[string]interface{}{
		"query": obtainKrakenTokenQuery,
		"variables": map[string]interface{}{
			"apiKey": c.apiKey,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequest("POST", c.graphQLEndpoint(), bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", GetUserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{
			Endpoint: c.graphQLEndpoint(),
			Message:  "failed to request JWT token",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   c.graphQLEndpoint(),
			Message:    fmt.Sprintf("token request failed: %s", string(bodyBytes)),
		}
	}

	var tokenResp ObtainTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	if len(tokenResp.Errors) > 0 {
		return &AuthError{
			Message: fmt.Sprintf("GraphQL error obtaining token: %s", tokenResp.Errors[0].Message),
		}
	}

	if tokenResp.Data.ObtainKrakenToken.Token == "" {
		return &AuthError{
			Message: "empty token received from API",
		}
	}

	c.jwtToken = tokenResp.Data.ObtainKrakenToken.Token
	// Tokens typically last an hour; refresh a little early
	c.jwtExpiry = time.Now().Add(55 * time.Minute)

	c.logger.Debug("JWT token refreshed successfully")
	return nil
}

// makeGraphQLRequest makes a GraphQL request with proper authentication
func (c *OctopusClient) makeGraphQLRequest(query string, variables map[string]interface{}, result interface{}) error {
	if err := c.ensureValidToken(); err != nil {
		return err
	}

	// Rate limiting: minimum 100ms between requests
	c.requestMutex.Lock()
	if elapsed := time.Since(c.lastRequest); elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.requestMutex.Unlock()

	payload := map[string]interface{}{
		"query":     query,
		"variables": variables,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	req, err := http.NewRequest("POST", c.graphQLEndpoint(), bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create GraphQL request: %w", err)
	}

	c.jwtMutex.RLock()
	token := c.jwtToken
	c.jwtMutex.RUnlock()

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	req.Header.Set("User-Agent", GetUserAgent())

	c.logger.LogAPIRequest("POST", c.graphQLEndpoint())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{
			Endpoint: c.graphQLEndpoint(),
			Message:  "GraphQL request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Invalidate token so the next run re-authenticates
		c.jwtMutex.Lock()
		c.jwtToken = ""
		c.jwtMutex.Unlock()

		return &AuthError{
			Message: fmt.Sprintf("authentication failed (status %d)", resp.StatusCode),
		}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.LogAPIError(c.graphQLEndpoint(), resp.StatusCode, fmt.Errorf("%s", string(bodyBytes)))
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   c.graphQLEndpoint(),
			Message:    string(bodyBytes),
		}
	}

	if err := json.Unmarshal(bodyBytes, result); err != nil {
		return fmt.Errorf("failed to decode GraphQL response: %w", err)
	}

	return nil
}

// Authenticate obtains a fresh token. Called once at run start so auth
// failures surface before any comparison work begins.
func (c *OctopusClient) Authenticate() error {
	return c.refreshJWTToken()
}

// fetchAccount fetches the account's active electricity agreements
func (c *OctopusClient) fetchAccount() (*AccountResponse, error) {
	variables := map[string]interface{}{
		"accountNumber": c.accountNumber,
	}

	var response AccountResponse
	if err := c.makeGraphQLRequest(accountQuery, variables, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}

	if len(response.Errors) > 0 {
		return nil, &APIError{
			Endpoint: c.graphQLEndpoint(),
			Message:  fmt.Sprintf("GraphQL error: %s", response.Errors[0].Message),
		}
	}

	return &response, nil
}

// AccountSnapshot builds the run's view of the account: the current tariff
// (matched through the catalog), its standing charge, the region code, the
// MPAN and smart device needed later, and today's half-hourly consumption.
func (c *OctopusClient) AccountSnapshot(catalog *Catalog, day time.Time) (*AccountSnapshot, error) {
	c.logger.Info("Fetching account snapshot", "account_number_suffix", suffix(c.accountNumber))

	response, err := c.fetchAccount()
	if err != nil {
		return nil, err
	}

	agreements := response.Data.Account.ElectricityAgreements
	if len(agreements) == 0 {
		return nil, &PreconditionError{Field: "electricityAgreements", Message: "account has no active electricity agreements"}
	}

	// Select the IMPORT agreement; export meter points track solar/battery
	// exports and must not drive a consumption comparison
	var (
		tariffCode     string
		standingCharge *float64
		mpan           string
		deviceID       string
		found          bool
	)
	for _, agreement := range agreements {
		if agreement.MeterPoint.Direction != "" && agreement.MeterPoint.Direction != DirectionImport {
			continue
		}
		found = true
		if tariffCode == "" {
			tariffCode = agreement.Tariff.TariffCode
		}
		if standingCharge == nil {
			standingCharge = agreement.Tariff.StandingCharge
		}
		if mpan == "" {
			mpan = agreement.MeterPoint.MPAN
		}
		if deviceID == "" {
			for _, meter := range agreement.MeterPoint.Meters {
				for _, device := range meter.SmartDevices {
					if device.DeviceID != "" {
						deviceID = device.DeviceID
						break
					}
				}
				if deviceID != "" {
					break
				}
			}
		}
	}

	if !found {
		return nil, &PreconditionError{Field: "direction", Message: "no IMPORT electricity agreement on account"}
	}
	if tariffCode == "" {
		return nil, &PreconditionError{Field: "tariffCode", Message: "agreement tariff has no tariff code"}
	}
	if standingCharge == nil {
		return nil, &PreconditionError{Field: "standingCharge", Message: "agreement tariff has no standing charge"}
	}
	if mpan == "" {
		return nil, &PreconditionError{Field: "mpan", Message: "meter point has no MPAN"}
	}
	if deviceID == "" {
		return nil, &PreconditionError{Field: "deviceId", Message: "no smart device found on any meter"}
	}

	currentTariff, err := catalog.MatchCurrent(tariffCode)
	if err != nil {
		return nil, err
	}

	// Region code is the single-character suffix of the tariff code
	regionCode := tariffCode[len(tariffCode)-1:]

	consumption, err := c.fetchTelemetry(deviceID, day)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Account snapshot built",
		"tariff", currentTariff.ID,
		"region", regionCode,
		"readings", len(consumption),
	)

	return &AccountSnapshot{
		CurrentTariff:  currentTariff,
		StandingCharge: decimal.NewFromFloat(*standingCharge),
		RegionCode:     regionCode,
		Consumption:    consumption,
		MeterPointID:   mpan,
		DeviceID:       deviceID,
	}, nil
}

// fetchTelemetry fetches half-hourly readings for the given UTC calendar day
func (c *OctopusClient) fetchTelemetry(deviceID string, day time.Time) ([]ConsumptionReading, error) {
	start, end := dayWindow(day)

	variables := map[string]interface{}{
		"deviceId": deviceID,
		"start":    start,
		"end":      end,
	}

	var response TelemetryResponse
	if err := c.makeGraphQLRequest(telemetryQuery, variables, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch telemetry: %w", err)
	}

	if len(response.Errors) > 0 {
		return nil, &APIError{
			Endpoint: c.graphQLEndpoint(),
			Message:  fmt.Sprintf("GraphQL error: %s", response.Errors[0].Message),
		}
	}

	readings := make([]ConsumptionReading, 0, len(response.Data.SmartMeterTelemetry))
	for _, entry := range response.Data.SmartMeterTelemetry {
		readAt, err := time.Parse(time.RFC3339, entry.ReadAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse readAt %q: %w", entry.ReadAt, err)
		}

		readings = append(readings, ConsumptionReading{
			ReadAt:      readAt.UTC(),
			DeltaWh:     parseWireDecimal(entry.ConsumptionDelta),
			CostWithTax: parseWireDecimal(entry.CostDeltaWithTax),
		})
	}

	c.logger.Debug("Telemetry fetched", "device", deviceID, "readings", len(readings))
	return readings, nil
}

// StartSwitch requests a switch of the meter point onto the target product.
// A successful response without an enrolment id is treated as a failure by
// the workflow, not here.
func (c *OctopusClient) StartSwitch(mpan, productCode string, changeDate time.Time) (string, error) {
	variables := map[string]interface{}{
		"accountNumber": c.accountNumber,
		"mpan":          mpan,
		"productCode":   productCode,
		"changeDate":    changeDate.UTC().Format("2006-01-02"),
	}

	var response StartSwitchResponse
	if err := c.makeGraphQLRequest(startSwitchQuery, variables, &response); err != nil {
		return "", fmt.Errorf("failed to start product switch: %w", err)
	}

	if len(response.Errors) > 0 {
		return "", &APIError{
			Endpoint: c.graphQLEndpoint(),
			Message:  fmt.Sprintf("GraphQL error: %s", response.Errors[0].Message),
		}
	}

	return response.Data.StartProductSwitch.EnrolmentID, nil
}

// TermsVersion fetches the current terms-and-conditions version of a product
func (c *OctopusClient) TermsVersion(productCode string) (int, int, error) {
	variables := map[string]interface{}{
		"productCode": productCode,
	}

	var response TermsVersionResponse
	if err := c.makeGraphQLRequest(termsVersionQuery, variables, &response); err != nil {
		return 0, 0, fmt.Errorf("failed to fetch terms version: %w", err)
	}

	if len(response.Errors) > 0 {
		return 0, 0, &APIError{
			Endpoint: c.graphQLEndpoint(),
			Message:  fmt.Sprintf("GraphQL error: %s", response.Errors[0].Message),
		}
	}

	version := response.Data.TermsAndConditionsForProduct.Version
	return version.Major, version.Minor, nil
}

// AcceptTerms accepts the pending agreement's terms, returning the accepted
// version string
func (c *OctopusClient) AcceptTerms(enrolmentID string, major, minor int) (string, error) {
	variables := map[string]interface{}{
		"accountNumber": c.accountNumber,
		"enrolmentId":   enrolmentID,
		"versionMajor":  major,
		"versionMinor":  minor,
	}

	var response AcceptTermsResponse
	if err := c.makeGraphQLRequest(acceptTermsQuery, variables, &response); err != nil {
		return "", fmt.Errorf("failed to accept terms: %w", err)
	}

	if len(response.Errors) > 0 {
		return "", &APIError{
			Endpoint: c.graphQLEndpoint(),
			Message:  fmt.Sprintf("GraphQL error: %s", response.Errors[0].Message),
		}
	}

	return response.Data.AcceptTermsAndConditions.AcceptedVersion, nil
}

// HasAgreementStarting reports whether the account holds an active agreement
// whose validFrom date equals the given day. Used to verify a switch landed.
func (c *OctopusClient) HasAgreementStarting(day time.Time) (bool, error) {
	response, err := c.fetchAccount()
	if err != nil {
		return false, err
	}

	target := day.UTC().Format("2006-01-02")
	for _, agreement := range response.Data.Account.ElectricityAgreements {
		validFrom, err := time.Parse(time.RFC3339, agreement.ValidFrom)
		if err != nil {
			continue
		}
		if validFrom.UTC().Format("2006-01-02") == target {
			return true, nil
		}
	}

	return false, nil
}

// parseWireDecimal parses a nullable numeric string off the wire; null or
// unparseable values become zero, matching the "absent cost is zero" rule
func parseWireDecimal(raw *string) decimal.Decimal {
	if raw == nil || *raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// dayWindow returns the ISO-8601 bounds of one UTC calendar day
func dayWindow(day time.Time) (string, string) {
	d := day.UTC().Format("2006-01-02")
	return d + "T00:00:00Z", d + "T23:59:59Z"
}

// suffix masks all but the last characters of an identifier for logging
func suffix(s string) string {
	if len(s) <= 4 {
		return s
	}
	return "***" + s[len(s)-4:]
}
