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

const (
	// DefaultBaseURL is the Octopus Energy API base URL
	DefaultBaseURL = "https://api.octopus.energy/v1"

	// OctopusBrand filters the public product catalog to Octopus' own products
	OctopusBrand = "OCTOPUS_ENERGY"

	// DirectionImport identifies consumption (as opposed to export) tariffs
	DirectionImport = "IMPORT"

	// PaymentMethodDirectDebit is the only non-null payment method eligible
	// when matching unit-rate periods
	PaymentMethodDirectDebit = "DIRECT_DEBIT"
)

// GraphQL mutation to obtain a Kraken API token
const obtainKrakenTokenQuery = `
mutation obtainKrakenToken($apiKey: String!) {
  obtainKrakenToken(input: { APIKey: $apiKey }) {
    token
  }
}
`

// GraphQL query for the account's active electricity agreements. The tariff
// block is a union, so the fields we need are spelled out per concrete type.
const accountQuery = `
query Account($accountNumber: String!) {
  account(accountNumber: $accountNumber) {
    electricityAgreements(active: true) {
      validFrom
      validTo
      meterPoint {
        mpan
        direction
        meters(includeInactive: false) {
          smartDevices {
            deviceId
          }
        }
      }
      tariff {
        ... on HalfHourlyTariff {
          tariffCode
          standingCharge
        }
        ... on StandardTariff {
          tariffCode
          standingCharge
        }
        ... on DayNightTariff {
          tariffCode
          standingCharge
        }
      }
    }
  }
}
`

// GraphQL query for half-hourly smart meter telemetry
const telemetryQuery = `
query SmartMeterTelemetry($deviceId: String!, $start: DateTime!, $end: DateTime!) {
  smartMeterTelemetry(
    deviceId: $deviceId
    grouping: HALF_HOURLY
    start: $start
    end: $end
  ) {
    readAt
    consumptionDelta
    costDeltaWithTax
  }
}
`

// GraphQL mutation to start a product switch for a meter point
const startSwitchQuery = `
mutation StartProductSwitch($accountNumber: String!, $mpan: String!, $productCode: String!, $changeDate: Date!) {
  startProductSwitch(input: {
    accountNumber: $accountNumber,
    mpan: $mpan,
    productCode: $productCode,
    changeDate: $changeDate
  }) {
    enrolmentId
  }
}
`

// GraphQL query for a product's current terms and conditions version
const termsVersionQuery = `
query TermsVersion($productCode: String!) {
  termsAndConditionsForProduct(productCode: $productCode) {
    version {
      major
      minor
    }
  }
}
`

// GraphQL mutation to accept the pending agreement's terms
const acceptTermsQuery = `
mutation AcceptTermsAndConditions($accountNumber: String!, $enrolmentId: String!, $versionMajor: Int!, $versionMinor: Int!) {
  acceptTermsAndConditions(input: {
    accountNumber: $accountNumber,
    enrolmentId: $enrolmentId,
    termsVersion: {
      versionMajor: $versionMajor,
      versionMinor: $versionMinor
    }
  }) {
    acceptedVersion
  }
}
`
