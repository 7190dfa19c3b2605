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
)

// WorkflowState is a switch workflow state
type WorkflowState int

const (
	StateIdle WorkflowState = iota
	StateRequested
	StateAwaitingAgreement
	StateAgreementAccepted
	StateVerified
	StateFailed
)

func (s WorkflowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequested:
		return "requested"
	case StateAwaitingAgreement:
		return "awaiting_agreement"
	case StateAgreementAccepted:
		return "agreement_accepted"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SwitchInitiator performs the switch request itself. The direct API
// mutation is the implementation shipped here; a UI-automation fallback
// would implement the same interface, and the workflow does not care which
// one it is driving.
type SwitchInitiator interface {
	StartSwitch(mpan, productCode string, changeDate time.Time) (string, error)
}

// SwitchGateway is everything the switch workflow needs from the remote API
type SwitchGateway interface {
	SwitchInitiator
	TermsVersion(productCode string) (major, minor int, err error)
	AcceptTerms(enrolmentID string, major, minor int) (acceptedVersion string, err error)
	HasAgreementStarting(day time.Time) (bool, error)
}

// SwitchWorkflow drives the multi-step external switch process:
// request the switch, wait for the supplier to generate the pending
// agreement, accept its terms, then verify the new agreement landed
// (with exactly one bounded retry). Every transition notifies the user;
// any failure is terminal for this run.
type SwitchWorkflow struct {
	gateway  SwitchGateway
	notifier Notifier
	logger   *Logger

	agreementWait   time.Duration
	verifyRetryWait time.Duration
	sleep           func(time.Duration)

	state         WorkflowState
	failureReason string
}

// NewSwitchWorkflow creates a switch workflow with real waits
func NewSwitchWorkflow(gateway SwitchGateway, notifier Notifier, logger *Logger, agreementWait, verifyRetryWait time.Duration) *SwitchWorkflow {
	return &SwitchWorkflow{
		gateway:         gateway,
		notifier:        notifier,
		logger:          logger,
		agreementWait:   agreementWait,
		verifyRetryWait: verifyRetryWait,
		sleep:           time.Sleep,
		state:           StateIdle,
	}
}

// State returns the workflow's current state
func (w *SwitchWorkflow) State() WorkflowState {
	return w.state
}

// FailureReason returns the terminal failure reason, empty unless Failed
func (w *SwitchWorkflow) FailureReason() string {
	return w.failureReason
}

func (w *SwitchWorkflow) transition(to WorkflowState) {
	w.logger.LogWorkflowTransition(w.state, to)
	w.state = to
}

// fail moves to the terminal Failed state with a distinct diagnostic
// notification. A failed switch is reported, never escalated: the run ends
// normally and nothing retries until the next scheduled day.
func (w *SwitchWorkflow) fail(reason, message string) WorkflowState {
	w.failureReason = reason
	w.transition(StateFailed)
	w.notifier.NotifyError(message, notificationTitle)
	return w.state
}

// Execute runs the workflow to a terminal state for the given target tariff
func (w *SwitchWorkflow) Execute(snapshot *AccountSnapshot, target *Tariff, day time.Time) WorkflowState {
	w.state = StateIdle
	w.failureReason = ""

	// Both identifiers are required before the gateway is contacted
	if target.ProductCode == "" {
		return w.fail("missing product_code",
			fmt.Sprintf("Cannot switch to %s: its product code was never resolved. Please check the product catalog manually.", target.DisplayName))
	}
	if snapshot.MeterPointID == "" {
		return w.fail("missing mpan",
			"Cannot switch: the account snapshot has no MPAN. Please check your meter point details.")
	}

	enrolmentID, err := w.gateway.StartSwitch(snapshot.MeterPointID, target.ProductCode, day)
	if err != nil {
		return w.fail("switch request failed",
			fmt.Sprintf("Switch request to %s failed: %v. No enrolment was created.", target.DisplayName, err))
	}
	if enrolmentID == "" {
		return w.fail("no enrolment id",
			fmt.Sprintf("Switch request to %s returned no enrolment id. Please check your account for a pending switch.", target.DisplayName))
	}
	w.transition(StateRequested)
	w.notifier.Notify("Tariff switch requested successfully.", notificationTitle)

	// Blind, unconditional delay: the supplier needs time to generate the
	// pending agreement, and there is nothing to poll
	w.transition(StateAwaitingAgreement)
	w.sleep(w.agreementWait)

	major, minor, err := w.gateway.TermsVersion(target.ProductCode)
	if err != nil {
		return w.fail("terms version unavailable",
			fmt.Sprintf("Could not fetch terms and conditions for %s: %v. The pending agreement was not accepted - please accept it manually.", target.DisplayName, err))
	}

	acceptedVersion, err := w.gateway.AcceptTerms(enrolmentID, major, minor)
	if err != nil {
		return w.fail("terms acceptance failed",
			fmt.Sprintf("Accepting terms for %s failed: %v. Please accept the pending agreement manually.", target.DisplayName, err))
	}
	w.transition(StateAgreementAccepted)
	w.notifier.Notify(fmt.Sprintf("Accepted agreement (terms %s). Switch successful.", acceptedVersion), notificationTitle)

	verified := w.verifyAgreement(day)
	if !verified {
		w.sleep(w.verifyRetryWait)
		verified = w.verifyAgreement(day)
	}
	if !verified {
		return w.fail("verification failed after retry",
			"Unable to verify the new agreement after retrying. The switch may still be pending on the supplier's side - please check your emails.")
	}

	w.transition(StateVerified)
	w.notifier.Notify("Verified new agreement successfully. Process finished.", notificationTitle)
	return w.state
}

// verifyAgreement checks for an active agreement starting today; transport
// errors count as not-found so the bounded retry still applies
func (w *SwitchWorkflow) verifyAgreement(day time.Time) bool {
	ok, err := w.gateway.HasAgreementStarting(day)
	if err != nil {
		w.logger.Warn("Agreement verification query failed", "error", err)
		return false
	}
	return ok
}
