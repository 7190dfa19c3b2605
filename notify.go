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
	"strings"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/containrrr/shoutrrr/pkg/types"
)

// notificationTitle is the default title on outgoing notifications
const notificationTitle = "octominmax"

// ShoutrrrNotifier fans messages out to the configured shoutrrr URLs.
// Delivery is fire-and-forget: every message is also printed locally, and
// delivery failures are logged, never propagated.
type ShoutrrrNotifier struct {
	sender *router.ServiceRouter
	logger *Logger
}

// NewNotifier builds a notifier from a comma-separated list of shoutrrr
// URLs. An empty list, or URLs that fail to parse, degrade to local output
// only.
func NewNotifier(urls string, logger *Logger) *ShoutrrrNotifier {
	n := &ShoutrrrNotifier{logger: logger}

	var targets []string
	for _, raw := range strings.Split(urls, ",") {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			targets = append(targets, trimmed)
		}
	}

	if len(targets) == 0 {
		logger.Info("No notification services configured; messages will only be printed")
		return n
	}

	sender, err := shoutrrr.CreateSender(targets...)
	if err != nil {
		logger.Warn("Failed to initialise notification sender; messages will only be printed", "error", err)
		return n
	}

	n.sender = sender
	logger.Info("Notification sender initialised", "services", len(targets))
	return n
}

func (n *ShoutrrrNotifier) send(message, title string) {
	n.logger.UserMessage("%s", message)

	if n.sender == nil {
		return
	}

	params := types.Params{"title": title}
	for _, err := range n.sender.Send(message, &params) {
		if err != nil {
			n.logger.Warn("Notification delivery failed", "error", err)
		}
	}
}

// Notify sends an informational message
func (n *ShoutrrrNotifier) Notify(message, title string) {
	n.send(message, title)
}

// NotifyError sends a diagnostic message, fenced so chat sinks render it
// verbatim
func (n *ShoutrrrNotifier) NotifyError(message, title string) {
	n.send(fmt.Sprintf("```\n%s\n```", message), title)
}
