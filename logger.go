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
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with domain-specific methods
type Logger struct {
	*slog.Logger
}

// NewLogger creates a text-formatted logger
func NewLogger(debug bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return &Logger{slog.New(handler)}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{l.With("component", component)}
}

// WithAccountNumber adds a masked account number field to the logger
func (l *Logger) WithAccountNumber(accountNumber string) *Logger {
	masked := accountNumber
	if len(accountNumber) > 5 {
		masked = accountNumber[:5] + "***"
	}
	return &Logger{l.With("account", masked)}
}

// LogAPIRequest logs an API request
func (l *Logger) LogAPIRequest(method, endpoint string) {
	l.Debug("API request",
		"method", method,
		"endpoint", endpoint,
	)
}

// LogAPIError logs an API error
func (l *Logger) LogAPIError(endpoint string, statusCode int, err error) {
	l.Error("API request failed",
		"endpoint", endpoint,
		"status_code", statusCode,
		"error", err,
	)
}

// LogComparisonStage logs completion of a comparison stage
func (l *Logger) LogComparisonStage(stage string) {
	l.Info("Comparison stage completed",
		"stage", stage,
	)
}

// LogTariffUnpriced logs a candidate tariff dropping out of the comparison
func (l *Logger) LogTariffUnpriced(tariffID string, err error) {
	l.Warn("Tariff could not be priced",
		"tariff", tariffID,
		"error", err,
	)
}

// LogWorkflowTransition logs a switch workflow state change
func (l *Logger) LogWorkflowTransition(from, to WorkflowState) {
	l.Info("Switch workflow transition",
		"from", from.String(),
		"to", to.String(),
	)
}

// LogStorageOperation logs storage operations
func (l *Logger) LogStorageOperation(operation, path string) {
	l.Debug("Storage operation",
		"operation", operation,
		"path", path,
	)
}

// UserMessage outputs a message directly to stdout (bypassing structured logging)
func (l *Logger) UserMessage(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}
