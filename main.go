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
	"flag"
	"fmt"
	"os"
	"time"
)

func main() {
	// Define command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	accountNumber := flag.String("account", "", "Octopus Energy account number (overrides config)")
	apiKey := flag.String("key", "", "Octopus Energy API key (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Compare tariffs but never initiate a switch")
	oneOff := flag.Bool("one-off", false, "Run a single comparison immediately and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("octominmax %s\n", GetVersion())
		os.Exit(0)
	}

	// Initialize logger
	logger := NewLogger(*debug)
	logger.Info("Starting octominmax", "version", GetVersion())

	// Load configuration
	logger.Info("Loading configuration", "config_file", *configPath)
	config, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Override with command-line flags
	if *accountNumber != "" {
		config.AccountNumber = *accountNumber
	}
	if *apiKey != "" {
		config.APIKey = *apiKey
	}
	if *dryRun {
		config.DryRun = true
	}
	if *oneOff {
		config.OneOff = true
	}
	if *debug {
		config.Debug = true
	}
	if config.Debug && !*debug {
		// Recreate logger with debug enabled
		logger = NewLogger(true)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Configuration loaded successfully")

	// Initialize storage. A broken storage path degrades to cache-free
	// operation rather than stopping the agent.
	logger.Info("Initializing storage", "path", config.StoragePath)
	storage, err := NewStorage(config.StoragePath, config.AccountNumber, logger)
	if err != nil {
		logger.Warn("Storage unavailable, running without cache", "error", err)
		storage = nil
	} else {
		defer storage.Close()
	}

	// Initialize API client
	client := NewOctopusClient(config.AccountNumber, config.APIKey, config.BaseURL, logger)

	// Initialize notifications
	notifier := NewNotifier(config.NotificationURLs, logger)

	catalog := DefaultCatalog()
	resolver := NewRateResolver(client, storage, logger)
	engine := NewEngine(client, resolver, catalog, logger)
	workflow := NewSwitchWorkflow(client, notifier, logger, config.AgreementWait(), config.VerifyRetryWait())
	runner := NewRunner(client, engine, workflow, notifier, storage, catalog, config, logger)

	runOnce := func() {
		if err := runner.RunOnce(time.Now().UTC()); err != nil {
			logger.Error("Run failed", "error", err)
			notifier.NotifyError(fmt.Sprintf("Run failed: %v", err), "octominmax error")
		}
	}

	if config.OneOff {
		logger.Info("Running in one-off mode")
		runOnce()
		return
	}

	scheduler := NewScheduler(config, runOnce, logger)
	scheduler.RunForever()
}
