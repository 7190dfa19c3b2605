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
	"math/rand"
	"time"
)

// pollInterval is how often the scheduler checks the wall clock
const pollInterval = 30 * time.Second

// Scheduler triggers one comparison run per calendar day at a configured
// HH:MM, with a randomised start jitter so many installations do not hit
// the shared API at the same instant. Runs block: the next poll only
// happens after the previous run has completed.
type Scheduler struct {
	executionTime string
	jitterMin     time.Duration
	jitterMax     time.Duration
	run           func()
	logger        *Logger

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)
}

// NewScheduler creates a scheduler for the configured execution time
func NewScheduler(config *Config, run func(), logger *Logger) *Scheduler {
	jitterMin, jitterMax := config.JitterWindow()
	return &Scheduler{
		executionTime: config.ExecutionTime,
		jitterMin:     jitterMin,
		jitterMax:     jitterMax,
		run:           run,
		logger:        logger,
		now:           time.Now,
		sleep:         time.Sleep,
	}
}

// jitter picks a random delay within the configured window
func (s *Scheduler) jitter() time.Duration {
	if s.jitterMax <= s.jitterMin {
		return s.jitterMin
	}
	return s.jitterMin + time.Duration(rand.Int63n(int64(s.jitterMax-s.jitterMin)))
}

// RunForever polls the wall clock and fires at most one run per date
func (s *Scheduler) RunForever() {
	s.logger.Info("Scheduler started", "execution_time", s.executionTime)

	lastRunDate := ""
	for {
		now := s.now()
		if now.Format("15:04") == s.executionTime && now.Format("2006-01-02") != lastRunDate {
			lastRunDate = now.Format("2006-01-02")

			delay := s.jitter()
			s.logger.Info("Execution window reached", "jitter", delay)
			s.sleep(delay)

			s.run()
		}

		s.sleep(pollInterval)
	}
}
