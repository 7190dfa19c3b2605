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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitterWithinWindow(t *testing.T) {
	s := &Scheduler{jitterMin: 10 * time.Second, jitterMax: 600 * time.Second}

	for i := 0; i < 1000; i++ {
		d := s.jitter()
		assert.GreaterOrEqual(t, d, 10*time.Second)
		assert.Less(t, d, 600*time.Second)
	}
}

func TestJitterDegenerateWindow(t *testing.T) {
	s := &Scheduler{jitterMin: 5 * time.Second, jitterMax: 5 * time.Second}
	assert.Equal(t, 5*time.Second, s.jitter())

	s = &Scheduler{}
	assert.Equal(t, time.Duration(0), s.jitter())
}

type stopScheduler struct{}

// TestRunForeverFiresOncePerDay drives the polling loop through a scripted
// clock: two polls inside the same execution minute must produce one run, a
// poll at the same minute the next day produces another.
func TestRunForeverFiresOncePerDay(t *testing.T) {
	day0 := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	clock := []time.Time{
		day0.Add(22*time.Hour + 59*time.Minute),
		day0.Add(23 * time.Hour),
		day0.Add(23 * time.Hour),
		day0.AddDate(0, 0, 1).Add(23 * time.Hour),
	}

	runs := 0
	idx := 0
	s := &Scheduler{
		executionTime: "23:00",
		run:           func() { runs++ },
		logger:        NewLogger(false),
		now: func() time.Time {
			if idx >= len(clock) {
				panic(stopScheduler{})
			}
			next := clock[idx]
			idx++
			return next
		},
		sleep: func(time.Duration) {},
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(stopScheduler); !ok {
					panic(r)
				}
			}
		}()
		s.RunForever()
	}()

	assert.Equal(t, 2, runs)
}
