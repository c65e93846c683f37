/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cli

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// spinnerFrames is the repeating cursor animation. Plain ASCII so the
// output stays readable in logs and dumb terminals.
const spinnerFrames = `|/-\`

// Spinner animates an in-flight operation of unknown length, such as a
// snapshot restore replaying rows.
type Spinner struct {
	mu      sync.Mutex
	message string
	running bool
	halt    chan struct{}
	stopped chan struct{}
}

// NewSpinner returns an idle spinner labeled with message.
func NewSpinner(message string) *Spinner {
	return &Spinner{message: message}
}

// Start begins animating on a background goroutine. Starting an
// already-running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.halt = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.spin(s.halt, s.stopped)
}

func (s *Spinner) spin(halt <-chan struct{}, stopped chan<- struct{}) {
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()
	frame := 0
	for {
		select {
		case <-halt:
			fmt.Print("\r\033[K")
			close(stopped)
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			fmt.Printf("\r%c %s", spinnerFrames[frame%len(spinnerFrames)], msg)
			frame++
		}
	}
}

// UpdateMessage swaps the label mid-run, e.g. a running restore count.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	halt, stopped := s.halt, s.stopped
	s.mu.Unlock()

	close(halt)
	<-stopped
}

// StopWithSuccess halts the animation and prints a confirmation line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	PrintSuccess("%s", message)
}

// StopWithError halts the animation and prints a failure line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	PrintError("%s", message)
}

// ProgressBar tracks an operation with a known step count, such as a
// dump scanning a fixed list of tables.
type ProgressBar struct {
	label   string
	total   int
	current int
	width   int
}

// NewProgressBar returns a bar for total steps, labeled with label.
func NewProgressBar(total int, label string) *ProgressBar {
	return &ProgressBar{label: label, total: total, width: 24}
}

// Update redraws the bar at current completed steps:
//
//	scanning tables [========--------] 2/4
func (p *ProgressBar) Update(current int) {
	if current < 0 {
		current = 0
	}
	if current > p.total {
		current = p.total
	}
	p.current = current

	filled := 0
	if p.total > 0 {
		filled = p.width * p.current / p.total
	}
	bar := strings.Repeat("=", filled) + strings.Repeat("-", p.width-filled)
	fmt.Printf("\r%s [%s] %d/%d", p.label, bar, p.current, p.total)
}

// Complete fills the bar and terminates its line.
func (p *ProgressBar) Complete() {
	p.Update(p.total)
	fmt.Println()
}
