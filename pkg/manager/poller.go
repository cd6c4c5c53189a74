/*
 * Copyright 2025 Carver Automation Corporation.
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

package manager

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/crowdpool/pkg/db"
	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/models"
)

// CycleDecision records what a poll cycle chose to do.
type CycleDecision string

const (
	CycleSkipped   CycleDecision = "skip"
	CycleAllocated CycleDecision = "allocate"
)

// CycleResult summarizes one poll cycle.
type CycleResult struct {
	Decision       CycleDecision
	LiveTokens     int
	PresentDevices int
	Unclaimed      int
	// Attempted lists the serials handed to the allocator.
	Attempted []string
	Minted    int
	Publish   PublishSummary
}

// Poller is the reconciliation loop that keeps every present device covered
// by a live token. It is either idle or polling.
type Poller struct {
	store       db.Service
	gateway     Gateway
	allocator   *Allocator
	publisher   *Publisher
	clock       Clock
	metrics     *managerMetrics
	logger      logger.Logger
	interval    time.Duration
	taskMinutes float64

	mu     sync.Mutex
	active bool
	stop   chan struct{}
	wg     sync.WaitGroup

	// cycleMu keeps a cycle started after Stop+Start from overlapping one
	// still in flight.
	cycleMu sync.Mutex
}

// Start moves the poller from idle to polling and runs a cycle immediately.
// It returns false when the poller was already polling. ctx bounds the whole
// run, not a single cycle.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return false
	}

	p.active = true
	p.stop = make(chan struct{})

	p.wg.Add(1)

	go p.run(ctx, p.stop)

	p.logger.Info().Dur("interval", p.interval).Msg("polling started")

	return true
}

// Stop prevents the next cycle from being scheduled. A cycle already in
// flight runs to completion. It returns false when the poller was idle.
func (p *Poller) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return false
	}

	p.active = false
	close(p.stop)

	p.logger.Info().Msg("polling stopped")

	return true
}

// IsActive reports whether the poller is polling.
func (p *Poller) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.active
}

// Wait blocks until every loop goroutine has returned or ctx is done.
func (p *Poller) Wait(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) run(ctx context.Context, stop chan struct{}) {
	defer p.wg.Done()

	for !p.halted(ctx, stop) {
		if _, err := p.RunCycle(ctx); err != nil {
			p.logger.Error().Err(err).Msg("poll cycle failed, polling stopped")
			p.markIdle(stop)

			return
		}

		if p.halted(ctx, stop) {
			return
		}

		timer := p.clock.NewTimer(p.interval)

		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			p.markIdle(stop)

			return
		case <-timer.Chan():
		}
	}
}

// halted reports whether the run owning stop must end before its next step.
func (p *Poller) halted(ctx context.Context, stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	case <-ctx.Done():
		p.markIdle(stop)
		return true
	default:
		return false
	}
}

// markIdle transitions to idle on behalf of the run that owns stop. A run
// that was already stopped, or superseded by a later Start, changes nothing.
func (p *Poller) markIdle(stop chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active || p.stop != stop {
		return
	}

	p.active = false
	close(p.stop)
}

// RunCycle performs one reconciliation pass. A failure to read tokens or
// devices, or an invariant violation during allocation, is returned. Other
// per-device failures are logged and do not fail the cycle.
func (p *Poller) RunCycle(ctx context.Context) (CycleResult, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	result, err := p.cycle(ctx)

	switch {
	case err != nil:
		p.metrics.pollCycles.Add(ctx, 1, attrCycleError)
	case result.Decision == CycleSkipped:
		p.metrics.pollCycles.Add(ctx, 1, attrCycleSkipped)
	default:
		p.metrics.pollCycles.Add(ctx, 1, attrCycleAllocate)
	}

	return result, err
}

func (p *Poller) cycle(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	tokens, err := p.store.ListTokens(ctx)
	if err != nil {
		return result, upstream("list tokens", err)
	}

	devices, err := p.gateway.ListDevices(ctx)
	if err != nil {
		return result, upstream("list devices", err)
	}

	models.AttachTokens(devices, tokens)

	present := models.PresentDevices(devices)
	unclaimed := models.UnclaimedDevices(present)

	result.LiveTokens = len(models.LiveTokens(tokens))
	result.PresentDevices = len(present)
	result.Unclaimed = len(unclaimed)

	if result.LiveTokens >= result.PresentDevices || result.Unclaimed == 0 {
		result.Decision = CycleSkipped

		p.logger.Debug().
			Int("live_tokens", result.LiveTokens).
			Int("present_devices", result.PresentDevices).
			Int("unclaimed_devices", result.Unclaimed).
			Msg("device supply covered, nothing to allocate")

		return result, nil
	}

	result.Decision = CycleAllocated

	for _, device := range unclaimed {
		result.Attempted = append(result.Attempted, device.Serial)
	}

	p.logger.Info().
		Int("live_tokens", result.LiveTokens).
		Int("present_devices", result.PresentDevices).
		Int("unclaimed_devices", result.Unclaimed).
		Msg("allocating tokens for unclaimed devices")

	allocs, batchErr := p.allocator.AllocateBatch(ctx, unclaimed, p.taskMinutes)

	minted := make([]*models.Token, 0, len(allocs))

	for _, alloc := range allocs {
		if alloc.Minted {
			minted = append(minted, alloc.Token)
		}
	}

	result.Minted = len(minted)

	// Tokens minted before an aborted batch still need their tasks.
	result.Publish = p.publisher.PublishBatch(ctx, minted, p.taskMinutes)

	p.logger.Info().
		Int("minted", result.Minted).
		Int("published", result.Publish.Published).
		Int("failed", result.Publish.Failed).
		Int("orphaned", result.Publish.Orphaned).
		Msg("poll cycle completed")

	return result, batchErr
}
