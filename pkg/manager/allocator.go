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
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/carverauto/crowdpool/pkg/db"
	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/models"
)

// Allocator binds devices to application slots by minting access tokens.
type Allocator struct {
	store         db.Service
	clock         Clock
	events        EventPublisher
	metrics       *managerMetrics
	logger        logger.Logger
	defaultExpire float64
	newTokenID    func() string
}

// Allocation is the outcome of allocating for one device. Minted is false
// when the device already held a live token and that token was returned.
type Allocation struct {
	Token  *models.Token
	Minted bool
}

// ParseExpireMinutes parses raw as a float. Blank, malformed, negative and
// non-finite values yield fallback.
func ParseExpireMinutes(raw string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fallback
	}

	return v
}

// Allocate returns the live token for serial, minting one against a freshly
// claimed application slot when the device has none. expireMinutes is the
// raw caller input and falls back to the configured default when it does
// not parse.
func (a *Allocator) Allocate(ctx context.Context, serial, expireMinutes string) (*models.Token, error) {
	alloc, err := a.allocate(ctx, serial, ParseExpireMinutes(expireMinutes, a.defaultExpire))
	if err != nil {
		return nil, err
	}

	return alloc.Token, nil
}

// AllocateBatch allocates for each device in order, one at a time. A failure
// for one device is logged and the rest are still attempted, except for an
// invariant violation which stops the batch and is returned alongside the
// allocations made so far. Cancelling ctx stops the batch before the next
// device and returns ctx.Err().
func (a *Allocator) AllocateBatch(ctx context.Context, devices []*models.Device, expireMinutes float64) ([]Allocation, error) {
	allocs := make([]Allocation, 0, len(devices))

	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			a.logger.Warn().Err(err).Int("allocated", len(allocs)).Msg("allocation batch cancelled")
			return allocs, err
		}

		if device == nil {
			continue
		}

		alloc, err := a.allocate(ctx, device.Serial, expireMinutes)
		if err == nil {
			allocs = append(allocs, alloc)
			continue
		}

		if errors.Is(err, ErrInvariantViolation) {
			return allocs, err
		}

		event := a.logger.Warn()
		if !errors.Is(err, ErrResourceExhausted) {
			event = a.logger.Error()
		}

		event.Err(err).Str("serial", device.Serial).Msg("token allocation failed, skipping device")
	}

	return allocs, nil
}

func (a *Allocator) allocate(ctx context.Context, serial string, expireMinutes float64) (Allocation, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return Allocation{}, ErrSerialRequired
	}

	// A claimed slot must end up bound to a token, so a started allocation
	// ignores cancellation.
	ctx, cancel := settle(ctx)
	defer cancel()

	existing, err := a.liveToken(ctx, serial)
	if err != nil {
		return Allocation{}, err
	}

	if existing != nil {
		a.metrics.reused.Add(ctx, 1)
		a.logger.Debug().Str("serial", serial).Str("token", existing.Token).Msg("device already holds a live token")

		return Allocation{Token: existing}, nil
	}

	now := a.clock.Now()

	slot, err := a.store.ClaimAppSlot(ctx, now)
	if errors.Is(err, db.ErrNoAppSlots) {
		a.metrics.exhausted.Add(ctx, 1)
		return Allocation{}, ErrNoAppSlotsRemain
	}

	if err != nil {
		return Allocation{}, upstream("claim application slot", err)
	}

	token := &models.Token{
		Token:         a.newTokenID(),
		Serial:        serial,
		AppID:         slot.AppID,
		Status:        models.TokenStatusUnused,
		CreationTime:  now,
		ExpireMinutes: expireMinutes,
	}

	if err := a.store.InsertToken(ctx, token); err != nil {
		// The claimed slot stays used either way.
		if errors.Is(err, db.ErrLiveTokenExists) {
			return a.lostRace(ctx, serial, slot.AppID, err)
		}

		a.logger.Error().Err(err).Str("serial", serial).Str("app_id", slot.AppID).
			Msg("token insert failed after slot claim, slot remains consumed")

		return Allocation{}, upstream("insert token", err)
	}

	a.metrics.allocations.Add(ctx, 1)
	a.logger.Info().
		Str("serial", serial).
		Str("token", token.Token).
		Str("app_id", token.AppID).
		Float64("expire_minutes", expireMinutes).
		Msg("minted token")

	a.emit(ctx, models.TokenEventAllocated, &models.TokenEventData{
		Token:     token.Token,
		Serial:    serial,
		AppID:     token.AppID,
		Timestamp: now,
	})

	return Allocation{Token: token, Minted: true}, nil
}

// lostRace handles an insert rejected because another allocator bound a live
// token to serial between our read and our insert.
func (a *Allocator) lostRace(ctx context.Context, serial, appID string, insertErr error) (Allocation, error) {
	a.logger.Warn().Str("serial", serial).Str("app_id", appID).
		Msg("concurrent allocation won for device, slot remains consumed")

	winner, err := a.liveToken(ctx, serial)
	if err != nil {
		return Allocation{}, err
	}

	if winner == nil {
		return Allocation{}, upstream("insert token", insertErr)
	}

	a.metrics.reused.Add(ctx, 1)

	return Allocation{Token: winner}, nil
}

func (a *Allocator) liveToken(ctx context.Context, serial string) (*models.Token, error) {
	live, err := a.store.ListLiveTokensBySerial(ctx, serial)
	if err != nil {
		return nil, upstream("list live tokens", err)
	}

	switch len(live) {
	case 0:
		return nil, nil
	case 1:
		return live[0], nil
	default:
		a.metrics.invariantViolations.Add(ctx, 1)

		violation := &InvariantViolationError{Serial: serial, Count: len(live)}
		a.logger.Error().Err(violation).Str("serial", serial).Int("live_tokens", len(live)).
			Msg("device holds multiple live tokens")

		return nil, violation
	}
}

func (a *Allocator) emit(ctx context.Context, t models.TokenEventType, data *models.TokenEventData) {
	emitEvent(ctx, a.events, a.logger, t, data)
}

func emitEvent(ctx context.Context, events EventPublisher, log logger.Logger, t models.TokenEventType, data *models.TokenEventData) {
	if events == nil {
		return
	}

	if err := events.PublishTokenEvent(ctx, t, data); err != nil {
		log.Warn().Err(err).Str("event", string(t)).Str("token", data.Token).Msg("failed to publish token event")
	}
}

func newTokenID() string {
	return uuid.NewString()
}
