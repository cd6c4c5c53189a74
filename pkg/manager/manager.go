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

// Package manager keeps a pool of devices matched to paid worker tasks. It
// mints one access token per present device against a consumable application
// slot, publishes a task for every minted token and rolls the token back when
// publication fails.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/crowdpool/pkg/db"
	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/marketplace"
	"github.com/carverauto/crowdpool/pkg/models"
)

// Config holds the tunables of the manager core.
type Config struct {
	PollInterval         time.Duration
	PolledTaskMinutes    float64
	DefaultExpireMinutes float64
	AutostartPolling     bool
}

// ConfigFromModel extracts the core settings from a validated process config.
func ConfigFromModel(cfg *models.ManagerConfig) Config {
	return Config{
		PollInterval:         time.Duration(cfg.PollInterval),
		PolledTaskMinutes:    cfg.PolledTaskMinutes,
		DefaultExpireMinutes: cfg.DefaultExpireMinutes,
		AutostartPolling:     cfg.AutostartPolling,
	}
}

// Deps are the collaborators the manager drives. Events, Clock and
// MeterProvider are optional.
type Deps struct {
	Store         db.Service
	Gateway       Gateway
	Marketplace   marketplace.Marketplace
	Renderer      TaskRenderer
	Events        EventPublisher
	Clock         Clock
	Logger        logger.Logger
	MeterProvider metric.MeterProvider
}

// Manager is the entry point used by the REST API and the process lifecycle.
type Manager struct {
	store     db.Service
	gateway   Gateway
	events    EventPublisher
	clock     Clock
	logger    logger.Logger
	metrics   *managerMetrics
	allocator *Allocator
	publisher *Publisher
	poller    *Poller
	autostart bool

	mu     sync.Mutex
	runCtx context.Context
}

// New wires a manager from cfg and deps.
func New(cfg Config, deps Deps) (*Manager, error) {
	if err := validateDeps(&deps); err != nil {
		return nil, err
	}

	if cfg.PollInterval <= 0 {
		return nil, errPollIntervalInvalid
	}

	if cfg.PolledTaskMinutes <= 0 {
		return nil, errTaskMinutesInvalid
	}

	if deps.Clock == nil {
		deps.Clock = realClock{}
	}

	m := &Manager{
		store:     deps.Store,
		gateway:   deps.Gateway,
		events:    deps.Events,
		clock:     deps.Clock,
		logger:    deps.Logger,
		autostart: cfg.AutostartPolling,
	}

	m.metrics = newManagerMetrics(deps.MeterProvider, m.IsPolling)

	m.allocator = &Allocator{
		store:         deps.Store,
		clock:         deps.Clock,
		events:        deps.Events,
		metrics:       m.metrics,
		logger:        deps.Logger,
		defaultExpire: cfg.DefaultExpireMinutes,
		newTokenID:    newTokenID,
	}

	m.publisher = &Publisher{
		store:       deps.Store,
		gateway:     deps.Gateway,
		marketplace: deps.Marketplace,
		renderer:    deps.Renderer,
		clock:       deps.Clock,
		events:      deps.Events,
		metrics:     m.metrics,
		logger:      deps.Logger,
	}

	m.poller = &Poller{
		store:       deps.Store,
		gateway:     deps.Gateway,
		allocator:   m.allocator,
		publisher:   m.publisher,
		clock:       deps.Clock,
		metrics:     m.metrics,
		logger:      deps.Logger,
		interval:    cfg.PollInterval,
		taskMinutes: cfg.PolledTaskMinutes,
	}

	return m, nil
}

func validateDeps(deps *Deps) error {
	switch {
	case deps.Store == nil:
		return errStoreRequired
	case deps.Gateway == nil:
		return errGatewayRequired
	case deps.Marketplace == nil:
		return errMarketplaceRequired
	case deps.Renderer == nil:
		return errRendererRequired
	case deps.Logger == nil:
		return errLoggerRequired
	}

	return nil
}

// Start implements the lifecycle.Service interface. ctx outlives individual
// requests and bounds polling runs started later through StartPolling.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.runCtx = ctx
	m.mu.Unlock()

	if m.autostart {
		m.StartPolling()
	}

	return nil
}

// Stop implements the lifecycle.Service interface. It waits for an in-flight
// poll cycle to finish.
func (m *Manager) Stop(ctx context.Context) error {
	m.poller.Stop()

	err := m.poller.Wait(ctx)

	m.metrics.unregister()

	return err
}

// StartPolling starts the reconciliation loop. It reports false when the
// loop was already running.
func (m *Manager) StartPolling() bool {
	m.mu.Lock()
	ctx := m.runCtx
	m.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	return m.poller.Start(ctx)
}

// StopPolling stops scheduling poll cycles. It reports false when the loop
// was idle.
func (m *Manager) StopPolling() bool {
	return m.poller.Stop()
}

func (m *Manager) IsPolling() bool {
	return m.poller.IsActive()
}

// RunCycle runs a single poll cycle outside the loop.
func (m *Manager) RunCycle(ctx context.Context) (CycleResult, error) {
	return m.poller.RunCycle(ctx)
}

// AllocateToken returns the live token for serial, minting one if needed.
// No task is published for tokens allocated this way.
func (m *Manager) AllocateToken(ctx context.Context, serial, expireMinutes string) (*models.Token, error) {
	return m.allocator.Allocate(ctx, serial, expireMinutes)
}

// PublishTask publishes a task for an existing token, rolling it back on
// failure.
func (m *Manager) PublishTask(ctx context.Context, token string, taskMinutes float64, appID string) (string, error) {
	return m.publisher.Publish(ctx, token, taskMinutes, appID)
}

func (m *Manager) ListTokens(ctx context.Context) ([]*models.Token, error) {
	tokens, err := m.store.ListTokens(ctx)
	if err != nil {
		return nil, upstream("list tokens", err)
	}

	return tokens, nil
}

// ListDevices returns the gateway's devices annotated with their bound
// non-expired token.
func (m *Manager) ListDevices(ctx context.Context) ([]*models.Device, error) {
	devices, err := m.gateway.ListDevices(ctx)
	if err != nil {
		return nil, upstream("list devices", err)
	}

	tokens, err := m.store.ListTokens(ctx)
	if err != nil {
		return nil, upstream("list tokens", err)
	}

	models.AttachTokens(devices, tokens)

	return devices, nil
}

// DeleteToken revokes the token at the gateway and removes it from the
// store. Deleting a token the store no longer holds succeeds.
func (m *Manager) DeleteToken(ctx context.Context, tokenID string) error {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return ErrTokenIDRequired
	}

	if err := m.gateway.DeleteToken(ctx, tokenID); err != nil {
		return upstream("revoke token", err)
	}

	if err := m.store.DeleteToken(ctx, tokenID); err != nil && !errors.Is(err, db.ErrTokenNotFound) {
		return upstream("delete token", err)
	}

	m.logger.Info().Str("token", tokenID).Msg("deleted token")

	emitEvent(ctx, m.events, m.logger, models.TokenEventDeleted, &models.TokenEventData{
		Token:     tokenID,
		Reason:    "operator request",
		Timestamp: m.clock.Now(),
	})

	return nil
}

func (m *Manager) ListAppSlots(ctx context.Context) ([]*models.ApplicationSlot, error) {
	slots, err := m.store.ListAppSlots(ctx)
	if err != nil {
		return nil, upstream("list application slots", err)
	}

	return slots, nil
}

// SaveAppSlots adds unused application slots for appIDs.
func (m *Manager) SaveAppSlots(ctx context.Context, appIDs []string) error {
	if err := m.store.SaveAppSlots(ctx, appIDs); err != nil {
		return storeError("save application slots", err)
	}

	m.logger.Info().Int("count", len(appIDs)).Msg("saved application slots")

	return nil
}

// DeleteAppSlots removes every application slot, used or not.
func (m *Manager) DeleteAppSlots(ctx context.Context) error {
	if err := m.store.DeleteAppSlots(ctx); err != nil {
		return upstream("delete application slots", err)
	}

	m.logger.Warn().Msg("deleted all application slots")

	return nil
}

func storeError(op string, err error) error {
	switch {
	case errors.Is(err, db.ErrAppSlotExists):
		return fmt.Errorf("%w: %s: %w", ErrConflict, op, err)
	case errors.Is(err, db.ErrEmptyAppList), errors.Is(err, db.ErrAppIDRequired):
		return fmt.Errorf("%w: %s: %w", ErrValidation, op, err)
	default:
		return upstream(op, err)
	}
}
