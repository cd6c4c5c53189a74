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
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/crowdpool/pkg/db"
	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/marketplace"
	"github.com/carverauto/crowdpool/pkg/models"
)

// settleTimeout bounds a publication or rollback that keeps running after its
// caller was cancelled.
const settleTimeout = 30 * time.Second

// Publisher advertises tokens as paid tasks and rolls a token back when its
// task could not be published.
type Publisher struct {
	store       db.Service
	gateway     Gateway
	marketplace marketplace.Marketplace
	renderer    TaskRenderer
	clock       Clock
	events      EventPublisher
	metrics     *managerMetrics
	logger      logger.Logger
}

// PublishSummary reports the outcome of a batch publication.
type PublishSummary struct {
	Published   int
	Failed      int
	Compensated int
	// Orphaned counts tokens whose rollback failed and are still stored.
	Orphaned int
}

// Publish renders a task for token and submits it to the marketplace,
// returning the marketplace task id. When either step fails the token is
// revoked at the gateway and removed from the store before the error is
// returned.
func (p *Publisher) Publish(ctx context.Context, token string, taskMinutes float64, appID string) (string, error) {
	switch {
	case strings.TrimSpace(token) == "":
		return "", ErrTokenRequired
	case taskMinutes <= 0:
		return "", ErrTaskMinutesRequired
	case strings.TrimSpace(appID) == "":
		return "", ErrAppIDRequired
	}

	// Once submission starts the token is either advertised or rolled back.
	ctx, cancel := settle(ctx)
	defer cancel()

	taskID, err := p.submit(ctx, token, taskMinutes, appID)
	if err == nil {
		p.metrics.publish.Add(ctx, 1, attrOutcomeSuccess)
		p.logger.Info().Str("token", token).Str("app_id", appID).Str("hit_id", taskID).Msg("published task")

		emitEvent(ctx, p.events, p.logger, models.TokenEventPublished, &models.TokenEventData{
			Token:     token,
			AppID:     appID,
			TaskID:    taskID,
			Timestamp: p.clock.Now(),
		})

		return taskID, nil
	}

	p.metrics.publish.Add(ctx, 1, attrOutcomeFailure)
	p.logger.Error().Err(err).Str("token", token).Str("app_id", appID).Msg("task publication failed, rolling back token")

	if cerr := p.compensate(ctx, token, appID, err); cerr != nil {
		return "", errors.Join(err, cerr)
	}

	return "", err
}

// PublishBatch publishes each token in order. A token is fully resolved,
// published or rolled back, before the next is attempted.
func (p *Publisher) PublishBatch(ctx context.Context, tokens []*models.Token, taskMinutes float64) PublishSummary {
	var summary PublishSummary

	for _, tk := range tokens {
		if tk == nil {
			continue
		}

		_, err := p.Publish(ctx, tk.Token, taskMinutes, tk.AppID)

		switch {
		case err == nil:
			summary.Published++
		case errors.Is(err, ErrCompensationFailure):
			summary.Failed++
			summary.Orphaned++
		case errors.Is(err, ErrValidation):
			summary.Failed++

			if strings.TrimSpace(tk.Token) == "" {
				continue
			}

			// A stored token that cannot be advertised must not keep its device.
			if p.rollback(ctx, tk.Token, tk.AppID, err) != nil {
				summary.Orphaned++
			} else {
				summary.Compensated++
			}
		default:
			summary.Failed++
			summary.Compensated++
		}
	}

	return summary
}

func (p *Publisher) rollback(ctx context.Context, token, appID string, cause error) error {
	ctx, cancel := settle(ctx)
	defer cancel()

	p.logger.Error().Err(cause).Str("token", token).Str("app_id", appID).Msg("token cannot be published, rolling back")

	return p.compensate(ctx, token, appID, cause)
}

func (p *Publisher) submit(ctx context.Context, token string, taskMinutes float64, appID string) (string, error) {
	task, err := p.renderer.Render(token, taskMinutes, appID)
	if err != nil {
		return "", upstream("render task", err)
	}

	taskID, err := p.marketplace.PublishTask(ctx, task)
	if err != nil {
		return "", upstream("publish task", err)
	}

	return taskID, nil
}

// compensate removes token so no device access outlives a task that was
// never advertised. Revocation at the gateway is best-effort. The store
// delete is what decides success and is not retried.
func (p *Publisher) compensate(ctx context.Context, token, appID string, cause error) error {
	if err := p.gateway.DeleteToken(ctx, token); err != nil {
		p.logger.Warn().Err(err).Str("token", token).Msg("gateway revocation failed during rollback")
	}

	err := p.store.DeleteToken(ctx, token)
	if err != nil && !errors.Is(err, db.ErrTokenNotFound) {
		p.metrics.compensationFailures.Add(ctx, 1)
		p.logger.Error().Err(err).Str("token", token).Str("app_id", appID).
			Msg("rollback failed, token left orphaned in store")

		return fmt.Errorf("%w: token %s: %w", ErrCompensationFailure, token, err)
	}

	p.metrics.compensations.Add(ctx, 1)
	p.logger.Info().Str("token", token).Str("app_id", appID).Msg("rolled back token after failed publication")

	emitEvent(ctx, p.events, p.logger, models.TokenEventCompensated, &models.TokenEventData{
		Token:     token,
		AppID:     appID,
		Reason:    cause.Error(),
		Timestamp: p.clock.Now(),
	})

	return nil
}

// settle detaches ctx from its caller's cancellation, keeping its values, so
// a sequence that has started runs to completion during shutdown.
func settle(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}
