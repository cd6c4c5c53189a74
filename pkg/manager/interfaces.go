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
	"time"

	"github.com/carverauto/crowdpool/pkg/models"
)

//go:generate mockgen -destination=mock_manager.go -package=manager github.com/carverauto/crowdpool/pkg/manager Gateway,EventPublisher

// Gateway is the device inventory and the authority over device access.
type Gateway interface {
	ListDevices(ctx context.Context) ([]*models.Device, error)
	// DeleteToken force-revokes device access granted by the token.
	DeleteToken(ctx context.Context, tokenID string) error
}

// EventPublisher records token lifecycle history. Failures are logged and
// never fail the operation that emitted the event.
type EventPublisher interface {
	PublishTokenEvent(ctx context.Context, eventType models.TokenEventType, data *models.TokenEventData) error
}

// TaskRenderer turns a minted token into a publishable task.
type TaskRenderer interface {
	Render(token string, taskMinutes float64, appID string) (*models.TaskConfig, error)
}

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer abstracts a one-shot timer.
type Timer interface {
	Chan() <-chan time.Time
	Stop() bool
}
