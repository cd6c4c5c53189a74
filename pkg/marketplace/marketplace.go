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

// Package marketplace renders paid tasks and publishes them to a remote
// worker marketplace.
package marketplace

import (
	"context"

	"github.com/carverauto/crowdpool/pkg/models"
)

//go:generate mockgen -destination=mock_marketplace.go -package=marketplace github.com/carverauto/crowdpool/pkg/marketplace Marketplace

// Marketplace publishes a rendered task and returns its external id.
type Marketplace interface {
	PublishTask(ctx context.Context, task *models.TaskConfig) (string, error)
}
