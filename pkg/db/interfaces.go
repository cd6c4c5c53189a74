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

// Package db is the resource store for application slots and access tokens.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/crowdpool/pkg/models"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/carverauto/crowdpool/pkg/db Service

// Service represents all resource store operations used by the manager.
type Service interface {
	Close() error

	// Token operations.

	ListTokens(ctx context.Context) ([]*models.Token, error)
	GetToken(ctx context.Context, tokenID string) (*models.Token, error)
	// ListLiveTokensBySerial returns every unused or active token bound to serial.
	ListLiveTokensBySerial(ctx context.Context, serial string) ([]*models.Token, error)
	// InsertToken returns ErrLiveTokenExists when serial already holds a live token.
	InsertToken(ctx context.Context, token *models.Token) error
	DeleteToken(ctx context.Context, tokenID string) error

	// Application slot operations.

	// ClaimAppSlot atomically marks one unused slot as used and returns the
	// updated slot, or ErrNoAppSlots when none remain.
	ClaimAppSlot(ctx context.Context, now time.Time) (*models.ApplicationSlot, error)
	ListAppSlots(ctx context.Context) ([]*models.ApplicationSlot, error)
	SaveAppSlots(ctx context.Context, appIDs []string) error
	DeleteAppSlots(ctx context.Context) error
}

// pgxExecutor is the subset of *pgxpool.Pool the CNPG store needs.
type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
