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

package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/models"
)

// DB is the CNPG-backed resource store.
type DB struct {
	pool     *pgxpool.Pool
	executor pgxExecutor
	logger   logger.Logger
}

var _ Service = (*DB)(nil)

// New connects to CNPG, applies pending migrations and returns the store.
func New(ctx context.Context, cfg *models.CNPGDatabase, log logger.Logger) (*DB, error) {
	pool, err := NewCNPGPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := RunCNPGMigrations(ctx, pool, log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cnpg: migrations: %w", err)
	}

	return &DB{
		pool:     pool,
		executor: pool,
		logger:   log,
	}, nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}

	return nil
}
