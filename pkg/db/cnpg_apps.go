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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/crowdpool/pkg/models"
)

const (
	// The inner SKIP LOCKED select lets concurrent claimers pick different
	// rows; the outer used = FALSE guard keeps a slot from being claimed twice.
	claimAppSlotSQL = `UPDATE device_apps
SET used = TRUE, updated = $1
WHERE app_id = (
    SELECT app_id FROM device_apps
    WHERE used = FALSE
    ORDER BY app_id
    LIMIT 1
    FOR UPDATE SKIP LOCKED
) AND used = FALSE
RETURNING app_id, used, updated`

	listAppSlotsSQL = `SELECT app_id, used, updated FROM device_apps ORDER BY app_id`

	saveAppSlotsSQL = `INSERT INTO device_apps (app_id, used, updated)
SELECT DISTINCT app_id, FALSE, NULL::timestamptz
FROM unnest($1::text[]) AS app_id`

	deleteAppSlotsSQL = `DELETE FROM device_apps`
)

// ClaimAppSlot atomically consumes one unused slot.
func (db *DB) ClaimAppSlot(ctx context.Context, now time.Time) (*models.ApplicationSlot, error) {
	slot, err := scanAppSlot(db.executor.QueryRow(ctx, claimAppSlotSQL, now.UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoAppSlots
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToClaim, err)
	}

	return slot, nil
}

// ListAppSlots returns every configured slot ordered by app id.
func (db *DB) ListAppSlots(ctx context.Context) ([]*models.ApplicationSlot, error) {
	rows, err := db.executor.Query(ctx, listAppSlotsSQL)
	if err != nil {
		return nil, fmt.Errorf("%w app slots: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var slots []*models.ApplicationSlot

	for rows.Next() {
		slot, err := scanAppSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("%w app slot: %w", ErrFailedToScan, err)
		}

		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w app slots: %w", ErrFailedToQuery, err)
	}

	return slots, nil
}

// SaveAppSlots registers new unused slots.
func (db *DB) SaveAppSlots(ctx context.Context, appIDs []string) error {
	if err := validateAppIDs(appIDs); err != nil {
		return err
	}

	if _, err := db.executor.Exec(ctx, saveAppSlotsSQL, appIDs); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrAppSlotExists, pgErr.Detail)
		}

		return fmt.Errorf("%w app slots: %w", ErrFailedToInsert, err)
	}

	return nil
}

// DeleteAppSlots removes every slot, used or not.
func (db *DB) DeleteAppSlots(ctx context.Context) error {
	if _, err := db.executor.Exec(ctx, deleteAppSlotsSQL); err != nil {
		return fmt.Errorf("%w app slots: %w", ErrFailedToDelete, err)
	}

	return nil
}

func scanAppSlot(row pgx.Row) (*models.ApplicationSlot, error) {
	var (
		slot    models.ApplicationSlot
		updated *time.Time
	)

	if err := row.Scan(&slot.AppID, &slot.Used, &updated); err != nil {
		return nil, err
	}

	if updated != nil {
		utc := updated.UTC()
		slot.Updated = &utc
	}

	return &slot, nil
}

func validateAppIDs(appIDs []string) error {
	if len(appIDs) == 0 {
		return ErrEmptyAppList
	}

	for _, id := range appIDs {
		if id == "" {
			return ErrAppIDRequired
		}
	}

	return nil
}
