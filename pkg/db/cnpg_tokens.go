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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/crowdpool/pkg/models"
)

const (
	pgUniqueViolation = "23505"

	liveSerialIndex = "idx_tokens_live_serial"
)

const tokenColumns = `token, serial, app_id, status, creation_time, expire_minutes`

const (
	listTokensSQL = `SELECT ` + tokenColumns + ` FROM tokens ORDER BY creation_time, token`

	getTokenSQL = `SELECT ` + tokenColumns + ` FROM tokens WHERE token = $1`

	listLiveTokensBySerialSQL = `SELECT ` + tokenColumns + `
FROM tokens
WHERE serial = $1 AND status IN ('unused', 'active')
ORDER BY creation_time, token`

	insertTokenSQL = `INSERT INTO tokens (` + tokenColumns + `)
VALUES ($1, $2, $3, $4, $5, $6)`

	deleteTokenSQL = `DELETE FROM tokens WHERE token = $1`
)

// ListTokens returns every stored token.
func (db *DB) ListTokens(ctx context.Context) ([]*models.Token, error) {
	return db.queryTokens(ctx, listTokensSQL)
}

// GetToken returns a single token or ErrTokenNotFound.
func (db *DB) GetToken(ctx context.Context, tokenID string) (*models.Token, error) {
	if tokenID == "" {
		return nil, ErrTokenIDRequired
	}

	tk, err := scanToken(db.executor.QueryRow(ctx, getTokenSQL, tokenID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}

	if err != nil {
		return nil, err
	}

	return tk, nil
}

// ListLiveTokensBySerial returns every unused or active token bound to serial.
func (db *DB) ListLiveTokensBySerial(ctx context.Context, serial string) ([]*models.Token, error) {
	if serial == "" {
		return nil, ErrSerialRequired
	}

	return db.queryTokens(ctx, listLiveTokensBySerialSQL, serial)
}

// InsertToken stores a new token. The partial unique index on live tokens
// rejects a second live token for the same serial with ErrLiveTokenExists.
func (db *DB) InsertToken(ctx context.Context, token *models.Token) error {
	if err := validateToken(token); err != nil {
		return err
	}

	_, err := db.executor.Exec(ctx, insertTokenSQL,
		token.Token,
		token.Serial,
		token.AppID,
		string(token.Status),
		token.CreationTime.UTC(),
		token.ExpireMinutes,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if pgErr.ConstraintName == liveSerialIndex {
			return fmt.Errorf("%w: %s", ErrLiveTokenExists, token.Serial)
		}

		return fmt.Errorf("%w: %s", ErrTokenExists, token.Token)
	}

	return fmt.Errorf("%w token: %w", ErrFailedToInsert, err)
}

// DeleteToken removes a token. Deleting an unknown token returns ErrTokenNotFound.
func (db *DB) DeleteToken(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return ErrTokenIDRequired
	}

	tag, err := db.executor.Exec(ctx, deleteTokenSQL, tokenID)
	if err != nil {
		return fmt.Errorf("%w token: %w", ErrFailedToDelete, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}

	return nil
}

func (db *DB) queryTokens(ctx context.Context, query string, args ...any) ([]*models.Token, error) {
	rows, err := db.executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w tokens: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var tokens []*models.Token

	for rows.Next() {
		tk, err := scanToken(rows)
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w tokens: %w", ErrFailedToQuery, err)
	}

	return tokens, nil
}

func scanToken(row pgx.Row) (*models.Token, error) {
	var (
		tk     models.Token
		status string
	)

	if err := row.Scan(
		&tk.Token,
		&tk.Serial,
		&tk.AppID,
		&status,
		&tk.CreationTime,
		&tk.ExpireMinutes,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("%w token: %w", ErrFailedToScan, err)
	}

	parsed, err := parseTokenStatus(status)
	if err != nil {
		return nil, err
	}

	tk.Status = parsed
	tk.CreationTime = tk.CreationTime.UTC()

	return &tk, nil
}

func parseTokenStatus(raw string) (models.TokenStatus, error) {
	switch status := models.TokenStatus(raw); status {
	case models.TokenStatusUnused, models.TokenStatusActive, models.TokenStatusExpired:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrTokenStatusValue, raw)
	}
}

func validateToken(token *models.Token) error {
	if token == nil {
		return ErrTokenNil
	}

	if token.Token == "" {
		return ErrTokenIDRequired
	}

	if token.Serial == "" {
		return ErrSerialRequired
	}

	if token.AppID == "" {
		return ErrAppIDRequired
	}

	if _, err := parseTokenStatus(string(token.Status)); err != nil {
		return err
	}

	return nil
}
