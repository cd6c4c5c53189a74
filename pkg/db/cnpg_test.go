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
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/models"
)

var (
	errConnReset      = errors.New("connection reset by peer")
	errColumnMismatch = errors.New("column count mismatch")
)

type execCall struct {
	sql  string
	args []any
}

type fakePgxExecutor struct {
	execTag pgconn.CommandTag
	execErr error
	execs   []execCall

	rows     [][]any
	queryErr error
	queries  []string

	row      []any
	rowErr   error
	rowCalls []execCall
}

func (f *fakePgxExecutor) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return f.execTag, f.execErr
}

func (f *fakePgxExecutor) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	return &fakeRows{rows: f.rows, idx: -1}, nil
}

func (f *fakePgxExecutor) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.rowCalls = append(f.rowCalls, execCall{sql: sql, args: args})
	return fakeRow{values: f.row, err: f.rowErr}
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	return assignValues(r.values, dest)
}

type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	return assignValues(r.rows[r.idx], dest)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.idx], nil
}

func assignValues(values []any, dest []any) error {
	if len(values) != len(dest) {
		return errColumnMismatch
	}

	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}

		target.Set(reflect.ValueOf(v))
	}

	return nil
}

func tokenRow(id, serial, appID, status string, created time.Time) []any {
	return []any{id, serial, appID, status, created, 5.0}
}

func TestClaimAppSlot(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns claimed slot", func(t *testing.T) {
		updated := now
		exec := &fakePgxExecutor{row: []any{"app-1", true, &updated}}
		db := &DB{executor: exec}

		slot, err := db.ClaimAppSlot(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, "app-1", slot.AppID)
		assert.True(t, slot.Used)
		require.NotNil(t, slot.Updated)
		assert.True(t, slot.Updated.Equal(now))

		require.Len(t, exec.rowCalls, 1)
		assert.Contains(t, exec.rowCalls[0].sql, "FOR UPDATE SKIP LOCKED")
		assert.Contains(t, exec.rowCalls[0].sql, "AND used = FALSE")
	})

	t.Run("no unused slot", func(t *testing.T) {
		db := &DB{executor: &fakePgxExecutor{rowErr: pgx.ErrNoRows}}

		_, err := db.ClaimAppSlot(context.Background(), now)
		require.ErrorIs(t, err, ErrNoAppSlots)
	})

	t.Run("driver failure", func(t *testing.T) {
		db := &DB{executor: &fakePgxExecutor{rowErr: errConnReset}}

		_, err := db.ClaimAppSlot(context.Background(), now)
		require.ErrorIs(t, err, ErrFailedToClaim)
		require.ErrorIs(t, err, errConnReset)
	})
}

func TestInsertToken(t *testing.T) {
	token := &models.Token{
		Token:         "tok-1",
		Serial:        "serial-1",
		AppID:         "app-1",
		Status:        models.TokenStatusUnused,
		CreationTime:  time.Now(),
		ExpireMinutes: 5,
	}

	t.Run("writes every column", func(t *testing.T) {
		exec := &fakePgxExecutor{execTag: pgconn.NewCommandTag("INSERT 0 1")}
		db := &DB{executor: exec}

		require.NoError(t, db.InsertToken(context.Background(), token))
		require.Len(t, exec.execs, 1)
		assert.Equal(t, "tok-1", exec.execs[0].args[0])
		assert.Equal(t, "serial-1", exec.execs[0].args[1])
		assert.Equal(t, "app-1", exec.execs[0].args[2])
		assert.Equal(t, "unused", exec.execs[0].args[3])
		assert.InDelta(t, 5.0, exec.execs[0].args[5], 0)
	})

	t.Run("second live token for serial", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: liveSerialIndex}
		db := &DB{executor: &fakePgxExecutor{execErr: pgErr}}

		err := db.InsertToken(context.Background(), token)
		require.ErrorIs(t, err, ErrLiveTokenExists)
	})

	t.Run("duplicate token id", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "tokens_pkey"}
		db := &DB{executor: &fakePgxExecutor{execErr: pgErr}}

		err := db.InsertToken(context.Background(), token)
		require.ErrorIs(t, err, ErrTokenExists)
	})

	t.Run("driver failure", func(t *testing.T) {
		db := &DB{executor: &fakePgxExecutor{execErr: errConnReset}}

		err := db.InsertToken(context.Background(), token)
		require.ErrorIs(t, err, ErrFailedToInsert)
	})

	t.Run("validation", func(t *testing.T) {
		exec := &fakePgxExecutor{}
		db := &DB{executor: exec}

		require.ErrorIs(t, db.InsertToken(context.Background(), nil), ErrTokenNil)

		noSerial := *token
		noSerial.Serial = ""
		require.ErrorIs(t, db.InsertToken(context.Background(), &noSerial), ErrSerialRequired)

		badStatus := *token
		badStatus.Status = "revoked"
		require.ErrorIs(t, db.InsertToken(context.Background(), &badStatus), ErrTokenStatusValue)

		assert.Empty(t, exec.execs)
	})
}

func TestGetToken(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	db := &DB{executor: &fakePgxExecutor{row: tokenRow("tok-1", "serial-1", "app-1", "active", created)}}
	tk, err := db.GetToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusActive, tk.Status)
	assert.Equal(t, "app-1", tk.AppID)

	db = &DB{executor: &fakePgxExecutor{rowErr: pgx.ErrNoRows}}
	_, err = db.GetToken(context.Background(), "tok-2")
	require.ErrorIs(t, err, ErrTokenNotFound)

	db = &DB{executor: &fakePgxExecutor{row: tokenRow("tok-3", "serial-1", "app-1", "bogus", created)}}
	_, err = db.GetToken(context.Background(), "tok-3")
	require.ErrorIs(t, err, ErrTokenStatusValue)
}

func TestListLiveTokensBySerial(t *testing.T) {
	created := time.Now().UTC()
	exec := &fakePgxExecutor{rows: [][]any{
		tokenRow("tok-1", "serial-1", "app-1", "unused", created),
		tokenRow("tok-2", "serial-1", "app-2", "active", created),
	}}
	db := &DB{executor: exec}

	tokens, err := db.ListLiveTokensBySerial(context.Background(), "serial-1")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "tok-2", tokens[1].Token)
	assert.Contains(t, exec.queries[0], "status IN ('unused', 'active')")

	_, err = db.ListLiveTokensBySerial(context.Background(), "")
	require.ErrorIs(t, err, ErrSerialRequired)

	db = &DB{executor: &fakePgxExecutor{queryErr: errConnReset}}
	_, err = db.ListTokens(context.Background())
	require.ErrorIs(t, err, ErrFailedToQuery)
}

func TestDeleteToken(t *testing.T) {
	db := &DB{executor: &fakePgxExecutor{execTag: pgconn.NewCommandTag("DELETE 1")}}
	require.NoError(t, db.DeleteToken(context.Background(), "tok-1"))

	db = &DB{executor: &fakePgxExecutor{execTag: pgconn.NewCommandTag("DELETE 0")}}
	require.ErrorIs(t, db.DeleteToken(context.Background(), "tok-1"), ErrTokenNotFound)

	db = &DB{executor: &fakePgxExecutor{execErr: errConnReset}}
	require.ErrorIs(t, db.DeleteToken(context.Background(), "tok-1"), ErrFailedToDelete)

	require.ErrorIs(t, db.DeleteToken(context.Background(), ""), ErrTokenIDRequired)
}

func TestSaveAppSlots(t *testing.T) {
	exec := &fakePgxExecutor{}
	db := &DB{executor: exec}

	require.ErrorIs(t, db.SaveAppSlots(context.Background(), nil), ErrEmptyAppList)
	require.ErrorIs(t, db.SaveAppSlots(context.Background(), []string{"a", ""}), ErrAppIDRequired)
	assert.Empty(t, exec.execs)

	require.NoError(t, db.SaveAppSlots(context.Background(), []string{"a", "b"}))
	require.Len(t, exec.execs, 1)
	assert.Equal(t, []string{"a", "b"}, exec.execs[0].args[0])
	assert.Contains(t, exec.execs[0].sql, "unnest($1::text[])")

	exec.execErr = &pgconn.PgError{Code: pgUniqueViolation, Detail: "Key (app_id)=(a) already exists."}
	require.ErrorIs(t, db.SaveAppSlots(context.Background(), []string{"a"}), ErrAppSlotExists)
}

func TestListAppSlots(t *testing.T) {
	updated := time.Now()
	db := &DB{executor: &fakePgxExecutor{rows: [][]any{
		{"app-1", true, &updated},
		{"app-2", false, nil},
	}}}

	slots, err := db.ListAppSlots(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.NotNil(t, slots[0].Updated)
	assert.Nil(t, slots[1].Updated)
	assert.False(t, slots[1].Used)
}

func TestApplyMigrations(t *testing.T) {
	log := logger.NewTestLogger()

	t.Run("fresh database", func(t *testing.T) {
		exec := &fakePgxExecutor{}
		require.NoError(t, applyMigrations(context.Background(), exec, log))

		require.Len(t, exec.execs, 3)
		assert.Contains(t, exec.execs[0].sql, cnpgMigrationsTable)
		assert.Contains(t, exec.execs[1].sql, "CREATE TABLE IF NOT EXISTS tokens")
		assert.Contains(t, exec.execs[1].sql, liveSerialIndex)
		assert.Equal(t, []any{"00000000000001"}, exec.execs[2].args)
	})

	t.Run("already applied", func(t *testing.T) {
		exec := &fakePgxExecutor{rows: [][]any{{"00000000000001"}}}
		require.NoError(t, applyMigrations(context.Background(), exec, log))
		require.Len(t, exec.execs, 1)
	})

	t.Run("tracking table unreadable", func(t *testing.T) {
		exec := &fakePgxExecutor{queryErr: errConnReset}
		err := applyMigrations(context.Background(), exec, log)
		require.ErrorIs(t, err, errConnReset)
	})
}

func TestPendingMigrationFilesSkipsDown(t *testing.T) {
	files, err := pendingMigrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		assert.True(t, strings.HasSuffix(f, ".up.sql"), f)
	}

	assert.Equal(t, "00000000000001", extractVersion("00000000000001_crowdpool_schema.up.sql"))
	assert.Equal(t, "init", extractVersion("init.up.sql"))
}

func TestBuildPoolConfig(t *testing.T) {
	cfg := &models.CNPGDatabase{
		Host:               "cnpg-rw",
		Database:           "crowdpool",
		Username:           "crowdpool",
		Password:           "secret",
		ApplicationName:    "crowdpool-manager",
		MaxConnections:     8,
		MinConnections:     2,
		StatementTimeout:   models.Duration(3 * time.Second),
		ExtraRuntimeParams: map[string]string{"search_path": "public", "": "ignored"},
	}

	poolCfg, err := buildPoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "cnpg-rw", poolCfg.ConnConfig.Host)
	assert.Equal(t, uint16(5432), poolCfg.ConnConfig.Port)
	assert.Equal(t, "crowdpool", poolCfg.ConnConfig.Database)
	assert.Equal(t, int32(8), poolCfg.MaxConns)
	assert.Equal(t, int32(2), poolCfg.MinConns)
	assert.Equal(t, "3000", poolCfg.ConnConfig.RuntimeParams["statement_timeout"])
	assert.Equal(t, "public", poolCfg.ConnConfig.RuntimeParams["search_path"])
	assert.Equal(t, "crowdpool-manager", poolCfg.ConnConfig.RuntimeParams["application_name"])
	assert.Nil(t, poolCfg.ConnConfig.TLSConfig)

	cfg.TLS = &models.TLSConfig{CertFile: "client.pem"}
	_, err = buildPoolConfig(cfg)
	require.ErrorIs(t, err, ErrCNPGLackingTLSFiles)

	_, err = NewCNPGPool(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrCNPGConfigMissing)
}
