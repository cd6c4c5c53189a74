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
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/crowdpool/pkg/logger"
)

const cnpgMigrationsTable = "crowdpool_schema_migrations"

//go:embed cnpg/migrations/*.sql
var cnpgMigrationsFS embed.FS

// RunCNPGMigrations applies every embedded .up.sql file that has not been
// recorded in the tracking table yet.
func RunCNPGMigrations(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) error {
	if pool == nil {
		return nil
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("cnpg migrations: acquire connection: %w", err)
	}
	defer conn.Release()

	return applyMigrations(ctx, conn, log)
}

func applyMigrations(ctx context.Context, conn pgxExecutor, log logger.Logger) error {
	if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, cnpgMigrationsTable)); err != nil {
		return fmt.Errorf("cnpg migrations: create tracking table: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	filenames, err := pendingMigrationFiles()
	if err != nil {
		return err
	}

	for _, name := range filenames {
		version := extractVersion(name)
		if _, ok := applied[version]; ok {
			continue
		}

		log.Info().Str("migration", name).Msg("applying CNPG migration")

		content, err := cnpgMigrationsFS.ReadFile("cnpg/migrations/" + name)
		if err != nil {
			return fmt.Errorf("cnpg migrations: read %s: %w", name, err)
		}

		// Exec without arguments uses the simple protocol, so a file holding
		// several statements runs as one implicit transaction.
		if _, err := conn.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("cnpg migrations: %s failed: %w", name, err)
		}

		if _, err := conn.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, cnpgMigrationsTable), version); err != nil {
			return fmt.Errorf("cnpg migrations: record %s: %w", name, err)
		}

		log.Info().Str("migration", name).Msg("CNPG migration complete")
	}

	return nil
}

func appliedVersions(ctx context.Context, conn pgxExecutor) (map[string]struct{}, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT version FROM %s`, cnpgMigrationsTable))
	if err != nil {
		return nil, fmt.Errorf("cnpg migrations: list applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("cnpg migrations: scan applied version: %w", err)
		}

		applied[version] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cnpg migrations: iterate applied versions: %w", err)
	}

	return applied, nil
}

func pendingMigrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(cnpgMigrationsFS, "cnpg/migrations")
	if err != nil {
		return nil, fmt.Errorf("cnpg migrations: read embedded migrations: %w", err)
	}

	filenames := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)

	return filenames, nil
}

func extractVersion(filename string) string {
	base := strings.TrimSuffix(filename, ".up.sql")

	if idx := strings.Index(base, "_"); idx > 0 {
		return base[:idx]
	}

	return base
}
