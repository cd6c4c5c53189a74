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

// Package app boots the crowdpool manager process.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/crowdpool/pkg/api"
	"github.com/carverauto/crowdpool/pkg/config"
	"github.com/carverauto/crowdpool/pkg/db"
	"github.com/carverauto/crowdpool/pkg/lifecycle"
	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/manager"
	"github.com/carverauto/crowdpool/pkg/marketplace"
	"github.com/carverauto/crowdpool/pkg/models"
	"github.com/carverauto/crowdpool/pkg/natsutil"
	"github.com/carverauto/crowdpool/pkg/stf"
	"github.com/carverauto/crowdpool/pkg/version"
)

const metricsShutdownTimeout = 5 * time.Second

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
}

// Run loads configuration, wires every collaborator and blocks until the
// process is signalled or a service fails.
func Run(ctx context.Context, opts Options) error {
	var cfg models.ManagerConfig

	if err := config.NewConfig(nil).LoadAndValidate(ctx, opts.ConfigPath, &cfg); err != nil {
		return err
	}

	mainLogger, err := lifecycle.CreateComponentLogger("manager-main", cfg.Logging)
	if err != nil {
		return err
	}

	if cfg.Metrics == nil {
		cfg.Metrics = logger.DefaultMetricsConfig()
	}

	if cfg.Metrics.ServiceVersion == "" {
		cfg.Metrics.ServiceVersion = version.GetVersion()
	}

	if _, err := logger.InitializeMetrics(ctx, cfg.Metrics); err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		if err := logger.ShutdownMetrics(shutdownCtx); err != nil {
			mainLogger.Error().Err(err).Msg("Error shutting down metrics provider")
		}
	}()

	store, err := openStore(ctx, &cfg, lifecycle.Child(mainLogger, "db"))
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(); err != nil {
			mainLogger.Warn().Err(err).Msg("error closing store")
		}
	}()

	gateway, err := stf.NewClient(&cfg.STF, nil, lifecycle.Child(mainLogger, "stf"))
	if err != nil {
		return err
	}

	renderer, err := marketplace.NewRenderer(&cfg.Marketplace, cfg.STF.AuthURL)
	if err != nil {
		return err
	}

	mturk, err := marketplace.NewMTurkClient(ctx, &cfg.Marketplace, lifecycle.Child(mainLogger, "marketplace"))
	if err != nil {
		return err
	}

	deps := manager.Deps{
		Store:       store,
		Gateway:     gateway,
		Marketplace: mturk,
		Renderer:    renderer,
		Logger:      lifecycle.Child(mainLogger, "manager"),
	}

	if cfg.NATS != nil {
		nc, events, err := openEvents(ctx, cfg.NATS, lifecycle.Child(mainLogger, "events"))
		if err != nil {
			return err
		}

		defer nc.Close()

		deps.Events = events
	}

	mgr, err := manager.New(manager.ConfigFromModel(&cfg), deps)
	if err != nil {
		return err
	}

	apiServer := api.NewServer(cfg.ListenAddr, mgr, cfg.CORS, lifecycle.Child(mainLogger, "api"))

	mainLogger.Info().
		Str("listen_addr", cfg.ListenAddr).
		Str("store", cfg.Store).
		Bool("autostart_polling", cfg.AutostartPolling).
		Bool("events", cfg.NATS != nil).
		Str("version", version.GetFullVersion()).
		Msg("Starting crowdpool manager")

	return lifecycle.Run(ctx, mainLogger, mgr, apiServer)
}

func openStore(ctx context.Context, cfg *models.ManagerConfig, log logger.Logger) (db.Service, error) {
	if cfg.Store == models.StoreMemory {
		log.Warn().Msg("using in-memory store, tokens and application slots are lost on restart")
		return db.NewMemoryStore(), nil
	}

	store, err := db.New(ctx, cfg.CNPG, log)
	if err != nil {
		return nil, err
	}

	return store, nil
}

func openEvents(ctx context.Context, cfg *models.NATSConfig, log logger.Logger) (*nats.Conn, *natsutil.EventPublisher, error) {
	nc, err := natsutil.Connect(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	events, err := natsutil.CreateEventPublisher(ctx, nc, cfg, log)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	return nc, events, nil
}
