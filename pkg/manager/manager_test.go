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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/crowdpool/pkg/db"
	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/models"
	"github.com/carverauto/crowdpool/pkg/stf"
)

func TestNew_ValidatesDependencies(t *testing.T) {
	full := func() Deps {
		return Deps{
			Store:       db.NewMemoryStore(),
			Gateway:     newStubGateway(),
			Marketplace: &stubMarketplace{},
			Renderer:    stubRenderer{},
			Logger:      logger.NewTestLogger(),
		}
	}

	cfg := Config{PollInterval: time.Second, PolledTaskMinutes: 5, DefaultExpireMinutes: 5}

	tests := []struct {
		name    string
		mutate  func(*Config, *Deps)
		wantErr error
	}{
		{name: "store", mutate: func(_ *Config, d *Deps) { d.Store = nil }, wantErr: errStoreRequired},
		{name: "gateway", mutate: func(_ *Config, d *Deps) { d.Gateway = nil }, wantErr: errGatewayRequired},
		{name: "marketplace", mutate: func(_ *Config, d *Deps) { d.Marketplace = nil }, wantErr: errMarketplaceRequired},
		{name: "renderer", mutate: func(_ *Config, d *Deps) { d.Renderer = nil }, wantErr: errRendererRequired},
		{name: "logger", mutate: func(_ *Config, d *Deps) { d.Logger = nil }, wantErr: errLoggerRequired},
		{name: "poll interval", mutate: func(c *Config, _ *Deps) { c.PollInterval = 0 }, wantErr: errPollIntervalInvalid},
		{name: "task minutes", mutate: func(c *Config, _ *Deps) { c.PolledTaskMinutes = -1 }, wantErr: errTaskMinutesInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, d := cfg, full()
			tt.mutate(&c, &d)

			_, err := New(c, d)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	m, err := New(cfg, full())
	require.NoError(t, err)
	assert.IsType(t, realClock{}, m.clock)
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(&models.ManagerConfig{
		PollInterval:         models.Duration(30 * time.Second),
		PolledTaskMinutes:    7,
		DefaultExpireMinutes: 3,
		AutostartPolling:     true,
	})

	assert.Equal(t, Config{
		PollInterval:         30 * time.Second,
		PolledTaskMinutes:    7,
		DefaultExpireMinutes: 3,
		AutostartPolling:     true,
	}, cfg)
}

func TestManager_StartAutostartsPolling(t *testing.T) {
	env := newTestEnv(t, nil, withAutostart())

	require.NoError(t, env.mgr.Start(context.Background()))
	assert.True(t, env.mgr.IsPolling())

	env.clock.nextTimer(t)

	ctx, cancel := context.WithTimeout(context.Background(), eventuallyTimeout)
	defer cancel()

	require.NoError(t, env.mgr.Stop(ctx))
	assert.False(t, env.mgr.IsPolling())
}

func TestManager_StartWithoutAutostartStaysIdle(t *testing.T) {
	env := newTestEnv(t, nil)

	require.NoError(t, env.mgr.Start(context.Background()))
	assert.False(t, env.mgr.IsPolling())
}

func TestManager_ListDevicesAttachesTokens(t *testing.T) {
	devices := []models.Device{
		{Serial: "A", Present: true, Model: "Pixel 8"},
		{Serial: "B", Present: false},
		{Serial: "C", Present: true},
	}

	env := newTestEnv(t, newStubGateway(devices...))
	env.seedToken(t, "tA", "A", "app-1", models.TokenStatusActive)
	env.seedToken(t, "tC", "C", "app-2", models.TokenStatusExpired)

	got, err := env.mgr.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "tA", got[0].Token)
	assert.Equal(t, models.TokenStatusActive, got[0].TokenStatus)
	assert.Equal(t, "Pixel 8", got[0].Model)
	assert.False(t, got[1].Claimed())
	assert.False(t, got[2].Claimed(), "expired tokens do not claim a device")
}

func TestManager_ListDevicesGatewayError(t *testing.T) {
	gw := newStubGateway()
	gw.setErr(errGatewayDown)

	env := newTestEnv(t, gw)

	_, err := env.mgr.ListDevices(context.Background())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestManager_ListTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedToken(t, "t1", "A", "app-1", models.TokenStatusUnused)

	tokens, err := env.mgr.ListTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "t1", tokens[0].Token)
}

func TestManager_DeleteToken(t *testing.T) {
	t.Run("revokes and deletes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		events := NewMockEventPublisher(ctrl)
		events.EXPECT().PublishTokenEvent(gomock.Any(), models.TokenEventDeleted, gomock.Any()).Return(nil)

		env := newTestEnv(t, nil, withEvents(events))
		env.seedToken(t, "t1", "A", "app-1", models.TokenStatusActive)

		require.NoError(t, env.mgr.DeleteToken(context.Background(), "t1"))

		assert.Equal(t, []string{"t1"}, env.gateway.revokedTokens())

		_, err := env.store.GetToken(context.Background(), "t1")
		require.ErrorIs(t, err, db.ErrTokenNotFound)
	})

	t.Run("unknown token succeeds", func(t *testing.T) {
		env := newTestEnv(t, nil)

		require.NoError(t, env.mgr.DeleteToken(context.Background(), "missing"))
	})

	t.Run("gateway failure keeps token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := NewMockGateway(ctrl)
		gw.EXPECT().DeleteToken(gomock.Any(), "t1").Return(errGatewayDown)

		env := newTestEnv(t, nil, withGateway(gw))
		env.seedToken(t, "t1", "A", "app-1", models.TokenStatusActive)

		err := env.mgr.DeleteToken(context.Background(), "t1")
		require.ErrorIs(t, err, ErrUpstreamUnavailable)

		_, err = env.store.GetToken(context.Background(), "t1")
		require.NoError(t, err)
	})

	t.Run("token already revoked at STF", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			http.Error(w, "token not found", http.StatusNotFound)
		}))
		t.Cleanup(srv.Close)

		client, err := stf.NewClient(&models.STFConfig{AppURL: srv.URL}, nil, logger.NewTestLogger())
		require.NoError(t, err)

		env := newTestEnv(t, nil, withGateway(client))
		env.seedToken(t, "orphan", "A", "app-1", models.TokenStatusUnused)

		require.NoError(t, env.mgr.DeleteToken(context.Background(), "orphan"))

		_, err = env.store.GetToken(context.Background(), "orphan")
		require.ErrorIs(t, err, db.ErrTokenNotFound)
	})

	t.Run("blank id", func(t *testing.T) {
		env := newTestEnv(t, nil)

		err := env.mgr.DeleteToken(context.Background(), " ")
		require.ErrorIs(t, err, ErrTokenIDRequired)
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestManager_AppSlots(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.NoError(t, env.mgr.SaveAppSlots(ctx, []string{"app-2", "app-1"}))

	slots, err := env.mgr.ListAppSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "app-1", slots[0].AppID)
	assert.False(t, slots[0].Used)

	err = env.mgr.SaveAppSlots(ctx, []string{"app-1"})
	require.ErrorIs(t, err, ErrConflict)

	err = env.mgr.SaveAppSlots(ctx, nil)
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, env.mgr.DeleteAppSlots(ctx))

	slots, err = env.mgr.ListAppSlots(ctx)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestManager_AppSlotStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)
	store.EXPECT().DeleteAppSlots(gomock.Any()).Return(errStoreDown)
	store.EXPECT().SaveAppSlots(gomock.Any(), []string{"app-1"}).Return(errStoreDown)

	env := newTestEnv(t, nil, withStore(store))

	require.ErrorIs(t, env.mgr.DeleteAppSlots(context.Background()), ErrUpstreamUnavailable)
	require.ErrorIs(t, env.mgr.SaveAppSlots(context.Background(), []string{"app-1"}), ErrUpstreamUnavailable)
}
