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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/crowdpool/pkg/db"
	"github.com/carverauto/crowdpool/pkg/marketplace"
	"github.com/carverauto/crowdpool/pkg/models"
)

func TestPublish_ValidatesEachField(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		taskMinutes float64
		appID       string
		wantErr     error
	}{
		{name: "missing token", token: "", taskMinutes: 5, appID: "app-1", wantErr: ErrTokenRequired},
		{name: "missing task minutes", token: "tok", taskMinutes: 0, appID: "app-1", wantErr: ErrTaskMinutesRequired},
		{name: "missing app id", token: "tok", taskMinutes: 5, appID: " ", wantErr: ErrAppIDRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			market := marketplace.NewMockMarketplace(ctrl)

			env := newTestEnv(t, nil, withMarketplace(market))

			_, err := env.mgr.PublishTask(context.Background(), tt.token, tt.taskMinutes, tt.appID)
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestPublish_ReturnsMarketplaceTaskID(t *testing.T) {
	ctrl := gomock.NewController(t)
	market := marketplace.NewMockMarketplace(ctrl)

	market.EXPECT().PublishTask(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, task *models.TaskConfig) (string, error) {
			assert.Equal(t, "tok", task.Token)
			assert.Equal(t, "Explore app-1", task.Title)

			return "HIT-42", nil
		})

	env := newTestEnv(t, nil, withMarketplace(market))

	id, err := env.mgr.PublishTask(context.Background(), "tok", 5, "app-1")
	require.NoError(t, err)
	assert.Equal(t, "HIT-42", id)
}

func TestPublish_FailureDeletesToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedSlots(t, "app-1")

	tk, err := env.mgr.AllocateToken(context.Background(), "SER-1", "5")
	require.NoError(t, err)

	env.market.fail[tk.Token] = true

	_, err = env.mgr.PublishTask(context.Background(), tk.Token, 5, tk.AppID)
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.ErrorIs(t, err, errMarketplaceDown)
	assert.NotErrorIs(t, err, ErrCompensationFailure)

	_, err = env.store.GetToken(context.Background(), tk.Token)
	require.ErrorIs(t, err, db.ErrTokenNotFound)

	assert.Equal(t, []string{tk.Token}, env.gateway.revokedTokens())
	assert.Equal(t, []string{"app-1"}, env.usedSlots(t), "compensation does not release the slot")
}

func TestPublish_RenderFailureDeletesToken(t *testing.T) {
	env := newTestEnv(t, nil, withRenderer(stubRenderer{err: errRenderFailed}))
	env.seedToken(t, "tok", "SER-1", "app-1", models.TokenStatusUnused)

	_, err := env.mgr.PublishTask(context.Background(), "tok", 5, "app-1")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.ErrorIs(t, err, errRenderFailed)

	_, err = env.store.GetToken(context.Background(), "tok")
	require.ErrorIs(t, err, db.ErrTokenNotFound)
	assert.Empty(t, env.market.published())
}

func TestPublish_GatewayRevokeFailureStillDeletesToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := NewMockGateway(ctrl)

	gw.EXPECT().DeleteToken(gomock.Any(), "tok").Return(errGatewayDown)

	env := newTestEnv(t, nil, withGateway(gw))
	env.seedToken(t, "tok", "SER-1", "app-1", models.TokenStatusUnused)
	env.market.fail["tok"] = true

	_, err := env.mgr.PublishTask(context.Background(), "tok", 5, "app-1")
	require.ErrorIs(t, err, errMarketplaceDown)
	assert.NotErrorIs(t, err, ErrCompensationFailure)

	_, err = env.store.GetToken(context.Background(), "tok")
	require.ErrorIs(t, err, db.ErrTokenNotFound)
}

func TestPublish_CompensationFailureIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	store.EXPECT().DeleteToken(gomock.Any(), "tok").Return(errStoreDown).Times(1)

	env := newTestEnv(t, nil, withStore(store))
	env.market.fail["tok"] = true

	_, err := env.mgr.PublishTask(context.Background(), "tok", 5, "app-1")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.ErrorIs(t, err, ErrCompensationFailure)
	require.ErrorIs(t, err, errStoreDown)
}

func TestPublish_AlreadyDeletedTokenCountsAsCompensated(t *testing.T) {
	env := newTestEnv(t, nil)
	env.market.fail["gone"] = true

	_, err := env.mgr.PublishTask(context.Background(), "gone", 5, "app-1")
	require.ErrorIs(t, err, errMarketplaceDown)
	assert.NotErrorIs(t, err, ErrCompensationFailure)
}

func TestPublishBatch_ResolvesTokensInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	market := marketplace.NewMockMarketplace(ctrl)
	gw := NewMockGateway(ctrl)

	taskFor := func(token string) gomock.Matcher {
		return gomock.Cond(func(task *models.TaskConfig) bool { return task.Token == token })
	}

	gomock.InOrder(
		market.EXPECT().PublishTask(gomock.Any(), taskFor("t1")).Return("HIT-1", nil),
		market.EXPECT().PublishTask(gomock.Any(), taskFor("t2")).Return("", errMarketplaceDown),
		gw.EXPECT().DeleteToken(gomock.Any(), "t2").Return(nil),
		market.EXPECT().PublishTask(gomock.Any(), taskFor("t3")).Return("HIT-3", nil),
	)

	env := newTestEnv(t, nil, withMarketplace(market), withGateway(gw))

	tokens := []*models.Token{
		{Token: "t1", AppID: "app-1"},
		{Token: "t2", AppID: "app-2"},
		nil,
		{Token: "t3", AppID: "app-3"},
	}

	for _, tk := range tokens {
		if tk != nil {
			env.seedToken(t, tk.Token, "SER-"+tk.Token, tk.AppID, models.TokenStatusUnused)
		}
	}

	summary := env.mgr.publisher.PublishBatch(context.Background(), tokens, testTaskMinutes)
	assert.Equal(t, PublishSummary{Published: 2, Failed: 1, Compensated: 1}, summary)

	remaining, err := env.store.ListTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, remaining, 2)
}

func TestPublishBatch_UnpublishableTokenIsRolledBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	market := marketplace.NewMockMarketplace(ctrl)

	env := newTestEnv(t, nil, withMarketplace(market))
	env.seedToken(t, "tok", "SER-1", "app-1", models.TokenStatusUnused)

	tokens := []*models.Token{{Token: "tok", AppID: "app-1"}}

	summary := env.mgr.publisher.PublishBatch(context.Background(), tokens, 0)
	assert.Equal(t, PublishSummary{Failed: 1, Compensated: 1}, summary)

	_, err := env.store.GetToken(context.Background(), "tok")
	require.ErrorIs(t, err, db.ErrTokenNotFound)
	assert.Equal(t, []string{"tok"}, env.gateway.revokedTokens())
}
