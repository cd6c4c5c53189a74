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

package stf

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(&models.STFConfig{
		AppURL:   srv.URL + "/",
		APIToken: "stf-secret",
		Timeout:  models.Duration(5 * time.Second),
	}, srv.Client(), logger.NewTestLogger())
	require.NoError(t, err)

	return c
}

func TestListDevices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/app/api/v1/devices", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("authed"))
		assert.Equal(t, "Bearer stf-secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"devices":[
			{"serial":"emulator-5554","present":true,"ready":true,"model":"Pixel 7","manufacturer":"Google","platform":"Android","version":"14","token":"spoofed"},
			{"serial":"R58M","present":false},
			{"serial":"","present":true}
		]}`))
	})

	devices, err := c.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "emulator-5554", devices[0].Serial)
	assert.True(t, devices[0].Present)
	assert.Equal(t, "Pixel 7", devices[0].Model)
	assert.Empty(t, devices[0].Token, "token binding comes from the store, not STF")
	assert.False(t, devices[1].Present)
}

func TestListDevicesErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "stf is down", http.StatusServiceUnavailable)
	})

	_, err := c.ListDevices(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedStatus)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "stf is down", apiErr.Body)
}

func TestListDevicesBadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>login</html>`))
	})

	_, err := c.ListDevices(context.Background())
	require.ErrorIs(t, err, ErrDecodeDevices)
}

func TestDeleteToken(t *testing.T) {
	var gotPath string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.DeleteToken(context.Background(), "5f0c8d1e-tok"))
	assert.Equal(t, "/app/api/v1/token/5f0c8d1e-tok", gotPath)

	require.ErrorIs(t, c.DeleteToken(context.Background(), ""), ErrTokenIDRequired)
}

func TestDeleteTokenAlreadyRevoked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	require.NoError(t, c.DeleteToken(context.Background(), "revoked"))
}

func TestDeleteTokenServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rethinkdb unavailable", http.StatusInternalServerError)
	})

	err := c.DeleteToken(context.Background(), "5f0c8d1e-tok")
	require.ErrorIs(t, err, ErrUnexpectedStatus)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestNewClientRequiresAppURL(t *testing.T) {
	_, err := NewClient(&models.STFConfig{}, nil, logger.NewTestLogger())
	require.ErrorIs(t, err, ErrAppURLRequired)

	_, err = NewClient(nil, nil, logger.NewTestLogger())
	require.ErrorIs(t, err, ErrAppURLRequired)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewClient(&models.STFConfig{AppURL: srv.URL}, nil, logger.NewTestLogger())
	require.NoError(t, err)

	_, err = c.ListDevices(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnexpectedStatus)
}
