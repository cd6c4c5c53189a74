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

// Package stf is a client for the device farm's REST API, the inventory of
// physical devices and the authority that revokes device access tokens.
package stf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/models"
)

const (
	devicesPath = "/app/api/v1/devices"
	tokenPath   = "/app/api/v1/token/"

	maxErrorBody = 4 << 10
)

// Client talks to a single STF deployment.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     logger.Logger
}

type deviceList struct {
	Devices []wireDevice `json:"devices"`
}

// wireDevice mirrors the subset of STF's device document the manager uses.
type wireDevice struct {
	Serial       string `json:"serial"`
	Present      bool   `json:"present"`
	Ready        bool   `json:"ready"`
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer"`
	Platform     string `json:"platform"`
	Version      string `json:"version"`
}

// NewClient builds a client from config. A nil httpClient gets one with the
// configured timeout.
func NewClient(cfg *models.STFConfig, httpClient *http.Client, log logger.Logger) (*Client, error) {
	if cfg == nil || cfg.AppURL == "" {
		return nil, ErrAppURLRequired
	}

	if _, err := url.Parse(cfg.AppURL); err != nil {
		return nil, fmt.Errorf("stf: invalid app url: %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.Timeout)}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.AppURL, "/"),
		apiToken:   cfg.APIToken,
		httpClient: httpClient,
		logger:     log,
	}, nil
}

// ListDevices returns every device STF knows about, present or not.
func (c *Client) ListDevices(ctx context.Context) ([]*models.Device, error) {
	resp, err := c.do(ctx, http.MethodGet, devicesPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var list deviceList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeDevices, err)
	}

	devices := make([]*models.Device, 0, len(list.Devices))

	for i := range list.Devices {
		d := &list.Devices[i]
		if d.Serial == "" {
			continue
		}

		devices = append(devices, &models.Device{
			Serial:       d.Serial,
			Present:      d.Present,
			Ready:        d.Ready,
			Model:        d.Model,
			Manufacturer: d.Manufacturer,
			Platform:     d.Platform,
			Version:      d.Version,
		})
	}

	c.logger.Debug().Int("devices", len(devices)).Msg("fetched device inventory")

	return devices, nil
}

// DeleteToken revokes a token. STF force-disconnects any session using it.
// A token STF no longer knows is already revoked and is not an error.
func (c *Client) DeleteToken(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return ErrTokenIDRequired
	}

	resp, err := c.do(ctx, http.MethodDelete, tokenPath+url.PathEscape(tokenID))

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		c.logger.Debug().Str("token", tokenID).Msg("token already revoked at STF")
		return nil
	}

	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info().Str("token", tokenID).Msg("revoked token at STF")

	return nil
}

// do sends an authed request and returns the response for 2xx statuses.
// Other statuses are drained into an *APIError.
func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	endpoint := c.baseURL + path + "?authed=true"

	req, err := http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("stf: build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stf: %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	return nil, &APIError{
		Method:     method,
		URL:        path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
