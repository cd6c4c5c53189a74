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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/crowdpool/pkg/logger"
)

const (
	StoreCNPG   = "cnpg"
	StoreMemory = "memory"

	defaultListenAddr           = ":8080"
	defaultPollInterval         = 15 * time.Second
	defaultPolledTaskMinutes    = 5.0
	defaultExpireMinutes        = 5.0
	defaultSTFTimeout           = 30 * time.Second
	defaultMarketplaceRegion    = "us-east-1"
	defaultHITLifetimeSeconds   = 3600
	defaultHITAssignmentSeconds = 1800
	defaultHITAutoApproveSecs   = 86400
	defaultCurrencyCode         = "USD"
	defaultCurrencyPrefix       = "$"
)

var (
	errInvalidDuration             = errors.New("invalid duration")
	errUnknownStore                = errors.New("unknown store type")
	errCNPGRequired                = errors.New("cnpg configuration is required when store is cnpg")
	errSTFAppURLRequired           = errors.New("stf.app_url is required")
	errSTFAuthURLRequired          = errors.New("stf.auth_url is required")
	errMarketplaceCredsRequired    = errors.New("marketplace access_key and secret_key are required")
	errMarketplaceQualRequired     = errors.New("marketplace.hit.production_qualification is required")
	errMarketplaceRateInvalid      = errors.New("marketplace.hit.reward_dollars_per_minute must be positive")
	errTaskMinutesInvalid          = errors.New("polled_task_minutes must be positive")
	errDefaultExpireMinutesInvalid = errors.New("default_expire_minutes must be positive")
)

// Duration accepts either a Go duration string ("15s") or a number of nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// STFConfig locates the device farm's REST API.
type STFConfig struct {
	AppURL   string   `json:"app_url"`
	AuthURL  string   `json:"auth_url"`
	APIToken string   `json:"api_token,omitempty"`
	Timeout  Duration `json:"timeout,omitempty"`
}

// AccountLogin is a throwaway app account shown to workers in the task body.
type AccountLogin struct {
	Service  string `json:"service"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// HITAccounts holds details surfaced to workers in the task body.
type HITAccounts struct {
	ContactEmail string         `json:"contact_email"`
	Logins       []AccountLogin `json:"logins,omitempty"`
}

// HITConfig describes how published tasks look and pay.
type HITConfig struct {
	Title                       string         `json:"title"`
	Description                 string         `json:"description"`
	Keywords                    string         `json:"keywords"`
	RewardDollarsPerMinute      float64        `json:"reward_dollars_per_minute"`
	CurrencyCode                string         `json:"currency_code"`
	CurrencyPrefix              string         `json:"currency_prefix"`
	LifetimeInSeconds           int64          `json:"lifetime_in_seconds"`
	AssignmentDurationInSeconds int64          `json:"assignment_duration_in_seconds"`
	AutoApprovalDelayInSeconds  int64          `json:"auto_approval_delay_in_seconds"`
	ProductionQualification     *Qualification `json:"production_qualification"`
	SandboxQualification        *Qualification `json:"sandbox_qualification,omitempty"`
}

// MarketplaceConfig configures publication of paid tasks.
type MarketplaceConfig struct {
	Production     bool        `json:"production"`
	AccessKey      string      `json:"access_key"`
	SecretKey      string      `json:"secret_key"`
	Region         string      `json:"region,omitempty"`
	Endpoint       string      `json:"endpoint,omitempty"`
	TaskScreenshot string      `json:"task_screenshot,omitempty"`
	HIT            HITConfig   `json:"hit"`
	Accounts       HITAccounts `json:"accounts"`
}

// Validate checks credentials and fills presentation defaults.
func (c *MarketplaceConfig) Validate() error {
	if c.AccessKey == "" || c.SecretKey == "" {
		return errMarketplaceCredsRequired
	}

	if c.HIT.ProductionQualification == nil {
		return errMarketplaceQualRequired
	}

	if c.HIT.RewardDollarsPerMinute <= 0 {
		return errMarketplaceRateInvalid
	}

	if c.Region == "" {
		c.Region = defaultMarketplaceRegion
	}

	if c.HIT.CurrencyCode == "" {
		c.HIT.CurrencyCode = defaultCurrencyCode
	}

	if c.HIT.CurrencyPrefix == "" {
		c.HIT.CurrencyPrefix = defaultCurrencyPrefix
	}

	if c.HIT.LifetimeInSeconds <= 0 {
		c.HIT.LifetimeInSeconds = defaultHITLifetimeSeconds
	}

	if c.HIT.AssignmentDurationInSeconds <= 0 {
		c.HIT.AssignmentDurationInSeconds = defaultHITAssignmentSeconds
	}

	if c.HIT.AutoApprovalDelayInSeconds <= 0 {
		c.HIT.AutoApprovalDelayInSeconds = defaultHITAutoApproveSecs
	}

	return nil
}

// CORSConfig controls cross-origin access to the REST API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins,omitempty"`
	AllowCredentials bool     `json:"allow_credentials,omitempty"`
}

// ManagerConfig is the complete configuration of the manager process.
type ManagerConfig struct {
	ListenAddr           string                `json:"listen_addr"`
	PollInterval         Duration              `json:"poll_interval"`
	PolledTaskMinutes    float64               `json:"polled_task_minutes"`
	DefaultExpireMinutes float64               `json:"default_expire_minutes"`
	AutostartPolling     bool                  `json:"autostart_polling"`
	Store                string                `json:"store"`
	CNPG                 *CNPGDatabase         `json:"cnpg,omitempty"`
	STF                  STFConfig             `json:"stf"`
	Marketplace          MarketplaceConfig     `json:"marketplace"`
	NATS                 *NATSConfig           `json:"nats,omitempty"`
	CORS                 CORSConfig            `json:"cors,omitempty"`
	Logging              *logger.Config        `json:"logging,omitempty"`
	Metrics              *logger.MetricsConfig `json:"metrics,omitempty"`
}

// Validate implements config.Validator. It fills defaults for optional
// settings and rejects configurations the manager cannot run with.
func (c *ManagerConfig) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if time.Duration(c.PollInterval) <= 0 {
		c.PollInterval = Duration(defaultPollInterval)
	}

	if c.PolledTaskMinutes == 0 {
		c.PolledTaskMinutes = defaultPolledTaskMinutes
	} else if c.PolledTaskMinutes < 0 {
		return errTaskMinutesInvalid
	}

	if c.DefaultExpireMinutes == 0 {
		c.DefaultExpireMinutes = defaultExpireMinutes
	} else if c.DefaultExpireMinutes < 0 {
		return errDefaultExpireMinutesInvalid
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))

	switch c.Store {
	case "":
		c.Store = StoreCNPG

		if c.CNPG == nil {
			return errCNPGRequired
		}
	case StoreCNPG:
		if c.CNPG == nil {
			return errCNPGRequired
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: %s", errUnknownStore, c.Store)
	}

	if c.STF.AppURL == "" {
		return errSTFAppURLRequired
	}

	if c.STF.AuthURL == "" {
		return errSTFAuthURLRequired
	}

	if time.Duration(c.STF.Timeout) <= 0 {
		c.STF.Timeout = Duration(defaultSTFTimeout)
	}

	if err := c.Marketplace.Validate(); err != nil {
		return err
	}

	if c.NATS != nil {
		if err := c.NATS.Validate(); err != nil {
			return err
		}
	}

	return nil
}
