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
	"errors"
	"time"
)

var errNATSURLRequired = errors.New("nats url is required")

// NATSConfig configures the JetStream connection used for token events.
type NATSConfig struct {
	URL       string     `json:"url"`
	Domain    string     `json:"domain,omitempty"`
	Stream    string     `json:"stream,omitempty"`
	Subjects  []string   `json:"subjects,omitempty"`
	CredsFile string     `json:"creds_file,omitempty"`
	CertDir   string     `json:"cert_dir,omitempty"`
	TLS       *TLSConfig `json:"tls,omitempty"`
}

// Validate ensures the NATS configuration is valid
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return errNATSURLRequired
	}

	if c.Stream == "" {
		c.Stream = "crowdpool-events"
	}

	if len(c.Subjects) == 0 {
		c.Subjects = []string{"events.tokens.*"}
	}

	return nil
}

// CloudEvent represents a CloudEvents 1.0 envelope.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// TokenEventType names a step in a token's allocation/publication history.
type TokenEventType string

const (
	TokenEventAllocated   TokenEventType = "allocated"
	TokenEventPublished   TokenEventType = "published"
	TokenEventCompensated TokenEventType = "compensated"
	TokenEventDeleted     TokenEventType = "deleted"
)

// TokenEventData is the payload of a token lifecycle event.
type TokenEventData struct {
	Token     string    `json:"token"`
	Serial    string    `json:"serial,omitempty"`
	AppID     string    `json:"app_id,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
