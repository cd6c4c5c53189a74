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

import "time"

// TokenStatus tracks where an access token is in its lifecycle. Transitions
// unused -> active -> expired are driven by the device gateway.
type TokenStatus string

const (
	TokenStatusUnused  TokenStatus = "unused"
	TokenStatusActive  TokenStatus = "active"
	TokenStatusExpired TokenStatus = "expired"
)

// IsLive reports whether a token still covers its device.
func (s TokenStatus) IsLive() bool {
	return s == TokenStatusUnused || s == TokenStatusActive
}

// Token is an access token binding one device serial to one consumed
// application slot.
type Token struct {
	Token         string      `json:"token"`
	Serial        string      `json:"serial"`
	AppID         string      `json:"appId"`
	Status        TokenStatus `json:"status"`
	CreationTime  time.Time   `json:"creationTime"`
	ExpireMinutes float64     `json:"expireMinutes"`
}

// ApplicationSlot is a consumable application assignment. A slot is claimed
// at most once and never returns to the unused pool on its own.
type ApplicationSlot struct {
	AppID   string     `json:"appId"`
	Used    bool       `json:"used"`
	Updated *time.Time `json:"updated,omitempty"`
}

// LiveTokens returns the subset of tokens that are unused or active.
func LiveTokens(tokens []*Token) []*Token {
	live := make([]*Token, 0, len(tokens))

	for _, tk := range tokens {
		if tk != nil && tk.Status.IsLive() {
			live = append(live, tk)
		}
	}

	return live
}
