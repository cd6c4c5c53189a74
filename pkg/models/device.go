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

// Device is a snapshot of a device reported by the inventory gateway. Token
// and TokenStatus are filled in locally from the token collection.
type Device struct {
	Serial       string      `json:"serial"`
	Present      bool        `json:"present"`
	Ready        bool        `json:"ready,omitempty"`
	Model        string      `json:"model,omitempty"`
	Manufacturer string      `json:"manufacturer,omitempty"`
	Platform     string      `json:"platform,omitempty"`
	Version      string      `json:"version,omitempty"`
	Token        string      `json:"token,omitempty"`
	TokenStatus  TokenStatus `json:"tokenStatus,omitempty"`
}

// Claimed reports whether a live token is bound to the device.
func (d *Device) Claimed() bool {
	return d.Token != ""
}

// AttachTokens binds each device to the first non-expired token carrying its
// serial. Devices without such a token are left unclaimed.
func AttachTokens(devices []*Device, tokens []*Token) {
	bySerial := make(map[string]*Token, len(tokens))

	for _, tk := range tokens {
		if tk == nil || tk.Status == TokenStatusExpired {
			continue
		}

		if _, seen := bySerial[tk.Serial]; !seen {
			bySerial[tk.Serial] = tk
		}
	}

	for _, device := range devices {
		if device == nil {
			continue
		}

		if tk, ok := bySerial[device.Serial]; ok {
			device.Token = tk.Token
			device.TokenStatus = tk.Status
		}
	}
}

// PresentDevices filters devices down to those currently connected.
func PresentDevices(devices []*Device) []*Device {
	present := make([]*Device, 0, len(devices))

	for _, device := range devices {
		if device != nil && device.Present {
			present = append(present, device)
		}
	}

	return present
}

// UnclaimedDevices filters devices down to those without a bound token.
func UnclaimedDevices(devices []*Device) []*Device {
	unclaimed := make([]*Device, 0, len(devices))

	for _, device := range devices {
		if device != nil && !device.Claimed() {
			unclaimed = append(unclaimed, device)
		}
	}

	return unclaimed
}
