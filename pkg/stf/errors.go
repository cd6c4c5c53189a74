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
	"errors"
	"fmt"
)

var (
	ErrAppURLRequired   = errors.New("stf: app url is required")
	ErrTokenIDRequired  = errors.New("stf: token id is required")
	ErrUnexpectedStatus = errors.New("stf: unexpected response status")
	ErrDecodeDevices    = errors.New("stf: failed to decode device list")
)

// APIError carries the status and body of a non-2xx response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("stf: %s %s: status %d", e.Method, e.URL, e.StatusCode)
	}

	return fmt.Sprintf("stf: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (*APIError) Unwrap() error {
	return ErrUnexpectedStatus
}
