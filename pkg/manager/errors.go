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
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps exactly one of
// these so callers can branch with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrResourceExhausted   = errors.New("resource exhausted")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrCompensationFailure = errors.New("compensation failed")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
)

var (
	ErrSerialRequired      = fmt.Errorf("%w: device serial is required", ErrValidation)
	ErrTokenRequired       = fmt.Errorf("%w: missing required token for task", ErrValidation)
	ErrTaskMinutesRequired = fmt.Errorf("%w: missing required task minutes for task", ErrValidation)
	ErrAppIDRequired       = fmt.Errorf("%w: missing required app id for task", ErrValidation)
	ErrNoAppSlotsRemain    = fmt.Errorf("%w: no application slots remain", ErrResourceExhausted)
	ErrTokenIDRequired     = fmt.Errorf("%w: token id is required", ErrValidation)
	ErrTokenNotFound       = fmt.Errorf("%w: token", ErrNotFound)

	errStoreRequired       = errors.New("manager: store is required")
	errGatewayRequired     = errors.New("manager: gateway is required")
	errMarketplaceRequired = errors.New("manager: marketplace is required")
	errRendererRequired    = errors.New("manager: renderer is required")
	errLoggerRequired      = errors.New("manager: logger is required")
	errPollIntervalInvalid = errors.New("manager: poll interval must be positive")
	errTaskMinutesInvalid  = errors.New("manager: polled task minutes must be positive")
)

// InvariantViolationError reports a serial that holds more than one live
// token. It always indicates a bug elsewhere and is never recovered from.
type InvariantViolationError struct {
	Serial string
	Count  int
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %d live tokens for device %s", e.Count, e.Serial)
}

func (*InvariantViolationError) Unwrap() error {
	return ErrInvariantViolation
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, op, err)
}
