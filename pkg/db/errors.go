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

package db

import "errors"

var (

	// Token errors.

	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenNil         = errors.New("token is nil")
	ErrTokenIDRequired  = errors.New("token id is required")
	ErrSerialRequired   = errors.New("device serial is required")
	ErrLiveTokenExists  = errors.New("a live token already exists for serial")
	ErrTokenExists      = errors.New("token already exists")
	ErrTokenStatusValue = errors.New("unknown token status")

	// Application slot errors.

	ErrNoAppSlots    = errors.New("no unused application slots")
	ErrAppSlotExists = errors.New("application slot already exists")
	ErrEmptyAppList  = errors.New("cannot save an empty or missing app list")
	ErrAppIDRequired = errors.New("app id is required")

	// Operation errors.

	ErrFailedToQuery  = errors.New("failed to query")
	ErrFailedToScan   = errors.New("failed to scan")
	ErrFailedToInsert = errors.New("failed to insert")
	ErrFailedToDelete = errors.New("failed to delete")
	ErrFailedToClaim  = errors.New("failed to claim application slot")

	// Connection errors.

	ErrCNPGConfigMissing   = errors.New("cnpg configuration is missing")
	ErrCNPGLackingTLSFiles = errors.New("cnpg tls requires cert_file, key_file, and ca_file")
	ErrCNPGAppendCACert    = errors.New("cnpg tls: unable to append CA certificate")
)
