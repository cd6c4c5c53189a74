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

package marketplace

import "errors"

var (
	ErrTokenRequired       = errors.New("missing required token for task")
	ErrTaskMinutesRequired = errors.New("missing required task minutes for task")
	ErrAppIDRequired       = errors.New("missing required app id for task")

	ErrTaskNil          = errors.New("task is nil")
	ErrEmptyTaskID      = errors.New("marketplace returned an empty task id")
	ErrConfigMissing    = errors.New("marketplace configuration is missing")
	ErrAuthURLRequired  = errors.New("auth url is required to build task access links")
	ErrCreateTaskFailed = errors.New("failed to create task")
)
