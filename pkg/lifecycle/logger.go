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

package lifecycle

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carverauto/crowdpool/pkg/logger"
)

// componentLogger is the logger.Logger handed to each part of the process.
// Every record carries the component that wrote it.
type componentLogger struct {
	zl zerolog.Logger
}

func (l *componentLogger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *componentLogger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *componentLogger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *componentLogger) Error() *zerolog.Event { return l.zl.Error() }

func (l *componentLogger) WithComponent(component string) zerolog.Logger {
	return l.zl.With().Str("component", component).Logger()
}

func (l *componentLogger) SetLevel(level zerolog.Level) {
	l.zl = l.zl.Level(level)
}

// CreateComponentLogger builds the root logger for component from config.
// A nil config falls back to the LOG_* environment defaults.
func CreateComponentLogger(component string, config *logger.Config) (logger.Logger, error) {
	zl, err := logger.Build(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &componentLogger{zl: zl.With().Str("component", component).Logger()}, nil
}

// Child derives a logger for a sub-component from an existing one.
func Child(parent logger.Logger, component string) logger.Logger {
	return &componentLogger{zl: parent.WithComponent(component)}
}
