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

// Package logger builds the zerolog loggers handed to every component.
package logger

import (
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"
)

var errUnknownOutput = errors.New("unknown log output")

// Config controls level, destination and timestamp format of a logger.
type Config struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format"`
}

// Build constructs a zerolog.Logger from config. A nil config reads the
// LOG_* environment defaults.
func Build(config *Config) (zerolog.Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	output, err := resolveOutput(config.Output)
	if err != nil {
		return zerolog.Nop(), err
	}

	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

func resolveOutput(name string) (io.Writer, error) {
	switch name {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return nil, errUnknownOutput
	}
}
