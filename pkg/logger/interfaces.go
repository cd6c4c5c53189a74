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

package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the logging surface handed to every component. Implementations
// wrap a zerolog.Logger so call sites can chain structured fields.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	WithComponent(component string) zerolog.Logger
	SetLevel(level zerolog.Level)
}

// NewTestLogger returns a Logger that discards everything.
func NewTestLogger() Logger {
	return &writerLogger{zl: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}

// NewWriterLogger returns a Logger that writes JSON lines to w at every level.
func NewWriterLogger(w io.Writer) Logger {
	return &writerLogger{zl: zerolog.New(w).Level(zerolog.TraceLevel)}
}

type writerLogger struct {
	zl zerolog.Logger
}

func (l *writerLogger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *writerLogger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *writerLogger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *writerLogger) Error() *zerolog.Event { return l.zl.Error() }

func (l *writerLogger) WithComponent(component string) zerolog.Logger {
	return l.zl.With().Str("component", component).Logger()
}

func (l *writerLogger) SetLevel(level zerolog.Level) { l.zl = l.zl.Level(level) }
