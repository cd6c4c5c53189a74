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

// Package natsutil connects to NATS JetStream and publishes token lifecycle
// events as CloudEvents.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/models"
)

const (
	eventSource      = "crowdpool/manager"
	eventTypePrefix  = "com.carverauto.crowdpool.token."
	tokenSubjectBase = "events.tokens."
)

var (
	ErrConfigMissing = errors.New("nats configuration is missing")
	ErrEventDataNil  = errors.New("token event data is nil")
	ErrUnknownEvent  = errors.New("unknown token event type")
)

// jsPublisher is the part of jetstream.JetStream the publisher uses.
type jsPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EventPublisher publishes token lifecycle CloudEvents to a JetStream stream.
type EventPublisher struct {
	js     jsPublisher
	stream string
	logger logger.Logger
}

// NewEventPublisher creates a new EventPublisher for the specified stream.
func NewEventPublisher(js jsPublisher, streamName string, log logger.Logger) *EventPublisher {
	return &EventPublisher{
		js:     js,
		stream: streamName,
		logger: log,
	}
}

// TokenSubject is the subject a token event of type t is published on.
func TokenSubject(t models.TokenEventType) string {
	return tokenSubjectBase + string(t)
}

// PublishTokenEvent publishes one token event.
func (p *EventPublisher) PublishTokenEvent(ctx context.Context, eventType models.TokenEventType, data *models.TokenEventData) error {
	if data == nil {
		return ErrEventDataNil
	}

	switch eventType {
	case models.TokenEventAllocated, models.TokenEventPublished,
		models.TokenEventCompensated, models.TokenEventDeleted:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
	}

	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now().UTC()
	}

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.NewString(),
		Source:          eventSource,
		Type:            eventTypePrefix + string(eventType),
		DataContentType: "application/json",
		Subject:         TokenSubject(eventType),
		Time:            &data.Timestamp,
		Data:            data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal token event: %w", err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, payload, jetstream.WithMsgID(event.ID))
	if err != nil {
		return fmt.Errorf("failed to publish token event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", event.Subject).
		Str("stream", ack.Stream).
		Uint64("seq", ack.Sequence).
		Msg("published token event")

	return nil
}

// Connect dials NATS using cfg, wiring credentials, TLS and connection
// state logging.
func Connect(cfg *models.NATSConfig, log logger.Logger, extraOpts ...nats.Option) (*nats.Conn, error) {
	if cfg == nil {
		return nil, ErrConfigMissing
	}

	opts := []nats.Option{
		nats.Name("crowdpool-manager"),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	if cfg.TLS != nil {
		tlsConf, err := TLSConfig(cfg.TLS, cfg.CertDir)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}

// CreateEventPublisher opens a JetStream context on nc (scoped to domain when
// set) and makes sure the stream exists and covers the token subjects.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, cfg *models.NATSConfig, log logger.Logger) (*EventPublisher, error) {
	if cfg == nil {
		return nil, ErrConfigMissing
	}

	var (
		js  jetstream.JetStream
		err error
	)

	if cfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, cfg.Domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg.Stream, cfg.Subjects, log); err != nil {
		return nil, err
	}

	return NewEventPublisher(js, cfg.Stream, log), nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, name string, subjects []string, log logger.Logger) error {
	for _, t := range []models.TokenEventType{
		models.TokenEventAllocated, models.TokenEventPublished,
		models.TokenEventCompensated, models.TokenEventDeleted,
	} {
		subjects = ensureSubjectList(subjects, TokenSubject(t))
	}

	stream, err := js.Stream(ctx, name)

	switch {
	case err == nil:
		info := stream.CachedInfo()

		merged := append([]string(nil), info.Config.Subjects...)
		for _, s := range subjects {
			merged = ensureSubjectList(merged, s)
		}

		if len(merged) == len(info.Config.Subjects) {
			return nil
		}

		cfg := info.Config
		cfg.Subjects = merged

		if _, err := js.UpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("failed to update stream %s subjects: %w", name, err)
		}

		log.Info().Str("stream", name).Strs("subjects", merged).Msg("extended JetStream stream subjects")

		return nil
	case isStreamMissingErr(err):
		if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     name,
			Subjects: subjects,
		}); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", name, err)
		}

		log.Info().Str("stream", name).Strs("subjects", subjects).Msg("created JetStream stream")

		return nil
	default:
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}
}

// ensureSubjectList appends subject unless a pattern in subjects already
// matches it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, pattern := range subjects {
		if matchesSubject(pattern, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether a NATS subject pattern (with * and >
// wildcards) matches subject.
func matchesSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}
