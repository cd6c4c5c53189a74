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

// Package api exposes the manager over a REST interface for operators.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	cpHttp "github.com/carverauto/crowdpool/pkg/http"
	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/manager"
	"github.com/carverauto/crowdpool/pkg/models"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	maxBodyBytes        = 1 << 20
)

// Manager is the subset of *manager.Manager the API serves.
type Manager interface {
	StartPolling() bool
	StopPolling() bool
	IsPolling() bool
	AllocateToken(ctx context.Context, serial, expireMinutes string) (*models.Token, error)
	ListTokens(ctx context.Context) ([]*models.Token, error)
	ListDevices(ctx context.Context) ([]*models.Device, error)
	DeleteToken(ctx context.Context, tokenID string) error
	ListAppSlots(ctx context.Context) ([]*models.ApplicationSlot, error)
	SaveAppSlots(ctx context.Context, appIDs []string) error
	DeleteAppSlots(ctx context.Context) error
}

var _ Manager = (*manager.Manager)(nil)

// Server is the REST API server. It implements lifecycle.Service.
type Server struct {
	router     *mux.Router
	manager    Manager
	corsConfig models.CORSConfig
	logger     logger.Logger
	srv        *http.Server
}

type statusResponse struct {
	Status string `json:"status"`
}

type pollingResponse struct {
	Active bool `json:"active"`
}

type errorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// NewServer creates an API server listening on addr.
func NewServer(addr string, mgr Manager, corsConfig models.CORSConfig, log logger.Logger) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		manager:    mgr,
		corsConfig: corsConfig,
		logger:     log,
	}

	s.setupRoutes()

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	return s
}

// Handler returns the routed handler wrapped in the common middleware.
// Wrapping outside the router lets preflight requests through for routes
// that only register GET, POST or DELETE.
func (s *Server) Handler() http.Handler {
	return cpHttp.CommonMiddleware(s.router, s.corsConfig, s.logger)
}

func (s *Server) setupRoutes() {
	r := s.router.PathPrefix("/api").Subrouter()

	r.HandleFunc("/devices", s.getDevices).Methods(http.MethodGet)
	r.HandleFunc("/apps", s.getApps).Methods(http.MethodGet)
	r.HandleFunc("/apps", s.saveApps).Methods(http.MethodPost)
	r.HandleFunc("/apps", s.deleteApps).Methods(http.MethodDelete)
	r.HandleFunc("/tokens", s.getTokens).Methods(http.MethodGet)
	r.HandleFunc("/tokens/{token}", s.deleteToken).Methods(http.MethodDelete)
	r.HandleFunc("/polling/start", s.startPolling).Methods(http.MethodGet)
	r.HandleFunc("/polling/stop", s.stopPolling).Methods(http.MethodGet)
	r.HandleFunc("/polling/status", s.pollingStatus).Methods(http.MethodGet)
}

// Start serves until Stop is called. It returns nil after a graceful stop.
func (s *Server) Start(_ context.Context) error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("starting API server")

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) getDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.manager.ListDevices(r.Context())
	if err != nil {
		s.writeError(w, "fetching devices", err)
		return
	}

	s.writeJSON(w, http.StatusOK, devices)
}

func (s *Server) getApps(w http.ResponseWriter, r *http.Request) {
	slots, err := s.manager.ListAppSlots(r.Context())
	if err != nil {
		s.writeError(w, "fetching apps", err)
		return
	}

	s.writeJSON(w, http.StatusOK, slots)
}

func (s *Server) saveApps(w http.ResponseWriter, r *http.Request) {
	var appIDs []string

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&appIDs); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "request body must be a JSON array of app ids",
			Status:  http.StatusBadRequest,
		})

		return
	}

	if err := s.manager.SaveAppSlots(r.Context(), appIDs); err != nil {
		s.writeError(w, "saving apps", err)
		return
	}

	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) deleteApps(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.DeleteAppSlots(r.Context()); err != nil {
		s.writeError(w, "deleting apps", err)
		return
	}

	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// getTokens lists tokens, or allocates one when a serial is given and
// answers with the bare token id.
func (s *Server) getTokens(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Has("serial") {
		tk, err := s.manager.AllocateToken(r.Context(), query.Get("serial"), query.Get("expireMinutes"))
		if err != nil {
			s.writeError(w, "generating token", err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write([]byte(tk.Token)); err != nil {
			s.logger.Warn().Err(err).Msg("failed to write token response")
		}

		return
	}

	tokens, err := s.manager.ListTokens(r.Context())
	if err != nil {
		s.writeError(w, "fetching tokens", err)
		return
	}

	s.writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) deleteToken(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.DeleteToken(r.Context(), mux.Vars(r)["token"]); err != nil {
		s.writeError(w, "deleting token", err)
		return
	}

	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) startPolling(w http.ResponseWriter, _ *http.Request) {
	s.manager.StartPolling()
	s.writeJSON(w, http.StatusOK, pollingResponse{Active: s.manager.IsPolling()})
}

func (s *Server) stopPolling(w http.ResponseWriter, _ *http.Request) {
	s.manager.StopPolling()
	s.writeJSON(w, http.StatusOK, pollingResponse{Active: s.manager.IsPolling()})
}

func (s *Server) pollingStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.manager.IsPolling())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, action string, err error) {
	status := statusFor(err)

	event := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}

	event.Err(err).Int("status", status).Msgf("error %s", action)

	s.writeJSON(w, status, errorResponse{Message: err.Error(), Status: status})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, manager.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, manager.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, manager.ErrResourceExhausted), errors.Is(err, manager.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, manager.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
