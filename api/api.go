// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api serves the governance engine as a JSON HTTP API
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	DefaultListenAddress   = ":8080"
	DefaultShutdownTimeout = 30 * time.Second

	// IdentityHeader carries the caller identity set by the authenticating
	// gateway in front of the API
	IdentityHeader  = "X-Tally-Identity"
	RequestIDHeader = "X-Request-ID"
)

type Config struct {
	ListenAddress string
	// RateLimit is the sustained request rate per second. Zero disables
	// rate limiting.
	RateLimit float64
	RateBurst int
	// AuditIndex serves actor queries on the audit log when set
	AuditIndex      AuditIndex
	PromRegistry    prometheus.Registerer
	ShutdownTimeout time.Duration
}

// API is the governance HTTP API server
type API struct {
	config     Config
	logger     *slog.Logger
	engine     Governance
	limiter    *rate.Limiter
	metrics    *apiMetrics
	httpServer *http.Server
	addr       net.Addr
	mu         sync.Mutex
}

// New creates a new API server instance
func New(
	cfg Config,
	engine Governance,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	a := &API{
		config:  cfg,
		logger:  logger,
		engine:  engine,
		metrics: newApiMetrics(cfg.PromRegistry),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return a
}

// Handler returns the API routes wrapped in the request middleware chain
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)

	mux.HandleFunc("POST /api/v1/voters", a.handleRegisterVoter)
	mux.HandleFunc("GET /api/v1/voters/{id}", a.handleGetVoter)
	mux.HandleFunc("POST /api/v1/voters/{id}/reputation", a.handleUpdateReputation)
	mux.HandleFunc("POST /api/v1/voters/{id}/stake", a.handleUpdateStake)
	mux.HandleFunc(
		"POST /api/v1/voters/{id}/delegation-permission",
		a.handleSetDelegationPermission,
	)
	mux.HandleFunc("POST /api/v1/settings/min-stake", a.handleSetMinStake)

	mux.HandleFunc("POST /api/v1/delegations", a.handleDelegate)
	mux.HandleFunc("GET /api/v1/delegations/{id}", a.handleGetDelegation)
	mux.HandleFunc("DELETE /api/v1/delegations/{id}", a.handleRevokeDelegation)

	mux.HandleFunc("POST /api/v1/candidates", a.handleRegisterCandidate)
	mux.HandleFunc("GET /api/v1/candidates", a.handleListCandidates)
	mux.HandleFunc("GET /api/v1/candidates/{name}", a.handleGetCandidate)
	mux.HandleFunc("DELETE /api/v1/candidates/{name}", a.handleDeactivateCandidate)

	mux.HandleFunc("POST /api/v1/election/start", a.handleStartElection)
	mux.HandleFunc("POST /api/v1/election/end", a.handleEndElection)
	mux.HandleFunc("POST /api/v1/ballots/commit", a.handleCommitBallot)
	mux.HandleFunc("POST /api/v1/ballots/reveal", a.handleRevealBallot)
	mux.HandleFunc("GET /api/v1/ballots/{voter}", a.handleGetBallot)
	mux.HandleFunc("GET /api/v1/records/{voter}", a.handleGetRecord)

	mux.HandleFunc("POST /api/v1/proposals", a.handleCreateProposal)
	mux.HandleFunc("GET /api/v1/proposals", a.handleListProposals)
	mux.HandleFunc("GET /api/v1/proposals/{id}", a.handleGetProposal)
	mux.HandleFunc("POST /api/v1/proposals/{id}/votes", a.handleVoteOnProposal)
	mux.HandleFunc(
		"GET /api/v1/proposals/{id}/votes/{voter}",
		a.handleGetProposalVote,
	)
	mux.HandleFunc("POST /api/v1/proposals/{id}/close", a.handleCloseProposal)

	mux.HandleFunc("POST /api/v1/emergency/pause", a.handlePause)
	mux.HandleFunc("POST /api/v1/emergency/resume", a.handleResume)
	mux.HandleFunc("POST /api/v1/emergency/activate", a.handleActivateEmergency)
	mux.HandleFunc("POST /api/v1/emergency/contacts", a.handleAddContact)
	mux.HandleFunc(
		"DELETE /api/v1/emergency/contacts/{id}",
		a.handleRemoveContact,
	)

	mux.HandleFunc("GET /api/v1/stats", a.handleStats)
	mux.HandleFunc("GET /api/v1/audit", a.handleListAudit)
	mux.HandleFunc("GET /api/v1/audit/verify", a.handleVerifyAudit)
	mux.HandleFunc("GET /api/v1/audit/{id}", a.handleGetAudit)

	var handler http.Handler = mux
	handler = a.metricsMiddleware(handler)
	handler = a.rateLimitMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return otelhttp.NewHandler(handler, "tally-api")
}

// Start starts the HTTP server in a background goroutine
func (a *API) Start(
	ctx context.Context,
) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	addr, err := a.startServer(server)
	a.mu.Lock()
	if err != nil {
		a.httpServer = nil
		a.mu.Unlock()
		return err
	}
	a.addr = addr
	a.mu.Unlock()

	a.logger.Info(
		"API listener started on " + a.config.ListenAddress,
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			a.config.ShutdownTimeout,
		)
		defer cancel()
		//nolint:contextcheck
		if err := a.Stop(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (a *API) Stop(
	ctx context.Context,
) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.addr = nil
	a.mu.Unlock()

	if srv != nil {
		a.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown API server: %w", err)
		}
	}
	return nil
}

// Addr returns the bound listener address, or nil if the server is not
// running
func (a *API) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// startServer binds the listening socket first so port conflicts are
// detected immediately, then serves in a background goroutine
func (a *API) startServer(
	server *http.Server,
) (net.Addr, error) {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for API server: %w", err)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	return ln.Addr(), nil
}
