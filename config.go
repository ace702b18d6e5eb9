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

package tally

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/blinklabs-io/tally/governance"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultShutdownTimeout = 30 * time.Second
	DefaultBlockInterval   = time.Second
)

type Config struct {
	promRegistry      prometheus.Registerer
	logger            *slog.Logger
	clock             governance.Clock
	owner             string
	emergencyContacts []string
	minStakeRequired  uint64
	dataDir           string
	blobPlugin        string
	metadataPlugin    string
	metadataDsn       string
	// API listen address (empty = disabled)
	apiListenAddress string
	apiRateLimit     float64
	apiBurst         int
	tracing          bool
	tracingStdout    bool
	shutdownTimeout  time.Duration
}

func (n *Node) configValidate() error {
	if n.config.clock == nil {
		return errors.New("no clock configured")
	}
	if n.config.apiRateLimit < 0 {
		return fmt.Errorf(
			"invalid API rate limit: %v",
			n.config.apiRateLimit,
		)
	}
	if n.config.apiRateLimit > 0 && n.config.apiBurst < 1 {
		return fmt.Errorf(
			"invalid API burst: %d",
			n.config.apiBurst,
		)
	}
	for _, contact := range n.config.emergencyContacts {
		if strings.TrimSpace(contact) == "" {
			return errors.New("empty emergency contact")
		}
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the Tally config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new Tally config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		clock:           governance.NewSystemClock(time.Unix(0, 0), DefaultBlockInterval),
		shutdownTimeout: DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithOwner specifies the owner identity used when initializing a fresh database
func WithOwner(owner string) ConfigOptionFunc {
	return func(c *Config) {
		c.owner = owner
	}
}

// WithEmergencyContacts specifies the initial emergency contacts
func WithEmergencyContacts(contacts ...string) ConfigOptionFunc {
	return func(c *Config) {
		c.emergencyContacts = contacts
	}
}

// WithMinStakeRequired specifies the initial minimum stake for new voters
func WithMinStakeRequired(minStake uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.minStakeRequired = minStake
	}
}

// WithClock specifies the block height and time source
func WithClock(clock governance.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithMetadataDsn specifies the connection string for networked metadata plugins
func WithMetadataDsn(dsn string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataDsn = dsn
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithApiListenAddress specifies the listen address for the HTTP API. An empty value disables it
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithApiRateLimit specifies the sustained request rate and burst size for the HTTP API. A zero rate disables limiting
func WithApiRateLimit(rate float64, burst int) ConfigOptionFunc {
	return func(c *Config) {
		c.apiRateLimit = rate
		c.apiBurst = burst
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
