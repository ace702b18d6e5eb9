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

package sqlite

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultCacheSizeKiB is the page cache size used for on-disk stores
	DefaultCacheSizeKiB = 50000
	// DefaultVacuumInterval is how often an on-disk store is vacuumed
	DefaultVacuumInterval = 24 * time.Hour
)

// SqliteOptionFunc configures a MetadataStoreSqlite before it is opened
type SqliteOptionFunc func(*MetadataStoreSqlite)

// WithLogger sets the logger used by the governance metadata store
func WithLogger(logger *slog.Logger) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.logger = logger
	}
}

// WithPromRegistry sets the registry for the store's row count gauges
func WithPromRegistry(registry prometheus.Registerer) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.promRegistry = registry
	}
}

// WithDataDir places metadata.sqlite in dataDir. An empty value keeps the
// governance tables in memory.
func WithDataDir(dataDir string) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.dataDir = dataDir
	}
}

// WithCacheSize sets the sqlite page cache in KiB for on-disk stores. Zero
// keeps DefaultCacheSizeKiB.
func WithCacheSize(kib uint) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.cacheSizeKiB = kib
	}
}

// WithVacuumInterval sets how often an on-disk store is vacuumed. Zero keeps
// DefaultVacuumInterval.
func WithVacuumInterval(interval time.Duration) SqliteOptionFunc {
	return func(m *MetadataStoreSqlite) {
		m.vacuumInterval = interval
	}
}
