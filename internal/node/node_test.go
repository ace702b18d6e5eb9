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

package node

import (
	"context"
	"log/slog"
	"testing"

	"github.com/blinklabs-io/tally"
	"github.com/blinklabs-io/tally/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeOptions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Owner = "owner"
	cfg.EmergencyContacts = []string{"guardian"}
	cfg.DatabasePath = ""
	cfg.BindAddr = "127.0.0.1"
	cfg.ApiPort = 0

	opts, err := NodeOptions(cfg, slog.Default(), prometheus.NewRegistry())
	require.NoError(t, err)
	n, err := tally.New(tally.NewConfig(opts...))
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background()))
	defer n.Stop() //nolint:errcheck

	// API disabled when no port is configured
	assert.Nil(t, n.ApiAddr())
	state := n.Engine().State()
	assert.Equal(t, "owner", string(state.Owner))
	assert.True(t, n.Engine().IsEmergencyContact("guardian"))
}

func TestNodeOptionsInvalid(t *testing.T) {
	testDefs := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"shutdown timeout", func(c *config.Config) { c.ShutdownTimeout = "never" }},
		{"genesis", func(c *config.Config) { c.GenesisTime = "tomorrow" }},
		{"block interval", func(c *config.Config) { c.BlockInterval = "-1s" }},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			cfg := &config.Config{}
			testDef.mutate(cfg)
			_, err := NodeOptions(cfg, slog.Default(), nil)
			require.Error(t, err)
		})
	}
}
