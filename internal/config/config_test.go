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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "tally.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o600))
	return tmpFile
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestLoad_CompareFullStruct(t *testing.T) {
	tmpFile := writeConfig(t, `
owner: "treasury"
emergencyContacts:
  - "guardian-1"
  - "guardian-2"
minStakeRequired: 500
genesisTime: "2025-01-01T00:00:00Z"
blockInterval: "20s"
databasePath: "/var/lib/tally"
blobPlugin: "badger"
metadataPlugin: "postgres"
metadataDsn: "host=db user=tally"
bindAddr: "127.0.0.1"
apiPort: 9000
metricsPort: 9001
apiRateLimit: 5.5
apiBurst: 10
shutdownTimeout: "5s"
tracing: true
tracingStdout: true
`)
	expected := &Config{
		Owner:             "treasury",
		EmergencyContacts: []string{"guardian-1", "guardian-2"},
		MinStakeRequired:  500,
		GenesisTime:       "2025-01-01T00:00:00Z",
		BlockInterval:     "20s",
		DatabasePath:      "/var/lib/tally",
		BlobPlugin:        "badger",
		MetadataPlugin:    "postgres",
		MetadataDsn:       "host=db user=tally",
		BindAddr:          "127.0.0.1",
		ApiPort:           9000,
		MetricsPort:       9001,
		ApiRateLimit:      5.5,
		ApiBurst:          10,
		ShutdownTimeout:   "5s",
		Tracing:           true,
		TracingStdout:     true,
	}
	actual, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	genesis, err := actual.Genesis()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), genesis)
	interval, err := actual.BlockIntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, interval)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpFile := writeConfig(t, `
owner: "from-file"
apiPort: 9000
`)
	t.Setenv("TALLY_OWNER", "from-env")
	t.Setenv("TALLY_EMERGENCY_CONTACTS", "a,b")
	t.Setenv("TALLY_MIN_STAKE_REQUIRED", "18446744073709551615")
	t.Setenv("TALLY_TRACING", "true")
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Owner)
	assert.Equal(t, []string{"a", "b"}, cfg.EmergencyContacts)
	assert.Equal(t, uint64(18446744073709551615), cfg.MinStakeRequired)
	assert.Equal(t, uint(9000), cfg.ApiPort)
	assert.True(t, cfg.Tracing)
}

func TestLoad_HomeConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".tally"), 0o700))
	require.NoError(t, os.WriteFile(
		filepath.Join(home, ".tally", "tally.yaml"),
		[]byte(`owner: "home-owner"`),
		0o600,
	))
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "home-owner", cfg.Owner)
}

func TestLoad_Invalid(t *testing.T) {
	testDefs := []struct {
		name    string
		content string
		errText string
	}{
		{"bad yaml", "owner: [", "error parsing config file"},
		{"bad shutdown timeout", `shutdownTimeout: "soon"`, "invalid shutdownTimeout"},
		{"zero block interval", `blockInterval: "0s"`, "must be positive"},
		{"bad genesis", `genesisTime: "yesterday"`, "invalid genesisTime"},
		{"negative rate", `apiRateLimit: -1`, "invalid apiRateLimit"},
		{"port range", `apiPort: 70000`, "ports must be at most 65535"},
		{"blank contact", "emergencyContacts: [\"a\", \" \"]", "empty emergency contact"},
		{
			"unreadable sops file",
			"owner: ENC[AES256_GCM,data:AAAA,iv:AAAA,tag:AAAA,type:str]\nsops:\n  version: 3.9.0\n",
			"error decrypting config file",
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, testDef.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), testDef.errText)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := defaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
