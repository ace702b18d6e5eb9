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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsops/sops/v3/decrypt"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "tally.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultBlockInterval   = "1s"
	DefaultBlobPlugin      = "badger"
	DefaultMetadataPlugin  = "sqlite"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	Owner             string   `yaml:"owner"`
	EmergencyContacts []string `yaml:"emergencyContacts" split_words:"true"`
	MinStakeRequired  uint64   `yaml:"minStakeRequired"  split_words:"true"`
	// GenesisTime anchors block height for the system clock (RFC 3339)
	GenesisTime     string  `yaml:"genesisTime"     split_words:"true"`
	BlockInterval   string  `yaml:"blockInterval"   split_words:"true"`
	DatabasePath    string  `yaml:"databasePath"    split_words:"true"`
	BlobPlugin      string  `yaml:"blobPlugin"      split_words:"true"`
	MetadataPlugin  string  `yaml:"metadataPlugin"  split_words:"true"`
	MetadataDsn     string  `yaml:"metadataDsn"     split_words:"true"`
	BindAddr        string  `yaml:"bindAddr"        split_words:"true"`
	ApiPort         uint    `yaml:"apiPort"         split_words:"true"`
	MetricsPort     uint    `yaml:"metricsPort"     split_words:"true"`
	ApiRateLimit    float64 `yaml:"apiRateLimit"    split_words:"true"`
	ApiBurst        int     `yaml:"apiBurst"        split_words:"true"`
	ShutdownTimeout string  `yaml:"shutdownTimeout" split_words:"true"`
	Tracing         bool    `yaml:"tracing"`
	TracingStdout   bool    `yaml:"tracingStdout"   split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		BlockInterval:   DefaultBlockInterval,
		DatabasePath:    ".tally",
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		BindAddr:        "0.0.0.0",
		ApiPort:         8080,
		MetricsPort:     12799,
		ApiRateLimit:    50,
		ApiBurst:        100,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

var globalConfig = defaultConfig()

// LoadConfig builds the config from defaults, the YAML file (when one is
// given or found in a default location) and TALLY_ environment variables,
// in that order of precedence
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	if configFile == "" {
		// Check for config file in this path: ~/.tally/tally.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".tally", "tally.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		// Try to check for /etc/tally/tally.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/tally/tally.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		buf, err = decryptIfNeeded(buf)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process("tally", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return cfg, nil
}

func GetConfig() *Config {
	return globalConfig
}

// decryptIfNeeded decrypts SOPS-encrypted YAML. Plain files pass through.
func decryptIfNeeded(buf []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if _, ok := doc["sops"]; !ok {
		return buf, nil
	}
	ret, err := decrypt.Data(buf, "yaml")
	if err != nil {
		return nil, fmt.Errorf("error decrypting config file: %w", err)
	}
	return ret, nil
}

// Validate checks field values that cannot be caught by parsing
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.BlockIntervalDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Genesis(); err != nil {
		errs = append(errs, err)
	}
	if c.ApiRateLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid apiRateLimit: %v", c.ApiRateLimit))
	}
	if c.ApiPort > 65535 || c.MetricsPort > 65535 {
		errs = append(errs, errors.New("ports must be at most 65535"))
	}
	for _, contact := range c.EmergencyContacts {
		if strings.TrimSpace(contact) == "" {
			errs = append(errs, errors.New("empty emergency contact"))
			break
		}
	}
	return errors.Join(errs...)
}

func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return time.ParseDuration(DefaultShutdownTimeout)
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout %q: %w", c.ShutdownTimeout, err)
	}
	return d, nil
}

func (c *Config) BlockIntervalDuration() (time.Duration, error) {
	if c.BlockInterval == "" {
		return time.ParseDuration(DefaultBlockInterval)
	}
	d, err := time.ParseDuration(c.BlockInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid blockInterval %q: %w", c.BlockInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid blockInterval %q: must be positive", c.BlockInterval)
	}
	return d, nil
}

// Genesis returns the configured genesis time, or the Unix epoch when unset
func (c *Config) Genesis() (time.Time, error) {
	if c.GenesisTime == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, c.GenesisTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid genesisTime %q: %w", c.GenesisTime, err)
	}
	return t, nil
}
