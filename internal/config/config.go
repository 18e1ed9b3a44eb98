// Copyright 2023 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/blinklabs-io/retarget/pow"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Debug   DebugConfig   `yaml:"debug"`
	State   StateConfig   `yaml:"state"`
	Chain   ChainConfig   `yaml:"chain"`
}

type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LOGGING_LEVEL"`
}

type DebugConfig struct {
	ListenAddress string `yaml:"address" envconfig:"DEBUG_ADDRESS"`
	ListenPort    uint   `yaml:"port"    envconfig:"DEBUG_PORT"`
}

type MetricsConfig struct {
	ListenAddress string `yaml:"address" envconfig:"METRICS_LISTEN_ADDRESS"`
	ListenPort    uint   `yaml:"port"    envconfig:"METRICS_LISTEN_PORT"`
}

type StateConfig struct {
	Directory string `yaml:"dir" envconfig:"STATE_DIR"`
}

// ChainConfig selects the network parameters. The optional fields
// override the values from the network profile when set.
type ChainConfig struct {
	Network     string `yaml:"network"     envconfig:"CHAIN_NETWORK"`
	StartHeight int64  `yaml:"startHeight" envconfig:"CHAIN_START_HEIGHT"`
	VerifyPoW   bool   `yaml:"verifyPow"   envconfig:"CHAIN_VERIFY_POW"`

	LWMAHeight    *int64 `yaml:"lwmaHeight"    envconfig:"CHAIN_LWMA_HEIGHT"`
	LWMAFixHeight *int64 `yaml:"lwmaFixHeight" envconfig:"CHAIN_LWMA_FIX_HEIGHT"`
	LWMAWindow    *int64 `yaml:"lwmaWindow"    envconfig:"CHAIN_LWMA_WINDOW"`
	ASERTHeight   *int64 `yaml:"asertHeight"   envconfig:"CHAIN_ASERT_HEIGHT"`
	ASERTHalfLife *int64 `yaml:"asertHalfLife" envconfig:"CHAIN_ASERT_HALF_LIFE"`
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Debug: DebugConfig{
			ListenAddress: "localhost",
			ListenPort:    0,
		},
		Metrics: MetricsConfig{
			ListenAddress: "",
			ListenPort:    0,
		},
		State: StateConfig{
			Directory: "./.state",
		},
		Chain: ChainConfig{
			Network:   "mainnet",
			VerifyPoW: true,
		},
	}
}

// Singleton config instance with default values
var globalConfig = defaultConfig()

func Load(configFile string) (*Config, error) {
	cfg := defaultConfig()
	// Load config file as YAML if provided
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, cfg)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Load config values from environment variables
	// We use "dummy" as the app name here to (mostly) prevent picking up env
	// vars that we hadn't explicitly specified in annotations above
	err := envconfig.Process("dummy", cfg)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	// Check network
	if _, ok := Networks[cfg.Chain.Network]; !ok {
		return nil, fmt.Errorf(
			"unknown network: %s: available networks: %s",
			cfg.Chain.Network,
			strings.Join(GetAvailableNetworks(), ","),
		)
	}
	if cfg.Chain.StartHeight < 0 {
		return nil, fmt.Errorf(
			"invalid start height: %d",
			cfg.Chain.StartHeight,
		)
	}
	// Catch bad parameter overrides before anything runs with them
	if _, err := cfg.ConsensusParams(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return globalConfig, nil
}

// GetConfig returns the global config instance
func GetConfig() *Config {
	return globalConfig
}

// ConsensusParams returns a copy of the selected network's parameters
// with any configured overrides applied
func (c *Config) ConsensusParams() (*pow.Params, error) {
	network, ok := Networks[c.Chain.Network]
	if !ok {
		return nil, fmt.Errorf("unknown network: %s", c.Chain.Network)
	}
	params := *network.Params
	if c.Chain.LWMAHeight != nil {
		params.LWMAHeight = *c.Chain.LWMAHeight
	}
	if c.Chain.LWMAFixHeight != nil {
		params.LWMAFixHeight = *c.Chain.LWMAFixHeight
	}
	if c.Chain.LWMAWindow != nil {
		params.LWMAWindow = *c.Chain.LWMAWindow
	}
	if c.Chain.ASERTHeight != nil {
		params.ASERTHeight = *c.Chain.ASERTHeight
	}
	if c.Chain.ASERTHalfLife != nil {
		params.ASERTHalfLife = *c.Chain.ASERTHalfLife
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("network %s: %w", c.Chain.Network, err)
	}
	return &params, nil
}
