package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Alloc seeds a ledger balance at first start.
type Alloc struct {
	Address string `toml:"Address"`
	Token   string `toml:"Token"`
	Amount  string `toml:"Amount"`
}

// GatewayConfig controls the HTTP surface.
type GatewayConfig struct {
	AuthEnabled       bool    `toml:"AuthEnabled"`
	HMACSecret        string  `toml:"HMACSecret"`
	Issuer            string  `toml:"Issuer"`
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// LogConfig controls rotating file output.
type LogConfig struct {
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Pauses holds the operator pause switches per module.
type Pauses struct {
	Settlement bool `toml:"Settlement"`
}

// IsPaused implements the native/common.PauseView interface.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "settlement":
		return p.Settlement
	default:
		return false
	}
}

// Config is the daemon configuration.
type Config struct {
	ListenAddress string        `toml:"ListenAddress"`
	DataDir       string        `toml:"DataDir"`
	Environment   string        `toml:"Environment"`
	TemplateOwner string        `toml:"TemplateOwner"`
	Tokens        []string      `toml:"Tokens"`
	Log           LogConfig     `toml:"Log"`
	Gateway       GatewayConfig `toml:"Gateway"`
	Pauses        Pauses        `toml:"Pauses"`
	Genesis       []Alloc       `toml:"Genesis"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8644"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./settle-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if len(c.Tokens) == 0 {
		c.Tokens = []string{"USDX"}
	}
	if c.Gateway.RequestsPerMinute <= 0 {
		c.Gateway.RequestsPerMinute = 600
	}
	if c.Gateway.Burst <= 0 {
		c.Gateway.Burst = 30
	}
}

// Validate rejects malformed configuration before the daemon starts.
func (c *Config) Validate() error {
	if _, err := c.OwnerAddress(); err != nil {
		return err
	}
	if c.Gateway.AuthEnabled && strings.TrimSpace(c.Gateway.HMACSecret) == "" {
		return fmt.Errorf("config: Gateway.HMACSecret required when auth is enabled")
	}
	for i, alloc := range c.Genesis {
		if _, err := ParseAddress(alloc.Address); err != nil {
			return fmt.Errorf("config: genesis alloc %d: %w", i, err)
		}
		if strings.TrimSpace(alloc.Token) == "" || strings.TrimSpace(alloc.Amount) == "" {
			return fmt.Errorf("config: genesis alloc %d: token and amount required", i)
		}
	}
	return nil
}

// OwnerAddress parses the template registry owner address. An empty value
// yields the zero address, which effectively freezes template approval.
func (c *Config) OwnerAddress() ([20]byte, error) {
	trimmed := strings.TrimSpace(c.TemplateOwner)
	if trimmed == "" {
		return [20]byte{}, nil
	}
	return ParseAddress(trimmed)
}

// ParseAddress decodes a 20-byte hex address with optional 0x prefix.
func ParseAddress(s string) ([20]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return [20]byte{}, fmt.Errorf("config: invalid address %q: %w", s, err)
	}
	if len(raw) != 20 {
		return [20]byte{}, fmt.Errorf("config: address %q must be 20 bytes", s)
	}
	var addr [20]byte
	copy(addr[:], raw)
	return addr, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
