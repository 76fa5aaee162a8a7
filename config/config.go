package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type BackendConfig struct {
	URL            string `toml:"url"`
	RequestTimeout string `toml:"request_timeout"`
}

type ChatConfig struct {
	Greeting      string `toml:"greeting,omitempty"`
	GrantGreeting string `toml:"grant_greeting,omitempty"`
}

type UserConfig struct {
	Backend BackendConfig `toml:"backend"`
	Chat    ChatConfig    `toml:"chat"`
}

type Config struct {
	DataDirectory  string
	APIURL         string
	RequestTimeout time.Duration
	Greeting       string
	GrantGreeting  string
}

var DebugLog *log.Logger

const (
	EnvAPIURL  = "GRANTDESK_API_URL"
	EnvDataDir = "GRANTDESK_DATA_DIR"
	EnvTimeout = "GRANTDESK_TIMEOUT"
	EnvDebug   = "GRANTDESK_DEBUG"
)

func (c *Config) BackendURL() string {
	return c.APIURL
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) applyEnvOverrides() error {
	if url := os.Getenv(EnvAPIURL); url != "" {
		c.APIURL = url
	}
	if dataDir := os.Getenv(EnvDataDir); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if timeout := os.Getenv(EnvTimeout); timeout != "" {
		d, err := ParseTimeout(timeout)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.RequestTimeout = d
	}
	return nil
}

// ParseTimeout parses a request timeout such as "90s" or "2m".
// Zero and negative durations are rejected.
func ParseTimeout(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", value)
	}
	return d, nil
}

func CheckDebug() bool {
	debug := os.Getenv(EnvDebug)
	return debug == "true" || debug == "1"
}

// InitDebugLog opens <dataDir>/debug.log when debugging was requested either
// through GRANTDESK_DEBUG or the --verbose flag. DebugLog stays nil otherwise.
func InitDebugLog(dataDir string, verbose bool) {
	if !verbose && !CheckDebug() {
		return
	}

	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: transcripts end up in here
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (%s=%s, verbose=%v) ===", EnvDebug, os.Getenv(EnvDebug), verbose)
	DebugLog.Printf("Log path: %s", logPath)
}

// Load reads settings.toml and <data_dir>/config.toml, creating both from
// templates when missing, then applies environment overrides.
func Load() (*Config, error) {
	defaults := DefaultUserConfig()
	cfg := &Config{
		DataDirectory: DefaultSystemConfig().DataDirectory,
		APIURL:        defaults.Backend.URL,
		Greeting:      defaults.Chat.Greeting,
		GrantGreeting: defaults.Chat.GrantGreeting,
	}
	timeout, err := ParseTimeout(defaults.Backend.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid default request_timeout: %w", err)
	}
	cfg.RequestTimeout = timeout

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	if systemCfg.DataDirectory != "" {
		cfg.DataDirectory = systemCfg.DataDirectory
	}

	// The data directory may be redirected by env before the user config is read.
	if dataDir := os.Getenv(EnvDataDir); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if err := cfg.applyUserConfig(userCfg); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyUserConfig(userCfg *UserConfig) error {
	if userCfg.Backend.URL != "" {
		c.APIURL = userCfg.Backend.URL
	}
	if userCfg.Backend.RequestTimeout != "" {
		d, err := ParseTimeout(userCfg.Backend.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout in user config: %w", err)
		}
		c.RequestTimeout = d
	}
	// An explicitly empty greeting disables it, so these are copied as-is.
	c.Greeting = userCfg.Chat.Greeting
	c.GrantGreeting = userCfg.Chat.GrantGreeting
	return nil
}
