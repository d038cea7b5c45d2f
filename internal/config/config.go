package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NamanSrivas/precious-metals-app/internal/model"
)

const (
	ModeMock = "mock"
	ModeAPI  = "api"
)

// Config holds all application configuration.
type Config struct {
	Refresh struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"refresh"`
	List struct {
		Strategy string `yaml:"strategy"`
		Seed     int64  `yaml:"seed"`
	} `yaml:"list"`
	Oracle struct {
		Mode        string        `yaml:"mode"`
		MinDelay    time.Duration `yaml:"min_delay"`
		MaxDelay    time.Duration `yaml:"max_delay"`
		FailureRate *float64      `yaml:"failure_rate"`
		Seed        int64         `yaml:"seed"`
	} `yaml:"oracle"`
	API struct {
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		Currency string `yaml:"currency"`
	} `yaml:"api"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		StatusCron string `yaml:"status_cron"`
	} `yaml:"schedule"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Metals []model.Metal `yaml:"metals"`
	Proxy  string        `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("METALS_ORACLE_MODE"); v != "" {
		c.Oracle.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("METALS_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("METALS_API_KEY"); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("REFRESH_INTERVAL: %w", err)
		}
		c.Refresh.Interval = d
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	return nil
}

// parseInterval accepts a Go duration ("3s") or plain milliseconds ("3000").
func parseInterval(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

func (c *Config) applyDefaults() {
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = 3 * time.Second
	}
	if c.List.Strategy == "" {
		c.List.Strategy = "sine"
	}
	if c.Oracle.Mode == "" {
		c.Oracle.Mode = ModeMock
	}
	if c.Oracle.MinDelay == 0 && c.Oracle.MaxDelay == 0 {
		c.Oracle.MinDelay = 200 * time.Millisecond
		c.Oracle.MaxDelay = 1000 * time.Millisecond
	}
	if c.Oracle.FailureRate == nil {
		rate := 0.01
		c.Oracle.FailureRate = &rate
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://api.metalpriceapi.com/v1"
	}
	if c.API.Currency == "" {
		c.API.Currency = "USD"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Schedule.StatusCron == "" {
		c.Schedule.StatusCron = "0 * * * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// FailureRate returns the configured mock failure probability.
func (c *Config) FailureRate() float64 {
	if c.Oracle.FailureRate == nil {
		return 0
	}
	return *c.Oracle.FailureRate
}

// TelegramEnabled reports whether alerts should also go to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all fields are usable.
func (c *Config) Validate() error {
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}
	switch c.List.Strategy {
	case "sine", "random":
	default:
		return fmt.Errorf("list.strategy must be sine or random, got %q", c.List.Strategy)
	}
	switch c.Oracle.Mode {
	case ModeMock:
	case ModeAPI:
		if c.API.APIKey == "" {
			return fmt.Errorf("api.api_key is required in api mode")
		}
	default:
		return fmt.Errorf("oracle.mode must be mock or api, got %q", c.Oracle.Mode)
	}
	if c.Oracle.MinDelay < 0 || c.Oracle.MaxDelay < c.Oracle.MinDelay {
		return fmt.Errorf("oracle delays must satisfy 0 <= min_delay <= max_delay")
	}
	if r := c.FailureRate(); r < 0 || r > 1 {
		return fmt.Errorf("oracle.failure_rate must be within [0, 1]")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
