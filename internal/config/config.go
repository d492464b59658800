package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	Port           string `yaml:"port"`
	DatabaseDriver string `yaml:"database_driver"`
	DatabasePath   string `yaml:"database_path"`
	DatabaseURL    string `yaml:"database_url"`
	SessionSecret  string `yaml:"session_secret"`
	GinMode        string `yaml:"gin_mode"`
	CredentialKey  string `yaml:"credential_key"`

	LLMAdapter            string  `yaml:"llm_adapter"`
	SearchConsoleEndpoint string  `yaml:"search_console_endpoint"`
	SearchConsoleRPS      float64 `yaml:"search_console_rps"`
	SyncIsolateRowErrors  bool    `yaml:"sync_isolate_row_errors"`

	SchedulerEnabled     bool `yaml:"scheduler_enabled"`
	SchedulerConcurrency int  `yaml:"scheduler_concurrency"`
	SchedulerMaxAttempts int  `yaml:"scheduler_max_attempts"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load 读取 CONFIG_FILE 指向的 YAML（可选），再用环境变量覆盖，并为缺失项提供默认值。
func Load() (AppConfig, error) {
	var cfg AppConfig

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	overrideString(&cfg.Port, "PORT")
	overrideString(&cfg.ListenAddr, "LISTEN_ADDR")
	overrideString(&cfg.DatabaseDriver, "DATABASE_DRIVER")
	overrideString(&cfg.DatabasePath, "DATABASE_PATH")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.SessionSecret, "SESSION_SECRET")
	overrideString(&cfg.GinMode, "GIN_MODE")
	overrideString(&cfg.CredentialKey, "CREDENTIAL_KEY")
	overrideString(&cfg.LLMAdapter, "LLM_ADAPTER")
	overrideString(&cfg.SearchConsoleEndpoint, "SEARCH_CONSOLE_ENDPOINT")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.LogFormat, "LOG_FORMAT")

	if err := overrideFloat(&cfg.SearchConsoleRPS, "SEARCH_CONSOLE_RPS"); err != nil {
		return AppConfig{}, err
	}
	if err := overrideBool(&cfg.SyncIsolateRowErrors, "SYNC_ISOLATE_ROW_ERRORS"); err != nil {
		return AppConfig{}, err
	}
	if err := overrideBool(&cfg.SchedulerEnabled, "SCHEDULER_ENABLED"); err != nil {
		return AppConfig{}, err
	}
	if err := overrideInt(&cfg.SchedulerConcurrency, "SCHEDULER_CONCURRENCY"); err != nil {
		return AppConfig{}, err
	}
	if err := overrideInt(&cfg.SchedulerMaxAttempts, "SCHEDULER_MAX_ATTEMPTS"); err != nil {
		return AppConfig{}, err
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = fmt.Sprintf(":%s", cfg.Port)
	}
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = "sqlite"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "clientdash.db"
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "clientdash-dev-secret"
	}
	if cfg.GinMode == "" {
		cfg.GinMode = "release"
	}
	if cfg.CredentialKey == "" {
		cfg.CredentialKey = "clientdash-dev-credential-key"
	}
	if cfg.LLMAdapter == "" {
		cfg.LLMAdapter = "monitoring"
	}
	if cfg.SearchConsoleRPS == 0 {
		cfg.SearchConsoleRPS = 5
	}
	if cfg.SchedulerConcurrency <= 0 {
		cfg.SchedulerConcurrency = 4
	}
	if cfg.SchedulerMaxAttempts <= 0 {
		cfg.SchedulerMaxAttempts = 3
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
}

// DSN 返回当前驱动对应的连接串。
func (c AppConfig) DSN() string {
	if c.DatabaseDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DatabasePath
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
	*dst = strings.TrimSpace(*dst)
}

func overrideBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func overrideInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func overrideFloat(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
