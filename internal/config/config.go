// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CollectorConfig representa a configuração completa do b3-collectord.
type CollectorConfig struct {
	MarketData MarketDataInfo `yaml:"market_data"`
	Quotes     QuotesInfo     `yaml:"quotes"`
	ContentDir string         `yaml:"content_dir"`
	Schedule   ScheduleInfo   `yaml:"schedule"`
	Tuning     TuningInfo     `yaml:"tuning"`
	Archive    ArchiveInfo    `yaml:"archive"`
	Logging    LoggingInfo    `yaml:"logging"`
	Secrets    SecretsInfo    `yaml:"secrets"`
}

// MarketDataInfo identifica o servidor de cotações em tempo real e os nomes
// dos segredos que resolvem usuário e senha de autenticação.
type MarketDataInfo struct {
	Address        string `yaml:"address"`
	UsernameSecret string `yaml:"username_secret"`
	PasswordSecret string `yaml:"password_secret"`
}

// QuotesInfo contém os parâmetros do download anual do histórico de cotações.
type QuotesInfo struct {
	URLTemplate  string `yaml:"url_template"`
	ResourcesDir string `yaml:"resources_dir"`
}

// ScheduleInfo contém a cadência do scheduler (dias úteis ou diário) e os
// horários de início/fim da ingestão.
type ScheduleInfo struct {
	Interval  string `yaml:"interval"` // "weekdays" | "daily"
	StartTime string `yaml:"start_time"`
	StopTime  string `yaml:"stop_time"`
}

// TuningInfo contém as constantes ajustáveis do Collector (ver spec §6).
type TuningInfo struct {
	NumWriters        int           `yaml:"num_writers"`
	BatchSize         int           `yaml:"batch_size"`
	MaxBufferSize     int           `yaml:"max_buffer_size"`
	FlushInterval     time.Duration `yaml:"flush_interval"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	MaxRetries        int           `yaml:"max_retries"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	SubscriptionChunk int           `yaml:"subscription_chunk"`
	SubscriptionPause time.Duration `yaml:"subscription_pause"`
	ReadBufferSize    int           `yaml:"read_buffer_size"`
}

// ArchiveInfo contém os nomes dos segredos de blob storage e a política de
// retry do upload.
type ArchiveInfo struct {
	AccountSecret   string        `yaml:"account_secret"`
	ContainerSecret string        `yaml:"container_secret"`
	KeySecret       string        `yaml:"key_secret"`
	RetryCount      int           `yaml:"retry_count"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	UploadTimeout   time.Duration `yaml:"upload_timeout"`
}

// LoggingInfo contém configurações de logging.
type LoggingInfo struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
	// SessionDir, when non-empty, gives every ingestion start (a scheduled
	// run or a b3-collectorctl run-once, reconnects included) its own
	// debug-level log file under {SessionDir}/b3-collector/{sessionID}.log,
	// in addition to the base logger. The file receives what is logged
	// through that run's session logger; the daemon's Collector logs to the
	// base logger, so its shard/subscriber lines do not reach the file.
	// Empty disables per-run session logs.
	SessionDir string `yaml:"session_dir"`
}

// SecretsInfo seleciona e configura o Secret Provider.
type SecretsInfo struct {
	Provider string `yaml:"provider"` // "env" | "file"
	FilePath string `yaml:"file_path"`
}

// LoadCollectorConfig lê e valida o arquivo YAML de configuração do collector.
func LoadCollectorConfig(path string) (*CollectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading collector config: %w", err)
	}

	var cfg CollectorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing collector config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating collector config: %w", err)
	}

	return &cfg, nil
}

func (c *CollectorConfig) validate() error {
	if c.MarketData.Address == "" {
		return fmt.Errorf("market_data.address is required")
	}
	if c.MarketData.UsernameSecret == "" {
		return fmt.Errorf("market_data.username_secret is required")
	}
	if c.MarketData.PasswordSecret == "" {
		return fmt.Errorf("market_data.password_secret is required")
	}

	if c.Quotes.URLTemplate == "" {
		c.Quotes.URLTemplate = "https://bvmf.bmfbovespa.com.br/InstDados/SerHist/COTAHIST_A{year}.ZIP"
	}
	if c.Quotes.ResourcesDir == "" {
		c.Quotes.ResourcesDir = "./resources"
	}
	if c.ContentDir == "" {
		c.ContentDir = "./content"
	}

	switch c.Schedule.Interval {
	case "":
		c.Schedule.Interval = "weekdays"
	case "weekdays", "daily":
	default:
		return fmt.Errorf("schedule.interval must be \"weekdays\" or \"daily\", got %q", c.Schedule.Interval)
	}
	if c.Schedule.StartTime == "" {
		c.Schedule.StartTime = "11:00"
	}
	if c.Schedule.StopTime == "" {
		c.Schedule.StopTime = "22:00"
	}
	if _, err := parseClock(c.Schedule.StartTime); err != nil {
		return fmt.Errorf("schedule.start_time: %w", err)
	}
	if _, err := parseClock(c.Schedule.StopTime); err != nil {
		return fmt.Errorf("schedule.stop_time: %w", err)
	}

	if c.Tuning.NumWriters <= 0 {
		c.Tuning.NumWriters = 20
	}
	if c.Tuning.BatchSize <= 0 {
		c.Tuning.BatchSize = 10000
	}
	if c.Tuning.MaxBufferSize <= 0 {
		c.Tuning.MaxBufferSize = 1000000
	}
	if c.Tuning.FlushInterval <= 0 {
		c.Tuning.FlushInterval = 300 * time.Second
	}
	if c.Tuning.RetryInterval <= 0 {
		c.Tuning.RetryInterval = 5 * time.Second
	}
	if c.Tuning.MaxRetries <= 0 {
		c.Tuning.MaxRetries = 10
	}
	if c.Tuning.ReconnectDelay <= 0 {
		c.Tuning.ReconnectDelay = 10 * time.Second
	}
	if c.Tuning.SubscriptionChunk <= 0 {
		c.Tuning.SubscriptionChunk = 5000
	}
	if c.Tuning.SubscriptionPause <= 0 {
		c.Tuning.SubscriptionPause = 5 * time.Second
	}
	if c.Tuning.ReadBufferSize <= 0 {
		c.Tuning.ReadBufferSize = 16 * 1024
	}

	if c.Archive.AccountSecret == "" {
		return fmt.Errorf("archive.account_secret is required")
	}
	if c.Archive.ContainerSecret == "" {
		return fmt.Errorf("archive.container_secret is required")
	}
	if c.Archive.KeySecret == "" {
		return fmt.Errorf("archive.key_secret is required")
	}
	if c.Archive.RetryCount <= 0 {
		c.Archive.RetryCount = 30
	}
	if c.Archive.RetryDelay <= 0 {
		c.Archive.RetryDelay = 1 * time.Second
	}
	if c.Archive.UploadTimeout <= 0 {
		c.Archive.UploadTimeout = 20 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	switch c.Secrets.Provider {
	case "":
		c.Secrets.Provider = "env"
	case "env":
	case "file":
		if c.Secrets.FilePath == "" {
			return fmt.Errorf("secrets.file_path is required when secrets.provider is \"file\"")
		}
	default:
		return fmt.Errorf("secrets.provider must be \"env\" or \"file\", got %q", c.Secrets.Provider)
	}

	return nil
}

// parseClock valida um horário "HH:MM".
func parseClock(s string) (time.Time, error) {
	return time.Parse("15:04", s)
}
