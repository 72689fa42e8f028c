package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`
	HTTP struct {
		Addr            string `koanf:"addr"`
		ShutdownTimeout int    `koanf:"shutdown_timeout"`
	} `koanf:"http"`
	Content struct {
		Dir     string `koanf:"dir"`
		Dataset string `koanf:"dataset"`
		CMS     struct {
			URL       string `koanf:"url"`
			ProjectID string `koanf:"project_id"`
			Token     string `koanf:"token"`
			Timeout   int    `koanf:"timeout"`
		} `koanf:"cms"`
	} `koanf:"content"`
	Kafka struct {
		Enabled bool     `koanf:"enabled"`
		Brokers []string `koanf:"brokers"`
		Topic   struct {
			Name       string `koanf:"name"`
			Partitions int    `koanf:"partitions"`
		} `koanf:"topic"`
		ConsumerGroup string `koanf:"consumer_group"`
		Retry         struct {
			Max     int `koanf:"max"`
			Backoff int `koanf:"backoff"`
		} `koanf:"retry"`
		// PublishInterval paces ingestion, in milliseconds between events.
		PublishInterval int `koanf:"publish_interval"`
	} `koanf:"kafka"`
	Opensearch struct {
		Enabled    bool     `koanf:"enabled"`
		URLs       []string `koanf:"urls"`
		Username   string   `koanf:"username"`
		Password   string   `koanf:"password"`
		MaxRetries int      `koanf:"max_retries"`
		Index      struct {
			Prefix        string `koanf:"prefix"`
			BuffSize      int    `koanf:"buff_size"`
			FlushInterval int    `koanf:"flush_interval"`
		} `koanf:"index"`
	} `koanf:"opensearch"`
}

// Load reads the YAML config at path and fills in defaults for unset values.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadConfig is Load for main: any error is fatal.
func LoadConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("config")
	}
	return cfg
}

// CMSConfigured reports whether a real CMS project is set up.
func (c *Config) CMSConfigured() bool {
	cms := c.Content.CMS
	return cms.URL != "" && cms.ProjectID != "" && cms.ProjectID != "your-project-id"
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10
	}
	if c.Content.Dir == "" {
		c.Content.Dir = "content"
	}
	if c.Content.Dataset == "" {
		c.Content.Dataset = "production"
	}
	if c.Content.CMS.Timeout <= 0 {
		c.Content.CMS.Timeout = 10
	}
	if c.Kafka.Topic.Name == "" {
		c.Kafka.Topic.Name = "site-content"
	}
	if c.Kafka.ConsumerGroup == "" {
		c.Kafka.ConsumerGroup = "site-search"
	}
	if c.Kafka.PublishInterval <= 0 {
		c.Kafka.PublishInterval = 100
	}
	if c.Opensearch.Index.Prefix == "" {
		c.Opensearch.Index.Prefix = "site"
	}
	if c.Opensearch.Index.BuffSize <= 0 {
		c.Opensearch.Index.BuffSize = 100
	}
	if c.Opensearch.Index.FlushInterval <= 0 {
		c.Opensearch.Index.FlushInterval = 5
	}
}
