package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "NEWSDESK_CONFIG"
	storePathEnv      = "NEWSDESK_DB_PATH"
	listenAddrEnv     = "NEWSDESK_ADDR"
	textAPIKeyEnv     = "TEXTGEN_API_KEY"
	textBaseURLEnv    = "TEXTGEN_BASE_URL"
	textModelEnv      = "TEXTGEN_MODEL"
	imageEndpointEnv  = "IMAGEGEN_ENDPOINT"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Feeds     []FeedConfig    `yaml:"feeds"`
	TextGen   TextGenConfig   `yaml:"textgen"`
	ImageGen  ImageGenConfig  `yaml:"imagegen"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig describes the operator-facing HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig describes the SQLite database and image directory.
type StoreConfig struct {
	Path      string `yaml:"path"`
	ImagesDir string `yaml:"imagesDir"`
}

// SchedulerConfig defines the recurring ingestion cadence.
type SchedulerConfig struct {
	IntervalMinutes int `yaml:"intervalMinutes"`
	// Enabled is a pointer so that an absent YAML key keeps the default.
	Enabled *bool `yaml:"enabled"`
	// Concurrency bounds parallel enrichment within one batch.
	Concurrency int `yaml:"concurrency"`
}

// IsEnabled resolves the optional enabled flag, defaulting to true.
func (s SchedulerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// FeedConfig describes a single syndication feed to ingest.
type FeedConfig struct {
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Limit int    `yaml:"limit"`
}

// TextGenConfig defines how to contact the text-generation backend
// (any OpenAI-compatible chat-completions endpoint).
type TextGenConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
}

// ImageGenConfig defines how to contact the image-generation backend.
type ImageGenConfig struct {
	Endpoint string `yaml:"endpoint"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
}

// TelegramConfig wires the optional batch-digest channel.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}
	if cfg.Scheduler.IntervalMinutes <= 0 {
		cfg.Scheduler.IntervalMinutes = defaultConfig().Scheduler.IntervalMinutes
	}
	if cfg.Scheduler.Concurrency <= 0 {
		cfg.Scheduler.Concurrency = defaultConfig().Scheduler.Concurrency
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(storePathEnv); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(textAPIKeyEnv); v != "" {
		c.TextGen.APIKey = v
	}
	if v := os.Getenv(textBaseURLEnv); v != "" {
		c.TextGen.BaseURL = v
	}
	if v := os.Getenv(textModelEnv); v != "" {
		c.TextGen.Model = v
	}
	if v := os.Getenv(imageEndpointEnv); v != "" {
		c.ImageGen.Endpoint = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server = override.Server
	}

	if override.Store.Path != "" {
		base.Store.Path = override.Store.Path
	}
	if override.Store.ImagesDir != "" {
		base.Store.ImagesDir = override.Store.ImagesDir
	}

	if override.Scheduler.IntervalMinutes > 0 {
		base.Scheduler.IntervalMinutes = override.Scheduler.IntervalMinutes
	}
	if override.Scheduler.Enabled != nil {
		base.Scheduler.Enabled = override.Scheduler.Enabled
	}
	if override.Scheduler.Concurrency > 0 {
		base.Scheduler.Concurrency = override.Scheduler.Concurrency
	}

	if override.TextGen.BaseURL != "" {
		base.TextGen.BaseURL = override.TextGen.BaseURL
	}
	if override.TextGen.Model != "" {
		base.TextGen.Model = override.TextGen.Model
	}
	if override.TextGen.APIKey != "" {
		base.TextGen.APIKey = override.TextGen.APIKey
	}

	if override.ImageGen.Endpoint != "" {
		base.ImageGen.Endpoint = override.ImageGen.Endpoint
	}
	if override.ImageGen.Width > 0 {
		base.ImageGen.Width = override.ImageGen.Width
	}
	if override.ImageGen.Height > 0 {
		base.ImageGen.Height = override.ImageGen.Height
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChatID != "" {
		base.Telegram.ChatID = override.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Store:  StoreConfig{Path: "newsdesk.db", ImagesDir: "images"},
		Scheduler: SchedulerConfig{
			IntervalMinutes: 30,
			Concurrency:     2,
		},
		Feeds: []FeedConfig{
			{Name: "world", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Limit: 10},
		},
		TextGen: TextGenConfig{
			BaseURL: "http://localhost:11434/v1",
			Model:   "llama3.1",
		},
		ImageGen: ImageGenConfig{
			Endpoint: "http://localhost:7860/generate",
			Width:    512,
			Height:   512,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
