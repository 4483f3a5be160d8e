package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "Asia/Seoul"
	configPathEnv    = "FORTUNE_SCANNER_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	openAIAPIKeyEnv  = "OPENAI_API_KEY"
	openAIModelEnv   = "OPENAI_MODEL"
	openAIBaseURLEnv = "OPENAI_BASE_URL"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
)

// Fetch-failure output policies.
const (
	OnFetchFailurePreserve = "preserve"
	OnFetchFailureErrorDoc = "errordoc"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	OpenAI        OpenAIConfig       `yaml:"openai"`
	Scores        ScoresConfig       `yaml:"scores"`
	Output        OutputConfig       `yaml:"output"`
	Cache         CacheConfig        `yaml:"cache"`
	Policy        PolicyConfig       `yaml:"policy"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig selects log level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the optional run-history Postgres connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig controls daemon mode. Single-shot runs ignore it.
type SchedulerConfig struct {
	Daily    bool           `yaml:"daily"`
	At       string         `yaml:"at"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the configured timezone to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// OpenAIConfig defines how to contact the Responses API.
type OpenAIConfig struct {
	BaseURL        string `yaml:"baseUrl"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"apiKey"`
	SystemPrompt   string `yaml:"systemPrompt"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	RateDelayMS    int    `yaml:"rateDelayMs"`
}

// ScoresConfig points at the optional detail-score service. Empty URL means
// fixed default scores.
type ScoresConfig struct {
	EndpointURL string `yaml:"endpointUrl"`
	APIKey      string `yaml:"apiKey"`
}

// OutputConfig describes the published document.
type OutputConfig struct {
	Path           string `yaml:"path"`
	Source         string `yaml:"source"`
	OnFetchFailure string `yaml:"onFetchFailure"`
}

// CacheConfig describes the enrichment cache file.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// PolicyConfig exposes the run-level policy choices explicitly.
type PolicyConfig struct {
	StrictEnrichment  bool `yaml:"strictEnrichment"`
	AllowUnknownSigns bool `yaml:"allowUnknownSigns"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send run reports.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SiteConfig describes one ranking source with its scanner strategy. Sites
// are tried in order; the first successful scan wins.
type SiteConfig struct {
	Name    string            `yaml:"name"`
	Scanner string            `yaml:"scanner"`
	URL     string            `yaml:"url"`
	Options map[string]string `yaml:"options"`
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
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}

	if v := os.Getenv(openAIBaseURLEnv); v != "" {
		c.OpenAI.BaseURL = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	base.Scheduler.Daily = override.Scheduler.Daily
	if override.Scheduler.At != "" {
		base.Scheduler.At = override.Scheduler.At
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.OpenAI.BaseURL != "" {
		base.OpenAI.BaseURL = override.OpenAI.BaseURL
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.SystemPrompt != "" {
		base.OpenAI.SystemPrompt = override.OpenAI.SystemPrompt
	}
	if override.OpenAI.TimeoutSeconds > 0 {
		base.OpenAI.TimeoutSeconds = override.OpenAI.TimeoutSeconds
	}
	if override.OpenAI.RateDelayMS > 0 {
		base.OpenAI.RateDelayMS = override.OpenAI.RateDelayMS
	}

	if override.Scores.EndpointURL != "" {
		base.Scores = override.Scores
	}

	if override.Output.Path != "" {
		base.Output.Path = override.Output.Path
	}
	if override.Output.Source != "" {
		base.Output.Source = override.Output.Source
	}
	if override.Output.OnFetchFailure != "" {
		base.Output.OnFetchFailure = override.Output.OnFetchFailure
	}

	if override.Cache.Path != "" {
		base.Cache.Path = override.Cache.Path
	}

	base.Policy = override.Policy

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{DSN: ""},
		Scheduler: SchedulerConfig{Daily: false, At: "07:00", Timezone: defaultTimezone, location: tz},
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			APIKey:         "",
			SystemPrompt:   "",
			TimeoutSeconds: 60,
			RateDelayMS:    200,
		},
		Scores: ScoresConfig{EndpointURL: "", APIKey: ""},
		Output: OutputConfig{
			Path:           "public/fortune.json",
			Source:         "asahi_ohaasa",
			OnFetchFailure: OnFetchFailurePreserve,
		},
		Cache:  CacheConfig{Path: "cache/openai_cache.json"},
		Policy: PolicyConfig{StrictEnrichment: false, AllowUnknownSigns: false},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Sites: []SiteConfig{
			{
				Name:    "ohaasa",
				Scanner: "ohaasa",
				URL:     "https://www.asahi.com/uranai/12seiza/",
			},
		},
	}
}
