package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv        = "MENTION_SCANNER_CONFIG"
	dotenvPathEnv        = "MENTION_SCANNER_DOTENV"
	databaseDriverEnv    = "DATABASE_DRIVER"
	databaseDSNEnv       = "DATABASE_DSN"
	openAIAPIKeyEnv      = "OPENAI_API_KEY"
	openAIModelEnv       = "OPENAI_MODEL"
	openAIEndpointEnv    = "OPENAI_ENDPOINT"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramPollingEnv   = "TELEGRAM_POLLING"
	telegramIntervalEnv  = "TELEGRAM_POLL_INTERVAL"
	telegramAlertChatEnv = "TELEGRAM_ALERT_CHAT_ID"
	httpAddrEnv          = "HTTP_ADDR"
	logLevelEnv          = "LOG_LEVEL"
	logFormatEnv         = "LOG_FORMAT"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	ExtractorModeSelectors   = "selectors"
	ExtractorModeReadability = "readability"
)

// ErrMissingAPIKey is the startup precondition failure for the completion backend.
var ErrMissingAPIKey = errors.New("completion api key is not set (OPENAI_API_KEY)")

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	HTTP      HTTPConfig      `yaml:"http"`
	ChatGPT   ChatGPTConfig   `yaml:"chatgpt"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Keywords  []string        `yaml:"keywords"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the article store connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// HTTPConfig configures the read/trigger API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// ChatGPTConfig defines how to contact the completion API.
type ChatGPTConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	MaxTokens    int           `yaml:"maxTokens"`
	JSONMode     bool          `yaml:"jsonMode"`
	Timeout      time.Duration `yaml:"timeout"`
}

// TelegramConfig wires the bot used for polling and alerts.
type TelegramConfig struct {
	BotToken           string        `yaml:"botToken"`
	APIBase            string        `yaml:"apiBase"`
	Polling            bool          `yaml:"polling"`
	PollInterval       time.Duration `yaml:"pollInterval"`
	LongPollTimeout    time.Duration `yaml:"longPollTimeout"`
	BatchLimit         int           `yaml:"batchLimit"`
	AlertChatID        string        `yaml:"alertChatId"`
	AlertMinConfidence float64       `yaml:"alertMinConfidence"`
}

// PollerEnabled reports whether a chat poller should run at all.
func (t TelegramConfig) PollerEnabled() bool {
	return t.BotToken != "" && t.Polling
}

// AlertsEnabled reports whether claimed operations are forwarded to a chat.
func (t TelegramConfig) AlertsEnabled() bool {
	return t.BotToken != "" && t.AlertChatID != ""
}

// IngestionConfig drives the feed crawl.
type IngestionConfig struct {
	Feeds             []string      `yaml:"feeds"`
	MaxEntriesPerFeed int           `yaml:"maxEntriesPerFeed"`
	PacingDelay       time.Duration `yaml:"pacingDelay"`
	Interval          time.Duration `yaml:"interval"`
}

// ExtractorConfig tunes page fetching and text extraction.
type ExtractorConfig struct {
	Mode          string        `yaml:"mode"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxChars      int           `yaml:"maxChars"`
	UserAgent     string        `yaml:"userAgent"`
	RespectRobots bool          `yaml:"respectRobots"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	loadDotenv()

	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if parsed, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = parsed
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()

	return cfg
}

// Parse decodes YAML on top of the defaults; absent keys keep their default.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// Validate is the startup precondition check.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ChatGPT.APIKey) == "" {
		return ErrMissingAPIKey
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Extractor.Mode {
	case ExtractorModeSelectors, ExtractorModeReadability:
	default:
		return fmt.Errorf("unsupported extractor mode %q", c.Extractor.Mode)
	}
	return nil
}

func loadDotenv() {
	path := os.Getenv(dotenvPathEnv)
	if path == "" {
		path = ".env"
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: skipping %s: %v", path, err)
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
	if v := os.Getenv(openAIEndpointEnv); v != "" {
		c.ChatGPT.Endpoint = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramPollingEnv); v != "" {
		c.Telegram.Polling = strings.TrimSpace(v) == "1"
	}
	if v := os.Getenv(telegramIntervalEnv); v != "" {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && secs > 0 {
			c.Telegram.PollInterval = time.Duration(secs * float64(time.Second))
		} else {
			log.Printf("config: ignoring invalid %s=%q", telegramIntervalEnv, v)
		}
	}
	if v := os.Getenv(telegramAlertChatEnv); v != "" {
		c.Telegram.AlertChatID = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = v
	}
}

// normalize restores defaults for zeroed numeric knobs.
func (c *Config) normalize() {
	def := Default()

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
	}
	c.Extractor.Mode = strings.ToLower(strings.TrimSpace(c.Extractor.Mode))
	if c.Extractor.Mode == "" {
		c.Extractor.Mode = def.Extractor.Mode
	}
	if c.Extractor.Timeout <= 0 {
		c.Extractor.Timeout = def.Extractor.Timeout
	}
	if c.Extractor.MaxChars <= 0 {
		c.Extractor.MaxChars = def.Extractor.MaxChars
	}
	if c.Extractor.UserAgent == "" {
		c.Extractor.UserAgent = def.Extractor.UserAgent
	}
	if c.ChatGPT.MaxTokens <= 0 {
		c.ChatGPT.MaxTokens = def.ChatGPT.MaxTokens
	}
	if c.ChatGPT.Timeout <= 0 {
		c.ChatGPT.Timeout = def.ChatGPT.Timeout
	}
	if c.Telegram.PollInterval <= 0 {
		c.Telegram.PollInterval = def.Telegram.PollInterval
	}
	if c.Telegram.LongPollTimeout <= 0 {
		c.Telegram.LongPollTimeout = def.Telegram.LongPollTimeout
	}
	if c.Telegram.BatchLimit <= 0 {
		c.Telegram.BatchLimit = def.Telegram.BatchLimit
	}
	if c.Ingestion.MaxEntriesPerFeed <= 0 {
		c.Ingestion.MaxEntriesPerFeed = def.Ingestion.MaxEntriesPerFeed
	}
	if c.Ingestion.PacingDelay < 0 {
		c.Ingestion.PacingDelay = 0
	}
	if len(c.Ingestion.Feeds) == 0 {
		c.Ingestion.Feeds = def.Ingestion.Feeds
	}
	if len(c.Keywords) == 0 {
		c.Keywords = def.Keywords
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "file:data/feeds.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"},
		HTTP:     HTTPConfig{Addr: ":5000"},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are accurate and concise.",
			MaxTokens:    400,
			JSONMode:     true,
			Timeout:      60 * time.Second,
		},
		Telegram: TelegramConfig{
			APIBase:            "https://api.telegram.org",
			Polling:            true,
			PollInterval:       5 * time.Second,
			LongPollTimeout:    20 * time.Second,
			BatchLimit:         50,
			AlertMinConfidence: 0.7,
		},
		Ingestion: IngestionConfig{
			Feeds: []string{
				"https://www.wired.com/feed/category/security/latest/rss",
				"https://krebsonsecurity.com/feed/",
				"https://nakedsecurity.sophos.com/feed/",
				"https://www.zdnet.com/topic/security/rss.xml",
			},
			MaxEntriesPerFeed: 10,
			PacingDelay:       time.Second,
		},
		Extractor: ExtractorConfig{
			Mode:      ExtractorModeSelectors,
			Timeout:   10 * time.Second,
			MaxChars:  25000,
			UserAgent: "HackAwarenessBot/1.0 (+https://example.local/)",
		},
		Keywords: []string{
			"anonymous", "op unite", "opunite", "op unity", "opunity",
			"op israel", "op russia", "op paris", "opwiki", "ophack",
			"operation anonymous", "claimed operation", "hacktivism", "hacktiviste",
		},
	}
}
