package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"AINewsletter/internal/domain"
)

const (
	defaultTimezone = "UTC"
	// PathEnv overrides the config file location when no flag is given.
	PathEnv = "AINEWSLETTER_CONFIG"
	// DefaultPath is used when neither flag nor environment names a file.
	DefaultPath = "config.yaml"

	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Search     SearchConfig     `yaml:"search"`
	LLM        LLMConfig        `yaml:"llm"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Newsletter NewsletterConfig `yaml:"newsletter"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	History    HistoryConfig    `yaml:"history"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Categories []CategoryConfig `yaml:"categories"`
}

// LoggingConfig selects verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig defines how often serve mode runs the pipeline.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// SearchConfig describes the web search provider.
type SearchConfig struct {
	Provider string `yaml:"provider"`
	Endpoint string `yaml:"endpoint"`
	Results  int    `yaml:"results"`
	APIKey   string `yaml:"-"`
}

// LLMConfig defines how to contact the summarization model.
type LLMConfig struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	Endpoint     string `yaml:"endpoint"`
	MaxTokens    int    `yaml:"maxTokens"`
	SystemPrompt string `yaml:"systemPrompt"`
	APIKey       string `yaml:"-"`
}

// SMTPConfig wires the outgoing mail server.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"-"`
	Password string `yaml:"-"`
}

// NewsletterConfig describes the delivered message.
type NewsletterConfig struct {
	Recipient  string `yaml:"recipient"`
	Subject    string `yaml:"subject"`
	SenderName string `yaml:"sender_name"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// HistoryConfig locates the delivered-article history file.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// ArchiveConfig enables the optional SQLite delivery archive.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// CategoryConfig is one newsletter section.
type CategoryConfig struct {
	ID         string `yaml:"id"`
	NameEN     string `yaml:"name_en"`
	NameZH     string `yaml:"name_zh"`
	Keywords   string `yaml:"search_keywords"`
	ItemsCount int    `yaml:"items_count"`
}

// secrets are only ever read from the environment.
type secrets struct {
	AnthropicAPIKey  string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	SerperAPIKey     string `envconfig:"SERPER_API_KEY"`
	SMTPHost         string `envconfig:"SMTP_HOST"`
	SMTPUsername     string `envconfig:"SMTP_USERNAME"`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
	Recipient        string `envconfig:"NEWSLETTER_RECIPIENT"`
	LLMModel         string `envconfig:"LLM_MODEL"`
	LogLevel         string `envconfig:"LOG_LEVEL"`
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file without overriding
// variables already present. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ResolvePath picks the config file: explicit flag, then environment, then default.
func ResolvePath(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(PathEnv)); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads YAML configuration over the defaults, applies secrets from
// the environment and validates the result. A missing default file is
// tolerated; a missing explicit file or an invalid document is an error.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Read is Load without validation, for commands that only inspect local
// state such as the history file.
func Read(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
		log.Printf("config: %s not found, using defaults", path)
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	cfg.bindTimezone()
	cfg.applyFallbacks()
	return cfg, nil
}

// Validate checks the settings a run cannot do without.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	seen := make(map[string]struct{}, len(c.Categories))
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.ID) == "" {
			return fmt.Errorf("categories[%d]: id is required", i)
		}
		if _, dup := seen[cat.ID]; dup {
			return fmt.Errorf("categories[%d]: duplicate id %q", i, cat.ID)
		}
		seen[cat.ID] = struct{}{}
		if strings.TrimSpace(cat.Keywords) == "" {
			return fmt.Errorf("category %s: search_keywords is required", cat.ID)
		}
		if cat.ItemsCount < 1 {
			return fmt.Errorf("category %s: items_count must be >= 1", cat.ID)
		}
	}
	if strings.TrimSpace(c.Newsletter.Recipient) == "" {
		return fmt.Errorf("newsletter.recipient is required")
	}
	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	if c.Search.Results < 1 {
		return fmt.Errorf("search.results must be >= 1")
	}
	if strings.TrimSpace(c.History.Path) == "" {
		return fmt.Errorf("history.path is required")
	}
	return nil
}

// DomainCategories converts configured sections into domain categories.
func (c Config) DomainCategories() []domain.Category {
	categories := make([]domain.Category, 0, len(c.Categories))
	for _, cat := range c.Categories {
		categories = append(categories, domain.Category{
			ID:         cat.ID,
			NameEN:     cat.NameEN,
			NameZH:     cat.NameZH,
			Keywords:   cat.Keywords,
			ItemsCount: cat.ItemsCount,
		})
	}
	return categories
}

func (c *Config) applyEnvOverrides() error {
	var s secrets
	if err := envconfig.Process("", &s); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	c.Search.APIKey = s.SerperAPIKey
	switch c.LLM.Provider {
	case ProviderOpenAI:
		c.LLM.APIKey = s.OpenAIAPIKey
	default:
		c.LLM.APIKey = s.AnthropicAPIKey
	}
	if s.LLMModel != "" {
		c.LLM.Model = s.LLMModel
	}

	if s.SMTPHost != "" {
		c.SMTP.Host = s.SMTPHost
	}
	c.SMTP.Username = s.SMTPUsername
	c.SMTP.Password = s.SMTPPassword

	if s.TelegramBotToken != "" {
		c.Telegram.BotToken = s.TelegramBotToken
	}
	if s.TelegramChatID != "" {
		c.Telegram.ChatID = s.TelegramChatID
	}
	if s.Recipient != "" {
		c.Newsletter.Recipient = s.Recipient
	}
	if s.LogLevel != "" {
		c.Logging.Level = s.LogLevel
	}
	return nil
}

func (c *Config) applyFallbacks() {
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.LLM.Provider == ProviderOpenAI {
		if c.LLM.Endpoint == "" {
			c.LLM.Endpoint = "https://api.openai.com/v1/chat/completions"
		}
		if c.LLM.Model == "" || strings.HasPrefix(c.LLM.Model, "claude-") {
			c.LLM.Model = "gpt-4o-mini"
		}
	}
	if c.Scheduler.Interval <= 0 {
		c.Scheduler.Interval = defaultConfig().Scheduler.Interval
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

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{Interval: 7 * 24 * time.Hour, Timezone: defaultTimezone},
		Search: SearchConfig{
			Provider: "serper",
			Endpoint: "https://google.serper.dev/search",
			Results:  10,
		},
		LLM: LLMConfig{
			Provider:     ProviderAnthropic,
			Model:        "claude-sonnet-4-20250514",
			MaxTokens:    8000,
			SystemPrompt: "You are an AI news curator writing a bilingual weekly briefing.",
		},
		SMTP: SMTPConfig{Host: "smtp.gmail.com", Port: 587},
		Newsletter: NewsletterConfig{
			Subject:    "AI Weekly Newsletter | 人工智能周报",
			SenderName: "AI Newsletter",
		},
		History: HistoryConfig{Path: "data/sent_articles.json"},
		Categories: []CategoryConfig{
			{ID: "breakthroughs", NameEN: "AI Breakthroughs", NameZH: "AI突破进展", Keywords: "AI breakthrough research news this week", ItemsCount: 3},
			{ID: "industry", NameEN: "AI Industry", NameZH: "AI产业动态", Keywords: "AI industry funding product launch news", ItemsCount: 3},
			{ID: "policy", NameEN: "AI Policy", NameZH: "AI政策监管", Keywords: "AI regulation policy news", ItemsCount: 2},
		},
	}
}
