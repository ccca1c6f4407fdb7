package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
logging:
  level: debug
scheduler:
  interval: 24h
  timezone: Local
llm:
  provider: openai
  model: gpt-4o-mini
newsletter:
  recipient: reader@example.com
  subject: Weekly
categories:
  - id: research
    name_en: Research
    name_zh: 研究
    search_keywords: AI research
    items_count: 2
`

func clearSecrets(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "SERPER_API_KEY", "SMTP_HOST",
		"SMTP_USERNAME", "SMTP_PASSWORD", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"NEWSLETTER_RECIPIENT", "LLM_MODEL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	clearSecrets(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("SERPER_API_KEY", "serper-key")
	t.Setenv("SMTP_USERNAME", "bot@example.com")
	t.Setenv("SMTP_PASSWORD", "secret")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "Local", cfg.Scheduler.Location().String())

	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "sk-openai", cfg.LLM.APIKey)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.LLM.Endpoint)
	assert.Equal(t, 8000, cfg.LLM.MaxTokens, "unset keys keep their defaults")

	assert.Equal(t, "serper-key", cfg.Search.APIKey)
	assert.Equal(t, 10, cfg.Search.Results)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
	assert.Equal(t, "bot@example.com", cfg.SMTP.From)
	assert.Equal(t, "secret", cfg.SMTP.Password)
	assert.Equal(t, "data/sent_articles.json", cfg.History.Path)

	require.Len(t, cfg.Categories, 1)
	cats := cfg.DomainCategories()
	assert.Equal(t, "research", cats[0].ID)
	assert.Equal(t, "研究", cats[0].NameZH)
	assert.Equal(t, 2, cats[0].ItemsCount)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearSecrets(t)
	t.Setenv("NEWSLETTER_RECIPIENT", "override@example.com")
	t.Setenv("LLM_MODEL", "claude-test")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(writeConfig(t, "llm:\n  provider: anthropic\n"))
	require.NoError(t, err)

	assert.Equal(t, "override@example.com", cfg.Newsletter.Recipient)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "token", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Len(t, cfg.Categories, 3, "default categories apply when the file names none")

	t.Setenv("LLM_MODEL", "")
	cfg, err = Load(writeConfig(t, "llm:\n  provider: openai\nnewsletter:\n  recipient: a@example.com\n"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model, "claude default is not sent to an OpenAI endpoint")
	assert.Equal(t, "UTC", cfg.Scheduler.Location().String())
}

func TestLoadErrors(t *testing.T) {
	clearSecrets(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "categories: [unterminated"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "llm:\n  provider: anthropic\n"))
	require.ErrorContains(t, err, "newsletter.recipient")
}

func TestReadSkipsValidation(t *testing.T) {
	clearSecrets(t)

	cfg, err := Read(writeConfig(t, "history:\n  path: /var/lib/ainewsletter/sent.json\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Newsletter.Recipient)
	assert.Equal(t, "/var/lib/ainewsletter/sent.json", cfg.History.Path)
	require.Error(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		cfg := defaultConfig()
		cfg.Newsletter.Recipient = "reader@example.com"
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no categories", func(c *Config) { c.Categories = nil }, "at least one category"},
		{"missing id", func(c *Config) { c.Categories[0].ID = " " }, "id is required"},
		{"duplicate id", func(c *Config) { c.Categories[1].ID = c.Categories[0].ID }, "duplicate id"},
		{"missing keywords", func(c *Config) { c.Categories[0].Keywords = "" }, "search_keywords"},
		{"zero items", func(c *Config) { c.Categories[0].ItemsCount = 0 }, "items_count"},
		{"no recipient", func(c *Config) { c.Newsletter.Recipient = "" }, "recipient"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "bard" }, "not supported"},
		{"no results", func(c *Config) { c.Search.Results = 0 }, "search.results"},
		{"no history path", func(c *Config) { c.History.Path = "" }, "history.path"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tc.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("AINEWSLETTER_TEST_KEEP", "from-shell")
	os.Unsetenv("AINEWSLETTER_TEST_NEW")
	t.Cleanup(func() { os.Unsetenv("AINEWSLETTER_TEST_NEW") })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AINEWSLETTER_TEST_KEEP=from-file\nAINEWSLETTER_TEST_NEW=loaded\n"), 0o600))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-shell", os.Getenv("AINEWSLETTER_TEST_KEEP"))
	assert.Equal(t, "loaded", os.Getenv("AINEWSLETTER_TEST_NEW"))

	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
	require.NoError(t, LoadEnvFile(""))
}

func TestResolvePath(t *testing.T) {
	t.Setenv(PathEnv, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))

	t.Setenv(PathEnv, "/etc/ainewsletter.yaml")
	assert.Equal(t, "/etc/ainewsletter.yaml", ResolvePath(""))
	assert.Equal(t, "custom.yaml", ResolvePath(" custom.yaml "))
}
