package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecrets = `{
  "telegram_bot_token": "123:abc",
  "telegram_authorized_users": {"Alice": 100, "bob": 200},
  "groq_api_key": "gsk-test"
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	secrets := writeFile(t, dir, "secrets.json", validSecrets)

	cfg, err := Load(filepath.Join(dir, "missing.yaml"), secrets)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Logger.Level)
	assert.Equal(t, DefaultOllamaModel, cfg.Ollama.Model)
	assert.Equal(t, DefaultCloudProvider, cfg.Cloud.Provider)
	assert.Equal(t, DefaultSearchNumResults, cfg.Search.NumResults)
	assert.Equal(t, DefaultSearchTokenLimit, cfg.Search.TokenLimit)
	assert.Equal(t, DefaultPromptChat, cfg.Prompts.Chat)
	assert.Equal(t, DefaultEditInterval, cfg.Stream.EditInterval)
	assert.Equal(t, DefaultMessages, cfg.Messages)
	assert.Equal(t, DefaultTodoScopes, cfg.Todo.Scopes)
	assert.Equal(t, "123:abc", cfg.Secrets.TelegramBotToken)
	assert.Equal(t, "gsk-test", cfg.Secrets.GroqAPIKey)

	maintenance := cfg.Scheduler.Tasks[DefaultMaintenance]
	assert.True(t, maintenance.Enabled)
	assert.Equal(t, DefaultVacuumEvery, maintenance.Interval)
	assert.False(t, cfg.Scheduler.Tasks[DefaultDigestTask].Enabled)
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	secrets := writeFile(t, dir, "secrets.json", validSecrets)
	cfgPath := writeFile(t, dir, "config.yaml", `
logger:
  level: debug
  json: true
ollama:
  model: mistral
search:
  num_results: 3
  token_limit: 50
  timeout: 10s
messages:
  welcome: "hi there"
todo:
  client_id: app-1
  recipient: alice
  include_tasks: true
scheduler:
  tasks:
    daily_digest:
      enabled: true
      schedule: "0 8 * * *"
`)

	cfg, err := Load(cfgPath, secrets)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Logger.JSON)
	assert.Equal(t, "mistral", cfg.Ollama.Model)
	assert.Equal(t, 3, cfg.Search.NumResults)
	assert.Equal(t, 50, cfg.Search.TokenLimit)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "hi there", cfg.Messages.Welcome)
	assert.Equal(t, DefaultMessages.Help, cfg.Messages.Help)
	assert.True(t, cfg.Todo.IncludeTasks)

	digest := cfg.Scheduler.Tasks[DefaultDigestTask]
	assert.True(t, digest.Enabled)
	assert.Equal(t, "0 8 * * *", digest.Schedule)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	secrets := writeFile(t, dir, "secrets.json", validSecrets)
	t.Setenv("ORBIE_OLLAMA_MODEL", "phi3")
	t.Setenv("ORBIE_GROQ_API_KEY", "gsk-env")

	cfg, err := Load(filepath.Join(dir, "missing.yaml"), secrets)
	require.NoError(t, err)
	assert.Equal(t, "phi3", cfg.Ollama.Model)
	assert.Equal(t, "gsk-env", cfg.Secrets.GroqAPIKey)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		secrets string
		errText string
	}{
		{
			name:    "missing token",
			secrets: `{"telegram_authorized_users": {"alice": 100}, "groq_api_key": "k"}`,
			errText: "TelegramBotToken",
		},
		{
			name:    "no authorized users",
			secrets: `{"telegram_bot_token": "t", "groq_api_key": "k"}`,
			errText: "AuthorizedUsers",
		},
		{
			name:    "groq without key",
			secrets: `{"telegram_bot_token": "t", "telegram_authorized_users": {"alice": 100}}`,
			errText: "GROQ_API_KEY",
		},
		{
			name:    "gemini without key",
			config:  "cloud:\n  provider: gemini\n",
			secrets: validSecrets,
			errText: "GEMINI_API_KEY",
		},
		{
			name:    "unknown provider",
			config:  "cloud:\n  provider: openai\n",
			secrets: validSecrets,
			errText: "Provider",
		},
		{
			name:    "bad log level",
			config:  "logger:\n  level: loud\n",
			secrets: validSecrets,
			errText: "Level",
		},
		{
			name:    "digest without client id",
			config:  "todo:\n  recipient: alice\nscheduler:\n  tasks:\n    daily_digest:\n      enabled: true\n",
			secrets: validSecrets,
			errText: "todo.client_id",
		},
		{
			name:    "digest to unknown recipient",
			config:  "todo:\n  client_id: app\n  recipient: carol\nscheduler:\n  tasks:\n    daily_digest:\n      enabled: true\n",
			secrets: validSecrets,
			errText: "not an authorized user",
		},
		{
			name:    "task without trigger",
			config:  "scheduler:\n  tasks:\n    sql_maintenance:\n      enabled: true\n      interval: 0s\n",
			secrets: validSecrets,
			errText: "needs an interval or a schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfgPath := filepath.Join(dir, "missing.yaml")
			if tt.config != "" {
				cfgPath = writeFile(t, dir, "config.yaml", tt.config)
			}
			secrets := writeFile(t, dir, "secrets.json", tt.secrets)

			_, err := Load(cfgPath, secrets)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadMissingSecrets(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.yaml"), filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestIsAuthorized(t *testing.T) {
	t.Parallel()

	cfg := &Config{Secrets: Secrets{AuthorizedUsers: map[string]int64{"alice": 100, "bob": 200}}}

	tests := []struct {
		id   int64
		want bool
	}{
		{id: 100, want: true},
		{id: 200, want: true},
		{id: 300, want: false},
		{id: 0, want: false},
		{id: -100, want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.IsAuthorized(tt.id), "id %d", tt.id)
	}
}

func TestChatIDFor(t *testing.T) {
	t.Parallel()

	cfg := &Config{Secrets: Secrets{AuthorizedUsers: map[string]int64{"alice": 100}}}

	id, ok := cfg.ChatIDFor("Alice")
	assert.True(t, ok)
	assert.Equal(t, int64(100), id)

	_, ok = cfg.ChatIDFor("carol")
	assert.False(t, ok)

	_, ok = cfg.ChatIDFor("")
	assert.False(t, ok)
}
