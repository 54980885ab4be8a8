// Package config provides configuration loading, validation, and access
// for Orbie. Settings come from a YAML config file, credentials from a JSON
// secrets file, and both are merged into a single immutable Config value.
package config

import "time"

// Config defines the application configuration for all components.
// It is loaded once at startup and must be treated as read-only afterwards.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	Cloud     CloudConfig     `mapstructure:"cloud"`
	Search    SearchConfig    `mapstructure:"search"`
	Prompts   PromptsConfig   `mapstructure:"prompts"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Todo      TodoConfig      `mapstructure:"todo"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`

	Secrets Secrets `mapstructure:"-"`
}

// LoggerConfig controls log verbosity and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds transport settings that are not secret.
type TelegramConfig struct {
	ServerURL      string        `mapstructure:"server_url"      validate:"omitempty,url"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"    validate:"min=1s"`
	TypingInterval time.Duration `mapstructure:"typing_interval" validate:"min=1s"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"    validate:"min=1s"`
}

// OllamaConfig configures the local streaming inference backend.
type OllamaConfig struct {
	URL     string        `mapstructure:"api"     validate:"required,url"`
	Model   string        `mapstructure:"model"   validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s,max=30m"`
	Buffer  int           `mapstructure:"buffer"  validate:"min=1,max=1024"`
}

// CloudConfig selects and configures the single-shot inference backend.
type CloudConfig struct {
	Provider string       `mapstructure:"provider" validate:"oneof=groq gemini"`
	Groq     GroqConfig   `mapstructure:"groq"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

// GroqConfig configures an OpenAI-compatible chat completions endpoint.
type GroqConfig struct {
	BaseURL     string        `mapstructure:"base_url"     validate:"required,url"`
	Model       string        `mapstructure:"model"        validate:"required"`
	SearchModel string        `mapstructure:"search_model" validate:"required"`
	Timeout     time.Duration `mapstructure:"timeout"      validate:"min=1s,max=10m"`
}

// GeminiConfig configures the Google Gemini backend.
type GeminiConfig struct {
	BaseURL     string        `mapstructure:"base_url"     validate:"omitempty,url"`
	Model       string        `mapstructure:"model"`
	SearchModel string        `mapstructure:"search_model"`
	Temperature float32       `mapstructure:"temperature"  validate:"min=0,max=2"`
	Timeout     time.Duration `mapstructure:"timeout"      validate:"min=1s,max=10m"`
}

// SearchConfig configures the SearXNG web search backend.
type SearchConfig struct {
	URL                string        `mapstructure:"api"                  validate:"required,url"`
	NumResults         int           `mapstructure:"num_results"          validate:"min=1,max=50"`
	TokenLimit         int           `mapstructure:"token_limit"          validate:"min=1"`
	Timeout            time.Duration `mapstructure:"timeout"              validate:"min=1s,max=5m"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

// PromptsConfig locates the named system prompt files.
type PromptsConfig struct {
	Dir   string `mapstructure:"dir"   validate:"required"`
	Chat  string `mapstructure:"chat"  validate:"required"`
	Local string `mapstructure:"local" validate:"required"`
}

// StreamConfig controls how streamed replies are relayed to the chat.
type StreamConfig struct {
	EditInterval time.Duration `mapstructure:"edit_interval" validate:"min=100ms"`
}

// MessagesConfig holds every user-facing text the bot sends.
type MessagesConfig struct {
	Welcome             string `mapstructure:"welcome"               validate:"required"`
	Help                string `mapstructure:"help"                  validate:"required"`
	NotAuthorized       string `mapstructure:"not_authorized"        validate:"required"`
	Fallback            string `mapstructure:"fallback"              validate:"required"`
	ChatProvideMessage  string `mapstructure:"chat_provide_message"  validate:"required"`
	ChatError           string `mapstructure:"chat_error"            validate:"required"`
	SearchProvideQuery  string `mapstructure:"search_provide_query"  validate:"required"`
	SearchLimitExceeded string `mapstructure:"search_limit_exceeded" validate:"required"`
	SearchError         string `mapstructure:"search_error"          validate:"required"`
	StreamPlaceholder   string `mapstructure:"stream_placeholder"    validate:"required"`
	StreamEmpty         string `mapstructure:"stream_empty"          validate:"required"`
	DigestHeader        string `mapstructure:"digest_header"         validate:"required"`
	DigestLogin         string `mapstructure:"digest_login"          validate:"required"`
}

// DatabaseConfig locates the sqlite file used for OAuth token storage.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TodoConfig configures the Microsoft To Do digest source.
type TodoConfig struct {
	GraphURL     string        `mapstructure:"graph_url"     validate:"required,url"`
	AuthorityURL string        `mapstructure:"authority_url" validate:"required,url"`
	ClientID     string        `mapstructure:"client_id"`
	TenantID     string        `mapstructure:"tenant_id"`
	Scopes       []string      `mapstructure:"scopes"`
	Recipient    string        `mapstructure:"recipient"`
	IncludeTasks bool          `mapstructure:"include_tasks"`
	Timeout      time.Duration `mapstructure:"timeout"       validate:"min=1s,max=5m"`
}

// SchedulerConfig lists the scheduled tasks by registry name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures a single scheduled task. Exactly one of Interval or
// Schedule is used; Schedule (cron syntax) wins when both are set.
type TaskConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Schedule string        `mapstructure:"schedule"`
}

// Secrets holds credentials loaded from the secrets file. Values must never
// be logged or echoed to users.
type Secrets struct {
	TelegramBotToken string           `mapstructure:"telegram_bot_token"        validate:"required"`
	AuthorizedUsers  map[string]int64 `mapstructure:"telegram_authorized_users" validate:"required,min=1"`
	GroqAPIKey       string           `mapstructure:"groq_api_key"`
	GeminiAPIKey     string           `mapstructure:"gemini_api_key"`
}
