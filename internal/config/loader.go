package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrConfiguration marks every error returned by Load.
var ErrConfiguration = errors.New("configuration error")

// Load reads the YAML config file at configPath and the JSON secrets file at
// secretsPath, applies defaults and ORBIE_* environment overrides, and
// validates the result. A missing config file is allowed (defaults are used);
// a missing secrets file is not.
func Load(configPath, secretsPath string) (*Config, error) {
	startTime := time.Now()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrConfiguration, configPath, err)
		}
		slog.Info("Configuration file not found, using defaults", "path", configPath)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	secrets, err := loadSecrets(secretsPath)
	if err != nil {
		return nil, err
	}
	cfg.Secrets = *secrets

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	slog.Info("Configuration loaded",
		"config_path", configPath,
		"cloud_provider", cfg.Cloud.Provider,
		"ollama_model", cfg.Ollama.Model,
		"authorized_users", len(cfg.Secrets.AuthorizedUsers),
		"duration_ms", time.Since(startTime).Milliseconds())

	return cfg, nil
}

func loadSecrets(path string) (*Secrets, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(defaultSecretsFormat)
	v.SetEnvPrefix(DefaultEnvPrefix)
	for _, key := range []string{"telegram_bot_token", "groq_api_key", "gemini_api_key"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("%w: failed to bind env for %s: %v", ErrConfiguration, key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to read secrets file %s: %v", ErrConfiguration, path, err)
	}

	secrets := &Secrets{}
	if err := v.Unmarshal(secrets); err != nil {
		return nil, fmt.Errorf("%w: failed to parse secrets: %v", ErrConfiguration, err)
	}
	return secrets, nil
}

// Validate checks struct constraints and the cross-field rules that tags
// cannot express.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.Cloud.Provider {
	case "groq":
		if c.Secrets.GroqAPIKey == "" {
			return errors.New("GROQ_API_KEY is required when cloud.provider is groq")
		}
	case "gemini":
		if c.Secrets.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required when cloud.provider is gemini")
		}
		if c.Cloud.Gemini.Model == "" || c.Cloud.Gemini.SearchModel == "" {
			return errors.New("cloud.gemini.model and cloud.gemini.search_model are required when cloud.provider is gemini")
		}
	}

	for name, task := range c.Scheduler.Tasks {
		if !task.Enabled {
			continue
		}
		if task.Schedule == "" && task.Interval <= 0 {
			return fmt.Errorf("scheduler task %q needs an interval or a schedule", name)
		}
	}

	if digest, ok := c.Scheduler.Tasks[DefaultDigestTask]; ok && digest.Enabled {
		if c.Todo.ClientID == "" {
			return errors.New("todo.client_id is required when the daily digest is enabled")
		}
		if _, ok := c.ChatIDFor(c.Todo.Recipient); !ok {
			return fmt.Errorf("todo.recipient %q is not an authorized user", c.Todo.Recipient)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("telegram.poll_timeout", DefaultTelegramPollTimeout)
	v.SetDefault("telegram.typing_interval", DefaultTelegramTypingInterval)
	v.SetDefault("telegram.send_timeout", DefaultTelegramSendTimeout)

	v.SetDefault("ollama.api", DefaultOllamaURL)
	v.SetDefault("ollama.model", DefaultOllamaModel)
	v.SetDefault("ollama.timeout", DefaultOllamaTimeout)
	v.SetDefault("ollama.buffer", DefaultOllamaBuffer)

	v.SetDefault("cloud.provider", DefaultCloudProvider)
	v.SetDefault("cloud.groq.base_url", DefaultGroqBaseURL)
	v.SetDefault("cloud.groq.model", DefaultGroqModel)
	v.SetDefault("cloud.groq.search_model", DefaultGroqSearchModel)
	v.SetDefault("cloud.groq.timeout", DefaultCloudTimeout)
	v.SetDefault("cloud.gemini.model", DefaultGeminiModel)
	v.SetDefault("cloud.gemini.search_model", DefaultGeminiModel)
	v.SetDefault("cloud.gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("cloud.gemini.timeout", DefaultCloudTimeout)

	v.SetDefault("search.api", DefaultSearchURL)
	v.SetDefault("search.num_results", DefaultSearchNumResults)
	v.SetDefault("search.token_limit", DefaultSearchTokenLimit)
	v.SetDefault("search.timeout", DefaultSearchTimeout)
	v.SetDefault("search.insecure_skip_verify", false)

	v.SetDefault("prompts.dir", DefaultPromptsDir)
	v.SetDefault("prompts.chat", DefaultPromptChat)
	v.SetDefault("prompts.local", DefaultPromptLocal)

	v.SetDefault("stream.edit_interval", DefaultEditInterval)

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.not_authorized", DefaultMessages.NotAuthorized)
	v.SetDefault("messages.fallback", DefaultMessages.Fallback)
	v.SetDefault("messages.chat_provide_message", DefaultMessages.ChatProvideMessage)
	v.SetDefault("messages.chat_error", DefaultMessages.ChatError)
	v.SetDefault("messages.search_provide_query", DefaultMessages.SearchProvideQuery)
	v.SetDefault("messages.search_limit_exceeded", DefaultMessages.SearchLimitExceeded)
	v.SetDefault("messages.search_error", DefaultMessages.SearchError)
	v.SetDefault("messages.stream_placeholder", DefaultMessages.StreamPlaceholder)
	v.SetDefault("messages.stream_empty", DefaultMessages.StreamEmpty)
	v.SetDefault("messages.digest_header", DefaultMessages.DigestHeader)
	v.SetDefault("messages.digest_login", DefaultMessages.DigestLogin)

	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("todo.graph_url", DefaultGraphURL)
	v.SetDefault("todo.authority_url", DefaultAuthorityURL)
	v.SetDefault("todo.tenant_id", DefaultTodoTenant)
	v.SetDefault("todo.scopes", DefaultTodoScopes)
	v.SetDefault("todo.include_tasks", false)
	v.SetDefault("todo.timeout", DefaultTodoTimeout)

	v.SetDefault("scheduler.tasks."+DefaultDigestTask+".enabled", false)
	v.SetDefault("scheduler.tasks."+DefaultDigestTask+".interval", DefaultDigestEvery)
	v.SetDefault("scheduler.tasks."+DefaultMaintenance+".enabled", true)
	v.SetDefault("scheduler.tasks."+DefaultMaintenance+".interval", DefaultVacuumEvery)
}
