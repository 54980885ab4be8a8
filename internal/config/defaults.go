package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel = "info"

	DefaultTelegramPollTimeout    = 10 * time.Second
	DefaultTelegramTypingInterval = 4 * time.Second
	DefaultTelegramSendTimeout    = 15 * time.Second

	DefaultOllamaURL     = "http://localhost:11434/api/generate"
	DefaultOllamaModel   = "llama3.1"
	DefaultOllamaTimeout = 5 * time.Minute
	DefaultOllamaBuffer  = 16

	DefaultCloudProvider     = "groq"
	DefaultGroqBaseURL       = "https://api.groq.com/openai/v1"
	DefaultGroqModel         = "llama-3.1-8b-instant"
	DefaultGroqSearchModel   = "llama-3.3-70b-versatile"
	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiTemperature = 1.0
	DefaultCloudTimeout      = 2 * time.Minute

	DefaultSearchURL        = "http://localhost:8080/search"
	DefaultSearchNumResults = 5
	DefaultSearchTokenLimit = 10000
	DefaultSearchTimeout    = 30 * time.Second

	DefaultPromptsDir    = "./system_prompts"
	DefaultPromptChat    = "pookie"
	DefaultPromptLocal   = "default"
	DefaultEditInterval  = time.Second
	DefaultDatabasePath  = "orbie.db"
	DefaultGraphURL      = "https://graph.microsoft.com/v1.0"
	DefaultAuthorityURL  = "https://login.microsoftonline.com"
	DefaultTodoTenant    = "common"
	DefaultTodoTimeout   = 30 * time.Second
	DefaultDigestTask    = "daily_digest"
	DefaultDigestEvery   = 24 * time.Hour
	DefaultMaintenance   = "sql_maintenance"
	DefaultVacuumEvery   = 7 * 24 * time.Hour
	DefaultEnvPrefix     = "ORBIE"
	defaultSecretsFormat = "json"
)

// DefaultTodoScopes are the delegated Graph permissions the digest needs.
var DefaultTodoScopes = []string{"Tasks.Read", "offline_access"}

// DefaultMessages are the user-facing texts used when the config file
// does not override them.
var DefaultMessages = MessagesConfig{
	Welcome:             "Hello! I'm Orbie, your AI assistant. Use /chat to start chatting or /help for more commands.",
	Help:                "Available commands:\n/start - Start Orbie\n/chat - Chat with Orbie (Powered by LlaMA)\n/search - Search the web (Powered by SearXNG)\n/local - Chat with the local model (streamed)\n/help - Get help on commands",
	NotAuthorized:       "You are not authorized to use this bot, please contact the bot owner for access.",
	Fallback:            "Please use a valid command or message, or use /help for more information.",
	ChatProvideMessage:  "Please include a message to chat. Example: /chat How are you?",
	ChatError:           "Unfortunately, I couldn't understand that message.",
	SearchProvideQuery:  "Please include a search query. Example: /search How to make a cake?",
	SearchLimitExceeded: "Search query exceeds the token limit of %d.",
	SearchError:         "Sorry, I couldn't find any results for that query.",
	StreamPlaceholder:   "…",
	StreamEmpty:         "The model returned an empty response.",
	DigestHeader:        "Here are your tasks for today:",
	DigestLogin:         "To connect Microsoft To Do, open %s and enter the code %s",
}
