package profile

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	// All providers (openai, openrouter) use the same config.
	LLMProvider string // Provider identifier: openai, openrouter
	LLMAPIKey   string // LLM API key
	LLMBaseURL  string // LLM base URL (optional, has default per provider)
	LLMModel    string // Model name: gpt-5.2, anthropic/claude-sonnet, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)

	// Record store configuration
	Driver           string // record store driver: airtable, sqlite
	DSN              string // sqlite data source name
	AirtableAPIKey   string
	AirtableBaseID   string
	AirtableBaseURL  string // overridable for tests
	AirtablePageSize int    // page size for list calls, capped at 100 by the API

	// Transactional email configuration
	MailAPIKey    string // SendGrid API key
	MailBaseURL   string
	MailFromEmail string
	MailFromName  string

	Mode        string
	Addr        string
	InstanceURL string
	Version     string
	Port        int
}

// Provider default configurations for LLM.
// Used when COMPANION_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-5.2",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != ""
}

// IsMailEnabled returns true if the transactional mail sender is configured.
func (p *Profile) IsMailEnabled() bool {
	return p.MailAPIKey != "" && p.MailFromEmail != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("COMPANION_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("COMPANION_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("COMPANION_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("COMPANION_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("COMPANION_LLM_TIMEOUT_SECONDS", 120)

	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
			p.LLMProvider = "openai"
		}
	}
	if p.LLMBaseURL == "" || p.LLMModel == "" {
		if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
			if p.LLMBaseURL == "" {
				p.LLMBaseURL = defaults.BaseURL
			}
			if p.LLMModel == "" {
				p.LLMModel = defaults.Model
			}
		}
	}

	p.AirtableAPIKey = getEnvOrDefault("COMPANION_AIRTABLE_API_KEY", "")
	p.AirtableBaseID = getEnvOrDefault("COMPANION_AIRTABLE_BASE_ID", "")
	p.AirtableBaseURL = getEnvOrDefault("COMPANION_AIRTABLE_BASE_URL", "https://api.airtable.com/v0")
	p.AirtablePageSize = getEnvOrDefaultInt("COMPANION_AIRTABLE_PAGE_SIZE", 100)

	p.MailAPIKey = getEnvOrDefault("COMPANION_MAIL_API_KEY", "")
	p.MailBaseURL = getEnvOrDefault("COMPANION_MAIL_BASE_URL", "https://api.sendgrid.com/v3")
	p.MailFromEmail = getEnvOrDefault("COMPANION_MAIL_FROM_EMAIL", "")
	p.MailFromName = getEnvOrDefault("COMPANION_MAIL_FROM_NAME", "Narrin")
}

// Validate checks the profile for a runnable configuration and
// normalizes dependent fields.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	switch p.Driver {
	case "airtable":
		if p.AirtableAPIKey == "" {
			return errors.New("airtable api key is required")
		}
		if p.AirtableBaseID == "" {
			return errors.New("airtable base id is required")
		}
	case "sqlite":
		if p.DSN == "" {
			p.DSN = "companion_" + p.Mode + ".db"
		}
	default:
		return errors.Errorf("unsupported driver %q (expected airtable or sqlite)", p.Driver)
	}

	if p.AirtablePageSize <= 0 || p.AirtablePageSize > 100 {
		p.AirtablePageSize = 100
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	return nil
}
