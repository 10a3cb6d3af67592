package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/core"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection
	DataBackend  string
	DataDir      string
	StoreTimeout time.Duration

	// Database
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Ledger vocabulary
	People            []string
	Categories        []string
	ExpenseTypes      []string
	FallbackCategory  string
	Currency          string
	ManageRecentLimit int

	// Language model
	AIProvider                 string
	OpenAIKey                  string
	OpenAIBaseURL              string
	OpenAISuggestModel         string
	OpenAISummaryModel         string
	GigaChatKey                string
	GigaChatScope              string
	GigaChatInsecureSkipVerify bool
	AIInsightCount             int
	AITimeout                  time.Duration

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Rate limiting of POST requests
	RateLimitPerMinute int
	// Reverse proxies whose X-Forwarded-For is trusted, in CIDR form
	TrustedProxies []string
}

var (
	validBackends  = []string{"memory", "sheets", "sqlite"}
	validProviders = []string{"openai", "gigachat", "none"}
)

func Load() *Config {
	tax := core.DefaultTaxonomy()
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		DataDir:      getEnv("DATA_DIR", "data"),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 15*time.Second),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finanzas.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Hoja 1"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		People:            getEnvList("LEDGER_PEOPLE", tax.People),
		Categories:        getEnvList("LEDGER_CATEGORIES", tax.Categories),
		ExpenseTypes:      getEnvList("LEDGER_EXPENSE_TYPES", tax.ExpenseTypes),
		FallbackCategory:  getEnv("LEDGER_FALLBACK_CATEGORY", tax.FallbackCategory()),
		Currency:          getEnv("LEDGER_CURRENCY", core.DefaultCurrency),
		ManageRecentLimit: getEnvInt("MANAGE_RECENT_LIMIT", 20),

		AIProvider:                 strings.ToLower(getEnv("AI_PROVIDER", "openai")),
		OpenAIKey:                  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:              getEnv("OPENAI_BASE_URL", ""),
		OpenAISuggestModel:         getEnv("OPENAI_SUGGEST_MODEL", "gpt-3.5-turbo"),
		OpenAISummaryModel:         getEnv("OPENAI_SUMMARY_MODEL", "gpt-4o-mini"),
		GigaChatKey:                getEnv("GIGACHAT_API_KEY", ""),
		GigaChatScope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
		GigaChatInsecureSkipVerify: getEnvBool("GIGACHAT_INSECURE_SKIP_VERIFY", false),
		AIInsightCount:             getEnvInt("AI_INSIGHT_COUNT", 3),
		AITimeout:                  getEnvDuration("AI_TIMEOUT", 30*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finanzas.ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "finanzas.ledger.events"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES", nil),
	}

	return cfg
}

// Taxonomy returns the configured ledger vocabulary.
func (c *Config) Taxonomy() core.Taxonomy {
	return core.Taxonomy{
		People:       c.People,
		Categories:   c.Categories,
		ExpenseTypes: c.ExpenseTypes,
		Fallback:     c.FallbackCategory,
	}
}

// AIKey returns the API key of the selected provider.
func (c *Config) AIKey() string {
	switch c.AIProvider {
	case "gigachat":
		return c.GigaChatKey
	case "none":
		return ""
	default:
		return c.OpenAIKey
	}
}

// Validate checks every setting and reports all problems at once. A missing
// language-model key is not an error: the assistant runs disabled.
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.StoreTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid store timeout %v: must be at least 1 second", c.StoreTimeout))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate Google Sheets configuration if backend is sheets
	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate ledger vocabulary
	if len(c.People) == 0 {
		errors = append(errors, "LEDGER_PEOPLE must list at least one person")
	}
	if len(c.Categories) == 0 {
		errors = append(errors, "LEDGER_CATEGORIES must list at least one category")
	} else if !slices.Contains(c.Categories, c.FallbackCategory) {
		errors = append(errors, fmt.Sprintf("fallback category '%s' must be one of LEDGER_CATEGORIES", c.FallbackCategory))
	}
	if c.ManageRecentLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid manage recent limit %d: must be at least 1", c.ManageRecentLimit))
	}

	// Validate language model settings
	if !slices.Contains(validProviders, c.AIProvider) {
		errors = append(errors, fmt.Sprintf("invalid AI provider '%s': must be one of %v", c.AIProvider, validProviders))
	}
	if c.AIInsightCount < 1 || c.AIInsightCount > 10 {
		errors = append(errors, fmt.Sprintf("invalid AI insight count %d: must be between 1 and 10", c.AIInsightCount))
	}
	if c.AITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be at least 1 second", c.AITimeout))
	}
	if c.OpenAIBaseURL != "" {
		if u, err := url.Parse(c.OpenAIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid OpenAI base URL '%s': must be an http(s) URL", c.OpenAIBaseURL))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR such as 10.0.0.0/8", cidr))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return core.Misconfigured("environment", fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- ")))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return slices.Clone(defaultValue)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
