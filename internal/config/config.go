// Package config provides configuration loading and validation for the bot commands.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	// Container images often ship without zoneinfo.
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is the immutable settings snapshot built once at start-up.
// Values come from the environment, optionally overlaid by a JSON file.
type Config struct {
	// Publishing
	TeamsWebhookURL string `json:"teams_webhook_url,omitempty" validate:"omitempty,url"`
	DryRun          bool   `json:"dry_run,omitempty"`

	// LLM
	LLMProvider  string `json:"llm_provider,omitempty" validate:"oneof=openai gemini"`
	LLMEndpoint  string `json:"llm_endpoint,omitempty" validate:"omitempty,url"`
	LLMModel     string `json:"llm_model,omitempty"`
	LLMAPIKey    string `json:"llm_api_key,omitempty"`
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`

	// News run
	HoursBack         int    `json:"hours_back,omitempty" validate:"gte=0"`
	MaxEntriesPerFeed int    `json:"max_entries_per_feed,omitempty" validate:"gte=1"`
	MaxArticlesToLLM  int    `json:"max_articles_to_llm,omitempty" validate:"gte=1"`
	MaxNewsItems      int    `json:"max_news_items,omitempty" validate:"gte=1"`
	FeedsFile         string `json:"feeds_file,omitempty"`

	// Share run
	GmailAddress         string `json:"gmail_address,omitempty" validate:"omitempty,email"`
	GmailCredentialsFile string `json:"gmail_credentials_file,omitempty"`
	GmailTokenFile       string `json:"gmail_token_file,omitempty"`
	CheckHoursBackTweet  int    `json:"check_hours_back_tweet,omitempty" validate:"gte=0"`
	MaxEmailsPerRun      int    `json:"max_emails_per_run,omitempty" validate:"gte=1"`
	ProcessOnlyUnread    bool   `json:"process_only_unread,omitempty"`
	MarkAsRead           bool   `json:"mark_as_read,omitempty"`

	// Runtime
	Timezone       string `json:"timezone,omitempty" validate:"required"`
	LogLevel       string `json:"log_level,omitempty" validate:"omitempty,oneof=trace debug info notice warn warning error fatal panic"`
	LogFile        string `json:"log_file,omitempty"`
	SpecialLogFile string `json:"special_log_file,omitempty"`
	Env            string `json:"env,omitempty"`
	Port           int    `json:"port,omitempty" validate:"gte=0,lte=65535"`
}

// Default returns the built-in settings used when nothing is configured.
func Default() Config {
	return Config{
		LLMProvider:          ProviderOpenAI,
		LLMEndpoint:          "http://192.168.131.193:8008/v1/chat/completions",
		LLMModel:             "gpt-3.5-turbo",
		HoursBack:            3,
		MaxEntriesPerFeed:    30,
		MaxArticlesToLLM:     40,
		MaxNewsItems:         3,
		GmailAddress:         "dummy@example.com",
		GmailCredentialsFile: "credentials/credentials.json",
		GmailTokenFile:       "credentials/token.json",
		CheckHoursBackTweet:  3,
		MaxEmailsPerRun:      5,
		ProcessOnlyUnread:    true,
		MarkAsRead:           true,
		Timezone:             "Asia/Tokyo",
		LogLevel:             "info",
		Port:                 8080,
	}
}

// FromEnv builds a Config from environment variables on top of Default.
// A variable that is set, even to an empty string, replaces the default.
func FromEnv() (Config, error) {
	cfg := Default()

	strs := map[string]*string{
		"TEAMS_WEBHOOK_URL":      &cfg.TeamsWebhookURL,
		"LLM_PROVIDER":           &cfg.LLMProvider,
		"LLM_ENDPOINT":           &cfg.LLMEndpoint,
		"LLM_MODEL":              &cfg.LLMModel,
		"LLM_API_KEY":            &cfg.LLMAPIKey,
		"GEMINI_API_KEY":         &cfg.GeminiAPIKey,
		"FEEDS_FILE":             &cfg.FeedsFile,
		"GMAIL_ADDRESS":          &cfg.GmailAddress,
		"GMAIL_CREDENTIALS_FILE": &cfg.GmailCredentialsFile,
		"GMAIL_TOKEN_FILE":       &cfg.GmailTokenFile,
		"TIMEZONE":               &cfg.Timezone,
		"LOG_LEVEL":              &cfg.LogLevel,
		"LOG_FILE":               &cfg.LogFile,
		"SPECIAL_LOG_FILE":       &cfg.SpecialLogFile,
		"ENV":                    &cfg.Env,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"HOURS_BACK":             &cfg.HoursBack,
		"MAX_ENTRIES_PER_FEED":   &cfg.MaxEntriesPerFeed,
		"MAX_ARTICLES_TO_LLM":    &cfg.MaxArticlesToLLM,
		"MAX_NEWS_ITEMS":         &cfg.MaxNewsItems,
		"CHECK_HOURS_BACK_TWEET": &cfg.CheckHoursBackTweet,
		"MAX_EMAILS_PER_RUN":     &cfg.MaxEmailsPerRun,
		"PORT":                   &cfg.Port,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("config error: %s must be an integer, got %q", key, v)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"DRY_RUN":             &cfg.DryRun,
		"PROCESS_ONLY_UNREAD": &cfg.ProcessOnlyUnread,
		"MARK_AS_READ":        &cfg.MarkAsRead,
	}
	for key, dst := range bools {
		if v, ok := os.LookupEnv(key); ok {
			// Anything other than "true" is false.
			*dst = strings.EqualFold(strings.TrimSpace(v), "true")
		}
	}

	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)
	return cfg, nil
}

// Load reads the environment and then overlays the JSON file at path, if any.
// Only keys present in the file replace environment values.
func Load(path string) (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		return cfg, nil
	}
	return LoadConfig(path, cfg)
}

// LoadConfig reads a JSON config file on top of base.
func LoadConfig(path string, base Config) (Config, error) {
	if path == "" {
		return Config{}, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := base
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)

	return cfg, nil
}

var validate = validator.New()

// Validate checks field ranges and the rules that span several fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}

	if !c.DryRun && c.TeamsWebhookURL == "" {
		return fmt.Errorf("config error: TEAMS_WEBHOOK_URL is required unless DRY_RUN is true")
	}
	if c.LLMProvider == ProviderGemini && c.GeminiAPIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required when LLM_PROVIDER is gemini")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location resolves Timezone for publish-date parsing and date windows.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config error: unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LLMEnabled reports whether a language model is configured at all.
func (c Config) LLMEnabled() bool {
	switch c.LLMProvider {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	default:
		return c.LLMEndpoint != ""
	}
}
