package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	errs "github.com/edgard/lovebot/internal/errors"
)

// EnvPrefix prefixes every environment override, e.g. LOVEBOT_DATABASE_DRIVER.
const EnvPrefix = "LOVEBOT"

// legacyEnv maps config keys to the plain variable names used by existing deployments.
var legacyEnv = map[string]string{
	"whatsapp.account_sid":       "TWILIO_ACCOUNT_SID",
	"whatsapp.auth_token":        "TWILIO_AUTH_TOKEN",
	"whatsapp.phone_number":      "WHATSAPP_PHONE_NUMBER",
	"database.connection_string": "MONGODB_CONNECTION_STRING",
	"gemini.api_key":             "GEMINI_API_KEY",
	"telegram.token":             "TELEGRAM_BOT_TOKEN",
}

// Load reads configuration in increasing priority from:
//  1. Default values
//  2. the YAML file at path (optional)
//  3. a .env file in the working directory (optional)
//  4. LOVEBOT_* and legacy environment variables
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envName := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, legacy); err != nil {
			return nil, errs.NewConfigError("failed to bind environment", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, errs.NewConfigError(fmt.Sprintf("failed to read config file %s", path), err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.NewConfigError("failed to parse config", err)
	}
	applyDriverDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDriverDefaults fills the connection string for the selected driver when none is configured.
func applyDriverDefaults(cfg *Config) {
	if cfg.Database.ConnectionString != "" {
		return
	}
	switch cfg.Database.Driver {
	case "mongo":
		cfg.Database.ConnectionString = DefaultMongoConnectionString
	default:
		cfg.Database.ConnectionString = DefaultDBConnectionString
	}
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errs.NewConfigError("invalid configuration", err)
	}
	if c.Analysis.NegativeThreshold > c.Analysis.PositiveThreshold {
		return errs.NewConfigError("analysis.negative_threshold must not exceed analysis.positive_threshold", nil)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("database.driver", DefaultDBDriver)
	v.SetDefault("database.name", DefaultDBName)
	v.SetDefault("database.timeout", DefaultDBTimeout)
	v.SetDefault("database.history_limit", DefaultDBHistoryLimit)
	v.SetDefault("database.retention_days", DefaultDBRetentionDays)

	v.SetDefault("whatsapp.enabled", false)
	v.SetDefault("whatsapp.validate_signature", false)
	v.SetDefault("whatsapp.public_url", "")
	v.SetDefault("telegram.enabled", false)

	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("http.read_timeout", DefaultHTTPReadTimeout)
	v.SetDefault("http.write_timeout", DefaultHTTPWriteTimeout)

	v.SetDefault("analysis.max_tokens", DefaultAnalysisMaxTokens)
	v.SetDefault("analysis.positive_threshold", DefaultAnalysisPositiveThreshold)
	v.SetDefault("analysis.negative_threshold", DefaultAnalysisNegativeThreshold)

	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)
	v.SetDefault("gemini.max_failures", DefaultGeminiMaxFailures)

	v.SetDefault("moderation.intervention_threshold", DefaultInterventionThreshold)
	v.SetDefault("moderation.context_capacity", DefaultContextCapacity)
	v.SetDefault("moderation.reply_text", DefaultReplyText)
	v.SetDefault("moderation.command_prefix", DefaultCommandPrefix)
	v.SetDefault("moderation.message_timeout", DefaultMessageTimeout)
	v.SetDefault("moderation.send_timeout", DefaultSendTimeout)
	v.SetDefault("moderation.store_retries", DefaultStoreRetries)

	v.SetDefault("memory.idle_ttl", DefaultMemoryIdleTTL)

	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject_prefix", DefaultEventsSubjectPrefix)

	tasks := make(map[string]any, len(DefaultTasks))
	for name, task := range DefaultTasks {
		tasks[name] = map[string]any{"enabled": task.Enabled, "schedule": task.Schedule}
	}
	v.SetDefault("scheduler.tasks", tasks)

	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.paused", DefaultMessages.Paused)
	v.SetDefault("messages.resumed", DefaultMessages.Resumed)
	v.SetDefault("messages.settings", DefaultMessages.Settings)
	v.SetDefault("messages.settings_usage", DefaultMessages.SettingsUsage)
	v.SetDefault("messages.settings_saved", DefaultMessages.SettingsSaved)
	v.SetDefault("messages.feedback_thanks", DefaultMessages.FeedbackThanks)
	v.SetDefault("messages.feedback_empty", DefaultMessages.FeedbackEmpty)
}
