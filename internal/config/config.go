// Package config manages LoveBot configuration from config files,
// environment variables and default values.
package config

import (
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	WhatsApp   WhatsAppConfig   `mapstructure:"whatsapp"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Events     EventsConfig     `mapstructure:"events"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Messages   MessagesConfig   `mapstructure:"messages"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig selects and configures the message store backend.
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"            validate:"required,oneof=sqlite mongo"`
	ConnectionString string        `mapstructure:"connection_string" validate:"required"`
	Name             string        `mapstructure:"name"              validate:"required"`
	Timeout          time.Duration `mapstructure:"timeout"           validate:"min=100ms,max=5m"`
	HistoryLimit     int           `mapstructure:"history_limit"     validate:"min=1,max=1000"`
	RetentionDays    int           `mapstructure:"retention_days"    validate:"min=0"`
}

// WhatsAppConfig holds the Twilio account used for the WhatsApp channel.
type WhatsAppConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	AccountSID        string `mapstructure:"account_sid"        validate:"required_if=Enabled true"`
	AuthToken         string `mapstructure:"auth_token"         validate:"required_if=Enabled true"`
	PhoneNumber       string `mapstructure:"phone_number"       validate:"required_if=Enabled true"`
	ValidateSignature bool   `mapstructure:"validate_signature"`
	// PublicURL is the externally visible webhook URL Twilio signs requests against.
	PublicURL string `mapstructure:"public_url" validate:"omitempty,url"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token" validate:"required_if=Enabled true"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"          validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  validate:"min=1s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=1s"`
}

// AnalysisConfig tunes the local text and sentiment analyzer.
type AnalysisConfig struct {
	MaxTokens         int     `mapstructure:"max_tokens"         validate:"min=1"`
	PositiveThreshold float64 `mapstructure:"positive_threshold" validate:"gte=0,lte=1"`
	NegativeThreshold float64 `mapstructure:"negative_threshold" validate:"gte=-1,lte=0"`
}

// GeminiConfig enables remote classification through the Gemini API.
type GeminiConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"     validate:"required_if=Enabled true"`
	ModelName   string        `mapstructure:"model_name"  validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s,max=2m"`
	MaxFailures int           `mapstructure:"max_failures" validate:"min=1"`
}

type ModerationConfig struct {
	InterventionThreshold float64       `mapstructure:"intervention_threshold" validate:"gte=-1,lte=1"`
	ContextCapacity       int           `mapstructure:"context_capacity"       validate:"min=1"`
	ReplyText             string        `mapstructure:"reply_text"             validate:"required"`
	CommandPrefix         string        `mapstructure:"command_prefix"         validate:"required"`
	MessageTimeout        time.Duration `mapstructure:"message_timeout"        validate:"min=1s"`
	SendTimeout           time.Duration `mapstructure:"send_timeout"           validate:"min=1s"`
	StoreRetries          uint          `mapstructure:"store_retries"          validate:"min=1,max=10"`
}

type MemoryConfig struct {
	IdleTTL time.Duration `mapstructure:"idle_ttl" validate:"min=1m"`
}

// EventsConfig points at an optional NATS server; an empty URL disables publishing.
type EventsConfig struct {
	NatsURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix" validate:"required"`
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MessagesConfig holds the user-facing replies for commands.
type MessagesConfig struct {
	Help           string `mapstructure:"help"            validate:"required"`
	Paused         string `mapstructure:"paused"          validate:"required"`
	Resumed        string `mapstructure:"resumed"         validate:"required"`
	Settings       string `mapstructure:"settings"        validate:"required"`
	SettingsUsage  string `mapstructure:"settings_usage"  validate:"required"`
	SettingsSaved  string `mapstructure:"settings_saved"  validate:"required"`
	FeedbackThanks string `mapstructure:"feedback_thanks" validate:"required"`
	FeedbackEmpty  string `mapstructure:"feedback_empty"  validate:"required"`
}
