package config

import "time"

// Default values for configuration.
const (
	DefaultLogLevel = "info"

	DefaultDBDriver              = "sqlite"
	DefaultDBConnectionString    = "lovebot.db"
	DefaultMongoConnectionString = "mongodb://localhost:27017"
	DefaultDBName                = "lovebot"
	DefaultDBTimeout             = 5 * time.Second
	DefaultDBHistoryLimit        = 50
	DefaultDBRetentionDays       = 90

	DefaultHTTPAddr         = ":8080"
	DefaultHTTPReadTimeout  = 10 * time.Second
	DefaultHTTPWriteTimeout = 10 * time.Second

	DefaultAnalysisMaxTokens         = 256
	DefaultAnalysisPositiveThreshold = 0.1
	DefaultAnalysisNegativeThreshold = -0.1

	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiTemperature = 0.0
	DefaultGeminiTimeout     = 15 * time.Second
	DefaultGeminiMaxFailures = 5

	DefaultInterventionThreshold = -0.7
	DefaultContextCapacity       = 50
	DefaultReplyText             = "I noticed there might be some tension. Remember to use 'I' statements."
	DefaultCommandPrefix         = "#lovebot"
	DefaultMessageTimeout        = 30 * time.Second
	DefaultSendTimeout           = 10 * time.Second
	DefaultStoreRetries          = 3

	DefaultMemoryIdleTTL = 24 * time.Hour

	DefaultEventsSubjectPrefix = "lovebot"
)

// DefaultMessages are the command replies used when none are configured.
var DefaultMessages = MessagesConfig{
	Help: "LoveBot Commands:\n" +
		"#lovebot help - Show this help message\n" +
		"#lovebot pause - Pause bot interventions\n" +
		"#lovebot resume - Resume bot interventions\n" +
		"#lovebot settings - Show or adjust bot settings\n" +
		"#lovebot feedback <text> - Provide feedback about the bot",
	Paused:         "LoveBot interventions are paused for this chat. Send #lovebot resume to turn them back on.",
	Resumed:        "LoveBot interventions are active again.",
	Settings:       "Settings for this chat:\nInterventions: %s\nIntervention threshold: %.2f\nContext window: %d messages",
	SettingsUsage:  "Usage: #lovebot settings threshold <value between -1 and 0>",
	SettingsSaved:  "Intervention threshold set to %.2f.",
	FeedbackThanks: "Thanks for the feedback!",
	FeedbackEmpty:  "Please add your feedback after the command, e.g. #lovebot feedback more gentle replies please.",
}

// DefaultTasks are the scheduled maintenance jobs enabled out of the box.
var DefaultTasks = map[string]TaskConfig{
	"store_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
	"history_retention": {Enabled: true, Schedule: "0 30 4 * * *"},
	"context_prune":     {Enabled: true, Schedule: "0 0 * * * *"},
}
