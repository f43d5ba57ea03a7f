// Package config provides the configuration schema and loader for the voice
// bridge.
//
// Settings come from a YAML file; secrets are overlaid from the environment
// so they never have to live on disk. Validation distinguishes fatal
// omissions (API key, call-log sink credentials) from tunables that fall back
// to defaults.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure, typically loaded with [Load].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Summary  SummaryConfig  `yaml:"summary"`
	CallLog  CallLogConfig  `yaml:"call_log"`
	Prompts  PromptsConfig  `yaml:"prompts"`
	VAD      VADConfig      `yaml:"vad"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// StreamPath is the WebSocket path the telephony provider connects to.
	StreamPath string `yaml:"stream_path"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// RealtimeConfig configures the outbound link to the realtime speech API.
type RealtimeConfig struct {
	// APIKey authenticates the WebSocket dial. Usually supplied via the
	// OPENAI_API_KEY environment variable rather than the file.
	APIKey string `yaml:"api_key"`

	// Model is the realtime model identifier appended to the dial URL.
	Model string `yaml:"model"`

	// Voice selects the synthesised voice style.
	Voice string `yaml:"voice"`

	// TranscriptionModel is the speech-to-text model used for input
	// transcription events.
	TranscriptionModel string `yaml:"transcription_model"`

	// BaseURL overrides the production endpoint. Leave empty outside tests.
	BaseURL string `yaml:"base_url"`

	// DialTimeout bounds the WebSocket dial when a call starts.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// SummaryConfig configures the post-call summarization request.
type SummaryConfig struct {
	// Model is the chat-completion model used for summaries.
	Model string `yaml:"model"`

	// PromptFile is the path of the system prompt sent with each summary
	// request. Loaded once at startup.
	PromptFile string `yaml:"prompt_file"`

	// Timeout bounds the summary HTTP request during finalization.
	Timeout time.Duration `yaml:"timeout"`
}

// CallLogConfig configures the external call-log sink.
type CallLogConfig struct {
	// URL is the sink endpoint receiving the post-call record.
	URL string `yaml:"url"`

	// AnonKey is the bearer token sent on every sink request. Usually
	// supplied via CALL_LOG_ANON_KEY.
	AnonKey string `yaml:"anon_key"`

	// SharedSecret authenticates the bridge to the sink. Populated from the
	// environment; see [ApplyEnv] for the two accepted variable names.
	SharedSecret string `yaml:"-"`

	// OrgID is an optional organization identifier copied into each record.
	OrgID string `yaml:"org_id"`

	// Timeout bounds the call-log HTTP POST during finalization.
	Timeout time.Duration `yaml:"timeout"`
}

// PromptsConfig names the prompt files loaded at startup.
type PromptsConfig struct {
	// BasePromptFile is the agent's base instruction prompt.
	BasePromptFile string `yaml:"base_prompt_file"`
}

// VADConfig holds the tunables of the local voice-activity estimator.
type VADConfig struct {
	// EnergyThreshold is the mean-absolute-sample level above which a frame
	// counts as speech.
	EnergyThreshold int `yaml:"energy_threshold"`

	// Hangover is how long speech persists after the last loud frame.
	Hangover time.Duration `yaml:"hangover"`
}
