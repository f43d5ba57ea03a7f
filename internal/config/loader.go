package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognised by [ApplyEnv]. The shared secret is a
// two-key lookup: the primary name wins, the legacy name is kept so existing
// deployments do not break.
const (
	EnvAPIKey             = "OPENAI_API_KEY"
	EnvCallLogURL         = "CALL_LOG_URL"
	EnvCallLogAnonKey     = "CALL_LOG_ANON_KEY"
	EnvSharedSecret       = "CALL_LOG_SHARED_SECRET"
	EnvSharedSecretLegacy = "BRIDGE_SHARED_SECRET"
)

// Defaults applied by [Load] when the file leaves a field empty.
const (
	defaultListenAddr         = ":8080"
	defaultStreamPath         = "/media-stream"
	defaultRealtimeModel      = "gpt-4o-realtime-preview"
	defaultVoice              = "alloy"
	defaultTranscriptionModel = "whisper-1"
	defaultSummaryModel       = "gpt-4o-mini"
	defaultDialTimeout        = 10 * time.Second
	defaultHTTPTimeout        = 15 * time.Second
	defaultEnergyThreshold    = 500
	defaultHangover           = 600 * time.Millisecond
)

// Load reads the YAML configuration file at path, overlays environment
// secrets, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, overlays the environment,
// applies defaults, and validates. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment-supplied secrets onto cfg. File values win
// for non-secret fields; secrets from the environment win over file values.
// The shared secret is read from the first non-empty of the primary and
// legacy variable names, in that order.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.Realtime.APIKey = v
	}
	if cfg.CallLog.URL == "" {
		cfg.CallLog.URL = os.Getenv(EnvCallLogURL)
	}
	if v := os.Getenv(EnvCallLogAnonKey); v != "" {
		cfg.CallLog.AnonKey = v
	}
	cfg.CallLog.SharedSecret = firstEnv(EnvSharedSecret, EnvSharedSecretLegacy)
}

// firstEnv returns the value of the first set, non-empty variable.
func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = defaultListenAddr
	}
	if cfg.Server.StreamPath == "" {
		cfg.Server.StreamPath = defaultStreamPath
	}
	if cfg.Realtime.Model == "" {
		cfg.Realtime.Model = defaultRealtimeModel
	}
	if cfg.Realtime.Voice == "" {
		cfg.Realtime.Voice = defaultVoice
	}
	if cfg.Realtime.TranscriptionModel == "" {
		cfg.Realtime.TranscriptionModel = defaultTranscriptionModel
	}
	if cfg.Realtime.DialTimeout <= 0 {
		cfg.Realtime.DialTimeout = defaultDialTimeout
	}
	if cfg.Summary.Model == "" {
		cfg.Summary.Model = defaultSummaryModel
	}
	if cfg.Summary.Timeout <= 0 {
		cfg.Summary.Timeout = defaultHTTPTimeout
	}
	if cfg.CallLog.Timeout <= 0 {
		cfg.CallLog.Timeout = defaultHTTPTimeout
	}
	if cfg.VAD.EnergyThreshold <= 0 {
		cfg.VAD.EnergyThreshold = defaultEnergyThreshold
	}
	if cfg.VAD.Hangover <= 0 {
		cfg.VAD.Hangover = defaultHangover
	}
}

// Validate checks that cfg contains a coherent set of values. Missing
// credentials are errors: the process must not accept calls it cannot
// finalize. Returns a joined error listing every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Realtime.APIKey == "" {
		errs = append(errs, fmt.Errorf("realtime.api_key is required (set %s)", EnvAPIKey))
	}
	if cfg.CallLog.URL == "" {
		errs = append(errs, fmt.Errorf("call_log.url is required (set %s)", EnvCallLogURL))
	}
	if cfg.CallLog.AnonKey == "" {
		errs = append(errs, fmt.Errorf("call_log.anon_key is required (set %s)", EnvCallLogAnonKey))
	}
	if cfg.CallLog.SharedSecret == "" {
		errs = append(errs, fmt.Errorf("call-log shared secret is required (set %s or %s)", EnvSharedSecret, EnvSharedSecretLegacy))
	}

	return errors.Join(errs...)
}
