package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/winmachacker-tech/atlas-command-voice-bridge/internal/config"
)

// setRequiredEnv populates the environment so that a minimal config passes
// validation. t.Setenv also prevents t.Parallel, which keeps these tests from
// racing each other over the process environment.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvAPIKey, "sk-test")
	t.Setenv(config.EnvCallLogURL, "https://sink.example/api/call-log")
	t.Setenv(config.EnvCallLogAnonKey, "anon-key")
	t.Setenv(config.EnvSharedSecret, "s3cret")
}

func TestLoadFromReader_DefaultsApplied(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.StreamPath != "/media-stream" {
		t.Errorf("StreamPath = %q", cfg.Server.StreamPath)
	}
	if cfg.Realtime.Model != "gpt-4o-realtime-preview" {
		t.Errorf("Realtime.Model = %q", cfg.Realtime.Model)
	}
	if cfg.Realtime.TranscriptionModel != "whisper-1" {
		t.Errorf("TranscriptionModel = %q", cfg.Realtime.TranscriptionModel)
	}
	if cfg.VAD.EnergyThreshold != 500 {
		t.Errorf("EnergyThreshold = %d", cfg.VAD.EnergyThreshold)
	}
	if cfg.VAD.Hangover != 600*time.Millisecond {
		t.Errorf("Hangover = %v", cfg.VAD.Hangover)
	}
}

func TestLoadFromReader_FileValuesSurviveEnvOverlay(t *testing.T) {
	setRequiredEnv(t)

	const doc = `
server:
  listen_addr: ":9090"
  log_level: debug
realtime:
  model: gpt-4o-mini-realtime
vad:
  energy_threshold: 750
  hangover: 1s
`
	cfg, err := config.LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Realtime.Model != "gpt-4o-mini-realtime" {
		t.Errorf("Realtime.Model = %q", cfg.Realtime.Model)
	}
	if cfg.VAD.EnergyThreshold != 750 || cfg.VAD.Hangover != time.Second {
		t.Errorf("VAD = %+v", cfg.VAD)
	}
}

func TestSharedSecret_PrimaryWinsOverLegacy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(config.EnvSharedSecret, "primary")
	t.Setenv(config.EnvSharedSecretLegacy, "legacy")

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.CallLog.SharedSecret != "primary" {
		t.Errorf("SharedSecret = %q, want primary", cfg.CallLog.SharedSecret)
	}
}

func TestSharedSecret_LegacyFallback(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(config.EnvSharedSecret, "")
	t.Setenv(config.EnvSharedSecretLegacy, "legacy")

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.CallLog.SharedSecret != "legacy" {
		t.Errorf("SharedSecret = %q, want legacy", cfg.CallLog.SharedSecret)
	}
}

func TestValidate_MissingCredentialsAreFatal(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvCallLogURL, "")
	t.Setenv(config.EnvCallLogAnonKey, "")
	t.Setenv(config.EnvSharedSecret, "")
	t.Setenv(config.EnvSharedSecretLegacy, "")

	_, err := config.LoadFromReader(strings.NewReader(""))
	if err == nil {
		t.Fatal("want validation error for missing credentials")
	}
	for _, want := range []string{"api_key", "call_log.url", "anon_key", "shared secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %q: %v", want, err)
		}
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	setRequiredEnv(t)

	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: loud\n"))
	if err == nil || !strings.Contains(err.Error(), "log_level") {
		t.Fatalf("want log_level validation error, got %v", err)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	setRequiredEnv(t)

	_, err := config.LoadFromReader(strings.NewReader("serverr:\n  listen_addr: ':1'\n"))
	if err == nil {
		t.Fatal("want decode error for unknown top-level field")
	}
}
