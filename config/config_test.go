package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hey-george/config"
	"hey-george/internal/domain"
)

const minimalYAML = `
home_assistant:
  url: http://ha.local:8123
  token: ${HA_TOKEN}
  media_player: media_player.kitchen
stt:
  fast:
    url: http://stt:9000/transcribe
    model: base.en
    supports_bias: true
  robust:
    url: http://stt:9001/transcribe
    model: large-v3
llm:
  url: http://llm:8080/v1/chat/completions
  model: qwen2.5-7b
wake_word:
  model_path: models/hey_george.onnx
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadExpandsEnvAndDefaults(t *testing.T) {
	t.Setenv("HA_TOKEN", "secret-token")

	cfg, err := config.Load(writeConfig(t, minimalYAML), "")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.HomeAssistant.Token != "secret-token" {
		t.Errorf("token not expanded: got %q", cfg.HomeAssistant.Token)
	}
	if cfg.WakeWord.TriggerThreshold != 0.75 {
		t.Errorf("trigger threshold default: got %v", cfg.WakeWord.TriggerThreshold)
	}
	if cfg.WakeWord.RearmThreshold != 0.35 {
		t.Errorf("rearm threshold default: got %v", cfg.WakeWord.RearmThreshold)
	}
	if cfg.WakeWord.RearmFrames != 5 {
		t.Errorf("rearm frames default: got %v", cfg.WakeWord.RearmFrames)
	}
	if cfg.WakeWord.RecordSeconds != 4.0 {
		t.Errorf("record seconds default: got %v", cfg.WakeWord.RecordSeconds)
	}
	if cfg.WakeWord.FrameSize != 1280 || cfg.WakeWord.SampleRate != 16000 {
		t.Errorf("frame defaults: got %d/%d", cfg.WakeWord.FrameSize, cfg.WakeWord.SampleRate)
	}
	if cfg.WakeWord.PreRollPause != 150*time.Millisecond {
		t.Errorf("pre-roll pause default: got %v", cfg.WakeWord.PreRollPause)
	}
	if cfg.STT.Timeout != 120*time.Second {
		t.Errorf("stt timeout default: got %v", cfg.STT.Timeout)
	}
	if cfg.LLM.Timeout != 10*time.Second {
		t.Errorf("llm timeout default: got %v", cfg.LLM.Timeout)
	}
	if cfg.HomeAssistant.Timeout != 10*time.Second {
		t.Errorf("ha timeout default: got %v", cfg.HomeAssistant.Timeout)
	}
	if !cfg.STT.Fast.SupportsBias || cfg.STT.Robust.SupportsBias {
		t.Errorf("bias flags: fast=%v robust=%v", cfg.STT.Fast.SupportsBias, cfg.STT.Robust.SupportsBias)
	}
}

func TestLoadDotenvFeedsExpansion(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("HA_TOKEN=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("writing env file: %v", err)
	}

	cfg, err := config.Load(writeConfig(t, minimalYAML), envPath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HomeAssistant.Token != "from-dotenv" {
		t.Errorf("token: got %q", cfg.HomeAssistant.Token)
	}
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	t.Setenv("HA_TOKEN", "x")
	if _, err := config.Load(writeConfig(t, minimalYAML), filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("Load error: %v", err)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("HA_TOKEN", "x")
	cases := []struct {
		name  string
		strip string
	}{
		{"missing ha url", "url: http://ha.local:8123"},
		{"missing llm model", "model: qwen2.5-7b"},
		{"missing wake model", "model_path: models/hey_george.onnx"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			broken := ""
			for _, line := range strings.Split(minimalYAML, "\n") {
				if strings.TrimSpace(line) == tc.strip {
					continue
				}
				broken += line + "\n"
			}
			_, err := config.Load(writeConfig(t, broken), "")
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("got %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestLoadRejectsBadEnums(t *testing.T) {
	t.Setenv("HA_TOKEN", "x")
	bad := minimalYAML + `
audio:
  source: satellite
`
	if _, err := config.Load(writeConfig(t, bad), ""); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("got %v, want ErrConfiguration", err)
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	t.Setenv("HA_TOKEN", "x")
	cases := []struct {
		name    string
		trigger string
		rearm   string
	}{
		{"inverted", "0.2", "0.5"},
		{"equal", "0.5", "0.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bad := minimalYAML + "  trigger_threshold: " + tc.trigger + "\n  rearm_threshold: " + tc.rearm + "\n"
			if _, err := config.Load(writeConfig(t, bad), ""); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("got %v, want ErrConfiguration", err)
			}
		})
	}
}
