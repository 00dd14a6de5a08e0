// Package config loads the assistant configuration from a YAML file.
// Values may reference environment variables with ${VAR} syntax; an
// optional dotenv file is loaded first so secrets stay out of the
// YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hey-george/internal/domain"
)

type Config struct {
	HomeAssistant HomeAssistant `yaml:"home_assistant"`
	Registry      Registry      `yaml:"registry"`
	STT           STT           `yaml:"stt"`
	LLM           LLM           `yaml:"llm"`
	WakeWord      WakeWord      `yaml:"wake_word"`
	Audio         Audio         `yaml:"audio"`
	TTS           TTS           `yaml:"tts"`
	Log           Log           `yaml:"log"`
}

type HomeAssistant struct {
	URL         string        `yaml:"url"`
	Token       string        `yaml:"token"`
	MediaPlayer string        `yaml:"media_player"`
	DuckVolume  float64       `yaml:"duck_volume"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Registry struct {
	Path           string        `yaml:"path"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// STTTier is one transcription endpoint. SupportsBias gates whether
// bias words and the initial prompt are sent to it at all.
type STTTier struct {
	URL          string `yaml:"url"`
	Model        string `yaml:"model"`
	SupportsBias bool   `yaml:"supports_bias"`
}

type STT struct {
	Fast      STTTier       `yaml:"fast"`
	Robust    STTTier       `yaml:"robust"`
	Timeout   time.Duration `yaml:"timeout"`
	BiasWords []string      `yaml:"bias_words"`
	Prompt    string        `yaml:"prompt"`
}

type LLM struct {
	URL       string        `yaml:"url"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

type WakeWord struct {
	Word             string        `yaml:"word"`
	ModelPath        string        `yaml:"model_path"`
	OnnxLibrary      string        `yaml:"onnx_library"`
	TriggerThreshold float32       `yaml:"trigger_threshold"`
	RearmThreshold   float32       `yaml:"rearm_threshold"`
	RearmFrames      int           `yaml:"rearm_frames"`
	RecordSeconds    float64       `yaml:"record_seconds"`
	CooldownSeconds  float64       `yaml:"cooldown_seconds"`
	SampleRate       int           `yaml:"sample_rate"`
	FrameSize        int           `yaml:"frame_size"`
	WindowSeconds    float64       `yaml:"window_seconds"`
	PreRollPause     time.Duration `yaml:"pre_roll_pause"`
	QueueSize        int           `yaml:"queue_size"`
}

type Audio struct {
	// Source selects the frame source: "microphone" or "replay".
	Source      string `yaml:"source"`
	ReplayDir   string `yaml:"replay_dir"`
	Cues        string `yaml:"cues"` // "speaker", "local" or "off"
	LocalCueDir string `yaml:"local_cue_dir"`
}

type TTS struct {
	Domain      string `yaml:"domain"`
	Service     string `yaml:"service"`
	TargetField string `yaml:"target_field"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text", "json" or "console"
}

// Load reads the YAML file at path, after loading the dotenv file at
// envPath when it exists. ${VAR} references in the YAML are expanded
// from the environment before parsing.
func Load(path, envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: loading env file %s: %v", domain.ErrConfiguration, envPath, err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrConfiguration, path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrConfiguration, path, err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.HomeAssistant.Timeout == 0 {
		c.HomeAssistant.Timeout = 10 * time.Second
	}
	if c.HomeAssistant.DuckVolume == 0 {
		c.HomeAssistant.DuckVolume = 0.35
	}
	if c.Registry.Path == "" {
		c.Registry.Path = "ha_registry.json"
	}
	if c.STT.Timeout == 0 {
		c.STT.Timeout = 120 * time.Second
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 10 * time.Second
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 256
	}
	if c.WakeWord.Word == "" {
		c.WakeWord.Word = "hey_george"
	}
	if c.WakeWord.TriggerThreshold == 0 {
		c.WakeWord.TriggerThreshold = 0.75
	}
	if c.WakeWord.RearmThreshold == 0 {
		c.WakeWord.RearmThreshold = 0.35
	}
	if c.WakeWord.RearmFrames == 0 {
		c.WakeWord.RearmFrames = 5
	}
	if c.WakeWord.RecordSeconds == 0 {
		c.WakeWord.RecordSeconds = 4.0
	}
	if c.WakeWord.CooldownSeconds == 0 {
		c.WakeWord.CooldownSeconds = 1.0
	}
	if c.WakeWord.SampleRate == 0 {
		c.WakeWord.SampleRate = 16000
	}
	if c.WakeWord.FrameSize == 0 {
		c.WakeWord.FrameSize = 1280
	}
	if c.WakeWord.WindowSeconds == 0 {
		c.WakeWord.WindowSeconds = 1.5
	}
	if c.WakeWord.PreRollPause == 0 {
		c.WakeWord.PreRollPause = 150 * time.Millisecond
	}
	if c.WakeWord.QueueSize == 0 {
		c.WakeWord.QueueSize = 4
	}
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.Cues == "" {
		c.Audio.Cues = "speaker"
	}
	if c.TTS.Domain == "" {
		c.TTS.Domain = "tts"
	}
	if c.TTS.Service == "" {
		c.TTS.Service = "google_translate_say"
	}
	if c.TTS.TargetField == "" {
		c.TTS.TargetField = "entity_id"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s is required", domain.ErrConfiguration, field)
	}
	if c.HomeAssistant.URL == "" {
		return missing("home_assistant.url")
	}
	if c.HomeAssistant.Token == "" {
		return missing("home_assistant.token")
	}
	if c.STT.Fast.URL == "" {
		return missing("stt.fast.url")
	}
	if c.STT.Robust.URL == "" {
		return missing("stt.robust.url")
	}
	if c.LLM.URL == "" {
		return missing("llm.url")
	}
	if c.LLM.Model == "" {
		return missing("llm.model")
	}
	if c.WakeWord.ModelPath == "" {
		return missing("wake_word.model_path")
	}
	if c.WakeWord.TriggerThreshold <= c.WakeWord.RearmThreshold {
		return fmt.Errorf("%w: wake_word.trigger_threshold must be greater than rearm_threshold", domain.ErrConfiguration)
	}
	switch c.Audio.Source {
	case "microphone", "replay":
	default:
		return fmt.Errorf("%w: audio.source must be microphone or replay, got %q", domain.ErrConfiguration, c.Audio.Source)
	}
	if c.Audio.Source == "replay" && c.Audio.ReplayDir == "" {
		return missing("audio.replay_dir")
	}
	switch c.Audio.Cues {
	case "speaker", "local", "off":
	default:
		return fmt.Errorf("%w: audio.cues must be speaker, local or off, got %q", domain.ErrConfiguration, c.Audio.Cues)
	}
	if c.Audio.Cues == "speaker" && c.HomeAssistant.MediaPlayer == "" {
		return missing("home_assistant.media_player")
	}
	if c.Audio.Cues == "local" && c.Audio.LocalCueDir == "" {
		return missing("audio.local_cue_dir")
	}
	return nil
}
