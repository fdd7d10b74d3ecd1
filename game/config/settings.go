package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SettingsFileName is the optional settings file looked up in the settings directory
const SettingsFileName = "ambulance"

// NgrokSettings configures the optional public tunnel
type NgrokSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	AuthToken string `mapstructure:"auth_token"`
	Domain    string `mapstructure:"domain"`
}

// Settings are the process-level options for the server
type Settings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ConfigDir       string        `mapstructure:"config_dir"`
	DefaultScenario string        `mapstructure:"default_scenario"`
	LogLevel        string        `mapstructure:"log_level"`
	PrettyLogs      bool          `mapstructure:"pretty_logs"`
	FrameRate       int           `mapstructure:"frame_rate"`
	BroadcastEvery  int           `mapstructure:"broadcast_every"`
	MaxFrameStep    time.Duration `mapstructure:"max_frame_step"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	AutoRun         bool          `mapstructure:"auto_run"`
	APIURL          string        `mapstructure:"api_url"`
	Ngrok           NgrokSettings `mapstructure:"ngrok"`
}

// Addr returns host:port
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// FrameInterval returns the wall-clock duration of one frame
func (s *Settings) FrameInterval() time.Duration {
	if s.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(s.FrameRate)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 8080)
	v.SetDefault("config_dir", "configs")
	v.SetDefault("default_scenario", "default")
	v.SetDefault("log_level", "info")
	v.SetDefault("pretty_logs", true)
	v.SetDefault("frame_rate", 60)
	v.SetDefault("broadcast_every", 6)
	v.SetDefault("max_frame_step", "100ms")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("cleanup_interval", "1h")
	v.SetDefault("auto_run", true)
	v.SetDefault("api_url", "http://localhost:8080")

	v.SetDefault("ngrok.enabled", false)
	v.SetDefault("ngrok.auth_token", "")
	v.SetDefault("ngrok.domain", "")
}

// LoadSettings reads settings from defaults, an optional ambulance.json in
// dir, and AMBULANCE_* environment variables, in increasing precedence.
// The unprefixed CONFIG_DIR and NGROK_* variables are honoured as well.
func LoadSettings(dir string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(SettingsFileName)
	v.SetConfigType("json")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading settings file: %w", err)
		}
	}

	v.SetEnvPrefix("AMBULANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"config_dir":       {"AMBULANCE_CONFIG_DIR", "CONFIG_DIR"},
		"ngrok.enabled":    {"AMBULANCE_NGROK_ENABLED", "NGROK_ENABLED"},
		"ngrok.auth_token": {"AMBULANCE_NGROK_AUTH_TOKEN", "NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"},
		"ngrok.domain":     {"AMBULANCE_NGROK_DOMAIN", "NGROK_DOMAIN"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks ranges of numeric settings
func (s *Settings) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("settings: port must be between 0 and 65535, got %d", s.Port)
	}
	if s.FrameRate < 1 || s.FrameRate > 1000 {
		return fmt.Errorf("settings: frame_rate must be between 1 and 1000, got %d", s.FrameRate)
	}
	if s.BroadcastEvery < 1 {
		return fmt.Errorf("settings: broadcast_every must be at least 1, got %d", s.BroadcastEvery)
	}
	if s.MaxFrameStep <= 0 {
		return fmt.Errorf("settings: max_frame_step must be positive, got %s", s.MaxFrameStep)
	}
	if s.ConfigDir == "" {
		return fmt.Errorf("settings: config_dir is required")
	}
	return nil
}
