package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var ErrMissingToken = errors.New("token is not set (config key token or TOKEN env)")

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	Token      string        `mapstructure:"token"`

	Sink          string `mapstructure:"sink"`
	LibraryDir    string `mapstructure:"library_dir"`
	WatchLibrary  bool   `mapstructure:"watch_library"`
	CommandPrefix string `mapstructure:"command_prefix"`

	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	StunURLs       []string      `mapstructure:"stun_urls"`
	OpusBitrate    int           `mapstructure:"opus_bitrate"`

	MDNS        bool   `mapstructure:"mdns"`
	ServiceName string `mapstructure:"service_name"`
}

const (
	SinkWebRTC = "webrtc"
	SinkLocal  = "local"
)

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return load(fmt.Sprintf("config/config.%s.yaml", env))
}

func load(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("JUKEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("token", "JUKEBOX_TOKEN", "TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind token env: %w", err)
	}

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "jukebox-secret")
	v.SetDefault("token", "")
	v.SetDefault("sink", SinkWebRTC)
	v.SetDefault("library_dir", "")
	v.SetDefault("watch_library", false)
	v.SetDefault("command_prefix", "!")
	v.SetDefault("rate_limit", 5)
	v.SetDefault("rate_interval", "10s")
	v.SetDefault("connect_timeout", "10s")
	v.SetDefault("http_timeout", "15s")
	v.SetDefault("stun_urls", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("opus_bitrate", 96000)
	v.SetDefault("mdns", false)
	v.SetDefault("service_name", "jukebox")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("sink", cfg.Sink).
		Str("library", cfg.LibraryDir).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrMissingToken
	}
	switch c.Sink {
	case SinkWebRTC, SinkLocal:
	default:
		return fmt.Errorf("unknown sink %q (want %s or %s)", c.Sink, SinkWebRTC, SinkLocal)
	}
	if c.CommandPrefix == "" {
		return errors.New("command_prefix must not be empty")
	}
	return nil
}
