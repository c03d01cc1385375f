package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ivlev/sketchcast/internal/render"
)

type Config struct {
	Canvas CanvasConfig `mapstructure:"canvas"`
	Export ExportConfig `mapstructure:"export"`
	Input  InputConfig  `mapstructure:"input"`
	Player PlayerConfig `mapstructure:"player"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`

	BuildVersion string `mapstructure:"-"`
}

type CanvasConfig struct {
	Width      int    `mapstructure:"width"`
	Background string `mapstructure:"background"`
}

type ExportConfig struct {
	FPS       int    `mapstructure:"fps"`
	Workers   int    `mapstructure:"workers"` // 0 picks a value from CPU and memory
	OutputDir string `mapstructure:"output_dir"`
	Format    string `mapstructure:"format"`  // mp4 or png
	Encoder   string `mapstructure:"encoder"` // auto, libx264, h264_nvenc, ...
	Quality   int    `mapstructure:"quality"` // 0 keeps the encoder default
	ShowStats bool   `mapstructure:"show_stats"`
}

type InputConfig struct {
	SceneDir string `mapstructure:"scene_dir"`
	AudioDir string `mapstructure:"audio_dir"`
}

type PlayerConfig struct {
	Skip time.Duration `mapstructure:"skip"`
	Tick time.Duration `mapstructure:"tick"`
}

type ServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	MaxWidth    int           `mapstructure:"max_width"`
	MaxSessions int           `mapstructure:"max_sessions"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EnvPrefix prefixes environment overrides, e.g. SKETCHCAST_EXPORT_FPS.
const EnvPrefix = "SKETCHCAST"

// New returns a viper instance with every default set and environment
// overrides enabled.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("canvas.width", render.ReferenceWidth)
	v.SetDefault("canvas.background", "#0a0a0a")

	v.SetDefault("export.fps", 30)
	v.SetDefault("export.workers", 0)
	v.SetDefault("export.output_dir", "output")
	v.SetDefault("export.format", "mp4")
	v.SetDefault("export.encoder", "auto")
	v.SetDefault("export.quality", 0)
	v.SetDefault("export.show_stats", false)

	v.SetDefault("input.scene_dir", "input/scenes")
	v.SetDefault("input.audio_dir", "input/audio")

	v.SetDefault("player.skip", 5*time.Second)
	v.SetDefault("player.tick", 33*time.Millisecond)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_width", 3840)
	v.SetDefault("server.max_sessions", 16)
	v.SetDefault("server.session_ttl", 10*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configPath into v. With an empty path it looks for an optional
// sketchcast.yaml in the working directory.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("sketchcast")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no command could work with.
func (c *Config) Validate() error {
	var problems []string

	if err := render.SizeForWidth(c.Canvas.Width).Validate(); err != nil {
		problems = append(problems, fmt.Sprintf("canvas.width %d: %v", c.Canvas.Width, err))
	}
	if _, err := render.ParsePaint(c.Canvas.Background); err != nil {
		problems = append(problems, fmt.Sprintf("canvas.background: %v", err))
	}
	if c.Export.FPS <= 0 {
		problems = append(problems, fmt.Sprintf("export.fps must be positive, got %d", c.Export.FPS))
	}
	if c.Export.Workers < 0 {
		problems = append(problems, fmt.Sprintf("export.workers must not be negative, got %d", c.Export.Workers))
	}
	switch c.Export.Format {
	case "mp4", "png":
	default:
		problems = append(problems, fmt.Sprintf("export.format %q is not mp4 or png", c.Export.Format))
	}
	if c.Player.Skip <= 0 || c.Player.Tick <= 0 {
		problems = append(problems, "player.skip and player.tick must be positive")
	}
	if c.Server.MaxSessions <= 0 || c.Server.SessionTTL <= 0 {
		problems = append(problems, "server.max_sessions and server.session_ttl must be positive")
	}
	switch c.Log.Format {
	case "text", "json", "auto":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q is not text, json or auto", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Size is the configured canvas size.
func (c *Config) Size() render.Size {
	return render.SizeForWidth(c.Canvas.Width)
}

// Background is the configured clear colour.
func (c *Config) Background() render.Paint {
	p, err := render.ParsePaint(c.Canvas.Background)
	if err != nil {
		return render.DefaultBackground
	}
	return p
}
