package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-editor/internal/platform/envutil"
)

const (
	TransportSSE   = "sse"
	TransportRedis = "redis"
)

// Duration accepts "5s"-style strings or integer seconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Duration = time.Duration(n) * time.Second
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or integer seconds: %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

type APIConfig struct {
	BaseURL    string   `yaml:"base_url" validate:"required,url"`
	Timeout    Duration `yaml:"timeout"`
	MaxRetries int      `yaml:"max_retries" validate:"gte=0,lte=10"`
}

type StreamConfig struct {
	Transport    string   `yaml:"transport" validate:"oneof=sse redis"`
	// URL is only needed by generation sessions on the sse transport; the
	// app checks it when wiring the progress channel.
	URL          string   `yaml:"url" validate:"omitempty,url"`
	ReconnectMin Duration `yaml:"reconnect_min"`
	ReconnectMax Duration `yaml:"reconnect_max"`
}

type RedisConfig struct {
	Addr          string   `yaml:"addr" validate:"required_if=Transport redis"`
	ChannelPrefix string   `yaml:"channel_prefix"`
	FlagPrefix    string   `yaml:"flag_prefix"`
	FlagTTL       Duration `yaml:"flag_ttl"`

	// Transport mirrors stream.transport so the redis requirement can be validated here.
	Transport string `yaml:"-"`
}

type HTTPConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

type ProgressConfig struct {
	ExpectedClasses int `yaml:"expected_classes" validate:"gt=0"`
}

type OtelConfig struct {
	ServiceName string `yaml:"service_name"`
}

type Config struct {
	Env      string         `yaml:"env"`
	API      APIConfig      `yaml:"api"`
	Stream   StreamConfig   `yaml:"stream"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Progress ProgressConfig `yaml:"progress"`
	Otel     OtelConfig     `yaml:"otel"`
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		API: APIConfig{
			Timeout:    Duration{Duration: 30 * time.Second},
			MaxRetries: 2,
		},
		Stream: StreamConfig{
			Transport:    TransportSSE,
			ReconnectMin: Duration{Duration: 500 * time.Millisecond},
			ReconnectMax: Duration{Duration: 30 * time.Second},
		},
		Redis: RedisConfig{
			ChannelPrefix: "course-progress:",
			FlagPrefix:    "course-generating:",
			FlagTTL:       Duration{Duration: 30 * time.Minute},
		},
		HTTP: HTTPConfig{
			Addr:            ":8090",
			ShutdownTimeout: Duration{Duration: 15 * time.Second},
			AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Progress: ProgressConfig{ExpectedClasses: 5},
		Otel:     OtelConfig{ServiceName: "neurobridge-editor"},
	}
}

// Load reads defaults, then .env, then the YAML file, then env overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("NB_EDITOR_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "editor.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)
	normalize(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.API.BaseURL = envutil.String("NB_COURSE_API_URL", cfg.API.BaseURL)
	cfg.API.Timeout.Duration = envutil.Seconds("NB_COURSE_API_TIMEOUT_SECONDS", cfg.API.Timeout.Duration)
	cfg.API.MaxRetries = envutil.Int("NB_COURSE_API_MAX_RETRIES", cfg.API.MaxRetries)
	cfg.Stream.Transport = envutil.String("NB_STREAM_TRANSPORT", cfg.Stream.Transport)
	cfg.Stream.URL = envutil.String("NB_STREAM_URL", cfg.Stream.URL)
	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.HTTP.Addr = envutil.String("NB_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Progress.ExpectedClasses = envutil.Int("NB_EXPECTED_CLASSES", cfg.Progress.ExpectedClasses)
}

func normalize(cfg *Config) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	cfg.Stream.Transport = strings.ToLower(strings.TrimSpace(cfg.Stream.Transport))
	if cfg.Stream.Transport == "" {
		cfg.Stream.Transport = TransportSSE
	}
	cfg.Stream.URL = strings.TrimSpace(cfg.Stream.URL)
	if cfg.Stream.ReconnectMax.Duration < cfg.Stream.ReconnectMin.Duration {
		cfg.Stream.ReconnectMax = cfg.Stream.ReconnectMin
	}
	cfg.Redis.Transport = cfg.Stream.Transport
}

var validate = func() func(*Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	return func(cfg *Config) error {
		if err := v.Struct(cfg); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				fields := make([]string, 0, len(verrs))
				for _, fe := range verrs {
					fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
				}
				return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
			}
			return fmt.Errorf("invalid config: %w", err)
		}
		return nil
	}
}()
