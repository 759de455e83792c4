package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/example/skin-analysis/internal/analysis"
	"github.com/example/skin-analysis/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. SKIN_REDIS_ADDR.
const EnvPrefix = "SKIN_"

// Config is the complete service configuration.
type Config struct {
	HTTP       HTTPConfig       `koanf:"http"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Analysis   AnalysisConfig   `koanf:"analysis"`
	Auth       AuthConfig       `koanf:"auth"`
	Log        LogConfig        `koanf:"log"`
}

// HTTPConfig configures the API listener and upload limit.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes" validate:"gt=0"`
}

// DatabaseConfig configures the Postgres connection pool.
type DatabaseConfig struct {
	DSN          string        `koanf:"dsn" validate:"required"`
	MaxIdleConns int           `koanf:"max_idle_conns" validate:"gte=0"`
	MaxOpenConns int           `koanf:"max_open_conns" validate:"gte=0"`
	ConnLifetime time.Duration `koanf:"conn_lifetime"`
}

// RedisConfig configures the result cache.
type RedisConfig struct {
	Addr      string        `koanf:"addr" validate:"required"`
	ResultTTL time.Duration `koanf:"result_ttl" validate:"gt=0"`
}

// ClassifierConfig points at the hosted classification models.
type ClassifierConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	APIKey         string        `koanf:"api_key"`
	ConditionModel string        `koanf:"condition_model" validate:"required"`
	ToneModel      string        `koanf:"tone_model" validate:"required"`
	Timeout        time.Duration `koanf:"timeout" validate:"gt=0"`
	RetryCount     int           `koanf:"retry_count" validate:"gte=0,lte=10"`
}

// AnalysisConfig holds the ranking floors.
type AnalysisConfig struct {
	GlobalFloor    float64 `koanf:"global_floor" validate:"gte=0,lte=1"`
	SecondaryFloor float64 `koanf:"secondary_floor" validate:"gte=0,lte=1,gtefield=GlobalFloor"`
}

// Thresholds converts the configured floors for the ranker.
func (c AnalysisConfig) Thresholds() analysis.Thresholds {
	return analysis.Thresholds{Global: c.GlobalFloor, Secondary: c.SecondaryFloor}
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret   string `koanf:"jwt_secret" validate:"required"`
	JWTAudience string `koanf:"jwt_audience"`
}

// LogConfig selects the log level and encoder.
type LogConfig struct {
	Level       string `koanf:"level" validate:"oneof=debug info warn error"`
	Development bool   `koanf:"development"`
}

// Logging converts the log section for logging.NewLogger.
func (c LogConfig) Logging() logging.Config {
	return logging.Config{Level: c.Level, Development: c.Development}
}

// Default returns the configuration used when no overrides are present.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
			MaxUploadBytes:  10 << 20,
		},
		Database: DatabaseConfig{
			DSN:          "host=postgres user=postgres password=postgres dbname=skinanalysis port=5432 sslmode=disable",
			MaxIdleConns: 5,
			MaxOpenConns: 10,
			ConnLifetime: time.Hour,
		},
		Redis: RedisConfig{
			Addr:      "redis:6379",
			ResultTTL: 5 * time.Minute,
		},
		Classifier: ClassifierConfig{
			BaseURL:        "https://serverless.roboflow.com",
			ConditionModel: "skin-problem-multilabel-c1i6e/1",
			ToneModel:      "skin_color_analysis-wihi4/3",
			Timeout:        30 * time.Second,
			RetryCount:     2,
		},
		Analysis: AnalysisConfig{
			GlobalFloor:    analysis.DefaultGlobalFloor,
			SecondaryFloor: analysis.DefaultSecondaryFloor,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults overridden by SKIN_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyToPath(key), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// envKeyToPath maps SKIN_CLASSIFIER_BASE_URL to classifier.base_url.
func envKeyToPath(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' })
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return parts[0] + "." + strings.Join(parts[1:], "_")
}
