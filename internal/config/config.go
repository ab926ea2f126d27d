// Package config loads service configuration in three layers: struct
// defaults, an optional YAML file, then HASHRECIPE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"hashrecipe/internal/locale"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix prefixes every environment override. A double underscore
// separates the section from the key: HASHRECIPE_SESSION__QUERY_LATENCY.
const EnvPrefix = "HASHRECIPE_"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Session   SessionConfig   `koanf:"session"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Corpus    CorpusConfig    `koanf:"corpus"`
}

type ServerConfig struct {
	Addr        string   `koanf:"addr" validate:"required"`
	CORSOrigins []string `koanf:"cors_origins"`
	// UploadDir keeps normalised copies of query images when set.
	UploadDir      string `koanf:"upload_dir"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type SessionConfig struct {
	DefaultLocale string        `koanf:"default_locale" validate:"required"`
	QueryLatency  time.Duration `koanf:"query_latency" validate:"gte=0"`
	LoginLatency  time.Duration `koanf:"login_latency" validate:"gte=0"`
	// QueryTimeout bounds a query including its latency. Zero disables it.
	QueryTimeout time.Duration `koanf:"query_timeout" validate:"gte=0"`
}

// Image ranker choices.
const (
	ImageRandom     = "random"
	ImageSimilarity = "similarity"
	ImageCaption    = "caption"
)

// Captioner choices.
const (
	CaptionerGemini   = "gemini"
	CaptionerLocalLLM = "localllm"
)

type RetrievalConfig struct {
	ImageLimit int `koanf:"image_limit" validate:"gt=0"`
	// FastImage selects the DSH image ranker.
	FastImage string `koanf:"fast_image" validate:"oneof=random similarity"`
	// AccurateImage selects the CLIP image ranker.
	AccurateImage   string        `koanf:"accurate_image" validate:"oneof=random similarity caption"`
	Captioner       string        `koanf:"captioner" validate:"oneof=gemini localllm"`
	GeminiAPIKey    string        `koanf:"gemini_api_key"`
	GeminiModel     string        `koanf:"gemini_model"`
	LocalLLMURL     string        `koanf:"local_llm_url" validate:"omitempty,url"`
	LocalLLMModel   string        `koanf:"local_llm_model"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gt=0"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	// MatchIngredients extends text queries from title and tags to ingredients.
	MatchIngredients bool `koanf:"match_ingredients"`
}

// Corpus sources.
const (
	CorpusBuiltin  = "builtin"
	CorpusPostgres = "postgres"
)

type CorpusConfig struct {
	Source      string `koanf:"source" validate:"oneof=builtin postgres"`
	DatabaseURL string `koanf:"database_url"`
	// Seed writes the built-in corpus into an empty database.
	Seed bool `koanf:"seed"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			CORSOrigins:    []string{"http://localhost:5173"},
			MaxUploadBytes: 10 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Session: SessionConfig{
			DefaultLocale: string(locale.Default),
			QueryLatency:  1200 * time.Millisecond,
			LoginLatency:  800 * time.Millisecond,
			QueryTimeout:  30 * time.Second,
		},
		Retrieval: RetrievalConfig{
			ImageLimit:      3,
			FastImage:       ImageRandom,
			AccurateImage:   ImageRandom,
			Captioner:       CaptionerGemini,
			GeminiModel:     "gemini-1.5-flash",
			LocalLLMURL:     "http://localhost:1234/v1/chat/completions",
			LocalLLMModel:   "gemma-3-12b-it:2",
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Corpus: CorpusConfig{
			Source: CorpusBuiltin,
		},
	}
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

var validate = validator.New()

// Load reads the configuration from defaults, the config file and the
// environment, and validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints and the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := locale.Parse(c.Session.DefaultLocale); err != nil {
		return fmt.Errorf("session.default_locale: %w", err)
	}
	if c.Retrieval.AccurateImage == ImageCaption && c.Retrieval.Captioner == CaptionerGemini && c.Retrieval.GeminiAPIKey == "" {
		return errors.New("retrieval.gemini_api_key is required for the gemini captioner")
	}
	if c.Corpus.Source == CorpusPostgres && c.Corpus.DatabaseURL == "" {
		return errors.New("corpus.database_url is required for the postgres corpus")
	}
	return nil
}

// Locale returns the parsed default locale. Call only after Validate.
func (c *Config) Locale() locale.Locale {
	l, err := locale.Parse(c.Session.DefaultLocale)
	if err != nil {
		return locale.Default
	}
	return l
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps HASHRECIPE_SESSION__QUERY_LATENCY to
// session.query_latency.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
