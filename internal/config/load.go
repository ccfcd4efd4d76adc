package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. EXERCISE_SERVER_PORT.
const EnvPrefix = "EXERCISE"

// Default catalog values. They mirror the subjects and grades of a Chinese
// primary and secondary curriculum.
var (
	DefaultSubjects = []string{
		"数学", "语文", "英语", "物理", "化学", "生物", "历史", "地理", "政治", "科学",
	}
	DefaultGrades = []string{
		"一年级", "二年级", "三年级", "四年级", "五年级", "六年级",
		"初一", "初二", "初三", "高一", "高二", "高三",
	}
	DefaultQuestionTypes = []string{
		"calculation", "choice", "fill_blank", "true_false", "short_answer", "application",
	}
)

// keys without a sensible default still have to be bound so that
// AutomaticEnv picks them up during Unmarshal.
var boundKeys = []string{
	"server.public_base_url",
	"database.url",
	"auth.jwt_secret",
	"llm.gemini_api_key",
	"export.pdf_font_path",
	"storage.gcs_bucket",
	"storage.gcs_emulator_host",
	"redis.addr",
	"redis.password",
	"admin.api_key_hash",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("task.worker_count", 4)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stale_after_minutes", 15)
	v.SetDefault("task.monitor_interval_seconds", 60)
	v.SetDefault("task.generation_timeout_seconds", 120)
	v.SetDefault("task.render_timeout_seconds", 60)

	v.SetDefault("export.ttl_hours", 24)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "./data/exports")

	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.interval_minutes", 60)

	v.SetDefault("catalog.subjects", DefaultSubjects)
	v.SetDefault("catalog.grades", DefaultGrades)
	v.SetDefault("catalog.question_types", DefaultQuestionTypes)

	v.SetDefault("redis.db", 0)

	v.SetDefault("stats.time_zone", "Asia/Shanghai")
	v.SetDefault("stats.cache_ttl_seconds", 30)
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags of a Config.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
