package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	Export   ExportConfig   `mapstructure:"export"   validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"  validate:"required"`
	Catalog  CatalogConfig  `mapstructure:"catalog"  validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Stats    StatsConfig    `mapstructure:"stats"    validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// PublicBaseURL prefixes progress and download URLs. Empty means relative URLs.
	PublicBaseURL string `mapstructure:"public_base_url" validate:"omitempty,url"`
}

// DatabaseConfig selects the record store backend.
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"       validate:"required,oneof=postgres memory"`
	URL         string `mapstructure:"url"          validate:"required_if=Driver postgres"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains exercise generator settings.
type LLMConfig struct {
	// Provider is "gemini" for the hosted model or "builtin" for the offline arithmetic generator.
	Provider          string `mapstructure:"provider"            validate:"required,oneof=gemini builtin"`
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required_if=Provider gemini"`
	ModelName         string `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0,lte=5"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1"`
}

// TaskConfig contains background worker settings.
type TaskConfig struct {
	WorkerCount              int `mapstructure:"worker_count"               validate:"required,gt=0"`
	QueueSize                int `mapstructure:"queue_size"                 validate:"required,gt=0"`
	StaleAfterMinutes        int `mapstructure:"stale_after_minutes"        validate:"required,gt=0"`
	MonitorIntervalSeconds   int `mapstructure:"monitor_interval_seconds"   validate:"required,gt=0"`
	GenerationTimeoutSeconds int `mapstructure:"generation_timeout_seconds" validate:"required,gt=0"`
	RenderTimeoutSeconds     int `mapstructure:"render_timeout_seconds"     validate:"required,gt=0"`
}

// ExportConfig contains download lifecycle and rendering settings.
type ExportConfig struct {
	TTLHours int `mapstructure:"ttl_hours" validate:"required,gt=0"`
	// PDFFontPath points at a UTF-8 TrueType font. Required to render CJK text to PDF.
	PDFFontPath string `mapstructure:"pdf_font_path"`
}

// StorageConfig selects where rendered files are kept.
type StorageConfig struct {
	Backend         string `mapstructure:"backend"           validate:"required,oneof=local gcs memory"`
	LocalDir        string `mapstructure:"local_dir"         validate:"required_if=Backend local"`
	GCSBucket       string `mapstructure:"gcs_bucket"        validate:"required_if=Backend gcs"`
	GCSEmulatorHost string `mapstructure:"gcs_emulator_host"`
}

// CleanupConfig controls the periodic download sweeper.
type CleanupConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes" validate:"required,gt=0"`
}

// CatalogConfig lists the subjects, grades and question types accepted by the service.
type CatalogConfig struct {
	Subjects      []string `mapstructure:"subjects"       validate:"required,min=1,dive,required"`
	Grades        []string `mapstructure:"grades"         validate:"required,min=1,dive,required"`
	QuestionTypes []string `mapstructure:"question_types" validate:"required,min=1,dive,required"`
}

// RedisConfig configures the optional statistics cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// AdminConfig holds the bcrypt hash of the admin API key. Empty disables admin routes.
type AdminConfig struct {
	APIKeyHash string `mapstructure:"api_key_hash"`
}

// StatsConfig controls statistics bucketing and caching.
type StatsConfig struct {
	TimeZone        string `mapstructure:"time_zone"         validate:"required"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// DownloadTTL returns the configured lifetime of an export file.
func (c ExportConfig) DownloadTTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// GenerationTimeout returns the deadline applied to one generator call.
func (c TaskConfig) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

// RenderTimeout returns the deadline applied to one render and upload.
func (c TaskConfig) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSeconds) * time.Second
}

// StaleAfter returns how long a job may stay in processing before it is failed.
func (c TaskConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterMinutes) * time.Minute
}

// MonitorInterval returns how often the stale-job monitor runs.
func (c TaskConfig) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorIntervalSeconds) * time.Second
}

// Interval returns the sweeper period.
func (c CleanupConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// CacheTTL returns how long cached statistics stay valid.
func (c StatsConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
