package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig   `mapstructure:"server"`
	Database   DatabaseConfig `mapstructure:"database"`
	GitHub     GitHubConfig   `mapstructure:"github"`
	Embedding  ProviderConfig `mapstructure:"embedding"`
	Generation ProviderConfig `mapstructure:"generation"`
	Pipeline   PipelineConfig `mapstructure:"pipeline"`
	Jobs       JobsConfig     `mapstructure:"jobs"`
	Storage    StorageConfig  `mapstructure:"storage"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects the job store backend.
// Driver is one of "sqlite", "postgres" or "memory".
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogSQL          bool          `mapstructure:"log_sql"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver != "postgres" {
		return c.Path
	}
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GitHubConfig configures the repository hosting client.
type GitHubConfig struct {
	Token        string        `mapstructure:"token"`
	APIBaseURL   string        `mapstructure:"api_base_url"`
	RawBaseURL   string        `mapstructure:"raw_base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxFileBytes int           `mapstructure:"max_file_bytes"`
}

// PipelineConfig holds selection and budget knobs for a run.
type PipelineConfig struct {
	TopK              int     `mapstructure:"topk"`
	Lambda            float64 `mapstructure:"lambda"`
	MaxCharsPerFile   int     `mapstructure:"max_chars_per_file"`
	MaxTotalChars     int     `mapstructure:"max_total_chars"`
	MaxCandidates     int     `mapstructure:"max_candidates"`
	EmbedBatchSize    int     `mapstructure:"embed_batch_size"`
	EmbedMaxChars     int     `mapstructure:"embed_max_chars"`
	CompressOverChars int     `mapstructure:"compress_over_chars"`
	CompressRatio     float64 `mapstructure:"compress_ratio"`
	ExclusionFile     string  `mapstructure:"exclusion_file"`
	QueryCacheSize    int     `mapstructure:"query_cache_size"`
}

// JobsConfig controls the lifecycle controller.
type JobsConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
}

// StorageConfig configures optional publication of finished summaries.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // "s3" or "minio"
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

// Load reads configuration from an optional yaml file, .env and the environment.
// Parameters:
//   - configPath: explicit file; empty searches ./configs and the working directory.
// Returns:
//   - *Config: populated configuration.
//   - error: non-nil if the file exists but cannot be parsed, or validation fails.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindSecrets(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/repobrief.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("github.api_base_url", "https://api.github.com/")
	v.SetDefault("github.raw_base_url", "https://raw.githubusercontent.com")
	v.SetDefault("github.timeout", 30*time.Second)
	v.SetDefault("github.max_file_bytes", 1<<20)

	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.model", "text-embedding-004")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("embedding.timeout", 30*time.Second)

	v.SetDefault("generation.provider", "gemini")
	v.SetDefault("generation.model", "gemini-2.5-flash")
	v.SetDefault("generation.timeout", 2*time.Minute)
	v.SetDefault("generation.temperature", 0.3)
	v.SetDefault("generation.max_tokens", 4096)

	v.SetDefault("pipeline.topk", 8)
	v.SetDefault("pipeline.lambda", 0.65)
	v.SetDefault("pipeline.max_chars_per_file", 4000)
	v.SetDefault("pipeline.max_total_chars", 50000)
	v.SetDefault("pipeline.max_candidates", 25)
	v.SetDefault("pipeline.embed_batch_size", 5)
	v.SetDefault("pipeline.embed_max_chars", 4000)
	v.SetDefault("pipeline.compress_over_chars", 12000)
	v.SetDefault("pipeline.compress_ratio", 0.6)
	v.SetDefault("pipeline.query_cache_size", 16)

	v.SetDefault("jobs.timeout", 10*time.Minute)
	v.SetDefault("jobs.retry_attempts", 3)
	v.SetDefault("jobs.retry_base_delay", 200*time.Millisecond)
	v.SetDefault("jobs.retry_max_delay", 2*time.Second)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.bucket", "repobrief")
	v.SetDefault("storage.prefix", "briefs")
}

// bindSecrets maps conventional environment names onto config keys.
func bindSecrets(v *viper.Viper) {
	_ = v.BindEnv("github.token", "GITHUB_TOKEN")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("database.password", "DATABASE_PASSWORD")
	_ = v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	_ = v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	_ = v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	_ = v.BindEnv("embedding.base_url", "EMBEDDING_BASE_URL")
	_ = v.BindEnv("generation.base_url", "GENERATION_BASE_URL")
	_ = v.BindEnv("generation.model", "GENERATION_MODEL")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Pipeline.TopK <= 0 {
		return fmt.Errorf("pipeline.topk must be positive")
	}
	if c.Pipeline.Lambda < 0 || c.Pipeline.Lambda > 1 {
		return fmt.Errorf("pipeline.lambda must be within [0,1], got %v", c.Pipeline.Lambda)
	}
	if c.Pipeline.MaxCharsPerFile <= 0 || c.Pipeline.MaxTotalChars <= 0 {
		return fmt.Errorf("pipeline budgets must be positive")
	}
	if c.Jobs.Timeout <= 0 {
		return fmt.Errorf("jobs.timeout must be positive")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver)
	}
	if err := c.Embedding.validate("embedding"); err != nil {
		return err
	}
	return c.Generation.validate("generation")
}
