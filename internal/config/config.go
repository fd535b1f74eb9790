package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ReadTimeout    int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout    int    `mapstructure:"idle_timeout"`  // in seconds
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// TransformConfig holds rendition pipeline configuration
type TransformConfig struct {
	// WorkerConcurrency bounds the number of renditions rendered at the same time
	WorkerConcurrency int `mapstructure:"worker_concurrency"`
	// RenderTimeout bounds the time spent on all renditions of one request
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
	JPEGQuality   int           `mapstructure:"jpeg_quality"`
	// VectorBackend is "oksvg" (pure Go) or "resvg" (cgo builds only)
	VectorBackend string `mapstructure:"vector_backend"`
	// MaxDecodedPixels rejects raster sources larger than width*height pixels (0 = unlimited)
	MaxDecodedPixels int64 `mapstructure:"max_decoded_pixels"`
	// FailFast aborts a request when any profile fails instead of returning a partial archive
	FailFast       bool    `mapstructure:"fail_fast"`
	DefaultPadding float64 `mapstructure:"default_padding"`
}

// StorageConfig holds archive storage configuration
type StorageConfig struct {
	Dir       string        `mapstructure:"dir"`
	Retention time.Duration `mapstructure:"retention"`
}

// SweeperConfig holds configuration for the archive retention sweeper
type SweeperConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	PoolSize int           `mapstructure:"pool_size"`
}

// DownloadConfig holds configuration for fetching remote source images
type DownloadConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxBytes int64         `mapstructure:"max_bytes"`
}

// APIConfig holds configuration for the API server
type APIConfig struct {
	BaseConfig      `mapstructure:",squash"`
	Server          ServerConfig    `mapstructure:"server"`
	Media           TransformConfig `mapstructure:"media"`
	Storage         StorageConfig   `mapstructure:"storage"`
	Sweeper         SweeperConfig   `mapstructure:"sweeper"`
	ProfilesDir     string          `mapstructure:"profiles_dir"`
	DefaultPlatform string          `mapstructure:"default_platform"`
}

// GeneratorConfig holds configuration for the imagegen CLI
type GeneratorConfig struct {
	BaseConfig      `mapstructure:",squash"`
	Media           TransformConfig `mapstructure:"media"`
	Download        DownloadConfig  `mapstructure:"download"`
	ProfilesDir     string          `mapstructure:"profiles_dir"`
	DefaultPlatform string          `mapstructure:"default_platform"`
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.max_upload_bytes", 20*1024*1024) // 20MB
	v.SetDefault("storage.dir", "data/archives")
	v.SetDefault("storage.retention", "24h")
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", "10m")
	v.SetDefault("sweeper.pool_size", 4)
	setMediaDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}

	var cfg APIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Media.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadGeneratorConfig loads configuration for the imagegen CLI
func LoadGeneratorConfig(configFile string, envPath string) (*GeneratorConfig, error) {
	v := configureViper("imagegen", configFile, envPath)
	v.SetDefault("download.timeout", "30s")
	v.SetDefault("download.max_bytes", 20*1024*1024) // 20MB
	setMediaDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg GeneratorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Media.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setMediaDefaults sets the defaults shared by every service that renders images
func setMediaDefaults(v *viper.Viper) {
	v.SetDefault("profiles_dir", "config/profiles")
	v.SetDefault("default_platform", "ManifoldJS")
	v.SetDefault("media.worker_concurrency", 4)
	v.SetDefault("media.render_timeout", "60s")
	v.SetDefault("media.jpeg_quality", 95)
	v.SetDefault("media.vector_backend", "oksvg")
	v.SetDefault("media.max_decoded_pixels", 50000000) // 50MP
	v.SetDefault("media.fail_fast", true)
	v.SetDefault("media.default_padding", 0.3)
}

// validate checks media settings that have no sensible fallback
func (c *TransformConfig) validate() error {
	if c.WorkerConcurrency <= 0 {
		return errors.New("media.worker_concurrency must be positive")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("media.jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.DefaultPadding < 0 || c.DefaultPadding > 1 {
		return fmt.Errorf("media.default_padding must be between 0 and 1, got %v", c.DefaultPadding)
	}
	switch c.VectorBackend {
	case "oksvg", "resvg":
	default:
		return fmt.Errorf("media.vector_backend must be oksvg or resvg, got %q", c.VectorBackend)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in the current directory, the service directory and config/
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("APPIMAGES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.max_upload_bytes",
		// Media
		"media.worker_concurrency",
		"media.render_timeout",
		"media.jpeg_quality",
		"media.vector_backend",
		"media.max_decoded_pixels",
		"media.fail_fast",
		"media.default_padding",
		// Storage
		"storage.dir",
		"storage.retention",
		// Sweeper
		"sweeper.enabled",
		"sweeper.interval",
		"sweeper.pool_size",
		// Download
		"download.timeout",
		"download.max_bytes",
		// Profiles
		"profiles_dir",
		"default_platform",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}
