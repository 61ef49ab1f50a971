package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the species photo harvester
type Config struct {
	// Remote observation API
	API APIConfig `yaml:"api" json:"api"`

	// Bulk species enumeration query
	Source SourceConfig `yaml:"source" json:"source"`

	// Harvest pipeline settings
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// Photo download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Response cache configuration
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Retry policy for species listing pages
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Prometheus metrics listener
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds iNaturalist API settings
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Token     string        `yaml:"token" json:"token"`
}

// SourceConfig describes the geographic species_counts query used in bulk mode
type SourceConfig struct {
	Latitude   float64 `yaml:"latitude" json:"latitude"`
	Longitude  float64 `yaml:"longitude" json:"longitude"`
	Radius     float64 `yaml:"radius" json:"radius"`
	IconicTaxa string  `yaml:"iconic_taxa" json:"iconic_taxa"`
	PerPage    int     `yaml:"per_page" json:"per_page"`
}

// HarvestConfig holds pipeline settings
type HarvestConfig struct {
	RootDirectory      string   `yaml:"root_directory" json:"root_directory"`
	ImagesPerSpecies   int      `yaml:"images_per_species" json:"images_per_species"`
	SatisfiedThreshold int      `yaml:"satisfied_threshold" json:"satisfied_threshold"`
	SpeciesWorkers     int      `yaml:"species_workers" json:"species_workers"`
	Species            []string `yaml:"species" json:"species"`
}

// DownloadConfig holds photo download settings
type DownloadConfig struct {
	// PhotoWorkers is the per-species photo pool size; 0 means one worker per photo
	PhotoWorkers  int           `yaml:"photo_workers" json:"photo_workers"`
	PhotoTimeout  time.Duration `yaml:"photo_timeout" json:"photo_timeout"`
	MaxPhotoBytes int64         `yaml:"max_photo_bytes" json:"max_photo_bytes"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Strategy string        `yaml:"strategy" json:"strategy"`
	Requests int           `yaml:"requests" json:"requests"`
	Window   time.Duration `yaml:"window" json:"window"`
}

// CacheConfig holds response cache configuration
type CacheConfig struct {
	Path      string        `yaml:"path" json:"path"`
	SizeLimit int64         `yaml:"size_limit" json:"size_limit"`
	MemoryTTL time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	Disabled  bool          `yaml:"disabled" json:"disabled"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" json:"multiplier"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Rate limit strategies
const (
	StrategyFixed   = "fixed"
	StrategySliding = "sliding"
	StrategySmooth  = "smooth"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.inaturalist.org/v1",
			Timeout:   5 * time.Second,
			UserAgent: "inatscraper/1.0 (+https://github.com/inatscraper/inatscraper)",
		},
		Source: SourceConfig{
			Latitude:   -15.760536148501288,
			Longitude:  77.64325073204107,
			Radius:     4054.037977613122,
			IconicTaxa: "Actinopterygii",
			PerPage:    500,
		},
		Harvest: HarvestConfig{
			RootDirectory:      "fish_photos",
			ImagesPerSpecies:   100,
			SatisfiedThreshold: 30,
			SpeciesWorkers:     20,
		},
		Download: DownloadConfig{
			PhotoWorkers: 8,
			PhotoTimeout:  30 * time.Second,
			MaxPhotoBytes: 50 << 20,
		},
		RateLimit: RateLimitConfig{
			Strategy: StrategyFixed,
			Requests: 60,
			Window:   time.Minute,
		},
		Cache: CacheConfig{
			Path:      filepath.Join("cache", "responses.db"),
			SizeLimit: 1 << 30,
			MemoryTTL: 10 * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9464",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("INATSCRAPER_API_BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if token := os.Getenv("INATSCRAPER_API_TOKEN"); token != "" {
		c.API.Token = token
	}
	if userAgent := os.Getenv("INATSCRAPER_USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}

	if rootDir := os.Getenv("INATSCRAPER_ROOT_DIR"); rootDir != "" {
		c.Harvest.RootDirectory = rootDir
	}
	if numImages := os.Getenv("INATSCRAPER_NUM_IMAGES"); numImages != "" {
		var val int
		fmt.Sscanf(numImages, "%d", &val)
		if val > 0 {
			c.Harvest.ImagesPerSpecies = val
		}
	}
	if workers := os.Getenv("INATSCRAPER_SPECIES_WORKERS"); workers != "" {
		var val int
		fmt.Sscanf(workers, "%d", &val)
		if val > 0 {
			c.Harvest.SpeciesWorkers = val
		}
	}
	if workers := os.Getenv("INATSCRAPER_PHOTO_WORKERS"); workers != "" {
		var val int
		fmt.Sscanf(workers, "%d", &val)
		if val >= 0 {
			c.Download.PhotoWorkers = val
		}
	}

	if strategy := os.Getenv("INATSCRAPER_RATE_LIMIT_STRATEGY"); strategy != "" {
		c.RateLimit.Strategy = strings.ToLower(strategy)
	}

	if cachePath := os.Getenv("INATSCRAPER_CACHE_PATH"); cachePath != "" {
		c.Cache.Path = cachePath
	}
	if disabled := os.Getenv("INATSCRAPER_CACHE_DISABLED"); disabled != "" {
		c.Cache.Disabled = strings.ToLower(disabled) == "true"
	}

	if addr := os.Getenv("INATSCRAPER_METRICS_ADDR"); addr != "" {
		c.Metrics.Enabled = true
		c.Metrics.Address = addr
	}

	if logLevel := os.Getenv("INATSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".inatscraper.yaml",
		".inatscraper.yml",
		filepath.Join(home, ".config", "inatscraper", "config.yaml"),
		filepath.Join(home, ".config", "inatscraper", "config.yml"),
		filepath.Join(home, ".inatscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	if c.Source.PerPage <= 0 || c.Source.PerPage > 500 {
		errs = append(errs, errors.New("source per_page must be between 1 and 500"))
	}

	if c.Harvest.RootDirectory == "" {
		errs = append(errs, errors.New("root directory is required"))
	}
	if c.Harvest.ImagesPerSpecies <= 0 {
		errs = append(errs, errors.New("images per species must be positive"))
	}
	if c.Harvest.ImagesPerSpecies > 200 {
		errs = append(errs, errors.New("images per species cannot exceed the API page size of 200"))
	}
	if c.Harvest.SatisfiedThreshold <= 0 {
		errs = append(errs, errors.New("satisfied threshold must be positive"))
	}
	if c.Harvest.SpeciesWorkers <= 0 {
		errs = append(errs, errors.New("species workers must be positive"))
	}

	if c.Download.PhotoWorkers < 0 {
		errs = append(errs, errors.New("photo workers cannot be negative"))
	}
	if c.Download.PhotoTimeout <= 0 {
		errs = append(errs, errors.New("photo timeout must be positive"))
	}
	if c.Download.MaxPhotoBytes <= 0 {
		errs = append(errs, errors.New("max photo bytes must be positive"))
	}

	validStrategies := map[string]bool{
		StrategyFixed: true, StrategySliding: true, StrategySmooth: true,
	}
	if !validStrategies[strings.ToLower(c.RateLimit.Strategy)] {
		errs = append(errs, fmt.Errorf("invalid rate limit strategy %q", c.RateLimit.Strategy))
	}
	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("rate limit requests must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}

	if !c.Cache.Disabled {
		if c.Cache.Path == "" {
			errs = append(errs, errors.New("cache path is required"))
		}
		if c.Cache.SizeLimit <= 0 {
			errs = append(errs, errors.New("cache size limit must be positive"))
		}
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, errors.New("metrics address is required when metrics are enabled"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if species, ok := flags["species"].([]string); ok && len(species) > 0 {
		c.Harvest.Species = species
	}
	if numImages, ok := flags["num-images"].(int); ok && numImages > 0 {
		c.Harvest.ImagesPerSpecies = numImages
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Harvest.RootDirectory = outputDir
	}
	if workers, ok := flags["species-workers"].(int); ok && workers > 0 {
		c.Harvest.SpeciesWorkers = workers
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".inatscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
