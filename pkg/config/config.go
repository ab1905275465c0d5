package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for all environment variable overrides
const EnvPrefix = "IGVISION_"

// Config holds all configuration options for a scrape-and-annotate run
type Config struct {
	// Scraping service
	Apify ApifyConfig `yaml:"apify" json:"apify"`

	// Annotation service
	Vision VisionConfig `yaml:"vision" json:"vision"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Media download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Retry policy for network calls
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Terminal output preferences
	UI UIConfig `yaml:"ui" json:"ui"`
}

// ApifyConfig holds the scraping service configuration
type ApifyConfig struct {
	Token        string        `yaml:"token" json:"token"`
	Actor        string        `yaml:"actor" json:"actor"`
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// VisionConfig holds the annotation service configuration
type VisionConfig struct {
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	Concurrency     int    `yaml:"concurrency" json:"concurrency"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// DownloadConfig holds media download configuration
type DownloadConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	Concurrency       int           `yaml:"concurrency" json:"concurrency"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
}

// RetryConfig holds retry configuration; MaxAttempts of 1 disables retries
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" json:"multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// UIConfig holds terminal output preferences
type UIConfig struct {
	Color         bool `yaml:"color" json:"color"`
	Notifications bool `yaml:"notifications" json:"notifications"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Apify: ApifyConfig{
			Actor:        "apify/instagram-scraper",
			BaseURL:      "https://api.apify.com/v2",
			PollInterval: 5 * time.Second,
			Timeout:      30 * time.Second,
		},
		Vision: VisionConfig{
			Concurrency: 1,
		},
		Output: OutputConfig{
			BaseDirectory: "instagram_downloads",
		},
		Download: DownloadConfig{
			Timeout:           30 * time.Second,
			Concurrency:       1,
			RequestsPerMinute: 0, // 0 means unpaced
		},
		Retry: RetryConfig{
			MaxAttempts:    1,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		UI: UIConfig{
			Color:         true,
			Notifications: false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if token := os.Getenv(EnvPrefix + "APIFY_TOKEN"); token != "" {
		c.Apify.Token = token
	}
	if actor := os.Getenv(EnvPrefix + "APIFY_ACTOR"); actor != "" {
		c.Apify.Actor = actor
	}
	if baseURL := os.Getenv(EnvPrefix + "APIFY_BASE_URL"); baseURL != "" {
		c.Apify.BaseURL = baseURL
	}
	if creds := os.Getenv(EnvPrefix + "VISION_CREDENTIALS"); creds != "" {
		c.Vision.CredentialsFile = creds
	} else if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" && c.Vision.CredentialsFile == "" {
		c.Vision.CredentialsFile = creds
	}
	if outputDir := os.Getenv(EnvPrefix + "OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	intVars := map[string]*int{
		"DOWNLOAD_CONCURRENCY": &c.Download.Concurrency,
		"VISION_CONCURRENCY":   &c.Vision.Concurrency,
		"REQUESTS_PER_MINUTE":  &c.Download.RequestsPerMinute,
		"MAX_ATTEMPTS":         &c.Retry.MaxAttempts,
	}
	for name, target := range intVars {
		raw := os.Getenv(EnvPrefix + name)
		if raw == "" {
			continue
		}
		val, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			continue
		}
		*target = val
	}

	if timeout := os.Getenv(EnvPrefix + "DOWNLOAD_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sDOWNLOAD_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Download.Timeout = d
		}
	}

	if notify := os.Getenv(EnvPrefix + "NOTIFICATIONS"); notify != "" {
		c.UI.Notifications = strings.ToLower(notify) == "true"
	}

	if logLevel := os.Getenv(EnvPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv(EnvPrefix + "LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
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

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"igvision.yaml",
		"igvision.yml",
		".igvision.yaml",
		".igvision.yml",
		filepath.Join(home, ".config", "igvision", "config.yaml"),
		filepath.Join(home, ".igvision.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credentials are not checked
// here because they may still be supplied by a credential store.
func (c *Config) Validate() error {
	var errs []error

	if c.Apify.Actor == "" {
		errs = append(errs, errors.New("apify actor is required"))
	}
	if c.Apify.BaseURL == "" {
		errs = append(errs, errors.New("apify base URL is required"))
	}
	if c.Apify.PollInterval <= 0 {
		errs = append(errs, errors.New("apify poll interval must be positive"))
	}

	if c.Vision.Concurrency < 1 || c.Vision.Concurrency > 16 {
		errs = append(errs, errors.New("vision concurrency must be between 1 and 16"))
	}

	if c.Download.Concurrency < 1 || c.Download.Concurrency > 16 {
		errs = append(errs, errors.New("download concurrency must be between 1 and 16"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		errs = append(errs, errors.New("retry max attempts must be between 1 and 10"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level: %q", c.Logging.Level))
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("invalid log format: %q", c.Logging.Format))
	}

	return errors.Join(errs...)
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
	if output, ok := flags["output"].(string); ok && output != "" {
		c.Output.BaseDirectory = output
	}
	if token, ok := flags["apify-token"].(string); ok && token != "" {
		c.Apify.Token = token
	}
	if creds, ok := flags["vision-credentials"].(string); ok && creds != "" {
		c.Vision.CredentialsFile = creds
	}
	if concurrent, ok := flags["download-concurrency"].(int); ok && concurrent > 0 {
		c.Download.Concurrency = concurrent
	}
	if concurrent, ok := flags["vision-concurrency"].(int); ok && concurrent > 0 {
		c.Vision.Concurrency = concurrent
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Retry.MaxAttempts = attempts
	}
	if timeout, ok := flags["download-timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.Timeout = timeout
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if notify, ok := flags["notifications"].(bool); ok {
		c.UI.Notifications = notify
	}
	if color, ok := flags["color"].(bool); ok {
		c.UI.Color = color
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: command line flags > environment (.env included) > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igvision.env"))

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
