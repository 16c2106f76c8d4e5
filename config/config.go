package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application-level configuration
type Config struct {
	// Catalog
	BaseURL      string   `yaml:"base_url"`
	Email        string   `yaml:"email"`
	Password     string   `yaml:"password"`
	NavSteps     []string `yaml:"nav_steps"`
	ItemSelector string   `yaml:"item_selector"`
	LaunchPath   string   `yaml:"launch_path"`
	LaunchButton string   `yaml:"launch_button"` // clicked on LaunchPath before NavSteps; empty skips it

	// Browser
	Headless    bool   `yaml:"headless"`
	UserDataDir string `yaml:"user_data_dir"` // keeps cookies between runs when set

	// Extraction
	BatchSize          int           `yaml:"batch_size"`
	SettleInterval     time.Duration `yaml:"settle_interval"` // wait after each scroll before counting
	StallConfirmations int           `yaml:"stall_confirmations"`
	MaxTriggerRetries  int           `yaml:"max_retries"`
	CallTimeout        time.Duration `yaml:"call_timeout"` // upper bound for a single browser call
	MaxItems           int           `yaml:"max_items"`    // 0 disables the ceiling

	// Output
	OutputDir   string `yaml:"output_dir"`
	CSVFilePath string `yaml:"csv_file_path"`

	// Database
	DatabaseURL string `yaml:"database_url"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		BaseURL:            "https://hiring.idenhq.com",
		NavSteps:           []string{"Dashboard", "Inventory", "Products", "Full Catalog"},
		ItemSelector:       "div.p-4.border.rounded-md",
		LaunchPath:         "/instructions",
		LaunchButton:       "Launch Challenge",
		Headless:           true,
		BatchSize:          250,
		SettleInterval:     800 * time.Millisecond,
		StallConfirmations: 2,
		MaxTriggerRetries:  3,
		CallTimeout:        30 * time.Second,
		MaxItems:           50000,
		OutputDir:          "output",
		LogLevel:           "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (later wins).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getEnv("CATALOG_URL", c.BaseURL)
	c.Email = getEnv("CATALOG_EMAIL", c.Email)
	c.Password = getEnv("CATALOG_PASSWORD", c.Password)
	c.NavSteps = getEnvList("NAV_STEPS", c.NavSteps)
	c.ItemSelector = getEnv("ITEM_SELECTOR", c.ItemSelector)
	c.LaunchPath = getEnv("LAUNCH_PATH", c.LaunchPath)
	c.LaunchButton = getEnv("LAUNCH_BUTTON", c.LaunchButton)
	c.Headless = getEnvBool("HEADLESS", c.Headless)
	c.UserDataDir = getEnv("USER_DATA_DIR", c.UserDataDir)
	c.BatchSize = getEnvInt("BATCH_SIZE", c.BatchSize)
	c.SettleInterval = getEnvDuration("SETTLE_INTERVAL", c.SettleInterval)
	c.StallConfirmations = getEnvInt("STALL_CONFIRMATIONS", c.StallConfirmations)
	c.MaxTriggerRetries = getEnvInt("MAX_RETRIES", c.MaxTriggerRetries)
	c.CallTimeout = getEnvDuration("CALL_TIMEOUT", c.CallTimeout)
	c.MaxItems = getEnvInt("MAX_ITEMS", c.MaxItems)
	c.OutputDir = getEnv("OUTPUT_DIR", c.OutputDir)
	c.CSVFilePath = getEnv("CSV_FILE_PATH", c.CSVFilePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
}

// Validate checks that numeric limits are usable before a run starts
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("config error: base URL is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config error: batch size must be positive, got %d", c.BatchSize)
	}
	if c.SettleInterval <= 0 {
		return fmt.Errorf("config error: settle interval must be positive, got %v", c.SettleInterval)
	}
	if c.StallConfirmations < 1 {
		return fmt.Errorf("config error: stall confirmations must be at least 1, got %d", c.StallConfirmations)
	}
	if c.MaxTriggerRetries < 1 {
		return fmt.Errorf("config error: max retries must be at least 1, got %d", c.MaxTriggerRetries)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("config error: call timeout must be positive, got %v", c.CallTimeout)
	}
	if c.MaxItems < 0 {
		return fmt.Errorf("config error: max items must be non-negative, got %d", c.MaxItems)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("config error: output directory is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go duration strings ("800ms") or bare milliseconds
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
