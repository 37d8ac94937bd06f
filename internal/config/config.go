package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Network    NetworkConfig    `mapstructure:"network"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Thumbnail  ThumbnailConfig  `mapstructure:"thumbnail"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type NetworkConfig struct {
	Timeout        int      `mapstructure:"timeout"`
	UserAgent      string   `mapstructure:"user_agent"`
	BrowserAgent   string   `mapstructure:"browser_agent"`
	MaxBodyMB      int      `mapstructure:"max_body_mb"`
	Cookies        []string `mapstructure:"cookies"`
	BrowserCookies string   `mapstructure:"browser_cookies"`
}

type StorageConfig struct {
	DBPath    string `mapstructure:"db_path"`
	UploadDir string `mapstructure:"upload_dir"`
	UploadURL string `mapstructure:"upload_url"`
}

type ThumbnailConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Size         int    `mapstructure:"size"`
	Quality      int    `mapstructure:"quality"`
	TinifyAPIKey string `mapstructure:"tinify_api_key"`
}

type ExtractionConfig struct {
	ExcerptFallback bool `mapstructure:"excerpt_fallback"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			Timeout:      11,
			UserAgent:    "",
			BrowserAgent: "",
			MaxBodyMB:    16,
			Cookies:      []string{},
		},
		Storage: StorageConfig{
			DBPath:    "unfurl.db",
			UploadDir: "uploads",
			UploadURL: "/uploads",
		},
		Thumbnail: ThumbnailConfig{
			Enabled: true,
			Size:    200,
			Quality: 90,
		},
		Extraction: ExtractionConfig{
			ExcerptFallback: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(configFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return cfg, fmt.Errorf("error finding home directory: %w", err)
			}
			configHome = filepath.Join(home, ".config")
		}

		configDir := filepath.Join(configHome, "unfurl")
		v.AddConfigPath(configDir)
		v.SetConfigType("toml")
		v.SetConfigName("config")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("UNFURL")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

func (c *Config) CreateExampleConfig(configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	exampleContent := `# unfurl configuration file

[network]
# Request settings
timeout = 11              # seconds per outbound fetch
user_agent = ""           # Custom user agent (empty = default browser string)
browser_agent = ""        # Pick a user agent by family: chrome, firefox, safari, edge
max_body_mb = 16          # Maximum response body size in MB

# Cookies sent with page fetches, as "name=value" pairs
cookies = []

# Source cookies from a local browser's store (chrome, firefox, safari)
browser_cookies = ""

[storage]
db_path = "unfurl.db"     # SQLite database holding posts and their metadata
upload_dir = "uploads"    # Directory thumbnails are written to
upload_url = "/uploads"   # Public URL prefix mapped onto upload_dir

[thumbnail]
enabled = true
size = 200                # Square geometry in pixels
quality = 90              # JPEG quality

# Tinify (tinypng.com) API key for further compression (optional)
tinify_api_key = ""

[extraction]
# Derive a description from readable page content when no meta tag declares one
excerpt_fallback = false

[logging]
level = "info"            # debug, info, warn, error
format = "text"           # text, json
`

	return os.WriteFile(configPath, []byte(exampleContent), 0644)
}
