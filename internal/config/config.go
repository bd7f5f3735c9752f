// Package config loads CLI and runtime configuration from config files,
// environment variables and dotenv files.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem used for config probing; tests may replace it.
var AppFs = afero.NewOsFs()

// Config holds the application configuration.
type Config struct {
	Provider    string
	DatabaseURL string
	SchemaPath  string
	CacheSize   int
	CacheTTL    int // seconds; 0 disables expiry
	Debug       bool
}

// Load reads configuration from (in ascending priority) config file,
// environment, .env and .env.local.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName(".refract")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, ".config", "refract"))

	viper.SetEnvPrefix("REFRACT")
	viper.AutomaticEnv()

	viper.SetDefault("provider", "postgres")
	viper.SetDefault("schema_path", "refract.yaml")
	viper.SetDefault("cache_size", 512)
	viper.SetDefault("cache_ttl", 0)
	viper.SetDefault("debug", false)

	// A missing config file is fine; defaults and env cover it.
	_ = viper.ReadInConfig()

	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	return &Config{
		Provider:    viper.GetString("provider"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SchemaPath:  viper.GetString("schema_path"),
		CacheSize:   viper.GetInt("cache_size"),
		CacheTTL:    viper.GetInt("cache_ttl"),
		Debug:       viper.GetBool("debug"),
	}, nil
}
