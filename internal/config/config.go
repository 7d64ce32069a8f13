package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// ServerConfig holds configuration variables for the server.
type ServerConfig struct {
	Scheme string
	Host   string
	Port   string
}

// URL returns the main gateway URL for the server.
func (s *ServerConfig) URL() string {
	host := s.Host
	includePort := func() bool {
		if s.Port == "" {
			return false
		}
		if s.Scheme == "http" {
			return s.Port != "80"
		}
		// s.Scheme == "https"
		return s.Port != "443"
	}()
	if includePort {
		host = fmt.Sprintf("%s:%s", host, s.Port)
	}
	uri := url.URL{
		Scheme: s.Scheme,
		Host:   host,
	}
	return uri.String()
}

// Addr returns the listen address for the server.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// DatabaseConfig holds configuration variables for the database.
type DatabaseConfig struct {
	Type string // "badger" (default) or "sqlite"

	Dir  string // Path to store data in (for embedded Badger)
	File string // Path to the database file (for SQLite)
}

// SessionConfig holds configuration variables for server-side sessions.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
}

// Config holds configuration information for the program.
type Config struct {
	Server   *ServerConfig
	Database *DatabaseConfig
	Session  *SessionConfig
	Remain   map[string]interface{} `mapstructure:",remain"`
}

var (
	// Current is the current configuration for the server.
	Current Config

	configPath string
)

func setConfigDefaults() {
	viper.SetDefault("server", map[string]interface{}{
		"scheme": "http",
		"host":   "localhost",
		"port":   "8000",
	})

	viper.SetDefault("database", map[string]interface{}{
		"type": "badger",
	})

	viper.SetDefault("session", map[string]interface{}{
		"cookieName": "taskman_session",
		"ttl":        14 * 24 * time.Hour,
	})
}

// LoadConfig loads the configuration from file and environment,
// falling back to defaults where nothing is set.
func LoadConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.taskman")

	setConfigDefaults()

	viper.SetEnvPrefix("taskman")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No configuration found. Running with defaults...")
			configPath, err = getConfigurationDirectory()
			if err != nil {
				panic(err)
			}
		} else {
			panic(fmt.Errorf("Unable to read config file: %v", err))
		}
	} else {
		configPath = filepath.Dir(viper.ConfigFileUsed())
	}

	err = viper.Unmarshal(&Current)
	if err != nil {
		panic(fmt.Errorf("Error unmarshalling config: %v", err))
	}

	// Set paths with known configPath
	if Current.Database.Dir == "" {
		Current.Database.Dir = filepath.Join(configPath, "data")
	}
	if Current.Database.File == "" {
		Current.Database.File = filepath.Join(configPath, "taskman.db")
	}
}

func getConfigurationDirectory() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".taskman")
	if _, err := os.Stat(configDir); err == nil {
		return configDir, nil
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(configDir, 0770); err == nil {
			return configDir, nil
		}
	} else {
		return "", err
	}
	return os.TempDir(), nil
}
