package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AuthServer holds all configuration for the auth (realm logon) server.
type AuthServer struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Version check: when strict, a logon proof whose client version hash
	// does not match the build registry is rejected.
	StrictVersionCheck bool `yaml:"strict_version_check"`

	// Wrong-password auto-ban
	WrongPassMaxCount int    `yaml:"wrong_pass_max_count"`
	WrongPassBanTime  int    `yaml:"wrong_pass_ban_time"` // seconds
	WrongPassBanType  string `yaml:"wrong_pass_ban_type"` // "account" or "ip"
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// BanTypeIP is the WrongPassBanType value that bans the peer address
// instead of the account.
const BanTypeIP = "ip"

// DefaultAuthServer returns AuthServer config with sensible defaults.
func DefaultAuthServer() AuthServer {
	return AuthServer{
		BindAddress:        "0.0.0.0",
		Port:               3724,
		StrictVersionCheck: false,
		WrongPassMaxCount:  3,
		WrongPassBanTime:   600,
		WrongPassBanType:   "account",
		Database:           defaultDatabase(),
	}
}

func defaultDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     5432,
		User:     "azerothgo",
		Password: "azerothgo",
		DBName:   "azerothgo_auth",
		SSLMode:  "disable",
	}
}

// LoadAuthServer loads auth server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadAuthServer(path string) (AuthServer, error) {
	cfg := DefaultAuthServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
