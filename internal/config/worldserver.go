package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WorldServer holds all configuration for the world server.
type WorldServer struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Realm identity: clients must present this realm id in AuthSession.
	RealmID uint32 `yaml:"realm_id"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Highest expansion granted to sessions regardless of account level.
	Expansion uint8 `yaml:"expansion"`

	// Integrity scanning: when enabled, only clients reporting a scannable
	// OS (Win/OSX) are allowed to authenticate.
	WardenEnabled bool `yaml:"warden_enabled"`

	// Minimum account security level required to enter a locked-down realm.
	// 0 means the realm is open to everyone.
	MinSecurityLevel uint8 `yaml:"min_security_level"`

	// Overspeed ping policing: pings arriving faster than one per 27-second
	// window count against this limit; exceeding it disconnects
	// non-privileged accounts.
	MaxOverspeedPings int `yaml:"max_overspeed_pings"`

	// Timeouts
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // idle client disconnect
	WriteTimeout time.Duration `yaml:"write_timeout"` // per-write deadline
}

// DefaultWorldServer returns WorldServer config with sensible defaults.
func DefaultWorldServer() WorldServer {
	return WorldServer{
		BindAddress:       "0.0.0.0",
		Port:              8085,
		RealmID:           1,
		Expansion:         2,
		WardenEnabled:     false,
		MinSecurityLevel:  0,
		MaxOverspeedPings: 2,
		ReadTimeout:       120 * time.Second,
		WriteTimeout:      5 * time.Second,
		Database:          defaultDatabase(),
	}
}

// LoadWorldServer loads world server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadWorldServer(path string) (WorldServer, error) {
	cfg := DefaultWorldServer()

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
