// Package settings manages persistent user settings for the ixtopo CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/newtron-network/ixtopo/pkg/util"
)

// Default values used when a setting is not stored
const (
	DefaultBackend    = "sqlite"
	DefaultRedisAddr  = "127.0.0.1:6379"
	DefaultSQLitePath = "ixtopo.db"
)

// Settings holds persistent user preferences. Command-line flags override
// every field.
type Settings struct {
	// Backend is the default store backend: memory, redis or sqlite
	Backend string `json:"backend,omitempty"`

	RedisAddr string `json:"redis_addr,omitempty"`
	RedisDB   int    `json:"redis_db,omitempty"`

	// SQLitePath is the database file of the sqlite backend
	SQLitePath string `json:"sqlite_path,omitempty"`

	// SSHHost and SSHUser tunnel the Redis connection when set
	SSHHost string `json:"ssh_host,omitempty"`
	SSHUser string `json:"ssh_user,omitempty"`

	// AuditLog is the audit log file; empty disables auditing
	AuditLog string `json:"audit_log,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ixtopo_settings.json"
	}
	return filepath.Join(home, ".ixtopo", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// 0600: the file may name SSH hosts and users
	return os.WriteFile(path, data, 0600)
}

// GetBackend returns the backend name (with fallback)
func (s *Settings) GetBackend() string {
	if s.Backend != "" {
		return s.Backend
	}
	return DefaultBackend
}

// GetRedisAddr returns the Redis address (with fallback)
func (s *Settings) GetRedisAddr() string {
	if s.RedisAddr != "" {
		return s.RedisAddr
	}
	return DefaultRedisAddr
}

// GetSQLitePath returns the sqlite database path (with fallback)
func (s *Settings) GetSQLitePath() string {
	if s.SQLitePath != "" {
		return s.SQLitePath
	}
	return DefaultSQLitePath
}

// setters maps setting keys to their parsers
var setters = map[string]func(s *Settings, v string) error{
	"backend": func(s *Settings, v string) error {
		switch v {
		case "", "memory", "redis", "sqlite":
			s.Backend = v
			return nil
		}
		return fmt.Errorf("%w: unknown backend %q (want memory, redis or sqlite)", util.ErrInvalidConfig, v)
	},
	"redis_addr": func(s *Settings, v string) error { s.RedisAddr = v; return nil },
	"redis_db": func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: invalid redis_db %q", util.ErrInvalidConfig, v)
		}
		s.RedisDB = n
		return nil
	},
	"sqlite_path": func(s *Settings, v string) error { s.SQLitePath = v; return nil },
	"ssh_host":    func(s *Settings, v string) error { s.SSHHost = v; return nil },
	"ssh_user":    func(s *Settings, v string) error { s.SSHUser = v; return nil },
	"audit_log":   func(s *Settings, v string) error { s.AuditLog = v; return nil },
}

// Keys returns the settable keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a setting by key
func (s *Settings) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	return set(s, value)
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
