// Package settings persists what the user entered on the setup page.
package settings

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/viper"
)

// Settings is the user's configuration.
type Settings struct {
	SSID       string `mapstructure:"ssid"`
	Password   string `mapstructure:"password"`
	NTPEnabled bool   `mapstructure:"ntp_enabled"`
	NTPServer  string `mapstructure:"ntp_server"`
	Timezone   string `mapstructure:"timezone"` // IANA name; empty means UTC.
}

// DefaultNTPServer is used until the user picks another.
const DefaultNTPServer = "pool.ntp.org"

// Store is a JSON settings file.  Current returns what was last read or written.
type Store struct {
	path string

	mu      sync.Mutex
	current Settings // must hold mu to read or write.
}

// Open reads the settings at path.  A missing file is not an error; it yields the defaults.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Read(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) viper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	v.SetDefault("ntp_enabled", false)
	v.SetDefault("ntp_server", DefaultNTPServer)
	return v
}

// Read reloads the settings from disk.
func (s *Store) Read() error {
	v := s.viper()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return fmt.Errorf("read settings %s: %w", s.path, err)
		}
	}
	var result Settings
	if err := v.Unmarshal(&result); err != nil {
		return fmt.Errorf("decode settings %s: %w", s.path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = result
	return nil
}

// Current returns the settings as of the last Read or Apply.
func (s *Store) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Apply saves new network settings.  A nil timezone keeps the one already saved.
func (s *Store) Apply(ssid, password string, ntpEnabled bool, timezone *string) error {
	next := s.Current()
	next.SSID, next.Password, next.NTPEnabled = ssid, password, ntpEnabled
	if timezone != nil {
		next.Timezone = *timezone
	}
	return s.write(next)
}

// SetTimezone saves a new time zone and leaves everything else alone.
func (s *Store) SetTimezone(tz string) error {
	next := s.Current()
	next.Timezone = tz
	return s.write(next)
}

func (s *Store) write(next Settings) error {
	v := s.viper()
	v.Set("ssid", next.SSID)
	v.Set("password", next.Password)
	v.Set("ntp_enabled", next.NTPEnabled)
	v.Set("ntp_server", next.NTPServer)
	v.Set("timezone", next.Timezone)
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
	return nil
}
