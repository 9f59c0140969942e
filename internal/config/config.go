// Package config provides Viper-based configuration loading for the Waygate
// game server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SocketConfig holds TCP listener settings.
type SocketConfig struct {
	// Host is the bind address for the TCP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for client connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for client connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s SocketConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GameConfig holds gameplay settings.
type GameConfig struct {
	// TurnTimeout bounds a human battle turn; 0 disables the turn timer.
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
	// EnemyHealth is the max health of spawned AI enemies.
	EnemyHealth int `mapstructure:"enemy_health"`
	// MapFile is the path of the map YAML; empty selects the built-in map.
	MapFile string `mapstructure:"map_file"`
	// ClassesDir is the directory of class YAML files; empty selects the
	// built-in ruleset.
	ClassesDir string `mapstructure:"classes_dir"`
	// SkillsDir is the directory of skill YAML files.
	SkillsDir string `mapstructure:"skills_dir"`
	// ScriptsDir is the directory of Lua trigger scripts; empty disables
	// scripted triggers.
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Socket  SocketConfig  `mapstructure:"socket"`
	Game    GameConfig    `mapstructure:"game"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error
// describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateSocket(c.Socket); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSocket(s SocketConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("socket.port must be 1-65535, got %d", s.Port))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "socket.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "socket.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.TurnTimeout < 0 {
		errs = append(errs, "game.turn_timeout must not be negative")
	}
	if g.EnemyHealth < 1 {
		errs = append(errs, fmt.Sprintf("game.enemy_health must be >= 1, got %d", g.EnemyHealth))
	}
	if (g.ClassesDir == "") != (g.SkillsDir == "") {
		errs = append(errs, "game.classes_dir and game.skills_dir must be set together")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with WAYGATE_ prefix
	v.SetEnvPrefix("WAYGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the built-in configuration used when no config file is
// given.
//
// Postcondition: The returned Config passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic("config: default configuration invalid: " + err.Error())
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("socket.host", "0.0.0.0")
	v.SetDefault("socket.port", 7777)
	v.SetDefault("socket.read_timeout", "5m")
	v.SetDefault("socket.write_timeout", "30s")

	v.SetDefault("game.turn_timeout", "30s")
	v.SetDefault("game.enemy_health", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
