// Package config provides configuration management for the mesh router.
// It loads configuration from environment variables with sensible defaults
// and validates the configuration before the engine starts serving.
//
// Environment Variables:
//
//   - PORT: Control API port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Optional log file path (default: stdout)
//   - RULES_PATH: Path to the YAML route-rule document loaded at startup.
//     Optional; when unset the engine starts with an empty rule set and
//     waits for rules to be pushed through the control API.
//   - NO_ROUTE_STATUS: HTTP status the data plane is told to use when no
//     route matches (default: 404)
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration values for the mesh router.
// Load it with Load() and validate with Validate() before use.
type Config struct {
	Port          string // Control API port number
	LogLevel      string // Logging level (debug, info, warn, error)
	LogFile       string // Optional log file path
	RulesPath     string // Path to the rule document loaded at startup
	NoRouteStatus int    // Fallback status reported for unmatched requests
}

// Load creates a new Config instance with values loaded from environment
// variables. Unset variables fall back to defaults. Load does not
// validate; call Validate() on the returned Config.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		RulesPath:     getEnv("RULES_PATH", ""),
		NoRouteStatus: getEnvInt("NO_ROUTE_STATUS", 404),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q: must be a number between 1 and 65535", c.Port)
	}

	if c.NoRouteStatus < 100 || c.NoRouteStatus > 599 {
		return fmt.Errorf("invalid NO_ROUTE_STATUS %d: must be a valid HTTP status code", c.NoRouteStatus)
	}

	if c.RulesPath != "" {
		if _, err := os.Stat(c.RulesPath); err != nil {
			return fmt.Errorf("RULES_PATH %q is not readable: %w", c.RulesPath, err)
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
