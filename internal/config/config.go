// Package config validates the environment surface the signaling core and
// its transport layer are constructed from.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated environment configuration.
type Config struct {
	Port string

	MaxClients           int
	MaxRooms             int
	ClientIdleTimeout    time.Duration
	IngressQueueCapacity int

	GoEnv          string
	LogLevel       string
	AllowedOrigins string

	// RateLimitWsIp is a ulule/limiter formatted rate string, e.g. "100-M".
	RateLimitWsIp string
}

// ValidateEnv validates all environment variables and returns a Config.
// Every failure is collected and reported together rather than on first
// error, matching the teacher's aggregate-and-report style.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	cfg.Port = getEnvOrDefault("PORT", "8080")
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	cfg.MaxClients = parseIntEnv("MAX_CLIENTS", 4096, &errs)
	if cfg.MaxClients < 1 || cfg.MaxClients > 65536 {
		errs = append(errs, fmt.Sprintf("MAX_CLIENTS must be between 1 and 65536 (got %d)", cfg.MaxClients))
	}

	cfg.MaxRooms = parseIntEnv("MAX_ROOMS", 2048, &errs)
	if cfg.MaxRooms < 1 || cfg.MaxRooms > 10000 {
		errs = append(errs, fmt.Sprintf("MAX_ROOMS must be between 1 and 10000 (got %d)", cfg.MaxRooms))
	}

	idleSeconds := parseIntEnv("CLIENT_IDLE_TIMEOUT_SECONDS", 60, &errs)
	if idleSeconds < 30 {
		errs = append(errs, fmt.Sprintf("CLIENT_IDLE_TIMEOUT_SECONDS must be at least 30 (got %d)", idleSeconds))
	}
	cfg.ClientIdleTimeout = time.Duration(idleSeconds) * time.Second

	cfg.IngressQueueCapacity = parseIntEnv("INGRESS_QUEUE_CAPACITY", 1024, &errs)
	if cfg.IngressQueueCapacity < 1 {
		errs = append(errs, fmt.Sprintf("INGRESS_QUEUE_CAPACITY must be positive (got %d)", cfg.IngressQueueCapacity))
	}

	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.AllowedOrigins = getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	cfg.RateLimitWsIp = getEnvOrDefault("RATE_LIMIT_WS_IP", "100-M")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)
	return cfg, nil
}

func parseIntEnv(key string, def int, errs *[]string) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be an integer (got '%s')", key, raw))
		return def
	}
	return v
}

func logValidatedConfig(cfg *Config) {
	slog.Info("environment configuration validated",
		"port", cfg.Port,
		"max_clients", cfg.MaxClients,
		"max_rooms", cfg.MaxRooms,
		"client_idle_timeout", cfg.ClientIdleTimeout,
		"ingress_queue_capacity", cfg.IngressQueueCapacity,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"rate_limit_ws_ip", cfg.RateLimitWsIp,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
