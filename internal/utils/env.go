package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SafeEnv returns the environment variable value for key, or fallback if empty.
func SafeEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// EnvBool accepts 1/true/yes/on and 0/false/no/off; anything else yields fallback.
func EnvBool(key string, fallback bool) bool {
	switch strings.ToLower(SafeEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func EnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(SafeEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func EnvFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(SafeEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return f
}

// EnvDuration parses Go duration syntax ("15m", "720h").
func EnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(SafeEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
