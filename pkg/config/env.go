package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvConfig      = "GQLPROBE_CONFIG"
	EnvMode        = "GQLPROBE_MODE"
	EnvConcurrency = "GQLPROBE_CONCURRENCY"
	EnvRetries     = "GQLPROBE_RETRIES"
	EnvRate        = "GQLPROBE_RATE"
	EnvTimeout     = "GQLPROBE_TIMEOUT"
	EnvProxy       = "GQLPROBE_PROXY"
	EnvInsecure    = "GQLPROBE_INSECURE"
	EnvUserAgent   = "GQLPROBE_USER_AGENT"
	EnvLogLevel    = "GQLPROBE_LOG_LEVEL"
	EnvLogFormat   = "GQLPROBE_LOG_FORMAT"
)

// ApplyEnv overlays the GQLPROBE_* variables that are set onto cfg. Values
// that do not parse are reported together and leave cfg unchanged for that key.
func ApplyEnv(cfg *Config) error {
	var errs ValidationErrors

	if v := os.Getenv(EnvMode); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv(EnvConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Probe.Concurrency = n
		} else {
			errs = append(errs, envError(EnvConcurrency, v))
		}
	}
	if v := os.Getenv(EnvRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Probe.Retries = n
		} else {
			errs = append(errs, envError(EnvRetries, v))
		}
	}
	if v := os.Getenv(EnvRate); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Probe.Rate = r
		} else {
			errs = append(errs, envError(EnvRate, v))
		}
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		if d, err := parseSeconds(v); err == nil {
			cfg.Transport.Timeout = d
		} else {
			errs = append(errs, envError(EnvTimeout, v))
		}
	}
	if v := os.Getenv(EnvProxy); v != "" {
		cfg.Transport.Proxy = v
	}
	if v := os.Getenv(EnvInsecure); v != "" {
		cfg.Transport.Insecure = isTrue(v)
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		cfg.Transport.UserAgent = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// parseSeconds accepts a Go duration ("45s") or a bare number of seconds.
func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envError(name, value string) *ValidationError {
	return &ValidationError{Field: name, Message: fmt.Sprintf("cannot parse %q", value)}
}
