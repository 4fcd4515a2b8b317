package config

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/getmockd/gqlprobe/pkg/engine"
	"github.com/getmockd/gqlprobe/pkg/probe"
	"github.com/getmockd/gqlprobe/pkg/transport"
)

// ErrInvalidConfig matches every error returned by Validate and Parse.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found in a Config.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Is makes ValidationErrors match ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool { return target == ErrInvalidConfig }

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// Validate checks every field and returns ValidationErrors, or nil.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := engine.ParseMode(c.Mode); err != nil {
		add("mode", "%v", err)
	}

	if len(c.Endpoints) > 0 && c.EndpointsFile != "" {
		add("endpoints", "cannot be combined with endpointsFile")
	}
	for i, ep := range c.Endpoints {
		if err := validateEndpoint(ep); err != nil {
			add(fmt.Sprintf("endpoints[%d]", i), "%v", err)
		}
	}

	if c.Probe.Concurrency < 1 {
		add("probe.concurrency", "must be at least 1, got %d", c.Probe.Concurrency)
	}
	if c.Probe.Workers < 0 {
		add("probe.workers", "must not be negative, got %d", c.Probe.Workers)
	}
	if c.Probe.Retries < 0 {
		add("probe.retries", "must not be negative, got %d", c.Probe.Retries)
	}
	if c.Probe.Backoff < 0 {
		add("probe.backoff", "must not be negative, got %s", c.Probe.Backoff)
	}
	if c.Probe.Rate < 0 || math.IsNaN(c.Probe.Rate) || math.IsInf(c.Probe.Rate, 0) {
		add("probe.rate", "must be a finite non-negative number, got %g", c.Probe.Rate)
	}
	if c.Probe.SuccessExpr != "" {
		if _, err := probe.NewClassifier(probe.WithSuccessRule(c.Probe.SuccessExpr)); err != nil {
			add("probe.successExpr", "%v", err)
		}
	}

	if c.Synth.Depth < 1 {
		add("synth.depth", "must be at least 1, got %d", c.Synth.Depth)
	}
	if c.Synth.MaxPath < 1 {
		add("synth.maxPath", "must be at least 1, got %d", c.Synth.MaxPath)
	}

	if c.Transport.Timeout <= 0 {
		add("transport.timeout", "must be positive, got %s", c.Transport.Timeout)
	}
	if c.Transport.Proxy != "" {
		u, err := url.Parse(c.Transport.Proxy)
		switch {
		case err != nil:
			add("transport.proxy", "%v", err)
		case !validProxySchemes[strings.ToLower(u.Scheme)]:
			add("transport.proxy", "unsupported scheme %q (want http, https or socks5)", u.Scheme)
		}
	}
	if _, err := transport.ParseHeaders(c.Transport.Headers); err != nil {
		add("transport.headers", "%v", err)
	}

	if err := c.Filter.Validate(); err != nil {
		add("filter", "%v", err)
	}

	for _, cat := range slices.Sorted(maps.Keys(c.PII.Keywords)) {
		if strings.TrimSpace(cat) == "" {
			add("pii.keywords", "category name must not be empty")
			continue
		}
		if !slices.ContainsFunc(c.PII.Keywords[cat], func(kw string) bool { return strings.TrimSpace(kw) != "" }) {
			add("pii.keywords."+cat, "needs at least one keyword")
		}
	}

	for _, out := range []struct{ field, path string }{
		{"output.jsonl", c.Output.JSONL},
		{"output.sqlite", c.Output.SQLite},
		{"output.metrics", c.Output.Metrics},
		{"output.trace", c.Output.Trace},
	} {
		if err := validateParentDir(out.path); err != nil {
			add(out.field, "%v", err)
		}
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "unknown level %q", c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		add("log.format", "unknown format %q (want text or json)", c.Log.Format)
	}
	if err := validateParentDir(c.Log.File); err != nil {
		add("log.file", "%v", err)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// validateParentDir checks that the directory holding path exists.
func validateParentDir(path string) error {
	if path == "" || path == "-" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("parent directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("parent path is not a directory: %s", dir)
	}
	return nil
}
