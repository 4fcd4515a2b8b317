package config

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/getmockd/gqlprobe/pkg/engine"
	"github.com/getmockd/gqlprobe/pkg/pii"
	"github.com/getmockd/gqlprobe/pkg/probe"
	"github.com/getmockd/gqlprobe/pkg/ratelimit"
	"github.com/getmockd/gqlprobe/pkg/synth"
	"github.com/getmockd/gqlprobe/pkg/transport"
)

// Config is the complete configuration of a scan.
type Config struct {
	Mode          string   `yaml:"mode" json:"mode"`
	Endpoints     []string `yaml:"endpoints,omitempty" json:"endpoints,omitempty"`
	EndpointsFile string   `yaml:"endpointsFile,omitempty" json:"endpointsFile,omitempty"`

	Probe     ProbeConfig     `yaml:"probe" json:"probe"`
	Synth     SynthConfig     `yaml:"synth" json:"synth"`
	Transport TransportConfig `yaml:"transport" json:"transport"`
	Filter    engine.Filter   `yaml:"filter,omitempty" json:"filter,omitempty"`
	PII       PIIConfig       `yaml:"pii,omitempty" json:"pii,omitempty"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// ProbeConfig tunes the executor.
type ProbeConfig struct {
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	Workers     int           `yaml:"workers,omitempty" json:"workers,omitempty"`
	Retries     int           `yaml:"retries" json:"retries"`
	Backoff     time.Duration `yaml:"backoff" json:"backoff"`

	// Rate caps requests per second across the whole scan. Zero is unlimited.
	Rate float64 `yaml:"rate,omitempty" json:"rate,omitempty"`

	// SuccessExpr replaces the built-in success test.
	SuccessExpr string `yaml:"successExpr,omitempty" json:"successExpr,omitempty"`
}

// SynthConfig tunes query synthesis.
type SynthConfig struct {
	Depth     int  `yaml:"depth" json:"depth"`
	MaxPath   int  `yaml:"maxPath" json:"maxPath"`
	NameHints bool `yaml:"nameHints" json:"nameHints"`
}

// PIIConfig extends the keyword taxonomy used to flag personal data.
type PIIConfig struct {
	// Keywords adds keywords per category. Categories outside the built-in
	// five are matched last, with medium severity.
	Keywords map[string][]string `yaml:"keywords,omitempty" json:"keywords,omitempty"`

	// WholeTokens makes keywords of up to three characters match only whole
	// name tokens (userAge but not message).
	WholeTokens bool `yaml:"wholeTokens,omitempty" json:"wholeTokens,omitempty"`
}

// TransportConfig describes the HTTP client.
type TransportConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	Insecure  bool          `yaml:"insecure" json:"insecure"`
	Proxy     string        `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	UserAgent string        `yaml:"userAgent,omitempty" json:"userAgent,omitempty"`

	// Headers are "Key: Value" lines sent with every request.
	Headers []string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// OutputConfig selects report sinks. Empty paths disable a sink.
type OutputConfig struct {
	JSONL   string `yaml:"jsonl,omitempty" json:"jsonl,omitempty"`
	SQLite  string `yaml:"sqlite,omitempty" json:"sqlite,omitempty"`
	Metrics string `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Trace   string `yaml:"trace,omitempty" json:"trace,omitempty"`
	Curl    bool   `yaml:"curl" json:"curl"`
	JSON    bool   `yaml:"json" json:"json"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`

	// File, if set, also receives every record at debug level as JSON.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

// Defaults.
const (
	DefaultMode        = string(engine.ModeChecker)
	DefaultConcurrency = probe.DefaultConcurrency
	DefaultRetries     = probe.DefaultMaxRetries
	DefaultBackoff     = probe.DefaultBackoff
	DefaultTimeout     = transport.DefaultTimeout
	DefaultDepth       = synth.DefaultMaxDepth
	DefaultMaxPath     = pii.DefaultMaxPath
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// Default returns a Config holding every default.
func Default() *Config {
	return &Config{
		Mode: DefaultMode,
		Probe: ProbeConfig{
			Concurrency: DefaultConcurrency,
			Retries:     DefaultRetries,
			Backoff:     DefaultBackoff,
		},
		Synth: SynthConfig{
			Depth:   DefaultDepth,
			MaxPath: DefaultMaxPath,
		},
		Transport: TransportConfig{
			Timeout: DefaultTimeout,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// TransportOptions converts the transport section for transport.New.
func (c *Config) TransportOptions() transport.Options {
	return transport.Options{
		Timeout:  c.Transport.Timeout,
		Insecure: c.Transport.Insecure,
		Proxy:    c.Transport.Proxy,
	}
}

// RequestHeaders parses the configured header lines.
func (c *Config) RequestHeaders() (transport.Headers, error) {
	static, err := transport.ParseHeaders(c.Transport.Headers)
	if err != nil {
		return transport.Headers{}, err
	}
	return transport.Headers{UserAgent: c.Transport.UserAgent, Static: static}, nil
}

// Taxonomy returns the default PII taxonomy extended by the pii section.
// Categories are applied in name order so the result does not depend on map order.
func (c *Config) Taxonomy() *pii.Taxonomy {
	tax := pii.DefaultTaxonomy()
	for _, cat := range slices.Sorted(maps.Keys(c.PII.Keywords)) {
		tax = tax.WithKeywords(pii.Category(strings.ToLower(strings.TrimSpace(cat))), c.PII.Keywords[cat]...)
	}
	if c.PII.WholeTokens {
		tax = tax.WithWholeTokens()
	}
	return tax
}

// Engine returns the scanner configuration described by c. Sinks, logger,
// tracer and metrics are left for the caller.
func (c *Config) Engine() (engine.Config, error) {
	mode, err := engine.ParseMode(c.Mode)
	if err != nil {
		return engine.Config{}, err
	}
	headers, err := c.RequestHeaders()
	if err != nil {
		return engine.Config{}, err
	}
	var limiter probe.Limiter
	if c.Probe.Rate > 0 {
		limiter = ratelimit.NewBucket(c.Probe.Rate, 0)
	}
	return engine.Config{
		Mode:   mode,
		Filter: c.Filter,
		Synth: synth.Options{
			MaxDepth:  c.Synth.Depth,
			NameHints: c.Synth.NameHints,
		},
		MaxPath: c.Synth.MaxPath,
		Probe: probe.Config{
			Concurrency: c.Probe.Concurrency,
			Workers:     c.Probe.Workers,
			MaxRetries:  c.Probe.Retries,
			Backoff:     c.Probe.Backoff,
			Limiter:     limiter,
			Headers:     headers,
		},
		SuccessRule: c.Probe.SuccessExpr,
		Taxonomy:    c.Taxonomy(),
		Headers:     headers,
	}, nil
}
