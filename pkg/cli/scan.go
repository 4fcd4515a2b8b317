package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/gqlprobe/internal/id"
	"github.com/getmockd/gqlprobe/pkg/config"
	"github.com/getmockd/gqlprobe/pkg/engine"
	"github.com/getmockd/gqlprobe/pkg/logging"
	"github.com/getmockd/gqlprobe/pkg/metrics"
	"github.com/getmockd/gqlprobe/pkg/report"
	"github.com/getmockd/gqlprobe/pkg/tracing"
	"github.com/getmockd/gqlprobe/pkg/transport"
)

// scanFlags holds the flags shared by scan and pii.
type scanFlags struct {
	configPath  string
	urls        []string
	file        string
	mode        string
	threads     int
	retries     int
	backoff     time.Duration
	rate        float64
	timeout     time.Duration
	depth       int
	maxPath     int
	piiKeywords []string
	wholeTokens bool
	nameHints   bool
	successExpr string
	proxy       string
	insecure    bool
	userAgent   string
	headers     []string
	include     []string
	exclude     []string
	jsonlPath   string
	sqlitePath  string
	metricsPath string
	tracePath   string
	curl        bool
	logFile     string
}

var (
	scanFlagVals scanFlags
	piiFlagVals  scanFlags
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Probe every operation of one or more GraphQL endpoints",
	Long: `Introspect each endpoint, synthesize one document per query and mutation
field and send them all, reporting the status of every operation.

With --mode pii only fields whose names look like personal data are probed;
--mode both does both and reports each distinct query once.`,
	Example: `  # Probe a single endpoint
  gqlprobe scan -u https://api.example.com/graphql

  # A list of endpoints through Tor, skipping mutations
  gqlprobe scan -f urls.txt --proxy socks5://127.0.0.1:9050 --exclude 'mutation.*'

  # Keep results for later
  gqlprobe scan -u https://api.example.com/graphql --jsonl out.jsonl --sqlite scans.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScan(cmd, &scanFlagVals, "")
	},
}

var piiCmd = &cobra.Command{
	Use:   "pii",
	Short: "Probe only fields that look like personal data (scan --mode pii)",
	Example: `  gqlprobe pii -u https://api.example.com/graphql --curl`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScan(cmd, &piiFlagVals, engine.ModePII)
	},
}

func init() {
	addScanFlags(scanCmd, &scanFlagVals, true)
	addScanFlags(piiCmd, &piiFlagVals, false)
	rootCmd.AddCommand(scanCmd, piiCmd)
}

func addScanFlags(cmd *cobra.Command, f *scanFlags, withMode bool) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to a YAML config file")
	fs.StringArrayVarP(&f.urls, "url", "u", nil, "GraphQL endpoint URL (repeatable)")
	fs.StringVarP(&f.file, "file", "f", "", "File with one endpoint URL per line")
	if withMode {
		fs.StringVar(&f.mode, "mode", config.DefaultMode, "Scan mode (checker, pii, both)")
	}
	fs.IntVarP(&f.threads, "threads", "t", config.DefaultConcurrency, "Maximum concurrent requests")
	fs.IntVar(&f.retries, "retries", config.DefaultRetries, "Retries after a transport failure")
	fs.DurationVar(&f.backoff, "backoff", config.DefaultBackoff, "Delay between retries")
	fs.Float64Var(&f.rate, "rate", 0, "Maximum requests per second across the scan (0 = unlimited)")
	fs.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "Per-request timeout")
	fs.IntVar(&f.depth, "depth", config.DefaultDepth, "Maximum selection depth")
	fs.IntVar(&f.maxPath, "max-path", config.DefaultMaxPath, "Longest field path used to reach a PII field")
	fs.StringArrayVar(&f.piiKeywords, "pii-keyword", nil, "Extra PII keyword as CATEGORY=KEYWORD (repeatable)")
	fs.BoolVar(&f.wholeTokens, "pii-whole-tokens", false, "Match PII keywords of 3 characters or fewer against whole name tokens only")
	fs.BoolVar(&f.nameHints, "name-hints", false, "Derive string arguments from their names (email, limit, ...)")
	fs.StringVar(&f.successExpr, "success-expr", "", "Expression deciding success (status, body, contentType, errors, hasData)")
	fs.StringVar(&f.proxy, "proxy", "", "Proxy URL (http, https or socks5)")
	fs.BoolVarP(&f.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	fs.StringVar(&f.userAgent, "user-agent", "", "User-Agent header (default "+transport.DefaultUserAgent+")")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, "Extra request header 'Key: Value' (repeatable)")
	fs.StringSliceVar(&f.include, "include", nil, "Only probe operations matching these globs (e.g. 'query.*')")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "Skip operations matching these globs")
	fs.StringVar(&f.jsonlPath, "jsonl", "", "Append one JSON line per result to this file")
	fs.StringVar(&f.sqlitePath, "sqlite", "", "Record the run in this SQLite database")
	fs.StringVar(&f.metricsPath, "metrics", "", "Write Prometheus metrics to this file when done")
	fs.StringVar(&f.tracePath, "trace", "", "Write OpenTelemetry spans to this file as JSON lines")
	fs.BoolVar(&f.curl, "curl", false, "Print a curl command for every working operation")
	fs.StringVar(&f.logFile, "log-file", "", "Also append debug-level JSON logs to this file")
}

// loadScanConfig layers defaults, the config file, the environment and the
// flags that were set, then validates the result.
func loadScanConfig(cmd *cobra.Command, f *scanFlags, mode engine.Mode) (*config.Config, error) {
	fs := cmd.Flags()
	if fs.Changed("url") && fs.Changed("file") {
		return nil, errors.New("--url and --file cannot be used together")
	}

	path := f.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = config.FindLocal(wd)
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if fs.Changed("url") {
		cfg.Endpoints, cfg.EndpointsFile = f.urls, ""
	}
	if fs.Changed("file") {
		cfg.Endpoints, cfg.EndpointsFile = nil, f.file
	}
	if fs.Changed("mode") {
		cfg.Mode = f.mode
	}
	if mode != "" {
		cfg.Mode = string(mode)
	}
	if fs.Changed("threads") {
		cfg.Probe.Concurrency = f.threads
	}
	if fs.Changed("retries") {
		cfg.Probe.Retries = f.retries
	}
	if fs.Changed("backoff") {
		cfg.Probe.Backoff = f.backoff
	}
	if fs.Changed("rate") {
		cfg.Probe.Rate = f.rate
	}
	if fs.Changed("success-expr") {
		cfg.Probe.SuccessExpr = f.successExpr
	}
	if fs.Changed("timeout") {
		cfg.Transport.Timeout = f.timeout
	}
	if fs.Changed("depth") {
		cfg.Synth.Depth = f.depth
	}
	if fs.Changed("max-path") {
		cfg.Synth.MaxPath = f.maxPath
	}
	if fs.Changed("pii-keyword") {
		if cfg.PII.Keywords == nil {
			cfg.PII.Keywords = make(map[string][]string)
		}
		for _, kv := range f.piiKeywords {
			cat, kw, ok := strings.Cut(kv, "=")
			if !ok || strings.TrimSpace(cat) == "" || strings.TrimSpace(kw) == "" {
				return nil, fmt.Errorf("invalid --pii-keyword %q: want CATEGORY=KEYWORD", kv)
			}
			cat = strings.TrimSpace(cat)
			cfg.PII.Keywords[cat] = append(cfg.PII.Keywords[cat], strings.TrimSpace(kw))
		}
	}
	if fs.Changed("pii-whole-tokens") {
		cfg.PII.WholeTokens = f.wholeTokens
	}
	if fs.Changed("name-hints") {
		cfg.Synth.NameHints = f.nameHints
	}
	if fs.Changed("proxy") {
		cfg.Transport.Proxy = f.proxy
	}
	if fs.Changed("insecure") {
		cfg.Transport.Insecure = f.insecure
	}
	if fs.Changed("user-agent") {
		cfg.Transport.UserAgent = f.userAgent
	}
	if fs.Changed("header") {
		cfg.Transport.Headers = append(cfg.Transport.Headers, f.headers...)
	}
	if fs.Changed("include") {
		cfg.Filter.Include = f.include
	}
	if fs.Changed("exclude") {
		cfg.Filter.Exclude = f.exclude
	}
	if fs.Changed("jsonl") {
		cfg.Output.JSONL = f.jsonlPath
	}
	if fs.Changed("sqlite") {
		cfg.Output.SQLite = f.sqlitePath
	}
	if fs.Changed("metrics") {
		cfg.Output.Metrics = f.metricsPath
	}
	if fs.Changed("trace") {
		cfg.Output.Trace = f.tracePath
	}
	if fs.Changed("curl") {
		cfg.Output.Curl = f.curl
	}
	if fs.Changed("json") {
		cfg.Output.JSON = jsonOutput
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if fs.Changed("log-file") {
		cfg.Log.File = f.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runScan(cmd *cobra.Command, f *scanFlags, mode engine.Mode) (err error) {
	cfg, err := loadScanConfig(cmd, f, mode)
	if err != nil {
		return err
	}

	log, closeLog, err := newScanLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	endpoints := cfg.Endpoints
	if cfg.EndpointsFile != "" {
		if endpoints, err = engine.ReadEndpointsFile(cfg.EndpointsFile); err != nil {
			return err
		}
	}
	if len(endpoints) == 0 {
		return fmt.Errorf("%w: use --url or --file", engine.ErrNoEndpoints)
	}

	client, err := transport.New(cfg.TransportOptions())
	if err != nil {
		return err
	}
	ec, err := cfg.Engine()
	if err != nil {
		return err
	}

	tp := tracing.Nop()
	if cfg.Output.Trace != "" {
		if tp, err = tracing.Open(cfg.Output.Trace); err != nil {
			return err
		}
	}
	defer func() {
		if serr := tp.Shutdown(context.Background()); serr != nil && err == nil {
			err = fmt.Errorf("failed to flush traces: %w", serr)
		}
	}()

	runID := id.RunID()
	sinks, err := openSinks(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), runID)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	ec.Sinks = sinks
	ec.Logger = log
	ec.Tracer = tp.Tracer()
	ec.Metrics = metrics.NewProbe(reg).WithLogger(log)

	scanner, err := engine.New(client, ec)
	if err != nil {
		_ = engine.NewFanout(sinks...).Close()
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Debug("scan started", "run_id", runID, "mode", cfg.Mode, "endpoints", len(endpoints))
	reports, scanErr := scanner.Scan(ctx, endpoints)
	closeErr := scanner.Close()

	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}
	log.Debug("scan finished", "run_id", runID, "endpoints", len(reports), "failed", failed)

	var metricsErr error
	if cfg.Output.Metrics != "" {
		metricsErr = reg.WriteFile(cfg.Output.Metrics)
	}
	return errors.Join(scanErr, closeErr, metricsErr)
}

// newScanLogger logs to stderr as configured. With log.file set it also appends
// every record at debug level as JSON to that file.
func newScanLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, func() error, error) {
	console := logging.NewHandler(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
		Output: stderr,
	})
	if cfg.Log.File == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	file := logging.NewHandler(logging.Config{
		Level:  logging.LevelDebug,
		Format: logging.FormatJSON,
		Output: f,
	})
	return logging.Tee(console, file), f.Close, nil
}

// openSinks builds the sinks selected by cfg. The summary comes last so its
// totals print after everything else when the sinks are closed. With --json
// stdout carries only result records and the summary goes to stderr.
func openSinks(cfg *config.Config, stdout, stderr io.Writer, runID string) ([]engine.Sink, error) {
	var sinks []engine.Sink
	fail := func(err error) ([]engine.Sink, error) {
		_ = engine.NewFanout(sinks...).Close()
		return nil, err
	}

	if cfg.Output.JSON {
		sinks = append(sinks, report.NewJSONL(stdout, runID))
	} else {
		var opts []report.ConsoleOption
		if cfg.Output.Curl {
			opts = append(opts, report.WithCurl())
		}
		sinks = append(sinks, report.NewConsole(stdout, opts...))
	}

	if cfg.Output.JSONL != "" {
		j, err := report.CreateJSONL(cfg.Output.JSONL, runID)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, j)
	}
	if cfg.Output.SQLite != "" {
		db, err := report.OpenSQLite(cfg.Output.SQLite, runID)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, db)
	}

	if cfg.Output.JSON {
		sinks = append(sinks, report.NewSummary(stderr, true))
	} else {
		sinks = append(sinks, report.NewSummary(stdout, false))
	}
	return sinks, nil
}
