package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/gqlprobe/pkg/logging"
	"github.com/getmockd/gqlprobe/pkg/metrics"
	"github.com/getmockd/gqlprobe/pkg/target"
)

// targetFlags holds all flags for the target command.
type targetFlags struct {
	schemaPath string
	addr       string
	latency    time.Duration
	rateLimit  float64
	burst      int
	failures   []string
}

var targetFlagVals targetFlags

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Serve a local GraphQL endpoint built from an SDL file",
	Long: `Serve a GraphQL endpoint that answers introspection from an SDL schema and
returns generated data for every query, so scans can be tried out locally.

The endpoint is served at /graphql and Prometheus metrics at /metrics.
--fail makes a root field answer with an error: 'user=500' returns HTTP 500,
'user=200' returns a GraphQL error with status 200.`,
	Example: `  gqlprobe target --schema schema.graphql
  gqlprobe target --schema schema.graphql --addr 127.0.0.1:8080 --fail createUser=403 --latency 200ms`,
	Args: cobra.NoArgs,
	RunE: runTarget,
}

func init() {
	f := &targetFlagVals

	targetCmd.Flags().StringVarP(&f.schemaPath, "schema", "s", "", "Path to the SDL schema [required]")
	targetCmd.Flags().StringVar(&f.addr, "addr", ":4000", "Listen address")
	targetCmd.Flags().DurationVar(&f.latency, "latency", 0, "Delay added to every request")
	targetCmd.Flags().Float64Var(&f.rateLimit, "rate-limit", 0, "Answer 429 above this many requests per second (0 = unlimited)")
	targetCmd.Flags().IntVar(&f.burst, "burst", 0, "Requests allowed in a burst under --rate-limit (default one second's worth)")
	targetCmd.Flags().StringArrayVar(&f.failures, "fail", nil, "Fail a root field, as FIELD or FIELD=STATUS (repeatable)")

	_ = targetCmd.MarkFlagRequired("schema")

	rootCmd.AddCommand(targetCmd)
}

func runTarget(cmd *cobra.Command, _ []string) error {
	f := &targetFlagVals

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(logLevel),
		Format: logging.ParseFormat(logFormat),
		Output: cmd.ErrOrStderr(),
	})

	if f.rateLimit < 0 || f.burst < 0 {
		return errors.New("--rate-limit and --burst must not be negative")
	}

	reg := metrics.NewRegistry()
	srv, err := target.NewFromFile(f.schemaPath,
		target.WithLatency(f.latency),
		target.WithRateLimit(f.rateLimit, f.burst),
		target.WithLogger(log.With("component", "target")),
		target.WithMetrics(reg),
	)
	if err != nil {
		return err
	}
	for _, spec := range f.failures {
		field, status, err := parseFailure(spec)
		if err != nil {
			return err
		}
		srv.FailField(field, status)
	}

	ln, err := net.Listen("tcp", f.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.addr, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[+] Serving %s at http://%s/graphql\n", f.schemaPath, ln.Addr())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, ln, newTargetMux(srv, reg), log)
}

func newTargetMux(srv *target.Server, reg *metrics.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/graphql", srv)
	mux.Handle("/metrics", reg.Handler())
	return mux
}

// serve runs handler on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, log *slog.Logger) error {
	hs := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- hs.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down target")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// parseFailure parses FIELD or FIELD=STATUS. A bare field fails with 500.
func parseFailure(s string) (string, int, error) {
	field, code, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)
	if field == "" {
		return "", 0, fmt.Errorf("invalid --fail %q: missing field name", s)
	}
	if !ok {
		return field, http.StatusInternalServerError, nil
	}
	status, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil || status < 100 || status > 599 {
		return "", 0, fmt.Errorf("invalid --fail %q: status must be an HTTP status code", s)
	}
	return field, status, nil
}
