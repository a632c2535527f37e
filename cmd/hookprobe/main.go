package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	_ "go.uber.org/automaxprocs"

	"github.com/mattjoyce/hookprobe/internal/config"
	"github.com/mattjoyce/hookprobe/internal/inspect"
	"github.com/mattjoyce/hookprobe/internal/log"
	"github.com/mattjoyce/hookprobe/internal/webhook"
)

const (
	version   = "0.1.0"
	envPrefix = "HOOKPROBE"
)

// Flags are the command line (and HOOKPROBE_* environment) overrides.
// Zero values mean "not given" and leave the config file or defaults in place.
type Flags struct {
	Config        string `ff:"long: config, nodefault, usage: path to a YAML config file"`
	Secret        string `ff:"short: s, long: secret, nodefault, usage: HMAC-SHA256 secret (default sk_prod_123456)"`
	Host          string `ff:"long: host, nodefault, usage: listen host (default 0.0.0.0)"`
	Port          int    `ff:"short: p, long: port, nodefault, usage: listen port (default 3000)"`
	MaxBodySize   string `ff:"long: max-body-size, nodefault, usage: largest accepted request body (default 2MB)"`
	LogLevel      string `ff:"long: log-level, nodefault, usage: 'debug | info | warn | error'"`
	LogFormat     string `ff:"long: log-format, nodefault, usage: 'text | json'"`
	Color         string `ff:"long: color, nodefault, usage: 'report colors (auto | always | never)'"`
	MetricsListen string `ff:"long: metrics-listen, nodefault, usage: serve Prometheus /metrics on this address"`
	Version       bool   `ff:"long: version, default: false, usage: print version and exit"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd, flags, err := newCommand(stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to build flags: %v\n", err)
		return 1
	}

	if err := cmd.Parse(args, ff.WithEnvVarPrefix(envPrefix)); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintln(stdout, ffhelp.Command(cmd))
			return 0
		}
		fmt.Fprintf(stderr, "Failed to parse flags: %v\n\n", err)
		fmt.Fprintln(stderr, ffhelp.Command(cmd))
		return 1
	}

	if flags.Version {
		fmt.Fprintf(stdout, "hookprobe version %s\n", version)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "hookprobe: %v\n", err)
		return 1
	}
	return 0
}

func newCommand(stdout io.Writer) (*ff.Command, *Flags, error) {
	flags := &Flags{}
	fs := ff.NewFlagSet("hookprobe")
	if err := fs.AddStruct(flags); err != nil {
		return nil, nil, err
	}

	cmd := &ff.Command{
		Name:      "hookprobe",
		Usage:     "hookprobe [FLAGS]",
		ShortHelp: "accept webhooks on any path and show exactly what arrived",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, stdout)
		},
	}
	return cmd, flags, nil
}

// resolveConfig layers defaults, the optional config file and the flag/env overrides.
func resolveConfig(flags *Flags) (*config.Config, error) {
	cfg := config.Defaults()
	if flags.Config != "" {
		loaded, err := config.Load(flags.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.Secret != "" {
		cfg.Secret = flags.Secret
	}
	if flags.Host != "" {
		cfg.Host = flags.Host
	}
	if flags.Port != 0 {
		cfg.Port = flags.Port
	}
	if flags.MaxBodySize != "" {
		cfg.MaxBodySize = flags.MaxBodySize
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.LogFormat != "" {
		cfg.LogFormat = flags.LogFormat
	}
	if flags.Color != "" {
		cfg.Color = flags.Color
	}
	if flags.MetricsListen != "" {
		cfg.MetricsListen = flags.MetricsListen
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// serve wires the inspector together and blocks until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	log.Setup(cfg.LogLevel, cfg.LogFormat)
	logger := log.WithComponent("main")

	verifier, err := webhook.NewVerifier([]byte(cfg.Secret))
	if err != nil {
		logger.Error("failed to initialize HMAC verifier", "error", err)
		return fmt.Errorf("failed to initialize HMAC verifier: %w", err)
	}

	maxBodySize, err := cfg.MaxBodyBytes()
	if err != nil {
		return fmt.Errorf("max_body_size: %w", err)
	}

	reporter := inspect.NewReporter(stdout, cfg.Color)
	banner := []inspect.BannerEntry{
		{Label: "Active Secret", Value: "'" + cfg.Secret + "'"},
		{Label: "Listening", Value: cfg.Listen()},
		{Label: "Max Body Size", Value: strconv.FormatInt(maxBodySize, 10) + " bytes"},
	}
	if cfg.MetricsListen != "" {
		banner = append(banner, inspect.BannerEntry{Label: "Metrics", Value: "http://" + cfg.MetricsListen + "/metrics"})
	}
	if err := reporter.Banner(banner); err != nil {
		return err
	}

	var metrics *webhook.Metrics
	if cfg.MetricsListen != "" {
		metrics = webhook.NewMetrics()
	}

	handler := webhook.NewHandler(verifier, reporter, maxBodySize, log.WithComponent("webhook"))
	server := webhook.New(webhook.Config{
		Listen:        cfg.Listen(),
		MetricsListen: cfg.MetricsListen,
	}, handler, metrics, log.WithComponent("webhook"))

	logger.Info("hookprobe starting", "version", version, "listen", cfg.Listen())
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("hookprobe stopped")
	return nil
}
