package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/wlboot/internal/config"
	"github.com/danmuck/wlboot/internal/discovery"
	"github.com/danmuck/wlboot/internal/logging"
	"github.com/danmuck/wlboot/internal/server"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	logging.ConfigureRuntime()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "wlbootctl: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	socketPath string
	statusAddr string
	asJSON     bool
	roundtrip  bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("wlbootctl", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to a wlboot TOML config")
	fs.StringVar(&opts.socketPath, "socket", "", "compositor socket path (overrides config and environment)")
	fs.StringVar(&opts.statusAddr, "status-addr", "", "serve the status API here and keep monitoring after discovery")
	fs.BoolVar(&opts.asJSON, "json", false, "print bindings as JSON")
	fs.BoolVar(&opts.roundtrip, "roundtrip", false, "fail instead of waiting when the compositor lacks an interface")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
		log.Info().Str("path", opts.configPath).Strs("caps", cfg.VersionCaps()).Msg("loaded config")
	}
	if opts.socketPath != "" {
		cfg.SocketPath = opts.socketPath
	}
	if opts.statusAddr != "" {
		cfg.StatusAddr = opts.statusAddr
	}
	if opts.roundtrip {
		cfg.Roundtrip = true
	}
	if cfg.LogLevel != "" && !logging.SetLevel(cfg.LogLevel) {
		log.Warn().Str("level", cfg.LogLevel).Msg("ignoring unknown log_level")
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout io.Writer, getenv func(string) string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	dc := cfg.Discovery()
	dc.Getenv = getenv
	dc.Tracker = discovery.NewTracker()

	if cfg.StatusAddr == "" {
		res, err := discovery.Discover(ctx, dc)
		if err != nil {
			return err
		}
		return printBindings(stdout, res, opts.asJSON)
	}
	return runMonitor(ctx, cfg, dc, stdout, opts.asJSON)
}

// runMonitor serves the status API while discovery runs and keeps the
// session alive afterwards until ctx is cancelled. A failed discovery leaves
// the server up, reporting the failure on /ready, until ctx is cancelled;
// the failure is then returned.
func runMonitor(ctx context.Context, cfg config.Config, dc discovery.Config, stdout io.Writer, asJSON bool) error {
	status := server.New("wlbootctl", cfg.StatusAddr, dc.Tracker, cfg.CorsOrigins)
	status.RequireToken(cfg.StatusToken)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return status.Serve(gctx)
	})
	g.Go(func() error {
		err := discoverAndMonitor(gctx, dc, stdout, asJSON)
		if err == nil || gctx.Err() != nil {
			return err
		}
		log.Error().Err(err).Str("status_addr", cfg.StatusAddr).Msg("discovery failed; serving status until interrupted")
		<-gctx.Done()
		return err
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func discoverAndMonitor(ctx context.Context, dc discovery.Config, stdout io.Writer, asJSON bool) error {
	s, err := discovery.Open(ctx, dc)
	if err != nil {
		return err
	}
	defer s.Close()
	res, err := s.Run()
	if err != nil {
		return err
	}
	if err := printBindings(stdout, res, asJSON); err != nil {
		return err
	}
	return s.Monitor(ctx)
}

func printBindings(w io.Writer, res discovery.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Bindings)
	}
	var b strings.Builder
	for _, binding := range res.Bindings {
		fmt.Fprintf(&b, "%s=%d\n", binding.Interface, binding.ID)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
