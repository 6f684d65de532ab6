// Command flowinspectord is the flowinspect daemon: it runs the flow
// inspection engine as a long-lived process, exposes the admin API, and
// optionally persists domain observations and shares reverse-index state
// with a cluster of peers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jroosing/flowinspect/internal/api"
	"github.com/jroosing/flowinspect/internal/clustersync"
	"github.com/jroosing/flowinspect/internal/config"
	"github.com/jroosing/flowinspect/internal/flow"
	"github.com/jroosing/flowinspect/internal/logging"
	"github.com/jroosing/flowinspect/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds parsed command-line flag values. Flags override config
// file/environment values but are never persisted.
type cliFlags struct {
	configPath  string
	adminHost   string
	adminPort   int
	storePath   string
	noStore     bool
	clusterMode string
	clusterPeer string
	debug       bool
	jsonLogs    bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML config file (or FLOWINSPECT_CONFIG)")
	flag.StringVar(&f.adminHost, "admin-host", "", "Override admin API bind host")
	flag.IntVar(&f.adminPort, "admin-port", 0, "Override admin API bind port")
	flag.StringVar(&f.storePath, "store", "", "Override SQLite observation store path")
	flag.BoolVar(&f.noStore, "no-store", false, "Disable the durable observation store")
	flag.StringVar(&f.clusterMode, "cluster-mode", "", "Cluster sync mode: standalone, primary, or secondary")
	flag.StringVar(&f.clusterPeer, "cluster-primary", "", "Primary node base URL for secondary mode")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&f.jsonLogs, "json-logs", false, "Enable structured JSON logging")
	flag.Parse()
	return f
}

func applyCLIOverrides(cfg *config.Config, f cliFlags) {
	if f.adminHost != "" {
		cfg.Admin.Host = f.adminHost
	}
	if f.adminPort != 0 {
		cfg.Admin.Port = f.adminPort
	}
	if f.storePath != "" {
		cfg.Store.Path = f.storePath
	}
	if f.clusterMode != "" {
		cfg.ClusterSync.Mode = config.ClusterSyncMode(f.clusterMode)
	}
	if f.clusterPeer != "" {
		cfg.ClusterSync.PrimaryURL = f.clusterPeer
	}
	if f.jsonLogs {
		cfg.Logging.Structured = true
	}
	if f.debug {
		cfg.Logging.Level = "DEBUG"
	}
}

func run() error {
	flags := parseFlags()

	cfg, err := config.Load(config.ResolveConfigPath(flags.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyCLIOverrides(cfg, flags)

	logger := logging.Configure(cfg.Logging)
	logger.Info("flowinspectord starting",
		"admin_addr", fmt.Sprintf("%s:%d", cfg.Admin.Host, cfg.Admin.Port),
		"dns_cache_capacity", cfg.Engine.DNSCacheCapacity,
		"clustersync_mode", cfg.ClusterSync.Mode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine := flow.NewEngine(flow.WithDNSCacheCapacity(cfg.Engine.DNSCacheCapacity))

	var st *store.Store
	if !flags.noStore {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open observation store: %w", err)
		}
		defer st.Close()
		st.SetLogger(logging.ForComponent(logger, "store"))
		engine.SetObserver(st.AsObserver())
		logger.Info("observation store opened", "path", cfg.Store.Path)
	}

	apiSrv := api.New(cfg, logging.ForComponent(logger, "api"), engine)
	if st != nil {
		apiSrv.Handler().SetStore(st)
	}

	var syncer *clustersync.Syncer
	if cfg.ClusterSync.Mode == config.ClusterSecondary {
		syncer, err = clustersync.NewSyncer(cfg.ClusterSync, engine.Index(), logging.ForComponent(logger, "clustersync"))
		if err != nil {
			return fmt.Errorf("failed to create clustersync syncer: %w", err)
		}
		apiSrv.Handler().SetSyncer(syncer)
		if err := syncer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start clustersync syncer: %w", err)
		}
	}

	logger.Info("admin API starting", "addr", apiSrv.Addr())
	go func() {
		serveErr := apiSrv.ListenAndServe()
		if serveErr == nil || errors.Is(serveErr, http.ErrServerClosed) {
			return
		}
		logger.Error("admin API server error", "err", serveErr)
		cancel()
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if syncer != nil {
		syncer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin API shutdown error", "err", err)
	}

	logger.Info("flowinspectord stopped")
	return nil
}
