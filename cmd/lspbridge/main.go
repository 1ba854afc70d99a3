package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dshills/lsp-bridge-mcp/internal/bridgelog"
	"github.com/dshills/lsp-bridge-mcp/internal/capability"
	"github.com/dshills/lsp-bridge-mcp/internal/config"
	"github.com/dshills/lsp-bridge-mcp/internal/mcpadapter"
	"github.com/dshills/lsp-bridge-mcp/internal/registry"
	"github.com/dshills/lsp-bridge-mcp/internal/session/buildsupport"
	"github.com/dshills/lsp-bridge-mcp/internal/watcher"
	"github.com/dshills/lsp-bridge-mcp/pkg/types"
	"github.com/rs/zerolog"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to the bridge's YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lsp-bridge-mcp %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lsp-bridge-mcp: loading config: %v\n", err)
		os.Exit(1)
	}

	// Startup info goes through the bridge logger like the rest of the
	// process's logging (the configured log file, or stderr when none is
	// set): stdout is reserved for the MCP stdio transport.
	log, err := bridgelog.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lsp-bridge-mcp: opening log file %q: %v\n", cfg.LogPath, err)
		os.Exit(1)
	}
	log.Info().Str("version", version).Int("workspaces", len(cfg.Workspaces)).Msg("starting")

	reg := registry.New(cfg.Workspaces, log,
		registry.WithProvisionerFor(provisionerFor(bridgelog.Component(log, "buildsupport"))),
	)
	facade := capability.New(reg, log)
	mcpSrv := mcpadapter.NewServer(facade, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	editWatcher := watcher.New(reg, bridgelog.Component(log, "watcher"), watcher.WithNotifyFile(cfg.NotifyFile))
	go func() {
		if err := editWatcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("edit watcher stopped unexpectedly")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Info().Msg("mcp server ready, listening on stdio")
		errChan <- mcpSrv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("mcp server exited with error")
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := reg.ShutdownAll(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown reported an error")
	}
	log.Info().Msg("stopped")
}

// provisionerFor returns the bloop build-support hook for any workspace
// whose command line launches Metals; every other language gets no
// provisioning hook.
func provisionerFor(log zerolog.Logger) registry.ProvisionerFor {
	bloop := buildsupport.NewBloopProvisioner(log)
	return func(cfg types.ServerConfig) buildsupport.Provisioner {
		if !isMetalsCommand(cfg.Command) {
			return nil
		}
		return bloop
	}
}

func isMetalsCommand(command []string) bool {
	if len(command) == 0 {
		return false
	}
	return strings.Contains(strings.ToLower(command[0]), "metals")
}
