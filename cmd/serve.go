// Package cmd holds the CLI subcommand entry points.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pgj1978/PI-VPN-Router/internal/api"
	"github.com/pgj1978/PI-VPN-Router/internal/config"
	"github.com/pgj1978/PI-VPN-Router/internal/dhcp"
	"github.com/pgj1978/PI-VPN-Router/internal/logging"
	"github.com/pgj1978/PI-VPN-Router/internal/policy"
	"github.com/pgj1978/PI-VPN-Router/internal/router"
	"github.com/pgj1978/PI-VPN-Router/internal/routing"
	"github.com/pgj1978/PI-VPN-Router/internal/system"
	"github.com/pgj1978/PI-VPN-Router/internal/vpn"
)

// RunServe wires the daemon together and serves the HTTP API until
// SIGINT or SIGTERM.
func RunServe(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(logging.Config{
		Level: logging.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	logging.SetDefault(logger)

	// Privileged commands need sudo only when not already root.
	runner := system.NewExecRunner(os.Geteuid() != 0, logger)
	store := policy.NewStore(cfg.PolicyFile)
	engine := routing.NewEngine(cfg, runner,
		&routing.RealNetlinker{},
		routing.NewDNSResolver(),
		&routing.ConntrackFlusher{},
		logger)
	manager := vpn.NewManager(cfg, store, runner, engine, &vpn.WgctrlClient{}, &routing.RealNetlinker{}, logger)
	leases := &dhcp.FileLeaseReader{Path: cfg.LeasesFile}
	svc := router.NewService(cfg, store, engine, manager, leases, runner, logger)

	srv := api.NewServer(cfg, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
