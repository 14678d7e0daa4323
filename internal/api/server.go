// Package api exposes the router's HTTP interface: device and domain
// bypass management, tunnel lifecycle, kill switch, and diagnostics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/pgj1978/PI-VPN-Router/internal/config"
	"github.com/pgj1978/PI-VPN-Router/internal/logging"
	"github.com/pgj1978/PI-VPN-Router/internal/metrics"
	"github.com/pgj1978/PI-VPN-Router/internal/router"
)

// Server is the HTTP API server.
type Server struct {
	cfg    config.Config
	svc    *router.Service
	logger *logging.Logger

	httpServer *http.Server
}

// NewServer builds the server and its route table.
func NewServer(cfg config.Config, svc *router.Service, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		logger: logger.WithComponent("api"),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed separately so tests can drive
// the mux without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/devices", s.handleListDevices)
	mux.HandleFunc("POST /api/devices/{mac}/bypass", s.handleDeviceBypass)

	mux.HandleFunc("GET /api/domains", s.handleListDomains)
	mux.HandleFunc("POST /api/domains", s.handleAddDomain)
	mux.HandleFunc("DELETE /api/domains/{domain}", s.handleRemoveDomain)

	mux.HandleFunc("GET /api/vpn/configs", s.handleListProfiles)
	mux.HandleFunc("GET /api/vpn/status", s.handleVPNStatus)
	mux.HandleFunc("POST /api/vpn/connect/{profile}", s.handleConnect)
	mux.HandleFunc("POST /api/vpn/disconnect", s.handleDisconnect)
	mux.HandleFunc("GET /api/vpn/killswitch", s.handleKillSwitchStatus)
	mux.HandleFunc("POST /api/vpn/killswitch", s.handleKillSwitch)
	mux.HandleFunc("POST /api/vpn/profiles", s.handleAddProfile)
	mux.HandleFunc("DELETE /api/vpn/profiles/{name}", s.handleDeleteProfile)

	mux.HandleFunc("GET /api/system/info", s.handleSystemInfo)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("api listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
