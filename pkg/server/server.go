// Package server implements the TCP accept loop, the per-connection reader
// and writer pair, and the admin/shutdown surfaces around the world
// authority.
package server

import (
	"context"
	"net"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/blocklayer/voxelkeep/pkg/authority"
)

// internalListenSpec is the sentinel listen address meaning "bind an
// ephemeral localhost port," used by the reference client to spawn a
// private server instance.
const internalListenSpec = "internal"

// Config configures one server instance.
type Config struct {
	ListenAddr string
	WorldDir   string
}

func resolveListenAddr(spec string) string {
	if spec == internalListenSpec {
		return "127.0.0.1:0"
	}
	return spec
}

// Server owns a listener and the world authority behind it.
type Server struct {
	cfg     Config
	ln      net.Listener
	auth    *authority.Authority
	logger  *zap.Logger
	limiter *rate.Limiter
}

// New loads the world directory and prepares a Server. It does not yet
// listen; call Start.
func New(cfg Config, logger *zap.Logger) (*Server, error) {
	auth, err := authority.New(cfg.WorldDir, logger)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:     cfg,
		auth:    auth,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(200), 200),
	}, nil
}

// Start binds the listener and begins accepting connections and running the
// world authority in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", resolveListenAddr(s.cfg.ListenAddr))
	if err != nil {
		return err
	}
	s.ln = ln
	go s.auth.Run()
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Authority exposes the world task for signal/admin handlers to submit
// shutdown against.
func (s *Server) Authority() *authority.Authority { return s.auth }

// Close stops accepting new connections.
func (s *Server) Close() error { return s.ln.Close() }

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		if err := s.limiter.Wait(context.Background()); err != nil {
			conn.Close()
			continue
		}
		go serve(conn, s.auth, s.logger)
	}
}
