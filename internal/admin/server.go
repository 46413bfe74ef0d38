// Package admin serves the operator-facing gRPC health endpoint.
package admin

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// RoomServicePrefix prefixes a room name to form its health service name.
const RoomServicePrefix = "platformer.room."

// RoomService returns the health service name reported for room.
func RoomService(room string) string { return RoomServicePrefix + room }

// Server wraps a gRPC server exposing the standard health service.
// The empty service name reports overall server health.
type Server struct {
	addr   string
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewServer creates a Server listening on addr once started.
//
// Precondition: logger must be non-nil.
func NewServer(addr string, logger *zap.Logger) *Server {
	g := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(g, h)
	return &Server{addr: addr, grpc: g, health: h, logger: logger}
}

// SetServing reports service as serving or not serving.
func (s *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

// SetRoomServing reports the named room as serving or not serving.
func (s *Server) SetRoomServing(room string, serving bool) {
	s.SetServing(RoomService(room), serving)
}

// Room is a running simulation whose health the server tracks.
type Room interface {
	Name() string
	Done() <-chan struct{}
}

// TrackRooms marks each room serving now and not serving once its loop exits.
func (s *Server) TrackRooms(rooms ...Room) {
	for _, r := range rooms {
		s.SetRoomServing(r.Name(), true)
		go func(r Room) {
			<-r.Done()
			s.SetRoomServing(r.Name(), false)
			s.logger.Info("room stopped serving", zap.String("room", r.Name()))
		}(r)
	}
}

// Start listens on the configured address and blocks until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

// Serve blocks serving gRPC on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("admin gRPC listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Stop reports every service as not serving and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Probe periodically runs a check and mirrors its outcome into a health service.
type Probe struct {
	server   *Server
	service  string
	interval time.Duration
	timeout  time.Duration
	check    func(ctx context.Context) error

	once sync.Once
	stop chan struct{}
}

// NewProbe creates a Probe reporting check under service.
//
// Precondition: interval and timeout must be positive; check must be non-nil.
func (s *Server) NewProbe(service string, interval, timeout time.Duration, check func(ctx context.Context) error) *Probe {
	return &Probe{
		server:   s,
		service:  service,
		interval: interval,
		timeout:  timeout,
		check:    check,
		stop:     make(chan struct{}),
	}
}

// Start runs the check immediately and then every interval until Stop.
func (p *Probe) Start() error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.runOnce()
		select {
		case <-p.stop:
			return nil
		case <-ticker.C:
		}
	}
}

// Stop ends the probe loop. Safe to call more than once.
func (p *Probe) Stop() {
	p.once.Do(func() { close(p.stop) })
}

func (p *Probe) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.check(ctx); err != nil {
		p.server.logger.Warn("health check failed", zap.String("service", p.service), zap.Error(err))
		p.server.SetServing(p.service, false)
		return
	}
	p.server.SetServing(p.service, true)
}
