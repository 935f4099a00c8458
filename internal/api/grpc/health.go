package grpc

import (
	"context"
	"time"

	"gearshare-backend/internal/api/grpc/interceptor"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall status.
const ServiceName = "gearshare.v1.Backend"

// HealthMonitor flips the gRPC health status with the database reachability.
type HealthMonitor struct {
	health   *health.Server
	db       repository.Pinger
	interval time.Duration
}

// NewServer builds the gRPC server exposing grpc.health.v1 and reflection.
func NewServer(db repository.Pinger, interval time.Duration) (*grpc.Server, *HealthMonitor) {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptor.Recovery(), interceptor.Logging()),
	)
	m := NewHealthMonitor(db, interval)
	healthpb.RegisterHealthServer(s, m.health)
	reflection.Register(s)
	return s, m
}

func NewHealthMonitor(db repository.Pinger, interval time.Duration) *HealthMonitor {
	return &HealthMonitor{
		health:   health.NewServer(),
		db:       db,
		interval: interval,
	}
}

// Check pings the database once and records the result.
func (m *HealthMonitor) Check(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := m.db.PingContext(ctx); err != nil {
		logger.Warn("Database ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.health.SetServingStatus("", status)
	m.health.SetServingStatus(ServiceName, status)
}

// Run checks every interval until ctx ends, then reports NOT_SERVING.
func (m *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			m.health.Shutdown()
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, m.interval/2)
			m.Check(pingCtx)
			cancel()
		}
	}
}

// Server exposes the underlying health server.
func (m *HealthMonitor) Server() healthpb.HealthServer {
	return m.health
}
