package grpc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type stubPinger struct {
	mu  sync.Mutex
	err error
}

func (p *stubPinger) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *stubPinger) PingContext(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func status(t *testing.T, m *HealthMonitor, service string) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := m.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.Status
}

func TestHealthMonitor_Check(t *testing.T) {
	db := &stubPinger{}
	m := NewHealthMonitor(db, time.Second)

	m.Check(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, m, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, m, ServiceName))

	db.set(errors.New("connection refused"))
	m.Check(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, m, ""))
}

func TestHealthMonitor_RunStopsOnCancel(t *testing.T) {
	m := NewHealthMonitor(&stubPinger{}, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := m.Server().Check(context.Background(), &healthpb.HealthCheckRequest{})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, m, ""))
}
