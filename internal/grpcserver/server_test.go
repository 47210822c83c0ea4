package grpcserver

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type flakyStore struct{ down atomic.Bool }

func (s *flakyStore) PingContext(context.Context) error {
	if s.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func dial(t *testing.T, srv *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func status(client healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

func TestHealthFollowsStore(t *testing.T) {
	srv := New(zap.NewNop())
	client := dial(t, srv)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(client))

	store := &flakyStore{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Watch(ctx, store, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return status(client) == healthpb.HealthCheckResponse_SERVING }, time.Second, 5*time.Millisecond)

	store.down.Store(true)
	assert.Eventually(t, func() bool { return status(client) == healthpb.HealthCheckResponse_NOT_SERVING }, time.Second, 5*time.Millisecond)
}
