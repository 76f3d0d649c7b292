package health

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func startHealthServer(t *testing.T) (*Reporter, grpc_health_v1.HealthClient) {
	srv := grpc.NewServer()
	reporter := NewReporter()
	reporter.Register(srv)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return reporter, grpc_health_v1.NewHealthClient(conn)
}

func check(t *testing.T, client grpc_health_v1.HealthClient) grpc_health_v1.HealthCheckResponse_ServingStatus {
	resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{
		Service: ServiceName,
	})
	require.NoError(t, err)
	return resp.Status
}

func TestRegister(t *testing.T) {
	srv := grpc.NewServer()
	NewReporter().Register(srv)

	// Verify the health service was registered by checking service info
	info := srv.GetServiceInfo()
	_, ok := info["grpc.health.v1.Health"]
	require.True(t, ok, "health service should be registered")
}

func TestNewReporterNotServing(t *testing.T) {
	_, client := startHealthServer(t)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, client))
}

func TestSetServingThenNotServing(t *testing.T) {
	reporter, client := startHealthServer(t)

	reporter.SetServing()
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(t, client))

	reporter.SetNotServing()
	require.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, client))

	reporter.SetServing()
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(t, client))
}

// Ensure two reporters do not share state.
func TestReportersIndependent(t *testing.T) {
	a, clientA := startHealthServer(t)
	_, clientB := startHealthServer(t)

	a.SetServing()
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(t, clientA))
	require.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, clientB))
}

func TestShutdown(t *testing.T) {
	reporter, client := startHealthServer(t)
	reporter.SetServing()
	reporter.Shutdown()
	require.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, client))

	// Updates after shutdown are ignored.
	reporter.SetServing()
	require.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, client))
}

func TestServiceName(t *testing.T) {
	require.Equal(t, "shiftd.Channels", ServiceName)
}
