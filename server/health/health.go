// Package health reports the serving status of the shiftd channels service
// through the standard gRPC health protocol.
package health

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	client "github.com/shiftd-io/shiftd/api"
)

// ServiceName is the service whose status is reported.
const ServiceName = client.ServiceName

// Reporter publishes the serving status of one server.
type Reporter struct {
	server *health.Server
}

// NewReporter returns a Reporter in the NOT_SERVING state.
func NewReporter() *Reporter {
	r := &Reporter{server: health.NewServer()}
	r.SetNotServing()
	return r
}

// Register installs the health service on srv.
func (r *Reporter) Register(srv *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(srv, r.server)
}

// SetServing marks the channels service SERVING.
func (r *Reporter) SetServing() {
	r.server.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
}

// SetNotServing marks the channels service NOT_SERVING.
func (r *Reporter) SetNotServing() {
	r.server.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Shutdown sets every service to NOT_SERVING and ignores later updates.
func (r *Reporter) Shutdown() {
	r.server.Shutdown()
}
