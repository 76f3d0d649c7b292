package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_logrus "github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/hako/durafmt"
	atomic_file "github.com/natefinch/atomic"
	gnatsd "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	client "github.com/shiftd-io/shiftd/api"
	"github.com/shiftd-io/shiftd/server/channel"
	"github.com/shiftd-io/shiftd/server/health"
	"github.com/shiftd-io/shiftd/server/logger"
)

const stateFile = "shiftd"

// Server exposes the encrypt and decrypt channels over gRPC and, optionally,
// NATS request/reply.
type Server struct {
	config        *Config
	logger        logger.Logger
	registry      *channel.Registry
	sessions      *sessionTable
	authz         *authzEnforcer
	health        *health.Reporter
	listener      net.Listener
	api           *grpc.Server
	natsServer    *gnatsd.Server
	nc            *nats.Conn
	natsSubs      []*nats.Subscription
	signalCh      chan os.Signal
	shutdownCh    chan struct{}
	startedAt     time.Time
	mu            sync.RWMutex
	shutdown      bool
	running       bool
	goroutineWait sync.WaitGroup
}

// RunServerWithConfig creates and starts a new Server with the given
// configuration. It returns an error if the Server failed to start.
func RunServerWithConfig(config *Config) (*Server, error) {
	server := New(config)
	err := server.Start()
	return server, err
}

// New creates a new Server with the given configuration. Call Start to run
// the Server.
func New(config *Config) *Server {
	logger := logger.NewLogger(config.LogLevel)
	if config.LogSilent {
		logger.Silent(true)
	}
	s := &Server{
		config:     config,
		logger:     logger,
		health:     health.NewReporter(),
		shutdownCh: make(chan struct{}),
	}
	s.registry = channel.NewRegistry(config.Shift, channel.WithLogger(logger))
	return s
}

// Start the Server. This is not a blocking call. It will return an error if
// the Server cannot start properly.
func (s *Server) Start() error {
	s.startedAt = time.Now()

	if err := s.recoverServerID(); err != nil {
		return errors.Wrap(err, "failed to recover server state")
	}

	sessions, err := newSessionTable(s.registry, s.config.ReleasedSessionSize)
	if err != nil {
		return errors.Wrap(err, "failed to create session table")
	}
	s.sessions = sessions

	if s.config.Authz.Enabled {
		authz, err := newAuthzEnforcer(s.config.Authz.Policy)
		if err != nil {
			return errors.Wrap(err, "failed to load authorization policy")
		}
		s.authz = authz
	}

	opts, err := s.grpcServerOptions()
	if err != nil {
		return errors.Wrap(err, "failed to configure API server")
	}

	hp := s.config.GetListenAddress()
	l, err := net.Listen("tcp", hp.String())
	if err != nil {
		return errors.Wrap(err, "failed starting listener")
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	s.logger.Infof("shiftd Version: %s", Version)
	s.logger.Infof("Server ID: %s", s.config.ServerID)
	s.logger.Infof("Channels: %s", s.config.CipherString())
	s.logger.Infof("Starting server on %s...", l.Addr())

	if s.config.NATS.Enabled {
		if err := s.startNATS(); err != nil {
			s.Stop()
			return errors.Wrap(err, "failed to start NATS API")
		}
	}

	api := grpc.NewServer(opts...)
	client.RegisterChannelsServer(api, &apiServer{s})
	s.health.Register(api)

	s.handleSignals()

	s.mu.Lock()
	s.api = api
	s.running = true
	s.mu.Unlock()
	s.health.SetServing()

	s.startGoroutine(func() {
		err := api.Serve(l)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		if err != nil {
			select {
			case <-s.shutdownCh:
				return
			default:
				s.logger.Fatal(err)
			}
		}
	})
	return nil
}

// grpcServerOptions builds the interceptor chain and transport credentials
// of the API server.
func (s *Server) grpcServerOptions() ([]grpc.ServerOption, error) {
	interceptors := []grpc.UnaryServerInterceptor{
		grpc_recovery.UnaryServerInterceptor(
			grpc_recovery.WithRecoveryHandler(func(p interface{}) error {
				s.logger.Errorf("api: Recovered from panic: %v", p)
				return status.Error(codes.Internal, "internal error")
			}),
		),
	}
	if l, ok := s.logger.(logger.EntryLogger); ok {
		interceptors = append(interceptors, grpc_logrus.UnaryServerInterceptor(l.Entry(),
			grpc_logrus.WithLevels(func(code codes.Code) log.Level {
				if code == codes.OK {
					return log.DebugLevel
				}
				return grpc_logrus.DefaultCodeToLevel(code)
			}),
		))
	}
	interceptors = append(interceptors, AuthzUnaryInterceptor)

	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(interceptors...)),
	}

	if s.config.TLSCert != "" {
		tlsConfig, err := s.tlsConfig()
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
	}
	return opts, nil
}

func (s *Server) tlsConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(s.config.TLSCert, s.config.TLSKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load TLS key pair")
	}
	config := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if s.config.TLSClientAuth {
		config.ClientAuth = tls.RequireAndVerifyClientCert
		if s.config.TLSClientAuthCA != "" {
			pem, err := os.ReadFile(s.config.TLSClientAuthCA)
			if err != nil {
				return nil, errors.Wrap(err, "failed to read client CA")
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates found in %s", s.config.TLSClientAuthCA)
			}
			config.ClientCAs = pool
		}
	}
	return config, nil
}

// recoverServerID restores the server ID from the data directory, or
// persists the configured one if there is none. The ID is the only state
// shiftd keeps on disk; channel buffers are never persisted.
func (s *Server) recoverServerID() error {
	if s.config.DataDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.config.DataDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "failed to create data directory")
	}

	file := filepath.Join(s.config.DataDir, stateFile)
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			s.config.ServerID = id
			return nil
		}
	case !os.IsNotExist(err):
		return err
	}

	if err := atomic_file.WriteFile(file, strings.NewReader(s.config.ServerID)); err != nil {
		return errors.Wrap(err, "failed to persist server state")
	}
	return nil
}

// startNATS optionally starts the embedded NATS server, connects to NATS and
// subscribes the NATS API.
func (s *Server) startNATS() error {
	opts := s.config.NATS.Options

	if s.config.NATS.Embedded {
		ns, err := gnatsd.NewServer(&gnatsd.Options{
			Host:   s.config.GetListenAddress().Host,
			Port:   s.config.NATS.EmbeddedPort,
			NoSigs: true,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create embedded NATS server")
		}
		ns.SetLogger(logger.NewNATSLogger(s.logger, s.config.NATS.Logging), false, false)
		go ns.Start()
		if !ns.ReadyForConnections(10 * time.Second) {
			ns.Shutdown()
			return errors.New("embedded NATS server failed to start")
		}
		s.natsServer = ns
		opts.Servers = []string{ns.ClientURL()}
		s.logger.Infof("Started embedded NATS server on %s", ns.ClientURL())
	}

	opts.Name = fmt.Sprintf("shiftd-%s", s.config.ServerID)
	opts.ReconnectWait = 250 * time.Millisecond
	opts.MaxReconnect = -1
	opts.ReconnectBufSize = -1

	if err := nats.ErrorHandler(s.natsErrorHandler)(&opts); err != nil {
		return err
	}
	if err := nats.ReconnectHandler(s.natsReconnectedHandler)(&opts); err != nil {
		return err
	}
	if err := nats.ClosedHandler(s.natsClosedHandler)(&opts); err != nil {
		return err
	}
	if err := nats.DisconnectHandler(s.natsDisconnectedHandler)(&opts); err != nil {
		return err
	}

	nc, err := opts.Connect()
	if err != nil {
		return errors.Wrap(err, "failed to connect to NATS")
	}
	s.nc = nc

	if err := s.subscribeNATSAPI(); err != nil {
		return err
	}
	s.logger.Infof("Serving NATS API on %s", s.natsSubject(">"))
	return nil
}

// Stop will attempt to gracefully shut the Server down by releasing every
// open session, stopping the API server and closing the NATS connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	s.logger.Info("Shutting down...")

	s.health.Shutdown()
	close(s.shutdownCh)

	if s.sessions != nil {
		if n := s.sessions.closeAll(); n > 0 {
			s.logger.Infof("Released %d open session(s)", n)
		}
	}

	for _, sub := range s.natsSubs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warnf("Failed to unsubscribe from %s: %v", sub.Subject, err)
		}
	}
	s.natsSubs = nil

	if s.nc != nil {
		s.nc.Close()
	}

	if s.natsServer != nil {
		s.natsServer.Shutdown()
	}

	if s.api != nil {
		s.api.Stop()
	}

	if s.listener != nil {
		s.listener.Close()
	}

	s.stopSignals()

	s.running = false
	s.mu.Unlock()

	// Wait for goroutines to stop.
	s.goroutineWait.Wait()

	s.logger.Infof("Shut down after %s", durafmt.Parse(time.Since(s.startedAt)))
	return nil
}

// IsRunning indicates if the Server is currently serving the API.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the address the API server is listening on, or nil if it has
// not started.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ID returns the server ID.
func (s *Server) ID() string {
	return s.config.ServerID
}

// Registry returns the channel registry served by the Server.
func (s *Server) Registry() *channel.Registry {
	return s.registry
}

func (s *Server) isShutdown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shutdown
}

func (s *Server) natsDisconnectedHandler(nc *nats.Conn) {
	if s.isShutdown() {
		return
	}
	if nc.LastError() != nil {
		s.logger.Errorf("Connection %q has been disconnected from NATS: %v",
			nc.Opts.Name, nc.LastError())
	} else {
		s.logger.Errorf("Connection %q has been disconnected from NATS", nc.Opts.Name)
	}
}

func (s *Server) natsReconnectedHandler(nc *nats.Conn) {
	s.logger.Infof("Connection %q reconnected to NATS at %q",
		nc.Opts.Name, nc.ConnectedUrl())
}

func (s *Server) natsClosedHandler(nc *nats.Conn) {
	if s.isShutdown() {
		return
	}
	s.logger.Debugf("Connection %q has been closed", nc.Opts.Name)
}

func (s *Server) natsErrorHandler(nc *nats.Conn, sub *nats.Subscription, err error) {
	subject := ""
	if sub != nil {
		subject = sub.Subject
	}
	s.logger.Errorf("Asynchronous error on connection %s, subject %s: %s",
		nc.Opts.Name, subject, err)
}

func (s *Server) startGoroutine(f func()) {
	select {
	case <-s.shutdownCh:
		return
	default:
	}
	s.goroutineWait.Add(1)
	go func() {
		f()
		s.goroutineWait.Done()
	}()
}
