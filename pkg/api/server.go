package api

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"

	"github.com/cuemby/ozone/pkg/log"
	"github.com/cuemby/ozone/pkg/metrics"
	"github.com/cuemby/ozone/pkg/rpc"
	"github.com/cuemby/ozone/pkg/security"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Server is a thin gRPC transport shell: it owns TLS, the listener,
// and the mTLS-identity interceptor, and lets a binary register only
// the service descriptors its role serves.
type Server struct {
	grpc *grpc.Server
}

// NewServer builds an mTLS-secured gRPC server for a node of the given
// role, loading its certificate from security.GetCertDir(nodeType,
// nodeID). metricsCtx may be nil, in which case RPCs are served
// unobserved. extra options (e.g. a handler-count ceiling via
// grpc.MaxConcurrentStreams) are appended after the defaults.
func NewServer(nodeType, nodeID string, metricsCtx *metrics.Context, extra ...grpc.ServerOption) (*Server, error) {
	certDir, err := security.GetCertDir(nodeType, nodeID)
	if err != nil {
		return nil, fmt.Errorf("api: cert directory: %w", err)
	}
	if !security.CertExists(certDir) {
		return nil, fmt.Errorf("api: no certificate at %s, cluster not initialized", certDir)
	}

	cert, err := security.LoadCertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("api: load certificate: %w", err)
	}
	caCert, err := security.LoadCACertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("api: load CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(caCert)

	tlsConfig := &tls.Config{
		ClientAuth:   tls.RequireAndVerifyClientCert,
		Certificates: []tls.Certificate{*cert},
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS13,
	}

	interceptors := []grpc.UnaryServerInterceptor{IdentityInterceptor()}
	if metricsCtx != nil {
		interceptors = append(interceptors, MetricsInterceptor(metricsCtx))
	}
	opts := append([]grpc.ServerOption{
		grpc.Creds(credentials.NewTLS(tlsConfig)),
		grpc.ChainUnaryInterceptor(interceptors...),
	}, extra...)
	grpcServer := grpc.NewServer(opts...)

	return &Server{grpc: grpcServer}, nil
}

// RegisterSCMLocation wires StorageContainerLocationProtocol into the
// server (client-facing container/block allocation surface).
func (s *Server) RegisterSCMLocation(h rpc.ScmLocationServer) {
	s.grpc.RegisterService(&rpc.ScmLocationServiceDesc, h)
}

// RegisterSCMDatanode wires StorageContainerDatanodeProtocol into the
// server (datanode registration/heartbeat surface).
func (s *Server) RegisterSCMDatanode(h rpc.ScmDatanodeServer) {
	s.grpc.RegisterService(&rpc.ScmDatanodeServiceDesc, h)
}

// RegisterKSM wires KeySpaceManagerProtocol into the server.
func (s *Server) RegisterKSM(h rpc.KsmServer) {
	s.grpc.RegisterService(&rpc.KsmServiceDesc, h)
}

// RegisterContainer wires the container data-plane protocol into the
// server, the surface a datanode serves to the container client.
func (s *Server) RegisterContainer(h rpc.ContainerServer) {
	s.grpc.RegisterService(&rpc.ContainerServiceDesc, h)
}

// Start listens on addr and blocks serving gRPC until Stop is called.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen: %w", err)
	}
	log.Info(fmt.Sprintf("api: gRPC listening on %s", addr))
	return s.grpc.Serve(lis)
}

// Stop gracefully drains in-flight RPCs and stops the server.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}
