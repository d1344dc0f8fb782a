package scm

import (
	"context"
	"errors"

	"github.com/cuemby/ozone/pkg/rpc"
)

// Server adapts an *SCM onto the wire protocols rpc.ScmLocationServer
// and rpc.ScmDatanodeServer, translating between the hand-maintained
// request/response structs in pkg/rpc and SCM's native method
// signatures.
type Server struct {
	scm *SCM
}

// NewServer wraps scm for registration against pkg/api.Server.
func NewServer(scm *SCM) *Server { return &Server{scm: scm} }

func errorCode(err error) rpc.ScmErrorCode {
	switch {
	case err == nil:
		return rpc.ScmSuccess
	case errors.Is(err, ErrContainerNotFound):
		return rpc.ScmContainerNotFound
	case errors.Is(err, ErrInsufficientNodes):
		return rpc.ScmInsufficientNodes
	case errors.Is(err, ErrInvalidRegistration):
		return rpc.ScmInvalidRegistration
	case errors.Is(err, ErrNoOpenContainer):
		return rpc.ScmNoOpenContainer
	default:
		return rpc.ScmUnknownFailure
	}
}

// AllocateContainer implements rpc.ScmLocationServer.
func (s *Server) AllocateContainer(_ context.Context, req *rpc.AllocateContainerRequest) (*rpc.AllocateContainerResponse, error) {
	pipeline, err := s.scm.AllocateContainer(req.Name, req.ReplicationType, req.ReplicationFactor)
	if err != nil {
		return &rpc.AllocateContainerResponse{ErrorCode: errorCode(err)}, nil
	}
	return &rpc.AllocateContainerResponse{Pipeline: pipeline, ErrorCode: rpc.ScmSuccess}, nil
}

// GetContainer implements rpc.ScmLocationServer.
func (s *Server) GetContainer(_ context.Context, req *rpc.GetContainerRequest) (*rpc.GetContainerResponse, error) {
	pipeline, err := s.scm.GetContainer(req.Name)
	if err != nil {
		return &rpc.GetContainerResponse{ErrorCode: errorCode(err)}, nil
	}
	return &rpc.GetContainerResponse{Pipeline: pipeline, ErrorCode: rpc.ScmSuccess}, nil
}

// DeleteContainer implements rpc.ScmLocationServer.
func (s *Server) DeleteContainer(_ context.Context, req *rpc.DeleteContainerRequest) (*rpc.DeleteContainerResponse, error) {
	if err := s.scm.DeleteContainer(req.Name); err != nil {
		return &rpc.DeleteContainerResponse{ErrorCode: errorCode(err)}, nil
	}
	return &rpc.DeleteContainerResponse{ErrorCode: rpc.ScmSuccess}, nil
}

// GetStorageContainerLocations implements rpc.ScmLocationServer.
func (s *Server) GetStorageContainerLocations(_ context.Context, req *rpc.GetStorageContainerLocationsRequest) (*rpc.GetStorageContainerLocationsResponse, error) {
	locations, err := s.scm.GetStorageContainerLocations(req.Prefixes)
	if err != nil {
		return &rpc.GetStorageContainerLocationsResponse{ErrorCode: errorCode(err)}, nil
	}
	return &rpc.GetStorageContainerLocationsResponse{Locations: locations, ErrorCode: rpc.ScmSuccess}, nil
}

// AllocateScmBlock implements rpc.ScmLocationServer.
func (s *Server) AllocateScmBlock(_ context.Context, req *rpc.AllocateScmBlockRequest) (*rpc.AllocateScmBlockResponse, error) {
	block, err := s.scm.AllocateBlock(req.Size, req.ReplicationType, req.ReplicationFactor)
	if err != nil {
		return &rpc.AllocateScmBlockResponse{ErrorCode: errorCode(err)}, nil
	}
	return &rpc.AllocateScmBlockResponse{Block: block, ErrorCode: rpc.ScmSuccess}, nil
}

// DeleteScmBlocks implements rpc.ScmLocationServer.
func (s *Server) DeleteScmBlocks(_ context.Context, req *rpc.DeleteScmBlocksRequest) (*rpc.DeleteScmBlocksResponse, error) {
	results, err := s.scm.DeleteBlocks(req.ContainerName, req.BlockKeys)
	if err != nil {
		return &rpc.DeleteScmBlocksResponse{ErrorCode: errorCode(err)}, nil
	}
	out := make([]rpc.BlockDeleteResult, len(results))
	for i, r := range results {
		out[i] = rpc.BlockDeleteResult{BlockKey: r.BlockKey, ResultCode: r.ResultCode}
	}
	return &rpc.DeleteScmBlocksResponse{Results: out, ErrorCode: rpc.ScmSuccess}, nil
}

// GetScmBlockLocations implements rpc.ScmLocationServer.
func (s *Server) GetScmBlockLocations(_ context.Context, req *rpc.GetScmBlockLocationsRequest) (*rpc.GetScmBlockLocationsResponse, error) {
	locations, err := s.scm.GetBlockLocations(req.ContainerNames)
	if err != nil {
		return &rpc.GetScmBlockLocationsResponse{ErrorCode: errorCode(err)}, nil
	}
	return &rpc.GetScmBlockLocationsResponse{Locations: locations, ErrorCode: rpc.ScmSuccess}, nil
}

// GetVersion implements rpc.ScmDatanodeServer. The response also
// carries the cluster ID a datanode must echo back when it registers.
func (s *Server) GetVersion(_ context.Context, _ *rpc.GetVersionRequest) (*rpc.GetVersionResponse, error) {
	return &rpc.GetVersionResponse{Version: protocolVersion, ClusterID: s.scm.ClusterID()}, nil
}

// Register implements rpc.ScmDatanodeServer.
// TODO: reconcile req.ContainerReport against the container registry
// when container close/replication handling lands.
func (s *Server) Register(_ context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {
	datanode, err := s.scm.Register(req.DatanodeDetails)
	if err != nil {
		return &rpc.RegisterResponse{ErrorCode: errorCode(err)}, nil
	}
	return &rpc.RegisterResponse{
		DatanodeUUID: datanode.UUID,
		ClusterID:    datanode.ClusterID,
		HostName:     datanode.HostName,
		IPAddress:    datanode.IPAddress,
		ErrorCode:    rpc.ScmSuccess,
	}, nil
}

// SendHeartbeat implements rpc.ScmDatanodeServer.
func (s *Server) SendHeartbeat(_ context.Context, req *rpc.SendHeartbeatRequest) (*rpc.SendHeartbeatResponse, error) {
	commands, err := s.scm.SendHeartbeat(req.DatanodeUUID, req.Stat)
	if err != nil {
		return &rpc.SendHeartbeatResponse{ErrorCode: errorCode(err)}, nil
	}
	return &rpc.SendHeartbeatResponse{Commands: commands, ErrorCode: rpc.ScmSuccess}, nil
}

// protocolVersion is returned to every datanode at GETVERSION. A
// mismatch against the datanode's own build is logged by the endpoint,
// not enforced here.
const protocolVersion = 1

var _ rpc.ScmLocationServer = (*Server)(nil)
var _ rpc.ScmDatanodeServer = (*Server)(nil)
