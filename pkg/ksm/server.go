package ksm

import (
	"context"
	"errors"

	"github.com/cuemby/ozone/pkg/rpc"
)

// Server adapts a *KSM onto the wire protocol rpc.KsmServer,
// translating between the hand-maintained request/response structs in
// pkg/rpc and KSM's native method signatures.
type Server struct {
	ksm *KSM
}

// NewServer wraps ksm for registration against pkg/api.Server.
func NewServer(ksm *KSM) *Server { return &Server{ksm: ksm} }

func statusOf(err error) rpc.Status {
	switch {
	case err == nil:
		return rpc.StatusOK
	case errors.Is(err, ErrVolumeAlreadyExists):
		return rpc.StatusVolumeAlreadyExists
	case errors.Is(err, ErrVolumeNotFound):
		return rpc.StatusVolumeNotFound
	case errors.Is(err, ErrVolumeNotEmpty):
		return rpc.StatusVolumeNotEmpty
	case errors.Is(err, ErrUserTooManyVolumes):
		return rpc.StatusUserTooManyVolumes
	case errors.Is(err, ErrBucketAlreadyExists):
		return rpc.StatusBucketAlreadyExists
	case errors.Is(err, ErrBucketNotFound):
		return rpc.StatusBucketNotFound
	case errors.Is(err, ErrBucketNotEmpty):
		return rpc.StatusBucketNotEmpty
	case errors.Is(err, ErrKeyAlreadyExists):
		return rpc.StatusKeyAlreadyExists
	case errors.Is(err, ErrKeyNotFound):
		return rpc.StatusKeyNotFound
	case errors.Is(err, ErrAccessDenied):
		return rpc.StatusAccessDenied
	default:
		return rpc.StatusInternalError
	}
}

// status translates err to a wire Status and counts the operation.
// Failure and success move distinct counter series; a failed op never
// increments the success count.
func (s *Server) status(op string, err error) rpc.Status {
	st := statusOf(err)
	if s.ksm.metrics != nil {
		result := "success"
		if st != rpc.StatusOK {
			result = "failure"
		}
		s.ksm.metrics.NamespaceOpsTotal.WithLabelValues(op, result).Inc()
	}
	return st
}

// CreateVolume implements rpc.KsmServer.
func (s *Server) CreateVolume(_ context.Context, req *rpc.CreateVolumeRequest) (*rpc.CreateVolumeResponse, error) {
	_, err := s.ksm.CreateVolume(req.Name, req.OwnerName, req.AdminName, req.QuotaBytes)
	return &rpc.CreateVolumeResponse{Status: s.status("createVolume", err)}, nil
}

// SetOwner implements rpc.KsmServer.
func (s *Server) SetOwner(_ context.Context, req *rpc.SetOwnerRequest) (*rpc.SetOwnerResponse, error) {
	_, err := s.ksm.SetOwner(req.VolumeName, req.OwnerName)
	return &rpc.SetOwnerResponse{Status: s.status("setOwner", err)}, nil
}

// SetQuota implements rpc.KsmServer.
func (s *Server) SetQuota(_ context.Context, req *rpc.SetQuotaRequest) (*rpc.SetQuotaResponse, error) {
	_, err := s.ksm.SetQuota(req.VolumeName, req.QuotaBytes)
	return &rpc.SetQuotaResponse{Status: s.status("setQuota", err)}, nil
}

// DeleteVolume implements rpc.KsmServer.
func (s *Server) DeleteVolume(_ context.Context, req *rpc.DeleteVolumeRequest) (*rpc.DeleteVolumeResponse, error) {
	err := s.ksm.DeleteVolume(req.VolumeName, req.Force)
	return &rpc.DeleteVolumeResponse{Status: s.status("deleteVolume", err)}, nil
}

// GetVolumeInfo implements rpc.KsmServer.
func (s *Server) GetVolumeInfo(_ context.Context, req *rpc.GetVolumeInfoRequest) (*rpc.GetVolumeInfoResponse, error) {
	v, err := s.ksm.GetVolumeInfo(req.VolumeName)
	if err != nil {
		return &rpc.GetVolumeInfoResponse{Status: s.status("getVolumeInfo", err)}, nil
	}
	return &rpc.GetVolumeInfoResponse{Volume: v, Status: s.status("getVolumeInfo", nil)}, nil
}

// CreateBucket implements rpc.KsmServer.
func (s *Server) CreateBucket(_ context.Context, req *rpc.CreateBucketRequest) (*rpc.CreateBucketResponse, error) {
	_, err := s.ksm.CreateBucket(req.VolumeName, req.BucketName, req.VersioningEnabled, req.StorageType)
	return &rpc.CreateBucketResponse{Status: s.status("createBucket", err)}, nil
}

// SetBucketProperty implements rpc.KsmServer. AddACL/RemoveACL are
// accepted on the wire but not yet applied; only versioning and
// storage type are mutable today.
func (s *Server) SetBucketProperty(_ context.Context, req *rpc.SetBucketPropertyRequest) (*rpc.SetBucketPropertyResponse, error) {
	existing, err := s.ksm.GetBucketInfo(req.VolumeName, req.BucketName)
	if err != nil {
		return &rpc.SetBucketPropertyResponse{Status: s.status("setBucketProperty", err)}, nil
	}
	versioning := existing.VersioningEnabled
	if req.VersioningEnabled != nil {
		versioning = *req.VersioningEnabled
	}
	storageType := existing.StorageType
	if req.StorageType != "" {
		storageType = req.StorageType
	}
	_, err = s.ksm.SetBucketProperty(req.VolumeName, req.BucketName, versioning, storageType)
	return &rpc.SetBucketPropertyResponse{Status: s.status("setBucketProperty", err)}, nil
}

// GetBucketInfo implements rpc.KsmServer.
func (s *Server) GetBucketInfo(_ context.Context, req *rpc.GetBucketInfoRequest) (*rpc.GetBucketInfoResponse, error) {
	bk, err := s.ksm.GetBucketInfo(req.VolumeName, req.BucketName)
	if err != nil {
		return &rpc.GetBucketInfoResponse{Status: s.status("getBucketInfo", err)}, nil
	}
	return &rpc.GetBucketInfoResponse{Bucket: bk, Status: s.status("getBucketInfo", nil)}, nil
}

// DeleteBucket implements rpc.KsmServer.
func (s *Server) DeleteBucket(_ context.Context, req *rpc.DeleteBucketRequest) (*rpc.DeleteBucketResponse, error) {
	err := s.ksm.DeleteBucket(req.VolumeName, req.BucketName)
	return &rpc.DeleteBucketResponse{Status: s.status("deleteBucket", err)}, nil
}

// AllocateKey implements rpc.KsmServer.
func (s *Server) AllocateKey(_ context.Context, req *rpc.AllocateKeyRequest) (*rpc.AllocateKeyResponse, error) {
	key, err := s.ksm.AllocateKey(req.VolumeName, req.BucketName, req.KeyName, req.DataSize, req.ReplicationType, req.ReplicationFactor)
	if err != nil {
		return &rpc.AllocateKeyResponse{Status: s.status("allocateKey", err)}, nil
	}
	return &rpc.AllocateKeyResponse{Key: key, Status: s.status("allocateKey", nil)}, nil
}

// LookupKey implements rpc.KsmServer.
func (s *Server) LookupKey(_ context.Context, req *rpc.LookupKeyRequest) (*rpc.LookupKeyResponse, error) {
	key, err := s.ksm.LookupKey(req.VolumeName, req.BucketName, req.KeyName)
	if err != nil {
		return &rpc.LookupKeyResponse{Status: s.status("lookupKey", err)}, nil
	}
	return &rpc.LookupKeyResponse{Key: key, Status: s.status("lookupKey", nil)}, nil
}

// DeleteKey implements rpc.KsmServer.
func (s *Server) DeleteKey(_ context.Context, req *rpc.DeleteKeyRequest) (*rpc.DeleteKeyResponse, error) {
	err := s.ksm.DeleteKey(req.VolumeName, req.BucketName, req.KeyName)
	return &rpc.DeleteKeyResponse{Status: s.status("deleteKey", err)}, nil
}

// ListKeys implements rpc.KsmServer.
func (s *Server) ListKeys(_ context.Context, req *rpc.ListKeysRequest) (*rpc.ListKeysResponse, error) {
	keys, err := s.ksm.ListKeys(req.VolumeName, req.BucketName, req.Prefix, req.MaxKeys)
	if err != nil {
		return &rpc.ListKeysResponse{Status: s.status("listKeys", err)}, nil
	}
	return &rpc.ListKeysResponse{Keys: keys, Status: s.status("listKeys", nil)}, nil
}

var _ rpc.KsmServer = (*Server)(nil)
