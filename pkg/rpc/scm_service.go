package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ScmLocationServer implements StorageContainerLocationProtocol, the
// client-facing container/block allocation surface served by SCM.
type ScmLocationServer interface {
	AllocateContainer(context.Context, *AllocateContainerRequest) (*AllocateContainerResponse, error)
	GetContainer(context.Context, *GetContainerRequest) (*GetContainerResponse, error)
	DeleteContainer(context.Context, *DeleteContainerRequest) (*DeleteContainerResponse, error)
	GetStorageContainerLocations(context.Context, *GetStorageContainerLocationsRequest) (*GetStorageContainerLocationsResponse, error)
	AllocateScmBlock(context.Context, *AllocateScmBlockRequest) (*AllocateScmBlockResponse, error)
	DeleteScmBlocks(context.Context, *DeleteScmBlocksRequest) (*DeleteScmBlocksResponse, error)
	GetScmBlockLocations(context.Context, *GetScmBlockLocationsRequest) (*GetScmBlockLocationsResponse, error)
}

// ScmLocationClient is the client stub for ScmLocationServer.
type ScmLocationClient interface {
	AllocateContainer(ctx context.Context, in *AllocateContainerRequest, opts ...grpc.CallOption) (*AllocateContainerResponse, error)
	GetContainer(ctx context.Context, in *GetContainerRequest, opts ...grpc.CallOption) (*GetContainerResponse, error)
	DeleteContainer(ctx context.Context, in *DeleteContainerRequest, opts ...grpc.CallOption) (*DeleteContainerResponse, error)
	GetStorageContainerLocations(ctx context.Context, in *GetStorageContainerLocationsRequest, opts ...grpc.CallOption) (*GetStorageContainerLocationsResponse, error)
	AllocateScmBlock(ctx context.Context, in *AllocateScmBlockRequest, opts ...grpc.CallOption) (*AllocateScmBlockResponse, error)
	DeleteScmBlocks(ctx context.Context, in *DeleteScmBlocksRequest, opts ...grpc.CallOption) (*DeleteScmBlocksResponse, error)
	GetScmBlockLocations(ctx context.Context, in *GetScmBlockLocationsRequest, opts ...grpc.CallOption) (*GetScmBlockLocationsResponse, error)
}

const scmLocationServiceName = "ozone.rpc.StorageContainerLocationProtocol"

type scmLocationClient struct{ cc grpc.ClientConnInterface }

// NewScmLocationClient wraps a dialed connection as an
// ScmLocationClient.
func NewScmLocationClient(cc grpc.ClientConnInterface) ScmLocationClient {
	return &scmLocationClient{cc: cc}
}

func (c *scmLocationClient) AllocateContainer(ctx context.Context, in *AllocateContainerRequest, opts ...grpc.CallOption) (*AllocateContainerResponse, error) {
	return invoke[AllocateContainerResponse](ctx, c.cc, "/"+scmLocationServiceName+"/AllocateContainer", in, opts...)
}

func (c *scmLocationClient) GetContainer(ctx context.Context, in *GetContainerRequest, opts ...grpc.CallOption) (*GetContainerResponse, error) {
	return invoke[GetContainerResponse](ctx, c.cc, "/"+scmLocationServiceName+"/GetContainer", in, opts...)
}

func (c *scmLocationClient) DeleteContainer(ctx context.Context, in *DeleteContainerRequest, opts ...grpc.CallOption) (*DeleteContainerResponse, error) {
	return invoke[DeleteContainerResponse](ctx, c.cc, "/"+scmLocationServiceName+"/DeleteContainer", in, opts...)
}

func (c *scmLocationClient) GetStorageContainerLocations(ctx context.Context, in *GetStorageContainerLocationsRequest, opts ...grpc.CallOption) (*GetStorageContainerLocationsResponse, error) {
	return invoke[GetStorageContainerLocationsResponse](ctx, c.cc, "/"+scmLocationServiceName+"/GetStorageContainerLocations", in, opts...)
}

func (c *scmLocationClient) AllocateScmBlock(ctx context.Context, in *AllocateScmBlockRequest, opts ...grpc.CallOption) (*AllocateScmBlockResponse, error) {
	return invoke[AllocateScmBlockResponse](ctx, c.cc, "/"+scmLocationServiceName+"/AllocateScmBlock", in, opts...)
}

func (c *scmLocationClient) DeleteScmBlocks(ctx context.Context, in *DeleteScmBlocksRequest, opts ...grpc.CallOption) (*DeleteScmBlocksResponse, error) {
	return invoke[DeleteScmBlocksResponse](ctx, c.cc, "/"+scmLocationServiceName+"/DeleteScmBlocks", in, opts...)
}

func (c *scmLocationClient) GetScmBlockLocations(ctx context.Context, in *GetScmBlockLocationsRequest, opts ...grpc.CallOption) (*GetScmBlockLocationsResponse, error) {
	return invoke[GetScmBlockLocationsResponse](ctx, c.cc, "/"+scmLocationServiceName+"/GetScmBlockLocations", in, opts...)
}

// ScmLocationServiceDesc is the grpc.ServiceDesc a server registers
// to serve ScmLocationServer.
var ScmLocationServiceDesc = grpc.ServiceDesc{
	ServiceName: scmLocationServiceName,
	HandlerType: (*ScmLocationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AllocateContainer", Handler: unaryHandler("/"+scmLocationServiceName+"/AllocateContainer", func(srv interface{}, ctx context.Context, req *AllocateContainerRequest) (interface{}, error) {
			return srv.(ScmLocationServer).AllocateContainer(ctx, req)
		})},
		{MethodName: "GetContainer", Handler: unaryHandler("/"+scmLocationServiceName+"/GetContainer", func(srv interface{}, ctx context.Context, req *GetContainerRequest) (interface{}, error) {
			return srv.(ScmLocationServer).GetContainer(ctx, req)
		})},
		{MethodName: "DeleteContainer", Handler: unaryHandler("/"+scmLocationServiceName+"/DeleteContainer", func(srv interface{}, ctx context.Context, req *DeleteContainerRequest) (interface{}, error) {
			return srv.(ScmLocationServer).DeleteContainer(ctx, req)
		})},
		{MethodName: "GetStorageContainerLocations", Handler: unaryHandler("/"+scmLocationServiceName+"/GetStorageContainerLocations", func(srv interface{}, ctx context.Context, req *GetStorageContainerLocationsRequest) (interface{}, error) {
			return srv.(ScmLocationServer).GetStorageContainerLocations(ctx, req)
		})},
		{MethodName: "AllocateScmBlock", Handler: unaryHandler("/"+scmLocationServiceName+"/AllocateScmBlock", func(srv interface{}, ctx context.Context, req *AllocateScmBlockRequest) (interface{}, error) {
			return srv.(ScmLocationServer).AllocateScmBlock(ctx, req)
		})},
		{MethodName: "DeleteScmBlocks", Handler: unaryHandler("/"+scmLocationServiceName+"/DeleteScmBlocks", func(srv interface{}, ctx context.Context, req *DeleteScmBlocksRequest) (interface{}, error) {
			return srv.(ScmLocationServer).DeleteScmBlocks(ctx, req)
		})},
		{MethodName: "GetScmBlockLocations", Handler: unaryHandler("/"+scmLocationServiceName+"/GetScmBlockLocations", func(srv interface{}, ctx context.Context, req *GetScmBlockLocationsRequest) (interface{}, error) {
			return srv.(ScmLocationServer).GetScmBlockLocations(ctx, req)
		})},
	},
	Metadata: "ozone/scm_location.proto",
}

// ScmDatanodeServer implements StorageContainerDatanodeProtocol, the
// datanode-facing registration/heartbeat surface served by SCM.
type ScmDatanodeServer interface {
	GetVersion(context.Context, *GetVersionRequest) (*GetVersionResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	SendHeartbeat(context.Context, *SendHeartbeatRequest) (*SendHeartbeatResponse, error)
}

// ScmDatanodeClient is the client stub for ScmDatanodeServer.
type ScmDatanodeClient interface {
	GetVersion(ctx context.Context, in *GetVersionRequest, opts ...grpc.CallOption) (*GetVersionResponse, error)
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	SendHeartbeat(ctx context.Context, in *SendHeartbeatRequest, opts ...grpc.CallOption) (*SendHeartbeatResponse, error)
}

const scmDatanodeServiceName = "ozone.rpc.StorageContainerDatanodeProtocol"

type scmDatanodeClient struct{ cc grpc.ClientConnInterface }

// NewScmDatanodeClient wraps a dialed connection as an
// ScmDatanodeClient.
func NewScmDatanodeClient(cc grpc.ClientConnInterface) ScmDatanodeClient {
	return &scmDatanodeClient{cc: cc}
}

func (c *scmDatanodeClient) GetVersion(ctx context.Context, in *GetVersionRequest, opts ...grpc.CallOption) (*GetVersionResponse, error) {
	return invoke[GetVersionResponse](ctx, c.cc, "/"+scmDatanodeServiceName+"/GetVersion", in, opts...)
}

func (c *scmDatanodeClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, "/"+scmDatanodeServiceName+"/Register", in, opts...)
}

func (c *scmDatanodeClient) SendHeartbeat(ctx context.Context, in *SendHeartbeatRequest, opts ...grpc.CallOption) (*SendHeartbeatResponse, error) {
	return invoke[SendHeartbeatResponse](ctx, c.cc, "/"+scmDatanodeServiceName+"/SendHeartbeat", in, opts...)
}

// ScmDatanodeServiceDesc is the grpc.ServiceDesc a server registers to
// serve ScmDatanodeServer.
var ScmDatanodeServiceDesc = grpc.ServiceDesc{
	ServiceName: scmDatanodeServiceName,
	HandlerType: (*ScmDatanodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetVersion", Handler: unaryHandler("/"+scmDatanodeServiceName+"/GetVersion", func(srv interface{}, ctx context.Context, req *GetVersionRequest) (interface{}, error) {
			return srv.(ScmDatanodeServer).GetVersion(ctx, req)
		})},
		{MethodName: "Register", Handler: unaryHandler("/"+scmDatanodeServiceName+"/Register", func(srv interface{}, ctx context.Context, req *RegisterRequest) (interface{}, error) {
			return srv.(ScmDatanodeServer).Register(ctx, req)
		})},
		{MethodName: "SendHeartbeat", Handler: unaryHandler("/"+scmDatanodeServiceName+"/SendHeartbeat", func(srv interface{}, ctx context.Context, req *SendHeartbeatRequest) (interface{}, error) {
			return srv.(ScmDatanodeServer).SendHeartbeat(ctx, req)
		})},
	},
	Metadata: "ozone/scm_datanode.proto",
}
