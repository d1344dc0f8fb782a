package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ContainerServer implements the container data-plane protocol, the
// client<->datanode RPC surface the container client issues
// chunk/key operations against.
type ContainerServer interface {
	CreateContainer(context.Context, *CreateContainerRequest) (*CreateContainerResponse, error)
	ReadContainer(context.Context, *ReadContainerRequest) (*ReadContainerResponse, error)
	DeleteContainer(context.Context, *DeleteContainerDataRequest) (*DeleteContainerDataResponse, error)
	WriteChunk(context.Context, *WriteChunkRequest) (*WriteChunkResponse, error)
	ReadChunk(context.Context, *ReadChunkRequest) (*ReadChunkResponse, error)
	PutKey(context.Context, *PutKeyRequest) (*PutKeyResponse, error)
	GetKey(context.Context, *GetKeyRequest) (*GetKeyResponse, error)
	PutSmallFile(context.Context, *PutSmallFileRequest) (*PutSmallFileResponse, error)
	GetSmallFile(context.Context, *GetSmallFileRequest) (*GetSmallFileResponse, error)
}

// ContainerClient is the client stub for ContainerServer.
type ContainerClient interface {
	CreateContainer(ctx context.Context, in *CreateContainerRequest, opts ...grpc.CallOption) (*CreateContainerResponse, error)
	ReadContainer(ctx context.Context, in *ReadContainerRequest, opts ...grpc.CallOption) (*ReadContainerResponse, error)
	DeleteContainer(ctx context.Context, in *DeleteContainerDataRequest, opts ...grpc.CallOption) (*DeleteContainerDataResponse, error)
	WriteChunk(ctx context.Context, in *WriteChunkRequest, opts ...grpc.CallOption) (*WriteChunkResponse, error)
	ReadChunk(ctx context.Context, in *ReadChunkRequest, opts ...grpc.CallOption) (*ReadChunkResponse, error)
	PutKey(ctx context.Context, in *PutKeyRequest, opts ...grpc.CallOption) (*PutKeyResponse, error)
	GetKey(ctx context.Context, in *GetKeyRequest, opts ...grpc.CallOption) (*GetKeyResponse, error)
	PutSmallFile(ctx context.Context, in *PutSmallFileRequest, opts ...grpc.CallOption) (*PutSmallFileResponse, error)
	GetSmallFile(ctx context.Context, in *GetSmallFileRequest, opts ...grpc.CallOption) (*GetSmallFileResponse, error)
}

const containerServiceName = "ozone.rpc.ContainerProtocol"

type containerClient struct{ cc grpc.ClientConnInterface }

// NewContainerClient wraps a dialed connection as a ContainerClient.
func NewContainerClient(cc grpc.ClientConnInterface) ContainerClient {
	return &containerClient{cc: cc}
}

func (c *containerClient) CreateContainer(ctx context.Context, in *CreateContainerRequest, opts ...grpc.CallOption) (*CreateContainerResponse, error) {
	return invoke[CreateContainerResponse](ctx, c.cc, "/"+containerServiceName+"/CreateContainer", in, opts...)
}

func (c *containerClient) ReadContainer(ctx context.Context, in *ReadContainerRequest, opts ...grpc.CallOption) (*ReadContainerResponse, error) {
	return invoke[ReadContainerResponse](ctx, c.cc, "/"+containerServiceName+"/ReadContainer", in, opts...)
}

func (c *containerClient) DeleteContainer(ctx context.Context, in *DeleteContainerDataRequest, opts ...grpc.CallOption) (*DeleteContainerDataResponse, error) {
	return invoke[DeleteContainerDataResponse](ctx, c.cc, "/"+containerServiceName+"/DeleteContainer", in, opts...)
}

func (c *containerClient) WriteChunk(ctx context.Context, in *WriteChunkRequest, opts ...grpc.CallOption) (*WriteChunkResponse, error) {
	return invoke[WriteChunkResponse](ctx, c.cc, "/"+containerServiceName+"/WriteChunk", in, opts...)
}

func (c *containerClient) ReadChunk(ctx context.Context, in *ReadChunkRequest, opts ...grpc.CallOption) (*ReadChunkResponse, error) {
	return invoke[ReadChunkResponse](ctx, c.cc, "/"+containerServiceName+"/ReadChunk", in, opts...)
}

func (c *containerClient) PutKey(ctx context.Context, in *PutKeyRequest, opts ...grpc.CallOption) (*PutKeyResponse, error) {
	return invoke[PutKeyResponse](ctx, c.cc, "/"+containerServiceName+"/PutKey", in, opts...)
}

func (c *containerClient) GetKey(ctx context.Context, in *GetKeyRequest, opts ...grpc.CallOption) (*GetKeyResponse, error) {
	return invoke[GetKeyResponse](ctx, c.cc, "/"+containerServiceName+"/GetKey", in, opts...)
}

func (c *containerClient) PutSmallFile(ctx context.Context, in *PutSmallFileRequest, opts ...grpc.CallOption) (*PutSmallFileResponse, error) {
	return invoke[PutSmallFileResponse](ctx, c.cc, "/"+containerServiceName+"/PutSmallFile", in, opts...)
}

func (c *containerClient) GetSmallFile(ctx context.Context, in *GetSmallFileRequest, opts ...grpc.CallOption) (*GetSmallFileResponse, error) {
	return invoke[GetSmallFileResponse](ctx, c.cc, "/"+containerServiceName+"/GetSmallFile", in, opts...)
}

// ContainerServiceDesc is the grpc.ServiceDesc a datanode registers to
// serve ContainerServer.
var ContainerServiceDesc = grpc.ServiceDesc{
	ServiceName: containerServiceName,
	HandlerType: (*ContainerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateContainer", Handler: unaryHandler("/"+containerServiceName+"/CreateContainer", func(srv interface{}, ctx context.Context, req *CreateContainerRequest) (interface{}, error) {
			return srv.(ContainerServer).CreateContainer(ctx, req)
		})},
		{MethodName: "ReadContainer", Handler: unaryHandler("/"+containerServiceName+"/ReadContainer", func(srv interface{}, ctx context.Context, req *ReadContainerRequest) (interface{}, error) {
			return srv.(ContainerServer).ReadContainer(ctx, req)
		})},
		{MethodName: "DeleteContainer", Handler: unaryHandler("/"+containerServiceName+"/DeleteContainer", func(srv interface{}, ctx context.Context, req *DeleteContainerDataRequest) (interface{}, error) {
			return srv.(ContainerServer).DeleteContainer(ctx, req)
		})},
		{MethodName: "WriteChunk", Handler: unaryHandler("/"+containerServiceName+"/WriteChunk", func(srv interface{}, ctx context.Context, req *WriteChunkRequest) (interface{}, error) {
			return srv.(ContainerServer).WriteChunk(ctx, req)
		})},
		{MethodName: "ReadChunk", Handler: unaryHandler("/"+containerServiceName+"/ReadChunk", func(srv interface{}, ctx context.Context, req *ReadChunkRequest) (interface{}, error) {
			return srv.(ContainerServer).ReadChunk(ctx, req)
		})},
		{MethodName: "PutKey", Handler: unaryHandler("/"+containerServiceName+"/PutKey", func(srv interface{}, ctx context.Context, req *PutKeyRequest) (interface{}, error) {
			return srv.(ContainerServer).PutKey(ctx, req)
		})},
		{MethodName: "GetKey", Handler: unaryHandler("/"+containerServiceName+"/GetKey", func(srv interface{}, ctx context.Context, req *GetKeyRequest) (interface{}, error) {
			return srv.(ContainerServer).GetKey(ctx, req)
		})},
		{MethodName: "PutSmallFile", Handler: unaryHandler("/"+containerServiceName+"/PutSmallFile", func(srv interface{}, ctx context.Context, req *PutSmallFileRequest) (interface{}, error) {
			return srv.(ContainerServer).PutSmallFile(ctx, req)
		})},
		{MethodName: "GetSmallFile", Handler: unaryHandler("/"+containerServiceName+"/GetSmallFile", func(srv interface{}, ctx context.Context, req *GetSmallFileRequest) (interface{}, error) {
			return srv.(ContainerServer).GetSmallFile(ctx, req)
		})},
	},
	Metadata: "ozone/container.proto",
}
