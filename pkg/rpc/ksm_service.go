package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// KsmServer implements KeySpaceManagerProtocol: the
// Volume/Bucket/Key CRUD surface served by KSM.
type KsmServer interface {
	CreateVolume(context.Context, *CreateVolumeRequest) (*CreateVolumeResponse, error)
	SetOwner(context.Context, *SetOwnerRequest) (*SetOwnerResponse, error)
	SetQuota(context.Context, *SetQuotaRequest) (*SetQuotaResponse, error)
	DeleteVolume(context.Context, *DeleteVolumeRequest) (*DeleteVolumeResponse, error)
	GetVolumeInfo(context.Context, *GetVolumeInfoRequest) (*GetVolumeInfoResponse, error)
	CreateBucket(context.Context, *CreateBucketRequest) (*CreateBucketResponse, error)
	SetBucketProperty(context.Context, *SetBucketPropertyRequest) (*SetBucketPropertyResponse, error)
	GetBucketInfo(context.Context, *GetBucketInfoRequest) (*GetBucketInfoResponse, error)
	DeleteBucket(context.Context, *DeleteBucketRequest) (*DeleteBucketResponse, error)
	AllocateKey(context.Context, *AllocateKeyRequest) (*AllocateKeyResponse, error)
	LookupKey(context.Context, *LookupKeyRequest) (*LookupKeyResponse, error)
	DeleteKey(context.Context, *DeleteKeyRequest) (*DeleteKeyResponse, error)
	ListKeys(context.Context, *ListKeysRequest) (*ListKeysResponse, error)
}

// KsmClient is the client stub for KsmServer.
type KsmClient interface {
	CreateVolume(ctx context.Context, in *CreateVolumeRequest, opts ...grpc.CallOption) (*CreateVolumeResponse, error)
	SetOwner(ctx context.Context, in *SetOwnerRequest, opts ...grpc.CallOption) (*SetOwnerResponse, error)
	SetQuota(ctx context.Context, in *SetQuotaRequest, opts ...grpc.CallOption) (*SetQuotaResponse, error)
	DeleteVolume(ctx context.Context, in *DeleteVolumeRequest, opts ...grpc.CallOption) (*DeleteVolumeResponse, error)
	GetVolumeInfo(ctx context.Context, in *GetVolumeInfoRequest, opts ...grpc.CallOption) (*GetVolumeInfoResponse, error)
	CreateBucket(ctx context.Context, in *CreateBucketRequest, opts ...grpc.CallOption) (*CreateBucketResponse, error)
	SetBucketProperty(ctx context.Context, in *SetBucketPropertyRequest, opts ...grpc.CallOption) (*SetBucketPropertyResponse, error)
	GetBucketInfo(ctx context.Context, in *GetBucketInfoRequest, opts ...grpc.CallOption) (*GetBucketInfoResponse, error)
	DeleteBucket(ctx context.Context, in *DeleteBucketRequest, opts ...grpc.CallOption) (*DeleteBucketResponse, error)
	AllocateKey(ctx context.Context, in *AllocateKeyRequest, opts ...grpc.CallOption) (*AllocateKeyResponse, error)
	LookupKey(ctx context.Context, in *LookupKeyRequest, opts ...grpc.CallOption) (*LookupKeyResponse, error)
	DeleteKey(ctx context.Context, in *DeleteKeyRequest, opts ...grpc.CallOption) (*DeleteKeyResponse, error)
	ListKeys(ctx context.Context, in *ListKeysRequest, opts ...grpc.CallOption) (*ListKeysResponse, error)
}

const ksmServiceName = "ozone.rpc.KeySpaceManagerProtocol"

type ksmClient struct{ cc grpc.ClientConnInterface }

// NewKsmClient wraps a dialed connection as a KsmClient.
func NewKsmClient(cc grpc.ClientConnInterface) KsmClient { return &ksmClient{cc: cc} }

func (c *ksmClient) CreateVolume(ctx context.Context, in *CreateVolumeRequest, opts ...grpc.CallOption) (*CreateVolumeResponse, error) {
	return invoke[CreateVolumeResponse](ctx, c.cc, "/"+ksmServiceName+"/CreateVolume", in, opts...)
}

func (c *ksmClient) SetOwner(ctx context.Context, in *SetOwnerRequest, opts ...grpc.CallOption) (*SetOwnerResponse, error) {
	return invoke[SetOwnerResponse](ctx, c.cc, "/"+ksmServiceName+"/SetOwner", in, opts...)
}

func (c *ksmClient) SetQuota(ctx context.Context, in *SetQuotaRequest, opts ...grpc.CallOption) (*SetQuotaResponse, error) {
	return invoke[SetQuotaResponse](ctx, c.cc, "/"+ksmServiceName+"/SetQuota", in, opts...)
}

func (c *ksmClient) DeleteVolume(ctx context.Context, in *DeleteVolumeRequest, opts ...grpc.CallOption) (*DeleteVolumeResponse, error) {
	return invoke[DeleteVolumeResponse](ctx, c.cc, "/"+ksmServiceName+"/DeleteVolume", in, opts...)
}

func (c *ksmClient) GetVolumeInfo(ctx context.Context, in *GetVolumeInfoRequest, opts ...grpc.CallOption) (*GetVolumeInfoResponse, error) {
	return invoke[GetVolumeInfoResponse](ctx, c.cc, "/"+ksmServiceName+"/GetVolumeInfo", in, opts...)
}

func (c *ksmClient) CreateBucket(ctx context.Context, in *CreateBucketRequest, opts ...grpc.CallOption) (*CreateBucketResponse, error) {
	return invoke[CreateBucketResponse](ctx, c.cc, "/"+ksmServiceName+"/CreateBucket", in, opts...)
}

func (c *ksmClient) SetBucketProperty(ctx context.Context, in *SetBucketPropertyRequest, opts ...grpc.CallOption) (*SetBucketPropertyResponse, error) {
	return invoke[SetBucketPropertyResponse](ctx, c.cc, "/"+ksmServiceName+"/SetBucketProperty", in, opts...)
}

func (c *ksmClient) GetBucketInfo(ctx context.Context, in *GetBucketInfoRequest, opts ...grpc.CallOption) (*GetBucketInfoResponse, error) {
	return invoke[GetBucketInfoResponse](ctx, c.cc, "/"+ksmServiceName+"/GetBucketInfo", in, opts...)
}

func (c *ksmClient) DeleteBucket(ctx context.Context, in *DeleteBucketRequest, opts ...grpc.CallOption) (*DeleteBucketResponse, error) {
	return invoke[DeleteBucketResponse](ctx, c.cc, "/"+ksmServiceName+"/DeleteBucket", in, opts...)
}

func (c *ksmClient) AllocateKey(ctx context.Context, in *AllocateKeyRequest, opts ...grpc.CallOption) (*AllocateKeyResponse, error) {
	return invoke[AllocateKeyResponse](ctx, c.cc, "/"+ksmServiceName+"/AllocateKey", in, opts...)
}

func (c *ksmClient) LookupKey(ctx context.Context, in *LookupKeyRequest, opts ...grpc.CallOption) (*LookupKeyResponse, error) {
	return invoke[LookupKeyResponse](ctx, c.cc, "/"+ksmServiceName+"/LookupKey", in, opts...)
}

func (c *ksmClient) DeleteKey(ctx context.Context, in *DeleteKeyRequest, opts ...grpc.CallOption) (*DeleteKeyResponse, error) {
	return invoke[DeleteKeyResponse](ctx, c.cc, "/"+ksmServiceName+"/DeleteKey", in, opts...)
}

func (c *ksmClient) ListKeys(ctx context.Context, in *ListKeysRequest, opts ...grpc.CallOption) (*ListKeysResponse, error) {
	return invoke[ListKeysResponse](ctx, c.cc, "/"+ksmServiceName+"/ListKeys", in, opts...)
}

// KsmServiceDesc is the grpc.ServiceDesc a server registers to serve
// KsmServer.
var KsmServiceDesc = grpc.ServiceDesc{
	ServiceName: ksmServiceName,
	HandlerType: (*KsmServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateVolume", Handler: unaryHandler("/"+ksmServiceName+"/CreateVolume", func(srv interface{}, ctx context.Context, req *CreateVolumeRequest) (interface{}, error) {
			return srv.(KsmServer).CreateVolume(ctx, req)
		})},
		{MethodName: "SetOwner", Handler: unaryHandler("/"+ksmServiceName+"/SetOwner", func(srv interface{}, ctx context.Context, req *SetOwnerRequest) (interface{}, error) {
			return srv.(KsmServer).SetOwner(ctx, req)
		})},
		{MethodName: "SetQuota", Handler: unaryHandler("/"+ksmServiceName+"/SetQuota", func(srv interface{}, ctx context.Context, req *SetQuotaRequest) (interface{}, error) {
			return srv.(KsmServer).SetQuota(ctx, req)
		})},
		{MethodName: "DeleteVolume", Handler: unaryHandler("/"+ksmServiceName+"/DeleteVolume", func(srv interface{}, ctx context.Context, req *DeleteVolumeRequest) (interface{}, error) {
			return srv.(KsmServer).DeleteVolume(ctx, req)
		})},
		{MethodName: "GetVolumeInfo", Handler: unaryHandler("/"+ksmServiceName+"/GetVolumeInfo", func(srv interface{}, ctx context.Context, req *GetVolumeInfoRequest) (interface{}, error) {
			return srv.(KsmServer).GetVolumeInfo(ctx, req)
		})},
		{MethodName: "CreateBucket", Handler: unaryHandler("/"+ksmServiceName+"/CreateBucket", func(srv interface{}, ctx context.Context, req *CreateBucketRequest) (interface{}, error) {
			return srv.(KsmServer).CreateBucket(ctx, req)
		})},
		{MethodName: "SetBucketProperty", Handler: unaryHandler("/"+ksmServiceName+"/SetBucketProperty", func(srv interface{}, ctx context.Context, req *SetBucketPropertyRequest) (interface{}, error) {
			return srv.(KsmServer).SetBucketProperty(ctx, req)
		})},
		{MethodName: "GetBucketInfo", Handler: unaryHandler("/"+ksmServiceName+"/GetBucketInfo", func(srv interface{}, ctx context.Context, req *GetBucketInfoRequest) (interface{}, error) {
			return srv.(KsmServer).GetBucketInfo(ctx, req)
		})},
		{MethodName: "DeleteBucket", Handler: unaryHandler("/"+ksmServiceName+"/DeleteBucket", func(srv interface{}, ctx context.Context, req *DeleteBucketRequest) (interface{}, error) {
			return srv.(KsmServer).DeleteBucket(ctx, req)
		})},
		{MethodName: "AllocateKey", Handler: unaryHandler("/"+ksmServiceName+"/AllocateKey", func(srv interface{}, ctx context.Context, req *AllocateKeyRequest) (interface{}, error) {
			return srv.(KsmServer).AllocateKey(ctx, req)
		})},
		{MethodName: "LookupKey", Handler: unaryHandler("/"+ksmServiceName+"/LookupKey", func(srv interface{}, ctx context.Context, req *LookupKeyRequest) (interface{}, error) {
			return srv.(KsmServer).LookupKey(ctx, req)
		})},
		{MethodName: "DeleteKey", Handler: unaryHandler("/"+ksmServiceName+"/DeleteKey", func(srv interface{}, ctx context.Context, req *DeleteKeyRequest) (interface{}, error) {
			return srv.(KsmServer).DeleteKey(ctx, req)
		})},
		{MethodName: "ListKeys", Handler: unaryHandler("/"+ksmServiceName+"/ListKeys", func(srv interface{}, ctx context.Context, req *ListKeysRequest) (interface{}, error) {
			return srv.(KsmServer).ListKeys(ctx, req)
		})},
	},
	Metadata: "ozone/ksm.proto",
}
