package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// unaryHandler builds a grpc.MethodDesc.Handler for one RPC method
// from its typed request and a call that dispatches to the concrete
// server implementation. protoc-gen-go-grpc would generate one
// handler closure per method inline; this generic keeps the
// hand-written equivalent in the *_service.go files from repeating the
// decode/interceptor plumbing thirty-two times over.
func unaryHandler[Req any](fullMethod string, call func(srv interface{}, ctx context.Context, req *Req) (interface{}, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// invoke issues one client-side unary call using the JSON content
// codec registered in codec.go.
func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts ...grpc.CallOption) (*Resp, error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
