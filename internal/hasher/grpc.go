package hasher

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/trace"
	"github.com/RXminuS/impression-hash/pkg/impression"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "impressionhash.Hasher"

// Full method names.
const (
	MethodImpressionHash = "/" + ServiceName + "/ImpressionHash"
	MethodLargerHash     = "/" + ServiceName + "/LargerHash"
	MethodSimilarity     = "/" + ServiceName + "/Similarity"
)

const (
	// Shortest client keepalive ping interval the server tolerates
	KeepaliveMinTime = 5 * time.Second

	// Room for protobuf framing around an image at the byte limit
	messageOverhead = 64 << 10
)

// Field names of the Similarity request struct.
const (
	FieldFirst  = "first"
	FieldSecond = "second"
)

// HasherServer is the server API for the Hasher service.
type HasherServer interface {
	ImpressionHash(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	LargerHash(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	Similarity(context.Context, *structpb.Struct) (*wrapperspb.DoubleValue, error)
}

// RegisterHasherServer registers srv on s.
func RegisterHasherServer(s grpc.ServiceRegistrar, srv HasherServer) {
	s.RegisterService(&HasherServiceDesc, srv)
}

// HasherServiceDesc describes the Hasher service for grpc.Server.
var HasherServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HasherServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ImpressionHash", Handler: impressionHashHandler},
		{MethodName: "LargerHash", Handler: largerHashHandler},
		{MethodName: "Similarity", Handler: similarityHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "impressionhash/hasher.proto",
}

func impressionHashHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HasherServer).ImpressionHash(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodImpressionHash}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HasherServer).ImpressionHash(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func largerHashHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HasherServer).LargerHash(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodLargerHash}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HasherServer).LargerHash(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func similarityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HasherServer).Similarity(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodSimilarity}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HasherServer).Similarity(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// HasherClient is the client API for the Hasher service.
type HasherClient interface {
	ImpressionHash(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	LargerHash(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Similarity(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.DoubleValue, error)
}

type hasherClient struct {
	cc grpc.ClientConnInterface
}

// NewHasherClient wraps a connection in the Hasher client API.
func NewHasherClient(cc grpc.ClientConnInterface) HasherClient {
	return &hasherClient{cc: cc}
}

func (c *hasherClient) ImpressionHash(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, MethodImpressionHash, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *hasherClient) LargerHash(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, MethodLargerHash, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *hasherClient) Similarity(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.DoubleValue, error) {
	out := new(wrapperspb.DoubleValue)
	if err := c.cc.Invoke(ctx, MethodSimilarity, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SimilarityRequest builds the Similarity request struct.
func SimilarityRequest(first, second string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldFirst:  structpb.NewStringValue(first),
		FieldSecond: structpb.NewStringValue(second),
	}}
}

// GRPCServer adapts Service to HasherServer.
type GRPCServer struct {
	svc *Service
}

// NewGRPCServer creates the gRPC adapter for svc.
func NewGRPCServer(svc *Service) *GRPCServer {
	return &GRPCServer{svc: svc}
}

// NewServer creates a grpc.Server with the Hasher service and the tracing
// and logging interceptors installed.
func NewServer(svc *Service, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             KeepaliveMinTime,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			trace.UnaryServerInterceptor(),
			trace.LoggingUnaryServerInterceptor(),
		),
	}
	if svc.limits.MaxBytes > 0 {
		base = append(base, grpc.MaxRecvMsgSize(int(svc.limits.MaxBytes)+messageOverhead))
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterHasherServer(s, NewGRPCServer(svc))
	return s
}

func (g *GRPCServer) ImpressionHash(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	text, err := g.svc.HashText(ctx, in.GetValue(), impression.Changes)
	if err != nil {
		return nil, err
	}
	return wrapperspb.String(text), nil
}

func (g *GRPCServer) LargerHash(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	text, err := g.svc.HashText(ctx, in.GetValue(), impression.Larger)
	if err != nil {
		return nil, err
	}
	return wrapperspb.String(text), nil
}

func (g *GRPCServer) Similarity(ctx context.Context, in *structpb.Struct) (*wrapperspb.DoubleValue, error) {
	first, err := stringField(in, FieldFirst)
	if err != nil {
		return nil, err
	}
	second, err := stringField(in, FieldSecond)
	if err != nil {
		return nil, err
	}
	sim, err := g.svc.Similarity(ctx, first, second)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Double(sim), nil
}

func stringField(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "missing field %q", name)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "field %q must be a string", name)
	}
	return sv.StringValue, nil
}
