package server

import (
	"context"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/go-tangra/go-tangra-hwdb/internal/convert"
	"github.com/go-tangra/go-tangra-hwdb/internal/inventory"
)

// SubmitFullMethod is the gRPC method agents call to submit an inventory.
const SubmitFullMethod = "/hwdb.v1.InventoryService/Submit"

// InventoryServiceServer accepts submissions as google.protobuf.Struct in the
// same JSON shape as POST /submit and replies with {status, pc_id}.
type InventoryServiceServer interface {
	Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// InventoryServiceDesc describes hwdb.v1.InventoryService.
var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: "hwdb.v1.InventoryService",
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Submit",
			Handler:    submitHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hwdb/v1/inventory.proto",
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServiceServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SubmitFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServiceServer).Submit(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// grpcService adapts Handler to InventoryServiceServer. Kratos errors carry
// their gRPC status, so handler errors pass through unchanged.
type grpcService struct {
	h *Handler
}

func (s grpcService) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var p inventory.Payload
	if err := convert.FromStruct(in, &p); err != nil {
		return nil, kerrors.BadRequest(ReasonValidation, err.Error())
	}
	reply, err := s.h.Submit(ctx, TransportGRPC, &p)
	if err != nil {
		return nil, err
	}
	out, err := convert.ToStruct(reply)
	if err != nil {
		return nil, kerrors.InternalServer(ReasonStorage, err.Error())
	}
	return out, nil
}

// NewGRPCServer builds a gRPC server exposing the submit service.
func NewGRPCServer(h *Handler, logger log.Logger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(LoggingInterceptor(logger)),
	)
	srv.RegisterService(&InventoryServiceDesc, grpcService{h: h})
	return srv
}
