package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"imageAnnotation/internal/auth"
	"imageAnnotation/repository"
)

// The annotation services carry their payloads in well-known protobuf types:
// requests as StringValue or Struct, responses as a Struct shaped like the
// matching HTTP JSON body.

// methodHandler is the signature grpc.MethodDesc.Handler expects.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

// unary adapts a typed method into a method handler the way generated code does.
func unary[Req proto.Message](fullMethod string, newReq func() Req, call func(srv any, ctx context.Context, req Req) (any, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(Req))
		})
	}
}

// toStruct converts v through its JSON form so field names match the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

// toStatus maps service errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, repository.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, repository.ErrForbiddenPath), errors.Is(err, repository.ErrUnknownBatch):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, repository.ErrStorageCorrupt):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return auth.GRPCStatus(err)
	}
}

func stringField(s *structpb.Struct, key string) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", nil
	}
	if _, isString := v.GetKind().(*structpb.Value_StringValue); !isString {
		return "", status.Error(codes.InvalidArgument, fmt.Sprintf("%s must be a string", key))
	}
	return v.GetStringValue(), nil
}
