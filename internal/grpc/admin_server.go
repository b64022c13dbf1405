package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"imageAnnotation/internal/auth"
	"imageAnnotation/internal/progress"
	"imageAnnotation/repository"
)

const GetProgressMethod = "/annotation.v1.AdminService/GetProgress"

// AdminService is the admin-only gRPC surface.
type AdminService interface {
	GetProgress(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error)
}

// AdminServer serves labeling progress to admins.
type AdminServer struct {
	Users    repository.UserRepositoryI
	Progress *progress.Reporter
}

// Authentication is centralized in internal/auth.

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: "annotation.v1.AdminService",
	HandlerType: (*AdminService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetProgress",
			Handler: unary(GetProgressMethod, func() *emptypb.Empty { return &emptypb.Empty{} },
				func(srv any, ctx context.Context, req *emptypb.Empty) (any, error) {
					return srv.(AdminService).GetProgress(ctx, req)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "annotation/v1/admin.proto",
}

func RegisterAdminService(s grpc.ServiceRegistrar, srv AdminService) {
	s.RegisterService(&adminServiceDesc, srv)
}

// GetProgress returns {progress: [...]} with one record per (user, batch) pair.
func (s *AdminServer) GetProgress(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, toStatus(err)
	}
	recs, err := s.Progress.All(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{"progress": recs})
}
