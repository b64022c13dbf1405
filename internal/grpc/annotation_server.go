package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"imageAnnotation/internal/auth"
	"imageAnnotation/models"
	"imageAnnotation/repository"
)

const (
	ListImagesMethod = "/annotation.v1.AnnotationService/ListImages"
	SaveLabelMethod  = "/annotation.v1.AnnotationService/SaveLabel"
)

// AnnotationService is the annotator-facing gRPC surface.
type AnnotationService interface {
	ListImages(ctx context.Context, batchID *wrapperspb.StringValue) (*structpb.Struct, error)
	SaveLabel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// AnnotationServer lists batch images and saves labels for the calling principal.
type AnnotationServer struct {
	Batches repository.BatchRepositoryI
	Labels  repository.LabelRepositoryI
	Images  repository.ImageRepositoryI
}

var annotationServiceDesc = grpc.ServiceDesc{
	ServiceName: "annotation.v1.AnnotationService",
	HandlerType: (*AnnotationService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListImages",
			Handler: unary(ListImagesMethod, func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} },
				func(srv any, ctx context.Context, req *wrapperspb.StringValue) (any, error) {
					return srv.(AnnotationService).ListImages(ctx, req)
				}),
		},
		{
			MethodName: "SaveLabel",
			Handler: unary(SaveLabelMethod, func() *structpb.Struct { return &structpb.Struct{} },
				func(srv any, ctx context.Context, req *structpb.Struct) (any, error) {
					return srv.(AnnotationService).SaveLabel(ctx, req)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "annotation/v1/annotation.proto",
}

func RegisterAnnotationService(s grpc.ServiceRegistrar, srv AnnotationService) {
	s.RegisterService(&annotationServiceDesc, srv)
}

// ListImages returns {images, labels} for a batch the caller is authorized on.
func (s *AnnotationServer) ListImages(ctx context.Context, batchID *wrapperspb.StringValue) (*structpb.Struct, error) {
	_, b, err := auth.AuthorizeBatch(ctx, s.Batches, batchID.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	labels, err := s.Labels.Load(ctx, b.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	images, err := s.Images.List(ctx, b, labels)
	if err != nil {
		return nil, toStatus(err)
	}
	if images == nil {
		images = []models.Image{}
	}
	return toStruct(map[string]any{"images": images, "labels": labels})
}

// SaveLabel expects {batch_id, image_name, label_text} and returns the stored label.
func (s *AnnotationServer) SaveLabel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	batchID, err := stringField(req, "batch_id")
	if err != nil {
		return nil, err
	}
	p, b, err := auth.AuthorizeBatch(ctx, s.Batches, batchID)
	if err != nil {
		return nil, toStatus(err)
	}
	image, err := stringField(req, "image_name")
	if err != nil {
		return nil, err
	}
	text, err := stringField(req, "label_text")
	if err != nil {
		return nil, err
	}
	l, err := s.Labels.Save(ctx, b.ID, image, text, p.Username)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{"message": "Label saved successfully", "label": l})
}
