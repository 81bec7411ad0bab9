package grpc

import (
	"context"

	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func stringList(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func profileStruct(u *models.User) (*structpb.Struct, error) {
	p := u.Profile()
	m := map[string]any{
		"id":         p.ID,
		"email":      p.Email,
		"roles":      stringList(p.Roles),
		"created_at": float64(p.CreatedAt),
		"updated_at": float64(p.UpdatedAt),
		"google_sub": nil,
	}
	if p.GoogleSub != nil {
		m["google_sub"] = *p.GoogleSub
	}
	return structpb.NewStruct(m)
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	user := userFromContext(ctx)
	if user == nil {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	out, err := profileStruct(user)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// Introspect never fails on a bad token; it answers {"active": false}.
func (s *GRPCServer) Introspect(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	claims, err := s.sessions.Authenticate(req.GetValue())
	if err != nil {
		return structpb.NewStruct(map[string]any{"active": false})
	}

	s.logger.Debug(ctx, "token introspected", "user_id", claims.Subject)

	m := map[string]any{
		"active": true,
		"sub":    claims.Subject,
		"email":  claims.Email,
		"roles":  stringList(claims.Roles),
	}
	if claims.ExpiresAt != nil {
		m["exp"] = float64(claims.ExpiresAt.Unix())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}
