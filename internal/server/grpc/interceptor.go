package grpc

import (
	"context"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

// UserKey holds the *models.User resolved by the interceptor.
const UserKey ctxKey = "user"

// authenticated lists the methods that require an access_token.
var authenticated = map[string]bool{
	WhoAmIFullMethod: true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if authenticated[info.FullMethod] {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		user, err := s.users.Me(ctx, accessToken)
		if err != nil {
			s.logger.Error(ctx, "user lookup failed", "error", err)
			return nil, status.Error(codes.Internal, "internal error")
		}
		if user == nil {
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}

		ctx = context.WithValue(ctx, UserKey, user)

	}

	return handler(ctx, req)
}

func userFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(UserKey).(*models.User)
	return u
}
