package grpc

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestInterceptor_OpenMethod_AllowsWithoutToken(t *testing.T) {
	s, _ := newTestServer(t)

	info := &grpc.UnaryServerInfo{FullMethod: IntrospectFullMethod}
	handlerCalled := false

	h := func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("handler was not called")
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
}

func TestInterceptor_WhoAmI_MissingToken(t *testing.T) {
	s, _ := newTestServer(t)

	info := &grpc.UnaryServerInfo{FullMethod: WhoAmIFullMethod}
	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
	if status.Convert(err).Message() != "missing token" {
		t.Fatalf("expected 'missing token', got %q", status.Convert(err).Message())
	}
}

func TestInterceptor_WhoAmI_InvalidToken(t *testing.T) {
	s, _ := newTestServer(t)

	md := metadata.New(map[string]string{
		common.AccessTokenHeaderName: "not-a-valid-jwt",
	})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: WhoAmIFullMethod}

	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called for invalid token")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(ctx, nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
}

func TestInterceptor_WhoAmI_ValidToken_SetsUser(t *testing.T) {
	s, users := newTestServer(t)

	reg, session, err := users.Register(context.Background(), "grpc@example.com", "password123")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	md := metadata.New(map[string]string{
		common.AccessTokenHeaderName: session.AccessToken,
	})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: WhoAmIFullMethod}

	var got *models.User
	h := func(ctx context.Context, req any) (any, error) {
		got = userFromContext(ctx)
		return "ok", nil
	}

	if _, err := s.accessTokenInterceptor(ctx, nil, info, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != reg.ID {
		t.Fatalf("user not propagated in context: got %+v want id %s", got, reg.ID)
	}
}
