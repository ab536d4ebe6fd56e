package auth

import (
	"context"
	"errors"
)

var ErrNoIdentity = errors.New("identity not in context")

// Identity is the verified caller of a request.
type Identity struct {
	OperatorID  string `json:"operator_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.OperatorID == "" {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

func WorkspaceID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.WorkspaceID == "" {
		return "", errors.New("workspace_id not in context")
	}
	return id.WorkspaceID, nil
}

func Role(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.Role == "" {
		return "", errors.New("role not in context")
	}
	return id.Role, nil
}
