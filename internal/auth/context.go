package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxClientID ctxKey = iota
	ctxScopes
)

func WithIdentity(ctx context.Context, clientID string, scopes []string) context.Context {
	ctx = context.WithValue(ctx, ctxClientID, clientID)
	ctx = context.WithValue(ctx, ctxScopes, scopes)
	return ctx
}

func ClientID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxClientID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("client_id not in context")
}

func Scopes(ctx context.Context) []string {
	v, _ := ctx.Value(ctxScopes).([]string)
	return v
}
