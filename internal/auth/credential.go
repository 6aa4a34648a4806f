package auth

import (
	"context"
	"strings"

	"gwi.com/filesearch-playground/internal/apperr"
)

// HeaderName carries a per-request API key that overrides the server's own.
const HeaderName = "X-Gemini-Api-Key"

type ctxKey struct{}

// Resolver picks the credential for a request. The fallback is fixed at
// construction and never changes.
type Resolver struct {
	fallback string
}

func NewResolver(fallback string) *Resolver {
	return &Resolver{fallback: strings.TrimSpace(fallback)}
}

// Resolve returns override when set, the fallback otherwise, and an
// Unauthorized error when neither exists.
func (r *Resolver) Resolve(override string) (string, error) {
	if v := strings.TrimSpace(override); v != "" {
		return v, nil
	}
	if r != nil && r.fallback != "" {
		return r.fallback, nil
	}
	return "", apperr.New(apperr.KindUnauthorized, "API key required")
}

func (r *Resolver) HasFallback() bool {
	return r != nil && r.fallback != ""
}

func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, ctxKey{}, credential)
}

func CredentialFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}
