package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/filesearch-playground/internal/apperr"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		fallback string
		override string
		want     string
		wantErr  bool
	}{
		{name: "override_wins", fallback: "server", override: "client", want: "client"},
		{name: "fallback_used", fallback: "server", override: "", want: "server"},
		{name: "whitespace_override_ignored", fallback: "server", override: "   ", want: "server"},
		{name: "override_without_fallback", fallback: "", override: "client", want: "client"},
		{name: "neither", fallback: "", override: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewResolver(tt.fallback).Resolve(tt.override)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveErrorDoesNotLeakCredential(t *testing.T) {
	_, err := NewResolver("").Resolve("")
	require.Error(t, err)
	assert.Equal(t, "Unauthorized: API key required", err.Error())
}

func TestCredentialContext(t *testing.T) {
	ctx := WithCredential(context.Background(), "k")
	assert.Equal(t, "k", CredentialFrom(ctx))
	assert.Empty(t, CredentialFrom(context.Background()))
}
