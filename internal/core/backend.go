package core

import (
	"context"
	"errors"

	"gwi.com/filesearch-playground/internal/apperr"
	"gwi.com/filesearch-playground/internal/store"
)

// openBackend refuses to touch the backend without a credential.
func openBackend(ctx context.Context, backends store.BackendFactory, credential string) (store.Backend, error) {
	if credential == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "API key required")
	}
	b, err := backends.Open(ctx, credential)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to open backend client")
	}
	return b, nil
}

// backendError tags a backend failure, keeping NotFound and malformed names
// distinct from the operation's general failure kind.
func backendError(err error, kind apperr.Kind) *apperr.Error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, err, "")
	case errors.Is(err, store.ErrInvalidName):
		return apperr.Wrap(apperr.KindBadRequest, err, "")
	default:
		return apperr.Wrap(kind, err, "")
	}
}
