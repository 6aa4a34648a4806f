package core

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"gwi.com/filesearch-playground/internal/apperr"
	"gwi.com/filesearch-playground/internal/logger"
	"gwi.com/filesearch-playground/internal/metrics"
	"gwi.com/filesearch-playground/internal/store"
)

const defaultStoreDisplayName = "New Store"

// maxListPages stops a listing whose page tokens never run out.
const maxListPages = 1000

type StoreService struct {
	backends store.BackendFactory
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewStoreService(backends store.BackendFactory, log *zap.Logger, m *metrics.Metrics) *StoreService {
	return &StoreService{
		backends: backends,
		log:      logger.Module(log, "stores"),
		metrics:  m,
	}
}

// ListStores drains every page the backend offers into one slice.
func (s *StoreService) ListStores(ctx context.Context, credential string) ([]store.Store, error) {
	b, err := openBackend(ctx, s.backends, credential)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	all := []store.Store{}
	token := ""
	for page := 0; page < maxListPages; page++ {
		stores, next, err := b.ListStores(ctx, token)
		if err != nil {
			s.metrics.BackendError("list_stores")
			s.log.Error("List stores error", zap.Int("page", page), zap.Error(err))
			return nil, backendError(err, apperr.KindInternal)
		}
		all = append(all, stores...)
		if next == "" || next == token {
			return all, nil
		}
		token = next
	}
	s.log.Warn("Store listing truncated", zap.Int("pages", maxListPages))
	return all, nil
}

// CreateStore always creates a new store; display names need not be unique.
func (s *StoreService) CreateStore(ctx context.Context, credential, displayName string) (*store.Store, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = defaultStoreDisplayName
	}

	b, err := openBackend(ctx, s.backends, credential)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	created, err := b.CreateStore(ctx, displayName)
	if err != nil {
		s.metrics.BackendError("create_store")
		s.log.Error("Create store error", zap.String("display_name", displayName), zap.Error(err))
		return nil, backendError(err, apperr.KindInternal)
	}
	s.log.Info("Store created", zap.String("store", created.Name), zap.String("display_name", created.DisplayName))
	return created, nil
}

func (s *StoreService) GetStore(ctx context.Context, credential, name string) (*store.Store, error) {
	if name == "" {
		return nil, apperr.New(apperr.KindBadRequest, "store id required")
	}
	b, err := openBackend(ctx, s.backends, credential)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	found, err := b.GetStore(ctx, name)
	if err != nil {
		s.metrics.BackendError("get_store")
		s.log.Warn("Get store error", zap.String("store", name), zap.Error(err))
		return nil, backendError(err, apperr.KindInternal)
	}
	return found, nil
}

// DeleteStore force-deletes the store together with its documents. Deleting
// a store that does not exist yields NotFound, which callers may treat as
// success.
func (s *StoreService) DeleteStore(ctx context.Context, credential, name string) error {
	if name == "" {
		return apperr.New(apperr.KindBadRequest, "store id required")
	}
	b, err := openBackend(ctx, s.backends, credential)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.DeleteStore(ctx, name, true); err != nil {
		s.metrics.BackendError("delete_store")
		s.log.Warn("Delete store error", zap.String("store", name), zap.Error(err))
		return backendError(err, apperr.KindInternal)
	}
	s.log.Info("Store deleted", zap.String("store", name))
	return nil
}
