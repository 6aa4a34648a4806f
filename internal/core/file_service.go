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

type FileService struct {
	backends store.BackendFactory
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewFileService(backends store.BackendFactory, log *zap.Logger, m *metrics.Metrics) *FileService {
	return &FileService{
		backends: backends,
		log:      logger.Module(log, "files"),
		metrics:  m,
	}
}

// ListFiles returns the caller's uploaded files, or the documents of one
// store when storeName is set.
func (s *FileService) ListFiles(ctx context.Context, credential, storeName string) ([]store.File, error) {
	b, err := openBackend(ctx, s.backends, credential)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	list := func(ctx context.Context, token string) ([]store.File, string, error) {
		return b.ListFiles(ctx, token)
	}
	if storeName != "" {
		list = func(ctx context.Context, token string) ([]store.File, string, error) {
			return b.ListDocuments(ctx, storeName, token)
		}
	}

	all := []store.File{}
	token := ""
	for page := 0; page < maxListPages; page++ {
		files, next, err := list(ctx, token)
		if err != nil {
			s.metrics.BackendError("list_files")
			s.log.Error("List files error", zap.String("store", storeName), zap.Error(err))
			return nil, backendError(err, apperr.KindInternal)
		}
		all = append(all, files...)
		if next == "" || next == token {
			break
		}
		token = next
	}
	return all, nil
}

// DeleteFile removes an uploaded file, or a store document when name is a
// document resource name.
func (s *FileService) DeleteFile(ctx context.Context, credential, name string) error {
	if name == "" {
		return apperr.New(apperr.KindBadRequest, "File name required")
	}
	b, err := openBackend(ctx, s.backends, credential)
	if err != nil {
		return err
	}
	defer b.Close()

	if isDocumentName(name) {
		err = b.DeleteDocument(ctx, name, true)
	} else {
		err = b.DeleteFile(ctx, name)
	}
	if err != nil {
		s.metrics.BackendError("delete_file")
		s.log.Warn("Delete file error", zap.String("file", name), zap.Error(err))
		return backendError(err, apperr.KindInternal)
	}
	s.log.Info("File deleted", zap.String("file", name))
	return nil
}

func isDocumentName(name string) bool {
	return strings.HasPrefix(name, "fileSearchStores/") && strings.Contains(name, "/documents/")
}
