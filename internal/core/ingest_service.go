package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gwi.com/filesearch-playground/internal/apperr"
	"gwi.com/filesearch-playground/internal/logger"
	"gwi.com/filesearch-playground/internal/metrics"
	"gwi.com/filesearch-playground/internal/store"
	"gwi.com/filesearch-playground/internal/utils"
)

// Ingestion stages, reported on failures.
const (
	StageStage     = "stage"
	StageUpload    = "upload"
	StageAssociate = "associate"
	StagePoll      = "poll"
	StageIndex     = "index"
)

const stagedFilePrefix = "ingest-"

type IngestOptions struct {
	StagingDir   string
	PollInterval time.Duration
	MaxWait      time.Duration
}

type IngestRequest struct {
	Content io.Reader
	// Filename is client-supplied. It feeds the display name and MIME
	// inference only; it never becomes part of a local path.
	Filename  string
	MIMEType  string
	StoreName string
}

type IngestResult struct {
	File      store.File `json:"file"`
	StoreName string     `json:"storeId,omitempty"`
	// Document is the store document the import produced, when the
	// operation named one.
	Document     *store.File `json:"document,omitempty"`
	Indexed      bool        `json:"indexed"`
	PollAttempts int         `json:"pollAttempts"`
}

type IngestionService struct {
	backends store.BackendFactory
	opts     IngestOptions
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewIngestionService(backends store.BackendFactory, opts IngestOptions, log *zap.Logger, m *metrics.Metrics) *IngestionService {
	if opts.StagingDir == "" {
		opts.StagingDir = os.TempDir()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * time.Minute
	}
	return &IngestionService{
		backends: backends,
		opts:     opts,
		log:      logger.Module(log, "ingest"),
		metrics:  m,
	}
}

// Ingest stages one document, uploads it and, when a store is named,
// associates it with the store and waits for indexing to finish. The staged
// copy is removed before Ingest returns, whatever the outcome.
func (s *IngestionService) Ingest(ctx context.Context, credential string, req IngestRequest) (res *IngestResult, err error) {
	if credential == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "API key required")
	}
	if req.Content == nil {
		return nil, apperr.New(apperr.KindBadRequest, "No file provided")
	}

	start := time.Now()
	polls := 0
	defer func() {
		s.metrics.ObserveIngestion(ingestOutcome(res, err), time.Since(start), polls)
	}()

	displayName := utils.DisplayName(req.Filename)
	mimeType := utils.ResolveMIMEType(req.MIMEType, req.Filename)
	log := s.log.With(zap.String("display_name", displayName), zap.String("store", req.StoreName))

	stagedPath, size, err := s.stage(req.Content)
	if err != nil {
		log.Error("Failed to stage upload", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindIOError, err, "failed to stage upload").AtStage(StageStage)
	}
	defer s.release(stagedPath)
	log.Debug("Upload staged", zap.String("path", stagedPath), zap.Int64("size_bytes", size))

	b, err := openBackend(ctx, s.backends, credential)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	file, err := s.upload(ctx, b, stagedPath, store.UploadOptions{DisplayName: displayName, MIMEType: mimeType})
	if err != nil {
		s.metrics.BackendError("upload_file")
		log.Error("Upload error", zap.String("mime_type", mimeType), zap.Error(err))
		return nil, backendError(err, apperr.KindUploadFailed).AtStage(StageUpload)
	}
	log = log.With(zap.String("file", file.Name))
	log.Info("File uploaded", zap.String("mime_type", mimeType), zap.String("state", string(file.State)))

	if req.StoreName == "" {
		return &IngestResult{File: *file}, nil
	}

	op, err := b.ImportFile(ctx, req.StoreName, file.Name)
	if err != nil {
		s.metrics.BackendError("import_file")
		log.Error("Associate error", zap.Error(err))
		return nil, backendError(err, apperr.KindIngestionFailed).AtStage(StageAssociate)
	}

	op, polls, err = s.awaitOperation(ctx, b, op)
	if err != nil {
		log.Error("Indexing did not complete", zap.Int("polls", polls), zap.Error(err))
		return nil, err
	}
	if op.Error != nil {
		log.Error("Indexing operation failed", zap.String("operation", op.Name), zap.Int("code", op.Error.Code), zap.String("reason", op.Error.Message))
		return nil, apperr.Wrap(apperr.KindIngestionFailed, op.Error, "indexing failed: "+op.Error.Message).AtStage(StageIndex)
	}

	var doc *store.File
	if op.DocumentName != "" {
		doc, err = b.GetDocument(ctx, op.DocumentName)
		if err != nil {
			s.metrics.BackendError("get_document")
			log.Error("Failed to read document state after indexing", zap.String("document", op.DocumentName), zap.Error(err))
			return nil, backendError(err, apperr.KindIngestionFailed).AtStage(StageIndex)
		}
		if doc.State == store.FileStateFailed {
			log.Error("Document failed indexing", zap.String("document", doc.Name), zap.Int("polls", polls))
			return nil, apperr.New(apperr.KindIngestionFailed, fmt.Sprintf("document %s ended in state %s", doc.Name, doc.State)).AtStage(StageIndex)
		}
	}

	// The uploaded file is still reported, and is the only state to go on
	// when the operation did not name a document.
	final, err := b.GetFile(ctx, file.Name)
	if err != nil {
		s.metrics.BackendError("get_file")
		log.Error("Failed to read file state after indexing", zap.Error(err))
		return nil, backendError(err, apperr.KindIngestionFailed).AtStage(StageIndex)
	}
	if doc == nil && final.State == store.FileStateFailed {
		log.Error("File failed processing", zap.Int("polls", polls))
		return nil, apperr.New(apperr.KindIngestionFailed, fmt.Sprintf("file %s ended in state %s", final.Name, final.State)).AtStage(StageIndex)
	}

	log.Info("File indexed", zap.Int("polls", polls), zap.String("state", string(final.State)), zap.Duration("elapsed", time.Since(start)))
	return &IngestResult{
		File:         *final,
		StoreName:    req.StoreName,
		Document:     doc,
		Indexed:      true,
		PollAttempts: polls,
	}, nil
}

// stage copies r to a new file in the staging directory. The name is a
// fresh UUID so nothing the client sent can influence it.
func (s *IngestionService) stage(r io.Reader) (string, int64, error) {
	path := filepath.Join(s.opts.StagingDir, stagedFilePrefix+uuid.NewString())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create staging file: %w", err)
	}

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		s.release(path)
		return "", 0, fmt.Errorf("failed to write staging file: %w", err)
	}
	return path, n, nil
}

func (s *IngestionService) release(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Error("Failed to remove staged upload", zap.String("path", path), zap.Error(err))
	}
}

func (s *IngestionService) upload(ctx context.Context, b store.Backend, path string, opts store.UploadOptions) (*store.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen staged upload: %w", err)
	}
	defer f.Close()
	return b.UploadFile(ctx, f, opts)
}

// awaitOperation polls op at the configured interval until it reports done.
// It gives up with IngestionTimeout once MaxWait elapses or ctx ends, and
// never polls again after observing done.
func (s *IngestionService) awaitOperation(ctx context.Context, b store.Backend, op *store.Operation) (*store.Operation, int, error) {
	if op.Done {
		return op, 0, nil
	}
	if op.Name == "" {
		return nil, 0, apperr.New(apperr.KindIngestionFailed, "backend returned an operation without a name").AtStage(StagePoll)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.MaxWait)
	defer cancel()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-waitCtx.Done():
			return nil, attempts, s.pollAborted(ctx, op.Name, attempts)
		case <-ticker.C:
		}
		if waitCtx.Err() != nil {
			return nil, attempts, s.pollAborted(ctx, op.Name, attempts)
		}

		attempts++
		next, err := b.GetOperation(waitCtx, op.Name)
		if err != nil {
			if waitCtx.Err() != nil {
				return nil, attempts, s.pollAborted(ctx, op.Name, attempts)
			}
			s.metrics.BackendError("get_operation")
			return nil, attempts, backendError(err, apperr.KindIngestionFailed).AtStage(StagePoll)
		}
		s.log.Debug("Polled operation", zap.String("operation", op.Name), zap.Int("attempt", attempts), zap.Bool("done", next.Done))
		if next.Done {
			return next, attempts, nil
		}
		if next.Name == "" {
			next.Name = op.Name
		}
		op = next
	}
}

func (s *IngestionService) pollAborted(parent context.Context, opName string, attempts int) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return apperr.Wrap(apperr.KindIngestionTimeout, parent.Err(),
			fmt.Sprintf("ingestion cancelled while waiting for %s after %d polls", opName, attempts)).AtStage(StagePoll)
	}
	return apperr.Wrap(apperr.KindIngestionTimeout, context.DeadlineExceeded,
		fmt.Sprintf("operation %s not done after %s (%d polls)", opName, s.opts.MaxWait, attempts)).AtStage(StagePoll)
}

func ingestOutcome(res *IngestResult, err error) string {
	switch {
	case err == nil && res != nil && res.Indexed:
		return metrics.OutcomeIndexed
	case err == nil:
		return metrics.OutcomeUploaded
	case apperr.Is(err, apperr.KindIngestionTimeout):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeFailed
	}
}
