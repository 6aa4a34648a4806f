package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	aigenai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrInvalidName is returned for resource names that cannot be placed in a
// request path as-is.
var ErrInvalidName = errors.New("invalid resource name")

var resourceSegment = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// validResourceName accepts slash-separated names such as
// "fileSearchStores/abc/documents/d1". Names are spliced into request paths
// by the SDKs, so anything that could change the path or query is refused.
func validResourceName(name string) bool {
	if name == "" {
		return false
	}
	for _, seg := range strings.Split(name, "/") {
		if !resourceSegment.MatchString(seg) || seg == ".." {
			return false
		}
	}
	return true
}

func invalidName(what, name string) error {
	return fmt.Errorf("%s %q: %w", what, name, ErrInvalidName)
}

type GeminiConfig struct {
	// BaseURL of the Gemini API, without the version segment. Empty means
	// the SDK default.
	BaseURL      string
	FileListPage int
	Logger       *zap.Logger
}

// GeminiFactory opens Gemini-backed Backends, one per credential.
type GeminiFactory struct {
	cfg GeminiConfig
}

func NewGeminiFactory(cfg GeminiConfig) *GeminiFactory {
	if cfg.FileListPage <= 0 {
		cfg.FileListPage = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &GeminiFactory{cfg: cfg}
}

func (f *GeminiFactory) Open(ctx context.Context, credential string) (Backend, error) {
	if credential == "" {
		return nil, errors.New("gemini backend requires a credential")
	}
	return &geminiBackend{
		credential: credential,
		baseURL:    f.cfg.BaseURL,
		pageSize:   f.cfg.FileListPage,
		log:        f.cfg.Logger,
	}, nil
}

// geminiBackend splits the contract across two SDKs: generative-ai-go for
// the Files API, and genai for file search stores, their documents and
// operations, and generation. Clients are created on first use. Not safe
// for concurrent use.
type geminiBackend struct {
	credential string
	baseURL    string
	pageSize   int
	log        *zap.Logger

	files *aigenai.Client
	genai *genai.Client
}

func (b *geminiBackend) filesClient(ctx context.Context) (*aigenai.Client, error) {
	if b.files != nil {
		return b.files, nil
	}
	client, err := aigenai.NewClient(ctx, option.WithAPIKey(b.credential))
	if err != nil {
		return nil, fmt.Errorf("failed to create files client: %w", err)
	}
	b.files = client
	return client, nil
}

func (b *geminiBackend) genaiClient(ctx context.Context) (*genai.Client, error) {
	if b.genai != nil {
		return b.genai, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      b.credential,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: b.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	b.genai = client
	return client, nil
}

func (b *geminiBackend) Close() error {
	if b.files == nil {
		return nil
	}
	if err := b.files.Close(); err != nil {
		b.log.Warn("error closing files client", zap.Error(err))
		return err
	}
	return nil
}

// notFound rewrites backend 404s as ErrNotFound and leaves other errors
// untouched.
func notFound(err error, what, name string) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("%s %q: %w", what, name, ErrNotFound)
	}
	return err
}

func isNotFound(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusNotFound
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return status.Code(err) == codes.NotFound
}
