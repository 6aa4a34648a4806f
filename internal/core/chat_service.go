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

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type ChatTurn struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
}

type ChatRequest struct {
	Message string
	// History is ordered oldest first.
	History []ChatTurn
	// StoreName, when set, grounds this call in that store only.
	StoreName string
}

type ChatReply struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations"`
}

type ChatOptions struct {
	Model             string
	SystemInstruction string
}

type ChatService struct {
	backends store.BackendFactory
	opts     ChatOptions
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewChatService(backends store.BackendFactory, opts ChatOptions, log *zap.Logger, m *metrics.Metrics) *ChatService {
	return &ChatService{
		backends: backends,
		opts:     opts,
		log:      logger.Module(log, "chat"),
		metrics:  m,
	}
}

// Chat answers req.Message with one generation call. Nothing about the
// store binding outlives the call.
func (s *ChatService) Chat(ctx context.Context, credential string, req ChatRequest) (*ChatReply, error) {
	if credential == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "API key required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperr.New(apperr.KindBadRequest, "Message cannot be empty")
	}

	b, err := openBackend(ctx, s.backends, credential)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	grounded := req.StoreName != ""
	result, err := b.GenerateContent(ctx, s.buildGenerateRequest(req))
	if err != nil {
		s.metrics.ObserveChat(grounded, false, 0)
		s.metrics.BackendError("generate_content")
		s.log.Error("Chat error", zap.String("store", req.StoreName), zap.Int("history_len", len(req.History)), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindGenerationFailed, err, "")
	}

	citations := ExtractCitations(result.Grounding)
	s.metrics.ObserveChat(grounded, true, len(citations))
	s.log.Debug("Chat answered",
		zap.String("store", req.StoreName),
		zap.Int("history_len", len(req.History)),
		zap.Bool("grounding_present", result.Grounding != nil),
		zap.Int("citations", len(citations)))

	return &ChatReply{
		Role:      RoleModel,
		Content:   result.Text,
		Citations: citations,
	}, nil
}

func (s *ChatService) buildGenerateRequest(req ChatRequest) store.GenerateRequest {
	contents := make([]store.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		contents = append(contents, store.Content{Role: normalizeRole(turn.Role), Text: turn.Content})
	}
	contents = append(contents, store.Content{Role: RoleUser, Text: req.Message})

	gen := store.GenerateRequest{
		Model:             s.opts.Model,
		SystemInstruction: s.opts.SystemInstruction,
		Contents:          contents,
	}
	if req.StoreName != "" {
		gen.FileSearchStores = []string{req.StoreName}
	}
	return gen
}

// normalizeRole maps anything that is not exactly "user" to the model role.
func normalizeRole(role string) string {
	if role == RoleUser {
		return RoleUser
	}
	return RoleModel
}
