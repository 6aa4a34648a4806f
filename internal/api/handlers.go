package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"gwi.com/filesearch-playground/internal/apperr"
	"gwi.com/filesearch-playground/internal/auth"
	"gwi.com/filesearch-playground/internal/core"
	"gwi.com/filesearch-playground/internal/logger"
	"gwi.com/filesearch-playground/internal/store"
)

// multipartMemory is how much of an upload is held in memory before the
// multipart reader spills to disk.
const multipartMemory = 8 << 20

// maxJSONBodyBytes caps JSON request bodies.
const maxJSONBodyBytes = 1 << 20

type APIHandler struct {
	credentials    *auth.Resolver
	stores         *core.StoreService
	files          *core.FileService
	ingest         *core.IngestionService
	chat           *core.ChatService
	maxUploadBytes int64
	validate       *validator.Validate
	log            *zap.Logger
}

type Services struct {
	Stores *core.StoreService
	Files  *core.FileService
	Ingest *core.IngestionService
	Chat   *core.ChatService
}

func NewAPIHandler(credentials *auth.Resolver, svc Services, maxUploadBytes int64, log *zap.Logger) *APIHandler {
	return &APIHandler{
		credentials:    credentials,
		stores:         svc.Stores,
		files:          svc.Files,
		ingest:         svc.Ingest,
		chat:           svc.Chat,
		maxUploadBytes: maxUploadBytes,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		log:            logger.Module(log, "api"),
	}
}

// CredentialMiddleware resolves the API key for the request and rejects it
// before any handler runs when there is none.
func (h *APIHandler) CredentialMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential, err := h.credentials.Resolve(r.Header.Get(auth.HeaderName))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithCredential(r.Context(), credential)))
	})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"fallbackCredential": h.credentials.HasFallback(),
	})
}

type ListStoresResponse struct {
	FileSearchStores []store.Store `json:"fileSearchStores"`
}

func (h *APIHandler) ListStoresHandler(w http.ResponseWriter, r *http.Request) {
	stores, err := h.stores.ListStores(r.Context(), auth.CredentialFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ListStoresResponse{FileSearchStores: stores})
}

type CreateStoreRequest struct {
	DisplayName string `json:"displayName" validate:"max=512"`
}

func (h *APIHandler) CreateStoreHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateStoreRequest
	if err := h.decodeOptional(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.stores.CreateStore(r.Context(), auth.CredentialFrom(r.Context()), req.DisplayName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, created)
}

func (h *APIHandler) GetStoreHandler(w http.ResponseWriter, r *http.Request) {
	name, err := resourceParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	found, err := h.stores.GetStore(r.Context(), auth.CredentialFrom(r.Context()), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, found)
}

func (h *APIHandler) DeleteStoreHandler(w http.ResponseWriter, r *http.Request) {
	name, err := resourceParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.stores.DeleteStore(r.Context(), auth.CredentialFrom(r.Context()), name); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type ListFilesResponse struct {
	Files []store.File `json:"files"`
}

func (h *APIHandler) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.ListFiles(r.Context(), auth.CredentialFrom(r.Context()), r.URL.Query().Get("storeId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ListFilesResponse{Files: files})
}

type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*core.IngestResult
}

func (h *APIHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, apperr.New(apperr.KindBadRequest, fmt.Sprintf("File exceeds the %d byte upload limit", tooLarge.Limit)))
			return
		}
		h.writeError(w, r, apperr.Wrap(apperr.KindBadRequest, err, "Invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, apperr.New(apperr.KindBadRequest, "No file provided"))
		return
	}
	defer file.Close()

	storeID := strings.TrimSpace(r.FormValue("storeId"))
	result, err := h.ingest.Ingest(r.Context(), auth.CredentialFrom(r.Context()), core.IngestRequest{
		Content:   file,
		Filename:  header.Filename,
		MIMEType:  header.Header.Get("Content-Type"),
		StoreName: storeID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	message := "File uploaded"
	if result.Indexed {
		message = "File uploaded and associated"
	}
	h.writeJSON(w, http.StatusOK, UploadResponse{Success: true, Message: message, IngestResult: result})
}

// DeleteFileHandler accepts the file name either as the ?name= query value
// or as the trailing path.
func (h *APIHandler) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if chi.URLParam(r, "*") != "" {
		var err error
		if name, err = resourceParam(r); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	if err := h.files.DeleteFile(r.Context(), auth.CredentialFrom(r.Context()), name); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message string        `json:"message" validate:"required"`
	History []ChatMessage `json:"history"`
	StoreID string        `json:"storeId"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, bodyError(err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, r, validationError(err))
		return
	}

	history := make([]core.ChatTurn, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, core.ChatTurn{Role: m.Role, Content: m.Content})
	}

	reply, err := h.chat.Chat(r.Context(), auth.CredentialFrom(r.Context()), core.ChatRequest{
		Message:   req.Message,
		History:   history,
		StoreName: strings.TrimSpace(req.StoreID),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reply)
}

// decodeOptional decodes a JSON body into v; an empty body leaves v as is.
func (h *APIHandler) decodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return bodyError(err)
	}
	if err := h.validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Wrap(apperr.KindBadRequest, err, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
	}
	return apperr.Wrap(apperr.KindBadRequest, err, "Invalid request body: "+err.Error())
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperr.Wrap(apperr.KindBadRequest, err, fmt.Sprintf("Invalid field %s: failed %q", fe.Field(), fe.Tag()))
	}
	return apperr.Wrap(apperr.KindBadRequest, err, "Invalid request")
}

// resourceParam returns the percent-decoded wildcard path. Resource names
// contain slashes, so clients may send them encoded or raw.
func resourceParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "*")
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", apperr.Wrap(apperr.KindBadRequest, err, "Invalid resource name")
	}
	return strings.Trim(name, "/"), nil
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindIngestionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		h.log.Error("Unclassified error", zap.String("path", r.URL.Path), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	status := statusFor(ae.Kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", zap.String("path", r.URL.Path), zap.String("kind", string(ae.Kind)), zap.Error(err))
	}
	h.writeJSON(w, status, errorResponse{Error: ae.Message, Stage: ae.Stage})
}

// writeJSON sends v with the given status. The status line is already out
// when encoding fails, so the failure can only be logged.
func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("Failed to write response", zap.Int("status", status), zap.Error(err))
	}
}
