package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *geminiBackend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b, err := NewGeminiFactory(GeminiConfig{BaseURL: srv.URL}).Open(context.Background(), "test-key")
	require.NoError(t, err)
	return b.(*geminiBackend)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFoundBody(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error": map[string]any{"code": 404, "message": "Requested entity was not found.", "status": "NOT_FOUND"},
	})
}

func decodeRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestListStoresSendsKeyAndPaginates(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "/v1beta/fileSearchStores", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("pageSize"))

		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"fileSearchStores": []map[string]any{{
					"name":                 "fileSearchStores/a",
					"displayName":          "A",
					"createTime":           "2025-11-10T10:00:00Z",
					"activeDocumentsCount": "3",
					"sizeBytes":            "2048",
				}},
				"nextPageToken": "p2",
			})
			return
		}
		assert.Equal(t, "p2", r.URL.Query().Get("pageToken"))
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	stores, next, err := b.ListStores(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "p2", next)
	assert.Equal(t, "fileSearchStores/a", stores[0].Name)
	assert.EqualValues(t, 3, stores[0].ActiveDocuments)
	assert.EqualValues(t, 2048, stores[0].SizeBytes)
	assert.Equal(t, 2025, stores[0].CreateTime.Year())

	stores, next, err = b.ListStores(context.Background(), "p2")
	require.NoError(t, err)
	assert.Empty(t, stores)
	assert.NotNil(t, stores)
	assert.Empty(t, next)
}

func TestCreateStorePostsDisplayName(t *testing.T) {
	var calls atomic.Int32
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/fileSearchStores", r.URL.Path)
		assert.Equal(t, "Docs", decodeRequest(t, r)["displayName"])
		writeJSON(w, http.StatusOK, map[string]any{"name": "fileSearchStores/docs-1", "displayName": "Docs"})
	})

	s, err := b.CreateStore(context.Background(), "Docs")
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/docs-1", s.Name)
	assert.Equal(t, "Docs", s.DisplayName)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetAndDeleteStoreNotFound(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/fileSearchStores/missing", r.URL.Path)
		if r.Method == http.MethodDelete {
			assert.Equal(t, "true", r.URL.Query().Get("force"))
		}
		notFoundBody(w)
	})

	_, err := b.GetStore(context.Background(), "fileSearchStores/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = b.DeleteStore(context.Background(), "fileSearchStores/missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServerErrorIsNotNotFound(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"code": 500, "message": "backend exploded"},
		})
	})

	_, err := b.GetStore(context.Background(), "fileSearchStores/a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "backend exploded")
}

func TestInvalidNamesNeverReachTheBackend(t *testing.T) {
	var calls atomic.Int32
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	ctx := context.Background()

	for _, name := range []string{"", "../files/x", "fileSearchStores/a?x=1", "fileSearchStores//a", "fileSearchStores/a#b"} {
		_, err := b.GetStore(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
		_, err = b.GetDocument(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
		_, err = b.GetOperation(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
	for _, name := range []string{"", "files/../fileSearchStores/a", "files/a?alt=media", "files/a b"} {
		_, err := b.GetFile(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
		assert.ErrorIs(t, b.DeleteFile(ctx, name), ErrInvalidName, name)
	}
	assert.Zero(t, calls.Load())
	assert.Nil(t, b.files, "no Files API client is built for a rejected name")
}

func TestImportFileAndPollOperation(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1beta/fileSearchStores/abc:importFile":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "files/f1", decodeRequest(t, r)["fileName"])
			writeJSON(w, http.StatusOK, map[string]any{"name": "fileSearchStores/abc/operations/op1"})
		case "/v1beta/fileSearchStores/abc/operations/op1":
			writeJSON(w, http.StatusOK, map[string]any{
				"name": "fileSearchStores/abc/operations/op1",
				"done": true,
				"response": map[string]any{
					"@type":        "type.googleapis.com/google.ai.generativelanguage.v1main.ImportFileResponse",
					"parent":       "fileSearchStores/abc",
					"documentName": "fileSearchStores/abc/documents/d1",
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	op, err := b.ImportFile(context.Background(), "fileSearchStores/abc", "files/f1")
	require.NoError(t, err)
	assert.False(t, op.Done)
	assert.Equal(t, "fileSearchStores/abc/operations/op1", op.Name)

	op, err = b.GetOperation(context.Background(), op.Name)
	require.NoError(t, err)
	assert.True(t, op.Done)
	assert.Nil(t, op.Error)
	assert.Equal(t, "fileSearchStores/abc/documents/d1", op.DocumentName)
}

func TestOperationErrorIsDecoded(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":  "fileSearchStores/abc/operations/op1",
			"done":  true,
			"error": map[string]any{"code": 3, "message": "unsupported file"},
		})
	})

	op, err := b.GetOperation(context.Background(), "fileSearchStores/abc/operations/op1")
	require.NoError(t, err)
	assert.True(t, op.Done)
	require.NotNil(t, op.Error)
	assert.Equal(t, 3, op.Error.Code)
	assert.Equal(t, "unsupported file", op.Error.Message)
	assert.Empty(t, op.DocumentName)
}

func TestDocumentsMapState(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1beta/fileSearchStores/abc/documents":
			writeJSON(w, http.StatusOK, map[string]any{
				"documents": []map[string]any{
					{"name": "fileSearchStores/abc/documents/d1", "state": "STATE_ACTIVE", "sizeBytes": "10"},
					{"name": "fileSearchStores/abc/documents/d2", "state": "STATE_PENDING"},
					{"name": "fileSearchStores/abc/documents/d3", "state": "STATE_FAILED"},
				},
			})
		case "/v1beta/fileSearchStores/abc/documents/d3":
			writeJSON(w, http.StatusOK, map[string]any{
				"name": "fileSearchStores/abc/documents/d3", "displayName": "report.pdf", "state": "STATE_FAILED",
			})
		default:
			notFoundBody(w)
		}
	})
	ctx := context.Background()

	docs, _, err := b.ListDocuments(ctx, "fileSearchStores/abc", "")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, FileStateActive, docs[0].State)
	assert.EqualValues(t, 10, docs[0].SizeBytes)
	assert.Equal(t, FileStatePending, docs[1].State)
	assert.Equal(t, FileStateFailed, docs[2].State)

	doc, err := b.GetDocument(ctx, "fileSearchStores/abc/documents/d3")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", doc.DisplayName)
	assert.Equal(t, FileStateFailed, doc.State)

	_, err = b.GetDocument(ctx, "fileSearchStores/abc/documents/gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDocumentForces(t *testing.T) {
	var calls atomic.Int32
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1beta/fileSearchStores/abc/documents/d1", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("force"))
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	require.NoError(t, b.DeleteDocument(context.Background(), "fileSearchStores/abc/documents/d1", true))
	assert.EqualValues(t, 1, calls.Load())
}

func TestCloseWithoutSDKClients(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	assert.NoError(t, b.Close())
}

func TestFactoryRejectsEmptyCredential(t *testing.T) {
	_, err := NewGeminiFactory(GeminiConfig{BaseURL: "http://example.invalid"}).Open(context.Background(), "")
	assert.Error(t, err)
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"genai_value", genai.APIError{Code: 404, Status: "NOT_FOUND"}, true},
		{"genai_pointer", &genai.APIError{Code: 404}, true},
		{"genai_wrapped", fmt.Errorf("get: %w", genai.APIError{Code: 404}), true},
		{"genai_forbidden", genai.APIError{Code: 403}, false},
		{"googleapi", &googleapi.Error{Code: 404}, true},
		{"grpc", status.Error(codes.NotFound, "gone"), true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}
