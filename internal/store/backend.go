package store

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned (possibly wrapped) when the backend reports that
// the named resource does not exist.
var ErrNotFound = errors.New("resource not found")

type UploadOptions struct {
	DisplayName string
	MIMEType    string
}

// Backend is the contract against the remote index service. A Backend is
// bound to one credential and lives for one request.
type Backend interface {
	ListStores(ctx context.Context, pageToken string) (stores []Store, nextPageToken string, err error)
	CreateStore(ctx context.Context, displayName string) (*Store, error)
	GetStore(ctx context.Context, name string) (*Store, error)
	// DeleteStore removes the store and, with force, every document in it.
	DeleteStore(ctx context.Context, name string, force bool) error

	UploadFile(ctx context.Context, r io.Reader, opts UploadOptions) (*File, error)
	GetFile(ctx context.Context, name string) (*File, error)
	ListFiles(ctx context.Context, pageToken string) (files []File, nextPageToken string, err error)
	DeleteFile(ctx context.Context, name string) error

	ListDocuments(ctx context.Context, storeName, pageToken string) (docs []File, nextPageToken string, err error)
	GetDocument(ctx context.Context, name string) (*File, error)
	DeleteDocument(ctx context.Context, name string, force bool) error

	// ImportFile associates an uploaded file with a store. Indexing happens
	// asynchronously behind the returned operation.
	ImportFile(ctx context.Context, storeName, fileName string) (*Operation, error)
	GetOperation(ctx context.Context, name string) (*Operation, error)

	GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	Close() error
}

// BackendFactory opens a Backend for one credential.
type BackendFactory interface {
	Open(ctx context.Context, credential string) (Backend, error)
}

type BackendFactoryFunc func(ctx context.Context, credential string) (Backend, error)

func (f BackendFactoryFunc) Open(ctx context.Context, credential string) (Backend, error) {
	return f(ctx, credential)
}
