package store

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const storePageSize = 20

func (b *geminiBackend) ListStores(ctx context.Context, pageToken string) ([]Store, string, error) {
	client, err := b.genaiClient(ctx)
	if err != nil {
		return nil, "", err
	}
	page, err := client.FileSearchStores.List(ctx, &genai.ListFileSearchStoresConfig{
		PageSize:  storePageSize,
		PageToken: pageToken,
	})
	if err != nil {
		return nil, "", err
	}
	stores := make([]Store, 0, len(page.Items))
	for _, s := range page.Items {
		stores = append(stores, fromGenaiStore(s))
	}
	return stores, page.NextPageToken, nil
}

func (b *geminiBackend) CreateStore(ctx context.Context, displayName string) (*Store, error) {
	client, err := b.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	created, err := client.FileSearchStores.Create(ctx, &genai.CreateFileSearchStoreConfig{DisplayName: displayName})
	if err != nil {
		return nil, err
	}
	s := fromGenaiStore(created)
	return &s, nil
}

func (b *geminiBackend) GetStore(ctx context.Context, name string) (*Store, error) {
	if !validResourceName(name) {
		return nil, invalidName("store", name)
	}
	client, err := b.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	found, err := client.FileSearchStores.Get(ctx, name, nil)
	if err != nil {
		return nil, notFound(err, "store", name)
	}
	s := fromGenaiStore(found)
	return &s, nil
}

func (b *geminiBackend) DeleteStore(ctx context.Context, name string, force bool) error {
	if !validResourceName(name) {
		return invalidName("store", name)
	}
	client, err := b.genaiClient(ctx)
	if err != nil {
		return err
	}
	err = client.FileSearchStores.Delete(ctx, name, &genai.DeleteFileSearchStoreConfig{Force: genai.Ptr(force)})
	return notFound(err, "store", name)
}

func (b *geminiBackend) ListDocuments(ctx context.Context, storeName, pageToken string) ([]File, string, error) {
	if !validResourceName(storeName) {
		return nil, "", invalidName("store", storeName)
	}
	client, err := b.genaiClient(ctx)
	if err != nil {
		return nil, "", err
	}
	page, err := client.FileSearchStores.Documents.List(ctx, storeName, &genai.ListDocumentsConfig{
		PageSize:  storePageSize,
		PageToken: pageToken,
	})
	if err != nil {
		return nil, "", notFound(err, "store", storeName)
	}
	docs := make([]File, 0, len(page.Items))
	for _, d := range page.Items {
		docs = append(docs, fromGenaiDocument(d))
	}
	return docs, page.NextPageToken, nil
}

func (b *geminiBackend) GetDocument(ctx context.Context, name string) (*File, error) {
	if !validResourceName(name) {
		return nil, invalidName("document", name)
	}
	client, err := b.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := client.FileSearchStores.Documents.Get(ctx, name, nil)
	if err != nil {
		return nil, notFound(err, "document", name)
	}
	f := fromGenaiDocument(doc)
	return &f, nil
}

func (b *geminiBackend) DeleteDocument(ctx context.Context, name string, force bool) error {
	if !validResourceName(name) {
		return invalidName("document", name)
	}
	client, err := b.genaiClient(ctx)
	if err != nil {
		return err
	}
	err = client.FileSearchStores.Documents.Delete(ctx, name, &genai.DeleteDocumentConfig{Force: genai.Ptr(force)})
	return notFound(err, "document", name)
}

func (b *geminiBackend) ImportFile(ctx context.Context, storeName, fileName string) (*Operation, error) {
	if !validResourceName(storeName) {
		return nil, invalidName("store", storeName)
	}
	if !validResourceName(fileName) {
		return nil, invalidName("file", fileName)
	}
	client, err := b.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	op, err := client.FileSearchStores.ImportFile(ctx, storeName, fileName, nil)
	if err != nil {
		return nil, notFound(err, "store", storeName)
	}
	return fromImportOperation(op), nil
}

func (b *geminiBackend) GetOperation(ctx context.Context, name string) (*Operation, error) {
	if !validResourceName(name) {
		return nil, invalidName("operation", name)
	}
	client, err := b.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	op, err := client.Operations.GetImportFileOperation(ctx, &genai.ImportFileOperation{Name: name}, nil)
	if err != nil {
		return nil, notFound(err, "operation", name)
	}
	return fromImportOperation(op), nil
}

func fromGenaiStore(s *genai.FileSearchStore) Store {
	if s == nil {
		return Store{}
	}
	return Store{
		Name:             s.Name,
		DisplayName:      s.DisplayName,
		CreateTime:       s.CreateTime,
		UpdateTime:       s.UpdateTime,
		ActiveDocuments:  s.ActiveDocumentsCount,
		PendingDocuments: s.PendingDocumentsCount,
		FailedDocuments:  s.FailedDocumentsCount,
		SizeBytes:        s.SizeBytes,
	}
}

func fromGenaiDocument(d *genai.Document) File {
	if d == nil {
		return File{State: FileStateUnspecified}
	}
	return File{
		Name:        d.Name,
		DisplayName: d.DisplayName,
		MIMEType:    d.MIMEType,
		SizeBytes:   d.SizeBytes,
		CreateTime:  d.CreateTime,
		State:       documentState(d.State),
	}
}

func documentState(s genai.DocumentState) FileState {
	switch s {
	case genai.DocumentStatePending:
		return FileStatePending
	case genai.DocumentStateActive:
		return FileStateActive
	case genai.DocumentStateFailed:
		return FileStateFailed
	default:
		return FileStateUnspecified
	}
}

func fromImportOperation(op *genai.ImportFileOperation) *Operation {
	if op == nil {
		return &Operation{}
	}
	out := &Operation{Name: op.Name, Done: op.Done, Error: operationError(op.Error)}
	if op.Response != nil {
		out.DocumentName = op.Response.DocumentName
	}
	return out
}

// operationError reads the google.rpc.Status an operation carries when it
// failed. The SDK leaves it as a decoded JSON object.
func operationError(raw map[string]any) *OperationError {
	if len(raw) == 0 {
		return nil
	}
	e := &OperationError{}
	switch code := raw["code"].(type) {
	case float64:
		e.Code = int(code)
	case int:
		e.Code = code
	}
	if msg, ok := raw["message"].(string); ok {
		e.Message = msg
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("operation failed with code %d", e.Code)
	}
	return e
}
