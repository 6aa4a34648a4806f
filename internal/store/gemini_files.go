package store

import (
	"context"
	"io"

	aigenai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
)

func (b *geminiBackend) UploadFile(ctx context.Context, r io.Reader, opts UploadOptions) (*File, error) {
	client, err := b.filesClient(ctx)
	if err != nil {
		return nil, err
	}
	// An empty name lets the backend assign the resource id.
	f, err := client.UploadFile(ctx, "", r, &aigenai.UploadFileOptions{
		DisplayName: opts.DisplayName,
		MIMEType:    opts.MIMEType,
	})
	if err != nil {
		return nil, err
	}
	file := fromAIFile(f)
	return &file, nil
}

func (b *geminiBackend) GetFile(ctx context.Context, name string) (*File, error) {
	if !validResourceName(name) {
		return nil, invalidName("file", name)
	}
	client, err := b.filesClient(ctx)
	if err != nil {
		return nil, err
	}
	f, err := client.GetFile(ctx, name)
	if err != nil {
		return nil, notFound(err, "file", name)
	}
	file := fromAIFile(f)
	return &file, nil
}

func (b *geminiBackend) ListFiles(ctx context.Context, pageToken string) ([]File, string, error) {
	client, err := b.filesClient(ctx)
	if err != nil {
		return nil, "", err
	}
	var page []*aigenai.File
	next, err := iterator.NewPager(client.ListFiles(ctx), b.pageSize, pageToken).NextPage(&page)
	if err != nil {
		return nil, "", err
	}
	files := make([]File, 0, len(page))
	for _, f := range page {
		files = append(files, fromAIFile(f))
	}
	return files, next, nil
}

func (b *geminiBackend) DeleteFile(ctx context.Context, name string) error {
	if !validResourceName(name) {
		return invalidName("file", name)
	}
	client, err := b.filesClient(ctx)
	if err != nil {
		return err
	}
	return notFound(client.DeleteFile(ctx, name), "file", name)
}

func fromAIFile(f *aigenai.File) File {
	if f == nil {
		return File{State: FileStateUnspecified}
	}
	return File{
		Name:        f.Name,
		DisplayName: f.DisplayName,
		MIMEType:    f.MIMEType,
		SizeBytes:   f.SizeBytes,
		CreateTime:  f.CreateTime,
		State:       fileState(f.State),
		URI:         f.URI,
	}
}

func fileState(s aigenai.FileState) FileState {
	switch s {
	case aigenai.FileStateProcessing:
		return FileStateProcessing
	case aigenai.FileStateActive:
		return FileStateActive
	case aigenai.FileStateFailed:
		return FileStateFailed
	default:
		return FileStateUnspecified
	}
}
