package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultMIMEType is used whenever neither the client nor the file name says
// what a document is. Plain text gives the indexer the best chance of
// extracting something.
const DefaultMIMEType = "text/plain"

// ResolveMIMEType picks the MIME type to declare for an upload: the client's
// declared type unless it is missing or the opaque binary type, then the
// type implied by the file extension, then DefaultMIMEType.
func ResolveMIMEType(declared, filename string) string {
	if mt := normalize(declared); mt != "" && mt != "application/octet-stream" {
		return mt
	}
	if ext := filepath.Ext(filename); ext != "" {
		if mt := normalize(mime.TypeByExtension(strings.ToLower(ext))); mt != "" {
			return mt
		}
	}
	return DefaultMIMEType
}

// normalize drops parameters such as "; charset=utf-8".
func normalize(mt string) string {
	mt = strings.TrimSpace(mt)
	if mt == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return ""
	}
	return parsed
}

// DisplayName returns a printable display name for an uploaded file. It is
// only ever sent to the backend as metadata, never used as a path.
func DisplayName(filename string) string {
	name := strings.TrimSpace(filepath.Base(strings.ReplaceAll(filename, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "untitled"
	}
	return name
}
