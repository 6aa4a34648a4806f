package store

import "time"

type FileState string

const (
	FileStateUnspecified FileState = "STATE_UNSPECIFIED"
	FileStatePending     FileState = "PENDING"
	FileStateProcessing  FileState = "PROCESSING"
	FileStateActive      FileState = "ACTIVE"
	FileStateFailed      FileState = "FAILED"
)

// Terminal reports whether the backend will move the file out of this state.
func (s FileState) Terminal() bool {
	return s == FileStateActive || s == FileStateFailed
}

type Store struct {
	Name             string    `json:"name"` // e.g. "fileSearchStores/abc-123"
	DisplayName      string    `json:"displayName"`
	CreateTime       time.Time `json:"createTime"`
	UpdateTime       time.Time `json:"updateTime,omitempty"`
	ActiveDocuments  int64     `json:"activeDocumentsCount"`
	PendingDocuments int64     `json:"pendingDocumentsCount"`
	FailedDocuments  int64     `json:"failedDocumentsCount"`
	SizeBytes        int64     `json:"sizeBytes"`
}

type File struct {
	Name        string    `json:"name"` // "files/..." or "fileSearchStores/.../documents/..."
	DisplayName string    `json:"displayName"`
	MIMEType    string    `json:"mimeType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreateTime  time.Time `json:"createTime"`
	State       FileState `json:"state"`
	URI         string    `json:"uri,omitempty"`
}

// Operation is a handle on a long-running backend job.
type Operation struct {
	Name  string
	Done  bool
	Error *OperationError
	// DocumentName is the store document an import produced, once known.
	DocumentName string
}

type OperationError struct {
	Code    int
	Message string
}

func (e *OperationError) Error() string {
	return e.Message
}

type Content struct {
	Role string // "user" or "model"
	Text string
}

type GenerateRequest struct {
	Model             string
	SystemInstruction string
	Contents          []Content
	// FileSearchStores scopes the retrieval tool. Empty means no tool.
	FileSearchStores []string
}

type GenerateResult struct {
	Text      string
	Grounding *GroundingMetadata // nil when the backend attached none
}

type GroundingMetadata struct {
	Chunks   []GroundingChunk
	Supports []GroundingSupport
}

type GroundingChunk struct {
	Text  string
	URI   string
	Title string
}

// GroundingSupport ties a segment of the generated text to the chunks that
// back it.
type GroundingSupport struct {
	SegmentText  string
	ChunkIndices []int
}
