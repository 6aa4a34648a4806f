package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"gwi.com/filesearch-playground/internal/store"
)

func TestExtractCitationsNil(t *testing.T) {
	got := ExtractCitations(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = ExtractCitations(&store.GroundingMetadata{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExtractCitations(t *testing.T) {
	g := &store.GroundingMetadata{
		Chunks: []store.GroundingChunk{
			{Text: "Revenue grew 12%.", Title: "q3.pdf"},
			{},
			{URI: "https://example.com/policy", Title: "Policy"},
			{Title: "notes.md"},
		},
		Supports: []store.GroundingSupport{
			{SegmentText: "", ChunkIndices: []int{2}},
			{SegmentText: "The policy allows remote work", ChunkIndices: []int{2, 0}},
			{SegmentText: "later segment", ChunkIndices: []int{2}},
		},
	}

	want := []Citation{
		{Snippet: "Revenue grew 12%.", SourceTitle: "q3.pdf"},
		{Snippet: "The policy allows remote work", SourceURI: "https://example.com/policy", SourceTitle: "Policy"},
		{SourceTitle: "notes.md"},
	}
	if diff := cmp.Diff(want, ExtractCitations(g)); diff != "" {
		t.Errorf("citations mismatch (-want +got):\n%s", diff)
	}
}
