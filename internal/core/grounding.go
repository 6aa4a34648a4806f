package core

import "gwi.com/filesearch-playground/internal/store"

// Citation is one piece of evidence the backend attributed to an answer.
// Source fields are optional; rendering a placeholder for them is up to the
// caller.
type Citation struct {
	Snippet     string `json:"snippet"`
	SourceURI   string `json:"sourceUri,omitempty"`
	SourceTitle string `json:"sourceTitle,omitempty"`
}

// ExtractCitations turns grounding metadata into citations, one per
// grounding chunk in backend order. The result is never nil.
func ExtractCitations(g *store.GroundingMetadata) []Citation {
	citations := []Citation{}
	if g == nil {
		return citations
	}

	// Chunks without their own text borrow the first answer segment that
	// cites them.
	segmentFor := make(map[int]string)
	for _, support := range g.Supports {
		if support.SegmentText == "" {
			continue
		}
		for _, idx := range support.ChunkIndices {
			if _, ok := segmentFor[idx]; !ok {
				segmentFor[idx] = support.SegmentText
			}
		}
	}

	for i, chunk := range g.Chunks {
		snippet := chunk.Text
		if snippet == "" {
			snippet = segmentFor[i]
		}
		if snippet == "" && chunk.URI == "" && chunk.Title == "" {
			continue
		}
		citations = append(citations, Citation{
			Snippet:     snippet,
			SourceURI:   chunk.URI,
			SourceTitle: chunk.Title,
		})
	}
	return citations
}
