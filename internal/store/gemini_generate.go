package store

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

func (b *geminiBackend) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	client, err := b.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	contents, config := toGenaiRequest(req)

	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}
	return fromGenaiResponse(resp), nil
}

func toGenaiRequest(req GenerateRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(req.Contents))
	for _, c := range req.Contents {
		contents = append(contents, &genai.Content{
			Role:  c.Role,
			Parts: []*genai.Part{{Text: c.Text}},
		})
	}

	config := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}
	if len(req.FileSearchStores) > 0 {
		config.Tools = []*genai.Tool{{
			FileSearch: &genai.FileSearch{
				FileSearchStoreNames: append([]string(nil), req.FileSearchStores...),
			},
		}}
	}
	return contents, config
}

func fromGenaiResponse(resp *genai.GenerateContentResponse) *GenerateResult {
	if resp == nil {
		return &GenerateResult{}
	}
	result := &GenerateResult{Text: resp.Text()}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return result
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm == nil {
		return result
	}

	grounding := &GroundingMetadata{}
	// Chunks keep their positions so support indices stay valid.
	for _, chunk := range gm.GroundingChunks {
		var gc GroundingChunk
		switch {
		case chunk == nil:
		case chunk.RetrievedContext != nil:
			gc = GroundingChunk{
				Text:  chunk.RetrievedContext.Text,
				URI:   chunk.RetrievedContext.URI,
				Title: chunk.RetrievedContext.Title,
			}
		case chunk.Web != nil:
			gc = GroundingChunk{URI: chunk.Web.URI, Title: chunk.Web.Title}
		}
		grounding.Chunks = append(grounding.Chunks, gc)
	}
	for _, support := range gm.GroundingSupports {
		if support == nil {
			continue
		}
		gs := GroundingSupport{}
		if support.Segment != nil {
			gs.SegmentText = support.Segment.Text
		}
		for _, idx := range support.GroundingChunkIndices {
			gs.ChunkIndices = append(gs.ChunkIndices, int(idx))
		}
		grounding.Supports = append(grounding.Supports, gs)
	}
	result.Grounding = grounding
	return result
}
