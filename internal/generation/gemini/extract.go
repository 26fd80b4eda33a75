package gemini

import (
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/genai"

	"nanobanana/internal/generation"
)

// collectText concatenates the text parts of the first candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// firstInlineImage returns the first inline media payload of the first
// candidate, or nil when the response carries none.
func firstInlineImage(resp *genai.GenerateContentResponse) *generation.Media {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		return &generation.Media{
			MIMEType: part.InlineData.MIMEType,
			Data:     part.InlineData.Data,
		}
	}
	return nil
}

func groundingChunks(resp *genai.GenerateContentResponse) []*genai.GroundingChunk {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}
	return meta.GroundingChunks
}

// appendGroundingSources appends a deduplicated source list to the answer
// text. Each source keeps its first-seen position and is labeled with the
// link's hostname.
func appendGroundingSources(text string, chunks []*genai.GroundingChunk) string {
	if len(chunks) == 0 {
		return text
	}

	seen := make(map[string]bool, len(chunks))
	var lines []string
	for _, chunk := range chunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		uri := chunk.Web.URI
		if seen[uri] {
			continue
		}
		seen[uri] = true

		lines = append(lines, fmt.Sprintf("- [%s](%s)", hostnameOf(uri), uri))
	}
	if len(lines) == 0 {
		return text
	}
	return text + "\n\nSources:\n" + strings.Join(lines, "\n")
}

func hostnameOf(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Hostname() == "" {
		return uri
	}
	return parsed.Hostname()
}
