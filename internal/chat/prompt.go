package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eduzmena/eduscan/internal/retrieval"
)

const defaultMaxContextTokens = 4000

// systemPrompt frames the model as a grounded assistant over local school
// project documents. Answers default to Czech. The sentence pointing at the
// context section is appended separately, only when retrieval produced one.
const systemPrompt = `You are a helpful assistant answering questions using only information from local document excerpts about school projects.

Guidelines:
1. Base your answer strictly on the provided excerpts.
2. If the excerpts do not contain enough information to answer, clearly state that the information is not available in the local documents.
3. Do not invent document contents.

Answer in Czech unless the user explicitly requests another language.`

const contextPreamble = "The relevant excerpts are provided below under [Retrieved Context]."

// buildContext renders retrieved chunks into a context section, dropping
// lowest-scoring chunks first when the token budget would be exceeded.
func buildContext(chunks []retrieval.ContextChunk, maxTokens int) string {
	if len(chunks) == 0 {
		return ""
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxContextTokens
	}

	sorted := make([]retrieval.ContextChunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	header := "[Retrieved Context]\n"
	remaining := maxTokens - estimateTokens(header)

	var selected []string
	for _, ch := range sorted {
		entry := formatChunk(ch)
		tokens := estimateTokens(entry)
		if tokens > remaining {
			continue
		}
		selected = append(selected, entry)
		remaining -= tokens
	}
	if len(selected) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(header)
	for _, entry := range selected {
		sb.WriteString(entry)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatChunk(ch retrieval.ContextChunk) string {
	return fmt.Sprintf("(Score: %.2f, Source: %s#%d)\n%s\n\n", ch.Score, ch.DocumentID, ch.ChunkIndex, ch.Text)
}

// estimateTokens provides a rough token count using 4 chars per token heuristic.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}
