package prompt

import (
	"fmt"
	"strings"

	"github.com/connexus-ai/hr-rag-service/internal/domain"
)

// noContextMarker replaces the context block when retrieval returned
// nothing, steering the model into the Insufficient Context template.
const noContextMarker = `(no relevant context was retrieved for this question — use the Insufficient Context template)`

// Build produces the final system text: the fixed instruction followed by
// the retrieved-context block. Conversation messages are passed to the LLM
// unmodified alongside this text.
func Build(results []domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\n--- RETRIEVED CONTEXT (untrusted) ---\n")

	if len(results) == 0 {
		b.WriteString(noContextMarker)
		b.WriteString("\n")
		return b.String()
	}

	for i, r := range results {
		title := r.Document.Title
		if title == "" {
			title = "Untitled document"
		}
		fmt.Fprintf(&b, "\n[Context %d] documentTitle: %s, sourceFile: %s, similarity: %.3f\n\n%s\n",
			i+1, title, r.Document.SourceFile, r.Similarity, r.Chunk.Content)
	}
	return b.String()
}
