// Retrieval HTTP handler.
//
// POST /api/v1/retrieve embeds the query, runs vector search, and returns
// ranked chunks with their owning document metadata. The handler validates
// and defaults the request, delegates to the search engine, and shapes the
// wire response; ranking itself lives in the search package.
package handlers

import (
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/connexus-ai/hr-rag-service/internal/domain"
	"github.com/connexus-ai/hr-rag-service/internal/http/middleware"
)

// Retrieval request bounds and defaults.
const (
	maxQueryRunes        = 500
	maxTopK              = 50
	defaultTopK          = 8
	defaultMinSimilarity = 0.5
)

// RetrieveFilters narrows the search scope.
type RetrieveFilters struct {
	// DocumentID restricts results to one document. Must be a UUID.
	DocumentID string `json:"document_id"`
}

// RetrieveRequest is the JSON payload for the retrieval endpoint. Optional
// numeric fields are pointers so an explicit zero can be told apart from an
// omitted field.
type RetrieveRequest struct {
	Query         string           `json:"query"`
	TopK          *int             `json:"top_k"`
	MinSimilarity *float64         `json:"min_similarity"`
	Filters       *RetrieveFilters `json:"filters"`
}

// RetrieveResult is one ranked chunk in the response.
type RetrieveResult struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	ChunkIndex    int     `json:"chunk_index"`
	Content       string  `json:"content"`
	SectionTitle  string  `json:"section_title,omitempty"`
	Similarity    float64 `json:"similarity"`
	SourceFile    string  `json:"source_file,omitempty"`
	DocumentTitle string  `json:"document_title,omitempty"`
}

// RetrieveResponse is the retrieval endpoint's success envelope.
type RetrieveResponse struct {
	Results   []RetrieveResult `json:"results"`
	RequestID string           `json:"request_id,omitempty"`
}

// toQuery validates the request and produces the internal query. The second
// return value lists field violations; empty means valid.
func (r *RetrieveRequest) toQuery() (domain.Query, []string) {
	var errs []string

	n := utf8.RuneCountInString(r.Query)
	if n < 1 || n > maxQueryRunes {
		errs = append(errs, "query: must be 1..500 characters")
	}

	q := domain.Query{
		Text:          r.Query,
		TopK:          defaultTopK,
		MinSimilarity: defaultMinSimilarity,
	}
	if r.TopK != nil {
		if *r.TopK < 1 || *r.TopK > maxTopK {
			errs = append(errs, "top_k: must be 1..50")
		} else {
			q.TopK = *r.TopK
		}
	}
	if r.MinSimilarity != nil {
		if *r.MinSimilarity < 0 || *r.MinSimilarity > 1 {
			errs = append(errs, "min_similarity: must be within [0,1]")
		} else {
			q.MinSimilarity = *r.MinSimilarity
		}
	}
	if r.Filters != nil && r.Filters.DocumentID != "" {
		if _, err := uuid.Parse(r.Filters.DocumentID); err != nil {
			errs = append(errs, "filters.document_id: must be a UUID")
		} else {
			q.DocumentID = r.Filters.DocumentID
		}
	}
	return q, errs
}

// Retrieve handles POST /api/v1/retrieve.
func (h *Handlers) Retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request body is not valid JSON", nil)
		return
	}

	q, errs := req.toQuery()
	if len(errs) > 0 {
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidationFailed,
			"request failed validation", map[string]any{"errors": errs})
		return
	}

	results, err := h.retriever.Search(c.Request.Context(), q)
	if err != nil {
		failFromServiceErr(c, err)
		return
	}

	out := make([]RetrieveResult, 0, len(results))
	for _, r := range results {
		out = append(out, RetrieveResult{
			ChunkID:       r.Chunk.ID,
			DocumentID:    r.Chunk.DocumentID,
			ChunkIndex:    r.Chunk.ChunkIndex,
			Content:       r.Chunk.Content,
			SectionTitle:  r.Chunk.SectionTitle,
			Similarity:    r.Similarity,
			SourceFile:    r.Document.SourceFile,
			DocumentTitle: r.Document.Title,
		})
	}
	ok(c, http.StatusOK, RetrieveResponse{
		Results:   out,
		RequestID: middleware.RequestIDFrom(c),
	})
}
