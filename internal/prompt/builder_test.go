package prompt

import (
	"strings"
	"testing"

	"github.com/connexus-ai/hr-rag-service/internal/domain"
)

func result(title, source, content string, sim float64) domain.RetrievalResult {
	return domain.RetrievalResult{
		Chunk:      domain.Chunk{Content: content},
		Document:   domain.Document{Title: title, SourceFile: source},
		Similarity: sim,
	}
}

func TestBuild_EmptyResultsUsesMarker(t *testing.T) {
	got := Build(nil)

	if !strings.Contains(got, "Insufficient Context template") {
		t.Error("empty retrieval should steer the model to the fallback template")
	}
	if strings.Contains(got, "[Context 1]") {
		t.Error("no context entries expected")
	}
	if !strings.Contains(got, InsufficientContextPhrase) {
		t.Error("system text must carry the fixed fallback phrase")
	}
}

func TestBuild_NumbersContextEntries(t *testing.T) {
	got := Build([]domain.RetrievalResult{
		result("Leave Policy", "policies/leave.md", "Full-time employees accrue 25 vacation days per year.", 0.72),
		result("Benefits Overview", "benefits/overview.md", "PTO carries over up to 5 days.", 0.551),
	})

	if !strings.Contains(got, "[Context 1] documentTitle: Leave Policy, sourceFile: policies/leave.md, similarity: 0.720") {
		t.Errorf("first entry header missing or malformed:\n%s", got)
	}
	if !strings.Contains(got, "[Context 2] documentTitle: Benefits Overview") {
		t.Error("second entry header missing")
	}
	if !strings.Contains(got, "Full-time employees accrue 25 vacation days per year.") {
		t.Error("chunk content missing")
	}
}

func TestBuild_UntitledFallback(t *testing.T) {
	got := Build([]domain.RetrievalResult{result("", "x.md", "content", 0.6)})
	if !strings.Contains(got, "documentTitle: Untitled document") {
		t.Error("missing title fallback not applied")
	}
}

func TestBuild_InstructionInvariants(t *testing.T) {
	got := Build(nil)
	for _, want := range []string{
		"at most ONE clarifying question",
		"- Context N — Document Title",
		"untrusted",
		"Never disclose",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("system text missing %q", want)
		}
	}
}
