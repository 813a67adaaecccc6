package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/starford/ansuz/internal/models"
)

// fakeCompletions stands in for the remote endpoint and counts calls.
type fakeCompletions struct {
	t       *testing.T
	calls   atomic.Int64
	status  int
	content string
	body    string // raw body override; wins over content
}

func (f *fakeCompletions) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.URL.Path != "/chat/completions" {
			f.t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			f.t.Errorf("Authorization = %q", got)
		}
		if f.status != 0 && f.status != http.StatusOK {
			w.WriteHeader(f.status)
			if f.body != "" {
				w.Write([]byte(f.body))
			}
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": f.content},
					"finish_reason": "stop",
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func testClient(t *testing.T, f *fakeCompletions) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-model", "test-key")
}

// newCapturingClient backs a client with an arbitrary handler for tests
// that need to inspect the outbound request.
func newCapturingClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-model", "test-key")
}

const longDoc = `Log-structured merge trees buffer writes in memory and flush them
as sorted runs, trading read amplification for sequential write throughput.
Compaction merges runs in the background to bound the number of levels a
read must consult.`

func TestSummarizeShortContentSkipsRemote(t *testing.T) {
	f := &fakeCompletions{t: t}
	c := testClient(t, f)

	sum := c.Summarize(context.Background(), "note.txt", "A fifty character note about almost nothing at all")

	if n := f.calls.Load(); n != 0 {
		t.Errorf("remote calls = %d, want 0", n)
	}
	if sum.Source != models.SummarySourceShort {
		t.Errorf("Source = %q, want short", sum.Source)
	}
	if sum.Summary != "Document is too short to summarize." {
		t.Errorf("Summary = %q", sum.Summary)
	}
	if len(sum.KeyPoints) != 1 || sum.KeyPoints[0] != "Short document" {
		t.Errorf("KeyPoints = %v", sum.KeyPoints)
	}
	if sum.Language != "en" {
		t.Errorf("Language = %q, want en", sum.Language)
	}
	if sum.EstimatedWords != 9 {
		t.Errorf("EstimatedWords = %d, want 9", sum.EstimatedWords)
	}
}

func TestSummarizeShortKorean(t *testing.T) {
	f := &fakeCompletions{t: t}
	c := testClient(t, f)

	sum := c.Summarize(context.Background(), "메모.txt", "저장 엔진에 대한 짧은 메모")

	if f.calls.Load() != 0 {
		t.Error("remote called for short content")
	}
	if sum.Language != "ko" {
		t.Errorf("Language = %q, want ko", sum.Language)
	}
	if !strings.Contains(sum.Summary, "너무 짧습니다") {
		t.Errorf("Summary = %q", sum.Summary)
	}
	if len(sum.KeyPoints) != 1 || sum.KeyPoints[0] != "짧은 문서" {
		t.Errorf("KeyPoints = %v", sum.KeyPoints)
	}
}

func TestSummarizeStrictJSONResponse(t *testing.T) {
	f := &fakeCompletions{t: t, content: `{"summary": "LSM trees trade reads for writes.",
		"keyPoints": ["buffered writes", "background compaction"],
		"language": "en", "estimatedWords": 40}`}
	c := testClient(t, f)

	sum := c.Summarize(context.Background(), "lsm.md", longDoc)

	if f.calls.Load() != 1 {
		t.Errorf("remote calls = %d, want 1", f.calls.Load())
	}
	if sum.Source != models.SummarySourceModel {
		t.Errorf("Source = %q, want model", sum.Source)
	}
	if sum.Summary != "LSM trees trade reads for writes." {
		t.Errorf("Summary = %q", sum.Summary)
	}
	if len(sum.KeyPoints) != 2 {
		t.Errorf("KeyPoints = %v", sum.KeyPoints)
	}
	if sum.FileName != "lsm.md" {
		t.Errorf("FileName = %q", sum.FileName)
	}
	if sum.EstimatedWords != 40 {
		t.Errorf("EstimatedWords = %d", sum.EstimatedWords)
	}
}

func TestSummarizeCodeBlockWrappedJSON(t *testing.T) {
	f := &fakeCompletions{t: t, content: "Here is the summary:\n```json\n" +
		`{"summary": "Wrapped.", "keyPoints": ["one",], "language": "en", "estimatedWords": 5}` +
		"\n```"}
	c := testClient(t, f)

	sum := c.Summarize(context.Background(), "doc.txt", longDoc)

	if sum.Source != models.SummarySourceModel {
		t.Errorf("Source = %q, want model (code block with trailing comma should still parse)", sum.Source)
	}
	if sum.Summary != "Wrapped." {
		t.Errorf("Summary = %q", sum.Summary)
	}
}

func TestSummarizeProseFallsBackToHeuristic(t *testing.T) {
	f := &fakeCompletions{t: t, content: "This document explains LSM tree storage.\n" +
		"- writes are buffered in memory\n" +
		"- compaction runs in the background"}
	c := testClient(t, f)

	sum := c.Summarize(context.Background(), "lsm.md", longDoc)

	if sum.Source != models.SummarySourceHeuristic {
		t.Errorf("Source = %q, want heuristic", sum.Source)
	}
	if sum.Summary != "This document explains LSM tree storage." {
		t.Errorf("Summary = %q", sum.Summary)
	}
	if len(sum.KeyPoints) != 2 || sum.KeyPoints[0] != "writes are buffered in memory" {
		t.Errorf("KeyPoints = %v", sum.KeyPoints)
	}
	if sum.EstimatedWords == 0 {
		t.Error("EstimatedWords not backfilled")
	}
}

func TestSummarizeAuthFailureFallback(t *testing.T) {
	f := &fakeCompletions{t: t, status: http.StatusUnauthorized, body: `{"error": {"message": "bad key"}}`}
	c := testClient(t, f)

	sum := c.Summarize(context.Background(), "doc.txt", longDoc)

	if sum.Source != models.SummarySourceFallback {
		t.Errorf("Source = %q, want fallback", sum.Source)
	}
	if !strings.Contains(sum.Summary, "API key") {
		t.Errorf("Summary = %q, want auth explanation", sum.Summary)
	}
	if len(sum.KeyPoints) == 0 {
		t.Error("fallback has no key points")
	}
}

func TestSummarizeQuotaFailureFallback(t *testing.T) {
	f := &fakeCompletions{t: t, status: http.StatusTooManyRequests, body: `{"error": {"message": "rate limited"}}`}
	c := testClient(t, f)

	sum := c.Summarize(context.Background(), "doc.txt", longDoc)

	if sum.Source != models.SummarySourceFallback {
		t.Errorf("Source = %q, want fallback", sum.Source)
	}
	if !strings.Contains(sum.Summary, "quota") {
		t.Errorf("Summary = %q, want quota explanation", sum.Summary)
	}
}

func TestSummarizeUnconfiguredClient(t *testing.T) {
	c := NewClient("http://localhost:0", "m", "") // no key

	sum := c.Summarize(context.Background(), "doc.txt", longDoc)

	if sum.Source != models.SummarySourceFallback {
		t.Errorf("Source = %q, want fallback", sum.Source)
	}
	if sum.EstimatedWords != estimateWords(longDoc) {
		t.Errorf("EstimatedWords = %d", sum.EstimatedWords)
	}
}

func TestDetectLanguage(t *testing.T) {
	if got := detectLanguage("plain english text"); got != "en" {
		t.Errorf("got %q, want en", got)
	}
	if got := detectLanguage("mixed 한국어 content"); got != "ko" {
		t.Errorf("got %q, want ko", got)
	}
}
