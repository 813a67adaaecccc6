package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

const (
	// minSummarizeChars is the content length below which no remote
	// call is made; a canned "too short" summary is synthesized.
	minSummarizeChars = 100

	// maxPromptChars caps the content sent to the service, respecting
	// its input limits. Longer documents are truncated for the prompt
	// only; the stored content stays complete.
	maxPromptChars = 10000
)

const summarizeSystemPrompt = `You are a document summarization assistant.
Respond with a single JSON object and nothing else, using this shape:
{"summary": "...", "keyPoints": ["...", "..."], "language": "two-letter code", "estimatedWords": 123}`

// Summarize produces a structured Summary for the extracted content.
// It never returns an error: short content is summarized locally, a
// malformed model response falls back to heuristic extraction, and any
// remote failure is absorbed into a fallback Summary explaining the
// cause. The Source field records which path produced the result.
func (c *Client) Summarize(ctx context.Context, fileName, content string) *models.Summary {
	lang := detectLanguage(content)

	if len([]rune(content)) < minSummarizeChars {
		return shortSummary(fileName, content, lang)
	}

	prompt := content
	if len([]rune(prompt)) > maxPromptChars {
		prompt = string([]rune(prompt)[:maxPromptChars])
	}

	raw, err := c.complete(ctx, []wireMessage{
		{Role: "system", Content: summarizeSystemPrompt},
		{Role: "user", Content: "Summarize the document \"" + fileName + "\":\n\n" + prompt},
	})
	if err != nil {
		var remote *RemoteError
		if !errors.As(err, &remote) {
			remote = &RemoteError{Cause: CauseUnclassified, Err: err}
		}
		c.logger.Warn("summarize failed, synthesizing fallback",
			"file", fileName, "cause", string(remote.Cause), "error", err)
		return fallbackSummary(fileName, content, lang, remote)
	}

	sum := parseSummaryResponse(raw, lang)
	sum.FileName = fileName
	if sum.EstimatedWords == 0 {
		sum.EstimatedWords = estimateWords(content)
	}
	return sum
}

// shortSummary is the deterministic local result for content under the
// summarization threshold.
func shortSummary(fileName, content, lang string) *models.Summary {
	text := "Document is too short to summarize."
	marker := "Short document"
	if lang == "ko" {
		text = "요약하기에는 문서가 너무 짧습니다."
		marker = "짧은 문서"
	}
	return &models.Summary{
		FileName:       fileName,
		Summary:        text,
		KeyPoints:      []string{marker},
		EstimatedWords: estimateWords(content),
		Language:       lang,
		Source:         models.SummarySourceShort,
	}
}

// fallbackSummary wraps a classified remote failure in a valid Summary
// so downstream consumers never need a null check.
func fallbackSummary(fileName, content, lang string, remote *RemoteError) *models.Summary {
	return &models.Summary{
		FileName:       fileName,
		Summary:        remote.Explain(),
		KeyPoints:      []string{"Summary unavailable"},
		EstimatedWords: estimateWords(content),
		Language:       lang,
		Source:         models.SummarySourceFallback,
	}
}

// detectLanguage is a coarse script check: any Hangul syllable or jamo
// marks the document as Korean, otherwise English is assumed.
func detectLanguage(content string) string {
	for _, r := range content {
		if (r >= 0xAC00 && r <= 0xD7A3) || (r >= 0x1100 && r <= 0x11FF) {
			return "ko"
		}
	}
	return "en"
}

func estimateWords(content string) int {
	return len(strings.Fields(content))
}
