package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// Pre-compiled patterns for pulling JSON out of a model response that
// may wrap it in a markdown code block or surrounding prose.
var (
	jsonBlockPattern     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	jsonObjectPattern    = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	enumLinePattern      = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// summarySchema is the strict response contract requested from the model.
type summarySchema struct {
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"keyPoints"`
	Language       string   `json:"language"`
	EstimatedWords int      `json:"estimatedWords"`
}

// parseSummaryResponse attempts a strict structured parse of the model
// output, then falls back to heuristic line-based extraction rather than
// failing. The returned Summary's Source records which path ran.
func parseSummaryResponse(raw, fallbackLang string) *models.Summary {
	if sum, ok := parseStrict(raw); ok {
		if sum.Language == "" {
			sum.Language = fallbackLang
		}
		return sum
	}
	return parseHeuristic(raw, fallbackLang)
}

func parseStrict(raw string) (*models.Summary, bool) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, false
	}
	var schema summarySchema
	if err := json.Unmarshal([]byte(payload), &schema); err != nil {
		return nil, false
	}
	if schema.Summary == "" {
		return nil, false
	}
	if len(schema.KeyPoints) == 0 {
		schema.KeyPoints = []string{schema.Summary}
	}
	return &models.Summary{
		Summary:        schema.Summary,
		KeyPoints:      schema.KeyPoints,
		EstimatedWords: schema.EstimatedWords,
		Language:       schema.Language,
		Source:         models.SummarySourceModel,
	}, true
}

// extractJSON pulls a JSON object from the response: markdown code block
// first, then a greedy object match, with trailing commas removed.
func extractJSON(content string) string {
	raw := ""
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else if m := jsonObjectPattern.FindString(content); m != "" {
		raw = m
	}
	if raw == "" {
		return ""
	}
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}

// parseHeuristic extracts a summary and key points from free text: the
// first prose line is taken as the summary statement, and lines carrying
// enumeration markers become key points.
func parseHeuristic(raw, lang string) *models.Summary {
	var summary string
	var points []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		if m := enumLinePattern.FindStringSubmatch(line); m != nil {
			points = append(points, strings.TrimSpace(m[1]))
			continue
		}
		if summary == "" {
			summary = strings.TrimPrefix(line, "Summary:")
			summary = strings.TrimSpace(summary)
		}
	}

	if summary == "" {
		summary = strings.TrimSpace(raw)
	}
	if len(points) == 0 {
		points = []string{summary}
	}
	return &models.Summary{
		Summary:   summary,
		KeyPoints: points,
		Language:  lang,
		Source:    models.SummarySourceHeuristic,
	}
}
