package ai

import (
	"context"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// historyWindow is how many recent transcript turns accompany a chat
// request as conversational context.
const historyWindow = 6

// apologyMessage is persisted as the assistant turn when the remote call
// fails, so the transcript is never left half-written.
const apologyMessage = "I'm sorry, I couldn't answer that right now. Please try again in a moment."

const chatSystemPrompt = `You are a research assistant. Answer strictly from the supplied sources;
if the sources do not contain the answer, say so. After your answer, list the names of the
sources you used on a final line starting with "Sources:".`

// ChatResult is the assistant's answer with the source names it cited
// and a coarse confidence heuristic in [0, 1].
type ChatResult struct {
	Content               string
	ReferencedSourceNames []string
	Confidence            float64
}

// hedging markers that lower answer confidence.
var hedgeMarkers = []string{
	"i'm not sure", "i am not sure", "cannot find", "can't find",
	"do not know", "don't know", "no information", "not mentioned",
	"확실하지 않", "찾을 수 없", "알 수 없",
}

// Chat answers a user query from the selected sources plus recent
// history. It never returns an error: a remote failure yields a fixed
// apologetic result with no sources and zero confidence.
func (c *Client) Chat(ctx context.Context, query string, sources []models.SourceFile, history []models.ChatMessage) ChatResult {
	messages := []wireMessage{
		{Role: "system", Content: chatSystemPrompt},
	}
	if block := contextBlock(sources); block != "" {
		messages = append(messages, wireMessage{Role: "system", Content: block})
	}

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, turn := range history {
		role := "assistant"
		if turn.FromUser {
			role = "user"
		}
		messages = append(messages, wireMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, wireMessage{Role: "user", Content: query})

	raw, err := c.complete(ctx, messages)
	if err != nil {
		c.logger.Warn("chat failed, returning apology", "error", err)
		return ChatResult{
			Content:               apologyMessage,
			ReferencedSourceNames: []string{},
			Confidence:            0,
		}
	}

	content, referenced := splitSourcesLine(raw, sources)
	return ChatResult{
		Content:               content,
		ReferencedSourceNames: referenced,
		Confidence:            scoreConfidence(content, referenced),
	}
}

// contextBlock concatenates each selected source's name and full content.
func contextBlock(sources []models.SourceFile) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Sources:\n")
	for _, src := range sources {
		b.WriteString("\n[Source: ")
		b.WriteString(src.Name)
		b.WriteString("]\n")
		b.WriteString(src.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// splitSourcesLine parses the trailing "Sources:" line if the model
// produced one; otherwise it falls back to scanning the answer for
// echoed source names.
func splitSourcesLine(raw string, sources []models.SourceFile) (string, []string) {
	content := strings.TrimSpace(raw)
	referenced := []string{}

	if idx := strings.LastIndex(content, "Sources:"); idx >= 0 {
		tail := content[idx+len("Sources:"):]
		if !strings.Contains(tail, "\n") {
			for _, part := range strings.Split(tail, ",") {
				name := strings.Trim(strings.TrimSpace(part), ".")
				if name != "" && matchesSource(name, sources) {
					referenced = append(referenced, name)
				}
			}
			if len(referenced) > 0 {
				content = strings.TrimSpace(content[:idx])
				return content, referenced
			}
		}
	}

	for _, src := range sources {
		if strings.Contains(content, src.Name) {
			referenced = append(referenced, src.Name)
		}
	}
	return content, referenced
}

func matchesSource(name string, sources []models.SourceFile) bool {
	for _, src := range sources {
		if strings.EqualFold(src.Name, name) {
			return true
		}
	}
	return false
}

// scoreConfidence is a coarse heuristic: hedging language pulls the
// score down, multiple echoed sources push it up.
func scoreConfidence(content string, referenced []string) float64 {
	score := 0.6
	lower := strings.ToLower(content)
	for _, marker := range hedgeMarkers {
		if strings.Contains(lower, marker) {
			score -= 0.3
			break
		}
	}
	if len(referenced) > 1 {
		score += 0.3
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
