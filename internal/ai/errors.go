package ai

import (
	"fmt"
	"net/http"
	"strings"
)

// FailureCause classifies a remote-call failure into a small fixed set.
type FailureCause string

const (
	CauseAuth         FailureCause = "auth"
	CauseQuota        FailureCause = "quota"
	CauseSafety       FailureCause = "safety"
	CauseUnclassified FailureCause = "unclassified"
)

// RemoteError is a classified failure of the completion service. It
// never propagates out of this package: Summarize and Chat absorb it
// into a degraded-but-valid result.
type RemoteError struct {
	Cause FailureCause
	Err   error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote call failed (%s): %v", e.Cause, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Explain renders the cause as a human-readable sentence suitable for
// inline display in a summary or chat transcript.
func (e *RemoteError) Explain() string {
	switch e.Cause {
	case CauseAuth:
		return "The AI service rejected the API key. Check that a valid key is configured."
	case CauseQuota:
		return "The AI service quota is exhausted. Try again later."
	case CauseSafety:
		return "The AI service declined to process this content due to its safety filter."
	default:
		return "The AI service could not be reached. The document was stored without an AI summary."
	}
}

func classifyHTTPError(status int, body []byte) *RemoteError {
	err := fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(body)))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &RemoteError{Cause: CauseAuth, Err: err}
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return &RemoteError{Cause: CauseQuota, Err: err}
	case strings.Contains(strings.ToLower(string(body)), "content_filter"),
		strings.Contains(strings.ToLower(string(body)), "safety"):
		return &RemoteError{Cause: CauseSafety, Err: err}
	default:
		return &RemoteError{Cause: CauseUnclassified, Err: err}
	}
}
