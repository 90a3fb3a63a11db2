package opensea

import (
	"fmt"
	"strings"
)

const payloadSnippetLen = 200

// RateLimitError indicates the events endpoint answered with a block or
// challenge page instead of JSON. It is user-actionable: unauthenticated
// requests are the usual cause.
type RateLimitError struct {
	Status int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf(
		"events request was rate limited (status %d); configure opensea.api_key to authenticate requests",
		e.Status,
	)
}

// ParseError indicates the response body was not the expected event list.
type ParseError struct {
	Status  int
	Payload string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unexpected events response (status %d): %s: %s", e.Status, e.Reason, e.Payload)
}

func newParseError(status int, payload []byte, reason string) *ParseError {
	snippet := strings.TrimSpace(string(payload))
	if len(snippet) > payloadSnippetLen {
		snippet = snippet[:payloadSnippetLen] + "..."
	}
	return &ParseError{Status: status, Payload: snippet, Reason: reason}
}

// looksRateLimited pattern-matches the raw body for the Cloudflare block page
// served to unauthenticated clients (error 1020).
func looksRateLimited(payload []byte) bool {
	body := strings.ToLower(string(payload))
	return strings.Contains(body, "cloudflare") && strings.Contains(body, "1020")
}
