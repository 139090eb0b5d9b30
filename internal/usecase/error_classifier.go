package usecase

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"content-crew/internal/domain"
)

// ErrorCategory indicates whether an LLM error is worth retrying.
type ErrorCategory int

const (
	ErrorCategoryUnknown   ErrorCategory = iota
	ErrorCategoryRetryable               // 429, 5xx, network errors, context overflow
	ErrorCategoryPermanent               // 401, 403, other 4xx, cancellation
)

// ClassifiedError holds the result of error classification.
type ClassifiedError struct {
	Original   error
	Category   ErrorCategory
	Sentinel   error // mapped domain sentinel, or nil
	StatusCode int   // HTTP status when known
}

// Retryable reports whether the call may succeed on retry.
func (c ClassifiedError) Retryable() bool { return c.Category == ErrorCategoryRetryable }

// ErrorClassifier categorizes errors returned by LLM providers.
type ErrorClassifier struct{}

// NewErrorClassifier creates a new classifier.
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// apiErrorPattern matches "API error <status>:" produced by the HTTP providers.
var apiErrorPattern = regexp.MustCompile(`API error (\d+):`)

var sentinelCategories = []struct {
	sentinel error
	category ErrorCategory
}{
	{domain.ErrRateLimit, ErrorCategoryRetryable},
	{domain.ErrContextOverflow, ErrorCategoryRetryable},
	{domain.ErrProviderError, ErrorCategoryRetryable},
	{domain.ErrTimeout, ErrorCategoryRetryable},
	{domain.ErrAuthInvalid, ErrorCategoryPermanent},
}

var (
	rateLimitPhrases = []string{"rate limit", "too many requests"}
	overflowPhrases  = []string{"context length", "token limit", "maximum context", "context_length_exceeded"}
	networkPhrases   = []string{"connection refused", "connection reset", "no such host", "timeout", "eof", "broken pipe"}
)

// Classify inspects err and returns its category and mapped sentinel.
// Cancellation by the caller is never retryable.
func (c *ErrorClassifier) Classify(err error) ClassifiedError {
	if err == nil {
		return ClassifiedError{}
	}
	if errors.Is(err, context.Canceled) {
		return ClassifiedError{Original: err, Category: ErrorCategoryPermanent}
	}

	for _, sc := range sentinelCategories {
		if errors.Is(err, sc.sentinel) {
			return ClassifiedError{Original: err, Category: sc.category, Sentinel: sc.sentinel}
		}
	}

	msg := err.Error()
	if m := apiErrorPattern.FindStringSubmatch(msg); len(m) == 2 {
		code, _ := strconv.Atoi(m[1])
		return classifyStatus(err, code, msg)
	}
	return classifyMessage(err, msg)
}

func classifyStatus(err error, code int, body string) ClassifiedError {
	ce := ClassifiedError{Original: err, Category: ErrorCategoryPermanent, StatusCode: code}
	switch {
	case code == 429:
		ce.Category, ce.Sentinel = ErrorCategoryRetryable, domain.ErrRateLimit
	case code == 401 || code == 403:
		ce.Sentinel = domain.ErrAuthInvalid
	case code == 413:
		ce.Category, ce.Sentinel = ErrorCategoryRetryable, domain.ErrContextOverflow
	case code == 400 && containsAny(body, overflowPhrases):
		ce.Category, ce.Sentinel = ErrorCategoryRetryable, domain.ErrContextOverflow
	case code >= 500 && code < 600:
		ce.Category, ce.Sentinel = ErrorCategoryRetryable, domain.ErrProviderError
	}
	return ce
}

func classifyMessage(err error, msg string) ClassifiedError {
	switch {
	case containsAny(msg, rateLimitPhrases):
		return ClassifiedError{Original: err, Category: ErrorCategoryRetryable, Sentinel: domain.ErrRateLimit}
	case containsAny(msg, overflowPhrases):
		return ClassifiedError{Original: err, Category: ErrorCategoryRetryable, Sentinel: domain.ErrContextOverflow}
	case containsAny(msg, networkPhrases):
		return ClassifiedError{Original: err, Category: ErrorCategoryRetryable}
	}
	return ClassifiedError{Original: err, Category: ErrorCategoryUnknown}
}

func containsAny(s string, phrases []string) bool {
	lower := strings.ToLower(s)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
