package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Pair them with a subsystem via NewSubSystemError when
// the run history needs a more precise code.
var (
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("operation timed out")
	ErrLimitReached  = errors.New("limit reached")
	ErrInvalidInput  = errors.New("invalid input")
	ErrProviderError = errors.New("provider error")
)

var (
	ErrProviderNotFound   = errors.New("llm provider not found")
	ErrToolNotFound       = errors.New("tool not found")
	ErrAgentNotFound      = errors.New("agent not found")
	ErrMaxTurns           = errors.New("run exceeded max turns")
	ErrPathOutsideSandbox = errors.New("path is outside sandbox boundary")
	ErrSSRFBlocked        = errors.New("request to private/reserved IP blocked")
	ErrConfigLoad         = errors.New("failed to load configuration")
	ErrDecryption         = errors.New("decryption failed")
	ErrMissingAPIKey      = errors.New("api key is not set")
	ErrRunStore           = errors.New("run store operation failed")

	ErrImageJobFailed  = errors.New("image job failed")
	ErrImageJobTimeout = fmt.Errorf("image job: %w", ErrTimeout)

	// Returned by LLM providers. The runner and the breakers branch on them.
	ErrContextOverflow = errors.New("context window exceeded")
	ErrRateLimit       = errors.New("rate limit exceeded")
	ErrAuthInvalid     = errors.New("authentication failed")
	ErrToolFailure     = errors.New("tool execution failed")
)

// DomainError records which operation failed and on what.
type DomainError struct {
	Op        string
	Err       error
	Detail    string
	SubSystem string // "crew", "subagent", "wavespeed"; refines Code
}

func (e *DomainError) Error() string {
	if e.Detail == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Detail + ": " + e.Err.Error()
}

func (e *DomainError) Unwrap() error { return e.Err }

func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp prefixes err with op, passing nil through.
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether a provider error is worth another attempt.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderError)
}

// ErrorCode is the stable failure label stored with a run record.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeProviderNotFound   ErrorCode = "PROVIDER_NOT_FOUND"
	CodeToolNotFound       ErrorCode = "TOOL_NOT_FOUND"
	CodeToolFailure        ErrorCode = "TOOL_FAILURE"
	CodeAgentNotFound      ErrorCode = "AGENT_NOT_FOUND"
	CodeMaxTurns           ErrorCode = "MAX_TURNS"
	CodePathOutsideSandbox ErrorCode = "PATH_OUTSIDE_SANDBOX"
	CodeSSRFBlocked        ErrorCode = "SSRF_BLOCKED"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"
	CodeDecryption         ErrorCode = "DECRYPTION"
	CodeMissingAPIKey      ErrorCode = "MISSING_API_KEY"
	CodeRunStore           ErrorCode = "RUN_STORE"
	CodeImageJobFailed     ErrorCode = "IMAGE_JOB_FAILED"
	CodeImageJobTimeout    ErrorCode = "IMAGE_JOB_TIMEOUT"
	CodeContextOverflow    ErrorCode = "CONTEXT_OVERFLOW"
	CodeRateLimit          ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid        ErrorCode = "AUTH_INVALID"
	CodeSubAgentTimeout    ErrorCode = "SUBAGENT_TIMEOUT"
	CodeSubAgentLimit      ErrorCode = "SUBAGENT_LIMIT"

	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeLimitReached  ErrorCode = "LIMIT_REACHED"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeProviderError ErrorCode = "PROVIDER_ERROR"
)

type sentinelCode struct {
	err  error
	code ErrorCode
}

// sentinelCodes is searched in order. Sentinels that wrap a category come
// before it so the specific code wins.
var sentinelCodes = []sentinelCode{
	{ErrImageJobTimeout, CodeImageJobTimeout},
	{ErrImageJobFailed, CodeImageJobFailed},
	{ErrProviderNotFound, CodeProviderNotFound},
	{ErrToolNotFound, CodeToolNotFound},
	{ErrToolFailure, CodeToolFailure},
	{ErrAgentNotFound, CodeAgentNotFound},
	{ErrMaxTurns, CodeMaxTurns},
	{ErrPathOutsideSandbox, CodePathOutsideSandbox},
	{ErrSSRFBlocked, CodeSSRFBlocked},
	{ErrConfigLoad, CodeConfigLoad},
	{ErrDecryption, CodeDecryption},
	{ErrMissingAPIKey, CodeMissingAPIKey},
	{ErrRunStore, CodeRunStore},
	{ErrContextOverflow, CodeContextOverflow},
	{ErrRateLimit, CodeRateLimit},
	{ErrAuthInvalid, CodeAuthInvalid},

	{ErrNotFound, CodeNotFound},
	{ErrTimeout, CodeTimeout},
	{ErrLimitReached, CodeLimitReached},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrProviderError, CodeProviderError},
}

type subsystemKey struct {
	err       error
	subsystem string
}

var subsystemCodes = map[subsystemKey]ErrorCode{
	{ErrNotFound, "crew"}:         CodeAgentNotFound,
	{ErrTimeout, "subagent"}:      CodeSubAgentTimeout,
	{ErrTimeout, "wavespeed"}:     CodeImageJobTimeout,
	{ErrLimitReached, "subagent"}: CodeSubAgentLimit,
}

// ErrorCodeOf finds the code for the first DomainError in err's chain that
// has one, then falls back to the sentinel table.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	return CodeUnknown
}

// Code is the subsystem-specific code when one is registered, else the code
// of Err itself.
func (e *DomainError) Code() ErrorCode {
	if code, ok := subsystemCodes[subsystemKey{e.Err, e.SubSystem}]; ok {
		return code
	}
	for _, sc := range sentinelCodes {
		if e.Err == sc.err {
			return sc.code
		}
	}
	return CodeUnknown
}
