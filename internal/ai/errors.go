package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AuthError indicates authentication/authorization failures (401/403).
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.APIError.Error())
}

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

// ModelNotFoundError indicates the requested model is not available.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found: %s", e.APIError.Error())
}

// BadRequestError indicates a 4xx request problem (e.g., 400 validation).
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

// QuotaExceededError indicates billing/quota problems.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.APIError.Error())
}

// ServerError indicates 5xx errors from the provider.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("provider error: %s", e.APIError.Error()) }

// UnreachableError indicates the target runtime is not reachable (e.g., local Ollama down).
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

func (e *AuthError) Unwrap() error { return e.APIError }
func (e *RateLimitError) Unwrap() error { return e.APIError }
func (e *ModelNotFoundError) Unwrap() error { return e.APIError }
func (e *BadRequestError) Unwrap() error { return e.APIError }
func (e *QuotaExceededError) Unwrap() error { return e.APIError }
func (e *ServerError) Unwrap() error { return e.APIError }

// FailureReason names the class of a Generate failure for logs and metrics
// labels: auth, rate_limit, model_not_found, bad_request, quota, server,
// unreachable, timeout, or other.
func FailureReason(err error) string {
	var (
		auth   *AuthError
		rate   *RateLimitError
		model  *ModelNotFoundError
		bad    *BadRequestError
		quota  *QuotaExceededError
		server *ServerError
		down   *UnreachableError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &auth):
		return "auth"
	case errors.As(err, &rate):
		return "rate_limit"
	case errors.As(err, &model):
		return "model_not_found"
	case errors.As(err, &quota):
		return "quota"
	case errors.As(err, &bad):
		return "bad_request"
	case errors.As(err, &server):
		return "server"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &down):
		return "unreachable"
	default:
		return "other"
	}
}
