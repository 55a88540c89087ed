package chi

import (
	"context"
	"errors"
	"net/http"

	"github.com/kailas-cloud/askme/internal/domain"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeEmptyQuestion    ErrorCode = "empty_question"
	CodeQuestionTooLong  ErrorCode = "question_too_long"
	CodeBusy             ErrorCode = "busy"
	CodeBudgetExceeded   ErrorCode = "budget_exceeded"
	CodeRateLimited      ErrorCode = "rate_limited"
	CodeProviderError    ErrorCode = "provider_error"
	CodeGenerationFailed ErrorCode = "generation_failed"
	CodeTimeout          ErrorCode = "timeout"
	CodeInternalError    ErrorCode = "internal_error"
)

const msgInternal = "Something went wrong on my side. Please try again later."

// ErrorResponse is the body of every error reply. Message is safe to show to visitors.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, stage string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrEmptyQuestion, http.StatusBadRequest, CodeEmptyQuestion,
			"Please type a question first."),
		sentinelHandler(domain.ErrBusy, http.StatusServiceUnavailable, CodeBusy,
			"I'm answering someone else right now. Please try again in a moment."),
		sentinelHandler(domain.ErrBudgetExceeded, http.StatusTooManyRequests, CodeBudgetExceeded,
			"I've answered a lot of questions today. Please come back tomorrow."),
		sentinelHandler(domain.ErrEmbeddingExhausted, http.StatusServiceUnavailable, CodeRateLimited,
			"I'm getting a lot of questions right now. Please try again in a minute."),
		sentinelHandler(domain.ErrEmbeddingRateLimited, http.StatusServiceUnavailable, CodeRateLimited,
			"I'm getting a lot of questions right now. Please try again in a minute."),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, CodeProviderError,
			"I couldn't look that up just now. Please try again later."),
		sentinelHandler(domain.ErrGeneration, http.StatusBadGateway, CodeGenerationFailed,
			"I couldn't put an answer together just now. Please try again later."),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout,
			"That took too long to answer. Please try again."),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode, message string) errorHandler {
	return func(w http.ResponseWriter, err error, stage string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, stage, message)
		return true
	}
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, stage, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Stage:   stage,
		Message: message,
	})
}
