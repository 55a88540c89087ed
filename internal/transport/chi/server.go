package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askme/internal/domain"
	domusage "github.com/kailas-cloud/askme/internal/domain/usage"
	healthuc "github.com/kailas-cloud/askme/internal/usecase/health"
)

const (
	maxBodyBytes      = 64 << 10
	maxQuestionLength = 2000
)

// Answerer runs the question pipeline.
type Answerer interface {
	Submit(ctx context.Context, question string) (domain.Answer, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter builds token usage reports.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// QuestionRequest is the body of POST /api/v1/questions.
type QuestionRequest struct {
	Question string `json:"question"`
}

// AnswerResponse is returned for an answered question.
type AnswerResponse struct {
	ID     string `json:"id"`
	Answer string `json:"answer"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageResponse is returned by GET /api/v1/usage.
type UsageResponse struct {
	Period          string    `json:"period"`
	PeriodStartAt   time.Time `json:"period_start_at"`
	PeriodEndAt     time.Time `json:"period_end_at"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensLimit     int64     `json:"tokens_limit"`
	TokensRemaining int64     `json:"tokens_remaining"`
	IsExhausted     bool      `json:"is_exhausted"`
}

// Server serves the question API.
type Server struct {
	answers         Answerer
	health          HealthChecker
	usage           UsageReporter
	questionTimeout time.Duration
	logger          *zap.Logger
	errorHandlers   []errorHandler
}

// NewServer creates an HTTP API server. questionTimeout <= 0 disables the
// per-question deadline.
func NewServer(answers Answerer, health HealthChecker, questionTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		answers:         answers,
		health:          health,
		questionTimeout: questionTimeout,
		logger:          logger,
		errorHandlers:   defaultErrorHandlers(),
	}
}

// WithUsage enables GET /api/v1/usage.
func (s *Server) WithUsage(u UsageReporter) *Server {
	s.usage = u
	return s
}

// SubmitQuestion handles POST /api/v1/questions.
func (s *Server) SubmitQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "", "The request body must be JSON with a \"question\" field.")
		return
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Question)) > maxQuestionLength {
		writeError(w, http.StatusBadRequest, CodeQuestionTooLong, "",
			"That question is a bit long. Please keep it under "+strconv.Itoa(maxQuestionLength)+" characters.")
		return
	}

	ctx := r.Context()
	if s.questionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.questionTimeout)
		defer cancel()
	}

	ans, err := s.answers.Submit(ctx, req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(ans.Usage.EmbeddingTokens))
	w.Header().Set("X-Completion-Tokens", strconv.Itoa(ans.Usage.CompletionTokens))
	writeJSON(w, http.StatusOK, AnswerResponse{ID: ans.ID, Answer: ans.Text})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// GetUsage handles GET /api/v1/usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		writeError(w, http.StatusNotFound, CodeBadRequest, "", "usage reporting is not enabled")
		return
	}
	period, ok := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if !ok {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "", "period must be \"day\" or \"month\"")
		return
	}

	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, UsageResponse{
		Period:          string(report.Period()),
		PeriodStartAt:   time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEndAt:     time.UnixMilli(report.PeriodEnd()).UTC(),
		TokensUsed:      report.TokensUsed(),
		TokensLimit:     report.Limit(),
		TokensRemaining: report.Remaining(),
		IsExhausted:     report.IsExhausted(),
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	stage, _ := domain.StageOf(err)
	for _, h := range s.errorHandlers {
		if h(w, err, string(stage)) {
			s.logger.Warn("Question not answered", zap.String("stage", string(stage)), zap.Error(err))
			return
		}
	}
	if errors.Is(r.Context().Err(), context.Canceled) {
		s.logger.Info("Client went away", zap.Error(err))
		return
	}
	s.logger.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, string(stage), msgInternal)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
