// Package usage reports token consumption against the budget.
package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/askme/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: func() time.Time { return time.Now().UTC() }}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now()

	var start, end time.Time
	if period == domusage.PeriodMonth {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	} else {
		period = domusage.PeriodDay
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	}

	var used, limit int64
	if s.br != nil {
		dailyLimit, monthlyLimit := s.br.Limits()
		dailyUsed, monthlyUsed := s.br.Used()
		used, limit = dailyUsed, dailyLimit
		if period == domusage.PeriodMonth {
			used, limit = monthlyUsed, monthlyLimit
		}
	}

	remaining := int64(-1)
	if limit > 0 {
		remaining = max(limit-used, 0)
	}

	return domusage.NewReport(period, start.UnixMilli(), end.UnixMilli(), used, limit, remaining)
}
