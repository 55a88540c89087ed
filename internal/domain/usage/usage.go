// Package usage describes token consumption against the configured budget.
package usage

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts "day" and "month"; empty means day.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, true
	case PeriodMonth:
		return PeriodMonth, true
	}
	return "", false
}

// Report is a token usage snapshot for one budget period.
type Report struct {
	period      Period
	periodStart int64 // unix millis
	periodEnd   int64
	tokensUsed  int64
	limit       int64 // 0 = unlimited
	remaining   int64 // -1 = unlimited
}

// NewReport creates a usage report.
func NewReport(period Period, start, end, used, limit, remaining int64) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		tokensUsed:  used,
		limit:       limit,
		remaining:   remaining,
	}
}

// Period returns the aggregation granularity.
func (r Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis). The budget resets then.
func (r Report) PeriodEnd() int64 { return r.periodEnd }

// TokensUsed returns tokens consumed in the period.
func (r Report) TokensUsed() int64 { return r.tokensUsed }

// Limit returns the token cap, 0 when unlimited.
func (r Report) Limit() int64 { return r.limit }

// Remaining returns tokens left, -1 when unlimited.
func (r Report) Remaining() int64 { return r.remaining }

// IsExhausted reports whether a limited budget is spent.
func (r Report) IsExhausted() bool { return r.limit > 0 && r.remaining <= 0 }
