package usage

// BudgetReader provides read-only access to token budget state.
type BudgetReader interface {
	Limits() (daily, monthly int64)
	Used() (daily, monthly int64)
}
