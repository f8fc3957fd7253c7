package models

// BudgetPeriod defines the time window for a budget policy.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// BudgetPolicy caps recorded spend in USD per period, optionally for a
// single stage. An empty Stage applies to the whole pipeline.
type BudgetPolicy struct {
	Name   string       `json:"name" yaml:"name"`
	Stage  string       `json:"stage,omitempty" yaml:"stage,omitempty"`
	MaxUSD float64      `json:"max_usd" yaml:"max_usd"`
	Period BudgetPeriod `json:"period" yaml:"period"`
}

// BudgetStatus shows current spend against a policy.
type BudgetStatus struct {
	Policy       BudgetPolicy `json:"policy"`
	UsedUSD      float64      `json:"used_usd"`
	RemainingUSD float64      `json:"remaining_usd"`
}
