package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pipecost/pipecost/pkg/ledger"
	"github.com/pipecost/pipecost/pkg/models"
)

// ErrBudgetExceeded is returned when recorded spend has reached a policy cap.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Enforcer checks recorded USD spend against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	ledger   ledger.Ledger
}

// New creates an Enforcer with the given policies and ledger.
func New(policies []models.BudgetPolicy, l ledger.Ledger) *Enforcer {
	return &Enforcer{policies: policies, ledger: l}
}

// Check returns ErrBudgetExceeded if any policy applicable to the stage is
// at or over its cap. An empty stage checks pipeline-wide policies only.
func (e *Enforcer) Check(ctx context.Context, stage string) error {
	for _, p := range e.applicablePolicies(stage) {
		used, err := e.ledger.SpendSince(ctx, periodStart(p.Period), p.Stage)
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxUSD {
			return fmt.Errorf("%w: policy %q used $%.4f of $%.4f", ErrBudgetExceeded, p.Name, used, p.MaxUSD)
		}
	}
	return nil
}

// Status returns the spend status of every policy.
func (e *Enforcer) Status(ctx context.Context) ([]models.BudgetStatus, error) {
	statuses := make([]models.BudgetStatus, 0, len(e.policies))

	for _, p := range e.policies {
		used, err := e.ledger.SpendSince(ctx, periodStart(p.Period), p.Stage)
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := p.MaxUSD - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:       p,
			UsedUSD:      used,
			RemainingUSD: remaining,
		})
	}
	return statuses, nil
}

func (e *Enforcer) applicablePolicies(stage string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Stage == "" || p.Stage == stage {
			result = append(result, p)
		}
	}
	return result
}

func periodStart(period models.BudgetPeriod) time.Time {
	now := time.Now().UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
