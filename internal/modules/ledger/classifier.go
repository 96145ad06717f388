package ledger

import "github.com/aristath/journal/internal/domain"

// ClassifyPlanExecution labels a sale against its stop-loss / take-profit plan.
//
// Either bound being hit counts as EXECUTED. A price strictly inside both
// bounds, or strictly above a lone stop, is PARTIAL. Everything else,
// including a lone take-profit that was not reached, is MISSED. With no
// bounds the result is nil.
func ClassifyPlanExecution(price float64, stopLoss, takeProfit *float64) *domain.PlanExecution {
	if stopLoss == nil && takeProfit == nil {
		return nil
	}

	hitStop := stopLoss != nil && price <= *stopLoss
	hitTake := takeProfit != nil && price >= *takeProfit

	result := domain.PlanMissed
	switch {
	case hitStop || hitTake:
		result = domain.PlanExecuted
	case stopLoss != nil && takeProfit != nil && price > *stopLoss && price < *takeProfit:
		result = domain.PlanPartial
	case stopLoss != nil && takeProfit == nil && price > *stopLoss:
		result = domain.PlanPartial
	}
	return &result
}
