package ledger

import (
	"testing"

	"github.com/aristath/journal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestClassifyPlanExecution(t *testing.T) {
	tests := []struct {
		name       string
		price      float64
		stopLoss   *float64
		takeProfit *float64
		expected   *domain.PlanExecution
	}{
		{"no bounds", 12, nil, nil, nil},
		{"stop hit exactly", 8, f(8), f(15), plan(domain.PlanExecuted)},
		{"below stop", 7, f(8), f(15), plan(domain.PlanExecuted)},
		{"take hit exactly", 15, f(8), f(15), plan(domain.PlanExecuted)},
		{"above take", 16, f(8), f(15), plan(domain.PlanExecuted)},
		{"strictly between", 12, f(8), f(15), plan(domain.PlanPartial)},
		{"only stop, above it", 12, f(8), nil, plan(domain.PlanPartial)},
		{"only stop, hit", 8, f(8), nil, plan(domain.PlanExecuted)},
		{"only take, hit", 20, nil, f(15), plan(domain.PlanExecuted)},
		{"only take, not reached", 12, nil, f(15), plan(domain.PlanMissed)},
		{"stop above price with take also set", 12, f(15), f(20), plan(domain.PlanExecuted)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyPlanExecution(tt.price, tt.stopLoss, tt.takeProfit)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func plan(p domain.PlanExecution) *domain.PlanExecution { return &p }
