package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/per-shree/game-spending-tracker/internal/models"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeStats derives spending figures from the owner's ledger. Totals
// include pending transactions, since their debit already happened at
// creation. Nothing is persisted.
func (s *Service) ComputeStats(owner string) (models.Stats, error) {
	led, err := s.db.GetLedger(owner)
	if err != nil {
		return models.Stats{}, err
	}

	now := time.Now()
	stats := models.Stats{}
	for _, t := range led.Transactions {
		stats.TotalSpent = stats.TotalSpent.Add(t.Amount)
		if t.Date.Year() == now.Year() && t.Date.Month() == now.Month() {
			stats.MonthlySpent = stats.MonthlySpent.Add(t.Amount)
		}
		if t.Pending() {
			stats.PendingCount++
		}
	}

	if budget := led.Profile.MonthlyBudget; budget.Sign() > 0 {
		stats.BudgetPercent = stats.MonthlySpent.Div(budget).Mul(oneHundred)
	}
	return stats, nil
}
