package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/per-shree/game-spending-tracker/internal/models"
)

// AddSampleData seeds a demo profile and a handful of transactions, but
// only when the ledger has none yet. Family linkage fields are left alone.
// It reports whether anything was added.
func (s *Service) AddSampleData(owner string) (bool, error) {
	unlock := s.locks.lock(owner)
	defer unlock()

	led, err := s.db.GetLedger(owner)
	if err != nil {
		return false, err
	}
	if len(led.Transactions) > 0 {
		return false, nil
	}

	led.Profile.Name = "Sample User"
	led.Profile.AccountBalance = decimal.NewFromInt(5000)
	led.Profile.MonthlyBudget = decimal.NewFromInt(10000)
	led.Profile.GameSpendingLimit = decimal.NewFromInt(2000)
	led.Profile.ParentEmail = "parent@example.com"
	if !led.Profile.IsChildAccount {
		led.Profile.ParentMode = true
	}

	now := time.Now()
	samples := []struct {
		daysAgo     int
		amount      int64
		description string
		platform    string
		category    string
		approved    bool
	}{
		{20, 299, "Minecraft Subscription", "Minecraft", "Game Subscriptions", true},
		{15, 1499, "Call of Duty: Modern Warfare", "PlayStation", "Console Games", true},
		{10, 799, "Nintendo Switch Online Subscription", "Nintendo Switch", "Game Subscriptions", true},
		{5, 899, "FIFA 2023", "Xbox", "Console Games", true},
		{0, 399, "PUBG Mobile Royal Pass", "PUBG Mobile", "In-App Purchases", false},
	}

	for _, sm := range samples {
		led.Append(models.Transaction{
			ID:               uuid.NewString(),
			Date:             now.AddDate(0, 0, -sm.daysAgo),
			Amount:           decimal.NewFromInt(sm.amount),
			Description:      sm.description,
			Platform:         sm.platform,
			Category:         sm.category,
			IsGamePurchase:   true,
			ApprovedByParent: sm.approved,
		})
	}

	if err := s.db.PutLedger(owner, led); err != nil {
		return false, err
	}
	return true, nil
}
