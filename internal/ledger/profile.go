package ledger

import "github.com/shopspring/decimal"

// ProfileUpdate carries the editable profile fields. Parent-only fields are
// ignored for child accounts.
type ProfileUpdate struct {
	Name              string
	AccountBalance    decimal.Decimal
	MonthlyBudget     decimal.Decimal
	GameSpendingLimit decimal.Decimal
	ParentMode        bool
	ParentEmail       string
	ChildName         string
}

// UpdateProfile applies an update to the owner's profile. Negative budget
// and spending limit values are clamped to zero; the balance may go
// negative.
func (s *Service) UpdateProfile(owner string, upd ProfileUpdate) error {
	unlock := s.locks.lock(owner)
	defer unlock()

	led, err := s.db.GetLedger(owner)
	if err != nil {
		return err
	}

	if upd.MonthlyBudget.Sign() < 0 {
		upd.MonthlyBudget = decimal.Zero
	}
	if upd.GameSpendingLimit.Sign() < 0 {
		upd.GameSpendingLimit = decimal.Zero
	}

	led.Profile.Name = upd.Name
	led.Profile.AccountBalance = upd.AccountBalance
	led.Profile.MonthlyBudget = upd.MonthlyBudget
	led.Profile.GameSpendingLimit = upd.GameSpendingLimit

	if !led.Profile.IsChildAccount {
		led.Profile.ParentMode = upd.ParentMode
		led.Profile.ParentEmail = upd.ParentEmail
		led.Profile.ChildName = upd.ChildName
	}

	return s.db.PutLedger(owner, led)
}
