package ledger

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/per-shree/game-spending-tracker/internal/models"
	"github.com/per-shree/game-spending-tracker/internal/storage"
)

// RecordPurchase creates a game purchase on the owner's ledger and debits
// the amount from the balance immediately, whether or not the purchase
// still needs approval. It returns the created transaction and whether
// approval is required, for user messaging.
func (s *Service) RecordPurchase(owner string, amount decimal.Decimal, description, platform, category string) (models.Transaction, bool, error) {
	if amount.Sign() <= 0 {
		return models.Transaction{}, false, ErrInvalidAmount
	}

	unlock := s.locks.lock(owner)
	defer unlock()

	led, err := s.db.GetLedger(owner)
	if err != nil {
		return models.Transaction{}, false, err
	}

	needsApproval := led.Profile.IsChildAccount || led.Profile.ParentMode
	t := models.Transaction{
		ID:               uuid.NewString(),
		Date:             time.Now(),
		Amount:           amount,
		Description:      description,
		Platform:         platform,
		Category:         category,
		IsGamePurchase:   true,
		ApprovedByParent: !needsApproval,
	}

	led.Profile.AccountBalance = led.Profile.AccountBalance.Sub(amount)
	led.Append(t)

	if err := s.db.PutLedger(owner, led); err != nil {
		return models.Transaction{}, false, err
	}
	return t, needsApproval, nil
}

// ListTransactions returns the owner's transactions newest first. With
// pendingOnly set, only transactions still waiting for approval are
// returned. Read-only.
func (s *Service) ListTransactions(owner string, pendingOnly bool) ([]models.Transaction, error) {
	led, err := s.db.GetLedger(owner)
	if err != nil {
		return nil, err
	}

	out := make([]models.Transaction, 0, len(led.Transactions))
	for _, t := range led.Transactions {
		if pendingOnly && !t.Pending() {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// authorizeApprover enforces the approval rule: the approver must have
// parent mode enabled, and the owner must be the approver's own account or
// one of their listed children. The owner account itself must exist.
func (s *Service) authorizeApprover(approver, owner string) error {
	led, err := s.db.GetLedger(approver)
	if err != nil {
		return err
	}
	if !led.Profile.ParentMode {
		return ErrNotAuthorized
	}
	if approver != owner && !led.Profile.HasChild(owner) {
		return ErrNotAuthorized
	}
	if _, err := s.db.GetAccount(owner); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Approve marks a pending transaction as approved by the parent. The
// balance is untouched since the debit already happened at creation.
func (s *Service) Approve(approver, owner, transactionID string) error {
	unlock := s.locks.lockPair(approver, owner)
	defer unlock()

	if err := s.authorizeApprover(approver, owner); err != nil {
		return err
	}

	led, err := s.db.GetLedger(owner)
	if err != nil {
		return err
	}
	t := led.Find(transactionID)
	if t == nil {
		return ErrNotFound
	}
	t.ApprovedByParent = true

	return s.db.PutLedger(owner, led)
}

// Deny removes a transaction from the owner's ledger and credits its amount
// back to the balance, undoing the creation-time debit. No record of the
// denied purchase is kept.
func (s *Service) Deny(approver, owner, transactionID string) error {
	unlock := s.locks.lockPair(approver, owner)
	defer unlock()

	if err := s.authorizeApprover(approver, owner); err != nil {
		return err
	}

	led, err := s.db.GetLedger(owner)
	if err != nil {
		return err
	}
	t := led.Remove(transactionID)
	if t == nil {
		return ErrNotFound
	}
	led.Profile.AccountBalance = led.Profile.AccountBalance.Add(t.Amount)

	return s.db.PutLedger(owner, led)
}

// PendingItem is a pending transaction tagged with the account it belongs
// to, for the approvals view.
type PendingItem struct {
	Owner        string
	OwnerDisplay string
	Transaction  models.Transaction
}

// PendingApprovals gathers pending transactions from the approver's own
// ledger and from every linked child ledger. Requires parent mode.
func (s *Service) PendingApprovals(approver string) ([]PendingItem, error) {
	led, err := s.db.GetLedger(approver)
	if err != nil {
		return nil, err
	}
	if !led.Profile.ParentMode {
		return nil, ErrNotAuthorized
	}

	items := []PendingItem{}
	for _, t := range led.Transactions {
		if t.IsGamePurchase && t.Pending() {
			items = append(items, PendingItem{Owner: approver, OwnerDisplay: "Your Account", Transaction: t})
		}
	}

	for _, child := range led.Profile.ChildAccounts {
		childLed, err := s.db.GetLedger(child)
		if err != nil {
			return nil, err
		}
		display := childLed.Profile.Name
		if display == "" {
			display = child
		}
		for _, t := range childLed.Transactions {
			if t.IsGamePurchase && t.Pending() {
				items = append(items, PendingItem{Owner: child, OwnerDisplay: display, Transaction: t})
			}
		}
	}
	return items, nil
}
