package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types.
const (
	AccountTypeParent = "parent"
	AccountTypeChild  = "child"
)

// Account represents a credential record in the shared account store.
type Account struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	AccountType    string    `json:"account_type"`
	ParentUsername string    `json:"parent_username,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsParent reports whether the account was registered as a parent account.
func (a *Account) IsParent() bool {
	return a.AccountType == AccountTypeParent
}

// Profile holds a user's financial settings and family linkage.
type Profile struct {
	Name              string          `json:"name"`
	AccountBalance    decimal.Decimal `json:"account_balance"`
	MonthlyBudget     decimal.Decimal `json:"monthly_budget"`
	GameSpendingLimit decimal.Decimal `json:"game_spending_limit"`
	ParentEmail       string          `json:"parent_email,omitempty"`
	ParentMode        bool            `json:"parent_mode"`
	ChildName         string          `json:"child_name,omitempty"`
	IsChildAccount    bool            `json:"is_child_account"`
	ParentAccount     string          `json:"parent_account,omitempty"`
	ChildAccounts     []string        `json:"child_accounts,omitempty"`
}

// HasChild reports whether username is listed as one of the profile's children.
func (p *Profile) HasChild(username string) bool {
	for _, c := range p.ChildAccounts {
		if c == username {
			return true
		}
	}
	return false
}

// Transaction represents a single game purchase.
type Transaction struct {
	ID               string          `json:"id"`
	Date             time.Time       `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	Platform         string          `json:"game_platform"`
	Category         string          `json:"game_category"`
	IsGamePurchase   bool            `json:"is_game_purchase"`
	ApprovedByParent bool            `json:"approved_by_parent"`
}

// Pending reports whether the transaction is still waiting for approval.
func (t *Transaction) Pending() bool {
	return !t.ApprovedByParent
}

// Ledger is a user's profile plus their transaction history, persisted as
// one unit. Transactions keep insertion order; an id index is maintained on
// the side for lookup.
type Ledger struct {
	Profile      Profile       `json:"profile"`
	Transactions []Transaction `json:"transactions"`

	byID map[string]int
}

func (l *Ledger) reindex() {
	l.byID = make(map[string]int, len(l.Transactions))
	for i := range l.Transactions {
		l.byID[l.Transactions[i].ID] = i
	}
}

// Find returns a pointer to the transaction with the given id, or nil.
func (l *Ledger) Find(id string) *Transaction {
	if l.byID == nil || len(l.byID) != len(l.Transactions) {
		l.reindex()
	}
	if i, ok := l.byID[id]; ok {
		return &l.Transactions[i]
	}
	return nil
}

// Append adds a transaction at the end of the ledger.
func (l *Ledger) Append(t Transaction) {
	if l.byID == nil || len(l.byID) != len(l.Transactions) {
		l.reindex()
	}
	l.Transactions = append(l.Transactions, t)
	l.byID[t.ID] = len(l.Transactions) - 1
}

// Remove deletes the transaction with the given id, preserving the order of
// the remaining entries. It returns the removed transaction, or nil if no
// transaction has that id.
func (l *Ledger) Remove(id string) *Transaction {
	t := l.Find(id)
	if t == nil {
		return nil
	}
	removed := *t
	i := l.byID[id]
	l.Transactions = append(l.Transactions[:i], l.Transactions[i+1:]...)
	l.reindex()
	return &removed
}

// Session represents a logged-in browser session.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Stats holds derived spending figures for a single ledger. Amounts cover
// approved and pending transactions alike, since the balance is debited at
// creation time.
type Stats struct {
	TotalSpent    decimal.Decimal
	MonthlySpent  decimal.Decimal
	BudgetPercent decimal.Decimal
	PendingCount  int
}
