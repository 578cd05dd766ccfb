// Package ledger implements the account store and the game purchase
// lifecycle: registration, authentication, recording purchases against a
// balance, and the parent approval workflow. Every operation is a full
// load-mutate-persist cycle over a user's ledger document, guarded by a
// per-username lock.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/per-shree/game-spending-tracker/internal/auth"
	"github.com/per-shree/game-spending-tracker/internal/models"
	"github.com/per-shree/game-spending-tracker/internal/storage"
)

// Defaults are the starting figures for a freshly registered profile.
type Defaults struct {
	StartingBalance decimal.Decimal
	MonthlyBudget   decimal.Decimal
	SpendingLimit   decimal.Decimal
}

// Service owns the ledger lifecycle rules on top of the storage layer.
type Service struct {
	db       *storage.DB
	locks    *keyedMutex
	defaults Defaults
}

// NewService creates a ledger service backed by db.
func NewService(db *storage.DB, defaults Defaults) *Service {
	return &Service{db: db, locks: newKeyedMutex(), defaults: defaults}
}

// Register creates a new account with an empty default ledger. A child
// registration links both sides of the parent relation and persists the
// parent's ledger along with the child's, in one transaction.
func (s *Service) Register(username, password, accountType, parentUsername string) (*models.Account, error) {
	switch accountType {
	case "":
		accountType = models.AccountTypeParent
	case models.AccountTypeParent, models.AccountTypeChild:
	default:
		return nil, fmt.Errorf("unknown account type %q", accountType)
	}
	if accountType == models.AccountTypeChild && parentUsername == "" {
		return nil, ErrParentNotFound
	}
	if accountType == models.AccountTypeParent {
		parentUsername = ""
	}

	var unlock func()
	if parentUsername != "" {
		unlock = s.locks.lockPair(username, parentUsername)
	} else {
		unlock = s.locks.lock(username)
	}
	defer unlock()

	if _, err := s.db.GetAccount(username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	var parentLedger *models.Ledger
	if parentUsername != "" {
		parent, err := s.db.GetAccount(parentUsername)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, err
		}
		if !parent.IsParent() {
			return nil, ErrParentNotFound
		}
		parentLedger, err = s.db.GetLedger(parentUsername)
		if err != nil {
			return nil, err
		}
		if !parentLedger.Profile.HasChild(username) {
			parentLedger.Profile.ChildAccounts = append(parentLedger.Profile.ChildAccounts, username)
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Username:       username,
		PasswordHash:   hash,
		AccountType:    accountType,
		ParentUsername: parentUsername,
	}
	led := &models.Ledger{
		Profile: models.Profile{
			Name:              username,
			AccountBalance:    s.defaults.StartingBalance,
			MonthlyBudget:     s.defaults.MonthlyBudget,
			GameSpendingLimit: s.defaults.SpendingLimit,
			ParentMode:        accountType == models.AccountTypeParent,
			IsChildAccount:    accountType == models.AccountTypeChild,
			ParentAccount:     parentUsername,
		},
		Transactions: []models.Transaction{},
	}

	return s.db.CreateRegistration(account, led, parentUsername, parentLedger)
}

// Authenticate verifies a username/password pair. The failure shape never
// reveals whether the username exists.
func (s *Service) Authenticate(username, password string) (*models.Account, error) {
	account, err := s.db.GetAccount(username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// Ledger returns the current ledger document for a username. Read-only.
func (s *Service) Ledger(username string) (*models.Ledger, error) {
	return s.db.GetLedger(username)
}
