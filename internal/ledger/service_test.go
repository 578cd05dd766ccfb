package ledger

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/per-shree/game-spending-tracker/internal/models"
	"github.com/per-shree/game-spending-tracker/internal/storage"
)

// LedgerTestSuite provides a test suite for the purchase lifecycle rules.
type LedgerTestSuite struct {
	suite.Suite
	db  *storage.DB
	svc *Service
}

// SetupTest runs before each test
func (suite *LedgerTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.svc = NewService(db, Defaults{
		StartingBalance: decimal.NewFromInt(1000),
		MonthlyBudget:   decimal.NewFromInt(2000),
	})
}

// TearDownTest runs after each test
func (suite *LedgerTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *LedgerTestSuite) registerParent(username string) {
	_, err := suite.svc.Register(username, "secret", models.AccountTypeParent, "")
	require.NoError(suite.T(), err, "failed to register parent %s", username)
}

func (suite *LedgerTestSuite) registerChild(username, parent string) {
	_, err := suite.svc.Register(username, "secret", models.AccountTypeChild, parent)
	require.NoError(suite.T(), err, "failed to register child %s", username)
}

// registerSolo creates a parent account with parent mode switched off, so
// purchases are auto-approved.
func (suite *LedgerTestSuite) registerSolo(username string) {
	suite.registerParent(username)
	led, err := suite.svc.Ledger(username)
	require.NoError(suite.T(), err)
	err = suite.svc.UpdateProfile(username, ProfileUpdate{
		Name:           username,
		AccountBalance: led.Profile.AccountBalance,
		MonthlyBudget:  led.Profile.MonthlyBudget,
		ParentMode:     false,
	})
	require.NoError(suite.T(), err)
}

func (suite *LedgerTestSuite) balance(username string) decimal.Decimal {
	led, err := suite.svc.Ledger(username)
	require.NoError(suite.T(), err)
	return led.Profile.AccountBalance
}

func (suite *LedgerTestSuite) TestRegisterDuplicateUsername() {
	suite.registerParent("alice")
	_, err := suite.svc.Register("alice", "other", models.AccountTypeParent, "")
	assert.ErrorIs(suite.T(), err, ErrDuplicateUsername)
}

func (suite *LedgerTestSuite) TestRegisterChildParentNotFound() {
	_, err := suite.svc.Register("bob", "secret", models.AccountTypeChild, "nobody")
	assert.ErrorIs(suite.T(), err, ErrParentNotFound)

	_, err = suite.svc.Register("bob", "secret", models.AccountTypeChild, "")
	assert.ErrorIs(suite.T(), err, ErrParentNotFound)
}

func (suite *LedgerTestSuite) TestRegisterChildLinksBothSides() {
	suite.registerParent("alice")
	suite.registerChild("bob", "alice")

	child, err := suite.svc.Ledger("bob")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), child.Profile.IsChildAccount)
	assert.Equal(suite.T(), "alice", child.Profile.ParentAccount)

	parent, err := suite.svc.Ledger("alice")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), parent.Profile.HasChild("bob"))
}

func (suite *LedgerTestSuite) TestRegisterParentEnablesParentMode() {
	suite.registerParent("alice")
	led, err := suite.svc.Ledger("alice")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), led.Profile.ParentMode)
	assert.False(suite.T(), led.Profile.IsChildAccount)
	assert.True(suite.T(), led.Profile.AccountBalance.Equal(decimal.NewFromInt(1000)))
}

func (suite *LedgerTestSuite) TestAuthenticate() {
	suite.registerParent("alice")

	account, err := suite.svc.Authenticate("alice", "secret")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", account.Username)

	// Wrong password and unknown user fail identically
	_, errWrongPass := suite.svc.Authenticate("alice", "nope")
	_, errNoUser := suite.svc.Authenticate("nobody", "secret")
	assert.ErrorIs(suite.T(), errWrongPass, ErrInvalidCredentials)
	assert.ErrorIs(suite.T(), errNoUser, ErrInvalidCredentials)
	assert.Equal(suite.T(), errWrongPass, errNoUser)
}

func (suite *LedgerTestSuite) TestRecordPurchaseDebitsBalance() {
	suite.registerParent("alice")

	t, needsApproval, err := suite.svc.RecordPurchase("alice", decimal.NewFromInt(400), "Fortnite V-Bucks", "Fortnite", "In-App Purchases")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), needsApproval, "parent mode purchases need approval")
	assert.True(suite.T(), t.Pending())
	assert.True(suite.T(), t.IsGamePurchase)
	assert.NotEmpty(suite.T(), t.ID)

	assert.True(suite.T(), suite.balance("alice").Equal(decimal.NewFromInt(600)),
		"balance should be debited at creation even while pending")

	transactions, err := suite.svc.ListTransactions("alice", false)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), transactions, 1)
}

func (suite *LedgerTestSuite) TestRecordPurchaseAutoApproved() {
	suite.registerSolo("carol")

	t, needsApproval, err := suite.svc.RecordPurchase("carol", decimal.NewFromInt(50), "Stardew Valley", "Steam", "PC Games")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), needsApproval)
	assert.True(suite.T(), t.ApprovedByParent)

	assert.True(suite.T(), suite.balance("carol").Equal(decimal.NewFromInt(950)))

	pending, err := suite.svc.ListTransactions("carol", true)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), pending, "auto-approved purchases never show up as pending")

	// Parent mode is off, so the approvals view is off limits too
	_, err = suite.svc.PendingApprovals("carol")
	assert.ErrorIs(suite.T(), err, ErrNotAuthorized)
}

func (suite *LedgerTestSuite) TestRecordPurchaseInvalidAmount() {
	suite.registerParent("alice")

	_, _, err := suite.svc.RecordPurchase("alice", decimal.Zero, "Nothing", "Steam", "PC Games")
	assert.ErrorIs(suite.T(), err, ErrInvalidAmount)

	_, _, err = suite.svc.RecordPurchase("alice", decimal.NewFromInt(-5), "Refund?", "Steam", "PC Games")
	assert.ErrorIs(suite.T(), err, ErrInvalidAmount)

	transactions, err := suite.svc.ListTransactions("alice", false)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), transactions)
	assert.True(suite.T(), suite.balance("alice").Equal(decimal.NewFromInt(1000)))
}

func (suite *LedgerTestSuite) TestApproveKeepsBalance() {
	suite.registerParent("alice")

	t, _, err := suite.svc.RecordPurchase("alice", decimal.NewFromInt(400), "Fortnite V-Bucks", "Fortnite", "In-App Purchases")
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.svc.Approve("alice", "alice", t.ID))

	assert.True(suite.T(), suite.balance("alice").Equal(decimal.NewFromInt(600)),
		"approve must not change the balance")

	transactions, err := suite.svc.ListTransactions("alice", false)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), transactions, 1)
	assert.True(suite.T(), transactions[0].ApprovedByParent)
}

func (suite *LedgerTestSuite) TestDenyRefundsAndRemoves() {
	suite.registerParent("alice")

	t, _, err := suite.svc.RecordPurchase("alice", decimal.NewFromInt(400), "Fortnite V-Bucks", "Fortnite", "In-App Purchases")
	require.NoError(suite.T(), err)
	require.True(suite.T(), suite.balance("alice").Equal(decimal.NewFromInt(600)))

	require.NoError(suite.T(), suite.svc.Deny("alice", "alice", t.ID))

	assert.True(suite.T(), suite.balance("alice").Equal(decimal.NewFromInt(1000)),
		"deny must credit the amount back")

	transactions, err := suite.svc.ListTransactions("alice", false)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), transactions, "denied transactions leave no record")
}

func (suite *LedgerTestSuite) TestApprovalAuthorization() {
	suite.registerParent("alice")
	suite.registerChild("bob", "alice")
	suite.registerParent("mallory")

	t, _, err := suite.svc.RecordPurchase("bob", decimal.NewFromInt(100), "Roblox Gift Card", "Roblox", "Virtual Currency")
	require.NoError(suite.T(), err)

	// mallory has parent mode enabled but bob is not her child
	assert.ErrorIs(suite.T(), suite.svc.Approve("mallory", "bob", t.ID), ErrNotAuthorized)
	assert.ErrorIs(suite.T(), suite.svc.Deny("mallory", "bob", t.ID), ErrNotAuthorized)

	// alice with parent mode disabled cannot approve either
	led, err := suite.svc.Ledger("alice")
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.svc.UpdateProfile("alice", ProfileUpdate{
		Name:           "alice",
		AccountBalance: led.Profile.AccountBalance,
		MonthlyBudget:  led.Profile.MonthlyBudget,
		ParentMode:     false,
	}))
	assert.ErrorIs(suite.T(), suite.svc.Approve("alice", "bob", t.ID), ErrNotAuthorized)

	// nothing leaked through: still pending, balance still debited
	pending, err := suite.svc.ListTransactions("bob", true)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), pending, 1)
	assert.True(suite.T(), suite.balance("bob").Equal(decimal.NewFromInt(900)))
}

func (suite *LedgerTestSuite) TestApproveNotFound() {
	suite.registerParent("alice")

	assert.ErrorIs(suite.T(), suite.svc.Approve("alice", "alice", "no-such-id"), ErrNotFound)
	assert.ErrorIs(suite.T(), suite.svc.Deny("alice", "alice", "no-such-id"), ErrNotFound)
}

func (suite *LedgerTestSuite) TestComputeStats() {
	suite.registerParent("alice")

	_, _, err := suite.svc.RecordPurchase("alice", decimal.NewFromInt(400), "First", "Steam", "PC Games")
	require.NoError(suite.T(), err)
	t2, _, err := suite.svc.RecordPurchase("alice", decimal.NewFromInt(100), "Second", "Steam", "PC Games")
	require.NoError(suite.T(), err)
	t3, _, err := suite.svc.RecordPurchase("alice", decimal.NewFromInt(250), "Third", "Steam", "PC Games")
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.svc.Approve("alice", "alice", t2.ID))

	stats, err := suite.svc.ComputeStats("alice")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), stats.TotalSpent.Equal(decimal.NewFromInt(750)),
		"total includes approved and pending alike, got %s", stats.TotalSpent)
	assert.True(suite.T(), stats.MonthlySpent.Equal(decimal.NewFromInt(750)))
	assert.Equal(suite.T(), 2, stats.PendingCount)
	// 750 / 2000 * 100
	assert.True(suite.T(), stats.BudgetPercent.Equal(decimal.NewFromFloat(37.5)),
		"budget percent was %s", stats.BudgetPercent)

	// Deny drops the denied amount from the totals
	require.NoError(suite.T(), suite.svc.Deny("alice", "alice", t3.ID))
	stats, err = suite.svc.ComputeStats("alice")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), stats.TotalSpent.Equal(decimal.NewFromInt(500)))
	assert.Equal(suite.T(), 1, stats.PendingCount)
}

func (suite *LedgerTestSuite) TestComputeStatsZeroBudget() {
	suite.registerParent("alice")
	led, err := suite.svc.Ledger("alice")
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.svc.UpdateProfile("alice", ProfileUpdate{
		Name:           "alice",
		AccountBalance: led.Profile.AccountBalance,
		MonthlyBudget:  decimal.Zero,
		ParentMode:     true,
	}))

	_, _, err = suite.svc.RecordPurchase("alice", decimal.NewFromInt(100), "Game", "Steam", "PC Games")
	require.NoError(suite.T(), err)

	stats, err := suite.svc.ComputeStats("alice")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), stats.BudgetPercent.IsZero(), "zero budget means zero percent")
}

func (suite *LedgerTestSuite) TestParentChildScenario() {
	suite.registerParent("alice")
	suite.registerChild("bob", "alice")
	original := suite.balance("bob")

	first, needsApproval, err := suite.svc.RecordPurchase("bob", decimal.NewFromInt(400), "Minecraft Realms", "Minecraft", "Game Subscriptions")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), needsApproval)
	assert.True(suite.T(), suite.balance("bob").Equal(original.Sub(decimal.NewFromInt(400))))

	// alice sees bob's pending purchase in her approvals view
	pending, err := suite.svc.PendingApprovals("alice")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), pending, 1)
	assert.Equal(suite.T(), "bob", pending[0].Owner)
	assert.Equal(suite.T(), first.ID, pending[0].Transaction.ID)

	require.NoError(suite.T(), suite.svc.Approve("alice", "bob", first.ID))
	assert.True(suite.T(), suite.balance("bob").Equal(original.Sub(decimal.NewFromInt(400))),
		"approval leaves the balance alone")

	second, _, err := suite.svc.RecordPurchase("bob", decimal.NewFromInt(100), "Skin Pack", "Fortnite", "In-App Purchases")
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.svc.Deny("alice", "bob", second.ID))

	assert.True(suite.T(), suite.balance("bob").Equal(original.Sub(decimal.NewFromInt(400))),
		"denied purchase is refunded, leaving only the approved debit")

	pending, err = suite.svc.PendingApprovals("alice")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), pending)
}

func (suite *LedgerTestSuite) TestListTransactionsNewestFirst() {
	suite.registerSolo("carol")

	for _, desc := range []string{"first", "second", "third"} {
		_, _, err := suite.svc.RecordPurchase("carol", decimal.NewFromInt(10), desc, "Steam", "PC Games")
		require.NoError(suite.T(), err)
	}

	transactions, err := suite.svc.ListTransactions("carol", false)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), transactions, 3)
	assert.Equal(suite.T(), "third", transactions[0].Description)
	assert.Equal(suite.T(), "first", transactions[2].Description)
}

func (suite *LedgerTestSuite) TestAddSampleData() {
	suite.registerParent("alice")

	added, err := suite.svc.AddSampleData("alice")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), added)

	transactions, err := suite.svc.ListTransactions("alice", false)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), transactions, 5)

	added, err = suite.svc.AddSampleData("alice")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), added, "sample data is only seeded into an empty ledger")
}

func (suite *LedgerTestSuite) TestUpdateProfileChildRestrictions() {
	suite.registerParent("alice")
	suite.registerChild("bob", "alice")

	err := suite.svc.UpdateProfile("bob", ProfileUpdate{
		Name:           "Bobby",
		AccountBalance: decimal.NewFromInt(500),
		MonthlyBudget:  decimal.NewFromInt(-10),
		ParentMode:     true,
	})
	require.NoError(suite.T(), err)

	led, err := suite.svc.Ledger("bob")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Bobby", led.Profile.Name)
	assert.False(suite.T(), led.Profile.ParentMode, "child accounts cannot enable parent mode")
	assert.True(suite.T(), led.Profile.MonthlyBudget.IsZero(), "negative budget is clamped to zero")
	assert.True(suite.T(), led.Profile.IsChildAccount)
	assert.Equal(suite.T(), "alice", led.Profile.ParentAccount)
}

func (suite *LedgerTestSuite) TestConcurrentPurchasesKeepBalanceConsistent() {
	suite.registerSolo("carol")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := suite.svc.RecordPurchase("carol", decimal.NewFromInt(10), "Concurrent", "Steam", "PC Games")
			assert.NoError(suite.T(), err)
		}()
	}
	wg.Wait()

	assert.True(suite.T(), suite.balance("carol").Equal(decimal.NewFromInt(1000-10*n)),
		"every concurrent debit must land exactly once, got %s", suite.balance("carol"))

	transactions, err := suite.svc.ListTransactions("carol", false)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), transactions, n)
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}
