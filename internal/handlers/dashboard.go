package handlers

import (
	"math/rand"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/per-shree/game-spending-tracker/internal/models"
)

// GameCategories and GamePlatforms are open option lists for the purchase
// form; arbitrary values are accepted on submission.
var (
	GameCategories = []string{
		"Mobile Games", "Console Games", "PC Games", "In-App Purchases",
		"Game Subscriptions", "Gaming Hardware", "Virtual Currency",
	}
	GamePlatforms = []string{
		"Fortnite", "Roblox", "Minecraft", "PUBG Mobile", "Genshin Impact",
		"Call of Duty", "FIFA", "Steam", "Epic Games", "PlayStation",
		"Xbox", "Nintendo Switch", "App Store", "Google Play", "Other",
	}
)

var gamingTips = []string{
	"Set a time limit for gaming sessions to maintain balance.",
	"Look for game bundles and sales to save money on purchases.",
	"Consider subscription services like Game Pass instead of buying individual games.",
	"Avoid impulse purchases of in-game items and cosmetics.",
	"Wait a week before buying a new game to make sure you really want it.",
}

func gamingTip() string {
	return gamingTips[rand.Intn(len(gamingTips))]
}

// TransactionItem represents a transaction row in the dashboard view.
type TransactionItem struct {
	ID          string
	Date        string
	Description string
	Platform    string
	Category    string
	Amount      string
	Approved    bool
}

func toTransactionItems(transactions []models.Transaction) []TransactionItem {
	items := make([]TransactionItem, 0, len(transactions))
	for _, t := range transactions {
		items = append(items, TransactionItem{
			ID:          t.ID,
			Date:        t.Date.Format("2006-01-02"),
			Description: t.Description,
			Platform:    t.Platform,
			Category:    t.Category,
			Amount:      t.Amount.StringFixed(2),
			Approved:    t.ApprovedByParent,
		})
	}
	return items
}

// DashboardViewModel is the data passed to the dashboard template.
type DashboardViewModel struct {
	Name          string
	AccountLabel  string
	Balance       string
	TotalSpent    string
	MonthlySpent  string
	MonthlyBudget string
	SpendingLimit string
	BudgetPercent int
	PendingCount  int
	Transactions  []TransactionItem
	GamingTip     string
	Flash         string
}

// Dashboard renders the spending overview for the logged-in account.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	led, err := h.svc.Ledger(account.Username)
	if err != nil {
		log.WithError(err).WithField("username", account.Username).Error("Dashboard: load ledger")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	stats, err := h.svc.ComputeStats(account.Username)
	if err != nil {
		log.WithError(err).WithField("username", account.Username).Error("Dashboard: compute stats")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	transactions, err := h.svc.ListTransactions(account.Username, false)
	if err != nil {
		log.WithError(err).WithField("username", account.Username).Error("Dashboard: list transactions")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	// Show only the 10 most recent
	if len(transactions) > 10 {
		transactions = transactions[:10]
	}

	label := "Parent Account"
	if led.Profile.IsChildAccount {
		label = "Child Account"
	}
	name := led.Profile.Name
	if name == "" {
		name = account.Username
	}
	percent := int(stats.BudgetPercent.IntPart())
	if percent > 100 {
		percent = 100
	}

	h.render(w, r, "dashboard.html", DashboardViewModel{
		Name:          name,
		AccountLabel:  label,
		Balance:       led.Profile.AccountBalance.StringFixed(2),
		TotalSpent:    stats.TotalSpent.StringFixed(2),
		MonthlySpent:  stats.MonthlySpent.StringFixed(2),
		MonthlyBudget: led.Profile.MonthlyBudget.StringFixed(2),
		SpendingLimit: led.Profile.GameSpendingLimit.StringFixed(2),
		BudgetPercent: percent,
		PendingCount:  stats.PendingCount,
		Transactions:  toTransactionItems(transactions),
		GamingTip:     gamingTip(),
		Flash:         h.popFlash(w, r),
	})
}
