package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/per-shree/game-spending-tracker/internal/ledger"
)

// SpendViewModel is the data passed to the record-purchase form template.
type SpendViewModel struct {
	Categories    []string
	Platforms     []string
	NeedsApproval bool
	HasLimit      bool
	SpendingLimit string
	Error         string
	Flash         string
}

func (h *Handlers) spendViewModel(username string) (SpendViewModel, error) {
	led, err := h.svc.Ledger(username)
	if err != nil {
		return SpendViewModel{}, err
	}
	return SpendViewModel{
		Categories:    GameCategories,
		Platforms:     GamePlatforms,
		NeedsApproval: led.Profile.IsChildAccount || led.Profile.ParentMode,
		HasLimit:      led.Profile.GameSpendingLimit.Sign() > 0,
		SpendingLimit: led.Profile.GameSpendingLimit.StringFixed(2),
	}, nil
}

// SpendForm renders the form to record a game purchase.
func (h *Handlers) SpendForm(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	vm, err := h.spendViewModel(account.Username)
	if err != nil {
		log.WithError(err).WithField("username", account.Username).Error("SpendForm: load ledger")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	vm.Flash = h.popFlash(w, r)
	h.render(w, r, "spend.html", vm)
}

// Spend handles the record-purchase form submission.
func (h *Handlers) Spend(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	renderError := func(msg string) {
		vm, err := h.spendViewModel(account.Username)
		if err != nil {
			log.WithError(err).WithField("username", account.Username).Error("Spend: load ledger")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		vm.Error = msg
		h.render(w, r, "spend.html", vm)
	}

	if err := r.ParseForm(); err != nil {
		renderError("Invalid form submission")
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("amount")))
	if err != nil {
		renderError("Invalid amount")
		return
	}
	description := strings.TrimSpace(r.FormValue("description"))
	platform := r.FormValue("platform")
	category := r.FormValue("category")
	if description == "" || platform == "" || category == "" {
		renderError("Please fill all fields correctly")
		return
	}

	_, needsApproval, err := h.svc.RecordPurchase(account.Username, amount, description, platform, category)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			renderError("Amount must be greater than 0")
			return
		}
		log.WithError(err).WithField("username", account.Username).Error("Spend: record purchase")
		renderError("An error occurred. Please try again.")
		return
	}

	if needsApproval {
		h.setFlash(w, "Game purchase added! Waiting for parent approval.")
	} else {
		h.setFlash(w, "Game purchase recorded successfully!")
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
