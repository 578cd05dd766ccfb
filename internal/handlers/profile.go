package handlers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/per-shree/game-spending-tracker/internal/ledger"
)

// ParentInfo identifies the parent of a child account in the profile view.
type ParentInfo struct {
	Username string
	Name     string
}

// ProfileViewModel is the data passed to the profile template.
type ProfileViewModel struct {
	Name              string
	AccountBalance    string
	MonthlyBudget     string
	GameSpendingLimit string
	ParentEmail       string
	ParentMode        bool
	ChildName         string
	IsChild           bool
	Parent            *ParentInfo
	Error             string
	Flash             string
}

func (h *Handlers) profileViewModel(username string) (ProfileViewModel, error) {
	led, err := h.svc.Ledger(username)
	if err != nil {
		return ProfileViewModel{}, err
	}

	vm := ProfileViewModel{
		Name:              led.Profile.Name,
		AccountBalance:    led.Profile.AccountBalance.StringFixed(2),
		MonthlyBudget:     led.Profile.MonthlyBudget.StringFixed(2),
		GameSpendingLimit: led.Profile.GameSpendingLimit.StringFixed(2),
		ParentEmail:       led.Profile.ParentEmail,
		ParentMode:        led.Profile.ParentMode,
		ChildName:         led.Profile.ChildName,
		IsChild:           led.Profile.IsChildAccount,
	}

	if led.Profile.IsChildAccount && led.Profile.ParentAccount != "" {
		parentLed, err := h.svc.Ledger(led.Profile.ParentAccount)
		if err != nil {
			return ProfileViewModel{}, err
		}
		name := parentLed.Profile.Name
		if name == "" {
			name = led.Profile.ParentAccount
		}
		vm.Parent = &ParentInfo{Username: led.Profile.ParentAccount, Name: name}
	}
	return vm, nil
}

// ProfileForm renders the profile settings page.
func (h *Handlers) ProfileForm(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	vm, err := h.profileViewModel(account.Username)
	if err != nil {
		log.WithError(err).WithField("username", account.Username).Error("ProfileForm: load ledger")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	vm.Flash = h.popFlash(w, r)
	h.render(w, r, "profile.html", vm)
}

// UpdateProfile handles the profile form submission.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	renderError := func(msg string) {
		vm, err := h.profileViewModel(account.Username)
		if err != nil {
			log.WithError(err).WithField("username", account.Username).Error("UpdateProfile: load ledger")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		vm.Error = msg
		h.render(w, r, "profile.html", vm)
	}

	if err := r.ParseForm(); err != nil {
		renderError("Invalid form submission")
		return
	}

	balance, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("account_balance")))
	if err != nil {
		renderError("Invalid account balance")
		return
	}
	budget, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("monthly_budget")))
	if err != nil {
		renderError("Invalid monthly budget")
		return
	}
	// A blank or unparseable limit falls back to 0 (unlimited)
	limit, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("game_spending_limit")))
	if err != nil {
		limit = decimal.Zero
	}

	upd := ledger.ProfileUpdate{
		Name:              strings.TrimSpace(r.FormValue("name")),
		AccountBalance:    balance,
		MonthlyBudget:     budget,
		GameSpendingLimit: limit,
		ParentMode:        r.FormValue("parent_mode") != "",
		ParentEmail:       strings.TrimSpace(r.FormValue("parent_email")),
		ChildName:         strings.TrimSpace(r.FormValue("child_name")),
	}
	if err := h.svc.UpdateProfile(account.Username, upd); err != nil {
		log.WithError(err).WithField("username", account.Username).Error("UpdateProfile: save")
		renderError("An error occurred. Please try again.")
		return
	}

	h.setFlash(w, "Profile updated successfully")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// SampleData seeds demo transactions for the logged-in account.
func (h *Handlers) SampleData(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	added, err := h.svc.AddSampleData(account.Username)
	if err != nil {
		log.WithError(err).WithField("username", account.Username).Error("SampleData: seed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if added {
		h.setFlash(w, "Sample data added successfully")
	} else {
		h.setFlash(w, "Sample data not added (transactions already exist)")
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
