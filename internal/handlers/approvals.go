package handlers

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/per-shree/game-spending-tracker/internal/ledger"
)

// ApprovalItem represents one pending transaction row in the approvals view.
type ApprovalItem struct {
	Owner        string
	OwnerDisplay string
	TransactionItem
}

// ApprovalsViewModel is the data passed to the approvals template.
type ApprovalsViewModel struct {
	Items []ApprovalItem
	Flash string
}

// Approvals renders pending transactions from the approver's own account and
// every linked child account.
func (h *Handlers) Approvals(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	pending, err := h.svc.PendingApprovals(account.Username)
	if err != nil {
		if errors.Is(err, ledger.ErrNotAuthorized) {
			h.setFlash(w, "Parent mode is not enabled for this account")
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		log.WithError(err).WithField("username", account.Username).Error("Approvals: list pending")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	items := make([]ApprovalItem, 0, len(pending))
	for _, p := range pending {
		items = append(items, ApprovalItem{
			Owner:        p.Owner,
			OwnerDisplay: p.OwnerDisplay,
			TransactionItem: TransactionItem{
				ID:          p.Transaction.ID,
				Date:        p.Transaction.Date.Format("2006-01-02"),
				Description: p.Transaction.Description,
				Platform:    p.Transaction.Platform,
				Category:    p.Transaction.Category,
				Amount:      p.Transaction.Amount.StringFixed(2),
			},
		})
	}

	h.render(w, r, "approvals.html", ApprovalsViewModel{Items: items, Flash: h.popFlash(w, r)})
}

// ApproveTransaction marks a pending transaction as approved.
func (h *Handlers) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)
	owner := r.PathValue("owner")
	id := r.PathValue("id")

	if err := h.svc.Approve(account.Username, owner, id); err != nil {
		h.redirectApprovalError(w, r, account.Username, owner, id, "approve", err)
		return
	}

	h.setFlash(w, "Transaction approved")
	http.Redirect(w, r, "/approvals", http.StatusFound)
}

// DenyTransaction removes a pending transaction and refunds its amount.
func (h *Handlers) DenyTransaction(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)
	owner := r.PathValue("owner")
	id := r.PathValue("id")

	if err := h.svc.Deny(account.Username, owner, id); err != nil {
		h.redirectApprovalError(w, r, account.Username, owner, id, "deny", err)
		return
	}

	h.setFlash(w, "Transaction denied and amount refunded")
	http.Redirect(w, r, "/approvals", http.StatusFound)
}

func (h *Handlers) redirectApprovalError(w http.ResponseWriter, r *http.Request, approver, owner, id, action string, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotAuthorized):
		h.setFlash(w, "You do not have permission to "+action+" this transaction")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	case errors.Is(err, ledger.ErrNotFound):
		h.setFlash(w, "Transaction not found")
		http.Redirect(w, r, "/approvals", http.StatusFound)
	default:
		log.WithError(err).WithFields(log.Fields{
			"approver": approver, "owner": owner, "transaction": id,
		}).Error("approval action failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
