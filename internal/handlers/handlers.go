package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/per-shree/game-spending-tracker/internal/auth"
	"github.com/per-shree/game-spending-tracker/internal/ledger"
	"github.com/per-shree/game-spending-tracker/internal/models"
	"github.com/per-shree/game-spending-tracker/internal/storage"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// AccountContextKey is the context key for the authenticated account.
	AccountContextKey contextKey = "account"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// FlashCookieName is the name of the one-shot flash message cookie.
	FlashCookieName = "flash"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	svc             *ledger.Service
	db              *storage.DB
	templateDir     string
	secureCookie    bool
	sessionDuration time.Duration
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *ledger.Service, db *storage.DB, templateDir string, secureCookie bool, sessionDuration time.Duration) *Handlers {
	return &Handlers{
		svc:             svc,
		db:              db,
		templateDir:     templateDir,
		secureCookie:    secureCookie,
		sessionDuration: sessionDuration,
	}
}

// GetAccountFromContext retrieves the authenticated account from request context.
func GetAccountFromContext(r *http.Request) *models.Account {
	if account, ok := r.Context().Value(AccountContextKey).(*models.Account); ok {
		return account
	}
	return nil
}

// AuthMiddleware wraps handlers to require authentication.
// It also implements rolling sessions: if a session is past the halfway point
// of its lifetime, it automatically renews the session.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		sessionInfo, err := h.db.ValidateSessionWithInfo(cookie.Value)
		if err != nil {
			// Invalid or expired session, clear the cookie
			h.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		// Rolling session: renew if past halfway point
		// This keeps active users logged in while still expiring inactive sessions
		now := time.Now()
		timeUntilExpiry := sessionInfo.ExpiresAt.Sub(now)

		if timeUntilExpiry < h.sessionDuration/2 {
			newExpiresAt := now.Add(h.sessionDuration)
			if err := h.db.RenewSession(cookie.Value, newExpiresAt); err == nil {
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    cookie.Value,
					Path:     "/",
					MaxAge:   int(h.sessionDuration.Seconds()),
					HttpOnly: true,
					Secure:   h.secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}
			// If renewal fails, just continue with the current session
		}

		ctx := context.WithValue(r.Context(), AccountContextKey, sessionInfo.Account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IndexViewModel holds data for the landing page.
type IndexViewModel struct {
	Flash string
}

// Index renders the landing page, or sends logged-in users to the dashboard.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.db.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
	}
	h.render(w, r, "index.html", IndexViewModel{Flash: h.popFlash(w, r)})
}

// AuthViewModel holds data for the login and register pages.
type AuthViewModel struct {
	Error string
	Flash string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, redirect to dashboard
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.db.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
	}
	h.render(w, r, "login.html", AuthViewModel{Flash: h.popFlash(w, r)})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "login.html", AuthViewModel{Error: "Invalid form submission"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == "" || password == "" {
		h.render(w, r, "login.html", AuthViewModel{Error: "Username and password are required"})
		return
	}

	account, err := h.svc.Authenticate(username, password)
	if err != nil {
		if !errors.Is(err, ledger.ErrInvalidCredentials) {
			log.WithError(err).WithField("username", username).Error("login failed")
		}
		h.render(w, r, "login.html", AuthViewModel{Error: "Invalid username or password"})
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		log.WithError(err).Error("failed to generate session token")
		h.render(w, r, "login.html", AuthViewModel{Error: "An error occurred. Please try again."})
		return
	}

	expiresAt := time.Now().Add(h.sessionDuration)
	if err := h.db.CreateSession(token, account.Username, expiresAt); err != nil {
		log.WithError(err).Error("failed to create session")
		h.render(w, r, "login.html", AuthViewModel{Error: "An error occurred. Please try again."})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// Logout handles user logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.db.DeleteSession(cookie.Value); err != nil {
			log.WithError(err).Error("failed to delete session")
		}
	}
	h.clearSessionCookie(w)
	h.setFlash(w, "You have been logged out")
	http.Redirect(w, r, "/", http.StatusFound)
}

// RegisterForm renders the registration page.
func (h *Handlers) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.html", AuthViewModel{Flash: h.popFlash(w, r)})
}

// Register handles the registration form submission.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "register.html", AuthViewModel{Error: "Invalid form submission"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")
	accountType := r.FormValue("account_type")
	parentUsername := strings.TrimSpace(r.FormValue("parent_username"))

	if username == "" || password == "" {
		h.render(w, r, "register.html", AuthViewModel{Error: "Username and password are required"})
		return
	}
	if password != confirm {
		h.render(w, r, "register.html", AuthViewModel{Error: "Passwords do not match"})
		return
	}

	if _, err := h.svc.Register(username, password, accountType, parentUsername); err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateUsername):
			h.render(w, r, "register.html", AuthViewModel{Error: "Username already exists"})
		case errors.Is(err, ledger.ErrParentNotFound):
			h.render(w, r, "register.html", AuthViewModel{Error: "Parent account not found"})
		default:
			log.WithError(err).WithField("username", username).Error("registration failed")
			h.render(w, r, "register.html", AuthViewModel{Error: "An error occurred. Please try again."})
		}
		return
	}

	h.setFlash(w, "Account created successfully! Please login.")
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// setFlash stores a one-shot message shown on the next rendered page.
func (h *Handlers) setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the flash message, if any.
func (h *Handlers) popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	tmpl, err := template.ParseFiles(filepath.Join(h.templateDir, "base.html"), filepath.Join(h.templateDir, viewName))
	if err != nil {
		log.WithError(err).Error("template error")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	target := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		target = "content"
	}
	if err := tmpl.ExecuteTemplate(w, target, data); err != nil {
		log.WithError(err).Error("template execution error")
	}
}
