package main

import (
	"errors"
	"net/http"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/per-shree/game-spending-tracker/internal/config"
	"github.com/per-shree/game-spending-tracker/internal/handlers"
	"github.com/per-shree/game-spending-tracker/internal/ledger"
	"github.com/per-shree/game-spending-tracker/internal/models"
	"github.com/per-shree/game-spending-tracker/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		log.WithError(err).WithField("path", cfg.DBPath).Fatal("failed to open database")
	}
	defer db.Close()

	svc := ledger.NewService(db, ledger.Defaults{
		StartingBalance: cfg.StartingBalance,
		MonthlyBudget:   cfg.DefaultMonthlyBudget,
		SpendingLimit:   cfg.DefaultSpendingLimit,
	})

	if cfg.AdminUser != "" {
		if _, err := svc.Register(cfg.AdminUser, cfg.AdminPassword, models.AccountTypeParent, ""); err != nil {
			if !errors.Is(err, ledger.ErrDuplicateUsername) {
				log.WithError(err).WithField("username", cfg.AdminUser).Fatal("failed to create admin account")
			}
		} else {
			log.WithField("username", cfg.AdminUser).Info("created admin account")
		}
	}

	h := handlers.NewHandlers(svc, db, cfg.TemplateDir, cfg.SecureCookies, cfg.SessionDuration)

	c := cron.New()
	if _, err := c.AddFunc(cfg.SessionCleanupSpec, func() {
		if err := db.CleanExpiredSessions(); err != nil {
			log.WithError(err).Error("session cleanup failed")
		}
	}); err != nil {
		log.WithError(err).Fatal("invalid SESSION_CLEANUP_SPEC")
	}
	c.Start()
	defer c.Stop()

	mux := setupRouter(h, cfg.StaticDir)

	log.WithField("port", cfg.Port).Info("server listening")
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /register", h.RegisterForm)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /logout", h.Logout)

	protected := func(fn http.HandlerFunc) http.Handler { return h.AuthMiddleware(fn) }
	mux.Handle("GET /dashboard", protected(h.Dashboard))
	mux.Handle("GET /spend", protected(h.SpendForm))
	mux.Handle("POST /spend", protected(h.Spend))
	mux.Handle("GET /approvals", protected(h.Approvals))
	mux.Handle("GET /approve/{owner}/{id}", protected(h.ApproveTransaction))
	mux.Handle("GET /deny/{owner}/{id}", protected(h.DenyTransaction))
	mux.Handle("GET /profile", protected(h.ProfileForm))
	mux.Handle("POST /profile", protected(h.UpdateProfile))
	mux.Handle("GET /sample-data", protected(h.SampleData))

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	return mux
}
