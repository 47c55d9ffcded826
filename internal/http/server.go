// Package http serves the budgettracker screens: a chi router over
// server-rendered templates, enhanced with htmx.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"budgettracker/internal/api"
	"budgettracker/internal/cache"
	"budgettracker/internal/config"
	"budgettracker/internal/export"
	"budgettracker/internal/log"
	"budgettracker/internal/middleware/ratelimit"
	"budgettracker/internal/middleware/security"
	"budgettracker/internal/middleware/trace"
	"budgettracker/internal/services"
	"budgettracker/internal/session"
	"budgettracker/internal/store"
	appweb "budgettracker/web"
)

// Deps are the collaborators of the server. Every field is required.
type Deps struct {
	Config    *config.Config
	Client    *api.Client
	Sessions  *session.Manager
	Profiles  *cache.Profiles
	Store     store.Store
	Ledger    *services.LedgerService
	Dashboard *services.DashboardService
	Admin     *services.AdminService
	Alerts    *services.AlertService
	Exports   *export.Service
	Logger    *log.Logger
}

// Server wraps http.Server with the screens and their dependencies.
type Server struct {
	http.Server

	cfg       *config.Config
	client    *api.Client
	sessions  *session.Manager
	profiles  *cache.Profiles
	store     store.Store
	ledger    *services.LedgerService
	dashboard *services.DashboardService
	admin     *services.AdminService
	alerts    *services.AlertService
	exports   *export.Service
	logger    *log.Logger
	events    *log.StructuredLogger

	templates map[string]*template.Template
	detector  *security.Detector
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	metrics   appMetrics
	now       func() time.Time

	shutdownOnce sync.Once
}

type appMetrics struct {
	started       time.Time
	logins        atomic.Int64
	loginFailures atomic.Int64
	transactions  atomic.Int64
	exports       atomic.Int64
	sessionsEnded atomic.Int64
}

// NewServer parses the templates and configures the routes.
func NewServer(addr string, d Deps) (*Server, error) {
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	logger := d.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		cfg:       d.Config,
		client:    d.Client,
		sessions:  d.Sessions,
		profiles:  d.Profiles,
		store:     d.Store,
		ledger:    d.Ledger,
		dashboard: d.Dashboard,
		admin:     d.Admin,
		alerts:    d.Alerts,
		exports:   d.Exports,
		logger:    logger,
		events:    log.NewStructuredLogger(d.Logger),
		detector:  security.NewDetector(),
		now:       time.Now,
	}
	s.metrics.started = time.Now()

	templates, err := parseTemplates(s.funcs())
	if err != nil {
		return nil, err
	}
	s.templates = templates

	rl := ratelimit.DefaultConfig()
	rl.RequestsPerMinute = d.Config.RateLimitPerMinute
	s.limiter = ratelimit.NewLimiter(rl, d.Logger)
	s.tracer = trace.NewMiddleware(d.Logger, s.detector.ExtractClientIP)

	handler, err := s.routes()
	if err != nil {
		s.limiter.Stop()
		return nil, err
	}
	s.Handler = handler
	return s, nil
}

func (s *Server) routes() (http.Handler, error) {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.tooManyRequests))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(s.loadSession)

		r.Get("/", s.handleLanding)
		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Get("/signup", s.handleSignupForm)
		r.Post("/signup", s.handleSignup)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession, security.NoStore)

			r.Get("/dashboard", s.handleDashboard)

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", s.handleTransactions)
				r.Post("/", s.handleCreateTransaction)
				r.Get("/export", s.handleExport)
				r.Get("/{id}/edit", s.handleEditTransaction)
				r.Post("/{id}", s.handleUpdateTransaction)
				r.Post("/{id}/delete", s.handleDeleteTransaction)
			})

			r.Route("/budgets", func(r chi.Router) {
				r.Get("/", s.handleBudgets)
				r.Post("/", s.handleCreateBudget)
				r.Get("/{id}", s.handleBudgetDetail)
				r.Get("/{id}/edit", s.handleEditBudget)
				r.Post("/{id}", s.handleUpdateBudget)
				r.Post("/{id}/delete", s.handleDeleteBudget)
			})

			r.Route("/savings", func(r chi.Router) {
				r.Get("/", s.handleSavings)
				r.Post("/", s.handleCreateSavings)
				r.Get("/{id}/edit", s.handleEditSavings)
				r.Post("/{id}", s.handleUpdateSavings)
				r.Post("/{id}/delete", s.handleDeleteSavings)
				r.Post("/{id}/deposit", s.handleDeposit)
			})

			r.Get("/profile", s.handleProfile)
			r.Post("/profile", s.handleUpdateProfile)
			r.Get("/notifications", s.handleNotifications)

			r.Route("/forum", func(r chi.Router) {
				r.Get("/", s.handleForum)
				r.Post("/", s.handleCreatePost)
				r.Get("/{id}", s.handleForumPost)
				r.Post("/{id}", s.handleUpdatePost)
				r.Post("/{id}/delete", s.handleDeletePost)
				r.Post("/{id}/comments", s.handleCreateComment)
				r.Post("/{id}/comments/{commentID}/delete", s.handleDeleteComment)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/", s.handleAdminDashboard)
				r.Get("/users", s.handleAdminUsers)
				r.Post("/users/{id}", s.handleAdminUpdateUser)
				r.Post("/users/{id}/delete", s.handleAdminDeleteUser)
				r.Get("/transactions", s.handleAdminTransactions)
				r.Post("/transactions/{id}/delete", s.handleAdminDeleteTransaction)
			})
		})

		r.NotFound(s.handleNotFound)
	})

	return r, nil
}

// tooManyRequests answers htmx requests with a notification and page
// loads with the error page. Retry-After is already set.
func (s *Server) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	const msg = "Too many requests. Please wait a moment and try again."
	if isHTMX(r) && !isBoosted(r) {
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			Header("HX-Reswap", "none").
			TriggerErrorNotification(msg).
			Write(w)
		return
	}
	s.renderError(w, r, http.StatusTooManyRequests, msg)
}

// Shutdown stops the background goroutines and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// ListenAndServe runs until Shutdown; a clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.Addr, log.FieldOperation, log.OpStartup)
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
