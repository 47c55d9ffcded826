package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
	"budgettracker/internal/log"
	"budgettracker/internal/session"
	appweb "budgettracker/web"
)

// pages are the templates under web/templates, each rendered inside
// layout.html with the shared partials.
var pages = []string{
	"landing", "login", "signup", "error",
	"dashboard", "transactions", "transaction_edit",
	"budgets", "budget_detail", "budget_edit",
	"savings", "savings_edit",
	"profile", "notifications",
	"forum", "forum_post",
	"admin_dashboard", "admin_users", "admin_transactions",
}

func parseTemplates(funcs template.FuncMap) (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		t, err := template.New(p).Funcs(funcs).ParseFS(appweb.TemplatesFS,
			"templates/layout.html", "templates/partials.html", "templates/"+p+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", p, err)
		}
		out[p] = t
	}
	return out, nil
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"money": func(m core.Money) string { return m.Format(s.cfg.CurrencySymbol) },
		"pct":   func(f float64) string { return strconv.FormatFloat(f, 'f', 0, 64) + "%" },
		"width": func(f float64) template.CSS {
			return template.CSS("width: " + strconv.FormatFloat(min(max(f, 0), 100), 'f', 1, 64) + "%")
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
		"fielderr": func(errs fieldErrors, field string) string { return errs[field] },
		"add":      func(a, b int) int { return a + b },
		"lower":    strings.ToLower,
	}
}

// view is what every page template receives.
type view struct {
	Title      string
	Session    *core.Session
	Flash      flash
	Warnings   []string
	Symbol     string
	Categories []string
	Page       any
}

type flash struct {
	Kind    string
	Message string
}

const flashCookie = "bt_flash"

// setFlash stores a one-shot message shown by the next rendered page.
func setFlash(w http.ResponseWriter, kind NotificationType, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(string(kind) + "|" + msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the flash cookie.
func popFlash(w http.ResponseWriter, r *http.Request) flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return flash{}
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return flash{}
	}
	kind, msg, ok := strings.Cut(raw, "|")
	if !ok {
		return flash{}
	}
	switch NotificationType(kind) {
	case NotificationSuccess, NotificationError, NotificationWarning, NotificationInfo:
	default:
		kind = string(NotificationInfo)
	}
	return flash{Kind: kind, Message: msg}
}

// render executes the named page into a buffer and writes it with status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, v view) {
	s.execute(w, r, status, name, "layout", v, nil)
}

// renderFragment writes only the named block of a page, for htmx swaps.
func (s *Server) renderFragment(w http.ResponseWriter, r *http.Request, name, block string, v view) {
	s.execute(w, r, http.StatusOK, name, block, v, nil)
}

// renderFragmentWith is renderFragment carrying the triggers and headers
// already set on hx.
func (s *Server) renderFragmentWith(w http.ResponseWriter, r *http.Request, name, block string, v view, hx *HTMXResponseBuilder) {
	s.execute(w, r, http.StatusOK, name, block, v, hx)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, status int, name, block string, v view, hx *HTMXResponseBuilder) {
	t, ok := s.templates[name]
	if !ok {
		s.logger.ErrorContext(r.Context(), "Unknown template",
			log.FieldComponent, log.ComponentTemplate, "template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if sess, ok := session.FromContext(r.Context()); ok {
		v.Session = &sess
	}
	if v.Flash.Message == "" {
		v.Flash = popFlash(w, r)
	}
	v.Symbol = s.cfg.CurrencySymbol
	if v.Categories == nil {
		v.Categories = s.cfg.Categories
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, v); err != nil {
		s.logError(r.Context(), "Template execution failed", err,
			log.ComponentTemplate, log.OpRender, log.ErrorTypeInternal, log.LogFields{"template": name})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if block != "layout" {
		if hx == nil {
			hx = NewHTMXResponse()
		}
		hx.Status(status).BodyHTML(buf.Bytes()).Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, "error", view{
		Title: http.StatusText(status),
		Page:  errorPage{Status: status, Message: msg},
	})
}

// renderLoadError answers a failed single-item read that recoverable let
// through.
func (s *Server) renderLoadError(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errors.Is(err, api.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, "This "+what+" could not be found.")
		return
	}
	s.renderError(w, r, http.StatusBadGateway, "This "+what+" could not be loaded. Please try again later.")
}

type errorPage struct {
	Status  int
	Message string
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "The page you are looking for does not exist.")
}
