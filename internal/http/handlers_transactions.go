package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"budgettracker/internal/core"
	"budgettracker/internal/export"
	"budgettracker/internal/log"
)

type transactionsPage struct {
	Filter        transactionFilter
	Summary       core.Summary
	Page          core.Page[core.Transaction]
	Form          TransactionForm
	Query         string
	SheetsEnabled bool
}

// PageURL keeps the filter when moving to page n.
func (p transactionsPage) PageURL(n int) string {
	return withQuery("/transactions", p.Query, "page", strconv.Itoa(n))
}

// DeleteURL posts a row delete that keeps the filter and page.
func (p transactionsPage) DeleteURL(id int64) string {
	return withQuery("/transactions/"+strconv.FormatInt(id, 10)+"/delete", p.Query, "page", strconv.Itoa(p.Page.Number))
}

func (p transactionsPage) ExportURL(format string) string {
	return withQuery("/transactions/export", p.Query, "format", format)
}

// withQuery adds key/value pairs to an encoded query and appends it to path.
func withQuery(path, query string, pairs ...string) string {
	v, _ := url.ParseQuery(query)
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

type transactionEditPage struct {
	Form TransactionForm
}

// transactionFilter is the filter bar as entered. Unparseable dates are
// kept for display and ignored.
type transactionFilter struct {
	Type     string
	Category string
	From     string
	To       string
	Q        string
}

func parseTransactionFilter(r *http.Request) transactionFilter {
	q := r.URL.Query()
	return transactionFilter{
		Type:     sanitizeInput(q.Get("type")),
		Category: sanitizeInput(q.Get("category")),
		From:     sanitizeInput(q.Get("from")),
		To:       sanitizeInput(q.Get("to")),
		Q:        sanitizeInput(q.Get("q")),
	}
}

func (f transactionFilter) toCore() core.TxFilter {
	out := core.TxFilter{Category: f.Category, Query: f.Q}
	if t, err := core.ParseTxType(f.Type); err == nil {
		out.Type = t
	}
	out.From, _ = core.ParseDate(f.From)
	out.To, _ = core.ParseDate(f.To)
	return out
}

// encode returns the non-empty filter values as a query string, without
// the page.
func (f transactionFilter) encode() string {
	v := url.Values{}
	for key, val := range map[string]string{"type": f.Type, "category": f.Category, "from": f.From, "to": f.To, "q": f.Q} {
		if val != "" {
			v.Set(key, val)
		}
	}
	return v.Encode()
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// transactionsView loads and filters the list around form. ok is false
// when the response was already written.
func (s *Server) transactionsView(w http.ResponseWriter, r *http.Request, form TransactionForm) (view, bool) {
	v := view{Title: "Transactions"}
	filter := parseTransactionFilter(r)

	txs, err := s.clientFor(r).Transactions(r.Context())
	if err != nil {
		if !s.recoverable(w, r, err) {
			return v, false
		}
		v.Warnings = []string{"Your transactions could not be loaded. Please try again later."}
	}
	filtered := core.FilterTransactions(txs, filter.toCore())
	v.Page = transactionsPage{
		Filter:        filter,
		Summary:       core.Summarize(filtered),
		Page:          core.Paginate(filtered, queryInt(r, "page", 1), s.cfg.PageSize),
		Form:          form,
		Query:         filter.encode(),
		SheetsEnabled: s.exports.SheetsEnabled(),
	}
	return v, true
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	v, ok := s.transactionsView(w, r, newTransactionForm(s.today()))
	if !ok {
		return
	}
	if hxTarget(r) == "transaction-table" {
		s.renderFragment(w, r, "transactions", "transaction_table", v)
		return
	}
	s.render(w, r, http.StatusOK, "transactions", v)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := parseTransactionForm(r)
	t, valid := form.validate()
	if valid {
		sess := currentSession(r)
		created, err := s.ledger.CreateTransaction(ctx, s.clientFor(r), sess, t)
		if err == nil {
			s.metrics.transactions.Add(1)
			s.events.LogTransactionSaved(ctx, log.OpCreate, sess.UserID, created.ID, string(t.Type), t.Category, t.Amount.Cents)
			setFlash(w, NotificationSuccess, "Transaction added.")
			s.redirect(w, r, "/transactions")
			return
		}
		msg, ok := s.writeFailed(w, r, err, "The transaction could not be saved.")
		if !ok {
			return
		}
		form.Errors.add(formField, msg)
	}

	v, ok := s.transactionsView(w, r, form)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "transactions", v)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	t, err := s.clientFor(r).Transaction(r.Context(), id)
	if err != nil {
		if s.recoverable(w, r, err) {
			s.renderLoadError(w, r, err, "transaction")
		}
		return
	}
	s.render(w, r, http.StatusOK, "transaction_edit", view{
		Title: "Edit transaction",
		Page:  transactionEditPage{Form: transactionFormFrom(t)},
	})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := parseTransactionForm(r)
	form.ID = id
	t, valid := form.validate()
	if valid {
		sess := currentSession(r)
		err := s.ledger.UpdateTransaction(ctx, s.clientFor(r), sess, t)
		if err == nil {
			s.metrics.transactions.Add(1)
			s.events.LogTransactionSaved(ctx, log.OpUpdate, sess.UserID, id, string(t.Type), t.Category, t.Amount.Cents)
			setFlash(w, NotificationSuccess, "Transaction updated.")
			s.redirect(w, r, "/transactions")
			return
		}
		msg, ok := s.writeFailed(w, r, err, "The transaction could not be saved.")
		if !ok {
			return
		}
		form.Errors.add(formField, msg)
	}
	s.render(w, r, http.StatusOK, "transaction_edit", view{Title: "Edit transaction", Page: transactionEditPage{Form: form}})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	// A delete from the table swaps the table in place and toasts the
	// outcome; anything else goes back to the list with a flash.
	inTable := isHTMX(r) && !isBoosted(r) && hxTarget(r) == "transaction-table"
	hx := NewHTMXResponse()

	if err := s.ledger.DeleteTransaction(r.Context(), s.clientFor(r), currentSession(r), id); err != nil {
		msg, ok := s.writeFailed(w, r, err, "The transaction could not be deleted.")
		if !ok {
			return
		}
		if inTable {
			hx.TriggerErrorNotification(msg)
		} else {
			setFlash(w, NotificationError, msg)
		}
	} else if inTable {
		hx.TriggerSuccessNotification("Transaction deleted.")
	} else {
		setFlash(w, NotificationSuccess, "Transaction deleted.")
	}

	if !inTable {
		s.redirect(w, r, "/transactions")
		return
	}
	v, ok := s.transactionsView(w, r, newTransactionForm(s.today()))
	if !ok {
		return
	}
	s.renderFragmentWith(w, r, "transactions", "transaction_table", v, hx)
}

// handleExport exports the filtered transactions. Files are buffered so a
// failure can still answer with a page instead of half a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := currentSession(r)
	filter := parseTransactionFilter(r)
	back := withQuery("/transactions", filter.encode())

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		setFlash(w, NotificationError, "Unknown export format.")
		s.redirect(w, r, back)
		return
	}

	c := s.clientFor(r)
	txs, err := c.Transactions(ctx)
	if err != nil {
		if s.recoverable(w, r, err) {
			setFlash(w, NotificationError, "Your transactions could not be loaded for the export.")
			s.redirect(w, r, back)
		}
		return
	}
	cf := filter.toCore()
	req := export.Request{
		Format:       format,
		UserID:       sess.UserID,
		UserName:     sess.Name,
		From:         cf.From,
		To:           cf.To,
		Transactions: core.FilterTransactions(txs, cf),
	}

	var buf bytes.Buffer
	rec, err := s.exports.Export(ctx, &buf, c, req)
	if err != nil {
		msg := "The export failed. Please try again later."
		switch {
		case errors.Is(err, export.ErrSheetsDisabled):
			msg = "Spreadsheet export is not configured."
		case errors.Is(err, export.ErrNoTransactions):
			msg = "There are no transactions to export."
		default:
			s.logError(ctx, "Export failed", err, log.ComponentExport, log.OpExport, log.ErrorTypeInternal,
				log.LogFields{log.FieldFormat: string(format)})
		}
		setFlash(w, NotificationError, msg)
		s.redirect(w, r, back)
		return
	}
	s.metrics.exports.Add(1)

	if format == core.FormatSheets {
		setFlash(w, NotificationSuccess, "Exported "+strconv.Itoa(rec.Rows)+" transactions to the spreadsheet.")
		s.redirect(w, r, back)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(format, rec.CreatedAt)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
