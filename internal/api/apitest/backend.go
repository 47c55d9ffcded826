// Package apitest provides an in-memory stand-in for the budget REST
// backend, served over httptest, for tests of code built on the api
// client.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"budgettracker/internal/core"
)

// Backend is a fake backend. Exported slices may be seeded before the
// first request; use the Lock/Unlock pair when touching them afterwards.
type Backend struct {
	sync.Mutex

	Users        []core.User
	Passwords    map[int64]string
	Transactions []core.Transaction
	Budgets      []core.Budget
	Savings      []core.SavingsGoal
	Posts        []core.ForumPost
	Comments     []core.Comment
	Exports      int

	tokens   map[string]int64
	failures map[string]int
	nextID   int64

	Server *httptest.Server
}

// New starts a backend; the API base URL is URL().
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		Passwords: map[int64]string{},
		tokens:    map[string]int64{},
		failures:  map[string]int{},
		nextID:    1000,
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the base URL to hand to api.New.
func (b *Backend) URL() string { return b.Server.URL + "/api" }

// AddUser registers a user with a password and returns it with its id.
func (b *Backend) AddUser(u core.User, password string) core.User {
	b.Lock()
	defer b.Unlock()
	if u.ID == 0 {
		u.ID = b.id()
	}
	if u.Role == "" {
		u.Role = core.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	b.Users = append(b.Users, u)
	b.Passwords[u.ID] = password
	return u
}

// TokenFor issues a token for an existing user without a login call.
func (b *Backend) TokenFor(userID int64) string {
	b.Lock()
	defer b.Unlock()
	return b.issue(userID)
}

// Revoke makes every request with token answer 401.
func (b *Backend) Revoke(token string) {
	b.Lock()
	defer b.Unlock()
	delete(b.tokens, token)
}

// Fail makes requests to path (e.g. "/api/budget") answer status until
// cleared with status 0.
func (b *Backend) Fail(path string, status int) {
	b.Lock()
	defer b.Unlock()
	if status == 0 {
		delete(b.failures, path)
		return
	}
	b.failures[path] = status
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) issue(userID int64) string {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"exp": time.Now().Add(time.Hour).Unix(),
		"jti": b.id(),
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("apitest"))
	b.tokens[tok] = userID
	return tok
}

func (b *Backend) userByID(id int64) (core.User, bool) {
	for _, u := range b.Users {
		if u.ID == id {
			return u, true
		}
	}
	return core.User{}, false
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.injectFailures)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", b.login)
		r.Post("/auth/signup", b.signup)

		r.Group(func(r chi.Router) {
			r.Use(b.auth)
			r.Get("/auth/profile", b.profile)
			r.Put("/auth/profile", b.updateProfile)

			r.Get("/transaction", b.listTransactions)
			r.Post("/transaction", b.createTransaction)
			r.Get("/transaction/{id}", b.getTransaction)
			r.Put("/transaction/{id}", b.updateTransaction)
			r.Delete("/transaction/{id}", b.deleteTransaction)

			r.Get("/budget", b.listBudgets)
			r.Post("/budget", b.saveBudget)
			r.Put("/budget/{id}", b.saveBudget)
			r.Delete("/budget/{id}", b.deleteBudget)

			r.Get("/savings", b.listSavings)
			r.Post("/savings", b.saveSavings)
			r.Put("/savings/{id}", b.saveSavings)
			r.Delete("/savings/{id}", b.deleteSavings)

			r.Get("/forumposts", b.listPosts)
			r.Post("/forumposts", b.savePost)
			r.Put("/forumposts/{id}", b.savePost)
			r.Delete("/forumposts/{id}", b.deletePost)
			r.Get("/comments/{id}", b.listComments)
			r.Post("/comments", b.createComment)
			r.Delete("/comments/{id}", b.deleteComment)

			r.Post("/exports", b.recordExport)

			r.Group(func(r chi.Router) {
				r.Use(b.adminOnly)
				r.Get("/admin/users", b.adminUsers)
				r.Put("/users/{id}", b.adminUpdateUser)
				r.Delete("/users/{id}", b.adminDeleteUser)
				r.Get("/admin/transactions", b.adminTransactions)
				r.Delete("/admin/transactions/{id}", b.adminDeleteTransaction)
				r.Get("/admin/budgets", b.adminBudgets)
				r.Get("/admin/savings", b.adminSavings)
			})
		})
	})
	return r
}

func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.Lock()
		status, ok := b.failures[r.URL.Path]
		b.Unlock()
		if ok {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.Lock()
		uid, ok := b.tokens[tok]
		b.Unlock()
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		r.Header.Set("X-User-Id", strconv.FormatInt(uid, 10))
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.Lock()
		u, _ := b.userByID(caller(r))
		b.Unlock()
		if !u.Role.IsAdmin() {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "Access denied"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func caller(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-User-Id"), 10, 64)
	return id
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return false
	}
	return true
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	if !decode(w, r, &in) {
		return
	}
	b.Lock()
	defer b.Unlock()
	for _, u := range b.Users {
		if strings.EqualFold(u.Email, in.Email) && b.Passwords[u.ID] == in.Password {
			writeJSON(w, http.StatusOK, map[string]any{"token": b.issue(u.ID), "user": userJSON(u)})
			return
		}
	}
	http.Error(w, "Invalid email or password", http.StatusUnauthorized)
}

func (b *Backend) signup(w http.ResponseWriter, r *http.Request) {
	var in struct{ Name, Email, Password, Role string }
	if !decode(w, r, &in) {
		return
	}
	b.Lock()
	for _, u := range b.Users {
		if strings.EqualFold(u.Email, in.Email) {
			b.Unlock()
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Email already registered"})
			return
		}
	}
	b.Unlock()
	b.AddUser(core.User{Name: in.Name, Email: in.Email, Role: core.ParseRole(in.Role)}, in.Password)
	w.Write([]byte("User registered successfully"))
}

func userJSON(u core.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"role":      string(u.Role),
		"gender":    u.Gender,
		"currency":  u.Currency,
		"language":  u.Language,
		"createdAt": u.CreatedAt.UTC().Format("2006-01-02T15:04:05"),
	}
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	u, ok := b.userByID(caller(r))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, userJSON(u))
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in struct{ Name, Email, Gender, Currency, Language string }
	if !decode(w, r, &in) {
		return
	}
	b.Lock()
	defer b.Unlock()
	for i, u := range b.Users {
		if u.ID == caller(r) {
			b.Users[i].Name, b.Users[i].Email = in.Name, in.Email
			b.Users[i].Gender, b.Users[i].Currency, b.Users[i].Language = in.Gender, in.Currency, in.Language
		}
	}
	w.Write([]byte("Profile updated"))
}

func txJSON(t core.Transaction) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"user_id":     t.UserID,
		"type":        strings.ToUpper(string(t.Type)),
		"amount":      t.Amount,
		"category":    t.Category,
		"description": t.Description,
		"date":        t.Date,
	}
}

type txIn struct {
	UserID      int64      `json:"user_id"`
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
}

func (in txIn) toCore(id, uid int64) core.Transaction {
	typ, _ := core.ParseTxType(in.Type)
	return core.Transaction{ID: id, UserID: uid, Type: typ, Amount: in.Amount, Category: in.Category, Description: in.Description, Date: in.Date}
}

func (b *Backend) listTransactions(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	out := []map[string]any{}
	for _, t := range b.Transactions {
		if t.UserID == caller(r) {
			out = append(out, txJSON(t))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getTransaction(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	for _, t := range b.Transactions {
		if t.ID == pathID(r) && t.UserID == caller(r) {
			writeJSON(w, http.StatusOK, txJSON(t))
			return
		}
	}
	http.Error(w, "Transaction not found", http.StatusNotFound)
}

func (b *Backend) createTransaction(w http.ResponseWriter, r *http.Request) {
	var in txIn
	if !decode(w, r, &in) {
		return
	}
	b.Lock()
	defer b.Unlock()
	t := in.toCore(b.id(), caller(r))
	b.Transactions = append(b.Transactions, t)
	writeJSON(w, http.StatusOK, txJSON(t))
}

func (b *Backend) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var in txIn
	if !decode(w, r, &in) {
		return
	}
	b.Lock()
	defer b.Unlock()
	for i, t := range b.Transactions {
		if t.ID == pathID(r) && t.UserID == caller(r) {
			b.Transactions[i] = in.toCore(t.ID, t.UserID)
			w.Write([]byte("Transaction updated"))
			return
		}
	}
	http.Error(w, "Transaction not found", http.StatusNotFound)
}

func (b *Backend) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	b.Transactions = remove(b.Transactions, func(t core.Transaction) bool {
		return t.ID == pathID(r) && t.UserID == caller(r)
	})
	w.WriteHeader(http.StatusNoContent)
}

func budgetJSON(x core.Budget) map[string]any {
	return map[string]any{
		"id": x.ID, "user_id": x.UserID, "category": x.Category, "amount": x.Amount,
		"startDate": x.StartDate, "endDate": x.EndDate,
	}
}

func (b *Backend) listBudgets(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	out := []map[string]any{}
	for _, x := range b.Budgets {
		if x.UserID == caller(r) {
			out = append(out, budgetJSON(x))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) saveBudget(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Category  string     `json:"category"`
		Amount    core.Money `json:"amount"`
		StartDate core.Date  `json:"startDate"`
		EndDate   core.Date  `json:"endDate"`
	}
	if !decode(w, r, &in) {
		return
	}
	b.Lock()
	defer b.Unlock()
	x := core.Budget{UserID: caller(r), Category: in.Category, Amount: in.Amount, StartDate: in.StartDate, EndDate: in.EndDate}
	if id := pathID(r); id != 0 {
		for i := range b.Budgets {
			if b.Budgets[i].ID == id {
				x.ID = id
				b.Budgets[i] = x
			}
		}
	} else {
		x.ID = b.id()
		b.Budgets = append(b.Budgets, x)
	}
	writeJSON(w, http.StatusOK, budgetJSON(x))
}

func (b *Backend) deleteBudget(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	b.Budgets = remove(b.Budgets, func(x core.Budget) bool { return x.ID == pathID(r) })
	w.Write([]byte("Budget deleted"))
}

func savingsJSON(g core.SavingsGoal) map[string]any {
	return map[string]any{
		"id": g.ID, "user_id": g.UserID, "goal_name": g.Name, "target_amt": g.Target,
		"curr_amt": g.Current, "deadline": g.Deadline,
	}
}

func (b *Backend) listSavings(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	out := []map[string]any{}
	for _, g := range b.Savings {
		if g.UserID == caller(r) {
			out = append(out, savingsJSON(g))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) saveSavings(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string     `json:"goal_name"`
		Target   core.Money `json:"target_amt"`
		Current  core.Money `json:"curr_amt"`
		Deadline core.Date  `json:"deadline"`
	}
	if !decode(w, r, &in) {
		return
	}
	b.Lock()
	defer b.Unlock()
	g := core.SavingsGoal{UserID: caller(r), Name: in.Name, Target: in.Target, Current: in.Current, Deadline: in.Deadline}
	if id := pathID(r); id != 0 {
		for i := range b.Savings {
			if b.Savings[i].ID == id {
				g.ID = id
				b.Savings[i] = g
			}
		}
	} else {
		g.ID = b.id()
		b.Savings = append(b.Savings, g)
	}
	writeJSON(w, http.StatusOK, savingsJSON(g))
}

func (b *Backend) deleteSavings(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	b.Savings = remove(b.Savings, func(g core.SavingsGoal) bool { return g.ID == pathID(r) })
	w.WriteHeader(http.StatusNoContent)
}

const stamp = "2006-01-02T15:04:05"

func (b *Backend) listPosts(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	out := []map[string]any{}
	for _, p := range b.Posts {
		out = append(out, map[string]any{
			"id":      p.ID,
			"userId":  map[string]any{"id": p.AuthorID, "name": p.AuthorName},
			"title":   p.Title,
			"content": p.Content,
			"created": p.Created.UTC().Format(stamp),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) savePost(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if !decode(w, r, &in) {
		return
	}
	b.Lock()
	defer b.Unlock()
	u, _ := b.userByID(caller(r))
	if id := pathID(r); id != 0 {
		for i := range b.Posts {
			if b.Posts[i].ID == id {
				b.Posts[i].Title, b.Posts[i].Content = in.Title, in.Content
			}
		}
	} else {
		b.Posts = append(b.Posts, core.ForumPost{ID: b.id(), AuthorID: u.ID, AuthorName: u.Name, Title: in.Title, Content: in.Content, Created: time.Now()})
	}
	w.Write([]byte("ok"))
}

func (b *Backend) deletePost(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	b.Posts = remove(b.Posts, func(p core.ForumPost) bool { return p.ID == pathID(r) })
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listComments(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	out := []map[string]any{}
	for _, c := range b.Comments {
		if c.PostID != pathID(r) {
			continue
		}
		out = append(out, map[string]any{
			"id":        c.ID,
			"postId":    c.PostID,
			"userId":    map[string]any{"id": c.AuthorID, "name": c.AuthorName},
			"comments":  c.Content,
			"createdAs": c.Created.UTC().Format(stamp),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PostID  int64  `json:"post_id"`
		Content string `json:"comments"`
	}
	if !decode(w, r, &in) {
		return
	}
	b.Lock()
	defer b.Unlock()
	u, _ := b.userByID(caller(r))
	b.Comments = append(b.Comments, core.Comment{ID: b.id(), PostID: in.PostID, AuthorID: u.ID, AuthorName: u.Name, Content: in.Content, Created: time.Now()})
	w.Write([]byte("ok"))
}

func (b *Backend) deleteComment(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	b.Comments = remove(b.Comments, func(c core.Comment) bool { return c.ID == pathID(r) })
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) recordExport(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	b.Exports++
	b.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (b *Backend) adminUsers(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	out := []map[string]any{}
	for _, u := range b.Users {
		out = append(out, userJSON(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) adminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in struct{ Name, Email, Role string }
	if !decode(w, r, &in) {
		return
	}
	b.Lock()
	defer b.Unlock()
	for i := range b.Users {
		if b.Users[i].ID == pathID(r) {
			b.Users[i].Name, b.Users[i].Email, b.Users[i].Role = in.Name, in.Email, core.ParseRole(in.Role)
			w.Write([]byte("User updated"))
			return
		}
	}
	http.Error(w, "User not found", http.StatusNotFound)
}

func (b *Backend) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	b.Users = remove(b.Users, func(u core.User) bool { return u.ID == pathID(r) })
	w.Write([]byte("User deleted"))
}

func (b *Backend) adminTransactions(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	out := []map[string]any{}
	for _, t := range b.Transactions {
		out = append(out, txJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) adminDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	b.Transactions = remove(b.Transactions, func(t core.Transaction) bool { return t.ID == pathID(r) })
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) adminBudgets(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	out := []map[string]any{}
	for _, x := range b.Budgets {
		out = append(out, budgetJSON(x))
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) adminSavings(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()
	out := []map[string]any{}
	for _, g := range b.Savings {
		out = append(out, savingsJSON(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func remove[T any](in []T, match func(T) bool) []T {
	out := in[:0]
	for _, v := range in {
		if !match(v) {
			out = append(out, v)
		}
	}
	return out
}

// String summarizes the backend contents for failure messages.
func (b *Backend) String() string {
	b.Lock()
	defer b.Unlock()
	return fmt.Sprintf("users=%d transactions=%d budgets=%d savings=%d posts=%d",
		len(b.Users), len(b.Transactions), len(b.Budgets), len(b.Savings), len(b.Posts))
}
