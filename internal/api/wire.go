package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"budgettracker/internal/core"
)

// ref decodes an owner reference that the backend renders either as a
// bare id or as a nested entity.
type ref struct {
	ID   int64
	Name string
}

func (r *ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*r = ref{}
		return nil
	}
	if b[0] == '{' {
		var v struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*r = ref{ID: v.ID, Name: v.Name}
		return nil
	}
	id, err := strconv.ParseInt(strings.Trim(string(b), `"`), 10, 64)
	if err != nil {
		return err
	}
	*r = ref{ID: id}
	return nil
}

// timestamp accepts ISO local date-times with or without zone.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return &time.ParseError{Layout: time.RFC3339, Value: s}
}

// localDateTime renders what the backend's LocalDateTime fields accept.
func localDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}

type wireUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Gender    string    `json:"gender"`
	Currency  string    `json:"currency"`
	Language  string    `json:"language"`
	CreatedAt timestamp `json:"createdAt"`
}

func (w wireUser) toCore() core.User {
	return core.User{
		ID:        w.ID,
		Name:      w.Name,
		Email:     w.Email,
		Role:      core.ParseRole(w.Role),
		Gender:    w.Gender,
		Currency:  w.Currency,
		Language:  w.Language,
		CreatedAt: w.CreatedAt.Time,
	}
}

type wireTransaction struct {
	ID          int64      `json:"id"`
	User        ref        `json:"user"`
	UserID      int64      `json:"user_id"`
	UserIDCamel int64      `json:"userId"`
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
}

func (w wireTransaction) toCore() core.Transaction {
	typ, err := core.ParseTxType(w.Type)
	if err != nil {
		typ = core.TxType(strings.ToLower(w.Type))
	}
	uid := w.User.ID
	if uid == 0 {
		uid = w.UserID
	}
	if uid == 0 {
		uid = w.UserIDCamel
	}
	return core.Transaction{
		ID:          w.ID,
		UserID:      uid,
		Type:        typ,
		Amount:      w.Amount,
		Category:    w.Category,
		Description: w.Description,
		Date:        w.Date,
	}
}

type transactionRequest struct {
	UserID      int64      `json:"user_id,omitempty"`
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
}

func newTransactionRequest(t core.Transaction) transactionRequest {
	return transactionRequest{
		UserID:      t.UserID,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date,
	}
}

type wireBudget struct {
	ID        int64      `json:"id"`
	User      ref        `json:"user"`
	UserID    int64      `json:"user_id"`
	Category  string     `json:"category"`
	Amount    core.Money `json:"amount"`
	StartDate core.Date  `json:"startDate"`
	EndDate   core.Date  `json:"endDate"`
}

func (w wireBudget) toCore() core.Budget {
	uid := w.User.ID
	if uid == 0 {
		uid = w.UserID
	}
	return core.Budget{
		ID:        w.ID,
		UserID:    uid,
		Category:  w.Category,
		Amount:    w.Amount,
		StartDate: w.StartDate,
		EndDate:   w.EndDate,
	}
}

type budgetRequest struct {
	UserID    int64      `json:"user_id,omitempty"`
	Category  string     `json:"category"`
	Amount    core.Money `json:"amount"`
	StartDate core.Date  `json:"startDate"`
	EndDate   core.Date  `json:"endDate"`
}

type wireSavings struct {
	ID       int64      `json:"id"`
	User     ref        `json:"user"`
	UserID   int64      `json:"user_id"`
	Name     string     `json:"goal_name"`
	Target   core.Money `json:"target_amt"`
	Current  core.Money `json:"curr_amt"`
	Deadline core.Date  `json:"deadline"`
}

func (w wireSavings) toCore() core.SavingsGoal {
	uid := w.User.ID
	if uid == 0 {
		uid = w.UserID
	}
	return core.SavingsGoal{
		ID:       w.ID,
		UserID:   uid,
		Name:     w.Name,
		Target:   w.Target,
		Current:  w.Current,
		Deadline: w.Deadline,
	}
}

type savingsRequest struct {
	UserID   int64      `json:"user_id,omitempty"`
	Name     string     `json:"goal_name"`
	Target   core.Money `json:"target_amt"`
	Current  core.Money `json:"curr_amt"`
	Deadline core.Date  `json:"deadline"`
}

type wirePost struct {
	ID      int64     `json:"id"`
	Author  ref       `json:"userId"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Created timestamp `json:"created"`
}

func (w wirePost) toCore() core.ForumPost {
	return core.ForumPost{
		ID:         w.ID,
		AuthorID:   w.Author.ID,
		AuthorName: w.Author.Name,
		Title:      w.Title,
		Content:    w.Content,
		Created:    w.Created.Time,
	}
}

type postRequest struct {
	UserID  int64  `json:"user_id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Created string `json:"created"`
}

type wireComment struct {
	ID      int64     `json:"id"`
	Post    ref       `json:"postId"`
	Author  ref       `json:"userId"`
	Content string    `json:"comments"`
	Created timestamp `json:"createdAs"`
}

func (w wireComment) toCore() core.Comment {
	return core.Comment{
		ID:         w.ID,
		PostID:     w.Post.ID,
		AuthorID:   w.Author.ID,
		AuthorName: w.Author.Name,
		Content:    w.Content,
		Created:    w.Created.Time,
	}
}

type commentRequest struct {
	PostID    int64  `json:"post_id"`
	UserID    int64  `json:"user_id,omitempty"`
	Content   string `json:"comments"`
	CreatedAs string `json:"created_as"`
}

func convert[W any, T any](in []W, f func(W) T) []T {
	out := make([]T, 0, len(in))
	for _, w := range in {
		out = append(out, f(w))
	}
	return out
}
