package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"budgettracker/internal/core"
)

// Transactions lists the session user's transactions.
func (c *Client) Transactions(ctx context.Context) ([]core.Transaction, error) {
	var out []wireTransaction
	if err := c.do(ctx, "list transactions", http.MethodGet, "/transaction", nil, &out); err != nil {
		return nil, err
	}
	return convert(out, wireTransaction.toCore), nil
}

func (c *Client) Transaction(ctx context.Context, id int64) (core.Transaction, error) {
	var out wireTransaction
	if err := c.do(ctx, "get transaction", http.MethodGet, idPath("/transaction", id), nil, &out); err != nil {
		return core.Transaction{}, err
	}
	return out.toCore(), nil
}

func (c *Client) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var out wireTransaction
	if err := c.do(ctx, "create transaction", http.MethodPost, "/transaction", newTransactionRequest(t), &out); err != nil {
		return core.Transaction{}, err
	}
	created := out.toCore()
	if created.ID == 0 {
		// Some backend versions answer with a plain message.
		return t, nil
	}
	return created, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return c.do(ctx, "update transaction", http.MethodPut, idPath("/transaction", t.ID), newTransactionRequest(t), nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.do(ctx, "delete transaction", http.MethodDelete, idPath("/transaction", id), nil, nil)
}

func (c *Client) Budgets(ctx context.Context) ([]core.Budget, error) {
	var out []wireBudget
	if err := c.do(ctx, "list budgets", http.MethodGet, "/budget", nil, &out); err != nil {
		return nil, err
	}
	return convert(out, wireBudget.toCore), nil
}

func budgetBody(b core.Budget) budgetRequest {
	return budgetRequest{UserID: b.UserID, Category: b.Category, Amount: b.Amount, StartDate: b.StartDate, EndDate: b.EndDate}
}

func (c *Client) CreateBudget(ctx context.Context, b core.Budget) error {
	return c.do(ctx, "create budget", http.MethodPost, "/budget", budgetBody(b), nil)
}

func (c *Client) UpdateBudget(ctx context.Context, b core.Budget) error {
	return c.do(ctx, "update budget", http.MethodPut, idPath("/budget", b.ID), budgetBody(b), nil)
}

func (c *Client) DeleteBudget(ctx context.Context, id int64) error {
	return c.do(ctx, "delete budget", http.MethodDelete, idPath("/budget", id), nil, nil)
}

func (c *Client) SavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	var out []wireSavings
	if err := c.do(ctx, "list savings", http.MethodGet, "/savings", nil, &out); err != nil {
		return nil, err
	}
	return convert(out, wireSavings.toCore), nil
}

func savingsBody(g core.SavingsGoal) savingsRequest {
	return savingsRequest{UserID: g.UserID, Name: g.Name, Target: g.Target, Current: g.Current, Deadline: g.Deadline}
}

func (c *Client) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	return c.do(ctx, "create savings goal", http.MethodPost, "/savings", savingsBody(g), nil)
}

func (c *Client) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	return c.do(ctx, "update savings goal", http.MethodPut, idPath("/savings", g.ID), savingsBody(g), nil)
}

func (c *Client) DeleteSavingsGoal(ctx context.Context, id int64) error {
	return c.do(ctx, "delete savings goal", http.MethodDelete, idPath("/savings", id), nil, nil)
}

// Posts lists forum posts, newest first as returned by the backend.
func (c *Client) Posts(ctx context.Context) ([]core.ForumPost, error) {
	var out []wirePost
	if err := c.do(ctx, "list posts", http.MethodGet, "/forumposts", nil, &out); err != nil {
		return nil, err
	}
	return convert(out, wirePost.toCore), nil
}

func postBody(p core.ForumPost) postRequest {
	created := p.Created
	if created.IsZero() {
		created = time.Now()
	}
	return postRequest{UserID: p.AuthorID, Title: p.Title, Content: p.Content, Created: localDateTime(created)}
}

func (c *Client) CreatePost(ctx context.Context, p core.ForumPost) error {
	return c.do(ctx, "create post", http.MethodPost, "/forumposts", postBody(p), nil)
}

func (c *Client) UpdatePost(ctx context.Context, p core.ForumPost) error {
	return c.do(ctx, "update post", http.MethodPut, idPath("/forumposts", p.ID), postBody(p), nil)
}

func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.do(ctx, "delete post", http.MethodDelete, idPath("/forumposts", id), nil, nil)
}

func (c *Client) Comments(ctx context.Context, postID int64) ([]core.Comment, error) {
	var out []wireComment
	if err := c.do(ctx, "list comments", http.MethodGet, idPath("/comments", postID), nil, &out); err != nil {
		return nil, err
	}
	return convert(out, wireComment.toCore), nil
}

func (c *Client) CreateComment(ctx context.Context, cm core.Comment) error {
	created := cm.Created
	if created.IsZero() {
		created = time.Now()
	}
	in := commentRequest{PostID: cm.PostID, UserID: cm.AuthorID, Content: cm.Content, CreatedAs: localDateTime(created)}
	return c.do(ctx, "create comment", http.MethodPost, "/comments", in, nil)
}

func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	return c.do(ctx, "delete comment", http.MethodDelete, idPath("/comments", id), nil, nil)
}

// RecordExport tells the backend an export happened.
func (c *Client) RecordExport(ctx context.Context, userID int64, format core.ExportFormat, at time.Time) error {
	in := struct {
		UserID   int64  `json:"user_id"`
		Format   string `json:"format"`
		Exported string `json:"exported"`
	}{userID, string(format), localDateTime(at)}
	if err := c.do(ctx, "record export", http.MethodPost, "/exports", in, nil); err != nil {
		return fmt.Errorf("record %s export: %w", format, err)
	}
	return nil
}
