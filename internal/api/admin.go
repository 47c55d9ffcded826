package api

import (
	"context"
	"net/http"

	"budgettracker/internal/core"
)

// UserUpdate is the admin edit of a user.
type UserUpdate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (c *Client) AdminUsers(ctx context.Context) ([]core.User, error) {
	var out []wireUser
	if err := c.do(ctx, "admin list users", http.MethodGet, "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return convert(out, wireUser.toCore), nil
}

func (c *Client) AdminUpdateUser(ctx context.Context, id int64, u UserUpdate) error {
	return c.do(ctx, "admin update user", http.MethodPut, idPath("/users", id), u, nil)
}

func (c *Client) AdminDeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, "admin delete user", http.MethodDelete, idPath("/users", id), nil, nil)
}

// AdminTransactions lists every user's transactions.
func (c *Client) AdminTransactions(ctx context.Context) ([]core.Transaction, error) {
	var out []wireTransaction
	if err := c.do(ctx, "admin list transactions", http.MethodGet, "/admin/transactions", nil, &out); err != nil {
		return nil, err
	}
	return convert(out, wireTransaction.toCore), nil
}

func (c *Client) AdminDeleteTransaction(ctx context.Context, id int64) error {
	return c.do(ctx, "admin delete transaction", http.MethodDelete, idPath("/admin/transactions", id), nil, nil)
}

func (c *Client) AdminBudgets(ctx context.Context) ([]core.Budget, error) {
	var out []wireBudget
	if err := c.do(ctx, "admin list budgets", http.MethodGet, "/admin/budgets", nil, &out); err != nil {
		return nil, err
	}
	return convert(out, wireBudget.toCore), nil
}

func (c *Client) AdminSavings(ctx context.Context) ([]core.SavingsGoal, error) {
	var out []wireSavings
	if err := c.do(ctx, "admin list savings", http.MethodGet, "/admin/savings", nil, &out); err != nil {
		return nil, err
	}
	return convert(out, wireSavings.toCore), nil
}
