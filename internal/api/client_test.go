package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgettracker/internal/core"
)

const testToken = "header.payload.signature"

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api", WithTimeout(2*time.Second))
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	assert.Error(t, err)
}

func TestUsableToken(t *testing.T) {
	assert.True(t, UsableToken(testToken))
	for _, tok := range []string{"", "null", "undefined", "plain-token"} {
		assert.False(t, UsableToken(tok), tok)
	}
}

func TestBearerHeaderOnlyForUsableTokens(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	})
	ctx := context.Background()

	_, err := c.WithToken(testToken).Transactions(ctx)
	require.NoError(t, err)
	_, err = c.WithToken("undefined").Transactions(ctx)
	require.NoError(t, err)
	_, err = c.Transactions(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer " + testToken, "", ""}, got)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Invalid email or password"))
			return
		}
		w.Write([]byte(`{"token":"` + testToken + `","user":{"id":3,"name":"Ann","email":"ann@example.com","role":"ADMIN"}}`))
	})
	ctx := context.Background()

	res, err := c.Login(ctx, "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, testToken, res.Token)
	assert.Equal(t, int64(3), res.User.ID)
	assert.Equal(t, core.RoleAdmin, res.User.Role)

	_, err = c.Login(ctx, "ann@example.com", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Invalid email or password", UserMessage(err, "login failed"))
}

func TestStatusErrorTaxonomy(t *testing.T) {
	status := http.StatusOK
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"message":"nope"}`))
	})
	ctx := context.Background()

	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusBadRequest, ErrBadRequest},
	}
	for _, tc := range cases {
		status = tc.status
		_, err := c.WithToken(testToken).Budgets(ctx)
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "nope", se.Message)
		assert.Equal(t, "list budgets", se.Op)
	}

	status = http.StatusInternalServerError
	_, err := c.Budgets(ctx)
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "fallback", UserMessage(err, "fallback"))
}

func TestTransactionsDecodeOwnerShapes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":1,"user":{"id":7,"name":"Ann"},"type":"EXPENSE","amount":12.5,"category":"Food","description":"lunch","date":"2025-01-03"},
			{"id":2,"user_id":8,"type":"income","amount":"100","category":"Salary","date":"2025-01-01T00:00:00"},
			{"id":3,"userId":9,"type":"expense","amount":null,"category":"","date":""}
		]`))
	})

	txs, err := c.WithToken(testToken).AdminTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, int64(7), txs[0].UserID)
	assert.Equal(t, core.Expense, txs[0].Type)
	assert.Equal(t, int64(1250), txs[0].Amount.Cents)
	assert.Equal(t, "2025-01-03", txs[0].Date.String())

	assert.Equal(t, int64(8), txs[1].UserID)
	assert.Equal(t, int64(10000), txs[1].Amount.Cents)
	assert.Equal(t, "2025-01-01", txs[1].Date.String())

	assert.Equal(t, int64(9), txs[2].UserID)
	assert.True(t, txs[2].Date.IsZero())
}

func TestCreateTransactionSendsBackendShape(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Write([]byte(`{"id":42,"user":{"id":5},"type":"expense","amount":9.99,"category":"Food","description":"pizza","date":"2025-02-01"}`))
	})

	in := core.Transaction{UserID: 5, Type: core.Expense, Amount: core.Cents(999), Category: "Food", Description: "pizza", Date: core.NewDate(2025, 2, 1)}
	got, err := c.WithToken(testToken).CreateTransaction(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, float64(5), body["user_id"])
	assert.Equal(t, 9.99, body["amount"])
	assert.Equal(t, "2025-02-01", body["date"])
	assert.Equal(t, "expense", body["type"])
}

func TestPlainTextAcknowledgement(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Budget created successfully"))
	})
	b := core.Budget{Category: "Food", Amount: core.Cents(100), StartDate: core.NewDate(2025, 1, 1), EndDate: core.NewDate(2025, 1, 31)}
	assert.NoError(t, c.WithToken(testToken).CreateBudget(context.Background(), b))

	tx, err := c.WithToken(testToken).CreateTransaction(context.Background(), core.Transaction{Category: "Food"})
	require.NoError(t, err)
	assert.Equal(t, "Food", tx.Category)
}

func TestSavingsAndForumDecode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/savings":
			w.Write([]byte(`[{"id":1,"goal_name":"Bike","target_amt":500,"curr_amt":125.5,"deadline":"2025-06-01"}]`))
		case "/api/forumposts":
			w.Write([]byte(`[{"id":4,"userId":{"id":2,"name":"Bob"},"title":"Tips","content":"Save more","created":"2025-01-02T10:30:00"}]`))
		case "/api/comments/4":
			w.Write([]byte(`[{"id":9,"postId":{"id":4},"userId":{"id":3,"name":"Cy"},"comments":"Agreed","createdAs":"2025-01-03T08:00:00.123"}]`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()
	cl := c.WithToken(testToken)

	goals, err := cl.SavingsGoals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Bike", goals[0].Name)
	assert.Equal(t, int64(12550), goals[0].Current.Cents)

	posts, err := cl.Posts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Bob", posts[0].AuthorName)
	assert.Equal(t, 10, posts[0].Created.Hour())

	comments, err := cl.Comments(ctx, 4)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, int64(4), comments[0].PostID)
	assert.Equal(t, "Agreed", comments[0].Content)

	_, err = cl.Comments(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Profile(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
