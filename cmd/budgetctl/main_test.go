package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgettracker/internal/api/apitest"
	"budgettracker/internal/core"
)

func newBackend(t *testing.T) (*apitest.Backend, core.User) {
	t.Helper()
	b := apitest.New(t)
	u := b.AddUser(core.User{Name: "Ann", Email: "ann@example.com"}, "secret")
	b.Lock()
	b.Transactions = []core.Transaction{
		{ID: 1, UserID: u.ID, Type: core.Income, Amount: core.Cents(300000), Category: "Salary", Date: core.NewDate(2025, 2, 1)},
		{ID: 2, UserID: u.ID, Type: core.Expense, Amount: core.Cents(4550), Category: "Food", Description: "Groceries", Date: core.NewDate(2025, 3, 2)},
		{ID: 3, UserID: u.ID, Type: core.Expense, Amount: core.Cents(1200), Category: "Car", Date: core.NewDate(2025, 3, 9)},
	}
	b.Unlock()
	return b, u
}

func TestRun_ExportCSV(t *testing.T) {
	b, _ := newBackend(t)
	out := filepath.Join(t.TempDir(), "march.csv")
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	args := []string{"export", "-api", b.URL(), "-email", "ann@example.com", "-password", "secret",
		"-from", "2025-03-01", "-to", "2025-03-31", "-o", out}
	require.NoError(t, run(args, new(bytes.Buffer), stdout, stderr))
	assert.Contains(t, stdout.String(), "Exported 2 transactions to "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Type,Category,Description,Amount", strings.TrimSpace(lines[0]))
	assert.Equal(t, "2025-03-09,expense,Car,,12.00", strings.TrimSpace(lines[1]))

	b.Lock()
	defer b.Unlock()
	assert.Equal(t, 1, b.Exports)
}

func TestRun_ExportPDF(t *testing.T) {
	b, _ := newBackend(t)
	out := filepath.Join(t.TempDir(), "all.pdf")

	args := []string{"export", "-api", b.URL(), "-email", "ann@example.com", "-format", "pdf", "-o", out}
	require.NoError(t, run(args, strings.NewReader("secret\n"), new(bytes.Buffer), new(bytes.Buffer)))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRun_PasswordFromStdin(t *testing.T) {
	b, _ := newBackend(t)
	stdout := new(bytes.Buffer)

	args := []string{"summary", "-api", b.URL(), "-email", "ann@example.com"}
	require.NoError(t, run(args, strings.NewReader("secret\n"), stdout, new(bytes.Buffer)))

	output := stdout.String()
	assert.Contains(t, output, "Password: ")
	assert.Contains(t, output, "Wallet of Ann")
	assert.Contains(t, output, "$3,000.00")
	assert.Contains(t, output, "$57.50")
	assert.Contains(t, output, "$2,942.50")
	assert.Contains(t, output, "Transactions: 3")
}

func TestRun_WrongPassword(t *testing.T) {
	b, _ := newBackend(t)

	args := []string{"summary", "-api", b.URL(), "-email", "ann@example.com", "-password", "nope"}
	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no command", nil, "missing command"},
		{"unknown command", []string{"import"}, `unknown command "import"`},
		{"missing email", []string{"summary", "-password", "x"}, "missing required flag: email"},
		{"bad format", []string{"export", "-email", "a@b.c", "-format", "xml"}, "unknown export format"},
		{"sheets", []string{"export", "-email", "a@b.c", "-format", "sheets"}, "only available in the web app"},
		{"bad date", []string{"export", "-email", "a@b.c", "-from", "March"}, "invalid -from"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_EmptyPassword(t *testing.T) {
	err := run([]string{"summary", "-email", "ann@example.com"}, strings.NewReader("\n"), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password cannot be empty")
}
