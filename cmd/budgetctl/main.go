package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"budgettracker/internal/api"
	"budgettracker/internal/config"
	"budgettracker/internal/core"
	"budgettracker/internal/export"
	"budgettracker/internal/log"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `Usage:
  budgetctl export -email <email> [-format csv|pdf] [-o file] [-from YYYY-MM-DD] [-to YYYY-MM-DD]
  budgetctl summary -email <email>`

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return errors.New("missing command")
	}
	switch args[0] {
	case "export":
		return runExport(args[1:], stdin, stdout, stderr)
	case "summary":
		return runSummary(args[1:], stdin, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return nil
	}
	fmt.Fprintln(stderr, usage)
	return fmt.Errorf("unknown command %q", args[0])
}

// common holds the flags every command takes.
type common struct {
	email    *string
	password *string
	apiURL   *string
	timeout  *time.Duration
}

func commonFlags(fs *flag.FlagSet) common {
	cfg := config.Defaults()
	apiURL := cfg.APIBaseURL
	if v := os.Getenv("API_BASE_URL"); v != "" {
		apiURL = strings.TrimRight(v, "/")
	}
	return common{
		email:    fs.String("email", "", "Account email"),
		password: fs.String("password", "", "Password (optional, will prompt if omitted)"),
		apiURL:   fs.String("api", apiURL, "Backend API base URL"),
		timeout:  fs.Duration("timeout", cfg.APITimeout, "Backend request timeout"),
	}
}

// login signs in and returns a client acting as the user.
func (c common) login(ctx context.Context, stdin io.Reader, stdout io.Writer) (*api.Client, api.LoginResult, error) {
	if *c.email == "" {
		return nil, api.LoginResult{}, errors.New("missing required flag: email")
	}
	password := *c.password
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return nil, api.LoginResult{}, fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return nil, api.LoginResult{}, errors.New("password cannot be empty")
	}

	client, err := api.New(*c.apiURL, api.WithTimeout(*c.timeout))
	if err != nil {
		return nil, api.LoginResult{}, err
	}
	res, err := client.Login(ctx, *c.email, password)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return nil, api.LoginResult{}, errors.New("invalid email or password")
		}
		return nil, api.LoginResult{}, fmt.Errorf("login: %w", err)
	}
	return client.WithToken(res.Token), res, nil
}

func runExport(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := commonFlags(fs)
	formatFlag := fs.String("format", "csv", "Export format: csv or pdf")
	out := fs.String("o", "", "Output file (default: transactions-<date>.<format>)")
	fromFlag := fs.String("from", "", "First day to include")
	toFlag := fs.String("to", "", "Last day to include")
	symbol := fs.String("currency", config.Defaults().CurrencySymbol, "Currency symbol for PDF amounts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}
	if format == core.FormatSheets {
		return errors.New("spreadsheet export is only available in the web app")
	}
	var filter core.TxFilter
	if *fromFlag != "" {
		if filter.From, err = core.ParseDate(*fromFlag); err != nil {
			return fmt.Errorf("invalid -from: %w", err)
		}
	}
	if *toFlag != "" {
		if filter.To, err = core.ParseDate(*toFlag); err != nil {
			return fmt.Errorf("invalid -to: %w", err)
		}
	}

	ctx := context.Background()
	client, res, err := c.login(ctx, stdin, stdout)
	if err != nil {
		return err
	}
	txs, err := client.Transactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	path := *out
	if path == "" {
		path = export.Filename(format, time.Now())
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	svc := export.NewService(nil, nil, *symbol, log.Discard())
	rec, err := svc.Export(ctx, f, client, export.Request{
		Format:       format,
		UserID:       res.User.ID,
		UserName:     res.User.Name,
		From:         filter.From,
		To:           filter.To,
		Transactions: core.FilterTransactions(txs, filter),
	})
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	fmt.Fprintf(stdout, "Exported %d transactions to %s\n", rec.Rows, path)
	return nil
}

func runSummary(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := commonFlags(fs)
	symbol := fs.String("currency", config.Defaults().CurrencySymbol, "Currency symbol")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	client, res, err := c.login(ctx, stdin, stdout)
	if err != nil {
		return err
	}
	txs, err := client.Transactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	s := core.Summarize(txs)
	fmt.Fprintf(stdout, "Wallet of %s\n", res.User.Name)
	fmt.Fprintf(stdout, "  Income:       %s\n", s.Income.Format(*symbol))
	fmt.Fprintf(stdout, "  Expenses:     %s\n", s.Expenses.Format(*symbol))
	fmt.Fprintf(stdout, "  Balance:      %s\n", s.Balance().Format(*symbol))
	fmt.Fprintf(stdout, "  Transactions: %d\n", s.Count)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
