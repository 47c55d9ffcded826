package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"

	Income  TxType = "income"
	Expense TxType = "expense"

	// DefaultCategory collects transactions without a category.
	DefaultCategory = "Other"

	// MaxDescriptionLen is the longest transaction description, in characters.
	MaxDescriptionLen = 200
)

// DefaultCategories is the category list offered by the forms unless
// configuration overrides it.
var DefaultCategories = []string{"Food", "Travel", "Bill", "Home", "Car", "Family", "Personal", "Other"}

type (
	Role   string
	TxType string

	Date struct {
		time.Time
	}

	User struct {
		ID        int64
		Name      string
		Email     string
		Role      Role
		Gender    string
		Currency  string
		Language  string
		CreatedAt time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Type        TxType
		Amount      Money
		Category    string
		Description string
		Date        Date
	}

	Budget struct {
		ID        int64
		UserID    int64
		Category  string
		Amount    Money
		StartDate Date
		EndDate   Date
	}

	SavingsGoal struct {
		ID       int64
		UserID   int64
		Name     string
		Target   Money
		Current  Money
		Deadline Date
	}

	ForumPost struct {
		ID         int64
		AuthorID   int64
		AuthorName string
		Title      string
		Content    string
		Created    time.Time
	}

	Comment struct {
		ID         int64
		PostID     int64
		AuthorID   int64
		AuthorName string
		Content    string
		Created    time.Time
	}

	Signup struct {
		Name     string
		Email    string
		Password string
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidType        = errors.New("type must be income or expense")
	ErrEmptyCategory      = errors.New("empty category")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrDateRange          = errors.New("end date must not be before start date")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyTitle         = errors.New("empty title")
	ErrEmptyContent       = errors.New("empty content")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

// ParseRole maps any casing of "admin" to RoleAdmin; everything else is a user.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

// Home is the landing route after login for the role.
func (r Role) Home() string {
	if r.IsAdmin() {
		return "/admin"
	}
	return "/dashboard"
}

// ParseTxType normalizes "INCOME", "Expense" and friends.
func ParseTxType(s string) (TxType, error) {
	switch TxType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", ErrInvalidType
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts YYYY-MM-DD and anything starting with it (RFC 3339 timestamps).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Between reports whether from <= d <= to, ignoring zero bounds.
func (d Date) Between(from, to Date) bool {
	if !from.IsZero() && d.Before(from.Time) {
		return false
	}
	if !to.IsZero() && d.After(to.Time) {
		return false
	}
	return true
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON and UnmarshalJSON shadow the methods promoted from
// time.Time so dates travel as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	return d.UnmarshalText([]byte(s))
}

// CategoryOrDefault returns the trimmed category, or DefaultCategory when blank.
func CategoryOrDefault(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return DefaultCategory
	}
	return c
}

func (t Transaction) IsIncome() bool  { return t.Type == Income }
func (t Transaction) IsExpense() bool { return t.Type == Expense }

func (t Transaction) Validate() error {
	if _, err := ParseTxType(string(t.Type)); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return t.Date.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := b.StartDate.Validate(); err != nil {
		return err
	}
	if err := b.EndDate.Validate(); err != nil {
		return err
	}
	if b.EndDate.Before(b.StartDate.Time) {
		return ErrDateRange
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Current.Cents < 0 {
		return ErrInvalidAmount
	}
	return g.Deadline.Validate()
}

func (p ForumPost) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(p.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

func (c Comment) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

func (s Signup) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if !strings.Contains(s.Email, "@") {
		return ErrInvalidEmail
	}
	if len(s.Password) < 6 {
		return ErrWeakPassword
	}
	return nil
}
