package http

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
)

// fieldErrors maps a form field to its message. The "form" key holds
// errors that belong to no single field.
type fieldErrors map[string]string

func (e fieldErrors) add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

const formField = "form"

const maxFormBytes = 64 << 10

// postValue returns the trimmed, control-character-free form value.
func postValue(r *http.Request, key string) string {
	return sanitizeInput(r.PostFormValue(key))
}

// parsePost bounds and parses the request body.
func parsePost(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.ParseForm()
}

// TransactionForm is the create and edit form of a transaction.
type TransactionForm struct {
	ID          int64
	Type        string
	Amount      string
	Category    string
	Description string
	Date        string
	Errors      fieldErrors
}

// newTransactionForm is the empty form: an expense dated today.
func newTransactionForm(today core.Date) TransactionForm {
	return TransactionForm{Type: string(core.Expense), Date: today.String()}
}

func transactionFormFrom(t core.Transaction) TransactionForm {
	return TransactionForm{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date.String(),
	}
}

func parseTransactionForm(r *http.Request) TransactionForm {
	return TransactionForm{
		Type:        strings.ToLower(postValue(r, "type")),
		Amount:      postValue(r, "amount"),
		Category:    postValue(r, "category"),
		Description: postValue(r, "description"),
		Date:        postValue(r, "date"),
	}
}

func (f *TransactionForm) validate() (core.Transaction, bool) {
	f.Errors = fieldErrors{}
	t := core.Transaction{ID: f.ID, Category: f.Category, Description: f.Description}

	typ, err := core.ParseTxType(f.Type)
	if err != nil {
		f.Errors.add("type", "Choose income or expense.")
	}
	t.Type = typ
	if t.Amount, err = core.ParseAmount(f.Amount); err != nil {
		f.Errors.add("amount", "Enter an amount greater than zero.")
	}
	if f.Category == "" {
		f.Errors.add("category", "Choose a category.")
	}
	if utf8.RuneCountInString(f.Description) > core.MaxDescriptionLen {
		f.Errors.add("description", "Keep the description to "+strconv.Itoa(core.MaxDescriptionLen)+" characters or fewer.")
	}
	if t.Date, err = core.ParseDate(f.Date); err != nil {
		f.Errors.add("date", "Enter a date as YYYY-MM-DD.")
	}
	return t, len(f.Errors) == 0
}

// BudgetForm is the create and edit form of a budget.
type BudgetForm struct {
	ID        int64
	Category  string
	Amount    string
	StartDate string
	EndDate   string
	Errors    fieldErrors
}

// newBudgetForm is the empty form, spanning the current month.
func newBudgetForm(today core.Date) BudgetForm {
	from, to := core.PeriodRange(core.ThisMonth, today.Time)
	return BudgetForm{StartDate: from.String(), EndDate: to.String()}
}

func budgetFormFrom(b core.Budget) BudgetForm {
	return BudgetForm{
		ID:        b.ID,
		Category:  b.Category,
		Amount:    b.Amount.String(),
		StartDate: b.StartDate.String(),
		EndDate:   b.EndDate.String(),
	}
}

func parseBudgetForm(r *http.Request) BudgetForm {
	return BudgetForm{
		Category:  postValue(r, "category"),
		Amount:    postValue(r, "amount"),
		StartDate: postValue(r, "start_date"),
		EndDate:   postValue(r, "end_date"),
	}
}

func (f *BudgetForm) validate() (core.Budget, bool) {
	f.Errors = fieldErrors{}
	b := core.Budget{ID: f.ID, Category: f.Category}
	var err error

	if f.Category == "" {
		f.Errors.add("category", "Choose a category.")
	}
	if b.Amount, err = core.ParseAmount(f.Amount); err != nil {
		f.Errors.add("amount", "Enter an amount greater than zero.")
	}
	if b.StartDate, err = core.ParseDate(f.StartDate); err != nil {
		f.Errors.add("start_date", "Enter a start date.")
	}
	if b.EndDate, err = core.ParseDate(f.EndDate); err != nil {
		f.Errors.add("end_date", "Enter an end date.")
	}
	if len(f.Errors) == 0 && b.EndDate.Before(b.StartDate.Time) {
		f.Errors.add("end_date", "The end date must not be before the start date.")
	}
	return b, len(f.Errors) == 0
}

// SavingsForm is the create and edit form of a savings goal.
type SavingsForm struct {
	ID       int64
	Name     string
	Target   string
	Current  string
	Deadline string
	Errors   fieldErrors
}

func newSavingsForm() SavingsForm {
	return SavingsForm{Current: "0"}
}

func savingsFormFrom(g core.SavingsGoal) SavingsForm {
	return SavingsForm{
		ID:       g.ID,
		Name:     g.Name,
		Target:   g.Target.String(),
		Current:  g.Current.String(),
		Deadline: g.Deadline.String(),
	}
}

func parseSavingsForm(r *http.Request) SavingsForm {
	return SavingsForm{
		Name:     postValue(r, "name"),
		Target:   postValue(r, "target"),
		Current:  postValue(r, "current"),
		Deadline: postValue(r, "deadline"),
	}
}

func (f *SavingsForm) validate() (core.SavingsGoal, bool) {
	f.Errors = fieldErrors{}
	g := core.SavingsGoal{ID: f.ID, Name: f.Name}
	var err error

	if f.Name == "" {
		f.Errors.add("name", "Give the goal a name.")
	}
	if g.Target, err = core.ParseAmount(f.Target); err != nil {
		f.Errors.add("target", "Enter a target greater than zero.")
	}
	if cur := strings.TrimSpace(f.Current); cur != "" {
		if g.Current, err = core.ParseNonNegativeAmount(cur); err != nil {
			f.Errors.add("current", "Enter the amount saved so far, or 0.")
		}
	}
	if g.Deadline, err = core.ParseDate(f.Deadline); err != nil {
		f.Errors.add("deadline", "Enter a deadline.")
	}
	return g, len(f.Errors) == 0
}

// DepositForm adds money to a savings goal.
type DepositForm struct {
	GoalID int64
	Amount string
	Errors fieldErrors
}

func (f *DepositForm) validate() (core.Money, bool) {
	f.Errors = fieldErrors{}
	m, err := core.ParseAmount(f.Amount)
	if err != nil {
		f.Errors.add("amount", "Enter an amount greater than zero.")
	}
	return m, len(f.Errors) == 0
}

// ProfileForm edits the signed-in user's profile.
type ProfileForm struct {
	Name     string
	Email    string
	Gender   string
	Currency string
	Language string
	Errors   fieldErrors
}

func profileFormFrom(u core.User) ProfileForm {
	return ProfileForm{Name: u.Name, Email: u.Email, Gender: u.Gender, Currency: u.Currency, Language: u.Language}
}

func parseProfileForm(r *http.Request) ProfileForm {
	return ProfileForm{
		Name:     postValue(r, "name"),
		Email:    postValue(r, "email"),
		Gender:   postValue(r, "gender"),
		Currency: postValue(r, "currency"),
		Language: postValue(r, "language"),
	}
}

func (f *ProfileForm) validate() (api.ProfileUpdate, bool) {
	f.Errors = fieldErrors{}
	if f.Name == "" {
		f.Errors.add("name", "Enter your name.")
	}
	if !strings.Contains(f.Email, "@") {
		f.Errors.add("email", "Enter a valid email address.")
	}
	return api.ProfileUpdate{
		Name:     f.Name,
		Email:    f.Email,
		Gender:   f.Gender,
		Currency: f.Currency,
		Language: f.Language,
	}, len(f.Errors) == 0
}

// LoginForm never carries the password back to the page.
type LoginForm struct {
	Email  string
	Errors fieldErrors
}

// SignupForm registers a new user.
type SignupForm struct {
	Name   string
	Email  string
	Errors fieldErrors
}

func parseSignupForm(r *http.Request) (SignupForm, core.Signup) {
	f := SignupForm{Name: postValue(r, "name"), Email: postValue(r, "email")}
	return f, core.Signup{Name: f.Name, Email: f.Email, Password: r.PostFormValue("password")}
}

func (f *SignupForm) validate(s core.Signup, confirm string) bool {
	f.Errors = fieldErrors{}
	if s.Name == "" {
		f.Errors.add("name", "Enter your name.")
	}
	if !strings.Contains(s.Email, "@") {
		f.Errors.add("email", "Enter a valid email address.")
	}
	if len(s.Password) < 6 {
		f.Errors.add("password", "Use at least 6 characters.")
	} else if s.Password != confirm {
		f.Errors.add("confirm", "The passwords do not match.")
	}
	return len(f.Errors) == 0
}

// PostForm creates or edits a forum post.
type PostForm struct {
	ID      int64
	Title   string
	Content string
	Errors  fieldErrors
}

func parsePostForm(r *http.Request) PostForm {
	return PostForm{Title: postValue(r, "title"), Content: postValue(r, "content")}
}

func (f *PostForm) validate() (core.ForumPost, bool) {
	f.Errors = fieldErrors{}
	if f.Title == "" {
		f.Errors.add("title", "Enter a title.")
	}
	if f.Content == "" {
		f.Errors.add("content", "Write something.")
	}
	return core.ForumPost{ID: f.ID, Title: f.Title, Content: f.Content}, len(f.Errors) == 0
}

// CommentForm adds a comment to a post.
type CommentForm struct {
	Content string
	Errors  fieldErrors
}

// UserForm is the administrator edit of a user.
type UserForm struct {
	ID     int64
	Name   string
	Email  string
	Role   string
	Errors fieldErrors
}

func userFormFrom(u core.User) UserForm {
	return UserForm{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

func parseUserForm(r *http.Request, id int64) UserForm {
	return UserForm{
		ID:    id,
		Name:  postValue(r, "name"),
		Email: postValue(r, "email"),
		Role:  string(core.ParseRole(postValue(r, "role"))),
	}
}

// sanitizeInput removes control characters other than tab and newlines
// and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// parseID reads a positive int64 URL parameter.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// queryInt reads a positive integer query value, or def.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}
