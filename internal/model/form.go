package model

import (
	"net/http"

	"github.com/akozyrev/taskman/internal/locale"
)

// Validation is the outcome of checking a submitted form. An empty
// FieldErrors map means the form is valid.
type Validation struct {
	FieldErrors map[string]string
}

// NewValidation returns an empty (valid) result.
func NewValidation() Validation {
	return Validation{FieldErrors: make(map[string]string)}
}

// Add records a field-level error. The first error per field wins,
// matching how the original form renders a single message per field.
func (v *Validation) Add(field, message string) {
	if _, ok := v.FieldErrors[field]; !ok {
		v.FieldErrors[field] = message
	}
}

// Valid reports whether no field errors were recorded.
func (v Validation) Valid() bool {
	return len(v.FieldErrors) == 0
}

// UserForm carries the fields submitted on registration and update.
type UserForm struct {
	FirstName string
	LastName  string
	Username  string
	Password1 string
	Password2 string
}

// UserFormFromRequest reads the registration/update fields from a
// parsed form body.
func UserFormFromRequest(r *http.Request) UserForm {
	return UserForm{
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Username:  r.FormValue("username"),
		Password1: r.FormValue("password1"),
		Password2: r.FormValue("password2"),
	}
}

// Validate checks the form's intrinsic rules: every field present and
// both password fields equal. Username uniqueness is a store concern
// and is reported by the caller via Add.
func (f UserForm) Validate(tr locale.Translator) Validation {
	v := NewValidation()
	required := []struct{ field, value string }{
		{"first_name", f.FirstName},
		{"last_name", f.LastName},
		{"username", f.Username},
		{"password1", f.Password1},
		{"password2", f.Password2},
	}
	for _, r := range required {
		if r.value == "" {
			v.Add(r.field, tr.T(locale.KeyFieldRequired))
		}
	}
	if f.Password1 != "" && f.Password2 != "" && f.Password1 != f.Password2 {
		v.Add("password2", tr.T(locale.KeyPasswordMismatch))
	}
	return v
}

// LoginForm carries the fields submitted on login.
type LoginForm struct {
	Username string
	Password string
}

// LoginFormFromRequest reads the login fields from a parsed form body.
func LoginFormFromRequest(r *http.Request) LoginForm {
	return LoginForm{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
}

// Validate checks that both credentials were submitted.
func (f LoginForm) Validate(tr locale.Translator) Validation {
	v := NewValidation()
	if f.Username == "" {
		v.Add("username", tr.T(locale.KeyFieldRequired))
	}
	if f.Password == "" {
		v.Add("password", tr.T(locale.KeyFieldRequired))
	}
	return v
}
