// Package locale renders user-facing messages in the language
// negotiated from the request's Accept-Language header. English and
// Russian are supported; English is the fallback.
package locale

import (
	"net/http"

	"golang.org/x/text/language"
)

// Message keys.
const (
	KeyRegistered       = "user.registered"
	KeyUpdated          = "user.updated"
	KeyDeleted          = "user.deleted"
	KeyNoRights         = "user.no_rights"
	KeyLoggedIn         = "auth.logged_in"
	KeyBadCredentials   = "auth.bad_credentials"
	KeyFieldRequired    = "form.field_required"
	KeyPasswordMismatch = "form.password_mismatch"
	KeyUsernameTaken    = "form.username_taken"
)

var supported = []language.Tag{
	language.English, // fallback
	language.Russian,
}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[string]string{
	language.English: {
		KeyRegistered:       "User is successfully registered",
		KeyUpdated:          "User is successfully updated",
		KeyDeleted:          "User successfully deleted",
		KeyNoRights:         "You have no rights to change another user.",
		KeyLoggedIn:         "You are logged in",
		KeyBadCredentials:   "Please enter a correct username and password.",
		KeyFieldRequired:    "This field is required.",
		KeyPasswordMismatch: "The two password fields didn't match.",
		KeyUsernameTaken:    "A user with that username already exists.",
	},
	language.Russian: {
		KeyRegistered:       "Пользователь успешно зарегистрирован",
		KeyUpdated:          "Пользователь успешно изменён",
		KeyDeleted:          "Пользователь успешно удалён",
		KeyNoRights:         "У вас нет прав для изменения другого пользователя.",
		KeyLoggedIn:         "Вы залогинены",
		KeyBadCredentials:   "Пожалуйста, введите правильные имя пользователя и пароль.",
		KeyFieldRequired:    "Обязательное поле.",
		KeyPasswordMismatch: "Введенные пароли не совпадают.",
		KeyUsernameTaken:    "Пользователь с таким именем уже существует.",
	},
}

// Translator renders message keys for one negotiated language.
type Translator struct {
	tag language.Tag
}

// ForRequest negotiates a Translator from the request's
// Accept-Language header.
func ForRequest(r *http.Request) Translator {
	return ForAcceptLanguage(r.Header.Get("Accept-Language"))
}

// ForAcceptLanguage negotiates a Translator from an Accept-Language
// header value. An empty or unparsable value falls back to English.
func ForAcceptLanguage(header string) Translator {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return Translator{tag: language.English}
	}
	_, index, _ := matcher.Match(tags...)
	return Translator{tag: supported[index]}
}

// Tag returns the negotiated language.
func (t Translator) Tag() language.Tag {
	return t.tag
}

// T renders a message key. Unknown keys are returned verbatim so a
// missing translation shows up in the page rather than as an empty
// string.
func (t Translator) T(key string) string {
	if msg, ok := messages[t.tag][key]; ok {
		return msg
	}
	if msg, ok := messages[language.English][key]; ok {
		return msg
	}
	return key
}
