package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestForAcceptLanguage(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   language.Tag
	}{
		{"empty header falls back to English", "", language.English},
		{"plain English", "en", language.English},
		{"regional English", "en-US,en;q=0.9", language.English},
		{"plain Russian", "ru", language.Russian},
		{"regional Russian", "ru-RU,ru;q=0.9,en;q=0.5", language.Russian},
		{"unsupported language falls back", "de-DE,de;q=0.9", language.English},
		{"garbage falls back", "not a header;;;", language.English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := ForAcceptLanguage(tt.header)
			assert.Equal(t, tt.want, tr.Tag())
		})
	}
}

func TestTranslations(t *testing.T) {
	en := ForAcceptLanguage("en")
	ru := ForAcceptLanguage("ru")

	assert.Equal(t, "User is successfully registered", en.T(KeyRegistered))
	assert.Equal(t, "Пользователь успешно зарегистрирован", ru.T(KeyRegistered))

	assert.Equal(t, "You have no rights to change another user.", en.T(KeyNoRights))
	assert.Equal(t, "У вас нет прав для изменения другого пользователя.", ru.T(KeyNoRights))

	assert.Equal(t, "The two password fields didn't match.", en.T(KeyPasswordMismatch))
	assert.Equal(t, "Введенные пароли не совпадают.", ru.T(KeyPasswordMismatch))
}

func TestUnknownKeyRendersVerbatim(t *testing.T) {
	tr := ForAcceptLanguage("ru")
	assert.Equal(t, "no.such.key", tr.T("no.such.key"))
}
