package users_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akozyrev/taskman/internal/mock"
	"github.com/akozyrev/taskman/internal/model"
	"github.com/akozyrev/taskman/internal/testutil"
)

func seedAlice(t *testing.T, s *testutil.Server) *model.User {
	t.Helper()
	alice := mock.Alice()
	require.NoError(t, s.Store.CreateUser(context.Background(), alice))
	return alice
}

func registrationForm(username, password1, password2 string) url.Values {
	return url.Values{
		"first_name": {"Bob"},
		"last_name":  {"Marks"},
		"username":   {username},
		"password1":  {password1},
		"password2":  {password2},
	}
}

func TestUserCreation(t *testing.T) {
	s := testutil.NewServer(t)
	alice := seedAlice(t, s)

	got, err := s.Store.GetUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.FirstName)
	assert.Equal(t, "Alice Wang", got.FullName())
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), got.CreatedAt.Format("2006-01-02"))
}

func TestUserRegistrationSuccess(t *testing.T) {
	s := testutil.NewServer(t)
	seedAlice(t, s)

	resp, _ := s.PostForm(t, "/users/create", registrationForm("bob_marks", "gKlc89Cf1", "gKlc89Cf1"), "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users", resp.Header.Get("Location"))

	users, err := s.Store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)

	// Exactly one notification, consumed by the next rendered page.
	status, body := s.Get(t, "/users", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "User is successfully registered")
	assert.Equal(t, 1, strings.Count(body, `class="flash`))

	_, body = s.Get(t, "/users", "")
	assert.NotContains(t, body, "User is successfully registered")
}

func TestUserRegistrationSuccessRussian(t *testing.T) {
	s := testutil.NewServer(t)

	resp, _ := s.PostForm(t, "/users/create", registrationForm("bob_marks", "gKlc89Cf1", "gKlc89Cf1"), "ru-RU,ru;q=0.9")
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	_, body := s.Get(t, "/users", "ru")
	assert.Contains(t, body, "Пользователь успешно зарегистрирован")
}

func TestUserRegistrationFailUsernameAlreadyExist(t *testing.T) {
	s := testutil.NewServer(t)
	seedAlice(t, s)

	resp, body := s.PostForm(t, "/users/create", registrationForm("alice_wang", "dfGt30jBY3", "dfGt30jBY3"), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "failure re-renders the form")
	assert.Contains(t, body, "A user with that username already exists.")

	users, err := s.Store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)

	// No notification was enqueued.
	_, listBody := s.Get(t, "/users", "")
	assert.NotContains(t, listBody, "successfully")
}

func TestUserRegistrationFailPasswordsNotMatch(t *testing.T) {
	s := testutil.NewServer(t)
	seedAlice(t, s)

	resp, body := s.PostForm(t, "/users/create", registrationForm("bob_marks", "DFdfGt30jBY3", "dfGt30jBY395"), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "The two password fields didn&#39;t match.")

	users, err := s.Store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, listBody := s.Get(t, "/users", "")
	assert.NotContains(t, listBody, "successfully")
}

func TestUserRegistrationFailPasswordsNotMatchRussian(t *testing.T) {
	s := testutil.NewServer(t)

	_, body := s.PostForm(t, "/users/create", registrationForm("bob_marks", "DFdfGt30jBY3", "dfGt30jBY395"), "ru-RU,ru;q=0.9")
	assert.Contains(t, body, "Введенные пароли не совпадают.")
}

func TestUserUpdateSuccess(t *testing.T) {
	s := testutil.NewServer(t)
	alice := seedAlice(t, s)

	s.Login(t, "alice_wang", mock.AlicePassword)

	form := url.Values{
		"first_name": {"Alice"},
		"last_name":  {"Wang"},
		"username":   {"alice_wang_update"},
		"password1":  {mock.AlicePassword},
		"password2":  {mock.AlicePassword},
	}
	resp, _ := s.PostForm(t, fmt.Sprintf("/users/%s/update", alice.ID), form, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users", resp.Header.Get("Location"))

	_, body := s.Get(t, "/users", "")
	assert.Contains(t, body, "User is successfully updated")
	assert.Contains(t, body, "alice_wang_update")

	got, err := s.Store.GetUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice_wang_update", got.Username)
}

func TestUserUpdateNoPermission(t *testing.T) {
	s := testutil.NewServer(t)
	alice := seedAlice(t, s)

	// Anonymous caller.
	form := url.Values{
		"first_name": {"Alice"},
		"last_name":  {"Wang"},
		"username":   {"alice_wang_update"},
		"password1":  {mock.AlicePassword},
		"password2":  {mock.AlicePassword},
	}
	resp, _ := s.PostForm(t, fmt.Sprintf("/users/%s/update", alice.ID), form, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users", resp.Header.Get("Location"))

	_, body := s.Get(t, "/users", "")
	assert.Contains(t, body, "You have no rights to change another user.")
	assert.Equal(t, 1, strings.Count(body, `class="flash`))

	got, err := s.Store.GetUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice_wang", got.Username, "no fields may be modified")
}

func TestUserUpdateAnotherUser(t *testing.T) {
	s := testutil.NewServer(t)
	seedAlice(t, s)
	bob := mock.Bob()
	require.NoError(t, s.Store.CreateUser(context.Background(), bob))

	s.Login(t, "alice_wang", mock.AlicePassword)

	form := url.Values{
		"first_name": {"Bob"},
		"last_name":  {"Marks"},
		"username":   {"bob_hijacked"},
		"password1":  {"x"},
		"password2":  {"x"},
	}
	resp, _ := s.PostForm(t, fmt.Sprintf("/users/%s/update", bob.ID), form, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	_, body := s.Get(t, "/users", "")
	assert.Contains(t, body, "You have no rights to change another user.")

	got, err := s.Store.GetUser(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob_marks", got.Username)
}

func TestUserUpdateInvalidForm(t *testing.T) {
	s := testutil.NewServer(t)
	alice := seedAlice(t, s)

	s.Login(t, "alice_wang", mock.AlicePassword)

	form := url.Values{
		"first_name": {"Alice"},
		"last_name":  {"Wang"},
		"username":   {"alice_wang"},
		"password1":  {"one"},
		"password2":  {"two"},
	}
	resp, body := s.PostForm(t, fmt.Sprintf("/users/%s/update", alice.ID), form, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "The two password fields didn&#39;t match.")

	_, listBody := s.Get(t, "/users", "")
	assert.NotContains(t, listBody, "successfully")
}

func TestUserUpdateViewByGet(t *testing.T) {
	s := testutil.NewServer(t)
	alice := seedAlice(t, s)

	resp, _ := s.PostForm(t, "/login", url.Values{
		"username": {"alice_wang"},
		"password": {mock.AlicePassword},
	}, "")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	status, _ := s.Get(t, fmt.Sprintf("/users/%s/update", alice.ID), "")
	assert.Equal(t, http.StatusFound, status)
}

func TestUserDeleteSuccess(t *testing.T) {
	s := testutil.NewServer(t)
	alice := seedAlice(t, s)

	s.Login(t, "alice_wang", mock.AlicePassword)

	resp, _ := s.PostForm(t, fmt.Sprintf("/users/%s/delete", alice.ID), url.Values{}, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users", resp.Header.Get("Location"))

	_, body := s.Get(t, "/users", "")
	assert.Contains(t, body, "User successfully deleted")

	users, err := s.Store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserDeleteNoPermission(t *testing.T) {
	s := testutil.NewServer(t)
	alice := seedAlice(t, s)

	resp, _ := s.PostForm(t, fmt.Sprintf("/users/%s/delete", alice.ID), url.Values{}, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	_, body := s.Get(t, "/users", "")
	assert.Contains(t, body, "You have no rights to change another user.")

	users, err := s.Store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1, "zero persistence side effects")
}

func TestUserDeleteViewByGet(t *testing.T) {
	s := testutil.NewServer(t)
	alice := seedAlice(t, s)

	status, _ := s.Get(t, fmt.Sprintf("/users/%s/delete", alice.ID), "")
	assert.Equal(t, http.StatusFound, status)
}

func TestUsersListView(t *testing.T) {
	s := testutil.NewServer(t)
	alice := seedAlice(t, s)

	status, body := s.Get(t, "/users", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Alice Wang")
	assert.Contains(t, body, "alice_wang")
	assert.Contains(t, body, alice.ID)
}

func TestUserCreateView(t *testing.T) {
	s := testutil.NewServer(t)

	status, body := s.Get(t, "/users/create", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `action="/users/create"`)
	assert.Contains(t, body, `name="password2"`)
}

// The full scenario from the original acceptance checklist: an
// unauthenticated update is rejected with a "no rights" notification
// and no mutation, then the same update succeeds after login.
func TestUpdateScenario(t *testing.T) {
	s := testutil.NewServer(t)
	alice := seedAlice(t, s)

	form := url.Values{
		"first_name": {"Alice"},
		"last_name":  {"Wang"},
		"username":   {"alice_wang_update"},
		"password1":  {mock.AlicePassword},
		"password2":  {mock.AlicePassword},
	}

	resp, _ := s.PostForm(t, fmt.Sprintf("/users/%s/update", alice.ID), form, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	_, body := s.Get(t, "/users", "")
	assert.Contains(t, body, "You have no rights to change another user.")

	got, err := s.Store.GetUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice_wang", got.Username)

	s.Login(t, "alice_wang", mock.AlicePassword)

	resp, _ = s.PostForm(t, fmt.Sprintf("/users/%s/update", alice.ID), form, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	_, body = s.Get(t, "/users", "")
	assert.Contains(t, body, "User is successfully updated")

	got, err = s.Store.GetUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice_wang_update", got.Username)
}
