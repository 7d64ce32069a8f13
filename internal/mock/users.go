// Package mock holds shared test fixtures.
package mock

import (
	"github.com/gofrs/uuid"

	"github.com/akozyrev/taskman/internal/model"
	"github.com/akozyrev/taskman/util/passwordutil"
)

// AlicePassword is the plaintext matching Alice's stored hash.
const AlicePassword = "dfGt30jBY3"

// BobPassword is the plaintext matching Bob's stored hash.
const BobPassword = "gKlc89Cf1"

func createUUID() string {
	id, _ := uuid.NewV4()
	return id.String()
}

// Alice returns a fresh fixture user with a real bcrypt hash.
func Alice() *model.User {
	return NewUser("Alice", "Wang", "alice_wang", AlicePassword)
}

// Bob returns a second fixture user with a real bcrypt hash.
func Bob() *model.User {
	return NewUser("Bob", "Marks", "bob_marks", BobPassword)
}

// NewUser builds a user with a freshly generated id and password hash.
func NewUser(firstName, lastName, username, password string) *model.User {
	hash, err := passwordutil.GeneratePasswordHash(password)
	if err != nil {
		panic(err)
	}
	return &model.User{
		ID:           createUUID(),
		Username:     username,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
	}
}
