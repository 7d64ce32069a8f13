package database

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"

	"github.com/akozyrev/taskman/internal/config"
	"github.com/akozyrev/taskman/internal/model"
)

// BadgerDB holds a connection to a Badger backend.
type BadgerDB struct {
	InMemory bool
	DB       *badger.DB
}

const (
	prefixUser     = "user"
	prefixUsername = "username"
	prefixSession  = "session"
)

func makeUserKey(id string) []byte {
	return makeKey(prefixUser, id)
}

// makeUsernameKey builds the uniqueness-index key for a username.
// The value stored under it is the owning user's id.
func makeUsernameKey(username string) []byte {
	return makeKey(prefixUsername, username)
}

func makeSessionKey(id string) []byte {
	return makeKey(prefixSession, id)
}

func makeKey(prefix, id string) []byte {
	return []byte(prefix + "_" + id)
}

// InitializeBadgerDB creates a new database with a Badger backend.
// Pass `true` to create an in-memory database (useful in tests, for example).
func InitializeBadgerDB(inMemory bool) (*BadgerDB, error) {
	var path string
	if !inMemory {
		path = config.Current.Database.Dir
	}
	db, err := badger.Open(badger.DefaultOptions(path).WithInMemory(inMemory))
	if err != nil {
		return nil, errors.Wrap(err, "open badger")
	}
	return &BadgerDB{DB: db, InMemory: inMemory}, nil
}

// Close handles closing all connections to the database.
func (db *BadgerDB) Close() error {
	return db.DB.Close()
}

// CreateUser persists a new user. The username index key is written in
// the same transaction as the record, which is what enforces
// uniqueness: if the index key already exists the write is rejected.
func (db *BadgerDB) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	return db.DB.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(makeUsernameKey(user.Username))
		if err == nil {
			return ErrDuplicateUsername
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		b, err := json.Marshal(user)
		if err != nil {
			return err
		}
		if err := txn.Set(makeUserKey(user.ID), b); err != nil {
			return err
		}
		return txn.Set(makeUsernameKey(user.Username), []byte(user.ID))
	})
}

// GetUser returns the user with the given id.
func (db *BadgerDB) GetUser(ctx context.Context, id string) (user *model.User, err error) {
	err = db.DB.View(func(txn *badger.Txn) error {
		return getJSON(txn, makeUserKey(id), &user)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return
}

// GetUserByUsername resolves a username through the index key.
func (db *BadgerDB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var id string
	err := db.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeUsernameKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			id = string(v)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return db.GetUser(ctx, id)
}

// ListUsers lists all users in the database, oldest first.
func (db *BadgerDB) ListUsers(ctx context.Context) ([]*model.User, error) {
	users := make([]*model.User, 0)
	err := db.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixUser + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			var user model.User
			err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &user)
			})
			if err != nil {
				return err
			}
			users = append(users, &user)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Username < users[j].Username
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// UpdateUser rewrites the user record, moving the username index key
// if the username changed. CreatedAt is preserved from the stored
// record.
func (db *BadgerDB) UpdateUser(ctx context.Context, user *model.User) error {
	return db.DB.Update(func(txn *badger.Txn) error {
		var stored *model.User
		err := getJSON(txn, makeUserKey(user.ID), &stored)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		user.CreatedAt = stored.CreatedAt

		if stored.Username != user.Username {
			_, err := txn.Get(makeUsernameKey(user.Username))
			if err == nil {
				return ErrDuplicateUsername
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Delete(makeUsernameKey(stored.Username)); err != nil {
				return err
			}
			if err := txn.Set(makeUsernameKey(user.Username), []byte(user.ID)); err != nil {
				return err
			}
		}

		b, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(makeUserKey(user.ID), b)
	})
}

// DeleteUser removes the user record and its username index key.
func (db *BadgerDB) DeleteUser(ctx context.Context, id string) error {
	err := db.DB.Update(func(txn *badger.Txn) error {
		var stored *model.User
		if err := getJSON(txn, makeUserKey(id), &stored); err != nil {
			return err
		}
		if err := txn.Delete(makeUsernameKey(stored.Username)); err != nil {
			return err
		}
		return txn.Delete(makeUserKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// PutSession writes the session record with a TTL matching its expiry.
func (db *BadgerDB) PutSession(ctx context.Context, sess *model.Session) error {
	return db.DB.Update(func(txn *badger.Txn) error {
		b, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		entry := badger.NewEntry(makeSessionKey(sess.ID), b)
		if !sess.ExpiresAt.IsZero() {
			ttl := time.Until(sess.ExpiresAt)
			if ttl <= 0 {
				return txn.Delete(makeSessionKey(sess.ID))
			}
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// GetSession returns the session with the given id.
func (db *BadgerDB) GetSession(ctx context.Context, id string) (sess *model.Session, err error) {
	err = db.DB.View(func(txn *badger.Txn) error {
		return getJSON(txn, makeSessionKey(id), &sess)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return
}

// DeleteSession removes the session record. Deleting a session that
// does not exist is not an error.
func (db *BadgerDB) DeleteSession(ctx context.Context, id string) error {
	return db.DB.Update(func(txn *badger.Txn) error {
		return txn.Delete(makeSessionKey(id))
	})
}

func getJSON(txn *badger.Txn, key []byte, dst interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(v []byte) error {
		return json.Unmarshal(v, dst)
	})
}
