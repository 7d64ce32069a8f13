package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/akozyrev/taskman/internal/config"
	"github.com/akozyrev/taskman/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLDatabase is a store backed by a SQLite database file.
type SQLDatabase struct {
	DB *sqlx.DB
}

// InitializeSQLDB opens the SQLite database configured under
// database.file and applies any pending migrations.
func InitializeSQLDB() (*SQLDatabase, error) {
	return OpenSQLDB(config.Current.Database.File)
}

// OpenSQLDB opens a SQLite database at the given path and applies any
// pending migrations.
func OpenSQLDB(path string) (*SQLDatabase, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite database %s", path)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply migrations")
	}
	return &SQLDatabase{DB: db}, nil
}

func runMigrations(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close handles closing all connections to the database.
func (db *SQLDatabase) Close() error {
	return db.DB.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// CreateUser persists a new user. Uniqueness of the username is
// enforced by the UNIQUE constraint in the schema.
func (db *SQLDatabase) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := db.DB.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, first_name, last_name, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Username, user.PasswordHash, user.FirstName, user.LastName, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	return err
}

// GetUser returns the user with the given id.
func (db *SQLDatabase) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := db.DB.GetContext(ctx, &user,
		`SELECT id, username, password_hash, first_name, last_name, created_at
		 FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername returns the user with the given username.
func (db *SQLDatabase) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := db.DB.GetContext(ctx, &user,
		`SELECT id, username, password_hash, first_name, last_name, created_at
		 FROM users WHERE username = $1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers lists all users, oldest first.
func (db *SQLDatabase) ListUsers(ctx context.Context) ([]*model.User, error) {
	users := make([]*model.User, 0)
	err := db.DB.SelectContext(ctx, &users,
		`SELECT id, username, password_hash, first_name, last_name, created_at
		 FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser rewrites the mutable fields of the user record.
// created_at is deliberately left untouched.
func (db *SQLDatabase) UpdateUser(ctx context.Context, user *model.User) error {
	res, err := db.DB.ExecContext(ctx,
		`UPDATE users
		 SET username = $1, password_hash = $2, first_name = $3, last_name = $4
		 WHERE id = $5`,
		user.Username, user.PasswordHash, user.FirstName, user.LastName, user.ID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user record.
func (db *SQLDatabase) DeleteUser(ctx context.Context, id string) error {
	res, err := db.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PutSession upserts the session record.
func (db *SQLDatabase) PutSession(ctx context.Context, sess *model.Session) error {
	flashes, err := json.Marshal(sess.Flashes)
	if err != nil {
		return err
	}
	_, err = db.DB.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, flashes, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET user_id = excluded.user_id,
		     flashes = excluded.flashes,
		     expires_at = excluded.expires_at`,
		sess.ID, sess.UserID, string(flashes), sess.CreatedAt, sess.ExpiresAt,
	)
	return err
}

type sessionRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Flashes   string    `db:"flashes"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// GetSession returns the session with the given id. Expired sessions
// are dropped and reported as missing.
func (db *SQLDatabase) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var row sessionRow
	err := db.DB.GetContext(ctx, &row,
		`SELECT id, user_id, flashes, created_at, expires_at FROM sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess := &model.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}
	if sess.Expired(time.Now()) {
		_ = db.DeleteSession(ctx, id)
		return nil, ErrNotFound
	}
	if err := json.Unmarshal([]byte(row.Flashes), &sess.Flashes); err != nil {
		return nil, errors.Wrap(err, "decode session flashes")
	}
	return sess, nil
}

// DeleteSession removes the session record. Deleting a session that
// does not exist is not an error.
func (db *SQLDatabase) DeleteSession(ctx context.Context, id string) error {
	_, err := db.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}
