package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/utils"
)

// UserRepo persists users, including the personnel referenced by fuel
// dispensings and assignments.
type UserRepo struct {
	DB      *sql.DB
	dialect database.Dialect
}

func NewUserRepo(db *sql.DB, d database.Dialect) *UserRepo { return &UserRepo{DB: db, dialect: d} }

var ErrEmailExists = errors.New("email already exists")

// NewUser carries the fields required to create an account.
type NewUser struct {
	Email    string
	FullName string
	Phone    *string
	Password string
	Role     string
}

const userColumns = `id, email, full_name, phone, password_hash, role, is_active, created_at, updated_at`

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(u.Password, cost)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, full_name, phone, password_hash, role, is_active, created_at, updated_at) VALUES (?,?,?,?,?,1,?,?)",
		email, strings.TrimSpace(u.FullName), u.Phone, hash, u.Role, now, now)
	if err != nil {
		if database.IsDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	return u, translate(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, translate(err)
}

// List returns users ordered by name. An empty role lists everyone.
func (r *UserRepo) List(ctx context.Context, role string) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users"
	args := []any{}
	if role != "" {
		q += " WHERE role = ?"
		args = append(args, role)
	}
	q += " ORDER BY full_name, id"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// LockTx takes a row lock on the user for the rest of the transaction.
// Operations that must be exclusive per user (assignments, daily reports)
// lock here first. Returns ErrNotFound for unknown users.
func (r *UserRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	return lockRow(ctx, tx, r.dialect, "users", id)
}

// ExistsTx reports whether a user exists, reading inside tx.
func (r *UserRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id=?", id).Scan(&n)
	return n > 0, err
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var phone sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &phone, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	u.Phone = nullString(phone)
	return u, err
}
