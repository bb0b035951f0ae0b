package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ganpare/densai/internal"
	"github.com/ganpare/densai/internal/auth"
	coreuser "github.com/ganpare/densai/internal/core/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var _ auth.UserRepository = (*Repository)(nil)

func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	var creds auth.Credentials
	query := `SELECT id, password_hash, is_active FROM users WHERE LOWER(email) = LOWER(?)`

	row := r.db.WithContext(ctx).Raw(query, email).Row()
	if err := row.Scan(&creds.UserID, &creds.PasswordHash, &creds.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &creds, nil
}

func (r *Repository) GetUserWithRoles(ctx context.Context, userID int64) (*coreuser.User, error) {
	var u coreuser.User
	db := r.db.WithContext(ctx)

	query := `SELECT id, email, name, is_active FROM users WHERE id = ?`
	row := db.Raw(query, userID).Row()
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	rows, err := db.Raw(`SELECT role FROM user_roles WHERE user_id = ?`, userID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []coreuser.Role
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if role, ok := coreuser.ParseRole(name); ok {
			roles = append(roles, role)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	u.Roles = coreuser.NormalizeRoles(roles)
	return &u, nil
}
