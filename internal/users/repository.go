package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/svrddd/tgbotNEW/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	Register(ctx context.Context, id int64, username, fullName string) error
	Get(ctx context.Context, id int64) (*domain.User, error)
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Register upserts the user row. Re-registering on every start command keeps
// the stored username and full name fresh.
func (r *Repository) Register(ctx context.Context, id int64, username, fullName string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, full_name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET username = $2, full_name = $3`,
		id, username, fullName)
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*domain.User, error) {
	var (
		user  domain.User
		phone sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, username, full_name, phone, registered_at FROM users WHERE user_id = $1`,
		id).Scan(&user.ID, &user.Username, &user.FullName, &phone, &user.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.Phone = phone.String

	return &user, nil
}
