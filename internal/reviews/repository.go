package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/svrddd/tgbotNEW/internal/domain"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	Add(ctx context.Context, userID int64, text string, rating int) (*domain.Review, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Review, error)
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Add(ctx context.Context, userID int64, text string, rating int) (*domain.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (user_id, text, rating) VALUES ($1, $2, $3)`,
		userID, text, rating)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read review id: %w", err)
	}

	var review domain.Review
	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, text, rating, created_at FROM reviews WHERE id = $1`,
		id).Scan(&review.ID, &review.UserID, &review.Text, &review.Rating, &review.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("query review: %w", err)
	}

	return &review, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, text, rating, created_at FROM reviews WHERE user_id = $1 ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var review domain.Review
		if err := rows.Scan(&review.ID, &review.UserID, &review.Text, &review.Rating, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return reviews, nil
}
