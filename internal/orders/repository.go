package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/svrddd/tgbotNEW/internal/domain"
)

var (
	ErrEmptyCart     = errors.New("cart is empty, nothing to commit")
	ErrOrderNotFound = errors.New("order not found")
)

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	Commit(ctx context.Context, userID int64, lines []domain.CartItem, paymentMethod, pickupTime string) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Commit turns a confirmed cart into an order plus its line records in one
// transaction: either everything is written or nothing is. The total is
// recomputed here from the lines, a caller-supplied total is never trusted.
func (r *Repository) Commit(ctx context.Context, userID int64, lines []domain.CartItem, paymentMethod, pickupTime string) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	var total float64
	for _, line := range lines {
		total += line.Price * float64(line.Quantity)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin commit transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, status, total_price, payment_method, pickup_time)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, domain.OrderStatusNew, total, paymentMethod, pickupTime)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	orderID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read order id: %w", err)
	}

	orderLines := make([]domain.OrderLine, 0, len(lines))
	for _, line := range lines {
		lineRes, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price)
			 VALUES ($1, $2, $3, $4)`,
			orderID, line.ProductID, line.Quantity, line.Price)
		if err != nil {
			return nil, fmt.Errorf("insert order line: %w", err)
		}
		lineID, err := lineRes.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("read order line id: %w", err)
		}
		orderLines = append(orderLines, domain.OrderLine{
			ID:        lineID,
			OrderID:   orderID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order transaction: %w", err)
	}

	return r.GetOrder(ctx, orderID)
}

func (r *Repository) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	query := `
		SELECT id, user_id, status, total_price, created_at, payment_method, pickup_time
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TotalPrice,
		&order.CreatedAt,
		&order.PaymentMethod,
		&order.PickupTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	lines, err := r.orderLines(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return &order, nil
}

func (r *Repository) ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	query := `
		SELECT id, user_id, status, total_price, created_at, payment_method, pickup_time
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Status,
			&order.TotalPrice,
			&order.CreatedAt,
			&order.PaymentMethod,
			&order.PickupTime,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, &order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, order := range orders {
		lines, err := r.orderLines(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
	}

	return orders, nil
}

func (r *Repository) orderLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	query := `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return lines, nil
}
