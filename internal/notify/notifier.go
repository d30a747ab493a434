package notify

import (
	"context"

	"go.uber.org/zap"
)

// OrderSummary is what admins see about a freshly placed order.
type OrderSummary struct {
	OrderID       int64              `json:"order_id"`
	UserID        int64              `json:"user_id"`
	TotalPrice    float64            `json:"total_price"`
	PaymentMethod string             `json:"payment_method"`
	PickupTime    string             `json:"pickup_time"`
	Lines         []OrderLineSummary `json:"lines"`
}

type OrderLineSummary struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type ReviewSummary struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

type ContactSummary struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// Notifier delivers summaries to the configured admin recipients. Delivery is
// best-effort: implementations log failures and never return them to the
// ordering user's path.
type Notifier interface {
	OrderPlaced(ctx context.Context, summary OrderSummary)
	ReviewReceived(ctx context.Context, summary ReviewSummary)
	ContactMessage(ctx context.Context, summary ContactSummary)
}

// LogNotifier is the kafka-less fallback: summaries only reach the log.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderPlaced(_ context.Context, summary OrderSummary) {
	n.logger.Info("order placed",
		zap.Int64("order_id", summary.OrderID),
		zap.Int64("user_id", summary.UserID),
		zap.Float64("total_price", summary.TotalPrice))
}

func (n *LogNotifier) ReviewReceived(_ context.Context, summary ReviewSummary) {
	n.logger.Info("review received",
		zap.Int64("user_id", summary.UserID),
		zap.Int("rating", summary.Rating))
}

func (n *LogNotifier) ContactMessage(_ context.Context, summary ContactSummary) {
	n.logger.Info("contact message received", zap.Int64("user_id", summary.UserID))
}
