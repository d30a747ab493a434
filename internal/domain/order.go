package domain

import "time"

// OrderStatusNew is the only status an order ever gets at creation time.
// There is no status workflow beyond that.
const OrderStatusNew = "new"

type OrderLine struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"order_id"`
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order is the immutable record written when a cart is confirmed. Lines and
// TotalPrice are a frozen copy of the cart at commit time.
type Order struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	Status        string      `json:"status"`
	TotalPrice    float64     `json:"total_price"`
	PaymentMethod string      `json:"payment_method"`
	PickupTime    string      `json:"pickup_time"`
	CreatedAt     time.Time   `json:"created_at"`
	Lines         []OrderLine `json:"lines"`
}
