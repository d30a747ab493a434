package session

import "github.com/svrddd/tgbotNEW/internal/domain"

// State is where a user currently is in the conversation.
type State string

const (
	StateIdle                 State = "idle"
	StateChoosingCategory     State = "choosing_category"
	StateChoosingProduct      State = "choosing_product"
	StateViewingProductDetail State = "viewing_product_detail"
	StateViewingCart          State = "viewing_cart"
	StateChoosingPayment      State = "choosing_payment_method"
	StateChoosingPickupTime   State = "choosing_pickup_time"
	StateConfirmingOrder      State = "confirming_order"

	// feedback and contact side flows
	StateFeedbackText   State = "feedback_text"
	StateFeedbackRating State = "feedback_rating"
	StateContactMessage State = "contact_message"
)

func (s State) String() string {
	return string(s)
}

// Scratch holds in-progress selection data. Typed fields instead of a loose
// map so a misspelled key cannot silently lose a selection.
type Scratch struct {
	CategoryID   int64
	ProductID    int64
	ProductName  string
	ProductPrice float64
	Quantity     int

	PaymentMethod string
	PickupTime    string

	FeedbackText string
}

// Session is one user's conversation state plus their cart. It lives in
// memory for the process lifetime; a restart drops in-flight sessions, which
// is accepted.
type Session struct {
	UserID  int64
	State   State
	Cart    domain.Cart
	Scratch Scratch
}

// Reset returns the session to its initial shape: idle, empty cart, empty
// scratch.
func (s *Session) Reset() {
	s.State = StateIdle
	s.Cart.Clear()
	s.Scratch = Scratch{}
}

// ResetCheckout drops the pending payment/pickup selections but keeps the
// cart, for the cancel path out of order confirmation.
func (s *Session) ResetCheckout() {
	s.Scratch.PaymentMethod = ""
	s.Scratch.PickupTime = ""
}
