package engine

// EventKind names every discrete input the workflow understands.
type EventKind string

const (
	EventStart EventKind = "start"
	EventReset EventKind = "reset"

	EventOpenMenu         EventKind = "open_menu"
	EventSelectCategory   EventKind = "select_category"
	EventSelectProduct    EventKind = "select_product"
	EventIncreaseQuantity EventKind = "increase_quantity"
	EventDecreaseQuantity EventKind = "decrease_quantity"
	EventAddToCart        EventKind = "add_to_cart"
	EventRemoveFromCart   EventKind = "remove_from_cart"

	EventOpenCart         EventKind = "open_cart"
	EventClearCart        EventKind = "clear_cart"
	EventCheckout         EventKind = "checkout"
	EventSelectPayment    EventKind = "select_payment"
	EventSelectPickupTime EventKind = "select_pickup_time"
	EventConfirm          EventKind = "confirm"
	EventCancel           EventKind = "cancel"

	EventBackToCategories EventKind = "back_to_categories"
	EventBackToProducts   EventKind = "back_to_products"
	EventBackToCart       EventKind = "back_to_cart"
	EventBackToPayment    EventKind = "back_to_payment"

	EventMyOrders     EventKind = "my_orders"
	EventOpenFeedback EventKind = "open_feedback"
	EventOpenContact  EventKind = "open_contact"
	EventSelectRating EventKind = "select_rating"
	EventText         EventKind = "text"
)

// Event is one inbound input for one user. Only the fields relevant to the
// kind are set.
type Event struct {
	UserID int64
	Kind   EventKind

	CategoryID int64
	ProductID  int64
	Payment    string
	PickupTime string
	Rating     int
	Text       string

	// profile data carried by start events
	Username string
	FullName string
}
