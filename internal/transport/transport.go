package transport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/svrddd/tgbotNEW/internal/engine"
)

var ErrUnknownInput = errors.New("unknown input")

// InboundEvent is the wire shape delivered by the chat gateway. Kind selects
// the interpretation of Payload: for "callback" it carries the raw button
// data, for "text" the typed message.
type InboundEvent struct {
	UserID   int64  `json:"user_id"`
	Kind     string `json:"kind"`
	Payload  string `json:"payload,omitempty"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// ParseInbound translates a gateway event into a workflow event.
func ParseInbound(in InboundEvent) (engine.Event, error) {
	base := engine.Event{
		UserID:   in.UserID,
		Username: in.Username,
		FullName: in.FullName,
	}

	switch in.Kind {
	case "start":
		base.Kind = engine.EventStart
		return base, nil
	case "menu":
		base.Kind = engine.EventOpenMenu
		return base, nil
	case "cart":
		base.Kind = engine.EventOpenCart
		return base, nil
	case "my_orders":
		base.Kind = engine.EventMyOrders
		return base, nil
	case "feedback":
		base.Kind = engine.EventOpenFeedback
		return base, nil
	case "contact":
		base.Kind = engine.EventOpenContact
		return base, nil
	case "text":
		base.Kind = engine.EventText
		base.Text = in.Payload
		return base, nil
	case "callback":
		return ParseCallback(in.UserID, in.Payload)
	}

	return engine.Event{}, fmt.Errorf("%w: kind %q", ErrUnknownInput, in.Kind)
}

// ParseCallback decodes the button data attached to inline keyboards. The
// grammar follows the keyboards the engine renders, so every Button.Data the
// engine emits round-trips through here.
func ParseCallback(userID int64, data string) (engine.Event, error) {
	evt := engine.Event{UserID: userID}

	if prefix, value, ok := strings.Cut(data, ":"); ok {
		switch prefix {
		case "category":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return engine.Event{}, fmt.Errorf("%w: callback %q", ErrUnknownInput, data)
			}
			evt.Kind = engine.EventSelectCategory
			evt.CategoryID = id
			return evt, nil
		case "product":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return engine.Event{}, fmt.Errorf("%w: callback %q", ErrUnknownInput, data)
			}
			evt.Kind = engine.EventSelectProduct
			evt.ProductID = id
			return evt, nil
		case "payment":
			evt.Kind = engine.EventSelectPayment
			evt.Payment = value
			return evt, nil
		case "time":
			evt.Kind = engine.EventSelectPickupTime
			evt.PickupTime = value
			return evt, nil
		case "rating":
			rating, err := strconv.Atoi(value)
			if err != nil {
				return engine.Event{}, fmt.Errorf("%w: callback %q", ErrUnknownInput, data)
			}
			evt.Kind = engine.EventSelectRating
			evt.Rating = rating
			return evt, nil
		}
	}

	switch data {
	case "menu":
		evt.Kind = engine.EventOpenMenu
	case "cart":
		evt.Kind = engine.EventOpenCart
	case "my_orders":
		evt.Kind = engine.EventMyOrders
	case "feedback":
		evt.Kind = engine.EventOpenFeedback
	case "contact":
		evt.Kind = engine.EventOpenContact
	case "increase":
		evt.Kind = engine.EventIncreaseQuantity
	case "decrease":
		evt.Kind = engine.EventDecreaseQuantity
	case "quantity":
		// display-only counter button
		return engine.Event{}, fmt.Errorf("%w: callback %q", ErrUnknownInput, data)
	case "add_to_cart":
		evt.Kind = engine.EventAddToCart
	case "remove_from_cart":
		evt.Kind = engine.EventRemoveFromCart
	case "clear_cart":
		evt.Kind = engine.EventClearCart
	case "checkout":
		evt.Kind = engine.EventCheckout
	case "confirm_order":
		evt.Kind = engine.EventConfirm
	case "cancel_order":
		evt.Kind = engine.EventCancel
	case "back_to_categories":
		evt.Kind = engine.EventBackToCategories
	case "back_to_products":
		evt.Kind = engine.EventBackToProducts
	case "back_to_cart":
		evt.Kind = engine.EventBackToCart
	case "back_to_payment":
		evt.Kind = engine.EventBackToPayment
	case "back_to_main":
		evt.Kind = engine.EventReset
	case "back_to_menu":
		evt.Kind = engine.EventOpenMenu
	default:
		return engine.Event{}, fmt.Errorf("%w: callback %q", ErrUnknownInput, data)
	}

	return evt, nil
}
