package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/svrddd/tgbotNEW/internal/domain"
	"github.com/svrddd/tgbotNEW/internal/notify"
	"github.com/svrddd/tgbotNEW/internal/session"
)

func (e *Engine) handleSelectCategory(ctx context.Context, sess *session.Session, evt Event) (*Reply, error) {
	if sess.State != session.StateChoosingCategory {
		return nil, rejected(evt, sess)
	}

	products, err := e.catalog.Products(ctx, evt.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	categoryName := "Категория"
	if categories, err := e.catalog.Categories(ctx); err == nil {
		for _, c := range categories {
			if c.ID == evt.CategoryID {
				categoryName = c.Name
				break
			}
		}
	}

	sess.Scratch.CategoryID = evt.CategoryID
	sess.State = session.StateChoosingProduct

	return &Reply{
		Text:     fmt.Sprintf("%s\n\nВыберите продукт:", categoryName),
		Keyboard: productsKeyboard(products),
	}, nil
}

func (e *Engine) handleSelectProduct(ctx context.Context, sess *session.Session, evt Event) (*Reply, error) {
	if sess.State != session.StateChoosingProduct {
		return nil, rejected(evt, sess)
	}

	product, err := e.catalog.Product(ctx, evt.ProductID)
	if err != nil {
		// includes catalog.ErrProductNotFound for stale references;
		// the session stays where it was
		return nil, fmt.Errorf("load product: %w", err)
	}

	// snapshot name and price now: later catalog edits must not touch a
	// cart in progress
	sess.Scratch.ProductID = product.ID
	sess.Scratch.ProductName = product.Name
	sess.Scratch.ProductPrice = product.Price
	sess.Scratch.Quantity = 1
	sess.State = session.StateViewingProductDetail

	return &Reply{
		Text:     fmt.Sprintf("%s\n\n%s\n\nЦена: %.0f ₽", product.Name, product.Description, product.Price),
		Keyboard: productKeyboard(1, sess.Cart.Contains(product.ID)),
	}, nil
}

func (e *Engine) handleAdjustQuantity(sess *session.Session, delta int) (*Reply, error) {
	if sess.State != session.StateViewingProductDetail {
		return nil, rejected(Event{Kind: EventIncreaseQuantity}, sess)
	}

	quantity := sess.Scratch.Quantity + delta
	if quantity < 1 {
		quantity = 1
	}
	sess.Scratch.Quantity = quantity

	return &Reply{
		Text:     fmt.Sprintf("Количество: %d", quantity),
		Keyboard: productKeyboard(quantity, sess.Cart.Contains(sess.Scratch.ProductID)),
	}, nil
}

func (e *Engine) handleAddToCart(sess *session.Session) (*Reply, error) {
	if sess.State != session.StateViewingProductDetail {
		return nil, rejected(Event{Kind: EventAddToCart}, sess)
	}

	sess.Cart.Upsert(domain.CartItem{
		ProductID: sess.Scratch.ProductID,
		Name:      sess.Scratch.ProductName,
		Price:     sess.Scratch.ProductPrice,
		Quantity:  sess.Scratch.Quantity,
	})

	return &Reply{
		Text:     fmt.Sprintf("%s добавлен в корзину!", sess.Scratch.ProductName),
		Keyboard: productKeyboard(sess.Scratch.Quantity, true),
	}, nil
}

func (e *Engine) handleRemoveFromCart(sess *session.Session) (*Reply, error) {
	if sess.State != session.StateViewingProductDetail {
		return nil, rejected(Event{Kind: EventRemoveFromCart}, sess)
	}

	sess.Cart.Remove(sess.Scratch.ProductID)

	return &Reply{
		Text:     "Товар удален из корзины",
		Keyboard: productKeyboard(sess.Scratch.Quantity, false),
	}, nil
}

func (e *Engine) handleClearCart(sess *session.Session) (*Reply, error) {
	if sess.State != session.StateViewingCart {
		return nil, rejected(Event{Kind: EventClearCart}, sess)
	}

	sess.Cart.Clear()
	return &Reply{Text: "Корзина очищена. Выберите товары из меню.", Keyboard: cartKeyboard()}, nil
}

func (e *Engine) handleCheckout(sess *session.Session) (*Reply, error) {
	if sess.State != session.StateViewingCart {
		return nil, rejected(Event{Kind: EventCheckout}, sess)
	}
	if sess.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	sess.State = session.StateChoosingPayment
	return &Reply{Text: "Выберите способ оплаты:", Keyboard: paymentKeyboard()}, nil
}

func (e *Engine) handleSelectPayment(sess *session.Session, evt Event) (*Reply, error) {
	if sess.State != session.StateChoosingPayment {
		return nil, rejected(evt, sess)
	}

	sess.Scratch.PaymentMethod = paymentLabel(evt.Payment)
	sess.State = session.StateChoosingPickupTime

	return &Reply{
		Text:     "Выберите время получения заказа:",
		Keyboard: pickupKeyboard(e.now()),
	}, nil
}

func (e *Engine) handleSelectPickupTime(sess *session.Session, evt Event) (*Reply, error) {
	if sess.State != session.StateChoosingPickupTime {
		return nil, rejected(evt, sess)
	}

	sess.Scratch.PickupTime = pickupLabel(evt.PickupTime)
	sess.State = session.StateConfirmingOrder

	return &Reply{Text: confirmText(sess), Keyboard: confirmKeyboard()}, nil
}

func (e *Engine) handleConfirm(ctx context.Context, sess *session.Session) (*Reply, error) {
	if sess.State != session.StateConfirmingOrder {
		return nil, rejected(Event{Kind: EventConfirm}, sess)
	}
	if sess.Cart.IsEmpty() {
		// the cart was cleared since entering confirmation, e.g. by a
		// duplicate confirm press after a successful commit
		return nil, ErrEmptyCart
	}

	order, err := e.orders.Commit(ctx, sess.UserID, sess.Cart.Items,
		sess.Scratch.PaymentMethod, sess.Scratch.PickupTime)
	if err != nil {
		// the cart is preserved so the user can retry
		return nil, fmt.Errorf("commit order: %w", err)
	}

	summary := orderSummary(order, sess.Cart.Items)
	go e.notifier.OrderPlaced(context.Background(), summary)

	text := orderPlacedText(order)

	sess.Cart.Clear()
	sess.Scratch = session.Scratch{}

	reply, err := e.showCategories(ctx, sess, text)
	if err != nil {
		// the order is placed either way, a missing keyboard is cosmetic
		e.logger.Warn("failed to load categories after commit",
			zap.Int64("user_id", sess.UserID), zap.Error(err))
		sess.State = session.StateChoosingCategory
		return &Reply{Text: text}, nil
	}
	return reply, nil
}

func (e *Engine) handleCancel(ctx context.Context, sess *session.Session) (*Reply, error) {
	if sess.State != session.StateConfirmingOrder {
		return nil, rejected(Event{Kind: EventCancel}, sess)
	}

	// cancellation drops the checkout selections but keeps the cart
	sess.ResetCheckout()
	return e.showCategories(ctx, sess,
		"Заказ отменен. Вы можете вернуться в меню или создать новый заказ.")
}

func (e *Engine) handleBackToProducts(ctx context.Context, sess *session.Session, evt Event) (*Reply, error) {
	if sess.State != session.StateViewingProductDetail {
		return nil, rejected(evt, sess)
	}

	if sess.Scratch.CategoryID == 0 {
		return e.showCategories(ctx, sess, "🍽 Меню кофейни\n\nВыберите категорию:")
	}

	products, err := e.catalog.Products(ctx, sess.Scratch.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	sess.State = session.StateChoosingProduct
	return &Reply{Text: "Выберите продукт:", Keyboard: productsKeyboard(products)}, nil
}

func orderSummary(order *domain.Order, cartItems []domain.CartItem) notify.OrderSummary {
	names := make(map[int64]string, len(cartItems))
	for _, item := range cartItems {
		names[item.ProductID] = item.Name
	}
	lines := make([]notify.OrderLineSummary, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, notify.OrderLineSummary{
			ProductID: line.ProductID,
			Name:      names[line.ProductID],
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return notify.OrderSummary{
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalPrice:    order.TotalPrice,
		PaymentMethod: order.PaymentMethod,
		PickupTime:    order.PickupTime,
		Lines:         lines,
	}
}
