package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/svrddd/tgbotNEW/internal/catalog"
	"github.com/svrddd/tgbotNEW/internal/notify"
	"github.com/svrddd/tgbotNEW/internal/orders"
	"github.com/svrddd/tgbotNEW/internal/reviews"
	"github.com/svrddd/tgbotNEW/internal/session"
	"github.com/svrddd/tgbotNEW/internal/users"
)

// Engine drives each user's session through the ordering workflow. All
// mutation of a session happens under the per-session lock taken in Handle,
// so nothing below it needs to be reentrant.
type Engine struct {
	sessions session.Store
	catalog  catalog.Store
	orders   orders.RepoInterface
	users    users.RepoInterface
	reviews  reviews.RepoInterface
	notifier notify.Notifier
	logger   *zap.Logger

	now func() time.Time
}

func NewEngine(
	sessions session.Store,
	catalogStore catalog.Store,
	orderRepo orders.RepoInterface,
	userRepo users.RepoInterface,
	reviewRepo reviews.RepoInterface,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		sessions: sessions,
		catalog:  catalogStore,
		orders:   orderRepo,
		users:    userRepo,
		reviews:  reviewRepo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle processes one inbound event for one user and returns the render
// instruction. Events for the same user are serialized by the session store;
// a rejected event leaves the session exactly as it was.
func (e *Engine) Handle(ctx context.Context, evt Event) (*Reply, error) {
	sess, release := e.sessions.Acquire(evt.UserID)
	defer release()

	switch evt.Kind {
	// events valid in any state
	case EventStart:
		return e.handleStart(ctx, sess, evt)
	case EventReset:
		sess.Reset()
		return &Reply{Text: "Главное меню:", Keyboard: mainMenuKeyboard()}, nil
	case EventOpenMenu:
		return e.showCategories(ctx, sess, "🍽 Меню кофейни\n\nВыберите категорию:")
	case EventOpenCart:
		return e.showCart(sess), nil
	case EventMyOrders:
		return e.handleMyOrders(ctx, sess)
	case EventOpenFeedback:
		sess.State = session.StateFeedbackText
		return &Reply{Text: "Пожалуйста, напишите ваш отзыв о нашей кофейне. Нам очень важно ваше мнение!"}, nil
	case EventOpenContact:
		sess.State = session.StateContactMessage
		return &Reply{Text: "Пожалуйста, напишите ваше сообщение для администратора кофейни."}, nil

	// ordering flow
	case EventSelectCategory:
		return e.handleSelectCategory(ctx, sess, evt)
	case EventSelectProduct:
		return e.handleSelectProduct(ctx, sess, evt)
	case EventIncreaseQuantity:
		return e.handleAdjustQuantity(sess, 1)
	case EventDecreaseQuantity:
		return e.handleAdjustQuantity(sess, -1)
	case EventAddToCart:
		return e.handleAddToCart(sess)
	case EventRemoveFromCart:
		return e.handleRemoveFromCart(sess)
	case EventClearCart:
		return e.handleClearCart(sess)
	case EventCheckout:
		return e.handleCheckout(sess)
	case EventSelectPayment:
		return e.handleSelectPayment(sess, evt)
	case EventSelectPickupTime:
		return e.handleSelectPickupTime(sess, evt)
	case EventConfirm:
		return e.handleConfirm(ctx, sess)
	case EventCancel:
		return e.handleCancel(ctx, sess)

	// backward navigation, pure state restores
	case EventBackToCategories:
		if sess.State != session.StateChoosingProduct {
			return nil, rejected(evt, sess)
		}
		return e.showCategories(ctx, sess, "🍽 Меню кофейни\n\nВыберите категорию:")
	case EventBackToProducts:
		return e.handleBackToProducts(ctx, sess, evt)
	case EventBackToCart:
		if sess.State != session.StateChoosingPayment {
			return nil, rejected(evt, sess)
		}
		return e.showCart(sess), nil
	case EventBackToPayment:
		if sess.State != session.StateChoosingPickupTime {
			return nil, rejected(evt, sess)
		}
		sess.State = session.StateChoosingPayment
		return &Reply{Text: "Выберите способ оплаты:", Keyboard: paymentKeyboard()}, nil

	// side flows
	case EventText:
		return e.handleText(ctx, sess, evt)
	case EventSelectRating:
		return e.handleSelectRating(ctx, sess, evt)
	}

	return nil, rejected(evt, sess)
}

func rejected(evt Event, sess *session.Session) error {
	return fmt.Errorf("%w: event %q in state %q", ErrInvalidTransition, evt.Kind, sess.State)
}

func (e *Engine) handleStart(ctx context.Context, sess *session.Session, evt Event) (*Reply, error) {
	if err := e.users.Register(ctx, evt.UserID, evt.Username, evt.FullName); err != nil {
		// registration is best-effort, the ordering flow works without it
		e.logger.Warn("user registration failed", zap.Int64("user_id", evt.UserID), zap.Error(err))
	}

	sess.Reset()

	text := fmt.Sprintf(
		"👋 Привет, %s!\n\nДобро пожаловать в бот нашей кофейни Playa!\nЗдесь вы можете ознакомиться с нашим меню, сделать заказ, оставить отзыв или связаться с администратором.\n\nВыберите один из пунктов в меню ниже 👇",
		evt.FullName)
	return &Reply{Text: text, Keyboard: mainMenuKeyboard()}, nil
}

func (e *Engine) showCategories(ctx context.Context, sess *session.Session, text string) (*Reply, error) {
	categories, err := e.catalog.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	sess.State = session.StateChoosingCategory
	return &Reply{Text: text, Keyboard: categoriesKeyboard(categories)}, nil
}

func (e *Engine) showCart(sess *session.Session) *Reply {
	sess.State = session.StateViewingCart
	if sess.Cart.IsEmpty() {
		return &Reply{
			Text:     "Ваша корзина пуста. Выберите продукты в меню!",
			Keyboard: cartKeyboard(),
		}
	}
	return &Reply{Text: cartText(&sess.Cart), Keyboard: cartKeyboard()}
}

func (e *Engine) handleMyOrders(ctx context.Context, sess *session.Session) (*Reply, error) {
	userOrders, err := e.orders.ListOrdersByUser(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return &Reply{Text: myOrdersText(userOrders), Keyboard: mainMenuKeyboard()}, nil
}
