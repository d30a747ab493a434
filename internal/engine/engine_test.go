package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/svrddd/tgbotNEW/internal/domain"
	"github.com/svrddd/tgbotNEW/internal/notify"
	"github.com/svrddd/tgbotNEW/internal/session"
)

type mockCatalog struct {
	mu         sync.Mutex
	categories []domain.Category
	products   map[int64][]domain.Product
	byID       map[int64]domain.Product
	err        error
}

func (m *mockCatalog) Categories(_ context.Context) ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.categories, nil
}

func (m *mockCatalog) Products(_ context.Context, categoryID int64) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.products[categoryID], nil
}

func (m *mockCatalog) Product(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, errors.New("product not found")
	}
	return &p, nil
}

type mockOrders struct {
	mu      sync.Mutex
	nextID  int64
	commits []*domain.Order
	err     error
}

func (m *mockOrders) Commit(_ context.Context, userID int64, lines []domain.CartItem, paymentMethod, pickupTime string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if len(lines) == 0 {
		return nil, errors.New("cart is empty, nothing to commit")
	}
	m.nextID++
	order := &domain.Order{
		ID:            m.nextID,
		UserID:        userID,
		Status:        domain.OrderStatusNew,
		PaymentMethod: paymentMethod,
		PickupTime:    pickupTime,
		CreatedAt:     time.Now(),
	}
	for _, line := range lines {
		order.TotalPrice += line.Price * float64(line.Quantity)
		order.Lines = append(order.Lines, domain.OrderLine{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
		})
	}
	m.commits = append(m.commits, order)
	return order, nil
}

func (m *mockOrders) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.commits {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, errors.New("order not found")
}

func (m *mockOrders) ListOrdersByUser(_ context.Context, userID int64) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.commits {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrders) commitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commits)
}

type mockUsers struct {
	mu         sync.Mutex
	registered map[int64]string
}

func (m *mockUsers) Register(_ context.Context, id int64, username, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registered == nil {
		m.registered = map[int64]string{}
	}
	m.registered[id] = username
	return nil
}

func (m *mockUsers) Get(_ context.Context, _ int64) (*domain.User, error) {
	return nil, errors.New("user not found")
}

type mockReviews struct {
	mu      sync.Mutex
	reviews []domain.Review
}

func (m *mockReviews) Add(_ context.Context, userID int64, text string, rating int) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	review := domain.Review{
		ID:     int64(len(m.reviews) + 1),
		UserID: userID,
		Text:   text,
		Rating: rating,
	}
	m.reviews = append(m.reviews, review)
	return &review, nil
}

func (m *mockReviews) ListByUser(_ context.Context, userID int64) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Review
	for _, r := range m.reviews {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockNotifier struct {
	mu       sync.Mutex
	orders   []notify.OrderSummary
	reviews  []notify.ReviewSummary
	contacts []notify.ContactSummary
}

func (m *mockNotifier) OrderPlaced(_ context.Context, summary notify.OrderSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, summary)
}

func (m *mockNotifier) ReviewReceived(_ context.Context, summary notify.ReviewSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, summary)
}

func (m *mockNotifier) ContactMessage(_ context.Context, summary notify.ContactSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, summary)
}

func (m *mockNotifier) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *mockNotifier) contactCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contacts)
}

func (m *mockNotifier) reviewCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reviews)
}

func testFixtures() (*mockCatalog, *mockOrders, *mockUsers, *mockReviews, *mockNotifier) {
	cat := &mockCatalog{
		categories: []domain.Category{
			{ID: 1, Name: "Кофе"},
			{ID: 2, Name: "Десерты"},
		},
		products: map[int64][]domain.Product{
			1: {
				{ID: 1, CategoryID: 1, Name: "Американо 200мл", Price: 200, Available: true},
				{ID: 2, CategoryID: 1, Name: "Капучино 300мл", Price: 230, Available: true},
			},
			2: {
				{ID: 3, CategoryID: 2, Name: "Чизкейк", Price: 250, Available: true},
			},
		},
		byID: map[int64]domain.Product{
			1: {ID: 1, CategoryID: 1, Name: "Американо 200мл", Price: 200, Available: true},
			2: {ID: 2, CategoryID: 1, Name: "Капучино 300мл", Price: 230, Available: true},
			3: {ID: 3, CategoryID: 2, Name: "Чизкейк", Price: 250, Available: true},
		},
	}
	return cat, &mockOrders{}, &mockUsers{}, &mockReviews{}, &mockNotifier{}
}

func newTestEngine(t *testing.T) (*Engine, *mockOrders, *mockNotifier) {
	t.Helper()
	cat, ord, usr, rev, ntf := testFixtures()
	e := NewEngine(session.NewMemoryStore(), cat, ord, usr, rev, ntf, zap.NewNop())
	e.now = func() time.Time {
		return time.Date(2025, 3, 14, 12, 5, 0, 0, time.UTC)
	}
	return e, ord, ntf
}

// drive pushes a sequence of events through the engine and fails the test on
// the first error.
func drive(t *testing.T, e *Engine, events ...Event) *Reply {
	t.Helper()
	var reply *Reply
	for _, evt := range events {
		var err error
		reply, err = e.Handle(context.Background(), evt)
		require.NoError(t, err, "event %q", evt.Kind)
	}
	return reply
}

func sessionOf(e *Engine, userID int64) *session.Session {
	sess, release := e.sessions.Acquire(userID)
	release()
	return sess
}

func TestStartResetsSessionAndRegisters(t *testing.T) {
	cat, ord, usr, rev, ntf := testFixtures()
	e := NewEngine(session.NewMemoryStore(), cat, ord, usr, rev, ntf, zap.NewNop())

	reply := drive(t, e,
		Event{UserID: 7, Kind: EventStart, Username: "anna", FullName: "Анна"})

	assert.Contains(t, reply.Text, "Анна")
	assert.NotEmpty(t, reply.Keyboard)
	assert.Equal(t, "anna", usr.registered[7])
	assert.Equal(t, session.StateIdle, sessionOf(e, 7).State)
}

func TestAddToCartSnapshotsNameAndPrice(t *testing.T) {
	e, _, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart, FullName: "Тест"},
		Event{UserID: 1, Kind: EventOpenMenu},
		Event{UserID: 1, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
		Event{UserID: 1, Kind: EventIncreaseQuantity},
		Event{UserID: 1, Kind: EventAddToCart},
	)

	sess := sessionOf(e, 1)
	require.Len(t, sess.Cart.Items, 1)
	item := sess.Cart.Items[0]
	assert.Equal(t, "Американо 200мл", item.Name)
	assert.Equal(t, 200.0, item.Price)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 400.0, sess.Cart.Total())
}

func TestQuantityNeverDropsBelowOne(t *testing.T) {
	e, _, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenMenu},
		Event{UserID: 1, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
		Event{UserID: 1, Kind: EventDecreaseQuantity},
		Event{UserID: 1, Kind: EventDecreaseQuantity},
	)

	assert.Equal(t, 1, sessionOf(e, 1).Scratch.Quantity)
}

func TestReAddingProductReplacesCartLine(t *testing.T) {
	e, _, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenMenu},
		Event{UserID: 1, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
		Event{UserID: 1, Kind: EventAddToCart},
		Event{UserID: 1, Kind: EventBackToProducts},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
		Event{UserID: 1, Kind: EventIncreaseQuantity},
		Event{UserID: 1, Kind: EventIncreaseQuantity},
		Event{UserID: 1, Kind: EventAddToCart},
	)

	sess := sessionOf(e, 1)
	require.Len(t, sess.Cart.Items, 1)
	assert.Equal(t, 3, sess.Cart.Items[0].Quantity)
	assert.Equal(t, 600.0, sess.Cart.Total())
}

func TestRemoveFromCartLeavesItEmpty(t *testing.T) {
	e, _, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenMenu},
		Event{UserID: 1, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
		Event{UserID: 1, Kind: EventAddToCart},
		Event{UserID: 1, Kind: EventRemoveFromCart},
	)

	assert.True(t, sessionOf(e, 1).Cart.IsEmpty())
}

func TestFullCheckoutFlow(t *testing.T) {
	e, ord, ntf := newTestEngine(t)

	reply := drive(t, e,
		Event{UserID: 42, Kind: EventStart, FullName: "Покупатель"},
		Event{UserID: 42, Kind: EventOpenMenu},
		Event{UserID: 42, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 42, Kind: EventSelectProduct, ProductID: 2},
		Event{UserID: 42, Kind: EventAddToCart},
		Event{UserID: 42, Kind: EventOpenCart},
		Event{UserID: 42, Kind: EventCheckout},
		Event{UserID: 42, Kind: EventSelectPayment, Payment: "cash"},
		Event{UserID: 42, Kind: EventSelectPickupTime, PickupTime: "asap"},
		Event{UserID: 42, Kind: EventConfirm},
	)

	require.Equal(t, 1, ord.commitCount())
	order := ord.commits[0]
	assert.Equal(t, int64(42), order.UserID)
	assert.Equal(t, 230.0, order.TotalPrice)
	assert.Equal(t, "Наличными", order.PaymentMethod)
	assert.Equal(t, "Как можно скорее", order.PickupTime)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, int64(2), order.Lines[0].ProductID)

	sess := sessionOf(e, 42)
	assert.True(t, sess.Cart.IsEmpty())
	assert.Equal(t, session.StateChoosingCategory, sess.State)
	assert.Contains(t, reply.Text, "успешно принят")

	require.Eventually(t, func() bool {
		return ntf.orderCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Капучино 300мл", ntf.orders[0].Lines[0].Name)
}

func TestDuplicateConfirmDoesNotDoubleCommit(t *testing.T) {
	e, ord, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenMenu},
		Event{UserID: 1, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
		Event{UserID: 1, Kind: EventAddToCart},
		Event{UserID: 1, Kind: EventOpenCart},
		Event{UserID: 1, Kind: EventCheckout},
		Event{UserID: 1, Kind: EventSelectPayment, Payment: "card"},
		Event{UserID: 1, Kind: EventSelectPickupTime, PickupTime: "12:30"},
		Event{UserID: 1, Kind: EventConfirm},
	)

	_, err := e.Handle(context.Background(), Event{UserID: 1, Kind: EventConfirm})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, 1, ord.commitCount())
}

func TestCommitFailurePreservesCart(t *testing.T) {
	e, ord, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenMenu},
		Event{UserID: 1, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
		Event{UserID: 1, Kind: EventAddToCart},
		Event{UserID: 1, Kind: EventOpenCart},
		Event{UserID: 1, Kind: EventCheckout},
		Event{UserID: 1, Kind: EventSelectPayment, Payment: "cash"},
		Event{UserID: 1, Kind: EventSelectPickupTime, PickupTime: "asap"},
	)

	ord.mu.Lock()
	ord.err = errors.New("database is locked")
	ord.mu.Unlock()

	_, err := e.Handle(context.Background(), Event{UserID: 1, Kind: EventConfirm})
	require.Error(t, err)

	sess := sessionOf(e, 1)
	assert.False(t, sess.Cart.IsEmpty())
	assert.Equal(t, session.StateConfirmingOrder, sess.State)
}

func TestCancelKeepsCart(t *testing.T) {
	e, ord, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenMenu},
		Event{UserID: 1, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
		Event{UserID: 1, Kind: EventAddToCart},
		Event{UserID: 1, Kind: EventOpenCart},
		Event{UserID: 1, Kind: EventCheckout},
		Event{UserID: 1, Kind: EventSelectPayment, Payment: "sbp"},
		Event{UserID: 1, Kind: EventSelectPickupTime, PickupTime: "asap"},
		Event{UserID: 1, Kind: EventCancel},
	)

	sess := sessionOf(e, 1)
	assert.False(t, sess.Cart.IsEmpty())
	assert.Empty(t, sess.Scratch.PaymentMethod)
	assert.Empty(t, sess.Scratch.PickupTime)
	assert.Equal(t, 0, ord.commitCount())
}

func TestCheckoutOnEmptyCartRejected(t *testing.T) {
	e, _, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenCart},
	)

	_, err := e.Handle(context.Background(), Event{UserID: 1, Kind: EventCheckout})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestOutOfOrderEventsRejectedWithoutStateChange(t *testing.T) {
	e, _, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenMenu},
	)

	_, err := e.Handle(context.Background(), Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, session.StateChoosingCategory, sessionOf(e, 1).State)

	_, err = e.Handle(context.Background(), Event{UserID: 1, Kind: EventConfirm})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, session.StateChoosingCategory, sessionOf(e, 1).State)
}

func TestBackNavigationRestoresStates(t *testing.T) {
	e, _, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenMenu},
		Event{UserID: 1, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
	)
	assert.Equal(t, session.StateViewingProductDetail, sessionOf(e, 1).State)

	drive(t, e, Event{UserID: 1, Kind: EventBackToProducts})
	assert.Equal(t, session.StateChoosingProduct, sessionOf(e, 1).State)

	drive(t, e, Event{UserID: 1, Kind: EventBackToCategories})
	assert.Equal(t, session.StateChoosingCategory, sessionOf(e, 1).State)

	// back_to_categories only makes sense while browsing products
	_, err := e.Handle(context.Background(), Event{UserID: 1, Kind: EventBackToCategories})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBackToPaymentFromPickupTime(t *testing.T) {
	e, _, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenMenu},
		Event{UserID: 1, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
		Event{UserID: 1, Kind: EventAddToCart},
		Event{UserID: 1, Kind: EventOpenCart},
		Event{UserID: 1, Kind: EventCheckout},
		Event{UserID: 1, Kind: EventSelectPayment, Payment: "cash"},
		Event{UserID: 1, Kind: EventBackToPayment},
	)

	assert.Equal(t, session.StateChoosingPayment, sessionOf(e, 1).State)

	drive(t, e, Event{UserID: 1, Kind: EventBackToCart})
	assert.Equal(t, session.StateViewingCart, sessionOf(e, 1).State)
}

func TestClearCart(t *testing.T) {
	e, _, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenMenu},
		Event{UserID: 1, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
		Event{UserID: 1, Kind: EventAddToCart},
		Event{UserID: 1, Kind: EventOpenCart},
		Event{UserID: 1, Kind: EventClearCart},
	)

	assert.True(t, sessionOf(e, 1).Cart.IsEmpty())
}

func TestFeedbackFlow(t *testing.T) {
	e, _, ntf := newTestEngine(t)

	reply := drive(t, e,
		Event{UserID: 9, Kind: EventStart},
		Event{UserID: 9, Kind: EventOpenFeedback},
		Event{UserID: 9, Kind: EventText, Text: "Очень вкусный кофе!"},
	)
	assert.Contains(t, reply.Text, "оцените")
	assert.Equal(t, session.StateFeedbackRating, sessionOf(e, 9).State)

	drive(t, e, Event{UserID: 9, Kind: EventSelectRating, Rating: 5})
	sess := sessionOf(e, 9)
	assert.Equal(t, session.StateIdle, sess.State)
	assert.Empty(t, sess.Scratch.FeedbackText)

	require.Eventually(t, func() bool {
		return ntf.reviewCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Очень вкусный кофе!", ntf.reviews[0].Text)
	assert.Equal(t, 5, ntf.reviews[0].Rating)
}

func TestContactFlow(t *testing.T) {
	e, _, ntf := newTestEngine(t)

	drive(t, e,
		Event{UserID: 9, Kind: EventStart},
		Event{UserID: 9, Kind: EventOpenContact},
		Event{UserID: 9, Kind: EventText, Text: "Можно заказать торт на день рождения?"},
	)

	assert.Equal(t, session.StateIdle, sessionOf(e, 9).State)
	require.Eventually(t, func() bool {
		return ntf.contactCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(9), ntf.contacts[0].UserID)
}

func TestTextOutsideSideFlowsRejected(t *testing.T) {
	e, _, _ := newTestEngine(t)

	drive(t, e, Event{UserID: 1, Kind: EventStart})

	_, err := e.Handle(context.Background(), Event{UserID: 1, Kind: EventText, Text: "привет"})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPickupSlotsRounding(t *testing.T) {
	slots := pickupSlots(time.Date(2025, 3, 14, 12, 5, 0, 0, time.UTC))
	assert.Equal(t, []string{"12:10", "12:20", "12:30", "12:40"}, slots)

	slots = pickupSlots(time.Date(2025, 3, 14, 23, 55, 0, 0, time.UTC))
	assert.Equal(t, []string{"00:00", "00:10", "00:20", "00:30"}, slots)
}

func TestIndependentUsersDoNotShareCarts(t *testing.T) {
	e, _, _ := newTestEngine(t)

	drive(t, e,
		Event{UserID: 1, Kind: EventStart},
		Event{UserID: 1, Kind: EventOpenMenu},
		Event{UserID: 1, Kind: EventSelectCategory, CategoryID: 1},
		Event{UserID: 1, Kind: EventSelectProduct, ProductID: 1},
		Event{UserID: 1, Kind: EventAddToCart},
		Event{UserID: 2, Kind: EventStart},
	)

	assert.False(t, sessionOf(e, 1).Cart.IsEmpty())
	assert.True(t, sessionOf(e, 2).Cart.IsEmpty())
}
