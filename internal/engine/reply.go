package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/svrddd/tgbotNEW/internal/domain"
	"github.com/svrddd/tgbotNEW/internal/session"
)

// Button is one pressable option; Data uses the same callback grammar the
// transport parses, so a gateway can echo it back verbatim.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Reply is the render instruction the engine hands back to the transport.
// Presentation (markup, emoji placement, message editing) is the gateway's
// business.
type Reply struct {
	Text     string     `json:"text"`
	Keyboard [][]Button `json:"keyboard,omitempty"`
}

var paymentLabels = map[string]string{
	"cash": "Наличными",
	"card": "Картой",
	"sbp":  "СБП (Система быстрых платежей)",
}

const pickupASAP = "Как можно скорее"

func paymentLabel(code string) string {
	if label, ok := paymentLabels[code]; ok {
		return label
	}
	return code
}

func pickupLabel(value string) string {
	if value == "asap" {
		return pickupASAP
	}
	return value
}

func mainMenuKeyboard() [][]Button {
	return [][]Button{
		{{Label: "🍽 Меню", Data: "menu"}},
		{{Label: "🛒 Корзина", Data: "cart"}, {Label: "📝 Мои заказы", Data: "my_orders"}},
		{{Label: "⭐ Оставить отзыв", Data: "feedback"}, {Label: "📨 Связаться с администратором", Data: "contact"}},
	}
}

func categoriesKeyboard(categories []domain.Category) [][]Button {
	keyboard := make([][]Button, 0, len(categories)+1)
	for _, c := range categories {
		keyboard = append(keyboard, []Button{{Label: c.Name, Data: fmt.Sprintf("category:%d", c.ID)}})
	}
	keyboard = append(keyboard, []Button{{Label: "🔙 Назад", Data: "back_to_main"}})
	return keyboard
}

func productsKeyboard(products []domain.Product) [][]Button {
	keyboard := make([][]Button, 0, len(products)+1)
	for _, p := range products {
		keyboard = append(keyboard, []Button{{
			Label: fmt.Sprintf("%s - %.0f ₽", p.Name, p.Price),
			Data:  fmt.Sprintf("product:%d", p.ID),
		}})
	}
	keyboard = append(keyboard, []Button{{Label: "🔙 К категориям", Data: "back_to_categories"}})
	return keyboard
}

func productKeyboard(quantity int, inCart bool) [][]Button {
	keyboard := [][]Button{
		{
			{Label: "➖", Data: "decrease"},
			{Label: fmt.Sprintf("%d", quantity), Data: "quantity"},
			{Label: "➕", Data: "increase"},
		},
		{{Label: "🛒 Добавить в корзину", Data: "add_to_cart"}},
	}
	if inCart {
		keyboard = append(keyboard, []Button{{Label: "🗑 Удалить из корзины", Data: "remove_from_cart"}})
	}
	keyboard = append(keyboard, []Button{{Label: "🔙 Назад", Data: "back_to_products"}})
	return keyboard
}

func cartKeyboard() [][]Button {
	return [][]Button{
		{{Label: "🧹 Очистить корзину", Data: "clear_cart"}},
		{{Label: "💳 Оформить заказ", Data: "checkout"}},
		{{Label: "🔙 Вернуться к меню", Data: "back_to_menu"}},
	}
}

func paymentKeyboard() [][]Button {
	return [][]Button{
		{{Label: "💵 Наличными при получении", Data: "payment:cash"}},
		{{Label: "💳 Картой", Data: "payment:card"}},
		{{Label: "📱 СБП", Data: "payment:sbp"}},
		{{Label: "🔙 Назад к корзине", Data: "back_to_cart"}},
	}
}

// pickupSlots proposes four near-future times rounded the way the coffee
// shop staff wanted them, plus the as-soon-as-possible option.
func pickupSlots(now time.Time) []string {
	hour := now.Hour()
	minute := now.Minute()

	var next int
	switch {
	case minute < 10:
		next = 10
	case minute < 30:
		next = 30
	case minute < 40:
		next = 40
	default:
		next = 0
		hour = (hour + 1) % 24
	}

	slots := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		h := (hour + (next+i*10)/60) % 24
		m := (next + i*10) % 60
		slots = append(slots, fmt.Sprintf("%02d:%02d", h, m))
	}
	return slots
}

func pickupKeyboard(now time.Time) [][]Button {
	slots := pickupSlots(now)
	keyboard := make([][]Button, 0, len(slots)+2)
	for _, slot := range slots {
		keyboard = append(keyboard, []Button{{Label: slot, Data: "time:" + slot}})
	}
	keyboard = append(keyboard, []Button{{Label: "🕒 Как можно скорее", Data: "time:asap"}})
	keyboard = append(keyboard, []Button{{Label: "🔙 Назад к выбору оплаты", Data: "back_to_payment"}})
	return keyboard
}

func confirmKeyboard() [][]Button {
	return [][]Button{
		{
			{Label: "✅ Подтвердить", Data: "confirm_order"},
			{Label: "❌ Отменить", Data: "cancel_order"},
		},
	}
}

func ratingKeyboard() [][]Button {
	row := make([]Button, 0, 5)
	for rating := 1; rating <= 5; rating++ {
		row = append(row, Button{
			Label: strings.Repeat("⭐", rating),
			Data:  fmt.Sprintf("rating:%d", rating),
		})
	}
	return [][]Button{row}
}

func cartText(cart *domain.Cart) string {
	var b strings.Builder
	b.WriteString("🛒 Ваша корзина:\n\n")
	for _, item := range cart.Items {
		fmt.Fprintf(&b, "• %s x %d = %.0f ₽\n", item.Name, item.Quantity, item.Price*float64(item.Quantity))
	}
	fmt.Fprintf(&b, "\nИтого к оплате: %.0f ₽", cart.Total())
	return b.String()
}

func confirmText(sess *session.Session) string {
	var b strings.Builder
	b.WriteString("📋 Подтверждение заказа:\n\n")
	for _, item := range sess.Cart.Items {
		fmt.Fprintf(&b, "• %s x %d = %.0f ₽\n", item.Name, item.Quantity, item.Price*float64(item.Quantity))
	}
	fmt.Fprintf(&b, "\nИтого к оплате: %.0f ₽\n", sess.Cart.Total())
	fmt.Fprintf(&b, "Способ оплаты: %s\n", sess.Scratch.PaymentMethod)
	fmt.Fprintf(&b, "Время получения: %s\n\n", sess.Scratch.PickupTime)
	b.WriteString("Пожалуйста, проверьте детали заказа и подтвердите.")
	return b.String()
}

func orderPlacedText(order *domain.Order) string {
	return fmt.Sprintf(
		"✅ Ваш заказ #%d успешно принят!\n\nСтатус: %s\nСумма: %.0f ₽\nОплата: %s\nВремя получения: %s\n\nСпасибо за заказ! Мы уведомим вас, когда он будет готов.",
		order.ID, order.Status, order.TotalPrice, order.PaymentMethod, order.PickupTime)
}

func myOrdersText(userOrders []*domain.Order) string {
	if len(userOrders) == 0 {
		return "У вас пока нет заказов. Загляните в меню!"
	}

	var b strings.Builder
	b.WriteString("📝 Ваши заказы:\n")
	for _, order := range userOrders {
		fmt.Fprintf(&b, "\n#%d от %s, %d поз. — %.0f ₽, оплата: %s, получение: %s",
			order.ID, order.CreatedAt.Format("02.01.2006 15:04"), len(order.Lines),
			order.TotalPrice, order.PaymentMethod, order.PickupTime)
	}
	return b.String()
}
