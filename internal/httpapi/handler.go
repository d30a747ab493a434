package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/svrddd/tgbotNEW/internal/catalog"
	"github.com/svrddd/tgbotNEW/internal/engine"
	"github.com/svrddd/tgbotNEW/internal/orders"
	"github.com/svrddd/tgbotNEW/internal/reviews"
	"github.com/svrddd/tgbotNEW/internal/transport"
)

type EventsHandler struct {
	engine  *engine.Engine
	logger  *zap.Logger
	timeout time.Duration
}

func NewEventsHandler(eng *engine.Engine, logger *zap.Logger, timeout time.Duration) *EventsHandler {
	return &EventsHandler{
		engine:  eng,
		logger:  logger,
		timeout: timeout,
	}
}

type ReplyDTO struct {
	Text     string            `json:"text"`
	Keyboard [][]engine.Button `json:"keyboard,omitempty"`
}

type EventResponseDTO struct {
	Reply ReplyDTO `json:"reply"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HandleEvent accepts one gateway event and returns the render instruction.
// Workflow-level rejections are normal conversation traffic, so they come
// back as 200 with a corrective message rather than an error status.
func (h *EventsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, h.timeout)
	defer cancel()

	var in transport.InboundEvent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if in.UserID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be positive")
		return
	}

	evt, err := transport.ParseInbound(in)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown_input", err.Error())
		return
	}

	reply, err := h.engine.Handle(ctx, evt)
	if err != nil {
		h.respondEngineError(w, in.UserID, evt, err)
		return
	}

	respondJSON(w, http.StatusOK, EventResponseDTO{
		Reply: ReplyDTO{Text: reply.Text, Keyboard: reply.Keyboard},
	})
}

func (h *EventsHandler) respondEngineError(w http.ResponseWriter, userID int64, evt engine.Event, err error) {
	switch {
	case errors.Is(err, engine.ErrEmptyCart):
		respondJSON(w, http.StatusOK, EventResponseDTO{
			Reply: ReplyDTO{Text: "Ваша корзина пуста. Выберите продукты в меню!"},
		})
	case errors.Is(err, engine.ErrInvalidTransition):
		h.logger.Debug("event rejected",
			zap.Int64("user_id", userID), zap.String("kind", string(evt.Kind)), zap.Error(err))
		respondJSON(w, http.StatusOK, EventResponseDTO{
			Reply: ReplyDTO{Text: "Эта кнопка уже неактуальна. Откройте меню заново."},
		})
	case errors.Is(err, catalog.ErrProductNotFound):
		respondJSON(w, http.StatusOK, EventResponseDTO{
			Reply: ReplyDTO{Text: "Этот товар больше недоступен. Откройте меню заново."},
		})
	case errors.Is(err, reviews.ErrInvalidRating):
		respondJSON(w, http.StatusOK, EventResponseDTO{
			Reply: ReplyDTO{Text: "Оценка должна быть от 1 до 5."},
		})
	default:
		h.logger.Error("event processing failed",
			zap.Int64("user_id", userID), zap.String("kind", string(evt.Kind)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

type OrdersHandler struct {
	repo    orders.RepoInterface
	logger  *zap.Logger
	timeout time.Duration
}

func NewOrdersHandler(repo orders.RepoInterface, logger *zap.Logger, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		repo:    repo,
		logger:  logger,
		timeout: timeout,
	}
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a positive integer")
		return
	}

	order, err := h.repo.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		h.logger.Error("get order failed", zap.Int64("order_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, h.timeout)
	defer cancel()

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user id must be a positive integer")
		return
	}

	userOrders, err := h.repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		h.logger.Error("list orders failed", zap.Int64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, userOrders)
}
