// Package handler содержит HTTP-обработчики API сервиса бронирования.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/hotelbooking-system/internal/middleware"
	"github.com/mmeshcher/hotelbooking-system/internal/model"
	"github.com/mmeshcher/hotelbooking-system/internal/repository"
	"github.com/mmeshcher/hotelbooking-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterMember(ctx context.Context, email, password, phone string) (model.Actor, error)
	AuthenticateMember(ctx context.Context, email, password string) (model.Actor, error)

	ListActiveRooms(ctx context.Context) ([]model.Room, error)
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	SearchRooms(ctx context.Context, filter model.RoomFilter) (model.RoomPage, error)
	SaveRoom(ctx context.Context, room model.Room) (*model.Room, error)

	CheckAvailability(ctx context.Context, roomID int64, start, end time.Time) (bool, error)
	ListBookedDates(ctx context.Context, roomID int64, from, to time.Time) ([]string, error)
	ReserveRoom(ctx context.Context, memberID, roomID int64, start, end time.Time) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID int64, actor model.Actor) (*model.Order, error)
	GetOrder(ctx context.Context, orderID int64, actor model.Actor) (*model.OrderDetails, error)
	ListOrders(ctx context.Context, memberID int64) ([]model.Order, error)
	Cart(ctx context.Context, memberID int64) ([]model.Order, error)
	RemoveFromCart(ctx context.Context, orderID, memberID int64) error
	Checkout(ctx context.Context, memberID int64) ([]model.Order, error)
}

// Option настраивает Handler.
type Option func(*Handler)

// WithCORSOrigins задаёт источники, которым разрешены запросы к публичным маршрутам номеров.
func WithCORSOrigins(origins []string) Option {
	return func(h *Handler) { h.corsOrigins = origins }
}

// WithReserveLimiter задаёт ограничитель частоты бронирований.
func WithReserveLimiter(rl *middleware.RateLimiter) Option {
	return func(h *Handler) { h.reserveLimiter = rl }
}

// Handler реализует HTTP-обработчики API сервиса бронирования.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	corsOrigins    []string
	reserveLimiter *middleware.RateLimiter
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts ...Option) *Handler {
	h := &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		corsOrigins:    []string{"*"},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

// handleError переводит ошибку сервиса в HTTP-ответ. Инфраструктурные сбои логируются.
func (h *Handler) handleError(w http.ResponseWriter, err error, op string, fields ...zap.Field) {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, repository.ErrRoomUnavailable):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, repository.ErrOrderAlreadyCancelled):
		writeError(w, http.StatusConflict, "already_cancelled", err.Error())
	case errors.Is(err, repository.ErrOrderPaid):
		writeError(w, http.StatusConflict, "order_paid", err.Error())
	case errors.Is(err, repository.ErrMemberExists):
		writeError(w, http.StatusConflict, "member_exists", "member with this e-mail already exists")
	case errors.Is(err, service.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, service.ErrInvalidStay),
		errors.Is(err, service.ErrInvalidMember),
		errors.Is(err, service.ErrInvalidRoom):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		h.logger.Error(op+" error", append(fields, zap.Error(err))...)
		writeError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
	}
}

func actorFromRequest(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", http.StatusText(http.StatusUnauthorized))
	}
	return actor, ok
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "validation", "invalid "+name)
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed JSON body")
		return false
	}
	return true
}

func centsToAmount(cents int64) float64 {
	return float64(cents) / 100
}
