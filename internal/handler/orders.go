package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/hotelbooking-system/internal/model"
	"github.com/mmeshcher/hotelbooking-system/internal/service"
	"github.com/mmeshcher/hotelbooking-system/internal/validation"
)

type reserveRequest struct {
	RoomID    int64  `json:"room_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type orderResponse struct {
	ID          int64   `json:"id"`
	RoomID      int64   `json:"room_id"`
	MemberID    int64   `json:"member_id"`
	OrderedAt   string  `json:"ordered_at"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Nights      int64   `json:"nights"`
	Paid        bool    `json:"paid"`
	Cancelled   bool    `json:"cancelled"`
	TotalAmount float64 `json:"total_amount"`
}

func newOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		RoomID:      o.RoomID,
		MemberID:    o.MemberID,
		OrderedAt:   o.OrderedAt.Format(time.RFC3339),
		StartDate:   o.StartDate.Format(model.DateLayout),
		EndDate:     o.EndDate.Format(model.DateLayout),
		Nights:      service.Nights(o.StartDate, o.EndDate),
		Paid:        o.Paid,
		Cancelled:   o.Cancelled,
		TotalAmount: centsToAmount(o.TotalCents),
	}
}

func newOrdersResponse(orders []model.Order) []orderResponse {
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}
	return resp
}

type orderDetailsResponse struct {
	orderResponse
	RoomName  string  `json:"room_name"`
	RoomPrice float64 `json:"room_price"`
}

// ReserveRoom бронирует номер для текущего участника.
func (h *Handler) ReserveRoom(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req reserveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.RoomID <= 0 {
		writeError(w, http.StatusBadRequest, "validation", "room_id is required")
		return
	}
	start, err := validation.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "start_date must be a yyyy-MM-dd date")
		return
	}
	end, err := validation.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "end_date must be a yyyy-MM-dd date")
		return
	}

	order, err := h.service.ReserveRoom(r.Context(), actor.MemberID, req.RoomID, start, end)
	if err != nil {
		h.handleError(w, err, "reserve room",
			zap.Int64("memberID", actor.MemberID), zap.Int64("roomID", req.RoomID))
		return
	}

	writeJSON(w, http.StatusCreated, newOrderResponse(*order))
}

// ListOrders возвращает все заказы текущего участника.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), actor.MemberID)
	if err != nil {
		h.handleError(w, err, "list orders", zap.Int64("memberID", actor.MemberID))
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, newOrdersResponse(orders))
}

// GetOrder возвращает карточку заказа.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}

	details, err := h.service.GetOrder(r.Context(), orderID, actor)
	if err != nil {
		h.handleError(w, err, "get order", zap.Int64("orderID", orderID))
		return
	}

	writeJSON(w, http.StatusOK, orderDetailsResponse{
		orderResponse: newOrderResponse(details.Order),
		RoomName:      details.RoomName,
		RoomPrice:     centsToAmount(details.RoomPriceCents),
	})
}

// CancelOrder отменяет заказ владельцем или администратором.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(r.Context(), orderID, actor)
	if err != nil {
		h.handleError(w, err, "cancel order", zap.Int64("orderID", orderID))
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(*order))
}

// Cart возвращает неоплаченные заказы текущего участника.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	cart, err := h.service.Cart(r.Context(), actor.MemberID)
	if err != nil {
		h.handleError(w, err, "get cart", zap.Int64("memberID", actor.MemberID))
		return
	}

	if len(cart) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, newOrdersResponse(cart))
}

// RemoveFromCart убирает неоплаченный заказ из корзины.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}

	if err := h.service.RemoveFromCart(r.Context(), orderID, actor.MemberID); err != nil {
		h.handleError(w, err, "remove from cart", zap.Int64("orderID", orderID))
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Checkout оплачивает корзину текущего участника.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	paid, err := h.service.Checkout(r.Context(), actor.MemberID)
	if err != nil {
		h.handleError(w, err, "checkout", zap.Int64("memberID", actor.MemberID))
		return
	}

	writeJSON(w, http.StatusOK, newOrdersResponse(paid))
}
