// Package events публикует события жизненного цикла заказов во внешний брокер сообщений.
package events

import (
	"context"
	"time"

	"github.com/mmeshcher/hotelbooking-system/internal/model"
)

// Типы событий заказа.
const (
	TypeOrderReserved  = "order.reserved"
	TypeOrderCancelled = "order.cancelled"
	TypeOrderPaid      = "order.paid"
)

// OrderEvent описывает изменение состояния заказа.
type OrderEvent struct {
	Type        string  `json:"type"`
	OrderID     int64   `json:"order_id"`
	RoomID      int64   `json:"room_id"`
	MemberID    int64   `json:"member_id"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	TotalAmount float64 `json:"total_amount"`
	Paid        bool    `json:"paid"`
	Cancelled   bool    `json:"cancelled"`
	OccurredAt  string  `json:"occurred_at"`
}

// NewOrderEvent строит событие указанного типа по состоянию заказа.
func NewOrderEvent(eventType string, o model.Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:        eventType,
		OrderID:     o.ID,
		RoomID:      o.RoomID,
		MemberID:    o.MemberID,
		StartDate:   o.StartDate.Format(model.DateLayout),
		EndDate:     o.EndDate.Format(model.DateLayout),
		TotalAmount: float64(o.TotalCents) / 100,
		Paid:        o.Paid,
		Cancelled:   o.Cancelled,
		OccurredAt:  at.UTC().Format(time.RFC3339),
	}
}

// NopPublisher отбрасывает события; используется, когда брокер не настроен.
type NopPublisher struct{}

// Publish ничего не делает.
func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

// Close ничего не делает.
func (NopPublisher) Close() error { return nil }
