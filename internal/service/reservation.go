package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/mmeshcher/hotelbooking-system/internal/events"
	"github.com/mmeshcher/hotelbooking-system/internal/model"
	"github.com/mmeshcher/hotelbooking-system/internal/repository"
)

const secondsPerDay = 24 * 60 * 60

// Nights возвращает число оплачиваемых ночей; заезд и выезд в один день считаются одной ночью.
func Nights(start, end time.Time) int64 {
	n := (model.Date(end).Unix() - model.Date(start).Unix()) / secondsPerDay
	if n < 1 {
		return 1
	}
	return n
}

func (s *Service) validateStay(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrInvalidStay
	}
	if end.Before(start) {
		return ErrInvalidStay
	}
	if Nights(start, end) > s.maxStayNights {
		return fmt.Errorf("%w: stay longer than %d nights", ErrInvalidStay, s.maxStayNights)
	}
	return nil
}

// overlaps проверяет пересечение полуоткрытых интервалов [s1, e1) и [s2, e2).
func overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

func available(orders []model.Order, start, end time.Time) bool {
	until := model.OccupiedUntil(start, end)
	for _, o := range orders {
		if o.Cancelled {
			continue
		}
		if overlaps(start, until, o.StartDate, o.OccupiedUntil()) {
			return false
		}
	}
	return true
}

func roomLockKey(roomID int64) string {
	return "room:" + strconv.FormatInt(roomID, 10)
}

func (s *Service) bookableRoom(ctx context.Context, roomID int64) (*model.Room, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, classify("get room", err)
	}
	if !room.Active {
		return nil, repository.ErrRoomNotFound
	}
	return room, nil
}

// CheckAvailability сообщает, свободен ли активный номер на интервале [start, end).
func (s *Service) CheckAvailability(ctx context.Context, roomID int64, start, end time.Time) (bool, error) {
	start, end = model.Date(start), model.Date(end)
	if err := s.validateStay(start, end); err != nil {
		return false, err
	}

	if _, err := s.bookableRoom(ctx, roomID); err != nil {
		return false, err
	}

	orders, err := s.repo.ListOrdersByRoom(ctx, roomID, true)
	if err != nil {
		return false, classify("list room orders", err)
	}

	return available(orders, start, end), nil
}

// ListBookedDates возвращает отсортированный список занятых дат номера в пределах горизонта.
// Нулевые границы заменяются на сегодня и сегодня плюс горизонт по умолчанию.
func (s *Service) ListBookedDates(ctx context.Context, roomID int64, from, to time.Time) ([]string, error) {
	if from.IsZero() {
		from = s.now()
	}
	from = model.Date(from)
	if to.IsZero() {
		to = from.AddDate(0, s.horizonMonths, 0)
	}
	to = model.Date(to)
	if to.Before(from) {
		return nil, ErrInvalidStay
	}

	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		return nil, classify("get room", err)
	}

	orders, err := s.repo.ListOrdersByRoom(ctx, roomID, true)
	if err != nil {
		return nil, classify("list room orders", err)
	}

	return bookedDates(orders, from, to), nil
}

func bookedDates(orders []model.Order, from, to time.Time) []string {
	seen := make(map[time.Time]struct{})
	for _, o := range orders {
		if o.Cancelled || o.StartDate.After(to) || o.EndDate.Before(from) {
			continue
		}
		first, last := model.Date(o.StartDate), model.Date(o.EndDate)
		if first.Before(from) {
			first = from
		}
		if last.After(to) {
			last = to
		}
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			seen[d] = struct{}{}
		}
	}

	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	dates := make([]string, 0, len(days))
	for _, d := range days {
		dates = append(dates, d.Format(model.DateLayout))
	}
	return dates
}

// ReserveRoom бронирует номер для участника. Бронирования одного номера выполняются
// под блокировкой, поэтому из пересекающихся параллельных запросов успешен только один.
func (s *Service) ReserveRoom(ctx context.Context, memberID, roomID int64, start, end time.Time) (*model.Order, error) {
	start, end = model.Date(start), model.Date(end)
	if err := s.validateStay(start, end); err != nil {
		return nil, err
	}

	room, err := s.bookableRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, roomLockKey(roomID))
	if err != nil {
		return nil, classify("lock room", err)
	}
	defer unlock()

	orders, err := s.repo.ListOrdersByRoom(ctx, roomID, true)
	if err != nil {
		return nil, classify("list room orders", err)
	}
	if !available(orders, start, end) {
		return nil, repository.ErrRoomUnavailable
	}

	created, err := s.repo.CreateOrder(ctx, model.Order{
		RoomID:     roomID,
		MemberID:   memberID,
		OrderedAt:  s.now().UTC(),
		StartDate:  start,
		EndDate:    end,
		TotalCents: room.PriceCents * Nights(start, end),
	})
	if err != nil {
		return nil, classify("create order", err)
	}

	s.publish(ctx, events.TypeOrderReserved, *created)
	return created, nil
}

func (s *Service) ownedOrder(ctx context.Context, orderID int64, actor model.Actor) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, classify("get order", err)
	}
	if !actor.CanManage(o.MemberID) {
		return nil, ErrForbidden
	}
	return o, nil
}

// CancelOrder отменяет заказ владельца или администратора. Оплаченный заказ тоже можно отменить.
func (s *Service) CancelOrder(ctx context.Context, orderID int64, actor model.Actor) (*model.Order, error) {
	o, err := s.ownedOrder(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	if o.Cancelled {
		return nil, repository.ErrOrderAlreadyCancelled
	}

	if err := s.repo.CancelOrder(ctx, orderID, false); err != nil {
		return nil, classify("cancel order", err)
	}
	o.Cancelled = true

	s.publish(ctx, events.TypeOrderCancelled, *o)
	return o, nil
}

// GetOrder возвращает карточку заказа с названием и ценой номера.
func (s *Service) GetOrder(ctx context.Context, orderID int64, actor model.Actor) (*model.OrderDetails, error) {
	o, err := s.ownedOrder(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}

	room, err := s.repo.GetRoom(ctx, o.RoomID)
	if err != nil {
		return nil, classify("get room", err)
	}

	return &model.OrderDetails{
		Order:          *o,
		RoomName:       room.Name,
		RoomPriceCents: room.PriceCents,
	}, nil
}

// ListOrders возвращает все заказы участника, новые первыми.
func (s *Service) ListOrders(ctx context.Context, memberID int64) ([]model.Order, error) {
	orders, err := s.repo.ListOrdersByMember(ctx, memberID)
	return orders, classify("list member orders", err)
}

// Cart возвращает неоплаченные и неотменённые заказы участника, старые первыми.
func (s *Service) Cart(ctx context.Context, memberID int64) ([]model.Order, error) {
	orders, err := s.repo.ListOrdersByMember(ctx, memberID)
	if err != nil {
		return nil, classify("list member orders", err)
	}

	var cart []model.Order
	for _, o := range orders {
		if o.InCart() {
			cart = append(cart, o)
		}
	}
	sort.SliceStable(cart, func(i, j int) bool {
		if cart[i].OrderedAt.Equal(cart[j].OrderedAt) {
			return cart[i].ID < cart[j].ID
		}
		return cart[i].OrderedAt.Before(cart[j].OrderedAt)
	})
	return cart, nil
}

// RemoveFromCart отменяет неоплаченный заказ из корзины участника.
func (s *Service) RemoveFromCart(ctx context.Context, orderID, memberID int64) error {
	o, err := s.ownedOrder(ctx, orderID, model.Actor{MemberID: memberID})
	if err != nil {
		return err
	}

	if err := s.repo.CancelOrder(ctx, orderID, true); err != nil {
		return classify("remove from cart", err)
	}
	o.Cancelled = true

	s.publish(ctx, events.TypeOrderCancelled, *o)
	return nil
}

// Checkout оплачивает все заказы корзины участника одной транзакцией.
func (s *Service) Checkout(ctx context.Context, memberID int64) ([]model.Order, error) {
	paid, err := s.repo.CheckoutCart(ctx, memberID)
	if err != nil {
		return nil, classify("checkout", err)
	}
	if len(paid) == 0 {
		return nil, ErrEmptyCart
	}

	s.publish(ctx, events.TypeOrderPaid, paid...)
	return paid, nil
}
