// Package model содержит доменные сущности сервиса бронирования отеля.
package model

import "time"

// DateLayout задаёт формат календарной даты в API и событиях.
const DateLayout = "2006-01-02"

// Member представляет зарегистрированного участника (гостя) отеля.
type Member struct {
	ID           int64
	Email        string
	Phone        string
	PasswordHash []byte
	Admin        bool
	CreatedAt    time.Time
}

// Room описывает номер отеля. Забронировать можно только активный номер.
type Room struct {
	ID          int64
	Name        string
	Type        string
	Address     string
	Description string
	PriceCents  int64
	Capacity    int
	Active      bool
}

// Order описывает бронирование номера на полуоткрытый интервал [StartDate, EndDate).
type Order struct {
	ID         int64
	RoomID     int64
	MemberID   int64
	OrderedAt  time.Time
	StartDate  time.Time
	EndDate    time.Time
	Paid       bool
	Cancelled  bool
	TotalCents int64
}

// InCart сообщает, находится ли заказ в корзине: не оплачен и не отменён.
func (o Order) InCart() bool {
	return !o.Paid && !o.Cancelled
}

// OccupiedUntil возвращает конец интервала, который заказ фактически занимает.
// Заезд и выезд в один день занимают одни сутки.
func (o Order) OccupiedUntil() time.Time {
	return OccupiedUntil(o.StartDate, o.EndDate)
}

// OccupiedUntil возвращает конец занимаемого интервала для пары дат заезда и выезда.
func OccupiedUntil(start, end time.Time) time.Time {
	if next := start.AddDate(0, 0, 1); end.Before(next) {
		return next
	}
	return end
}

// OrderDetails дополняет заказ данными номера для карточки заказа.
type OrderDetails struct {
	Order
	RoomName       string
	RoomPriceCents int64
}

// Actor описывает того, кто выполняет операцию над заказом.
type Actor struct {
	MemberID int64
	Admin    bool
}

// CanManage сообщает, может ли участник изменять заказ указанного владельца.
func (a Actor) CanManage(ownerID int64) bool {
	return a.Admin || a.MemberID == ownerID
}

// RoomFilter задаёт параметры поиска номеров в административном списке.
type RoomFilter struct {
	Keyword  string
	Active   *bool
	Page     int
	PageSize int
}

// RoomPage содержит страницу результатов поиска номеров.
type RoomPage struct {
	Rooms      []Room
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Date приводит момент времени к календарной дате в UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
