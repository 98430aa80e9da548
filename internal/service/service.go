// Package service реализует бизнес-логику сервиса бронирования отеля.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/hotelbooking-system/internal/events"
	"github.com/mmeshcher/hotelbooking-system/internal/lock"
	"github.com/mmeshcher/hotelbooking-system/internal/model"
	"github.com/mmeshcher/hotelbooking-system/internal/repository"
	"github.com/mmeshcher/hotelbooking-system/internal/validation"
)

const (
	defaultHorizonMonths = 3
	defaultMaxStayNights = 365
	defaultPageSize      = 10
	maxPageSize          = 100
	publishTimeout       = 3 * time.Second
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateMember(ctx context.Context, email, phone string, passwordHash []byte) (int64, error)
	GetMemberByEmail(ctx context.Context, email string) (*model.Member, error)
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	ListActiveRooms(ctx context.Context) ([]model.Room, error)
	SearchRooms(ctx context.Context, filter model.RoomFilter) (model.RoomPage, error)
	CreateRoom(ctx context.Context, room model.Room) (int64, error)
	UpdateRoom(ctx context.Context, room model.Room) error
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrdersByRoom(ctx context.Context, roomID int64, activeOnly bool) ([]model.Order, error)
	ListOrdersByMember(ctx context.Context, memberID int64) ([]model.Order, error)
	CreateOrder(ctx context.Context, order model.Order) (*model.Order, error)
	CancelOrder(ctx context.Context, id int64, unpaidOnly bool) error
	CheckoutCart(ctx context.Context, memberID int64) ([]model.Order, error)
}

// RoomLocker обеспечивает взаимное исключение бронирований одного номера.
type RoomLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Publisher публикует события жизненного цикла заказов.
type Publisher interface {
	Publish(ctx context.Context, ev events.OrderEvent) error
}

// Option настраивает Service.
type Option func(*Service)

// WithLocker задаёт блокировку номеров, например распределённую в Redis.
func WithLocker(l RoomLocker) Option {
	return func(s *Service) { s.locker = l }
}

// WithPublisher задаёт получателя событий заказов.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHorizonMonths задаёт горизонт календаря занятых дат по умолчанию.
func WithHorizonMonths(months int) Option {
	return func(s *Service) {
		if months > 0 {
			s.horizonMonths = months
		}
	}
}

// WithMaxStayNights задаёт наибольшую допустимую длительность проживания в ночах.
func WithMaxStayNights(nights int) Option {
	return func(s *Service) {
		if nights > 0 {
			s.maxStayNights = int64(nights)
		}
	}
}

// WithBcryptCost задаёт стоимость хеширования паролей.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service содержит бизнес-логику сервиса бронирования.
type Service struct {
	repo          Repository
	locker        RoomLocker
	publisher     Publisher
	logger        *zap.Logger
	now           func() time.Time
	horizonMonths int
	maxStayNights int64
	bcryptCost    int
}

// NewService создаёт сервис с указанным репозиторием.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		locker:        lock.NewLocal(),
		publisher:     events.NopPublisher{},
		logger:        zap.NewNop(),
		now:           time.Now,
		horizonMonths: defaultHorizonMonths,
		maxStayNights: defaultMaxStayNights,
		bcryptCost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterMember регистрирует нового участника.
func (s *Service) RegisterMember(ctx context.Context, email, password, phone string) (model.Actor, error) {
	email = normalizeEmail(email)
	switch {
	case !validation.IsValidEmail(email):
		return model.Actor{}, fmt.Errorf("%w: malformed e-mail", ErrInvalidMember)
	case !validation.IsValidPassword(password):
		return model.Actor{}, fmt.Errorf("%w: password must be at least 8 letters and digits", ErrInvalidMember)
	case !validation.IsValidPhone(phone):
		return model.Actor{}, fmt.Errorf("%w: malformed phone number", ErrInvalidMember)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return model.Actor{}, classify("hash password", err)
	}

	id, err := s.repo.CreateMember(ctx, email, phone, hashed)
	if err != nil {
		return model.Actor{}, classify("create member", err)
	}
	return model.Actor{MemberID: id}, nil
}

// AuthenticateMember проверяет e-mail и пароль участника.
func (s *Service) AuthenticateMember(ctx context.Context, email, password string) (model.Actor, error) {
	m, err := s.repo.GetMemberByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return model.Actor{}, ErrInvalidCredentials
		}
		return model.Actor{}, classify("get member", err)
	}

	if err := bcrypt.CompareHashAndPassword(m.PasswordHash, []byte(password)); err != nil {
		return model.Actor{}, ErrInvalidCredentials
	}

	return model.Actor{MemberID: m.ID, Admin: m.Admin}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ListActiveRooms возвращает номера, доступные для бронирования.
func (s *Service) ListActiveRooms(ctx context.Context) ([]model.Room, error) {
	rooms, err := s.repo.ListActiveRooms(ctx)
	return rooms, classify("list rooms", err)
}

// GetRoom возвращает активный номер по идентификатору. Отключённый номер считается ненайденным.
func (s *Service) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	return s.bookableRoom(ctx, id)
}

// SearchRooms возвращает страницу номеров для администратора.
func (s *Service) SearchRooms(ctx context.Context, filter model.RoomFilter) (model.RoomPage, error) {
	filter.Keyword = strings.TrimSpace(filter.Keyword)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	page, err := s.repo.SearchRooms(ctx, filter)
	return page, classify("search rooms", err)
}

// SaveRoom создаёт номер, если идентификатор не задан, иначе обновляет существующий.
func (s *Service) SaveRoom(ctx context.Context, room model.Room) (*model.Room, error) {
	room.Name = strings.TrimSpace(room.Name)
	switch {
	case room.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRoom)
	case room.PriceCents <= 0:
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidRoom)
	case room.Capacity <= 0:
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidRoom)
	}

	if room.ID == 0 {
		id, err := s.repo.CreateRoom(ctx, room)
		if err != nil {
			return nil, classify("create room", err)
		}
		room.ID = id
		return &room, nil
	}

	if err := s.repo.UpdateRoom(ctx, room); err != nil {
		return nil, classify("update room", err)
	}
	return &room, nil
}

func (s *Service) publish(ctx context.Context, eventType string, orders ...model.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	at := s.now()
	for _, o := range orders {
		if err := s.publisher.Publish(ctx, events.NewOrderEvent(eventType, o, at)); err != nil {
			s.logger.Warn("order event not published",
				zap.String("type", eventType), zap.Int64("orderID", o.ID), zap.Error(err))
		}
	}
}
