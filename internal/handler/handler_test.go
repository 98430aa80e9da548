package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/hotelbooking-system/internal/middleware"
	"github.com/mmeshcher/hotelbooking-system/internal/model"
	"github.com/mmeshcher/hotelbooking-system/internal/repository"
	"github.com/mmeshcher/hotelbooking-system/internal/service"
)

type stubService struct {
	actor   model.Actor
	authErr error

	rooms   []model.Room
	room    *model.Room
	roomErr error
	page    model.RoomPage
	saved   model.Room
	saveErr error

	available bool
	dates     []string
	datesErr  error
	datesFrom time.Time
	datesTo   time.Time

	order       *model.Order
	orderErr    error
	details     *model.OrderDetails
	orders      []model.Order
	ordersErr   error
	removeErr   error
	checkoutErr error

	reservedBy int64
	reserveEnd time.Time
}

func (s *stubService) RegisterMember(ctx context.Context, email, password, phone string) (model.Actor, error) {
	return s.actor, s.authErr
}

func (s *stubService) AuthenticateMember(ctx context.Context, email, password string) (model.Actor, error) {
	return s.actor, s.authErr
}

func (s *stubService) ListActiveRooms(ctx context.Context) ([]model.Room, error) {
	return s.rooms, s.roomErr
}

func (s *stubService) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	return s.room, s.roomErr
}

func (s *stubService) SearchRooms(ctx context.Context, filter model.RoomFilter) (model.RoomPage, error) {
	return s.page, s.roomErr
}

func (s *stubService) SaveRoom(ctx context.Context, room model.Room) (*model.Room, error) {
	s.saved = room
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	if room.ID == 0 {
		room.ID = 100
	}
	return &room, nil
}

func (s *stubService) CheckAvailability(ctx context.Context, roomID int64, start, end time.Time) (bool, error) {
	return s.available, s.roomErr
}

func (s *stubService) ListBookedDates(ctx context.Context, roomID int64, from, to time.Time) ([]string, error) {
	s.datesFrom, s.datesTo = from, to
	return s.dates, s.datesErr
}

func (s *stubService) ReserveRoom(ctx context.Context, memberID, roomID int64, start, end time.Time) (*model.Order, error) {
	s.reservedBy = memberID
	s.reserveEnd = end
	return s.order, s.orderErr
}

func (s *stubService) CancelOrder(ctx context.Context, orderID int64, actor model.Actor) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubService) GetOrder(ctx context.Context, orderID int64, actor model.Actor) (*model.OrderDetails, error) {
	return s.details, s.orderErr
}

func (s *stubService) ListOrders(ctx context.Context, memberID int64) ([]model.Order, error) {
	return s.orders, s.ordersErr
}

func (s *stubService) Cart(ctx context.Context, memberID int64) ([]model.Order, error) {
	return s.orders, s.ordersErr
}

func (s *stubService) RemoveFromCart(ctx context.Context, orderID, memberID int64) error {
	return s.removeErr
}

func (s *stubService) Checkout(ctx context.Context, memberID int64) ([]model.Order, error) {
	return s.orders, s.checkoutErr
}

func newTestHandler(t *testing.T, svc Service, opts ...Option) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth, opts...)
}

func bearer(t *testing.T, h *Handler, actor model.Actor) string {
	t.Helper()
	token, err := h.authMiddleware.IssueToken(actor)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func serve(h *Handler, method, target, auth string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func sampleOrder() *model.Order {
	return &model.Order{
		ID:         11,
		RoomID:     3,
		MemberID:   42,
		OrderedAt:  time.Date(2024, time.May, 20, 9, 0, 0, 0, time.UTC),
		StartDate:  time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, time.June, 4, 0, 0, 0, 0, time.UTC),
		TotalCents: 750000,
	}
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{actor: model.Actor{MemberID: 42}}
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodPost, "/api/members/register", "", registerRequest{
		Email:    "guest@example.com",
		Password: "secret123",
		Phone:    "0912345678",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatalf("auth cookie not set")
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MemberID != 42 || resp.Token == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		kind string
	}{
		{"duplicate", repository.ErrMemberExists, http.StatusConflict, "member_exists"},
		{"invalid", service.ErrInvalidMember, http.StatusBadRequest, "validation"},
		{"infrastructure", &service.InfrastructureError{Op: "create member", Err: errors.New("db down")}, http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{authErr: tt.err})

			rec := serve(h, http.MethodPost, "/api/members/register", "", registerRequest{
				Email: "guest@example.com", Password: "secret123", Phone: "0912345678",
			})

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if kind := decodeError(t, rec).Error; kind != tt.kind {
				t.Fatalf("error kind = %q, want %q", kind, tt.kind)
			}
		})
	}
}

func TestLogin_UnauthorizedOnInvalidCredentials(t *testing.T) {
	h := newTestHandler(t, &stubService{authErr: service.ErrInvalidCredentials})

	rec := serve(h, http.MethodPost, "/api/members/login", "", credentialsRequest{
		Email: "guest@example.com", Password: "wrong",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestReserveRoom(t *testing.T) {
	svc := &stubService{order: sampleOrder()}
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodPost, "/api/orders", bearer(t, h, model.Actor{MemberID: 42}), reserveRequest{
		RoomID: 3, StartDate: "2024-06-01", EndDate: "2024-06-04",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if svc.reservedBy != 42 {
		t.Fatalf("member from token not passed to service: %d", svc.reservedBy)
	}
	if got := svc.reserveEnd.Format(model.DateLayout); got != "2024-06-04" {
		t.Fatalf("end date = %s", got)
	}

	var resp orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalAmount != 7500 || resp.Nights != 3 || resp.StartDate != "2024-06-01" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestReserveRoom_Errors(t *testing.T) {
	tests := []struct {
		name string
		body reserveRequest
		err  error
		want int
	}{
		{"conflict", reserveRequest{RoomID: 3, StartDate: "2024-06-01", EndDate: "2024-06-02"}, repository.ErrRoomUnavailable, http.StatusConflict},
		{"room not found", reserveRequest{RoomID: 3, StartDate: "2024-06-01", EndDate: "2024-06-02"}, repository.ErrRoomNotFound, http.StatusNotFound},
		{"invalid stay", reserveRequest{RoomID: 3, StartDate: "2024-06-02", EndDate: "2024-06-01"}, service.ErrInvalidStay, http.StatusBadRequest},
		{"malformed date", reserveRequest{RoomID: 3, StartDate: "01/06/2024", EndDate: "2024-06-02"}, nil, http.StatusBadRequest},
		{"missing room", reserveRequest{StartDate: "2024-06-01", EndDate: "2024-06-02"}, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{orderErr: tt.err})

			rec := serve(h, http.MethodPost, "/api/orders", bearer(t, h, model.Actor{MemberID: 1}), tt.body)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestReserveRoom_RequiresAuth(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := serve(h, http.MethodPost, "/api/orders", "", reserveRequest{RoomID: 1})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestReserveRoom_RateLimited(t *testing.T) {
	h := newTestHandler(t, &stubService{order: sampleOrder()}, WithReserveLimiter(middleware.NewRateLimiter(0.001, 1)))
	auth := bearer(t, h, model.Actor{MemberID: 42})
	body := reserveRequest{RoomID: 3, StartDate: "2024-06-01", EndDate: "2024-06-04"}

	if rec := serve(h, http.MethodPost, "/api/orders", auth, body); rec.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if rec := serve(h, http.MethodPost, "/api/orders", auth, body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestBookedDates(t *testing.T) {
	svc := &stubService{dates: []string{"2024-06-01", "2024-06-02"}}
	h := newTestHandler(t, svc)

	rec := serve(h, http.MethodGet, "/api/rooms/3/booked-dates?from=2024-06-01", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"success":true,"bookings":["2024-06-01","2024-06-02"]}` {
		t.Fatalf("body = %s", got)
	}
	if svc.datesFrom.Format(model.DateLayout) != "2024-06-01" || !svc.datesTo.IsZero() {
		t.Fatalf("unexpected horizon: %v .. %v", svc.datesFrom, svc.datesTo)
	}
}

func TestBookedDates_EmptyAndCORS(t *testing.T) {
	h := newTestHandler(t, &stubService{}, WithCORSOrigins([]string{"https://calendar.example.com"}))

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/3/booked-dates", nil)
	req.Header.Set("Origin", "https://calendar.example.com")
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"success":true,"bookings":[]}` {
		t.Fatalf("body = %s", got)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "https://calendar.example.com" {
		t.Fatalf("Access-Control-Allow-Origin = %q", origin)
	}
}

func TestBookedDates_MissingRoom(t *testing.T) {
	h := newTestHandler(t, &stubService{datesErr: repository.ErrRoomNotFound})

	rec := serve(h, http.MethodGet, "/api/rooms/3/booked-dates", "", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetRoom_NotFound(t *testing.T) {
	h := newTestHandler(t, &stubService{roomErr: repository.ErrRoomNotFound})

	rec := serve(h, http.MethodGet, "/api/rooms/3", "", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCheckAvailability(t *testing.T) {
	h := newTestHandler(t, &stubService{available: true})

	rec := serve(h, http.MethodGet, "/api/rooms/3/availability?start=2024-06-01&end=2024-06-03", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp availabilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Available || resp.RoomID != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	rec = serve(h, http.MethodGet, "/api/rooms/3/availability?start=2024-06-01", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing end: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetOrders_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{orders: []model.Order{}})

	rec := serve(h, http.MethodGet, "/api/orders", bearer(t, h, model.Actor{MemberID: 1}), nil)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestGetOrder_Details(t *testing.T) {
	h := newTestHandler(t, &stubService{details: &model.OrderDetails{
		Order:          *sampleOrder(),
		RoomName:       "Garden Suite",
		RoomPriceCents: 250000,
	}})

	rec := serve(h, http.MethodGet, "/api/orders/11", bearer(t, h, model.Actor{MemberID: 42}), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["room_name"] != "Garden Suite" || resp["room_price"] != 2500.0 || resp["id"] != 11.0 {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestOrderMutations_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		svc    *stubService
		want   int
	}{
		{"cancel forbidden", http.MethodPost, "/api/orders/5/cancel", &stubService{orderErr: service.ErrForbidden}, http.StatusForbidden},
		{"cancel twice", http.MethodPost, "/api/orders/5/cancel", &stubService{orderErr: repository.ErrOrderAlreadyCancelled}, http.StatusConflict},
		{"cancel missing", http.MethodPost, "/api/orders/5/cancel", &stubService{orderErr: repository.ErrOrderNotFound}, http.StatusNotFound},
		{"cancel ok", http.MethodPost, "/api/orders/5/cancel", &stubService{order: sampleOrder()}, http.StatusOK},
		{"remove paid", http.MethodDelete, "/api/cart/5", &stubService{removeErr: repository.ErrOrderPaid}, http.StatusConflict},
		{"remove ok", http.MethodDelete, "/api/cart/5", &stubService{}, http.StatusOK},
		{"bad id", http.MethodDelete, "/api/cart/abc", &stubService{}, http.StatusBadRequest},
		{"empty cart", http.MethodPost, "/api/cart/checkout", &stubService{checkoutErr: service.ErrEmptyCart}, http.StatusUnprocessableEntity},
		{"checkout ok", http.MethodPost, "/api/cart/checkout", &stubService{orders: []model.Order{*sampleOrder()}}, http.StatusOK},
		{"cart empty", http.MethodGet, "/api/cart", &stubService{}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, tt.svc)

			rec := serve(h, tt.method, tt.target, bearer(t, h, model.Actor{MemberID: 1}), nil)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAdminRoutes(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	body := roomRequest{Name: "Deluxe", Price: 2500.5, Capacity: 2}

	rec := serve(h, http.MethodPost, "/api/admin/rooms", bearer(t, h, model.Actor{MemberID: 1}), body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = serve(h, http.MethodPost, "/api/admin/rooms", bearer(t, h, model.Actor{MemberID: 2, Admin: true}), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if svc.saved.PriceCents != 250050 || !svc.saved.Active {
		t.Fatalf("unexpected saved room: %+v", svc.saved)
	}

	inactive := false
	body.Active = &inactive
	rec = serve(h, http.MethodPut, "/api/admin/rooms/7", bearer(t, h, model.Actor{MemberID: 2, Admin: true}), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.saved.ID != 7 || svc.saved.Active {
		t.Fatalf("unexpected updated room: %+v", svc.saved)
	}

	rec = serve(h, http.MethodGet, "/api/admin/rooms?active=maybe", bearer(t, h, model.Actor{MemberID: 2, Admin: true}), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("search status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListRooms_InfrastructureError(t *testing.T) {
	h := newTestHandler(t, &stubService{roomErr: &service.InfrastructureError{Op: "list rooms", Err: errors.New("db down")}})

	rec := serve(h, http.MethodGet, "/api/rooms", "", nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
