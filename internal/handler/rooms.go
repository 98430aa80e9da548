package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/hotelbooking-system/internal/model"
	"github.com/mmeshcher/hotelbooking-system/internal/validation"
)

type roomResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type,omitempty"`
	Address     string  `json:"address,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Capacity    int     `json:"capacity"`
	Active      bool    `json:"active"`
}

func newRoomResponse(room model.Room) roomResponse {
	return roomResponse{
		ID:          room.ID,
		Name:        room.Name,
		Type:        room.Type,
		Address:     room.Address,
		Description: room.Description,
		Price:       centsToAmount(room.PriceCents),
		Capacity:    room.Capacity,
		Active:      room.Active,
	}
}

func newRoomsResponse(rooms []model.Room) []roomResponse {
	resp := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		resp = append(resp, newRoomResponse(room))
	}
	return resp
}

// ListRooms возвращает номера, доступные для бронирования.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListActiveRooms(r.Context())
	if err != nil {
		h.handleError(w, err, "list rooms")
		return
	}

	writeJSON(w, http.StatusOK, newRoomsResponse(rooms))
}

// GetRoom возвращает карточку номера.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}

	room, err := h.service.GetRoom(r.Context(), roomID)
	if err != nil {
		h.handleError(w, err, "get room", zap.Int64("roomID", roomID))
		return
	}

	writeJSON(w, http.StatusOK, newRoomResponse(*room))
}

type availabilityResponse struct {
	RoomID    int64  `json:"room_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Available bool   `json:"available"`
}

// CheckAvailability сообщает, свободен ли номер на указанные даты.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}

	start, err := validation.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "start must be a yyyy-MM-dd date")
		return
	}
	end, err := validation.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "end must be a yyyy-MM-dd date")
		return
	}

	available, err := h.service.CheckAvailability(r.Context(), roomID, start, end)
	if err != nil {
		h.handleError(w, err, "check availability", zap.Int64("roomID", roomID))
		return
	}

	writeJSON(w, http.StatusOK, availabilityResponse{
		RoomID:    roomID,
		StartDate: start.Format(model.DateLayout),
		EndDate:   end.Format(model.DateLayout),
		Available: available,
	})
}

type bookedDatesResponse struct {
	Success  bool     `json:"success"`
	Bookings []string `json:"bookings"`
}

// BookedDates возвращает занятые даты номера для календаря.
// Без параметров from и to используется горизонт по умолчанию.
func (h *Handler) BookedDates(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}

	from, ok := optionalDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := optionalDate(w, r, "to")
	if !ok {
		return
	}

	dates, err := h.service.ListBookedDates(r.Context(), roomID, from, to)
	if err != nil {
		h.handleError(w, err, "list booked dates", zap.Int64("roomID", roomID))
		return
	}
	if dates == nil {
		dates = []string{}
	}

	writeJSON(w, http.StatusOK, bookedDatesResponse{Success: true, Bookings: dates})
}

func optionalDate(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return time.Time{}, true
	}
	d, err := validation.ParseDate(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", name+" must be a yyyy-MM-dd date")
		return time.Time{}, false
	}
	return d, true
}
