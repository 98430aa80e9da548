package handler

import (
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mmeshcher/hotelbooking-system/internal/model"
)

type roomRequest struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Address     string  `json:"address"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Capacity    int     `json:"capacity"`
	Active      *bool   `json:"active"`
}

func (req roomRequest) room(id int64) model.Room {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return model.Room{
		ID:          id,
		Name:        req.Name,
		Type:        req.Type,
		Address:     req.Address,
		Description: req.Description,
		PriceCents:  int64(math.Round(req.Price * 100)),
		Capacity:    req.Capacity,
		Active:      active,
	}
}

type roomPageResponse struct {
	Rooms      []roomResponse `json:"rooms"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// SearchRooms возвращает страницу номеров по ключевому слову и признаку активности.
func (h *Handler) SearchRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.RoomFilter{Keyword: q.Get("keyword")}

	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "active must be a boolean")
			return
		}
		filter.Active = &active
	}

	for name, dst := range map[string]*int{"page": &filter.Page, "page_size": &filter.PageSize} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", name+" must be a number")
			return
		}
		*dst = n
	}

	page, err := h.service.SearchRooms(r.Context(), filter)
	if err != nil {
		h.handleError(w, err, "search rooms")
		return
	}

	writeJSON(w, http.StatusOK, roomPageResponse{
		Rooms:      newRoomsResponse(page.Rooms),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

// CreateRoom добавляет номер.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	room, err := h.service.SaveRoom(r.Context(), req.room(0))
	if err != nil {
		h.handleError(w, err, "create room")
		return
	}

	writeJSON(w, http.StatusCreated, newRoomResponse(*room))
}

// UpdateRoom изменяет номер, в том числе включает и отключает его.
func (h *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}

	var req roomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	room, err := h.service.SaveRoom(r.Context(), req.room(roomID))
	if err != nil {
		h.handleError(w, err, "update room", zap.Int64("roomID", roomID))
		return
	}

	writeJSON(w, http.StatusOK, newRoomResponse(*room))
}
