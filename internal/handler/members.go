package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/hotelbooking-system/internal/model"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	MemberID int64  `json:"member_id"`
	Admin    bool   `json:"admin"`
	Token    string `json:"token"`
}

// Register обрабатывает регистрацию нового участника.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation", "email and password are required")
		return
	}

	actor, err := h.service.RegisterMember(r.Context(), req.Email, req.Password, req.Phone)
	if err != nil {
		h.handleError(w, err, "register member")
		return
	}

	h.authorize(w, actor)
}

// Login выполняет аутентификацию участника и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation", "email and password are required")
		return
	}

	actor, err := h.service.AuthenticateMember(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(w, err, "login member")
		return
	}

	h.authorize(w, actor)
}

func (h *Handler) authorize(w http.ResponseWriter, actor model.Actor) {
	token, err := h.authMiddleware.SetAuthCookie(w, actor)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err), zap.Int64("memberID", actor.MemberID))
		writeError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, authResponse{MemberID: actor.MemberID, Admin: actor.Admin, Token: token})
}
