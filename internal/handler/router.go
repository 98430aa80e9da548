package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	custommiddleware "github.com/mmeshcher/hotelbooking-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса бронирования.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	publicCORS := cors.New(cors.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/members", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Use(publicCORS.Handler)

			r.Get("/", h.ListRooms)
			r.Get("/{roomID}", h.GetRoom)
			r.Get("/{roomID}/availability", h.CheckAvailability)
			r.Get("/{roomID}/booked-dates", h.BookedDates)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			reserve := http.Handler(http.HandlerFunc(h.ReserveRoom))
			if h.reserveLimiter != nil {
				reserve = h.reserveLimiter.Limit(reserve)
			}
			r.Method(http.MethodPost, "/orders", reserve)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{orderID}", h.GetOrder)
			r.Post("/orders/{orderID}/cancel", h.CancelOrder)

			r.Get("/cart", h.Cart)
			r.Delete("/cart/{orderID}", h.RemoveFromCart)
			r.Post("/cart/checkout", h.Checkout)

			r.Route("/admin", func(r chi.Router) {
				r.Use(custommiddleware.RequireAdmin)

				r.Get("/rooms", h.SearchRooms)
				r.Post("/rooms", h.CreateRoom)
				r.Put("/rooms/{roomID}", h.UpdateRoom)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
