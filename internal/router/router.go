package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"playmind-backend/internal/handlers"
	"playmind-backend/internal/middleware"
	"playmind-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	childHandler *handlers.ChildHandler,
	gameHandler *handlers.GameHandler,
	resultHandler *handlers.ResultHandler,
	reportHandler *handlers.ReportHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Child Profile Routes ────
		r.Route("/children", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", childHandler.Create)
			r.Get("/", childHandler.List)
			r.Get("/{childID}", childHandler.Get)

			// Per-child report surface
			r.Route("/{childID}/report", func(r chi.Router) {
				r.Get("/status", reportHandler.Status)
				r.Get("/", reportHandler.Detail)
				r.Post("/email", reportHandler.RequestEmail)
			})
		})

		// ──── Game Routes ────
		r.Route("/games", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", gameHandler.List)
		})

		// ──── Result Routes ────
		r.Route("/results", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", resultHandler.Submit)
		})

		// ──── Report PIN Routes ────
		r.Route("/report-pin", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", reportHandler.SetPin)
			r.Post("/verify", reportHandler.VerifyPin)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{jobID}", jobHandler.Get)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
