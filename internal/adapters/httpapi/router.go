package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// AuthMiddleware guards every /v1 route except the join flow.
	AuthMiddleware func(http.Handler) http.Handler

	AllowedOrigins []string
	Log            *zap.Logger
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", idempotencyHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
	}).Handler)

	// Health endpoint is unauthenticated (used for infra checks).
	r.Get("/healthz", s.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/invites/resolve", s.resolveInvite)
		r.Post("/sessions", s.createSession)

		r.Group(func(r chi.Router) {
			if opts.AuthMiddleware != nil {
				r.Use(opts.AuthMiddleware)
			}

			r.Get("/me", s.me)
			r.Get("/participants", s.listParticipants)
			r.Delete("/participants/{participantId}", s.removeParticipant)
			r.Get("/trip", s.getTrip)
			r.Put("/trip/title", s.renameTrip)
			r.Get("/invite/qrcode", s.inviteQRCode)

			r.Get("/lodging", s.listLodging)
			r.Post("/lodging", s.createLodging)
			r.Post("/lodging/{id}/votes", s.voteLodging)
			r.Post("/lodging/{id}/comments", s.commentLodging)
			r.Delete("/lodging/{id}", s.deleteLodging)

			r.Get("/expenses", s.listExpenses)
			r.Post("/expenses", s.createExpense)
			r.Get("/expenses/balances", s.expenseBalances)
			r.Delete("/expenses/{id}", s.deleteExpense)

			r.Get("/food", s.foodBoard)
			r.Post("/food", s.createFood)
			r.Patch("/food/{id}", s.updateFood)
			r.Delete("/food/{id}", s.deleteFood)

			r.Get("/activities", s.activityBoard)
			r.Post("/activities", s.createActivity)
			r.Patch("/activities/{id}", s.updateActivity)
			r.Delete("/activities/{id}", s.deleteActivity)

			r.Get("/game/{kind}/questions", s.listQuestions)
			r.Post("/game/{kind}/questions", s.createQuestion)
			r.Delete("/game/{kind}/questions/{id}", s.deleteQuestion)
			r.Get("/game/{kind}/draw", s.drawQuestion)

			r.Get("/stream/{collection}", s.stream)
		})
	})
	return r
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
