// Package api provides the HTTP server for the rewards engine. Callers
// identify the acting account with the X-Account-ID header; authentication
// is terminated by the platform gateway in front of this service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lunamall/lunamall/internal/app/coordinator"
	"github.com/lunamall/lunamall/internal/domain"
	"github.com/lunamall/lunamall/internal/infra/sqlite"
)

// accountHeader names the acting account on every request.
const accountHeader = "X-Account-ID"

// Server is the rewards HTTP API server.
type Server struct {
	coord          *coordinator.Coordinator
	db             *sqlite.DB
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(coord *coordinator.Coordinator, db *sqlite.DB) *Server {
	return &Server{coord: coord, db: db}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Ledger
		r.Get("/balance", s.handleBalance)
		r.Get("/history", s.handleHistory)

		// Check-in
		r.Post("/checkin", s.handleCheckIn)
		r.Get("/checkin/history", s.handleCheckInHistory)
		r.Get("/checkin/month", s.handleCheckInMonth)
		r.Get("/checkin/streak", s.handleStreak)

		// Tasks
		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks/{code}/complete", s.handleCompleteTask)

		// Lottery
		r.Get("/activities", s.handleListActivities)
		r.Post("/activities/{id}/draw", s.handleDraw)
		r.Get("/prizes", s.handleListPrizes)

		// Blind boxes
		r.Post("/recharge-orders", s.handleCreateRechargeOrder)
		r.Post("/recharge-orders/{id}/complete", s.handleCompleteRechargeOrder)
		r.Get("/boxes", s.handleListBoxes)
		r.Post("/boxes/{id}/open", s.handleOpenBox)

		// Points mall
		r.Get("/products", s.handleListProducts)
		r.Post("/products/{id}/exchange", s.handleExchange)
		r.Get("/exchanges", s.handleListExchanges)
		r.Post("/exchanges/{id}/refund", s.handleRefund)

		// Invitations
		r.Post("/invitations", s.handleRegisterInvitation)
		r.Get("/invitations", s.handleListInvitations)
		r.Post("/invitations/{id}/claim", s.handleClaimInvitation)

		// Hooks from the shop backend
		r.Post("/orders/{id}/grant", s.handleGrantOrderPoints)
		r.Post("/invitees/{id}/complete", s.handleCompleteInvitation)

		// Operational
		r.Post("/admin/adjust", s.handleAdminAdjust)
		r.Get("/debug/ops", s.handleRecentOps)
	})

	return r
}

// accountID extracts the acting account from the request, writing a 400 and
// returning false when the header is missing.
func accountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(accountHeader)
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing "+accountHeader+" header")
		return "", false
	}
	return id, true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeOutcome maps an operation error onto the wire: business rejections
// become structured 4xx responses, everything else is a 500.
func writeOutcome(w http.ResponseWriter, err error) {
	if rej, ok := domain.IsRejection(err); ok {
		writeJSON(w, rejectionStatus(err), map[string]interface{}{
			"error": map[string]interface{}{
				"message": rej.Error(),
				"type":    "rejected",
				"detail":  rej,
			},
		})
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// rejectionStatus picks the HTTP status for a business rejection.
func rejectionStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrActivityNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrBoxNotFound),
		errors.Is(err, domain.ErrExchangeNotFound),
		errors.Is(err, domain.ErrInvitationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBoxNotOwned),
		errors.Is(err, domain.ErrInvitationNotOwned):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyCheckedIn),
		errors.Is(err, domain.ErrDuplicateSource),
		errors.Is(err, domain.ErrTaskMaxCompletionsReached),
		errors.Is(err, domain.ErrRewardAlreadyClaimed),
		errors.Is(err, domain.ErrOrderFinalized),
		errors.Is(err, domain.ErrBoxNotOpenable):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+accountHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
