package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lunamall/lunamall/internal/domain"
	"github.com/lunamall/lunamall/internal/rules"
)

// ─── Ledger ─────────────────────────────────────────────────────────────────

// GET /api/v1/balance
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	acct, err := s.coord.Balance(r.Context(), account)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// GET /api/v1/history?source_kind=&cursor=&limit=&since=&until=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := domain.HistoryFilter{SourceKind: domain.SourceKind(q.Get("source_kind"))}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		filter.Since = t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid until timestamp")
			return
		}
		filter.Until = t
	}
	page := domain.HistoryPage{}
	if v := q.Get("cursor"); v != "" {
		page.Cursor, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("limit"); v != "" {
		page.Limit, _ = strconv.Atoi(v)
	}

	entries, next, err := s.coord.GetHistory(r.Context(), account, filter, page)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":     entries,
		"next_cursor": next,
	})
}

// ─── Check-In ───────────────────────────────────────────────────────────────

// POST /api/v1/checkin
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	res, err := s.coord.CheckIn(r.Context(), account)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/checkin/history?limit=
func (s *Server) handleCheckInHistory(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.db.CheckInHistory(r.Context(), account, limit)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

// GET /api/v1/checkin/month?month=2006-01
func (s *Server) handleCheckInMonth(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	} else if _, err := time.Parse("2006-01", month); err != nil {
		writeError(w, http.StatusBadRequest, "month must be formatted YYYY-MM")
		return
	}

	records, err := s.db.MonthlyCheckIns(r.Context(), account, month)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	days := make([]string, 0, len(records))
	var totalPoints int64
	for _, rec := range records {
		days = append(days, rec.Day)
		totalPoints += rec.PointsEarned
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"month":        month,
		"days":         days,
		"count":        len(days),
		"total_points": totalPoints,
	})
}

// GET /api/v1/checkin/streak
func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	state, err := s.db.StreakOf(r.Context(), account)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_id":         state.AccountID,
		"last_check_in_date": state.LastCheckInDate,
		"consecutive_days":   state.ConsecutiveDays,
		"cycle_day":          domain.CycleDay(state.ConsecutiveDays),
	})
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

// GET /api/v1/tasks
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	tasks, err := s.db.ListTasks(r.Context(), true)
	if err != nil {
		writeOutcome(w, err)
		return
	}

	now := time.Now()
	progress := make([]domain.TaskProgress, 0, len(tasks))
	for _, task := range tasks {
		comp, err := s.db.TaskCompletionOf(r.Context(), account, task.ID)
		if err != nil {
			writeOutcome(w, err)
			return
		}
		progress = append(progress, rules.Progress(task, comp, now))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": progress})
}

// POST /api/v1/tasks/{code}/complete
func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	res, err := s.coord.CompleteTask(r.Context(), account, chi.URLParam(r, "code"))
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Lottery ────────────────────────────────────────────────────────────────

// GET /api/v1/activities
func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := s.db.ListActivities(r.Context())
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activities": activities})
}

// POST /api/v1/activities/{id}/draw
func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	res, err := s.coord.Draw(r.Context(), account, chi.URLParam(r, "id"))
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/prizes
func (s *Server) handleListPrizes(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	prizes, err := s.db.ListUserPrizes(r.Context(), account)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"prizes": prizes})
}

// ─── Blind Boxes ────────────────────────────────────────────────────────────

// POST /api/v1/recharge-orders
func (s *Server) handleCreateRechargeOrder(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	var req struct {
		PhoneNumber string `json:"phone_number"`
		AmountCents int64  `json:"amount_cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	order, err := s.coord.CreateRechargeOrder(r.Context(), account, req.PhoneNumber, req.AmountCents)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// POST /api/v1/recharge-orders/{id}/complete
func (s *Server) handleCompleteRechargeOrder(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	res, err := s.coord.CompleteRechargeOrder(r.Context(), account, chi.URLParam(r, "id"))
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/boxes
func (s *Server) handleListBoxes(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	boxes, err := s.db.ListBlindBoxes(r.Context(), account)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"boxes": boxes})
}

// POST /api/v1/boxes/{id}/open
func (s *Server) handleOpenBox(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	res, err := s.coord.OpenBlindBox(r.Context(), account, chi.URLParam(r, "id"))
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Points Mall ────────────────────────────────────────────────────────────

// GET /api/v1/products
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.db.ListProducts(r.Context(), true)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

// POST /api/v1/products/{id}/exchange
func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	// An omitted body or quantity means one unit. An explicit non-positive
	// quantity is rejected downstream.
	req := struct {
		Quantity int64 `json:"quantity"`
	}{Quantity: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	res, err := s.coord.ExchangeProduct(r.Context(), account, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/exchanges
func (s *Server) handleListExchanges(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	exchanges, err := s.db.ListExchanges(r.Context(), account)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"exchanges": exchanges})
}

// POST /api/v1/exchanges/{id}/refund
func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	res, err := s.coord.RefundExchange(r.Context(), account, chi.URLParam(r, "id"))
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Invitations ────────────────────────────────────────────────────────────

// POST /api/v1/invitations
func (s *Server) handleRegisterInvitation(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	var req struct {
		InviteeID string `json:"invitee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InviteeID == "" {
		writeError(w, http.StatusBadRequest, "invitee_id is required")
		return
	}
	edge, err := s.coord.RegisterInvitation(r.Context(), account, req.InviteeID)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

// GET /api/v1/invitations
func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	edges, err := s.db.ListInvitations(r.Context(), account)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invitations": edges})
}

// POST /api/v1/invitations/{id}/claim
func (s *Server) handleClaimInvitation(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	res, err := s.coord.ClaimInvitationReward(r.Context(), account, chi.URLParam(r, "id"))
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Platform Hooks ─────────────────────────────────────────────────────────

// POST /api/v1/orders/{id}/grant
func (s *Server) handleGrantOrderPoints(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	var req struct {
		Points int64 `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Points <= 0 {
		writeError(w, http.StatusBadRequest, "points must be positive")
		return
	}
	entry, err := s.coord.GrantOrderPoints(r.Context(), account, chi.URLParam(r, "id"), req.Points)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// POST /api/v1/invitees/{id}/complete
func (s *Server) handleCompleteInvitation(w http.ResponseWriter, r *http.Request) {
	edge, err := s.coord.CompleteInvitation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edge)
}

// ─── Operational ────────────────────────────────────────────────────────────

// POST /api/v1/admin/adjust
func (s *Server) handleAdminAdjust(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
		Delta     int64  `json:"delta"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == "" || req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "account_id and a non-zero delta are required")
		return
	}
	entry, err := s.coord.AdminAdjust(r.Context(), req.AccountID, req.Delta, req.Reason)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// GET /api/v1/debug/ops?limit=
func (s *Server) handleRecentOps(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"operations": s.coord.OpLog().Recent(limit),
	})
}
