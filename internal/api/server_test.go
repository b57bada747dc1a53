package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lunamall/lunamall/internal/app/coordinator"
	"github.com/lunamall/lunamall/internal/domain"
	"github.com/lunamall/lunamall/internal/infra/sqlite"
)

// ─── Rewards API Tests ──────────────────────────────────────────────────────

func setupAPI(t *testing.T) (http.Handler, *sqlite.DB, *coordinator.Coordinator) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	coord := coordinator.New(db, coordinator.DefaultConfig())
	return NewServer(coord, db).Handler(), db, coord
}

func doJSON(t *testing.T, h http.Handler, method, path, account string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if account != "" {
		req.Header.Set(accountHeader, account)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return resp
}

func TestAPI_Health(t *testing.T) {
	h, _, _ := setupAPI(t)

	w := doJSON(t, h, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAPI_MissingAccountHeader(t *testing.T) {
	h, _, _ := setupAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/checkin", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAPI_CheckIn(t *testing.T) {
	h, _, _ := setupAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/checkin", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["points_earned"] != float64(10) {
		t.Errorf("expected points_earned=10, got %v", resp["points_earned"])
	}
	if resp["consecutive_days"] != float64(1) {
		t.Errorf("expected consecutive_days=1, got %v", resp["consecutive_days"])
	}

	// Same day again conflicts.
	w = doJSON(t, h, http.MethodPost, "/api/v1/checkin", "alice", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second check-in, got %d", w.Code)
	}
	resp = decode(t, w)
	errObj, ok := resp["error"].(map[string]interface{})
	if !ok || errObj["type"] != "rejected" {
		t.Errorf("expected rejected outcome, got %v", resp["error"])
	}
}

func TestAPI_BalanceAndHistory(t *testing.T) {
	h, _, coord := setupAPI(t)

	if _, err := coord.AdminAdjust(context.Background(), "alice", 250, "seed"); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	w := doJSON(t, h, http.MethodGet, "/api/v1/balance", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := decode(t, w); resp["balance"] != float64(250) {
		t.Errorf("expected balance=250, got %v", resp["balance"])
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/history?limit=10", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode(t, w)
	entries, ok := resp["entries"].([]interface{})
	if !ok || len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %v", resp["entries"])
	}
}

func TestAPI_HistorySourceKindFilter(t *testing.T) {
	h, _, coord := setupAPI(t)

	if _, err := coord.AdminAdjust(context.Background(), "alice", 100, "seed"); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if _, err := coord.CheckIn(context.Background(), "alice"); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	w := doJSON(t, h, http.MethodGet, "/api/v1/history?source_kind=check_in", "alice", nil)
	resp := decode(t, w)
	entries := resp["entries"].([]interface{})
	if len(entries) != 1 {
		t.Fatalf("expected 1 check_in entry, got %d", len(entries))
	}
	entry := entries[0].(map[string]interface{})
	if entry["source_kind"] != "check_in" {
		t.Errorf("expected source_kind=check_in, got %v", entry["source_kind"])
	}
}

func TestAPI_CheckInMonth(t *testing.T) {
	h, db, _ := setupAPI(t)

	days := []string{"2025-06-01", "2025-06-02", "2025-07-01"}
	err := db.WithTx(context.Background(), func(tx *sqlite.Tx) error {
		for i, day := range days {
			if err := tx.InsertCheckInRecord(domain.CheckInRecord{
				AccountID:       "alice",
				Day:             day,
				ConsecutiveDays: int64(i + 1),
				PointsEarned:    10,
				CreatedAt:       time.Now(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed check-ins: %v", err)
	}

	w := doJSON(t, h, http.MethodGet, "/api/v1/checkin/month?month=2025-06", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode(t, w)
	if resp["count"] != float64(2) {
		t.Errorf("expected 2 check-ins in June, got %v", resp["count"])
	}
	if resp["total_points"] != float64(20) {
		t.Errorf("expected total_points=20, got %v", resp["total_points"])
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/checkin/month?month=June", "alice", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed month, got %d", w.Code)
	}
}

func TestAPI_TasksListAndComplete(t *testing.T) {
	h, db, _ := setupAPI(t)

	task := domain.Task{
		ID:           "task-1",
		Code:         "first_order",
		Title:        "Place your first order",
		PointsReward: 30,
		Type:         domain.TaskOneTime,
		Active:       true,
	}
	if err := db.InsertTask(context.Background(), task); err != nil {
		t.Fatalf("insert task: %v", err)
	}

	w := doJSON(t, h, http.MethodGet, "/api/v1/tasks", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode(t, w)
	if tasks := resp["tasks"].([]interface{}); len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}

	w = doJSON(t, h, http.MethodPost, "/api/v1/tasks/first_order/complete", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp["points_earned"] != float64(30) {
		t.Errorf("expected points_earned=30, got %v", resp["points_earned"])
	}

	// One-time task completed twice conflicts.
	w = doJSON(t, h, http.MethodPost, "/api/v1/tasks/first_order/complete", "alice", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeat completion, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/api/v1/tasks/no_such_task/complete", "alice", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown task, got %d", w.Code)
	}
}

func TestAPI_DrawFlow(t *testing.T) {
	h, db, coord := setupAPI(t)
	now := time.Now()

	activity := domain.LotteryActivity{
		ID:         "act-1",
		Name:       "Summer Lucky Draw",
		Status:     domain.ActivityActive,
		Active:     true,
		StartAt:    now.Add(-time.Hour),
		EndAt:      now.Add(time.Hour),
		PointsCost: 10,
	}
	if err := db.InsertActivity(context.Background(), activity); err != nil {
		t.Fatalf("insert activity: %v", err)
	}
	if _, err := db.InsertCandidate(context.Background(), domain.PrizeCandidate{
		PoolID:         "act-1",
		Name:           "5 bonus points",
		Type:           domain.PrizePoints,
		Weight:         100,
		RemainingStock: domain.UnboundedStock,
		PointsValue:    5,
		Active:         true,
	}); err != nil {
		t.Fatalf("insert candidate: %v", err)
	}

	// Without points the draw is rejected.
	w := doJSON(t, h, http.MethodPost, "/api/v1/activities/act-1/draw", "alice", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without points, got %d (body %q)", w.Code, w.Body.String())
	}

	if _, err := coord.AdminAdjust(context.Background(), "alice", 100, "seed"); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	w = doJSON(t, h, http.MethodPost, "/api/v1/activities/act-1/draw", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["new_balance"] != float64(95) { // 100 - 10 cost + 5 payout
		t.Errorf("expected new_balance=95, got %v", resp["new_balance"])
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/prizes", "alice", nil)
	resp = decode(t, w)
	if prizes := resp["prizes"].([]interface{}); len(prizes) != 1 {
		t.Fatalf("expected 1 prize, got %d", len(prizes))
	}

	w = doJSON(t, h, http.MethodPost, "/api/v1/activities/no-such/draw", "alice", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown activity, got %d", w.Code)
	}
}

func TestAPI_ExchangeAndRefund(t *testing.T) {
	h, db, coord := setupAPI(t)

	if err := db.InsertProduct(context.Background(), domain.PointsProduct{
		ID:             "prod-1",
		Name:           "Canvas tote",
		PointsRequired: 40,
		RemainingStock: 5,
		Active:         true,
	}); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	if _, err := coord.AdminAdjust(context.Background(), "alice", 100, "seed"); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	w := doJSON(t, h, http.MethodPost, "/api/v1/products/prod-1/exchange", "alice", map[string]interface{}{"quantity": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["new_balance"] != float64(60) {
		t.Errorf("expected new_balance=60, got %v", resp["new_balance"])
	}
	exchange := resp["exchange"].(map[string]interface{})
	exchangeID := exchange["id"].(string)

	w = doJSON(t, h, http.MethodPost, "/api/v1/exchanges/"+exchangeID+"/refund", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on refund, got %d (body %q)", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp["new_balance"] != float64(100) {
		t.Errorf("expected new_balance=100 after refund, got %v", resp["new_balance"])
	}

	// Refunding another account's exchange is not visible.
	w = doJSON(t, h, http.MethodPost, "/api/v1/exchanges/"+exchangeID+"/refund", "bob", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign exchange, got %d", w.Code)
	}
}

func TestAPI_ExchangeQuantityValidation(t *testing.T) {
	h, db, coord := setupAPI(t)

	if err := db.InsertProduct(context.Background(), domain.PointsProduct{
		ID:             "prod-1",
		Name:           "Canvas tote",
		PointsRequired: 40,
		RemainingStock: 5,
		Active:         true,
	}); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	if _, err := coord.AdminAdjust(context.Background(), "alice", 100, "seed"); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	// An explicit non-positive quantity is refused, not coerced to one.
	w := doJSON(t, h, http.MethodPost, "/api/v1/products/prod-1/exchange", "alice", map[string]interface{}{"quantity": -2})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative quantity, got %d (body %q)", w.Code, w.Body.String())
	}
	w = doJSON(t, h, http.MethodPost, "/api/v1/products/prod-1/exchange", "alice", map[string]interface{}{"quantity": 0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero quantity, got %d (body %q)", w.Code, w.Body.String())
	}

	// An omitted body still means one unit.
	w = doJSON(t, h, http.MethodPost, "/api/v1/products/prod-1/exchange", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for omitted body, got %d (body %q)", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp["new_balance"] != float64(60) {
		t.Errorf("expected new_balance=60, got %v", resp["new_balance"])
	}
}

func TestAPI_InvitationFlow(t *testing.T) {
	h, _, _ := setupAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/invitations", "alice", map[string]string{"invitee_id": "bob"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %q)", w.Code, w.Body.String())
	}
	edge := decode(t, w)
	edgeID := edge["id"].(string)

	// Claim before the invitee completes registration is rejected.
	w = doJSON(t, h, http.MethodPost, "/api/v1/invitations/"+edgeID+"/claim", "alice", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 before completion, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/api/v1/invitees/bob/complete", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on completion, got %d (body %q)", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/api/v1/invitations/"+edgeID+"/claim", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on claim, got %d (body %q)", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp["new_balance"] != float64(50) {
		t.Errorf("expected new_balance=50, got %v", resp["new_balance"])
	}

	w = doJSON(t, h, http.MethodPost, "/api/v1/invitations/"+edgeID+"/claim", "alice", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double claim, got %d", w.Code)
	}

	// Registering the same invitee again conflicts.
	w = doJSON(t, h, http.MethodPost, "/api/v1/invitations", "carol", map[string]string{"invitee_id": "bob"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for re-invited invitee, got %d", w.Code)
	}
}

func TestAPI_BlindBoxFlow(t *testing.T) {
	h, db, _ := setupAPI(t)
	now := time.Now()

	cfg := coordinator.DefaultConfig()
	if err := db.InsertActivity(context.Background(), domain.LotteryActivity{
		ID:      cfg.BlindBoxPoolID,
		Name:    "Recharge blind box",
		Status:  domain.ActivityActive,
		Active:  true,
		StartAt: now.Add(-time.Hour),
		EndAt:   now.Add(24 * time.Hour),
	}); err != nil {
		t.Fatalf("insert activity: %v", err)
	}
	if _, err := db.InsertCandidate(context.Background(), domain.PrizeCandidate{
		PoolID:         cfg.BlindBoxPoolID,
		Name:           "Phone stand",
		Type:           domain.PrizePhysical,
		Weight:         1,
		RemainingStock: domain.UnboundedStock,
		Active:         true,
	}); err != nil {
		t.Fatalf("insert candidate: %v", err)
	}

	w := doJSON(t, h, http.MethodPost, "/api/v1/recharge-orders", "alice",
		map[string]interface{}{"phone_number": "13800000000", "amount_cents": 5000})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %q)", w.Code, w.Body.String())
	}
	order := decode(t, w)
	orderID := order["id"].(string)

	w = doJSON(t, h, http.MethodPost, "/api/v1/recharge-orders/"+orderID+"/complete", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on completion, got %d (body %q)", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	box := resp["box"].(map[string]interface{})
	boxID := box["id"].(string)

	w = doJSON(t, h, http.MethodPost, "/api/v1/boxes/"+boxID+"/open", "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on open, got %d (body %q)", w.Code, w.Body.String())
	}

	// Opening twice conflicts.
	w = doJSON(t, h, http.MethodPost, "/api/v1/boxes/"+boxID+"/open", "alice", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on reopen, got %d", w.Code)
	}

	// Another account cannot open it.
	w = doJSON(t, h, http.MethodPost, "/api/v1/boxes/"+boxID+"/open", "bob", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign box, got %d", w.Code)
	}
}

func TestAPI_GrantOrderPointsIdempotent(t *testing.T) {
	h, _, _ := setupAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/orders/order-77/grant", "alice", map[string]int64{"points": 25})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/api/v1/orders/order-77/grant", "alice", map[string]int64{"points": 25})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on replay, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/balance", "alice", nil)
	if resp := decode(t, w); resp["balance"] != float64(25) {
		t.Errorf("expected balance=25 after replay, got %v", resp["balance"])
	}
}

func TestAPI_AdminAdjustValidation(t *testing.T) {
	h, _, _ := setupAPI(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/admin/adjust", "", map[string]interface{}{"account_id": "", "delta": 10})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing account_id, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/api/v1/admin/adjust", "",
		map[string]interface{}{"account_id": "alice", "delta": -10, "reason": "correction"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for debit below zero, got %d (body %q)", w.Code, w.Body.String())
	}
}

func TestAPI_RecentOps(t *testing.T) {
	h, _, _ := setupAPI(t)

	doJSON(t, h, http.MethodPost, "/api/v1/checkin", "alice", nil)

	w := doJSON(t, h, http.MethodGet, "/api/v1/debug/ops", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode(t, w)
	if ops := resp["operations"].([]interface{}); len(ops) == 0 {
		t.Error("expected recorded operations")
	}
}
