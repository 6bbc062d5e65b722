package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"hcm/internal/app/server"
	"hcm/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		Addr:               ":0",
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		Environment:        "test",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		LateCutoff:         "23:59",
		MetricsEnabled:     true,
	}
}

// TestLeaveAndAttendanceJourney walks the main workflow end to end:
// provision an employee, file and approve a leave request, watch the
// ledger move, withdraw it, and stamp a day of attendance.
func TestLeaveAndAttendanceJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	nonce := time.Now().UnixNano()
	employeeEmail := fmt.Sprintf("journey-%d@example.com", nonce)
	employeePassword := "Employee123!"

	userID := createUser(t, client, ts.URL, adminToken, employeeEmail, employeePassword)
	employeeID := createEmployee(t, client, ts.URL, adminToken, userID, employeeEmail, nonce)

	leaveTypeID := findLeaveType(t, client, ts.URL, adminToken, "AL")

	// A Monday at least a day out, so the request is 5 working days.
	start := time.Now().AddDate(0, 0, 1)
	for start.Weekday() != time.Monday {
		start = start.AddDate(0, 0, 1)
	}
	end := start.AddDate(0, 0, 4)

	initializeBalances(t, client, ts.URL, adminToken, start.Year())

	employeeToken := login(t, client, ts.URL, employeeEmail, employeePassword)

	requestID, totalDays := createLeaveRequest(t, client, ts.URL, employeeToken, leaveTypeID, start, end)
	if totalDays != 5 {
		t.Fatalf("expected 5 chargeable days, got %d", totalDays)
	}

	// Replaying the same idempotency key must not reserve twice.
	replayID, _ := createLeaveRequestWithKey(t, client, ts.URL, employeeToken, leaveTypeID, start, end, fmt.Sprintf("journey-%d", nonce))
	replayAgainID, _ := createLeaveRequestWithKey(t, client, ts.URL, employeeToken, leaveTypeID, start, end, fmt.Sprintf("journey-%d", nonce))
	if replayID != replayAgainID {
		t.Fatalf("idempotent replay created a second request: %s vs %s", replayID, replayAgainID)
	}

	status := decideRequest(t, client, ts.URL, adminToken, requestID, "approve", "")
	if status != "approved" {
		t.Fatalf("expected approved, got %s", status)
	}

	used := balanceField(t, client, ts.URL, adminToken, employeeID, leaveTypeID, start.Year(), "used")
	if used != float64(totalDays) {
		t.Fatalf("expected used=%d after approval, got %v", totalDays, used)
	}

	// The owner pulls the approved request back; used days refund.
	status = withdrawRequest(t, client, ts.URL, employeeToken, requestID)
	if status != "withdrawn" {
		t.Fatalf("expected withdrawn, got %s", status)
	}
	used = balanceField(t, client, ts.URL, adminToken, employeeID, leaveTypeID, start.Year(), "used")
	if used != 0 {
		t.Fatalf("expected used=0 after withdrawal, got %v", used)
	}

	// Attendance: first check-in wins, second conflicts, check-out lands.
	doJSON(t, client, "POST", ts.URL+"/api/v1/attendance/check-in", employeeToken, nil, http.StatusCreated)
	doJSON(t, client, "POST", ts.URL+"/api/v1/attendance/check-in", employeeToken, nil, http.StatusConflict)
	doJSON(t, client, "POST", ts.URL+"/api/v1/attendance/check-out", employeeToken, nil, http.StatusOK)

	// Reports come back as CSV for the admin.
	resp := doRaw(t, client, "GET", fmt.Sprintf("%s/api/v1/reports/leave-balances.csv?year=%d", ts.URL, start.Year()), adminToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected csv export 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %s", ct)
	}

	// The journey left an audit trail.
	data := doJSON(t, client, "GET", ts.URL+"/api/v1/audit?action=leave.request.approve", adminToken, nil, http.StatusOK)
	var auditPage struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(data, &auditPage); err != nil {
		t.Fatalf("decode audit page: %v", err)
	}
	if auditPage.Total == 0 {
		t.Fatal("expected at least one approval audit event")
	}
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	data := doJSON(t, client, "POST", baseURL+"/api/v1/auth/login", "",
		map[string]any{"email": email, "password": password}, http.StatusOK)
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if out.Token == "" {
		t.Fatal("expected a token from login")
	}
	return out.Token
}

func createUser(t *testing.T, client *http.Client, baseURL, token, email, password string) string {
	t.Helper()
	data := doJSON(t, client, "POST", baseURL+"/api/v1/auth/users", token,
		map[string]any{"email": email, "password": password, "roleName": "Employee"}, http.StatusCreated)
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode user response: %v", err)
	}
	return out.ID
}

func createEmployee(t *testing.T, client *http.Client, baseURL, token, userID, email string, nonce int64) string {
	t.Helper()
	data := doJSON(t, client, "POST", baseURL+"/api/v1/employees", token, map[string]any{
		"userId":         userID,
		"employeeNumber": fmt.Sprintf("EMP-%d", nonce),
		"firstName":      "Journey",
		"lastName":       "Tester",
		"email":          email,
		"gender":         "female",
		"startDate":      "2020-01-06",
	}, http.StatusCreated)
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode employee response: %v", err)
	}
	return out.ID
}

func findLeaveType(t *testing.T, client *http.Client, baseURL, token, code string) string {
	t.Helper()
	data := doJSON(t, client, "GET", baseURL+"/api/v1/leave/types", token, nil, http.StatusOK)
	var types []struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &types); err != nil {
		t.Fatalf("decode leave types: %v", err)
	}
	for _, lt := range types {
		if lt.Code == code {
			return lt.ID
		}
	}
	t.Fatalf("seeded leave type %s not found", code)
	return ""
}

func initializeBalances(t *testing.T, client *http.Client, baseURL, token string, year int) {
	t.Helper()
	doJSON(t, client, "POST", baseURL+"/api/v1/leave/balances/initialize", token,
		map[string]any{"year": year}, http.StatusOK)
}

func createLeaveRequest(t *testing.T, client *http.Client, baseURL, token, leaveTypeID string, start, end time.Time) (string, int) {
	t.Helper()
	return createLeaveRequestWithKey(t, client, baseURL, token, leaveTypeID, start, end, "")
}

func createLeaveRequestWithKey(t *testing.T, client *http.Client, baseURL, token, leaveTypeID string, start, end time.Time, idemKey string) (string, int) {
	t.Helper()
	payload := map[string]any{
		"leaveTypeId": leaveTypeID,
		"startDate":   start.Format("2006-01-02"),
		"endDate":     end.Format("2006-01-02"),
		"reason":      "family time",
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest("POST", baseURL+"/api/v1/leave/requests", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("create leave request: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		t.Fatalf("create leave request returned %d: %s", resp.StatusCode, raw)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	var out struct {
		ID        string `json:"id"`
		TotalDays int    `json:"totalDays"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode request payload: %v", err)
	}
	return out.ID, out.TotalDays
}

func decideRequest(t *testing.T, client *http.Client, baseURL, token, requestID, action, reason string) string {
	t.Helper()
	payload := map[string]any{}
	if reason != "" {
		payload["reason"] = reason
	}
	data := doJSON(t, client, "POST", fmt.Sprintf("%s/api/v1/leave/requests/%s/%s", baseURL, requestID, action),
		token, payload, http.StatusOK)
	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode decision response: %v", err)
	}
	return out.Status
}

func withdrawRequest(t *testing.T, client *http.Client, baseURL, token, requestID string) string {
	t.Helper()
	data := doJSON(t, client, "POST", fmt.Sprintf("%s/api/v1/leave/requests/%s/withdraw", baseURL, requestID),
		token, nil, http.StatusOK)
	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode withdraw response: %v", err)
	}
	return out.Status
}

func balanceField(t *testing.T, client *http.Client, baseURL, token, employeeID, leaveTypeID string, year int, field string) float64 {
	t.Helper()
	data := doJSON(t, client, "GET",
		fmt.Sprintf("%s/api/v1/leave/balances?employeeId=%s&year=%d", baseURL, employeeID, year),
		token, nil, http.StatusOK)
	var balances []map[string]any
	if err := json.Unmarshal(data, &balances); err != nil {
		t.Fatalf("decode balances: %v", err)
	}
	for _, b := range balances {
		if b["leaveTypeId"] == leaveTypeID {
			value, _ := b[field].(float64)
			return value
		}
	}
	t.Fatalf("no balance row for leave type %s", leaveTypeID)
	return 0
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, payload any, wantStatus int) json.RawMessage {
	t.Helper()
	resp := doRaw(t, client, method, url, token, payload)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s returned %d, want %d: %s", method, url, resp.StatusCode, wantStatus, raw)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope from %s %s: %v", method, url, err)
	}
	return env.Data
}

func doRaw(t *testing.T, client *http.Client, method, url, token string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}
