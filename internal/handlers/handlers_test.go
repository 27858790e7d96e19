package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brandforge/contentpilot/internal/handlers"
	"github.com/brandforge/contentpilot/internal/repository"
	"github.com/brandforge/contentpilot/internal/service"
	"github.com/brandforge/contentpilot/internal/session"
	"github.com/brandforge/contentpilot/internal/store"
	"github.com/brandforge/contentpilot/pkg/config"
	"github.com/brandforge/contentpilot/pkg/events"
)

// ---------- Mocks ----------

type mockMailer struct {
	lastTo           string
	lastConfirmation string
	lastRecovery     string
}

func (m *mockMailer) SendConfirmationCode(toEmail, _, code string) error {
	m.lastTo = toEmail
	m.lastConfirmation = code
	return nil
}

func (m *mockMailer) SendRecoveryCode(toEmail, code string) error {
	m.lastTo = toEmail
	m.lastRecovery = code
	return nil
}

// ---------- Test Setup ----------

func testServerConfig() *config.Config {
	return &config.Config{
		Auth: config.Auth{
			JWTSecret:          "handler-test-secret",
			AccessTokenTTL:     15 * time.Minute,
			ConfirmationPolicy: "always",
			CodeTTL:            15 * time.Minute,
			DemoEmail:          "demo@example.com",
			DemoPassword:       "password123",
		},
	}
}

func setupServer(t *testing.T, cfg *config.Config) (*httptest.Server, *mockMailer) {
	t.Helper()

	kv := store.NewMemory()
	sess := session.NewManager(t.Context(), kv)
	mail := &mockMailer{}

	authSvc := service.NewAuthService(
		repository.NewUserRepository(kv),
		repository.NewVerifyRepository(kv),
		sess,
		mail,
		events.NewNoopPublisher(),
		cfg,
	)
	businessSvc := service.NewBusinessService(
		repository.NewBusinessRepository(kv),
		sess,
		events.NewNoopPublisher(),
	)

	h := handlers.New(authSvc, businessSvc, cfg)
	server := httptest.NewServer(h.Routes())
	t.Cleanup(server.Close)

	return server, mail
}

func postJSON(t *testing.T, url string, data interface{}, expectedStatus int) *http.Response {
	t.Helper()

	body, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	if resp.StatusCode != expectedStatus {
		t.Fatalf("POST %s: expected status %d, got %d", url, expectedStatus, resp.StatusCode)
	}

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func registerBody(email string) map[string]string {
	return map[string]string{
		"name":             "Test User",
		"email":            email,
		"password":         "secret1",
		"confirm_password": "secret1",
	}
}

// ---------- Tests ----------

func TestRegisterConfirmLogin_Flow(t *testing.T) {
	server, mail := setupServer(t, testServerConfig())
	email := "flow@example.com"

	// Register: account is created pending confirmation, no token yet
	var registered struct {
		RequiresConfirmation bool   `json:"requires_confirmation"`
		AccessToken          string `json:"access_token"`
	}
	decodeBody(t, postJSON(t, server.URL+"/register", registerBody(email), http.StatusCreated), &registered)

	if !registered.RequiresConfirmation {
		t.Fatal("expected registration to require confirmation")
	}
	if registered.AccessToken != "" {
		t.Fatal("expected no access token before confirmation")
	}
	if mail.lastTo != email || mail.lastConfirmation == "" {
		t.Fatalf("expected confirmation code mailed to %s, got to=%s code=%q", email, mail.lastTo, mail.lastConfirmation)
	}

	// Session reflects the pending state
	var sess struct {
		State        string `json:"state"`
		PendingEmail string `json:"pending_email"`
	}
	resp, err := http.Get(server.URL + "/session")
	if err != nil {
		t.Fatalf("GET /session failed: %v", err)
	}
	decodeBody(t, resp, &sess)
	if sess.State != "pending_confirmation" || sess.PendingEmail != email {
		t.Fatalf("unexpected session: state=%s pending=%s", sess.State, sess.PendingEmail)
	}

	// Confirm with the mailed code
	var confirmed struct {
		Confirmed   bool   `json:"confirmed"`
		AccessToken string `json:"access_token"`
	}
	confirmReq := map[string]string{"email": email, "code": mail.lastConfirmation}
	decodeBody(t, postJSON(t, server.URL+"/confirm_code", confirmReq, http.StatusOK), &confirmed)

	if !confirmed.Confirmed || confirmed.AccessToken == "" {
		t.Fatalf("expected confirmed session with token, got %+v", confirmed)
	}

	// Logout then log back in
	postJSON(t, server.URL+"/logout", map[string]string{}, http.StatusOK).Body.Close()

	var loggedIn struct {
		AccessToken string `json:"access_token"`
		User        *struct {
			Email          string `json:"email"`
			EmailConfirmed bool   `json:"email_confirmed"`
		} `json:"user"`
	}
	loginReq := map[string]string{"email": email, "password": "secret1"}
	decodeBody(t, postJSON(t, server.URL+"/login", loginReq, http.StatusOK), &loggedIn)

	if loggedIn.AccessToken == "" || loggedIn.User == nil {
		t.Fatal("expected token and user after login")
	}
	if loggedIn.User.Email != email || !loggedIn.User.EmailConfirmed {
		t.Fatalf("unexpected user in login response: %+v", loggedIn.User)
	}
}

func TestRegister_InvalidInput_BadRequest(t *testing.T) {
	server, _ := setupServer(t, testServerConfig())

	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"empty email", func(b map[string]string) { b["email"] = "" }},
		{"invalid email", func(b map[string]string) { b["email"] = "not-an-email" }},
		{"empty name", func(b map[string]string) { b["name"] = "" }},
		{"password mismatch", func(b map[string]string) { b["confirm_password"] = "different" }},
		{"short password", func(b map[string]string) { b["password"] = "abc"; b["confirm_password"] = "abc" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := registerBody("valid@example.com")
			tt.mutate(body)

			var errResp struct {
				Code string `json:"code"`
			}
			decodeBody(t, postJSON(t, server.URL+"/register", body, http.StatusBadRequest), &errResp)
			if errResp.Code != "INVALID_INPUT" {
				t.Fatalf("expected INVALID_INPUT, got %s", errResp.Code)
			}
		})
	}
}

func TestRegister_DuplicateEmail_Conflict(t *testing.T) {
	server, _ := setupServer(t, testServerConfig())
	email := "taken@example.com"

	postJSON(t, server.URL+"/register", registerBody(email), http.StatusCreated).Body.Close()

	var errResp struct {
		Code string `json:"code"`
	}
	decodeBody(t, postJSON(t, server.URL+"/register", registerBody(email), http.StatusConflict), &errResp)
	if errResp.Code != "EMAIL_EXISTS" {
		t.Fatalf("expected EMAIL_EXISTS, got %s", errResp.Code)
	}
}

func TestLogin_WrongPassword_Unauthorized(t *testing.T) {
	cfg := testServerConfig()
	cfg.Auth.ConfirmationPolicy = "never"
	server, _ := setupServer(t, cfg)

	postJSON(t, server.URL+"/register", registerBody("who@example.com"), http.StatusCreated).Body.Close()

	var errResp struct {
		Code string `json:"code"`
	}
	loginReq := map[string]string{"email": "who@example.com", "password": "wrong-pass"}
	decodeBody(t, postJSON(t, server.URL+"/login", loginReq, http.StatusUnauthorized), &errResp)
	if errResp.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %s", errResp.Code)
	}
}

func TestRecovery_Flow(t *testing.T) {
	cfg := testServerConfig()
	cfg.Auth.ConfirmationPolicy = "never"
	server, mail := setupServer(t, cfg)
	email := "forgot@example.com"

	postJSON(t, server.URL+"/register", registerBody(email), http.StatusCreated).Body.Close()
	postJSON(t, server.URL+"/logout", map[string]string{}, http.StatusOK).Body.Close()

	// Step 1: request a recovery code
	postJSON(t, server.URL+"/recover/request", map[string]string{"email": email}, http.StatusOK).Body.Close()
	if mail.lastRecovery == "" {
		t.Fatal("expected recovery code to be mailed")
	}

	// Step 2: verify the code without consuming it
	verifyReq := map[string]string{"email": email, "code": mail.lastRecovery}
	postJSON(t, server.URL+"/recover/verify", verifyReq, http.StatusOK).Body.Close()

	// Step 3: reset the password
	resetReq := map[string]string{
		"email":            email,
		"code":             mail.lastRecovery,
		"new_password":     "brand-new-1",
		"confirm_password": "brand-new-1",
	}
	postJSON(t, server.URL+"/recover/reset", resetReq, http.StatusOK).Body.Close()

	// Old password no longer works, new one does
	oldLogin := map[string]string{"email": email, "password": "secret1"}
	postJSON(t, server.URL+"/login", oldLogin, http.StatusUnauthorized).Body.Close()

	newLogin := map[string]string{"email": email, "password": "brand-new-1"}
	postJSON(t, server.URL+"/login", newLogin, http.StatusOK).Body.Close()
}

func TestRecovery_UnknownEmail_NotFound(t *testing.T) {
	server, _ := setupServer(t, testServerConfig())

	var errResp struct {
		Code string `json:"code"`
	}
	req := map[string]string{"email": "ghost@example.com"}
	decodeBody(t, postJSON(t, server.URL+"/recover/request", req, http.StatusNotFound), &errResp)
	if errResp.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", errResp.Code)
	}
}

func TestBusinesses_RequireJWT(t *testing.T) {
	server, _ := setupServer(t, testServerConfig())

	// No Authorization header
	resp, err := http.Get(server.URL + "/businesses/")
	if err != nil {
		t.Fatalf("GET /businesses failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	// Garbage token
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/businesses/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /businesses failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", resp.StatusCode)
	}
}

func TestBusinesses_CreateAndList(t *testing.T) {
	cfg := testServerConfig()
	cfg.Auth.ConfirmationPolicy = "never"
	server, _ := setupServer(t, cfg)

	var registered struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, postJSON(t, server.URL+"/register", registerBody("owner@example.com"), http.StatusCreated), &registered)
	if registered.AccessToken == "" {
		t.Fatal("expected access token from auto-confirmed registration")
	}

	business := map[string]interface{}{
		"name":                "Bloom Coffee",
		"logo":                "☕",
		"description":         "Specialty coffee roaster",
		"industry":            "food_and_restaurants",
		"communication_style": "friendly",
	}
	body, _ := json.Marshal(business)

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/businesses/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /businesses failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	decodeBody(t, resp, &created)
	if created.ID == "" || created.Name != "Bloom Coffee" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	listReq, _ := http.NewRequest(http.MethodGet, server.URL+"/businesses/", nil)
	listReq.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	listResp, err := http.DefaultClient.Do(listReq)
	if err != nil {
		t.Fatalf("GET /businesses failed: %v", err)
	}
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", listResp.StatusCode)
	}

	var listed struct {
		Businesses []struct {
			ID string `json:"id"`
		} `json:"businesses"`
		SelectedBusinessID string `json:"selected_business_id"`
	}
	decodeBody(t, listResp, &listed)
	if len(listed.Businesses) != 1 || listed.Businesses[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", listed)
	}
	if listed.SelectedBusinessID != created.ID {
		t.Fatalf("expected new business to be selected, got %s", listed.SelectedBusinessID)
	}
}
