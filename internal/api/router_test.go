package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/safeanchor/safeanchor/internal/auth"
	"github.com/safeanchor/safeanchor/internal/database"
	"github.com/safeanchor/safeanchor/internal/otp"
	"github.com/safeanchor/safeanchor/internal/services"
	"github.com/safeanchor/safeanchor/pkg/mail"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	code := regexp.MustCompile(`\b(\d{6})\b`).FindString(m.sent[len(m.sent)-1].Text)
	require.NotEmpty(t, code)
	return code
}

type apiHarness struct {
	router *gin.Engine
	db     *gorm.DB
	mailer *recordingMailer
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateAndSeed(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-test-secret"})
	require.NoError(t, err)
	refreshSvc, err := iauth.NewRefreshService(db, jwtSvc, iauth.RefreshConfig{})
	require.NoError(t, err)

	mailer := &recordingMailer{}
	store := otp.NewMemoryStore(otp.MemoryConfig{})

	accounts, err := services.NewAccountService(db, store, refreshSvc, mailer)
	require.NoError(t, err)
	resources, err := services.NewResourceService(db)
	require.NoError(t, err)
	groups, err := services.NewSupportGroupService(db)
	require.NoError(t, err)
	hotlines, err := services.NewHotlineService(db)
	require.NoError(t, err)
	sessions, err := services.NewSessionService(db)
	require.NoError(t, err)
	matching, err := services.NewMatchingService(db)
	require.NoError(t, err)
	dashboards, err := services.NewDashboardService(db)
	require.NoError(t, err)
	profiles, err := services.NewProfileService(db)
	require.NoError(t, err)

	router, err := NewRouter(db, jwtSvc, Services{
		Accounts:   accounts,
		Resources:  resources,
		Groups:     groups,
		Hotlines:   hotlines,
		Sessions:   sessions,
		Matching:   matching,
		Dashboards: dashboards,
		Profiles:   profiles,
	})
	require.NoError(t, err)

	return &apiHarness{router: router, db: db, mailer: mailer}
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestHealthEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(t, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestHotlinesArePublic(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(t, http.MethodGet, "/api/hotlines?country=US", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "National Domestic Violence Hotline")
}

func TestAccountLifecycleOverHTTP(t *testing.T) {
	h := newAPIHarness(t)

	// Register a victim account.
	w := h.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":            "ada@example.com",
		"password":         "password123",
		"confirm_password": "password123",
		"first_name":       "Ada",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Login before verification is refused.
	w = h.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ada@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// A wrong code does not verify.
	code := h.mailer.lastCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	w = h.do(t, http.MethodPost, "/api/auth/verify-otp", "", gin.H{"otp": wrong})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/api/auth/verify-otp", "", gin.H{"otp": code})
	require.Equal(t, http.StatusOK, w.Code)

	// Login now issues tokens.
	w = h.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ada@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	accessToken, _ := data["token"].(string)
	refreshToken, _ := data["refresh_token"].(string)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)

	// The victim dashboard is reachable with the access token.
	w = h.do(t, http.MethodGet, "/api/dashboard/victim", accessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The expert dashboard is not.
	w = h.do(t, http.MethodGet, "/api/dashboard/expert", accessToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Refresh rotates: the old token stops working after one use.
	w = h.do(t, http.MethodPost, "/api/auth/refresh-token", "", gin.H{"refresh_token": refreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	rotated := decodeData(t, w)
	require.NotEqual(t, refreshToken, rotated["refresh_token"])

	w = h.do(t, http.MethodPost, "/api/auth/refresh-token", "", gin.H{"refresh_token": refreshToken})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Logout succeeds and is idempotent.
	newRefresh, _ := rotated["refresh_token"].(string)
	w = h.do(t, http.MethodPost, "/api/auth/logout", "", gin.H{"refresh_token": newRefresh})
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(t, http.MethodPost, "/api/auth/logout", "", gin.H{"refresh_token": newRefresh})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestExpertRegistrationUsesOwnPrefix(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(t, http.MethodPost, "/api/experts/auth/register", "", gin.H{
		"email":            "grace@example.com",
		"password":         "password123",
		"confirm_password": "password123",
		"first_name":       "Grace",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	code := h.mailer.lastCode(t)
	w = h.do(t, http.MethodPost, "/api/experts/auth/verify-otp", "", gin.H{"otp": code})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodPost, "/api/experts/auth/login", "", gin.H{
		"email":    "grace@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)

	// Expert tokens open the expert dashboard, not the victim one.
	w = h.do(t, http.MethodGet, "/api/dashboard/expert", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(t, http.MethodGet, "/api/dashboard/victim", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

// registerAndLogin walks a fresh account through register, OTP verify and
// login, returning its access token. Pass "/experts" as prefix for experts.
func (h *apiHarness) registerAndLogin(t *testing.T, prefix, email string) string {
	t.Helper()

	w := h.do(t, http.MethodPost, "/api"+prefix+"/auth/register", "", gin.H{
		"email":            email,
		"password":         "password123",
		"confirm_password": "password123",
		"first_name":       "Taylor",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(t, http.MethodPost, "/api"+prefix+"/auth/verify-otp", "", gin.H{"otp": h.mailer.lastCode(t)})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodPost, "/api"+prefix+"/auth/login", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decodeData(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestClearedVerificationRevokesAccess(t *testing.T) {
	h := newAPIHarness(t)
	token := h.registerAndLogin(t, "", "ada@example.com")

	w := h.do(t, http.MethodGet, "/api/dashboard/victim", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// An access token issued earlier stops working once the account's
	// verification flag is cleared, without waiting for expiry.
	require.NoError(t, h.db.Exec("UPDATE users SET is_verified = ? WHERE email = ?", false, "ada@example.com").Error)

	w = h.do(t, http.MethodGet, "/api/dashboard/victim", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVictimProfileEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	token := h.registerAndLogin(t, "", "mira@example.com")

	w := h.do(t, http.MethodGet, "/api/victims/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodPut, "/api/victims/expert-preference", token, gin.H{
		"specialization": []string{"trauma"},
		"language":       "en",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "trauma")

	w = h.do(t, http.MethodPost, "/api/victims/emergency-contact", token, gin.H{
		"name":  "Sam",
		"phone": "555-0100",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Sam")

	// The contact payload is validated.
	w = h.do(t, http.MethodPost, "/api/victims/emergency-contact", token, gin.H{"name": "No phone"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// The victim surface is closed to anonymous callers.
	w = h.do(t, http.MethodGet, "/api/victims/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExpertProfileEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	victimToken := h.registerAndLogin(t, "", "ada@example.com")
	expertToken := h.registerAndLogin(t, "/experts", "grace@example.com")

	w := h.do(t, http.MethodGet, "/api/experts/profile", expertToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profileID, _ := decodeData(t, w)["id"].(string)
	require.NotEmpty(t, profileID)

	w = h.do(t, http.MethodPut, "/api/experts/profile", expertToken, gin.H{
		"specializations": []string{"legal", "trauma"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Victims cannot edit expert profiles.
	w = h.do(t, http.MethodPut, "/api/experts/profile", victimToken, gin.H{
		"specializations": []string{"x"},
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	// The public projection is readable without a token.
	w = h.do(t, http.MethodGet, "/api/experts/public-profile/"+profileID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "legal")
}

// promoteToAdmin flips an existing account to the admin kind. The caller must
// log in again afterwards so the new kind lands in the token claims.
func (h *apiHarness) promoteToAdmin(t *testing.T, email string) string {
	t.Helper()
	require.NoError(t, h.db.Exec("UPDATE users SET kind = ? WHERE email = ?", "admin", email).Error)

	w := h.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decodeData(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSupportGroupAdminLifecycle(t *testing.T) {
	h := newAPIHarness(t)
	victimToken := h.registerAndLogin(t, "", "ada@example.com")
	h.registerAndLogin(t, "", "root@example.com")
	adminToken := h.promoteToAdmin(t, "root@example.com")

	w := h.do(t, http.MethodPost, "/api/support-groups", adminToken, gin.H{
		"name":     "Evening circle",
		"category": "peer",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	groupID, _ := decodeData(t, w)["id"].(string)
	require.NotEmpty(t, groupID)

	w = h.do(t, http.MethodPatch, "/api/support-groups/"+groupID, adminToken, gin.H{
		"name": "Evening circle (weekly)",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "weekly")

	// Non-admin accounts cannot edit or deactivate.
	w = h.do(t, http.MethodPatch, "/api/support-groups/"+groupID, victimToken, gin.H{"name": "x"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodDelete, "/api/support-groups/"+groupID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Deactivated groups drop out of the listing.
	w = h.do(t, http.MethodGet, "/api/support-groups", victimToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "Evening circle")
}

func TestHotlineAdminUpdate(t *testing.T) {
	h := newAPIHarness(t)
	h.registerAndLogin(t, "", "root@example.com")
	adminToken := h.promoteToAdmin(t, "root@example.com")

	w := h.do(t, http.MethodPost, "/api/hotlines", adminToken, gin.H{
		"name":    "Regional helpline",
		"phone":   "111",
		"country": "CA",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	hotlineID, _ := decodeData(t, w)["id"].(string)
	require.NotEmpty(t, hotlineID)

	w = h.do(t, http.MethodPatch, "/api/hotlines/"+hotlineID, adminToken, gin.H{
		"phone": "0800-111-222",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "0800-111-222")

	w = h.do(t, http.MethodPatch, "/api/hotlines/"+hotlineID, "", gin.H{"phone": "x"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResourceMutationRequiresAdmin(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(t, http.MethodPost, "/api/resources", "", gin.H{
		"type":    "article",
		"title":   "Safety planning",
		"content": "...",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Reading stays open.
	w = h.do(t, http.MethodGet, "/api/resources", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
