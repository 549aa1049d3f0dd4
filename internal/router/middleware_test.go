package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/config"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	handlershared "github.com/AgustinReiden/distribuidora-app-sub004/internal/http/handlers/shared"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/metrics"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/models"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	dto "github.com/prometheus/client_model/go"
	"gorm.io/gorm"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func setupActorRepo(t *testing.T) (*gorm.DB, repository.UserRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db, repository.NewUserRepository(db)
}

func actorEngine(cfg config.ActorTokenConfig, repo repository.UserRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ActorAuthMiddleware(cfg, repo))
	r.GET("/whoami", func(c *gin.Context) {
		actor, ok := handlershared.GetActor(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role})
	})
	return r
}

func envelopeStatus(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func TestActorAuthMiddlewareMissingSecret(t *testing.T) {
	r := actorEngine(config.ActorTokenConfig{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if got := envelopeStatus(t, w); got != 401 {
		t.Fatalf("status_code want 401 got %d", got)
	}
}

func TestActorAuthMiddlewareUsesStoredRole(t *testing.T) {
	db, repo := setupActorRepo(t)
	cfg := config.ActorTokenConfig{Secret: "test-secret", Issuer: "distribuidora"}
	courier := &models.User{Name: "Repartidor", Role: constants.RoleCourier, Active: true}
	if err := db.Create(courier).Error; err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	// the token claims admin but the stored user is a courier
	token, err := IssueActorToken(cfg, courier.ID, constants.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	actorEngine(cfg, repo).ServeHTTP(w, req)

	var resp struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.ID != courier.ID || resp.Role != constants.RoleCourier {
		t.Fatalf("want courier actor, got %+v", resp)
	}
}

func TestActorAuthMiddlewareRejects(t *testing.T) {
	db, repo := setupActorRepo(t)
	cfg := config.ActorTokenConfig{Secret: "test-secret"}
	inactive := &models.User{Name: "Ex vendedor", Role: constants.RoleSeller, Active: false}
	if err := db.Create(inactive).Error; err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	inactiveToken, err := IssueActorToken(cfg, inactive.ID, constants.RoleSeller, time.Hour)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	unknownToken, err := IssueActorToken(cfg, 999, constants.RoleSeller, time.Hour)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	foreignToken, err := IssueActorToken(config.ActorTokenConfig{Secret: "other"}, inactive.ID, constants.RoleSeller, time.Hour)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	expiredToken, err := IssueActorToken(cfg, inactive.ID, constants.RoleSeller, -time.Minute)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}

	cases := map[string]string{
		"no header":     "",
		"not bearer":    "Basic abc",
		"garbage":       "Bearer not-a-token",
		"wrong secret":  "Bearer " + foreignToken,
		"expired":       "Bearer " + expiredToken,
		"unknown actor": "Bearer " + unknownToken,
		"inactive":      "Bearer " + inactiveToken,
	}
	r := actorEngine(cfg, repo)
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			r.ServeHTTP(w, req)
			if got := envelopeStatus(t, w); got != 401 {
				t.Fatalf("status_code want 401 got %d body %s", got, w.Body.String())
			}
		})
	}
}

func TestParseActorTokenChecksIssuerAndRole(t *testing.T) {
	cfg := config.ActorTokenConfig{Secret: "test-secret", Issuer: "distribuidora"}
	token, err := IssueActorToken(config.ActorTokenConfig{Secret: "test-secret", Issuer: "someone-else"}, 1, constants.RoleSeller, time.Hour)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	if _, err := ParseActorToken(cfg, token); err == nil {
		t.Fatalf("foreign issuer should be rejected")
	}

	token, err = IssueActorToken(cfg, 1, "owner", time.Hour)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	if _, err := ParseActorToken(cfg, token); err == nil {
		t.Fatalf("unknown role should be rejected")
	}

	token, err = IssueActorToken(cfg, 7, constants.RoleManager, time.Hour)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	claims, err := ParseActorToken(cfg, token)
	if err != nil || claims.ActorID != 7 || claims.Role != constants.RoleManager {
		t.Fatalf("valid token rejected: %v %+v", err, claims)
	}
}

func TestMetricsMiddlewareCountsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/orders/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/orders/:id", "200")
	read := func() float64 {
		var m dto.Metric
		if err := counter.Write(&m); err != nil {
			t.Fatalf("write metric failed: %v", err)
		}
		return m.GetCounter().GetValue()
	}
	before := read()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/42", nil))
	if got := read() - before; got != 1 {
		t.Fatalf("counter want +1 got %v", got)
	}
}
