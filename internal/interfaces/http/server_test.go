package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/app"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database/dbtest"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database/postgres"
	httpserver "github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http/handlers"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "owner@kusinadeamadeo.com"
	adminPassword = "Lechon2024"
)

type testServer struct {
	handler   http.Handler
	container *app.Container
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "kusina-test",
			Version:     "test",
			Environment: "test",
			StoreName:   "Kusina De Amadeo",
			Timezone:    "Asia/Manila",
		},
		Server: config.ServerConfig{
			RequestTimeout: 10 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		Database: config.DatabaseConfig{TxMaxAttempts: 3},
		JWT: config.JWTConfig{
			Secret:             "integration-test-secret-that-is-long-enough",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{
			BcryptCost:         4,
			RateLimitPerMinute: 1000,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
			CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		External: config.ExternalConfig{
			Email: config.EmailConfig{Provider: "log", FromEmail: "noreply@kusinadeamadeo.com", FromName: "Kusina De Amadeo"},
			SMS:   config.SMSConfig{Provider: "log"},
			Storage: config.StorageConfig{
				Provider:      "local",
				LocalPath:     t.TempDir(),
				PublicBaseURL: "http://localhost:8080/uploads",
			},
		},
		Upload: config.UploadConfig{
			MaxSize:           5 << 20,
			AllowedExtensions: []string{"jpg", "jpeg", "png"},
		},
		Cache:        config.CacheConfig{Driver: "memory", TTL: time.Minute, SweepInterval: time.Minute},
		Notification: config.NotificationConfig{DispatchTimeout: 5 * time.Second, InboxLimit: 50, InboxTTL: time.Hour},
		Inventory:    config.InventoryConfig{LowStockThreshold: 5},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	log := logger.Discard()
	db := dbtest.Open(t, postgres.Models()...)
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	container, err := app.New(cfg, db, redisClient, log)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	_, err = container.Users.EnsureAdmin(context.Background(), adminEmail, adminPassword, "Store Admin")
	require.NoError(t, err)

	checks := map[string]handlers.HealthChecker{
		"database": handlers.HealthFunc(func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
		"redis": handlers.HealthFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
	}
	server, err := httpserver.NewServer(cfg, container.Handlers(checks), container.Tokens, redisClient, log)
	require.NoError(t, err)

	return &testServer{handler: server.Handler(), container: container}
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Field   string          `json:"field"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, code, env.Error)

	var auth struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	require.NotEmpty(t, auth.AccessToken)
	return auth.AccessToken
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":            email,
		"password":         "Sinigang2024",
		"confirm_password": "Sinigang2024",
		"name":             "Juan Dela Cruz",
		"phone":            "09171234567",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	return s.login(t, email, "Sinigang2024")
}

func (s *testServer) syncMenu(t *testing.T) {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/sync-products", "", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
}

func orderBody(items ...gin.H) gin.H {
	return gin.H{
		"items": items,
		"contact": gin.H{
			"name":  "Juan Dela Cruz",
			"email": "juan@example.com",
			"phone": "09171234567",
		},
		"shipping_address": gin.H{
			"line1":    "12 Mabini St",
			"barangay": "Salitran",
			"city":     "Dasmarinas",
			"province": "Cavite",
		},
		"payment_method": "cod",
		"order_type":     "delivery",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestOrderLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.syncMenu(t)
	token := s.register(t, "juan@example.com")

	// Cart for the signed-in user
	code, env := s.do(t, http.MethodPost, "/api/v1/cart/items", token, gin.H{"product_id": "chicken-adobo-rice", "quantity": 2})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = s.do(t, http.MethodPost, "/api/orders/create", token,
		orderBody(gin.H{"product_id": "chicken-adobo-rice", "quantity": 2}))
	require.Equal(t, http.StatusCreated, code, env.Error)

	var created struct {
		OrderID     string `json:"orderId"`
		OrderNumber string `json:"orderNumber"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.OrderID)
	require.NotEmpty(t, created.OrderNumber)

	// Inventory was settled
	code, env = s.do(t, http.MethodGet, "/api/v1/products/chicken-adobo-rice", "", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var product struct {
		Inventory int `json:"inventory"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &product))
	assert.Equal(t, 38, product.Inventory)

	// The customer sees the order
	code, env = s.do(t, http.MethodGet, "/api/v1/orders/"+created.OrderID, token, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var got struct {
		Status      string          `json:"status"`
		TotalAmount decimal.Decimal `json:"total_amount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "pending", got.Status)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(240)), got.TotalAmount.String())

	// Nothing is earned until the order is paid
	assert.EqualValues(t, 0, s.points(t, token))

	// Admin moves the order forward
	adminToken := s.login(t, adminEmail, adminPassword)
	code, env = s.do(t, http.MethodPut, "/api/v1/admin/orders/"+created.OrderID+"/status", adminToken,
		gin.H{"status": "confirmed", "comment": "Kitchen has it"})
	require.Equal(t, http.StatusOK, code, env.Error)

	// Backwards moves are rejected
	code, _ = s.do(t, http.MethodPut, "/api/v1/admin/orders/"+created.OrderID+"/status", adminToken,
		gin.H{"status": "pending"})
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/dashboard", adminToken, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var stats struct {
		TotalOrders int64 `json:"total_orders"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.EqualValues(t, 1, stats.TotalOrders)

	// Background notifications land in the inbox
	s.container.Dispatcher.Wait()
	code, env = s.do(t, http.MethodGet, "/api/v1/notifications", token, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var inbox struct {
		UnreadCount int `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &inbox))
	assert.Equal(t, 2, inbox.UnreadCount)

	// Delivering cash on delivery settles payment and credits points
	code, env = s.do(t, http.MethodPut, "/api/v1/admin/orders/"+created.OrderID+"/status", adminToken,
		gin.H{"status": "delivered"})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.EqualValues(t, 240, s.points(t, token))
}

func (s *testServer) points(t *testing.T, token string) int64 {
	t.Helper()
	code, env := s.do(t, http.MethodGet, "/api/v1/loyalty", token, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var profile struct {
		Points int64 `json:"points"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	return profile.Points
}

func TestAccessControl(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "maria@example.com")

	code, env := s.do(t, http.MethodGet, "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.NotEmpty(t, env.Error)

	code, _ = s.do(t, http.MethodGet, "/api/v1/admin/dashboard", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPost, "/api/notifications/sms", token, gin.H{"to": "09171234567", "message": "hi"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestErrorEnvelope(t *testing.T) {
	s := newTestServer(t)
	s.syncMenu(t)
	token := s.register(t, "pedro@example.com")

	code, env := s.do(t, http.MethodPost, "/api/orders/create", token, orderBody())
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "items", env.Field)

	code, env = s.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, env.Error)

	code, _ = s.do(t, http.MethodPost, "/api/orders/create", token,
		orderBody(gin.H{"product_id": "chicken-adobo-rice", "quantity": 1000}))
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request data", env.Error)
}

func TestGuestCart(t *testing.T) {
	s := newTestServer(t)
	s.syncMenu(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items",
		bytes.NewBufferString(`{"product_id":"pancit-canton","quantity":1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			session = c
		}
	}
	require.NotNil(t, session, "guest cart should set a session cookie")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, 1, env.Data.Count)
}

func TestAdminInventory(t *testing.T) {
	s := newTestServer(t)
	s.syncMenu(t)
	adminToken := s.login(t, adminEmail, adminPassword)

	code, env := s.do(t, http.MethodPut, "/api/v1/admin/products/turon/inventory", adminToken,
		gin.H{"delta": 12, "reason": "restock"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = s.do(t, http.MethodPut, "/api/v1/admin/products/turon/inventory", adminToken,
		gin.H{"delta": 0})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "delta", env.Field)

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/products/turon/inventory", adminToken, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var history struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.EqualValues(t, 1, history.Total)
}
