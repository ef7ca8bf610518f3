package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"billing-system/internal/auth"
	"billing-system/internal/database"
	"billing-system/internal/database/models"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	signer *auth.Signer
	ledger *auth.Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithCache(t, nil)
}

func newTestEnvWithCache(t *testing.T, rdb *redis.Client) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	signer := auth.NewSigner("test-secret", time.Hour)
	ledger := auth.NewLedger(db, nil, signer)

	r := gin.New()
	RegisterRoutes(r, RouterDeps{
		DB:         db,
		Redis:      rdb,
		Signer:     signer,
		Ledger:     ledger,
		TOTPIssuer: "billing-test",
	})

	return &testEnv{router: r, db: db, signer: signer, ledger: ledger}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool   `json:"success"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Data    struct {
		Results json.RawMessage `json:"results"`
		Meta    struct {
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
		} `json:"meta"`
	} `json:"data"`
	Error struct {
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return env
}

func decodeResults(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data.Results, out); err != nil {
		t.Fatalf("decode results %q: %v", env.Data.Results, err)
	}
}

func seedUser(t *testing.T, db *gorm.DB, username, email, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		FullName: "Test User",
		Role:     "staff",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedCustomer(t *testing.T, db *gorm.DB, name string) models.Customer {
	t.Helper()
	customer := models.Customer{Name: name, Status: "active"}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer
}

func seedProduct(t *testing.T, db *gorm.DB, sku, price string, stock int32) models.Product {
	t.Helper()
	product := models.Product{
		SKU:       sku,
		Name:      "Product " + sku,
		UnitPrice: price,
		Stock:     stock,
		IsActive:  true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// authToken seeds a staff user and returns a valid bearer token for it.
func (e *testEnv) authToken(t *testing.T) string {
	t.Helper()
	user := seedUser(t, e.db, "worker", "worker@example.com", "hunter22")
	token, _, err := e.signer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}
