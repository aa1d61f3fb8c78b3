package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/bsrmarket/marketplace/internal/audit"
	"github.com/bsrmarket/marketplace/internal/config"
	"github.com/bsrmarket/marketplace/internal/notify"
	"github.com/bsrmarket/marketplace/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db     *storage.Database
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		ListenAddr:        ":0",
		Env:               "development",
		JWTSecret:         "test-secret",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Hour,
	}
	h := NewHandler(cfg, db, notify.New(""), audit.New(db))
	return &testEnv{db: db, router: h.Router()}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (e *testEnv) seedUser(t *testing.T, name, email, accountType string) storage.User {
	t.Helper()
	user := storage.User{
		Name:        name,
		Email:       email,
		Password:    "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
		AccountType: accountType,
		Status:      "active",
	}
	require.NoError(t, e.db.DB.Create(&user).Error)
	return user
}

func (e *testEnv) seedListing(t *testing.T, owner uint, title string) storage.Listing {
	t.Helper()
	listing := storage.Listing{
		UserID:            owner,
		Title:             title,
		Description:       "desc",
		Price:             25,
		Category:          "electronics",
		Type:              "sell",
		Location:          "Springfield",
		DurationHours:     48,
		QuantityAvailable: 1,
		Status:            "active",
	}
	require.NoError(t, e.db.DB.Create(&listing).Error)
	return listing
}

func (e *testEnv) seedTransaction(t *testing.T, listing storage.Listing, buyer, seller uint, status string) storage.Transaction {
	t.Helper()
	tx := storage.Transaction{
		ListingID:   listing.ID,
		BuyerID:     buyer,
		SellerID:    seller,
		Quantity:    1,
		UnitPrice:   25,
		TotalAmount: 25,
		Status:      status,
	}
	require.NoError(t, e.db.DB.Create(&tx).Error)
	return tx
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) map[string]any {
	t.Helper()
	require.Equal(t, want, w.Code, "body: %s", w.Body.String())
	return decodeBody(t, w)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func intField(body map[string]any, key string) int {
	if v, ok := body[key].(float64); ok {
		return int(v)
	}
	return -1
}
