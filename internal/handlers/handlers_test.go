package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/topup_be/internal/db"
	"github.com/Windi-Fikriyansyah/topup_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/digiflazz"
	"github.com/Windi-Fikriyansyah/topup_be/internal/services/ledger"
	"github.com/Windi-Fikriyansyah/topup_be/internal/store"
)

const (
	testJWTSecret = "handler-test-secret"
	testSecretKey = "0123456789abcdef0123456789abcdef"
)

type fakeFetcher struct {
	mu   sync.Mutex
	skus []digiflazz.SKU
	err  error
}

func (f *fakeFetcher) FetchPriceList(_ context.Context, creds digiflazz.Credentials) ([]digiflazz.SKU, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !creds.Configured() {
		return nil, digiflazz.ErrNotConfigured
	}
	return f.skus, f.err
}

type testEnv struct {
	app     *fiber.App
	catalog *catalog.Service
	ledger  *ledger.Service
	fetcher *fakeFetcher
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	brands, err := catalog.LoadBrandTable("")
	require.NoError(t, err)
	fetcher := &fakeFetcher{}
	cat := catalog.NewService(catalog.Options{
		Docs:        store.NewDocuments(store.NewMemoryKV()),
		Fetcher:     fetcher,
		Transformer: catalog.Transformer{Brands: brands, MarkupPercent: 10},
		SecretKey:   testSecretKey,
	})

	gdb, err := db.Connect("sqlite", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	led := ledger.NewService(ledger.Options{DB: gdb, SettleDelay: time.Hour})

	auth, err := NewAuthHandler("admin", "admin123", testJWTSecret, 60, false)
	require.NoError(t, err)

	routes := &Routes{
		JWTSecret:         testJWTSecret,
		Auth:              auth,
		Products:          NewProductHandler(cat),
		Categories:        NewCategoryHandler(cat),
		Payments:          NewPaymentHandler(),
		Transactions:      NewTransactionHandler(cat, led, realtime.NewHub()),
		AdminCatalog:      NewAdminCatalogHandler(cat),
		AdminTransactions: NewAdminTransactionHandler(led),
	}
	app := fiber.New()
	routes.Mount(app)

	return &testEnv{app: app, catalog: cat, ledger: led, fetcher: fetcher}
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Meta    map[string]any      `json:"meta"`
	Errors  map[string][]string `json:"errors"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func decodeData(t *testing.T, env envelope, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

// login signs in as the configured admin and returns the session cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/admin/login", fiber.Map{"username": "admin", "password": "admin123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == "tp_admin" && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}
