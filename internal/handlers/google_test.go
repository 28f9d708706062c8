package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Windi-Fikriyansyah/topup_be/internal/utils"
)

type googleStub struct {
	*httptest.Server
	email    string
	verified bool
}

func newGoogleStub(t *testing.T) *googleStub {
	t.Helper()
	stub := &googleStub{verified: true}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"email":          stub.email,
			"verified_email": stub.verified,
			"name":           "Ops",
		})
	})
	stub.Server = httptest.NewServer(mux)
	t.Cleanup(stub.Close)
	return stub
}

func newGoogleApp(stub *googleStub) (*fiber.App, *GoogleOAuthHandler) {
	h := &GoogleOAuthHandler{
		JWTSecret:       testJWTSecret,
		Expires:         60,
		GoogleClientID:  "client-id",
		GoogleSecret:    "client-secret",
		GoogleRedirect:  "http://api.local/api/admin/auth/google/callback",
		FrontendBaseURL: "http://shop.local",
		AllowedEmails:   []string{" Ops@Example.com "},
		Endpoint: oauth2.Endpoint{
			AuthURL:   stub.URL + "/auth",
			TokenURL:  stub.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: stub.URL + "/userinfo",
	}
	app := fiber.New()
	app.Get("/start", h.GoogleStart)
	app.Get("/callback", h.GoogleCallback)
	return app, h
}

func cookieNamed(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func callback(t *testing.T, app *fiber.App, query string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/callback?"+query, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestGoogleStart(t *testing.T) {
	app, _ := newGoogleApp(newGoogleStub(t))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/start?next=/admin/transactions", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	state := cookieNamed(resp, "oauth_state")
	require.NotNil(t, state)
	assert.NotEmpty(t, state.Value)
	next := cookieNamed(resp, "oauth_next")
	require.NotNil(t, next)
	assert.Equal(t, "/admin/transactions", next.Value)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth", loc.Path)
	assert.Equal(t, state.Value, loc.Query().Get("state"))
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))
}

func TestGoogleStartDisabled(t *testing.T) {
	h := &GoogleOAuthHandler{}
	app := fiber.New()
	app.Get("/start", h.GoogleStart)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/start", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGoogleCallbackRejectsBadState(t *testing.T) {
	app, _ := newGoogleApp(newGoogleStub(t))

	resp := callback(t, app, "code=good-code")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = callback(t, app, "code=good-code&state=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = callback(t, app, "code=good-code&state=abc", &http.Cookie{Name: "oauth_state", Value: "other"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGoogleCallbackSignsInAllowedEmail(t *testing.T) {
	stub := newGoogleStub(t)
	stub.email = "ops@example.com"
	app, _ := newGoogleApp(stub)

	resp := callback(t, app, "code=good-code&state=s1",
		&http.Cookie{Name: "oauth_state", Value: "s1"},
		&http.Cookie{Name: "oauth_next", Value: "/admin/transactions"},
	)
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "http://shop.local/admin/transactions", resp.Header.Get("Location"))

	session := cookieNamed(resp, "tp_admin")
	require.NotNil(t, session)
	_, claims, err := utils.ParseJWT(testJWTSecret, session.Value)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.UserID)
	assert.Equal(t, utils.RoleAdmin, claims.Role)
}

func TestGoogleCallbackOpenRedirectFallsBack(t *testing.T) {
	stub := newGoogleStub(t)
	stub.email = "ops@example.com"
	app, _ := newGoogleApp(stub)

	resp := callback(t, app, "code=good-code&state=s1",
		&http.Cookie{Name: "oauth_state", Value: "s1"},
		&http.Cookie{Name: "oauth_next", Value: "//evil.example"},
	)
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "http://shop.local/admin", resp.Header.Get("Location"))
}

func TestGoogleCallbackRefusals(t *testing.T) {
	cases := []struct {
		name     string
		email    string
		verified bool
	}{
		{"not allowed", "stranger@example.com", true},
		{"unverified", "ops@example.com", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := newGoogleStub(t)
			stub.email = tc.email
			stub.verified = tc.verified
			app, _ := newGoogleApp(stub)

			resp := callback(t, app, "code=good-code&state=s1", &http.Cookie{Name: "oauth_state", Value: "s1"})
			require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
			assert.Equal(t, "http://shop.local/admin/login?err=Akun+tidak+diizinkan", resp.Header.Get("Location"))
			assert.Nil(t, cookieNamed(resp, "tp_admin"))
		})
	}
}

func TestGoogleCallbackExchangeFailure(t *testing.T) {
	app, _ := newGoogleApp(newGoogleStub(t))

	resp := callback(t, app, "code=bad-code&state=s1", &http.Cookie{Name: "oauth_state", Value: "s1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
