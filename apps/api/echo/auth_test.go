package echoapi

import (
	"net/http"
	"testing"
	"time"
)

func TestCombinedAuthMiddleware(t *testing.T) {
	srv, conf := newTestServer(t)
	token := getToken(t, conf)

	expiredConf := testConfig(t)
	expiredConf.Server.JWTExpirationDelta = -time.Minute
	expiredToken := getToken(t, expiredConf)

	otherConf := testConfig(t)
	otherConf.SecretKey = []byte("not-the-secret")
	forgedToken := getToken(t, otherConf)

	tests := []httpTest{
		{
			name: "no header", method: http.MethodGet, path: "/v1/visitors",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingTokenResp),
		},
		{
			name: "scheme without credentials", method: http.MethodGet, path: "/v1/visitors", auth: "Bearer",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingTokenResp),
		},
		{
			name: "unknown scheme", method: http.MethodGet, path: "/v1/visitors", auth: "Basic dXNlcjpwd2Q=",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Message: "not authenticated"}),
		},
		{
			name: "wrong api key", method: http.MethodGet, path: "/v1/visitors", auth: "ApiKey nope",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Message: "not authenticated"}),
		},
		{
			name: "valid api key", method: http.MethodGet, path: "/v1/visitors", auth: "ApiKey " + testAPIKey,
			wantCode: http.StatusOK,
		},
		{
			name: "garbage bearer token", method: http.MethodGet, path: "/v1/visitors", auth: "Bearer lmaooolol",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Message: "not authenticated"}),
		},
		{
			name: "expired bearer token", method: http.MethodGet, path: "/v1/visitors", auth: "Bearer " + expiredToken,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Message: "not authenticated"}),
		},
		{
			name: "token signed with another key", method: http.MethodGet, path: "/v1/visitors", auth: "Bearer " + forgedToken,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Message: "not authenticated"}),
		},
		{
			name: "valid bearer token", method: http.MethodGet, path: "/v1/visitors", auth: "Bearer " + token,
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.auth, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []httpTest{
		{
			name: "empty body", method: http.MethodPost, path: "/v1/auth/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, LoginRequest{Email: "who@test.test", Password: testAdminPassword}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, LoginRequest{Email: testAdminEmail, Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "authentication failed"}),
		},
		{
			name: "success", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, LoginRequest{Email: testAdminEmail, Password: testAdminPassword}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var res LoginResponse
				unmarchallObj(t, rec.Body.Bytes(), &res)
				if res.Token == "" {
					t.Error("no token returned")
				}
			}
		})
	}
}

func TestTokenRefresh(t *testing.T) {
	srv, conf := newTestServer(t)
	token := getToken(t, conf)

	t.Run("bearer token refreshes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", "Bearer "+token)
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body.String())
		}
		var res LoginResponse
		unmarchallObj(t, rec.Body.Bytes(), &res)
		if res.Token == "" {
			t.Error("no token returned")
		}
	})

	t.Run("api key cannot refresh", func(t *testing.T) {
		// an API key carries no claims to reissue
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", "ApiKey "+testAPIKey)
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d, want 401", rec.Code)
		}
	})

	t.Run("refresh window closed", func(t *testing.T) {
		staleClaims := GetAdminClaims(conf, time.Now().Add(-5*time.Hour).Unix())
		stale, err := GenerateToken(staleClaims, conf)
		if err != nil {
			t.Fatalf("GenerateToken() failed: %v", err)
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", "Bearer "+stale)
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want 403; body %s", rec.Code, rec.Body.String())
		}
	})
}
