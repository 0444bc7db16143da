package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/fund-advisor/internal/config"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

func signed(t *testing.T, secret string, method jwt.SigningMethod) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{AdminPasswordHash: "hash", JWTSecret: "s3cret"}
	var subject string
	h := AuthMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		method string
		auth   string
		want   int
	}{
		{"reads are open", http.MethodGet, "", http.StatusNoContent},
		{"write without token", http.MethodPost, "", http.StatusUnauthorized},
		{"write with wrong secret", http.MethodPost, "Bearer " + signed(t, "other", jwt.SigningMethodHS256), http.StatusUnauthorized},
		{"write with garbage", http.MethodPost, "Bearer abc", http.StatusUnauthorized},
		{"write with token", http.MethodPost, "Bearer " + signed(t, "s3cret", jwt.SigningMethodHS256), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			req := httptest.NewRequest(tt.method, "/api/investors", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"error"`) {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
	if subject != "admin" {
		t.Errorf("subject = %q after the authorized request", subject)
	}
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	h := AuthMiddleware(&config.Config{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/investors", nil))
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	h := chimw.RequestID(Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/portfolio/3", nil))

	out := buf.String()
	for _, want := range []string{`"status":404`, `"level":"warning"`, `"path":"/api/portfolio/3"`, `"bytes":7`, `"request_id":"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log misses %s: %s", want, out)
		}
	}
}
