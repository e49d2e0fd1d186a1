package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/mentoring-scheduler/internal/application"
	"github.com/example/mentoring-scheduler/internal/notify"
)

type fakeSessionValidator struct {
	principal application.Principal
	err       error
}

func (f fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	return f.principal, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name           string
			cookieToken    *http.Cookie
			headerToken    string
			lookupError    error
			expectedStatus int
			expectedCode   string
		}{
			{
				name:           "missing credentials",
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   "AUTH_REQUIRED",
			},
			{
				name:           "non bearer authorization header",
				headerToken:    "Basic abc",
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   "AUTH_REQUIRED",
			},
			{
				name:           "unknown session",
				cookieToken:    &http.Cookie{Name: sessionCookieName, Value: "revoked-token"},
				lookupError:    application.ErrInvalidCredentials,
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   "AUTH_INVALID_SESSION",
			},
			{
				name:           "expired session",
				headerToken:    "Bearer expired-token",
				lookupError:    application.ErrSessionExpired,
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   "AUTH_SESSION_EXPIRED",
			},
			{
				name:           "store failure",
				headerToken:    "Bearer transient",
				lookupError:    errors.New("disk on fire"),
				expectedStatus: http.StatusInternalServerError,
			},
		}

		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/meetings", nil)
				if tc.cookieToken != nil {
					req.AddCookie(tc.cookieToken)
				}
				if tc.headerToken != "" {
					req.Header.Set("Authorization", tc.headerToken)
				}
				recorder := httptest.NewRecorder()

				handler := RequireSession(fakeSessionValidator{err: tc.lookupError}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(recorder, req)

				if recorder.Code != tc.expectedStatus {
					t.Fatalf("expected status %d, got %d", tc.expectedStatus, recorder.Code)
				}
				var body errorResponse
				if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
					t.Fatalf("decode body: %v", err)
				}
				if body.ErrorCode != tc.expectedCode || body.Message == "" {
					t.Fatalf("unexpected body %+v", body)
				}
			})
		}
	})

	t.Run("attaches authenticated principal to request context", func(t *testing.T) {
		t.Parallel()

		principal := application.Principal{UserID: 13, Role: application.RoleStudent, Name: "Meera Iyer"}
		requests := map[string]func(*http.Request){
			"bearer": func(r *http.Request) { r.Header.Set("Authorization", "Bearer valid-token") },
			"header": func(r *http.Request) { r.Header.Set("X-Session-Token", "valid-token") },
			"cookie": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-token"}) },
		}

		for name, prepare := range requests {
			prepare := prepare
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/me", nil)
				prepare(req)
				recorder := httptest.NewRecorder()

				var (
					captured application.Principal
					token    string
				)
				middleware := RequireSession(fakeSessionValidator{principal: principal}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					p, ok := PrincipalFromContext(r.Context())
					if !ok {
						t.Fatal("expected principal in request context")
					}
					captured = p
					token = tokenFromContext(r.Context())
					w.WriteHeader(http.StatusOK)
				}))
				middleware.ServeHTTP(recorder, req)

				if recorder.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d", recorder.Code)
				}
				if captured != principal {
					t.Fatalf("expected principal %+v, got %+v", principal, captured)
				}
				if token != "valid-token" {
					t.Fatalf("expected token in context, got %q", token)
				}
			})
		}
	})
}

func TestIsPublicRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		path   string
		public bool
	}{
		{http.MethodGet, "/health", true},
		{http.MethodGet, "/metrics", true},
		{http.MethodPost, "/sessions", true},
		{http.MethodPost, "/accounts", true},
		{http.MethodPost, "/accounts/", true},
		{http.MethodGet, "/sessions", false},
		{http.MethodDelete, "/sessions/current", false},
		{http.MethodGet, "/meetings", false},
		{http.MethodPost, "/health", false},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if got := IsPublicRequest(req); got != tc.public {
			t.Errorf("IsPublicRequest(%s %s) = %v, want %v", tc.method, tc.path, got, tc.public)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	t.Run("throttles each client independently", func(t *testing.T) {
		t.Parallel()

		limiter := NewRateLimiter(1, 2, discardLogger())
		fixed := time.Date(2025, time.October, 16, 9, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return fixed }

		handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		send := func(addr string) int {
			req := httptest.NewRequest(http.MethodGet, "/meetings", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec.Code
		}

		for i := 0; i < 2; i++ {
			if code := send("10.0.0.1:5000"); code != http.StatusNoContent {
				t.Fatalf("request %d: expected 204, got %d", i+1, code)
			}
		}
		if code := send("10.0.0.1:5001"); code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 once the burst is spent, got %d", code)
		}
		if code := send("10.0.0.2:5000"); code != http.StatusNoContent {
			t.Fatalf("expected other clients to pass, got %d", code)
		}
	})

	t.Run("zero limit disables throttling", func(t *testing.T) {
		t.Parallel()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
		limiter := NewRateLimiter(0, 1, discardLogger())
		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			limiter.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected passthrough, got %d", rec.Code)
			}
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected request logger in context")
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slots", nil))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log entry %q: %v", buf.String(), err)
	}
	if entry["msg"] != "request completed" || entry["path"] != "/slots" || entry["request_id"] != float64(1) {
		t.Fatalf("unexpected log entry %+v", entry)
	}
	if entry["status"] != float64(http.StatusAccepted) {
		t.Fatalf("expected status 202 in log entry, got %v", entry["status"])
	}
}

func TestCollectNotifications(t *testing.T) {
	t.Parallel()

	handler := CollectNotifications(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		notify.NewDispatcher(nil).Notify(r.Context(), notify.Success("Meeting booked successfully!"))
		newResponder(discardLogger()).writeData(r.Context(), w, http.StatusOK, map[string]string{"ok": "yes"})
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/meetings", nil))

	if !strings.Contains(rec.Body.String(), `"notifications":[{"message":"Meeting booked successfully!","type":"success"}]`) {
		t.Fatalf("expected notification in envelope, got %s", rec.Body.String())
	}
}
