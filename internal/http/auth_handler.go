package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/mentoring-scheduler/internal/application"
)

const sessionCookieName = "session_token"

type authService interface {
	Register(ctx context.Context, params application.RegisterParams) (application.User, error)
	SignIn(ctx context.Context, params application.SignInParams) (application.Session, error)
	SignOut(ctx context.Context, token string) error
}

// AuthHandler serves self-registration, sign-in and sign-out.
type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Register handles POST /accounts.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode registration request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	srn := strings.ToUpper(strings.TrimSpace(req.SRN))
	logger := h.log(r.Context(), "Register", "srn", srn)

	user, err := h.service.Register(r.Context(), application.RegisterParams{
		Name:            strings.TrimSpace(req.Name),
		SRN:             srn,
		Email:           strings.TrimSpace(req.Email),
		Department:      strings.TrimSpace(req.Department),
		Year:            req.Year,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("user_id", user.ID).InfoContext(r.Context(), "student registered")
	h.responder.writeData(r.Context(), w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

// CreateSession handles POST /sessions. The token is returned in the body, the
// X-Session-Token header and the session cookie.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateSession", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	role := strings.TrimSpace(strings.ToLower(req.Role))
	logger := h.log(r.Context(), "CreateSession", "role", role)

	session, err := h.service.SignIn(r.Context(), application.SignInParams{
		Role:       role,
		Identifier: strings.TrimSpace(req.Identifier()),
		Password:   req.Password,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "sign-in failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	setSessionCookie(w, session.Token, session.ExpiresAt)
	w.Header().Set("X-Session-Token", session.Token)

	logger.With("user_id", session.User.ID).InfoContext(r.Context(), "user signed in")
	h.responder.writeData(r.Context(), w, http.StatusCreated, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		User:      toUserDTO(session.User),
	})
}

// DeleteCurrentSession handles DELETE /sessions/current.
func (h *AuthHandler) DeleteCurrentSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := tokenFromContext(r.Context())
	if token == "" {
		token = extractTokenFromRequest(r)
	}
	if token == "" {
		h.log(r.Context(), "DeleteCurrentSession", "error_kind", "unauthorized").ErrorContext(r.Context(), "missing session token for sign-out")
		h.responder.writeFailure(r.Context(), w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   errMissingSessionToken.Error(),
		})
		return
	}

	logger := h.log(r.Context(), "DeleteCurrentSession", "token_present", true)

	if err := h.service.SignOut(r.Context(), token); err != nil {
		logger.ErrorContext(r.Context(), "failed to sign out", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	clearSessionCookie(w)
	logger.InfoContext(r.Context(), "session revoked")
	h.responder.writeData(r.Context(), w, http.StatusOK, signOutResponse{SignedOut: true})
}

type registerRequest struct {
	Name            string `json:"name"`
	SRN             string `json:"srn"`
	Email           string `json:"email"`
	Department      string `json:"department"`
	Year            int    `json:"year"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// loginRequest accepts the identifier under the field name each sign-in form uses.
type loginRequest struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	SRN      string `json:"srn"`
	StaffID  string `json:"staffId"`
	Password string `json:"password"`
}

func (l loginRequest) Identifier() string {
	return firstNonEmpty(l.Username, l.SRN, l.StaffID)
}

type loginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expiresAt"`
	User      userDTO `json:"user"`
}

type signOutResponse struct {
	SignedOut bool `json:"signedOut"`
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(w, cookie)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
