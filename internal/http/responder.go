package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/mentoring-scheduler/internal/application"
	"github.com/example/mentoring-scheduler/internal/notify"
)

var (
	errBadRequestBody      = errors.New("The request body is not valid JSON.")
	errInvalidMeetingID    = errors.New("The meeting id must be a positive integer.")
	errInvalidUserID       = errors.New("The user id must be a positive integer.")
	errMissingSessionToken = errors.New("Please sign in to continue.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request logger installed by RequestLogger and tags
// entries with the handler, the operation and the path meeting id when known.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if id, ok := MeetingIDFromContext(ctx); ok {
		pairs = append(pairs, "meeting_id", id)
	}
	return logger.With(append(pairs, attrs...)...)
}

// envelope wraps successful payloads together with the notifications raised while serving them.
type envelope struct {
	Data          any                   `json:"data,omitempty"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

type errorResponse struct {
	ErrorCode     string                `json:"error_code,omitempty"`
	Message       string                `json:"message"`
	Errors        map[string]string     `json:"errors,omitempty"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeData sends payload in an envelope carrying the request's notifications.
func (r responder) writeData(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	r.writeJSON(ctx, w, status, envelope{Data: payload, Notifications: drainNotifications(ctx)})
}

func (r responder) writeFailure(ctx context.Context, w http.ResponseWriter, status int, resp errorResponse) {
	resp.Notifications = drainNotifications(ctx)
	r.writeJSON(ctx, w, status, resp)
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeFailure(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		// The service already reported the most relevant field as a notification.
		notifications := drainNotifications(ctx)
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode:     "VALIDATION_FAILED",
			Message:       firstNonEmpty(lastError(notifications), vErr.FirstMessage(), statusMessage(http.StatusUnprocessableEntity)),
			Errors:        vErr.FieldErrors,
			Notifications: notifications,
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeFailure(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   statusMessage(http.StatusForbidden),
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeFailure(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   application.MsgInvalidCredentials,
		})
	case errors.Is(err, application.ErrSessionExpired):
		r.writeFailure(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "Your session has expired. Please sign in again.",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeFailure(ctx, w, http.StatusNotFound, errorResponse{Message: statusMessage(http.StatusNotFound)})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeFailure(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   application.MsgSRNRegistered,
		})
	case errors.Is(err, application.ErrSlotUnavailable):
		r.writeFailure(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_UNAVAILABLE",
			Message:   application.MsgSlotUnavailable,
		})
	case errors.Is(err, application.ErrMentorUnavailable):
		r.writeFailure(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "MENTOR_UNAVAILABLE",
			Message:   application.MsgMentorUnavailable,
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeFailure(ctx, w, http.StatusInternalServerError, errorResponse{Message: statusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func drainNotifications(ctx context.Context) []notify.Notification {
	if collector := notify.CollectorFromContext(ctx); collector != nil {
		return collector.Drain()
	}
	return nil
}

func lastError(notifications []notify.Notification) string {
	for i := len(notifications) - 1; i >= 0; i-- {
		if notifications[i].Severity == notify.SeverityError {
			return notifications[i].Message
		}
	}
	return ""
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request is not valid."
	case http.StatusUnauthorized:
		return "Please sign in to continue."
	case http.StatusForbidden:
		return "You are not allowed to perform this action."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The request conflicts with the current state of the resource."
	case http.StatusUnprocessableEntity:
		return "Please check the highlighted fields."
	case http.StatusTooManyRequests:
		return "Too many requests. Please try again later."
	default:
		return "Something went wrong on our side. Please try again."
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
