package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/mentoring-scheduler/internal/application"
)

type notesService interface {
	Notes(ctx context.Context, principal application.Principal, meetingID int64) (string, error)
	SaveNotes(ctx context.Context, principal application.Principal, meetingID int64, text string) error
	MentorMeetings(ctx context.Context, principal application.Principal) ([]application.MentorMeeting, error)
}

// NotesHandler serves the mentor meeting notes.
type NotesHandler struct {
	service   notesService
	responder responder
	logger    *slog.Logger
}

func NewNotesHandler(service notesService, logger *slog.Logger) *NotesHandler {
	base := defaultLogger(logger)
	return &NotesHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *NotesHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "NotesHandler", operation, attrs...)
}

// principal returns the signed-in principal or writes a 401.
func (h *NotesHandler) principal(w http.ResponseWriter, r *http.Request, operation string) (application.Principal, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok || principal.UserID == 0 {
		h.log(r.Context(), operation, "error_kind", "unauthorized").ErrorContext(r.Context(), "missing authenticated principal")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return application.Principal{}, false
	}
	return principal, true
}

// Get handles GET /meetings/{id}/notes.
func (h *NotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.principal(w, r, "Get")
	if !ok {
		return
	}
	meetingID, ok := MeetingIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	text, err := h.service.Notes(r.Context(), principal, meetingID)
	if err != nil {
		h.log(r.Context(), "Get", "principal_id", principal.UserID).ErrorContext(r.Context(), "notes lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, notesDTO{MeetingID: meetingID, Notes: text})
}

// Save handles PUT /meetings/{id}/notes.
func (h *NotesHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.principal(w, r, "Save")
	if !ok {
		return
	}
	meetingID, ok := MeetingIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return
	}

	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Save", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode notes request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Save", "principal_id", principal.UserID)
	if err := h.service.SaveNotes(r.Context(), principal, meetingID, req.Notes); err != nil {
		logger.WarnContext(r.Context(), "notes rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	text, err := h.service.Notes(r.Context(), principal, meetingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "notes reload failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "notes saved")
	h.responder.writeData(r.Context(), w, http.StatusOK, notesDTO{MeetingID: meetingID, Notes: text})
}

// MentorMeetings handles GET /notes.
func (h *NotesHandler) MentorMeetings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := h.principal(w, r, "MentorMeetings")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "MentorMeetings", "principal_id", principal.UserID)
	entries, err := h.service.MentorMeetings(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "mentor meetings failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]mentorMeetingDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, mentorMeetingDTO{Meeting: toMeetingDTO(entry.Meeting), Notes: entry.Notes})
	}
	logger.With("result_count", len(dtos)).DebugContext(r.Context(), "mentor meetings listed")
	h.responder.writeData(r.Context(), w, http.StatusOK, mentorMeetingsResponse{Meetings: dtos})
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type notesDTO struct {
	MeetingID int64  `json:"meetingId"`
	Notes     string `json:"notes"`
}

type mentorMeetingDTO struct {
	Meeting meetingDTO `json:"meeting"`
	Notes   string     `json:"notes"`
}

type mentorMeetingsResponse struct {
	Meetings []mentorMeetingDTO `json:"meetings"`
}
