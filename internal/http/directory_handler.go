package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/mentoring-scheduler/internal/application"
)

type directoryService interface {
	CurrentUser(ctx context.Context, token string) (application.User, error)
	UpdateCurrentUserRole(ctx context.Context, token, role string) (application.User, error)
	AvailableMentors(ctx context.Context) ([]application.User, error)
	Mentors(ctx context.Context) ([]application.User, error)
	Professors(ctx context.Context) ([]application.User, error)
	Students(ctx context.Context) ([]application.User, error)
	MentorByID(ctx context.Context, id int64) (application.User, bool, error)
	ProfessorByID(ctx context.Context, id int64) (application.User, bool, error)
	StudentByID(ctx context.Context, id int64) (application.User, bool, error)
}

// DirectoryHandler serves the current user and the mentor, professor and student rosters.
type DirectoryHandler struct {
	service   directoryService
	responder responder
	logger    *slog.Logger
}

func NewDirectoryHandler(service directoryService, logger *slog.Logger) *DirectoryHandler {
	base := defaultLogger(logger)
	return &DirectoryHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DirectoryHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "DirectoryHandler", operation, attrs...)
}

// Me handles GET /me.
func (h *DirectoryHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	user, err := h.service.CurrentUser(r.Context(), tokenFromContext(r.Context()))
	if err != nil {
		h.log(r.Context(), "Me").ErrorContext(r.Context(), "current user lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

// UpdateRole handles PUT /me/role.
func (h *DirectoryHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateRole", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode role request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateRole", "role", req.Role)
	user, err := h.service.UpdateCurrentUserRole(r.Context(), tokenFromContext(r.Context()), req.Role)
	if err != nil {
		logger.ErrorContext(r.Context(), "role update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "role updated", "user_id", user.ID)
	h.responder.writeData(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

// ListMentors handles GET /mentors. ?available=true keeps mentors accepting new mentees.
func (h *DirectoryHandler) ListMentors(w http.ResponseWriter, r *http.Request) {
	list := h.mentorList
	if available, _ := strconv.ParseBool(r.URL.Query().Get("available")); available {
		list = h.availableMentorList
	}
	h.writeRoster(w, r, "ListMentors", list)
}

// ListProfessors handles GET /professors.
func (h *DirectoryHandler) ListProfessors(w http.ResponseWriter, r *http.Request) {
	h.writeRoster(w, r, "ListProfessors", func(ctx context.Context) ([]application.User, error) {
		return h.service.Professors(ctx)
	})
}

// ListStudents handles GET /students.
func (h *DirectoryHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	h.writeRoster(w, r, "ListStudents", func(ctx context.Context) ([]application.User, error) {
		return h.service.Students(ctx)
	})
}

// GetMentor handles GET /mentors/{id}.
func (h *DirectoryHandler) GetMentor(w http.ResponseWriter, r *http.Request, rawID string) {
	h.writeLookup(w, r, "GetMentor", rawID, func(ctx context.Context, id int64) (application.User, bool, error) {
		return h.service.MentorByID(ctx, id)
	})
}

// GetProfessor handles GET /professors/{id}.
func (h *DirectoryHandler) GetProfessor(w http.ResponseWriter, r *http.Request, rawID string) {
	h.writeLookup(w, r, "GetProfessor", rawID, func(ctx context.Context, id int64) (application.User, bool, error) {
		return h.service.ProfessorByID(ctx, id)
	})
}

// GetStudent handles GET /students/{id}.
func (h *DirectoryHandler) GetStudent(w http.ResponseWriter, r *http.Request, rawID string) {
	h.writeLookup(w, r, "GetStudent", rawID, func(ctx context.Context, id int64) (application.User, bool, error) {
		return h.service.StudentByID(ctx, id)
	})
}

func (h *DirectoryHandler) mentorList(ctx context.Context) ([]application.User, error) {
	return h.service.Mentors(ctx)
}

func (h *DirectoryHandler) availableMentorList(ctx context.Context) ([]application.User, error) {
	return h.service.AvailableMentors(ctx)
}

func (h *DirectoryHandler) writeRoster(w http.ResponseWriter, r *http.Request, operation string, list func(context.Context) ([]application.User, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), operation)
	users, err := list(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "roster listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(users)).DebugContext(r.Context(), "roster listed")
	h.responder.writeData(r.Context(), w, http.StatusOK, listUsersResponse{Users: toUserDTOs(users)})
}

func (h *DirectoryHandler) writeLookup(w http.ResponseWriter, r *http.Request, operation, rawID string, lookup func(context.Context, int64) (application.User, bool, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, err := parseID(rawID)
	if err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "invalid user id", "raw_id", rawID)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	logger := h.log(r.Context(), operation, "user_id", id)
	user, found, err := lookup(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "user lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !found {
		h.responder.writeFailure(r.Context(), w, http.StatusNotFound, errorResponse{Message: statusMessage(http.StatusNotFound)})
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

type roleRequest struct {
	Role string `json:"role"`
}

type userResponse struct {
	User userDTO `json:"user"`
}

type listUsersResponse struct {
	Users []userDTO `json:"users"`
}

// userDTO carries the profile fields of every role; empty ones are omitted.
type userDTO struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Role           string   `json:"role"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	SRN            string   `json:"srn,omitempty"`
	StaffID        string   `json:"staffId,omitempty"`
	Department     string   `json:"department,omitempty"`
	Year           int      `json:"year,omitempty"`
	Courses        []string `json:"courses,omitempty"`
	OfficeLocation string   `json:"officeLocation,omitempty"`
	Specialization string   `json:"specialization,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	Mentees        *int     `json:"mentees,omitempty"`
	MaxMentees     *int     `json:"maxMentees,omitempty"`
	IsAvailable    *bool    `json:"isAvailable,omitempty"`
}

func toUserDTO(user application.User) userDTO {
	dto := userDTO{
		ID:             user.ID,
		Name:           user.Name,
		Role:           string(user.Role),
		Email:          user.Email,
		Phone:          user.Phone,
		SRN:            user.SRN,
		StaffID:        user.StaffID,
		Department:     user.Department,
		Year:           user.Year,
		Courses:        user.Courses,
		OfficeLocation: user.OfficeLocation,
		Specialization: user.Specialization,
		Bio:            user.Bio,
		Rating:         user.Rating,
	}
	if user.Role == application.RoleFAM {
		mentees, maxMentees, available := user.Mentees, user.MaxMentees, user.IsAvailable
		dto.Mentees = &mentees
		dto.MaxMentees = &maxMentees
		dto.IsAvailable = &available
	}
	return dto
}

func toUserDTOs(users []application.User) []userDTO {
	dtos := make([]userDTO, 0, len(users))
	for _, user := range users {
		dtos = append(dtos, toUserDTO(user))
	}
	return dtos
}
