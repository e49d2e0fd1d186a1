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

type meetingService interface {
	ListMeetings(ctx context.Context, filter string) ([]application.Meeting, error)
	Upcoming(ctx context.Context) ([]application.Meeting, error)
	MeetingByID(ctx context.Context, id int64) (application.Meeting, bool, error)
	AddMeeting(ctx context.Context, draft application.MeetingDraft) (application.Meeting, error)
	CancelMeeting(ctx context.Context, id int64) (bool, error)
	CompleteMeeting(ctx context.Context, id int64) (bool, error)
	RecordFeedback(ctx context.Context, id int64, rating int, feedback string) (application.Meeting, error)
	Stats(ctx context.Context) (application.MeetingStats, error)
	SearchMeetings(ctx context.Context, query application.MeetingQuery) ([]application.Meeting, error)
	Analytics(ctx context.Context, from, to string) (application.MeetingAnalytics, error)
	Schedule(ctx context.Context, with, from, to string) (application.MeetingSchedule, error)
}

const msgCompleteFailed = "Only scheduled meetings can be marked as completed"

// MeetingHandler serves booking, listing and the meeting lifecycle.
type MeetingHandler struct {
	service   meetingService
	responder responder
	logger    *slog.Logger
}

func NewMeetingHandler(service meetingService, logger *slog.Logger) *MeetingHandler {
	base := defaultLogger(logger)
	return &MeetingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

func (h *MeetingHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// List handles GET /meetings?status=.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	filter := r.URL.Query().Get("status")
	logger := h.log(r.Context(), "List", "status_filter", filter)
	meetings, err := h.service.ListMeetings(r.Context(), filter)
	if err != nil {
		logger.ErrorContext(r.Context(), "meeting list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(meetings)).DebugContext(r.Context(), "meetings listed")
	h.responder.writeData(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: toMeetingDTOs(meetings)})
}

// Upcoming handles GET /meetings/upcoming.
func (h *MeetingHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	meetings, err := h.service.Upcoming(r.Context())
	if err != nil {
		h.log(r.Context(), "Upcoming").ErrorContext(r.Context(), "upcoming list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: toMeetingDTOs(meetings)})
}

// Stats handles GET /meetings/stats.
func (h *MeetingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.log(r.Context(), "Stats").ErrorContext(r.Context(), "stats failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, statsDTO{
		Upcoming:  stats.Upcoming,
		Completed: stats.Completed,
		Cancelled: stats.Cancelled,
		Total:     stats.Total,
	})
}

// Search handles GET /meetings/search?q=&status=&category=&from=&to=.
func (h *MeetingHandler) Search(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	values := r.URL.Query()
	query := application.MeetingQuery{
		Keyword:  values.Get("q"),
		Status:   values.Get("status"),
		Category: values.Get("category"),
		From:     values.Get("from"),
		To:       values.Get("to"),
	}
	logger := h.log(r.Context(), "Search", "keyword", query.Keyword)
	meetings, err := h.service.SearchMeetings(r.Context(), query)
	if err != nil {
		logger.WarnContext(r.Context(), "meeting search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(meetings)).DebugContext(r.Context(), "meetings searched")
	h.responder.writeData(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: toMeetingDTOs(meetings)})
}

// Analytics handles GET /meetings/analytics?from=&to=.
func (h *MeetingHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	analytics, err := h.service.Analytics(r.Context(), from, to)
	if err != nil {
		h.log(r.Context(), "Analytics", "from", from, "to", to).WarnContext(r.Context(), "analytics failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, toAnalyticsDTO(analytics))
}

// Schedule handles GET /meetings/schedule?with=&from=&to=.
func (h *MeetingHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	values := r.URL.Query()
	with, from, to := values.Get("with"), values.Get("from"), values.Get("to")
	schedule, err := h.service.Schedule(r.Context(), with, from, to)
	if err != nil {
		h.log(r.Context(), "Schedule", "with", with, "from", from, "to", to).WarnContext(r.Context(), "schedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, toScheduleDTO(schedule))
}

// Create handles POST /meetings.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode meeting request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "category", req.Category, "date", req.Date)
	meeting, err := h.service.AddMeeting(r.Context(), req.toDraft())
	if err != nil {
		logger.WarnContext(r.Context(), "booking rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("meeting_id", meeting.ID).InfoContext(r.Context(), "meeting booked")
	h.responder.writeData(r.Context(), w, http.StatusCreated, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

// Get handles GET /meetings/{id}.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.meetingID(w, r, "Get")
	if !ok {
		return
	}

	meeting, found, err := h.service.MeetingByID(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Get").ErrorContext(r.Context(), "meeting lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !found {
		h.responder.writeFailure(r.Context(), w, http.StatusNotFound, errorResponse{Message: statusMessage(http.StatusNotFound)})
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

// Cancel handles POST /meetings/{id}/cancel. A meeting that cannot be cancelled yields 409.
func (h *MeetingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.meetingID(w, r, "Cancel")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Cancel")
	cancelled, err := h.service.CancelMeeting(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !cancelled {
		logger.InfoContext(r.Context(), "meeting not cancellable")
		h.responder.writeFailure(r.Context(), w, http.StatusConflict, errorResponse{
			ErrorCode: "CANCEL_FAILED",
			Message:   application.MsgCancelFailed,
		})
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, transitionResponse{Cancelled: true})
}

// Complete handles POST /meetings/{id}/complete.
func (h *MeetingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.meetingID(w, r, "Complete")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Complete")
	completed, err := h.service.CompleteMeeting(r.Context(), id)
	if err != nil {
		logger.ErrorContext(r.Context(), "complete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !completed {
		logger.InfoContext(r.Context(), "meeting not completable")
		h.responder.writeFailure(r.Context(), w, http.StatusConflict, errorResponse{
			ErrorCode: "COMPLETE_FAILED",
			Message:   msgCompleteFailed,
		})
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, transitionResponse{Completed: true})
}

// Feedback handles POST /meetings/{id}/feedback.
func (h *MeetingHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.meetingID(w, r, "Feedback")
	if !ok {
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Feedback", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode feedback request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Feedback", "rating", req.Rating)
	meeting, err := h.service.RecordFeedback(r.Context(), id, req.Rating, req.Feedback)
	if err != nil {
		logger.WarnContext(r.Context(), "feedback rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, meetingResponse{Meeting: toMeetingDTO(meeting)})
}

func (h *MeetingHandler) meetingID(w http.ResponseWriter, r *http.Request, operation string) (int64, bool) {
	id, ok := MeetingIDFromContext(r.Context())
	if !ok || id <= 0 {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing meeting id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMeetingID)
		return 0, false
	}
	return id, true
}

type meetingRequest struct {
	Category      string `json:"category"`
	With          string `json:"with"`
	CounterpartID *int64 `json:"counterpartId"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Type          string `json:"type"`
	Location      string `json:"location"`
	Link          string `json:"link"`
	Purpose       string `json:"purpose"`
}

func (m meetingRequest) toDraft() application.MeetingDraft {
	return application.MeetingDraft{
		Category:      strings.TrimSpace(m.Category),
		With:          strings.TrimSpace(m.With),
		CounterpartID: m.CounterpartID,
		Date:          strings.TrimSpace(m.Date),
		StartTime:     strings.TrimSpace(m.StartTime),
		EndTime:       strings.TrimSpace(m.EndTime),
		Type:          strings.TrimSpace(m.Type),
		Location:      strings.TrimSpace(m.Location),
		Link:          strings.TrimSpace(m.Link),
		Purpose:       strings.TrimSpace(m.Purpose),
	}
}

type feedbackRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

type meetingResponse struct {
	Meeting meetingDTO `json:"meeting"`
}

type listMeetingsResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type transitionResponse struct {
	Cancelled bool `json:"cancelled,omitempty"`
	Completed bool `json:"completed,omitempty"`
}

type statsDTO struct {
	Upcoming  int `json:"upcoming"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

type analyticsDTO struct {
	From            string                  `json:"from"`
	To              string                  `json:"to"`
	Counts          statsDTO                `json:"counts"`
	TopCounterparts []counterpartSummaryDTO `json:"topCounterparts"`
}

type counterpartSummaryDTO struct {
	With               string  `json:"with"`
	Meetings           int     `json:"meetings"`
	AvgDurationMinutes float64 `json:"avgDurationMinutes"`
}

func toAnalyticsDTO(analytics application.MeetingAnalytics) analyticsDTO {
	top := make([]counterpartSummaryDTO, 0, len(analytics.TopCounterparts))
	for _, summary := range analytics.TopCounterparts {
		top = append(top, counterpartSummaryDTO{
			With:               summary.With,
			Meetings:           summary.Meetings,
			AvgDurationMinutes: summary.AvgDurationMinutes,
		})
	}
	return analyticsDTO{
		From: analytics.From,
		To:   analytics.To,
		Counts: statsDTO{
			Upcoming:  analytics.Counts.Upcoming,
			Completed: analytics.Counts.Completed,
			Cancelled: analytics.Counts.Cancelled,
			Total:     analytics.Counts.Total,
		},
		TopCounterparts: top,
	}
}

type scheduleDTO struct {
	From      string        `json:"from"`
	To        string        `json:"to"`
	Meetings  []meetingDTO  `json:"meetings"`
	Conflicts []conflictDTO `json:"conflicts"`
}

// conflictDTO names an overlapping pair; First starts no later than Second.
type conflictDTO struct {
	First  meetingDTO `json:"first"`
	Second meetingDTO `json:"second"`
}

func toScheduleDTO(schedule application.MeetingSchedule) scheduleDTO {
	conflicts := make([]conflictDTO, 0, len(schedule.Conflicts))
	for _, conflict := range schedule.Conflicts {
		conflicts = append(conflicts, conflictDTO{First: toMeetingDTO(conflict.First), Second: toMeetingDTO(conflict.Second)})
	}
	return scheduleDTO{
		From:      schedule.From,
		To:        schedule.To,
		Meetings:  toMeetingDTOs(schedule.Meetings),
		Conflicts: conflicts,
	}
}

type meetingDTO struct {
	ID            int64  `json:"id"`
	Category      string `json:"category"`
	With          string `json:"with"`
	CounterpartID *int64 `json:"counterpartId,omitempty"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Type          string `json:"type"`
	Location      string `json:"location,omitempty"`
	Link          string `json:"link,omitempty"`
	Purpose       string `json:"purpose,omitempty"`
	Status        string `json:"status"`
	Rating        *int   `json:"rating,omitempty"`
	Feedback      string `json:"feedback,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

func toMeetingDTO(meeting application.Meeting) meetingDTO {
	return meetingDTO{
		ID:            meeting.ID,
		Category:      string(meeting.Category),
		With:          meeting.With,
		CounterpartID: meeting.CounterpartID,
		Date:          meeting.Date,
		StartTime:     meeting.StartTime.String(),
		EndTime:       meeting.EndTime.String(),
		Type:          string(meeting.Type),
		Location:      meeting.Location,
		Link:          meeting.Link,
		Purpose:       meeting.Purpose,
		Status:        string(meeting.Status),
		Rating:        meeting.Rating,
		Feedback:      meeting.Feedback,
		CreatedAt:     formatTimestamp(meeting.CreatedAt),
		UpdatedAt:     formatTimestamp(meeting.UpdatedAt),
	}
}

func toMeetingDTOs(meetings []application.Meeting) []meetingDTO {
	dtos := make([]meetingDTO, 0, len(meetings))
	for _, meeting := range meetings {
		dtos = append(dtos, toMeetingDTO(meeting))
	}
	return dtos
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
