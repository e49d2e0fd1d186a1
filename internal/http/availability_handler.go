package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/mentoring-scheduler/internal/application"
)

type availabilityService interface {
	Windows(ctx context.Context) ([]application.AvailabilityWindow, error)
	WindowsForDay(ctx context.Context, day string) ([]application.AvailabilityWindow, error)
	Occurrences(ctx context.Context, from, to string) ([]application.Occurrence, error)
	SlotsForDate(ctx context.Context, date string, intervalMinutes int) ([]application.Slot, error)
	IsSlotAvailable(ctx context.Context, date, start, end string) (bool, error)
}

// AvailabilityHandler serves the weekly windows and the bookable slots of a date.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

// Windows handles GET /availability[?day=Friday].
func (h *AvailabilityHandler) Windows(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var (
		windows []application.AvailabilityWindow
		err     error
	)
	if day := strings.TrimSpace(r.URL.Query().Get("day")); day != "" {
		windows, err = h.service.WindowsForDay(r.Context(), day)
	} else {
		windows, err = h.service.Windows(r.Context())
	}
	if err != nil {
		h.log(r.Context(), "Windows").ErrorContext(r.Context(), "availability listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]windowDTO, 0, len(windows))
	for _, window := range windows {
		dtos = append(dtos, windowDTO{Day: window.Day.String(), Start: window.Start.String(), End: window.End.String()})
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, availabilityResponse{Availability: dtos})
}

// Occurrences handles GET /availability/occurrences?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *AvailabilityHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	from, to := query.Get("from"), query.Get("to")
	occurrences, err := h.service.Occurrences(r.Context(), from, to)
	if err != nil {
		h.log(r.Context(), "Occurrences", "from", from, "to", to).WarnContext(r.Context(), "occurrence listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]occurrenceDTO, 0, len(occurrences))
	for _, occurrence := range occurrences {
		dtos = append(dtos, occurrenceDTO{
			Date:  occurrence.Date,
			Day:   occurrence.Day.String(),
			Start: occurrence.Start.String(),
			End:   occurrence.End.String(),
		})
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, occurrencesResponse{Occurrences: dtos})
}

// Slots handles GET /slots?date=YYYY-MM-DD&interval=30.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	date := strings.TrimSpace(query.Get("date"))
	interval := 0
	if raw := strings.TrimSpace(query.Get("interval")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
				FieldErrors: map[string]string{"interval": "interval must be a positive number of minutes"},
			})
			return
		}
		interval = parsed
	}

	logger := h.log(r.Context(), "Slots", "date", date, "interval", interval)
	slots, err := h.service.SlotsForDate(r.Context(), date, interval)
	if err != nil {
		logger.WarnContext(r.Context(), "slot generation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		dtos = append(dtos, slotDTO{Date: slot.Date, Start: slot.Start.String(), End: slot.End.String(), Available: slot.Available})
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, slotsResponse{Date: date, Slots: dtos})
}

// Check handles GET /slots/check?date=&start=&end=. end defaults to start plus 30 minutes.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	date, start, end := query.Get("date"), query.Get("start"), query.Get("end")
	available, err := h.service.IsSlotAvailable(r.Context(), date, start, end)
	if err != nil {
		h.log(r.Context(), "Check", "date", date).WarnContext(r.Context(), "slot check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, slotCheckResponse{Available: available})
}

type windowDTO struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type availabilityResponse struct {
	Availability []windowDTO `json:"availability"`
}

type occurrenceDTO struct {
	Date  string `json:"date"`
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type occurrencesResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
}

type slotDTO struct {
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

type slotsResponse struct {
	Date  string    `json:"date"`
	Slots []slotDTO `json:"slots"`
}

type slotCheckResponse struct {
	Available bool `json:"available"`
}
