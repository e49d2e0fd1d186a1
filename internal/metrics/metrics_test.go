package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, r *Recorder) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestRecorder_ExposesCounters(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.MeetingBooked("Student-FAM")
	r.MeetingBooked("Student-FAM")
	r.BookingRejected("slot_unavailable")
	r.MeetingTransitioned("Cancelled")
	r.NotesSaved()

	body := scrape(t, r)
	for _, want := range []string{
		`mentoring_meetings_booked_total{category="Student-FAM"} 2`,
		`mentoring_bookings_rejected_total{reason="slot_unavailable"} 1`,
		`mentoring_meeting_transitions_total{status="Cancelled"} 1`,
		`mentoring_notes_saved_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestRecorder_InstrumentHandlerCountsRequests(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	handler := r.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if body := scrape(t, r); !strings.Contains(body, `mentoring_http_requests_total{code="418",method="get"} 1`) {
		t.Fatalf("request counter missing from output:\n%s", body)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.MeetingBooked("Peer-to-Peer")
	r.BookingRejected("validation")
	r.MeetingTransitioned("Completed")
	r.NotesSaved()
	if r.InstrumentHandler(http.NotFoundHandler()) == nil {
		t.Fatal("expected passthrough handler")
	}
}
