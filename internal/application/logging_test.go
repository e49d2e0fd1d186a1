package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/example/mentoring-scheduler/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLogger_PrefersContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctxLogger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

	serviceLogger(ctx, slog.New(slog.NewJSONHandler(io.Discard, nil)), "MeetingService", "AddMeeting", "meeting_id", 7).
		InfoContext(ctx, "meeting booked")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log entry, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "MeetingService" || entry["operation"] != "AddMeeting" || entry["meeting_id"] != float64(7) {
		t.Fatalf("unexpected log attributes: %v", entry)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err  error
		want string
	}{
		"nil":          {err: nil, want: ""},
		"wrapped slot": {err: fmt.Errorf("booking: %w", ErrSlotUnavailable), want: "slot_unavailable"},
		"mentor":       {err: ErrMentorUnavailable, want: "mentor_unavailable"},
		"validation":   {err: newValidationError("date", "Please choose a date"), want: "validation"},
		"credentials":  {err: ErrInvalidCredentials, want: "invalid_credentials"},
		"unexpected":   {err: errors.New("boom"), want: "unexpected"},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
