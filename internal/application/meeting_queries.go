package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/example/mentoring-scheduler/internal/persistence"
	"github.com/example/mentoring-scheduler/internal/scheduler"
)

// MsgRangeReversed rejects a date range whose end precedes its start.
const MsgRangeReversed = "The end date must not be before the start date"

// maxTopCounterparts bounds MeetingAnalytics.TopCounterparts.
const maxTopCounterparts = 5

// SearchMeetings filters meetings by keyword, status, category and an inclusive
// date range. The keyword matches purpose, counterpart, category and location, ignoring case.
func (s *MeetingService) SearchMeetings(ctx context.Context, query MeetingQuery) (matched []Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SearchMeetings",
		"keyword", query.Keyword,
		"status", query.Status,
		"category", query.Category,
		"from", query.From,
		"to", query.To,
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "meeting search failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "meetings searched", "result_count", len(matched))
	}()

	vErr := &ValidationError{}
	var status Status
	if trimmed := strings.TrimSpace(query.Status); trimmed != "" && !strings.EqualFold(trimmed, StatusFilterAll) {
		parsed, ok := ParseStatus(trimmed)
		if !ok {
			vErr.add("status", "status must be one of all, Scheduled, Completed, Cancelled")
		}
		status = parsed
	}
	var category Category
	if trimmed := strings.TrimSpace(query.Category); trimmed != "" {
		parsed, ok := ParseCategory(trimmed)
		if !ok {
			vErr.add("category", MsgChooseMeetingType)
		}
		category = parsed
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var from, to string
	if from, to, err = s.dateRange(query.From, query.To); err != nil {
		return
	}

	var meetings []Meeting
	if meetings, err = s.list(ctx, persistence.MeetingFilter{Status: string(status)}); err != nil {
		return
	}

	keyword := strings.ToLower(strings.TrimSpace(query.Keyword))
	matched = make([]Meeting, 0, len(meetings))
	for _, meeting := range meetings {
		if category != "" && meeting.Category != category {
			continue
		}
		if !withinRange(meeting.Date, from, to) {
			continue
		}
		if keyword != "" && !matchesKeyword(meeting, keyword) {
			continue
		}
		matched = append(matched, meeting)
	}
	return matched, nil
}

func matchesKeyword(meeting Meeting, keyword string) bool {
	for _, field := range []string{meeting.Purpose, meeting.With, string(meeting.Category), meeting.Location} {
		if strings.Contains(strings.ToLower(field), keyword) {
			return true
		}
	}
	return false
}

// Analytics counts the meetings dated from from to to inclusive, and ranks the
// counterparts met most often. from is required; an empty to means today.
func (s *MeetingService) Analytics(ctx context.Context, from, to string) (analytics MeetingAnalytics, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Analytics", "from", from, "to", to)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "analytics failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "analytics computed", "total", analytics.Counts.Total)
	}()

	if strings.TrimSpace(from) == "" {
		err = newValidationError("from", MsgChooseDate)
		return
	}
	if strings.TrimSpace(to) == "" {
		to = s.today()
	}
	if from, to, err = s.dateRange(from, to); err != nil {
		return
	}

	var meetings []Meeting
	if meetings, err = s.list(ctx, persistence.MeetingFilter{}); err != nil {
		return
	}

	type tally struct {
		meetings int
		minutes  int
	}
	tallies := make(map[string]*tally)
	analytics = MeetingAnalytics{From: from, To: to}
	for _, meeting := range meetings {
		if !withinRange(meeting.Date, from, to) {
			continue
		}
		analytics.Counts.Total++
		switch meeting.Status {
		case StatusScheduled:
			analytics.Counts.Upcoming++
		case StatusCompleted:
			analytics.Counts.Completed++
		case StatusCancelled:
			analytics.Counts.Cancelled++
		}

		name := strings.TrimSpace(meeting.With)
		t, ok := tallies[name]
		if !ok {
			t = &tally{}
			tallies[name] = t
		}
		t.meetings++
		t.minutes += meeting.EndTime.Minutes() - meeting.StartTime.Minutes()
	}

	summaries := make([]CounterpartSummary, 0, len(tallies))
	for name, t := range tallies {
		summaries = append(summaries, CounterpartSummary{
			With:               name,
			Meetings:           t.meetings,
			AvgDurationMinutes: float64(t.minutes) / float64(t.meetings),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Meetings != summaries[j].Meetings {
			return summaries[i].Meetings > summaries[j].Meetings
		}
		return summaries[i].With < summaries[j].With
	})
	if len(summaries) > maxTopCounterparts {
		summaries = summaries[:maxTopCounterparts]
	}
	analytics.TopCounterparts = summaries
	return analytics, nil
}

// Schedule returns the Scheduled meetings dated from from to to inclusive,
// ordered by date and start time, with every overlapping pair among them.
// with narrows the schedule to counterparts whose name contains it. An empty
// from means today and an empty to means from.
func (s *MeetingService) Schedule(ctx context.Context, with, from, to string) (schedule MeetingSchedule, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Schedule", "with", with, "from", from, "to", to)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "schedule failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if len(schedule.Conflicts) > 0 {
			logger.WarnContext(ctx, "schedule has overlapping meetings", "conflict_count", len(schedule.Conflicts))
		}
	}()

	if strings.TrimSpace(from) == "" {
		from = s.today()
	}
	if strings.TrimSpace(to) == "" {
		to = from
	}
	if from, to, err = s.dateRange(from, to); err != nil {
		return
	}

	var meetings []Meeting
	if meetings, err = s.list(ctx, persistence.MeetingFilter{Status: string(StatusScheduled)}); err != nil {
		return
	}

	name := strings.ToLower(strings.TrimSpace(with))
	selected := make([]Meeting, 0, len(meetings))
	for _, meeting := range meetings {
		if !withinRange(meeting.Date, from, to) {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(meeting.With), name) {
			continue
		}
		selected = append(selected, meeting)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Date != selected[j].Date {
			return selected[i].Date < selected[j].Date
		}
		if selected[i].StartTime != selected[j].StartTime {
			return selected[i].StartTime < selected[j].StartTime
		}
		return selected[i].ID < selected[j].ID
	})

	byID := make(map[int64]Meeting, len(selected))
	for _, meeting := range selected {
		byID[meeting.ID] = meeting
	}
	bookings := bookingsFromMeetings(selected)
	conflicts := make([]ScheduleConflict, 0)
	for i, meeting := range selected {
		for _, conflict := range scheduler.DetectConflicts(bookings[i+1:], meeting.Date, meeting.StartTime, meeting.EndTime) {
			conflicts = append(conflicts, ScheduleConflict{First: meeting, Second: byID[conflict.WithBookingID]})
		}
	}

	return MeetingSchedule{From: from, To: to, Meetings: selected, Conflicts: conflicts}, nil
}

// dateRange validates optional inclusive YYYY-MM-DD bounds. Empty bounds stay empty.
func (s *MeetingService) dateRange(from, to string) (string, string, error) {
	vErr := &ValidationError{}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from != "" {
		if date, err := scheduler.ParseDate(from, s.location); err != nil {
			vErr.add("from", MsgChooseDate)
		} else {
			from = date.Format(scheduler.DateLayout)
		}
	}
	if to != "" {
		if date, err := scheduler.ParseDate(to, s.location); err != nil {
			vErr.add("to", MsgChooseDate)
		} else {
			to = date.Format(scheduler.DateLayout)
		}
	}
	if vErr.HasErrors() {
		return "", "", vErr
	}
	if from != "" && to != "" && to < from {
		return "", "", newValidationError("to", MsgRangeReversed)
	}
	return from, to, nil
}

func (s *MeetingService) today() string {
	return s.now().In(s.location).Format(scheduler.DateLayout)
}

// withinRange compares YYYY-MM-DD dates. Empty bounds are open.
func withinRange(date, from, to string) bool {
	return (from == "" || date >= from) && (to == "" || date <= to)
}
