package gcal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
)

// ListCalendars returns the user's calendar list entries.
func (s *Service) ListCalendars(ctx context.Context, userID uuid.UUID) ([]*calendar.CalendarListEntry, error) {
	srv, err := s.authorizedCalendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	list, err := srv.CalendarList.List().Context(ctx).Do()
	s.observe("calendarList.list", started, err)
	if err != nil {
		return nil, fmt.Errorf("could not list calendars: %w", err)
	}

	if list.Items == nil {
		return []*calendar.CalendarListEntry{}, nil
	}
	return list.Items, nil
}

// ListEvents returns single (expanded) events ordered by start time.
// The window defaults to the current month.
func (s *Service) ListEvents(ctx context.Context, userID uuid.UUID, p ListEventsParams) (*EventList, error) {
	srv, err := s.authorizedCalendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	timeMin, timeMax, err := monthWindow(p.Start, p.End, p.TimeZone)
	if err != nil {
		return nil, err
	}

	calendarID := p.CalendarID
	if calendarID == "" {
		calendarID = defaultCalendarID
	}

	call := srv.Events.List(calendarID).
		OrderBy("startTime").
		SingleEvents(true).
		TimeMin(timeMin).
		TimeMax(timeMax).
		Context(ctx)
	if p.TimeZone != "" {
		call = call.TimeZone(p.TimeZone)
	}

	started := time.Now()
	events, err := call.Do()
	s.observe("events.list", started, err)
	if err != nil {
		return nil, fmt.Errorf("could not list events: %w", err)
	}

	s.logger.Debug("listed events",
		zap.String("user_id", userID.String()),
		zap.String("calendar_id", calendarID),
		zap.Int("count", len(events.Items)))

	return &EventList{Items: events.Items, Format: s.format}, nil
}

// CreateEvent inserts a new event.
func (s *Service) CreateEvent(ctx context.Context, userID uuid.UUID, req EventRequest) (*MutationResult, error) {
	srv, err := s.authorizedCalendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	start, end, err := eventTimes(req)
	if err != nil {
		return nil, err
	}

	ev := &calendar.Event{
		Summary:     req.Summary,
		Location:    req.Location,
		Description: req.Description,
		Start:       start,
		End:         end,
	}
	if len(req.Attendees) > 0 {
		ev.Attendees = req.Attendees.toEventAttendees()
	}

	started := time.Now()
	created, err := srv.Events.Insert(req.calendarID(), ev).Context(ctx).Do()
	s.observe("events.insert", started, err)
	if err != nil {
		return nil, fmt.Errorf("could not create event: %w", err)
	}

	return success(created), nil
}

// UpdateEvent fetches the event, applies the request and writes it back.
func (s *Service) UpdateEvent(ctx context.Context, userID uuid.UUID, req EventRequest) (*MutationResult, error) {
	srv, err := s.authorizedCalendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.EventID) == "" {
		return nil, fmt.Errorf("%w: eventId is required", ErrInvalidEvent)
	}
	start, end, err := eventTimes(req)
	if err != nil {
		return nil, err
	}

	calendarID := req.calendarID()

	started := time.Now()
	ev, err := srv.Events.Get(calendarID, req.EventID).Context(ctx).Do()
	s.observe("events.get", started, err)
	if err != nil {
		return nil, fmt.Errorf("could not load event: %w", err)
	}

	ev.Summary = req.Summary
	ev.Location = req.Location
	ev.Description = req.Description
	// Fresh values drop whichever of date/dateTime the event used before.
	ev.Start = start
	ev.End = end

	if len(req.Attendees) > 0 {
		ev.Attendees = req.Attendees.toEventAttendees()
	}

	started = time.Now()
	_, err = srv.Events.Update(calendarID, req.EventID, ev).Context(ctx).Do()
	s.observe("events.update", started, err)
	if err != nil {
		return nil, fmt.Errorf("could not update event: %w", err)
	}

	return success(nil), nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, userID uuid.UUID, calendarID, eventID string) (*MutationResult, error) {
	srv, err := s.authorizedCalendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(eventID) == "" {
		return nil, fmt.Errorf("%w: eventId is required", ErrInvalidEvent)
	}
	if calendarID == "" {
		calendarID = defaultCalendarID
	}

	started := time.Now()
	err = srv.Events.Delete(calendarID, eventID).Context(ctx).Do()
	s.observe("events.delete", started, err)
	if err != nil {
		return nil, fmt.Errorf("could not delete event: %w", err)
	}

	return success(nil), nil
}
