package gcal

import (
	"encoding/json"

	"google.golang.org/api/calendar/v3"
)

// FullCalendarEvent is the event shape consumed by the FullCalendar widget.
type FullCalendarEvent struct {
	ID               string                    `json:"id"`
	Title            string                    `json:"title"`
	Summary          string                    `json:"summary"`
	Start            string                    `json:"start"`
	End              string                    `json:"end"`
	TimeZone         string                    `json:"timezone"`
	AllDay           bool                      `json:"allDay"`
	Description      string                    `json:"description"`
	Location         string                    `json:"location"`
	Recurrence       []string                  `json:"recurrence"`
	RecurringEventID string                    `json:"recurringEventId"`
	Attendees        []*calendar.EventAttendee `json:"attendees"`
	HTMLLink         string                    `json:"htmlLink"`
	HangoutLink      string                    `json:"hangoutLink"`
	CreatedAt        string                    `json:"created_at"`
	UpdatedAt        string                    `json:"updated_at"`
}

// ToFullCalendar converts a Google event. An event is all-day when its start carries a date.
func ToFullCalendar(ev *calendar.Event) FullCalendarEvent {
	start := ev.Start
	if start == nil {
		start = &calendar.EventDateTime{}
	}
	end := ev.End
	if end == nil {
		end = &calendar.EventDateTime{}
	}

	allDay := start.Date != ""

	fc := FullCalendarEvent{
		ID:               ev.Id,
		Title:            ev.Summary,
		Summary:          ev.Summary,
		Start:            start.DateTime,
		End:              end.DateTime,
		TimeZone:         start.TimeZone,
		AllDay:           allDay,
		Description:      ev.Description,
		Location:         ev.Location,
		Recurrence:       ev.Recurrence,
		RecurringEventID: ev.RecurringEventId,
		Attendees:        ev.Attendees,
		HTMLLink:         ev.HtmlLink,
		HangoutLink:      ev.HangoutLink,
		CreatedAt:        ev.Created,
		UpdatedAt:        ev.Updated,
	}
	if allDay {
		fc.Start = start.Date
		fc.End = end.Date
	}
	return fc
}

// EventList is the ListEvents result. It encodes as raw Google items or as FullCalendar events.
type EventList struct {
	Items  []*calendar.Event
	Format string
}

// FullCalendar returns the items in FullCalendar shape.
func (l *EventList) FullCalendar() []FullCalendarEvent {
	out := make([]FullCalendarEvent, 0, len(l.Items))
	for _, ev := range l.Items {
		out = append(out, ToFullCalendar(ev))
	}
	return out
}

func (l *EventList) MarshalJSON() ([]byte, error) {
	if l.Format == FormatFullCalendar {
		return json.Marshal(l.FullCalendar())
	}
	items := l.Items
	if items == nil {
		items = []*calendar.Event{}
	}
	return json.Marshal(items)
}
