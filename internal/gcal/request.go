package gcal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/api/calendar/v3"
)

// AllDayFlag distinguishes an explicit false from an absent allDay field.
type AllDayFlag int8

const (
	AllDayUnset AllDayFlag = iota
	AllDayTrue
	AllDayFalse
)

// UnmarshalJSON accepts booleans and the strings "true"/"false" sent by form-style clients.
func (f *AllDayFlag) UnmarshalJSON(data []byte) error {
	v := strings.ToLower(strings.Trim(string(bytes.TrimSpace(data)), `"`))
	switch v {
	case "", "null":
		*f = AllDayUnset
	case "true", "1":
		*f = AllDayTrue
	case "false", "0":
		*f = AllDayFalse
	default:
		return fmt.Errorf("allDay must be true or false, got %s", data)
	}
	return nil
}

// MarshalJSON writes null for an unset flag.
func (f AllDayFlag) MarshalJSON() ([]byte, error) {
	switch f {
	case AllDayTrue:
		return []byte("true"), nil
	case AllDayFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// AttendeeList is a list of emails, sent either as "a@x,b@y" or as a JSON array.
type AttendeeList []string

func (a *AttendeeList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*a = cleanEmails(list)
		return nil
	}

	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("attendees must be a string or a list of strings: %w", err)
	}
	if s == nil {
		*a = nil
		return nil
	}
	*a = ParseAttendees(*s)
	return nil
}

// ParseAttendees splits a comma separated list of emails, dropping blanks.
func ParseAttendees(s string) AttendeeList {
	return cleanEmails(strings.Split(s, ","))
}

func cleanEmails(in []string) AttendeeList {
	var out AttendeeList
	for _, e := range in {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func (a AttendeeList) toEventAttendees() []*calendar.EventAttendee {
	out := make([]*calendar.EventAttendee, 0, len(a))
	for _, email := range a {
		out = append(out, &calendar.EventAttendee{Email: email})
	}
	return out
}

// EventRequest is the payload for creating and updating events.
type EventRequest struct {
	CalendarID  string       `json:"calendarId"`
	EventID     string       `json:"eventId"`
	Summary     string       `json:"summary"`
	Location    string       `json:"location"`
	Description string       `json:"description"`
	Start       string       `json:"start"`
	End         string       `json:"end"`
	TimeZone    string       `json:"timezone"`
	AllDay      AllDayFlag   `json:"allDay"`
	Attendees   AttendeeList `json:"attendees"`
}

func (r EventRequest) calendarID() string {
	if r.CalendarID == "" {
		return defaultCalendarID
	}
	return r.CalendarID
}

// ListEventsParams selects the window and calendar for ListEvents.
type ListEventsParams struct {
	CalendarID string
	Start      string
	End        string
	TimeZone   string
}

// MutationResult is returned by create, update and delete.
type MutationResult struct {
	Message string          `json:"message"`
	Event   *calendar.Event `json:"event,omitempty"`
}

func success(ev *calendar.Event) *MutationResult {
	return &MutationResult{Message: "success", Event: ev}
}
