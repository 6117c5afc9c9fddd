package gcal

import (
	"fmt"

	"github.com/golang-module/carbon"
	"google.golang.org/api/calendar/v3"
)

// parseIn reads a date or date-time in the given zone. Values carrying their own offset keep it.
func parseIn(value, tz string) (carbon.Carbon, error) {
	c := carbon.NewCarbon()
	if tz != "" {
		// Parse does not stop on a bad zone, so check it first.
		if c = carbon.SetTimezone(tz); c.Error != nil {
			return c, fmt.Errorf("%w: unknown timezone %q", ErrInvalidEvent, tz)
		}
	}
	if c = c.Parse(value); c.Error != nil {
		return c, fmt.Errorf("%w: cannot parse %q: %v", ErrInvalidEvent, value, c.Error)
	}
	return c, nil
}

// eventTimes resolves start and end for create and update:
//
//	allDay=true,  end set   -> all-day, start.date .. end.date
//	allDay=false, end empty -> timed, start .. start+1h
//	allDay=true,  end empty -> all-day, start .. start+1 day
//	otherwise               -> timed, start .. end
//
// Timed values are sent in UTC. All-day dates are taken in the request zone.
func eventTimes(req EventRequest) (start, end *calendar.EventDateTime, err error) {
	if req.Start == "" {
		return nil, nil, fmt.Errorf("%w: start is required", ErrInvalidEvent)
	}

	s, err := parseIn(req.Start, req.TimeZone)
	if err != nil {
		return nil, nil, err
	}

	var e carbon.Carbon
	allDay := req.AllDay == AllDayTrue

	switch {
	case allDay && req.End != "":
		if e, err = parseIn(req.End, req.TimeZone); err != nil {
			return nil, nil, err
		}
	case req.AllDay == AllDayFalse && req.End == "":
		e = s.AddHour()
	case allDay && req.End == "":
		e = s.AddDay()
	default:
		if req.End == "" {
			return nil, nil, fmt.Errorf("%w: end is required", ErrInvalidEvent)
		}
		if e, err = parseIn(req.End, req.TimeZone); err != nil {
			return nil, nil, err
		}
	}

	if allDay {
		start = &calendar.EventDateTime{Date: s.ToDateString(), TimeZone: req.TimeZone}
		end = &calendar.EventDateTime{Date: e.ToDateString(), TimeZone: req.TimeZone}
		return start, end, nil
	}

	start = &calendar.EventDateTime{DateTime: s.SetTimezone("UTC").ToRfc3339String(), TimeZone: req.TimeZone}
	end = &calendar.EventDateTime{DateTime: e.SetTimezone("UTC").ToRfc3339String(), TimeZone: req.TimeZone}
	return start, end, nil
}

// monthWindow returns the list window, defaulting to the current month in tz.
func monthWindow(startValue, endValue, tz string) (string, string, error) {
	now := carbon.Now()
	if tz != "" {
		now = carbon.SetTimezone(tz).Now()
		if now.Error != nil {
			return "", "", fmt.Errorf("%w: unknown timezone %q", ErrInvalidEvent, tz)
		}
	}

	timeMin := now.StartOfMonth().ToRfc3339String()
	if startValue != "" {
		c, err := parseIn(startValue, tz)
		if err != nil {
			return "", "", err
		}
		timeMin = c.ToRfc3339String()
	}

	timeMax := now.EndOfMonth().ToRfc3339String()
	if endValue != "" {
		c, err := parseIn(endValue, tz)
		if err != nil {
			return "", "", err
		}
		timeMax = c.ToRfc3339String()
	}

	return timeMin, timeMax, nil
}
