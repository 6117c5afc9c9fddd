package calendar

import (
	"encoding/json"
	"net/http"

	"gcal-connect-api/internal/api/common"
	"gcal-connect-api/internal/gcal"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleListCalendars geeft de agenda's van de gebruiker terug.
func HandleListCalendars(svc common.CalendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), logger)
			return
		}

		items, err := svc.ListCalendars(r.Context(), userID)
		if err != nil {
			common.WriteServiceError(w, err, logger)
			return
		}

		common.WriteJSON(w, http.StatusOK, items, logger)
	}
}

// HandleListEvents haalt events op; zonder start/end wordt de huidige maand gebruikt.
func HandleListEvents(svc common.CalendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), logger)
			return
		}

		q := r.URL.Query()
		calendarID := q.Get("calendar")
		if calendarID == "" {
			calendarID = q.Get("calendarId")
		}

		list, err := svc.ListEvents(r.Context(), userID, gcal.ListEventsParams{
			CalendarID: calendarID,
			Start:      q.Get("start"),
			End:        q.Get("end"),
			TimeZone:   q.Get("timezone"),
		})
		if err != nil {
			common.WriteServiceError(w, err, logger)
			return
		}

		common.WriteJSON(w, http.StatusOK, list, logger)
	}
}

// HandleCreateEvent creert een nieuw event in Google Calendar
func HandleCreateEvent(svc common.CalendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), logger)
			return
		}

		var req gcal.EventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Ongeldige request body", logger)
			return
		}

		res, err := svc.CreateEvent(r.Context(), userID, req)
		if err != nil {
			common.WriteServiceError(w, err, logger)
			return
		}

		common.WriteJSON(w, http.StatusCreated, res, logger)
	}
}

// HandleUpdateEvent update een bestaand event
func HandleUpdateEvent(svc common.CalendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), logger)
			return
		}

		var req gcal.EventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, "Ongeldige request body", logger)
			return
		}
		// The path wins over the body.
		req.EventID = chi.URLParam(r, "eventId")

		res, err := svc.UpdateEvent(r.Context(), userID, req)
		if err != nil {
			common.WriteServiceError(w, err, logger)
			return
		}

		common.WriteJSON(w, http.StatusOK, res, logger)
	}
}

// HandleDeleteEvent verwijdert een event
func HandleDeleteEvent(svc common.CalendarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), logger)
			return
		}

		res, err := svc.DeleteEvent(r.Context(), userID, r.URL.Query().Get("calendarId"), chi.URLParam(r, "eventId"))
		if err != nil {
			common.WriteServiceError(w, err, logger)
			return
		}

		common.WriteJSON(w, http.StatusOK, res, logger)
	}
}
