package user

import (
	"errors"
	"net/http"

	"gcal-connect-api/internal/api/common"
	"gcal-connect-api/internal/store"

	"go.uber.org/zap"
)

// HandleGetMe haalt de gegevens op van de ingelogde gebruiker.
func HandleGetMe(s store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		user, err := s.GetUserByID(r.Context(), userID)
		if errors.Is(err, store.ErrUserNotFound) {
			common.WriteJSONError(w, http.StatusNotFound, "Gebruiker niet gevonden", log)
			return
		}
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, "Kon gebruiker niet ophalen", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, user, log)
	}
}
