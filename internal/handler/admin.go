package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/grivyzom/playtimer-server/internal/audit"
	"github.com/grivyzom/playtimer-server/internal/config"
)

type AdminHandler struct {
	settings *config.Store
}

func NewAdminHandler(settings *config.Store) *AdminHandler {
	return &AdminHandler{settings: settings}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/reload", h.Reload)

	return r
}

// POST /v1/admin/reload
//
// Reloads the settings file and swaps the snapshot. On failure the
// previous snapshot stays active and the error is reported.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.Reload(); err != nil {
		log.Error().Err(err).Msg("settings reload failed")
		writeError(w, err)
		return
	}

	audit.Log(audit.Event{Type: audit.EventConfigReload})

	s := h.settings.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"daily_reset":       s.DailyReset,
		"auto_save_minutes": s.AutoSaveMinutes,
		"groups":            len(s.GroupLimits),
	})
}
