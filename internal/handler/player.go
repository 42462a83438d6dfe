package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/grivyzom/playtimer-server/internal/errors"
	"github.com/grivyzom/playtimer-server/internal/model"
	"github.com/grivyzom/playtimer-server/internal/service"
)

// PlayerHandler exposes the accounting engine over HTTP. It does no
// business logic of its own; every decision lives in the service layer.
type PlayerHandler struct {
	svc *service.AccountingService
}

func NewPlayerHandler(svc *service.AccountingService) *PlayerHandler {
	return &PlayerHandler{svc: svc}
}

func (h *PlayerHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{playerUUID}", func(r chi.Router) {
		r.Get("/playtime", h.GetPlaytime)
		r.Get("/remaining", h.GetRemaining)
		r.Post("/session", h.StartSession)
		r.Delete("/session", h.EndSession)
		r.Get("/bonuses", h.ListBonuses)
		r.Post("/bonuses", h.GrantBonus)
		r.Get("/history", h.GetHistory)
		r.Put("/rank", h.ChangeRank)
	})

	return r
}

func playerUUID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "playerUUID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput("uuid", "must be a valid UUID")
	}
	return id, nil
}

// GET /v1/players/{playerUUID}/playtime
func (h *PlayerHandler) GetPlaytime(w http.ResponseWriter, r *http.Request) {
	player, err := playerUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	total, err := h.svc.QueryAccumulated(r.Context(), player)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uuid":    player.String(),
		"seconds": total,
	})
}

// GET /v1/players/{playerUUID}/remaining
func (h *PlayerHandler) GetRemaining(w http.ResponseWriter, r *http.Request) {
	player, err := playerUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	remaining, err := h.svc.GetRemaining(r.Context(), player)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, remaining)
}

type startSessionRequest struct {
	Name string `json:"name"`
	Rank string `json:"rank"`
}

// POST /v1/players/{playerUUID}/session
func (h *PlayerHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	player, err := playerUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("request body is not valid JSON"))
		return
	}
	if req.Name == "" {
		writeError(w, apperrors.MissingRequired("name"))
		return
	}

	h.svc.OnSessionStart(r.Context(), player, req.Name, req.Rank)
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /v1/players/{playerUUID}/session
func (h *PlayerHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	player, err := playerUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	h.svc.OnSessionEnd(player)
	w.WriteHeader(http.StatusNoContent)
}

// GET /v1/players/{playerUUID}/bonuses
func (h *PlayerHandler) ListBonuses(w http.ResponseWriter, r *http.Request) {
	player, err := playerUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bonuses, err := h.svc.ListBonuses(r.Context(), player)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bonuses": bonuses})
}

const defaultHistoryLimit = 50

// GET /v1/players/{playerUUID}/history
func (h *PlayerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	player, err := playerUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, apperrors.InvalidInput("limit", "must be a positive integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.svc.ListHistory(r.Context(), player, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

type grantBonusRequest struct {
	Kind    string `json:"kind"`
	Seconds int64  `json:"seconds"`
	Active  *bool  `json:"active"`
}

// POST /v1/players/{playerUUID}/bonuses
func (h *PlayerHandler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	player, err := playerUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req grantBonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("request body is not valid JSON"))
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	bonus, err := h.svc.GrantBonus(r.Context(), player, model.BonusKind(req.Kind), req.Seconds, active)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bonus)
}

type changeRankRequest struct {
	Rank string `json:"rank"`
}

// PUT /v1/players/{playerUUID}/rank
func (h *PlayerHandler) ChangeRank(w http.ResponseWriter, r *http.Request) {
	player, err := playerUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req changeRankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("request body is not valid JSON"))
		return
	}

	if err := h.svc.ChangeRank(r.Context(), player, req.Rank); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BonusHandler covers the bonus routes not scoped to a player.
type BonusHandler struct {
	svc *service.AccountingService
}

func NewBonusHandler(svc *service.AccountingService) *BonusHandler {
	return &BonusHandler{svc: svc}
}

func (h *BonusHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Delete("/{bonusID}", h.RevokeBonus)

	return r
}

// DELETE /v1/bonuses/{bonusID}
func (h *BonusHandler) RevokeBonus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bonusID"), 10, 64)
	if err != nil {
		writeError(w, apperrors.InvalidInput("id", "must be an integer"))
		return
	}

	if err := h.svc.RevokeBonus(r.Context(), id); err != nil {
		log.Debug().Err(err).Int64("bonus_id", id).Msg("bonus revoke rejected")
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
