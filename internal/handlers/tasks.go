package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type sweepResponse struct {
	Unbanned int `json:"unbanned"`
	Reset    int `json:"reset"`
}

// HandleSweep runs the scheduled maintenance passes: ban expiry
// rehabilitation, then the weekly score reset. Both are idempotent, so
// external schedulers can poke this endpoint at any frequency. Gated
// by a shared bearer token rather than a user session so cron jobs
// need no account.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.config.SweepToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid task token")
		return
	}

	unbanned, err := h.engine.SweepUnban(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("unban sweep failed")
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	reset, err := h.engine.SweepWeeklyReset(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("weekly reset sweep failed")
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, sweepResponse{Unbanned: unbanned, Reset: reset})
}
