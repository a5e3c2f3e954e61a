package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Values of the status field every response carries.
const (
	statusSuccess        = "success"
	statusError          = "error"
	statusServerRequired = "server_required"
	statusAlreadyUsed    = "already_used"
)

const (
	codeInternal    = "internal_error"
	messageInternal = "internal server error"
)

type errorMapping struct {
	target     error
	statusCode int
	code       string
}

// errorMappings translates failure kinds into responses. The first match wins.
var errorMappings = []errorMapping{
	{apperrors.ErrMissing, http.StatusBadRequest, "missing"},
	{apperrors.ErrInvalidState, http.StatusBadRequest, "invalid_state"},
	{apperrors.ErrSessionNotFound, http.StatusUnauthorized, "unauthenticated"},
	{apperrors.ErrAddressMismatch, http.StatusForbidden, "address_mismatch"},
	{apperrors.ErrNotOwned, http.StatusForbidden, "not_owned"},
	{apperrors.ErrMembershipRequired, http.StatusForbidden, "membership_required"},
	{apperrors.ErrUnauthorized, http.StatusForbidden, "forbidden"},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict"},
	{apperrors.ErrRevisionConflict, http.StatusConflict, "conflict"},
	{apperrors.ErrAlreadyUsed, http.StatusGone, "already_used"},
	{apperrors.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{apperrors.ErrDailyLimitReached, http.StatusTooManyRequests, "daily_limit_reached"},
	{apperrors.ErrAuthExchangeFailed, http.StatusBadGateway, "auth_exchange_failed"},
	{apperrors.ErrKeySpaceExhausted, http.StatusServiceUnavailable, "key_space_exhausted"},
}

func classifyError(err error) (errorMapping, bool) {
	for _, mapping := range errorMappings {
		if apperrors.Is(err, mapping.target) {
			return mapping, true
		}
	}
	return errorMapping{}, false
}

func writeJSON(w http.ResponseWriter, statusCode int, body map[string]any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]any{
		"status":  statusError,
		"error":   errorCode,
		"message": description,
	})
}

// writeError reports err to the client. Known failure kinds use the sentinel's message so no
// wrapped detail leaks; anything else is logged and reported as an internal error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	mapping, ok := classifyError(err)
	if !ok {
		log.Err(err).
			Str("request_id", requestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeJSONError(w, codeInternal, messageInternal, http.StatusInternalServerError)
		return
	}

	if mapping.statusCode >= http.StatusInternalServerError || mapping.target == apperrors.ErrAuthExchangeFailed {
		log.Warn().Err(err).Str("request_id", requestID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}

	body := map[string]any{
		"status":  statusError,
		"error":   mapping.code,
		"message": mapping.target.Error(),
	}
	if mapping.target == apperrors.ErrMembershipRequired {
		body["discord_invite"] = s.config.GetInviteURL()
	}
	writeJSON(w, mapping.statusCode, body)
}
