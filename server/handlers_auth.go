package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/lukextesst/user/inventory"
	"github.com/lukextesst/user/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	authErrorMissingCodeOrState = "missing_code_or_state"
	authErrorCallbackFailed     = "callback_failed"
)

// UserStats is the quota and membership view of a session.
type UserStats struct {
	KeysToday   int        `json:"keys_today"`
	KeysTotal   int        `json:"keys_total"`
	KeysUsed    int        `json:"keys_used"`
	KeysActive  int        `json:"keys_active"`
	DailyMax    int        `json:"daily_max"`
	IsMember    bool       `json:"is_server_member"`
	MemberSince *time.Time `json:"member_since,omitempty"`
}

// LoginHandler starts a login bound to the caller's address.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := s.sessions.BeginLogin(r.Context(), s.clientAddress(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   statusSuccess,
			"auth_url": authURL,
		})
	}
}

// CallbackHandler completes a login. Browser redirects (GET) are sent back to the frontend when
// one is configured; everything else is answered with JSON.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && s.config.GetFrontendURL() != "" {
			s.callbackRedirect(w, r)
			return
		}

		params := readParams(r)
		if providerError := params.first(fromBody("error"), fromQuery("error")); providerError != "" {
			description := params.first(fromBody("error_description"), fromQuery("error_description"))
			if description == "" {
				description = "authorization failed"
			}
			writeJSONError(w, providerError, description, http.StatusBadRequest)
			return
		}

		code := params.first(fromBody(ParamCode), fromQuery(ParamCode))
		state := params.first(fromBody(ParamState), fromQuery(ParamState))
		handle, session, err := s.sessions.CompleteLogin(r.Context(), code, state, s.clientAddress(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		if !session.IsMember {
			writeJSON(w, http.StatusForbidden, map[string]any{
				"status":         statusServerRequired,
				"message":        "join the community to generate keys",
				"discord_invite": s.config.GetInviteURL(),
				"session_id":     handle,
				"user":           session,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     statusSuccess,
			"message":    "authenticated",
			"session_id": handle,
			"user":       session,
		})
	}
}

func (s *Server) callbackRedirect(w http.ResponseWriter, r *http.Request) {
	target, err := url.Parse(s.config.GetFrontendURL())
	if err != nil {
		s.writeError(w, r, errors.Wrap(err, "[Server callbackRedirect] parse frontend url"))
		return
	}

	values := target.Query()
	query := r.URL.Query()
	code, state := query.Get(ParamCode), query.Get(ParamState)

	switch {
	case query.Get("error") != "":
		values.Set("auth_error", query.Get("error"))
	case code == "" || state == "":
		values.Set("auth_error", authErrorMissingCodeOrState)
	default:
		handle, session, err := s.sessions.CompleteLogin(r.Context(), code, state, s.clientAddress(r))
		if err != nil {
			values.Set("auth_error", s.authErrorCode(r, err))
			break
		}
		values.Set(ParamSessionID, handle)
		if session.IsMember {
			values.Set("status", statusSuccess)
		} else {
			values.Set("status", statusServerRequired)
			values.Set("discord_invite", s.config.GetInviteURL())
		}
	}

	target.RawQuery = values.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *Server) authErrorCode(r *http.Request, err error) string {
	if mapping, ok := classifyError(err); ok {
		return mapping.code
	}
	log.Err(err).Str("request_id", requestID(r.Context())).Msg("login callback failed")
	return authErrorCallbackFailed
}

// LogoutHandler ends the session named in the header, body or query. Unknown handles are
// acknowledged all the same.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := readParams(r).first(fromHeader(HeaderSessionID), fromBody(ParamSessionID), fromQuery(ParamSessionID))
		if handle != "" {
			if err := s.sessions.End(r.Context(), handle); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  statusSuccess,
			"message": "logged out",
		})
	}
}

// SessionHandler returns the profile held by the caller's session.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": statusSuccess,
			"user":   sessionFromContext(r.Context()),
		})
	}
}

// StatsHandler reports today's issuance for the subject and lifetime counts for the address the
// session was created from.
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromContext(r.Context())
		stats, err := s.userStats(r, session)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": statusSuccess,
			"stats":  stats,
		})
	}
}

func (s *Server) userStats(r *http.Request, session *sessions.Session) (*UserStats, error) {
	subjectKey := inventory.SubjectID(session.SubjectID)
	addressKey := inventory.AddressID(session.NetworkAddress)
	ledger, err := s.inventory.LoadLedgerEntries(r.Context(), subjectKey, addressKey)
	if err != nil {
		return nil, errors.Wrap(err, "[Server userStats] load ledger")
	}

	stats := &UserStats{
		DailyMax:    s.issuer.MaxPerDay(),
		IsMember:    session.IsMember,
		MemberSince: session.MemberSince,
	}
	if entry, ok := ledger[subjectKey]; ok && entry.Date == inventory.Today(s.nowFunc()) {
		stats.KeysToday = len(entry.Generated)
	}
	if entry, ok := ledger[addressKey]; ok {
		stats.KeysTotal = len(entry.Generated)
		stats.KeysUsed = len(entry.Used)
		stats.KeysActive = len(entry.Active())
	}
	return stats, nil
}
