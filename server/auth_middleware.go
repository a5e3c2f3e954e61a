package server

import (
	"context"
	"net/http"

	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/lukextesst/user/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the resolved *sessions.Session
	ContextKeySession ContextKey = "session"
	// ContextKeyRequestID stores the request id echoed in X-Request-ID
	ContextKeyRequestID ContextKey = "request_id"
)

// RequireSession resolves the session handle from the X-Session-ID header or the session_id
// query parameter and injects the session into the request context.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			handle := urlParams(r).first(fromHeader(HeaderSessionID), fromQuery(ParamSessionID))

			session, err := s.sessions.Get(r.Context(), handle)
			if err != nil {
				s.writeError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireMembership rejects sessions whose subject is not a member of the required community.
// It must run after RequireSession.
func (s *Server) RequireMembership() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromContext(r.Context())
			if session == nil {
				s.writeError(w, r, apperrors.ErrSessionNotFound)
				return
			}
			if !session.IsMember {
				s.writeError(w, r, apperrors.ErrMembershipRequired)
				return
			}
			next(w, r)
		}
	}
}

func sessionFromContext(ctx context.Context) *sessions.Session {
	session, _ := ctx.Value(ContextKeySession).(*sessions.Session)
	return session
}
