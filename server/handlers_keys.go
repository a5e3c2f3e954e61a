package server

import (
	"net/http"

	"github.com/lukextesst/user/inventory"
	"github.com/pkg/errors"
)

// VerificationStartHandler issues a single use verification token bound to the caller's address.
func (s *Server) VerificationStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := s.verification.Issue(r.Context(), s.clientAddress(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":             statusSuccess,
			"verification_token": token,
		})
	}
}

// GenerateKeyHandler spends a verification token and issues a key to the session's subject.
func (s *Server) GenerateKeyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromContext(r.Context())
		token := readParams(r).first(
			fromHeader(HeaderVerificationToken),
			fromBody(ParamVerificationToken),
			fromQuery(ParamVerificationToken),
		)

		result, err := s.issuer.Issue(r.Context(), session.SubjectID, s.clientAddress(r), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         statusSuccess,
			"key":            result.Key,
			"keys_remaining": result.Remaining,
		})
	}
}

// MyKeysHandler lists the generated but unused keys of the address the session was created from.
func (s *Server) MyKeysHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromContext(r.Context())
		addressKey := inventory.AddressID(session.NetworkAddress)

		ledger, err := s.inventory.LoadLedgerEntries(r.Context(), addressKey)
		if err != nil {
			s.writeError(w, r, errors.Wrap(err, "[Server MyKeysHandler] load ledger"))
			return
		}
		keys := []string{}
		if entry, ok := ledger[addressKey]; ok {
			keys = entry.Active()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": statusSuccess,
			"keys":   keys,
		})
	}
}

// RedeemHandler exchanges a key for a download token. A key that was already redeemed is an
// informational outcome, not an error.
func (s *Server) RedeemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := urlParams(r).first(fromQuery(ParamKey))

		result, err := s.redeemer.Redeem(r.Context(), key, s.clientAddress(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if result.AlreadyUsed {
			writeJSON(w, http.StatusOK, map[string]any{
				"status":  statusAlreadyUsed,
				"message": "this key has already been used",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         statusSuccess,
			"download_token": result.DownloadToken,
		})
	}
}

// DownloadHandler spends a download token and returns the signed artifact URL.
func (s *Server) DownloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := urlParams(r).first(fromQuery(ParamToken))

		downloadURL, err := s.redeemer.ResolveDownload(r.Context(), token, s.clientAddress(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       statusSuccess,
			"download_url": downloadURL,
		})
	}
}
