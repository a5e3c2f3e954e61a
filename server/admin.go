package server

import (
	"net/http"

	"github.com/lukextesst/user/internal/config"
	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// adminSecretHash returns the bcrypt hash admin requests are checked against. A configured hash
// wins over a plain secret; neither disables the admin routes.
func adminSecretHash(cfg config.SecurityConfig) ([]byte, error) {
	if hash := cfg.GetAdminSecretHash(); hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, errors.Wrap(err, "[adminSecretHash] ADMIN_SECRET_HASH is not a bcrypt hash")
		}
		return []byte(hash), nil
	}
	if secret := cfg.GetAdminSecret(); secret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Wrap(err, "[adminSecretHash] hash ADMIN_SECRET")
		}
		return hash, nil
	}
	return nil, nil
}

// RequireAdmin checks the X-Admin-Secret header against the configured hash.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			secret := r.Header.Get(HeaderAdminSecret)
			if secret == "" || len(s.adminHash) == 0 || bcrypt.CompareHashAndPassword(s.adminHash, []byte(secret)) != nil {
				s.writeError(w, r, apperrors.ErrUnauthorized)
				return
			}
			next(w, r)
		}
	}
}

// AdminIssueKeyHandler issues a key outside any quota.
func (s *Server) AdminIssueKeyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := s.issuer.IssueAdmin(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"status": statusSuccess,
			"key":    key,
		})
	}
}

// AdminInventoryHandler reports the size of each inventory set.
func (s *Server) AdminInventoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := s.inventory.LoadInventory(r.Context())
		if err != nil {
			s.writeError(w, r, errors.Wrap(err, "[Server AdminInventoryHandler] load inventory"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       statusSuccess,
			"available":    len(inv.Available),
			"used":         len(inv.Used),
			"admin_issued": len(inv.AdminIssued),
		})
	}
}
