package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// HandleSigner issues session handles as HS256 tokens whose jti names the stored session. A
// handle that does not verify never reaches the store.
type HandleSigner struct {
	secret  []byte
	nowFunc func() time.Time
}

func NewHandleSigner(secret string, nowFunc func() time.Time) *HandleSigner {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &HandleSigner{secret: []byte(secret), nowFunc: nowFunc}
}

func (h *HandleSigner) Sign(sessionID, subjectID string, ttl time.Duration) (string, error) {
	now := h.nowFunc()
	claims := jwt.MapClaims{
		"jti": sessionID,
		"sub": subjectID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session handle")
	}
	return signed, nil
}

// Verify returns the session id carried by handle.
func (h *HandleSigner) Verify(handle string) (string, error) {
	token, err := jwt.Parse(handle, h.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.nowFunc),
	)
	if err != nil {
		return "", errors.Wrap(err, "invalid session handle")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid session handle claims")
	}
	sessionID, _ := claims["jti"].(string)
	if sessionID == "" {
		return "", errors.New("session handle without id")
	}
	return sessionID, nil
}

func (h *HandleSigner) verificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}
