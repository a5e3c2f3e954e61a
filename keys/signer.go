package keys

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// DownloadSigner appends a tamper-evident timestamp to the artifact URL. The signature is the hex
// HMAC-SHA256 of "<key>:<unix millis>".
type DownloadSigner struct {
	secret      []byte
	artifactURL string
}

func NewDownloadSigner(secret, artifactURL string) *DownloadSigner {
	return &DownloadSigner{secret: []byte(secret), artifactURL: artifactURL}
}

func (s *DownloadSigner) Signature(key string, tsMillis int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", key, tsMillis)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedURL returns the artifact URL with sig and ts query parameters.
func (s *DownloadSigner) SignedURL(key string, at time.Time) (string, error) {
	u, err := url.Parse(s.artifactURL)
	if err != nil {
		return "", errors.Wrap(err, "[DownloadSigner SignedURL] invalid artifact URL")
	}

	ts := at.UnixMilli()
	q := u.Query()
	q.Set("sig", s.Signature(key, ts))
	q.Set("ts", strconv.FormatInt(ts, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
