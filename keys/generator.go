// Package keys issues access keys against the daily quota, redeems them into single-use download
// tokens and resolves those tokens into signed download URLs.
package keys

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"regexp"
	"strings"

	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/pkg/errors"
)

const (
	keyBytes            = 8
	keyBlockSize        = 4
	MaxGenerateAttempts = 500
)

var keyPattern = regexp.MustCompile(`^[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`)

// ValidFormat reports whether key looks like ABCD-EF01-2345-6789.
func ValidFormat(key string) bool {
	return keyPattern.MatchString(key)
}

type Generator struct {
	rand        io.Reader
	maxAttempts int
}

// NewGenerator draws from r, or crypto/rand when r is nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r, maxAttempts: MaxGenerateAttempts}
}

// New returns a fresh key for which taken reports false.
func (g *Generator) New(taken func(key string) bool) (string, error) {
	b := make([]byte, keyBytes)
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if _, err := io.ReadFull(g.rand, b); err != nil {
			return "", errors.Wrap(err, "[Generator New] read random")
		}
		key := formatKey(b)
		if !taken(key) {
			return key, nil
		}
	}
	return "", apperrors.ErrKeySpaceExhausted
}

func formatKey(b []byte) string {
	raw := strings.ToUpper(hex.EncodeToString(b))
	blocks := make([]string, 0, len(raw)/keyBlockSize)
	for i := 0; i < len(raw); i += keyBlockSize {
		blocks = append(blocks, raw[i:i+keyBlockSize])
	}
	return strings.Join(blocks, "-")
}
