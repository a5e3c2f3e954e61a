// Package identity adapts third-party identity providers to the small surface the session manager
// needs: a login URL, code exchange, the visitor's profile and community membership.
package identity

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Outbound call ceilings.
const (
	ExchangeTimeout = 10 * time.Second
	LookupTimeout   = 8 * time.Second
)

type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar,omitempty"`
}

type Provider interface {
	// AuthCodeURL returns the provider's authorization URL carrying state.
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (Profile, error)
	FetchMembership(ctx context.Context, token *oauth2.Token, communityID string) (bool, error)
}

// JoinDateLookup is an optional capability of a Provider. It is best effort: failures are
// logged by the implementation and reported as nil.
type JoinDateLookup interface {
	FetchJoinDate(ctx context.Context, communityID, subjectID string) *time.Time
}
