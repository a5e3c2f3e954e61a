package identity

import (
	"context"
	"slices"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/lukextesst/user/internal/utils"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const DefaultGroupsClaim = "groups"

type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	GroupsClaim  string
}

// OIDC reads the profile and community membership from the verified ID token. Membership is the
// presence of the community id in the groups claim.
type OIDC struct {
	oauth       *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	groupsClaim string
}

var _ Provider = (*OIDC)(nil)

// NewOIDC discovers the issuer's endpoints and signing keys.
func NewOIDC(ctx context.Context, cfg OIDCConfig) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDC New] failed to create OIDC provider")
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{oidc.ScopeOpenID, "profile", cfg.groupsClaim()},
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return NewOIDCWithVerifier(oauthConfig, verifier, cfg.GroupsClaim), nil
}

// NewOIDCWithVerifier builds the adapter from explicit parts, skipping discovery.
func NewOIDCWithVerifier(oauthConfig *oauth2.Config, verifier *oidc.IDTokenVerifier, groupsClaim string) *OIDC {
	if groupsClaim == "" {
		groupsClaim = DefaultGroupsClaim
	}
	return &OIDC{oauth: oauthConfig, verifier: verifier, groupsClaim: groupsClaim}
}

func (c OIDCConfig) groupsClaim() string {
	if c.GroupsClaim == "" {
		return DefaultGroupsClaim
	}
	return c.GroupsClaim
}

func (o *OIDC) AuthCodeURL(state string) string {
	return o.oauth.AuthCodeURL(state)
}

func (o *OIDC) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, ExchangeTimeout)
	defer cancel()

	token, err := o.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDC ExchangeCode]")
	}
	if _, ok := token.Extra("id_token").(string); !ok {
		return nil, errors.New("[OIDC ExchangeCode] no ID token in response")
	}
	return token, nil
}

func (o *OIDC) FetchProfile(ctx context.Context, token *oauth2.Token) (Profile, error) {
	claims, err := o.claims(ctx, token)
	if err != nil {
		return Profile{}, errors.Wrap(err, "[OIDC FetchProfile]")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Profile{}, errors.New("[OIDC FetchProfile] ID token without subject")
	}
	name, _ := claims["name"].(string)
	if name == "" {
		name, _ = claims["preferred_username"].(string)
	}
	picture, _ := claims["picture"].(string)
	return Profile{ID: sub, DisplayName: name, AvatarRef: picture}, nil
}

func (o *OIDC) FetchMembership(ctx context.Context, token *oauth2.Token, communityID string) (bool, error) {
	claims, err := o.claims(ctx, token)
	if err != nil {
		return false, errors.Wrap(err, "[OIDC FetchMembership]")
	}

	raw, _ := claims[o.groupsClaim].([]any)
	return slices.Contains(utils.ToStringSlice(raw), communityID), nil
}

func (o *OIDC) claims(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no ID token")
	}

	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()
	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "ID token verification failed")
	}

	claims := map[string]any{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "failed to extract claims")
	}
	return claims, nil
}
