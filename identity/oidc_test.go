package identity_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lukextesst/user/identity"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testIssuer = "https://issuer.example"

func setupOIDCFixture(t *testing.T) (*identity.OIDC, *rsa.PrivateKey) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	verifier := oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: "client"})
	provider := identity.NewOIDCWithVerifier(&oauth2.Config{
		ClientID: "client",
		Endpoint: oauth2.Endpoint{AuthURL: testIssuer + "/authorize", TokenURL: testIssuer + "/token"},
	}, verifier, "")
	return provider, key
}

func signedToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) *oauth2.Token {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return (&oauth2.Token{AccessToken: "access"}).WithExtra(map[string]any{"id_token": raw})
}

func TestOIDC_ProfileAndMembership(t *testing.T) {
	ctx := context.Background()
	provider, key := setupOIDCFixture(t)

	token := signedToken(t, key, jwt.MapClaims{
		"iss":                testIssuer,
		"aud":                "client",
		"sub":                "subject-9",
		"preferred_username": "nine",
		"groups":             []string{"staff", "community-1"},
		"iat":                time.Now().Unix(),
		"exp":                time.Now().Add(time.Hour).Unix(),
	})

	profile, err := provider.FetchProfile(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "subject-9", profile.ID)
	require.Equal(t, "nine", profile.DisplayName)

	member, err := provider.FetchMembership(ctx, token, "community-1")
	require.NoError(t, err)
	require.True(t, member)

	member, err = provider.FetchMembership(ctx, token, "community-2")
	require.NoError(t, err)
	require.False(t, member)

	require.Contains(t, provider.AuthCodeURL("st"), "state=st")
}

func TestOIDC_RejectsForeignToken(t *testing.T) {
	provider, _ := setupOIDCFixture(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	token := signedToken(t, otherKey, jwt.MapClaims{
		"iss": testIssuer,
		"aud": "client",
		"sub": "subject-9",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err = provider.FetchProfile(context.Background(), token)
	require.Error(t, err)

	_, err = provider.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "no-id-token"})
	require.Error(t, err)
}
