package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/lukextesst/user/identity"
	"github.com/stretchr/testify/require"
)

type discordFixture struct {
	server  *httptest.Server
	discord *identity.Discord
	guilds  []map[string]string
	member  map[string]string
}

func setupDiscordFixture(t *testing.T, botToken string) *discordFixture {
	f := &discordFixture{
		guilds: []map[string]string{{"id": "other"}, {"id": "guild-1"}},
		member: map[string]string{"joined_at": "2021-06-01T10:00:00.000000+00:00"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		require.Equal(t, "client-id", r.PostForm.Get("client_id"))
		require.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /users/@me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "42", "username": "ana", "global_name": "Ana", "avatar": "a_hash"})
	})
	mux.HandleFunc("GET /users/@me/guilds", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(f.guilds)
	})
	mux.HandleFunc("GET /guilds/{guild}/members/{user}", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bot "+botToken, r.Header.Get("Authorization"))
		if r.PathValue("user") != "42" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(f.member)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	f.discord = identity.NewDiscord(identity.DiscordConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://keys.example/auth/callback",
		APIURL:       f.server.URL,
		BotToken:     botToken,
	}, identity.WithHTTPClient(f.server.Client()))
	return f
}

func TestDiscord_AuthCodeURL(t *testing.T) {
	f := setupDiscordFixture(t, "")

	u, err := url.Parse(f.discord.AuthCodeURL("state-123"))
	require.NoError(t, err)
	require.Equal(t, "/oauth2/authorize", u.Path)
	require.Equal(t, "state-123", u.Query().Get("state"))
	require.Equal(t, "identify guilds", u.Query().Get("scope"))
	require.Equal(t, "client-id", u.Query().Get("client_id"))
	require.Equal(t, "code", u.Query().Get("response_type"))
	require.Equal(t, "consent", u.Query().Get("prompt"))
}

func TestDiscord_Flow(t *testing.T) {
	ctx := context.Background()
	f := setupDiscordFixture(t, "bot-token")

	t.Run("exchange failure", func(t *testing.T) {
		_, err := f.discord.ExchangeCode(ctx, "bad-code")
		require.Error(t, err)
	})

	token, err := f.discord.ExchangeCode(ctx, "good-code")
	require.NoError(t, err)
	require.Equal(t, "access-1", token.AccessToken)

	t.Run("profile", func(t *testing.T) {
		profile, err := f.discord.FetchProfile(ctx, token)
		require.NoError(t, err)
		require.Equal(t, identity.Profile{ID: "42", DisplayName: "Ana", AvatarRef: "a_hash"}, profile)
	})

	t.Run("membership", func(t *testing.T) {
		member, err := f.discord.FetchMembership(ctx, token, "guild-1")
		require.NoError(t, err)
		require.True(t, member)

		member, err = f.discord.FetchMembership(ctx, token, "guild-2")
		require.NoError(t, err)
		require.False(t, member)
	})

	t.Run("join date", func(t *testing.T) {
		joinedAt := f.discord.FetchJoinDate(ctx, "guild-1", "42")
		require.NotNil(t, joinedAt)
		require.Equal(t, time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC), joinedAt.UTC())

		require.Nil(t, f.discord.FetchJoinDate(ctx, "guild-1", "unknown"))
	})
}

func TestDiscord_JoinDateWithoutBotToken(t *testing.T) {
	f := setupDiscordFixture(t, "")
	require.Nil(t, f.discord.FetchJoinDate(context.Background(), "guild-1", "42"))
}
