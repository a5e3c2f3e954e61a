package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/lukextesst/user/identity"
	"github.com/lukextesst/user/identity/identityfakes"
	"github.com/lukextesst/user/internal/config"
	"github.com/lukextesst/user/inventory/repofakes"
	"github.com/lukextesst/user/keys"
	"github.com/lukextesst/user/ratelimit"
	"github.com/lukextesst/user/server"
	"github.com/lukextesst/user/sessions"
	"github.com/lukextesst/user/store"
	"github.com/lukextesst/user/verification"
	"github.com/stretchr/testify/require"
)

const (
	testArtifactURL = "https://files.example/artifact.zip"
	testInviteURL   = "https://discord.gg/example"
	memberCode      = "member-code"
	outsiderCode    = "outsider-code"
)

type serverFixture struct {
	server   *server.Server
	provider *identityfakes.FakeProvider
	repo     *repofakes.FakeRepo
	store    *store.MemoryStore
	now      time.Time
}

type response struct {
	code   int
	header http.Header
	body   map[string]any
}

// setupServerFixture wires the server against in-memory collaborators. env is applied with
// t.Setenv before the configuration is read.
func setupServerFixture(t *testing.T, env map[string]string) *serverFixture {
	t.Setenv("ENV", "TEST")
	t.Setenv("DISCORD_INVITE_URL", testInviteURL)
	for name, value := range env {
		t.Setenv(name, value)
	}
	cfg := config.New()

	f := &serverFixture{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }

	f.store = store.NewMemoryStore(store.WithNowFunc(clock))
	f.repo = repofakes.NewFakeRepo()
	f.provider = identityfakes.NewFakeProvider()
	joined := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	f.provider.AddUser(memberCode, identity.Profile{ID: "42", DisplayName: "member"}, true, &joined)
	f.provider.AddUser(outsiderCode, identity.Profile{ID: "77", DisplayName: "outsider"}, false, nil)

	manager, err := sessions.NewManager(f.store, f.provider, sessions.Config{
		CommunityID: "guild-1",
		Secret:      "test-session-secret",
	}, sessions.WithNowTime(clock))
	require.NoError(t, err)

	limiter := ratelimit.New(10*time.Second, ratelimit.WithNowTime(clock))
	controller, err := verification.NewController(f.store, limiter, verification.Config{RateLimitMax: 100})
	require.NoError(t, err)

	issuer, err := keys.NewIssuer(f.repo, controller, limiter, keys.IssuerConfig{
		MaxKeysPerDay:        2,
		GenerateRateLimitMax: 100,
	}, keys.WithIssuerNowTime(clock))
	require.NoError(t, err)

	signer := keys.NewDownloadSigner("download-secret", testArtifactURL)
	redeemer, err := keys.NewRedeemer(f.repo, f.store, signer, keys.RedeemerConfig{}, keys.WithRedeemerNowTime(clock))
	require.NoError(t, err)

	f.server, err = server.New(cfg, server.Services{
		Store:        f.store,
		Sessions:     manager,
		Verification: controller,
		Issuer:       issuer,
		Redeemer:     redeemer,
		Inventory:    f.repo,
	}, server.WithNowTime(clock))
	require.NoError(t, err)
	return f
}

// do sends a request from the default httptest peer address. A non nil body is sent as JSON.
func (f *serverFixture) do(t *testing.T, method, target string, body any, headers map[string]string) response {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	res := response{code: rec.Code, header: rec.Header(), body: map[string]any{}}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &res.body)
	}
	return res
}

// beginLogin starts a login and returns the state embedded in the provider URL.
func (f *serverFixture) beginLogin(t *testing.T, headers map[string]string) string {
	res := f.do(t, http.MethodGet, server.RouteAuthLogin, nil, headers)
	require.Equal(t, http.StatusOK, res.code)

	authURL, err := url.Parse(res.body["auth_url"].(string))
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

// login runs the whole login for code and returns the session handle.
func (f *serverFixture) login(t *testing.T, code string) string {
	state := f.beginLogin(t, nil)
	res := f.do(t, http.MethodPost, server.RouteAuthCallback, map[string]string{"code": code, "state": state}, nil)
	handle, ok := res.body["session_id"].(string)
	require.True(t, ok, "callback returned %d %v", res.code, res.body)
	return handle
}

func (f *serverFixture) verificationToken(t *testing.T) string {
	res := f.do(t, http.MethodPost, server.RouteVerificationStart, nil, nil)
	require.Equal(t, http.StatusOK, res.code)
	return res.body["verification_token"].(string)
}

// issueKey runs verification and generation for the session behind handle.
func (f *serverFixture) issueKey(t *testing.T, handle string) string {
	res := f.do(t, http.MethodPost, server.RouteKeys, nil, map[string]string{
		server.HeaderSessionID:         handle,
		server.HeaderVerificationToken: f.verificationToken(t),
	})
	require.Equal(t, http.StatusOK, res.code, "generate returned %v", res.body)
	return res.body["key"].(string)
}
