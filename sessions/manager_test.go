package sessions_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/lukextesst/user/identity"
	"github.com/lukextesst/user/identity/identityfakes"
	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/lukextesst/user/sessions"
	"github.com/lukextesst/user/store"
	"github.com/stretchr/testify/require"
)

const (
	testAddress = "1.2.3.4"
	testGuild   = "guild-1"
)

type testFixture struct {
	store    *store.MemoryStore
	provider *identityfakes.FakeProvider
	manager  *sessions.Manager
	now      time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	f := &testFixture{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }

	f.store = store.NewMemoryStore(store.WithNowFunc(clock))
	f.provider = identityfakes.NewFakeProvider()
	joined := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	f.provider.AddUser("member-code", identity.Profile{ID: "42", DisplayName: "Ana"}, true, &joined)
	f.provider.AddUser("guest-code", identity.Profile{ID: "77", DisplayName: "Bo"}, false, nil)

	var err error
	f.manager, err = sessions.NewManager(f.store, f.provider, sessions.Config{
		CommunityID: testGuild,
		Secret:      "test-secret",
	}, sessions.WithNowTime(clock))
	require.NoError(t, err)
	return f
}

func (f *testFixture) beginLogin(t *testing.T, address string) string {
	authURL, err := f.manager.BeginLogin(context.Background(), address)
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.Len(t, state, 64)
	return state
}

func TestNewManager_Validation(t *testing.T) {
	_, err := sessions.NewManager(nil, identityfakes.NewFakeProvider(), sessions.Config{})
	require.Error(t, err)
	_, err = sessions.NewManager(store.NewMemoryStore(), nil, sessions.Config{})
	require.Error(t, err)
}

func TestManager_CompleteLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("member login", func(t *testing.T) {
		f := setupTestFixture(t)
		state := f.beginLogin(t, testAddress)

		ttl, err := f.store.TTL(ctx, "state:"+state)
		require.NoError(t, err)
		require.Equal(t, int64(600), ttl)

		handle, session, err := f.manager.CompleteLogin(ctx, "member-code", state, testAddress)
		require.NoError(t, err)
		require.NotEmpty(t, handle)
		require.Equal(t, "42", session.SubjectID)
		require.True(t, session.IsMember)
		require.NotNil(t, session.MemberSince)
		require.Equal(t, testAddress, session.NetworkAddress)

		got, err := f.manager.Get(ctx, handle)
		require.NoError(t, err)
		require.Equal(t, session.SubjectID, got.SubjectID)
		require.Equal(t, session.DisplayName, got.DisplayName)
		require.True(t, got.IsMember)
		require.True(t, session.MemberSince.Equal(*got.MemberSince))

		_, err = f.store.Get(ctx, "state:"+state)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("non-member still gets a session", func(t *testing.T) {
		f := setupTestFixture(t)
		state := f.beginLogin(t, testAddress)

		handle, session, err := f.manager.CompleteLogin(ctx, "guest-code", state, testAddress)
		require.NoError(t, err)
		require.False(t, session.IsMember)
		require.Nil(t, session.MemberSince)

		_, err = f.manager.Get(ctx, handle)
		require.NoError(t, err)
	})

	t.Run("membership lookup failure means non-member", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.MembershipErr = errors.New("guild lookup unavailable")
		state := f.beginLogin(t, testAddress)

		_, session, err := f.manager.CompleteLogin(ctx, "member-code", state, testAddress)
		require.NoError(t, err)
		require.False(t, session.IsMember)
	})

	t.Run("unknown state", func(t *testing.T) {
		f := setupTestFixture(t)
		_, _, err := f.manager.CompleteLogin(ctx, "member-code", "nope", testAddress)
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
	})

	t.Run("expired state", func(t *testing.T) {
		f := setupTestFixture(t)
		state := f.beginLogin(t, testAddress)
		f.now = f.now.Add(10 * time.Minute)

		_, _, err := f.manager.CompleteLogin(ctx, "member-code", state, testAddress)
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
		require.Zero(t, f.provider.Exchanges)
	})

	t.Run("address mismatch consumes the state", func(t *testing.T) {
		f := setupTestFixture(t)
		state := f.beginLogin(t, testAddress)

		_, _, err := f.manager.CompleteLogin(ctx, "member-code", state, "5.6.7.8")
		require.ErrorIs(t, err, apperrors.ErrAddressMismatch)

		_, _, err = f.manager.CompleteLogin(ctx, "member-code", state, testAddress)
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
		require.Zero(t, f.provider.Exchanges)
	})

	t.Run("exchange failure consumes the state", func(t *testing.T) {
		f := setupTestFixture(t)
		state := f.beginLogin(t, testAddress)

		_, _, err := f.manager.CompleteLogin(ctx, "forged-code", state, testAddress)
		require.ErrorIs(t, err, apperrors.ErrAuthExchangeFailed)

		_, _, err = f.manager.CompleteLogin(ctx, "member-code", state, testAddress)
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
	})
}

func TestManager_GetAndEnd(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	state := f.beginLogin(t, testAddress)
	handle, _, err := f.manager.CompleteLogin(ctx, "member-code", state, testAddress)
	require.NoError(t, err)

	t.Run("forged handle", func(t *testing.T) {
		_, err := f.manager.Get(ctx, handle+"x")
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
		_, err = f.manager.Get(ctx, "")
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("handle from another secret", func(t *testing.T) {
		other := sessions.NewHandleSigner("other-secret", nil)
		forged, err := other.Sign("whatever", "42", time.Hour)
		require.NoError(t, err)
		_, err = f.manager.Get(ctx, forged)
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("end is idempotent", func(t *testing.T) {
		require.NoError(t, f.manager.End(ctx, handle))
		require.NoError(t, f.manager.End(ctx, handle))
		require.NoError(t, f.manager.End(ctx, "garbage"))

		_, err := f.manager.Get(ctx, handle)
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})
}

func TestManager_SessionExpires(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	state := f.beginLogin(t, testAddress)
	handle, _, err := f.manager.CompleteLogin(ctx, "member-code", state, testAddress)
	require.NoError(t, err)

	f.now = f.now.Add(24*time.Hour + time.Second)
	_, err = f.manager.Get(ctx, handle)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestManager_NoCommunityMeansMember(t *testing.T) {
	ctx := context.Background()
	provider := identityfakes.NewFakeProvider()
	provider.AddUser("code", identity.Profile{ID: "1"}, false, nil)

	manager, err := sessions.NewManager(store.NewMemoryStore(), provider, sessions.Config{})
	require.NoError(t, err)

	authURL, err := manager.BeginLogin(ctx, testAddress)
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)

	_, session, err := manager.CompleteLogin(ctx, "code", u.Query().Get("state"), testAddress)
	require.NoError(t, err)
	require.True(t, session.IsMember)
}
