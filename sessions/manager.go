package sessions

import (
	"context"
	"time"

	"github.com/lukextesst/user/identity"
	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/lukextesst/user/internal/utils"
	"github.com/lukextesst/user/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	DefaultStateLifespan   = 10 * time.Minute
	DefaultSessionDuration = 24 * time.Hour
)

type Config struct {
	// CommunityID is the community a visitor must belong to. Empty makes everyone a member.
	CommunityID     string
	StateLifespan   time.Duration
	SessionDuration time.Duration
	// Secret signs session handles. Empty generates a per-process secret, so handles do not
	// survive a restart.
	Secret string
}

type Manager struct {
	store       store.Store
	provider    identity.Provider
	signer      *HandleSigner
	communityID string
	stateTTL    time.Duration
	sessionTTL  time.Duration
	nowFunc     func() time.Time
}

type Option func(*Manager)

// WithNowTime sets the clock used for handle timestamps (primarily for testing)
func WithNowTime(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func NewManager(st store.Store, provider identity.Provider, cfg Config, options ...Option) (*Manager, error) {
	if st == nil {
		return nil, errors.New("[sessions NewManager] store is required")
	}
	if provider == nil {
		return nil, errors.New("[sessions NewManager] identity provider is required")
	}

	secret := cfg.Secret
	if secret == "" {
		var err error
		if secret, err = utils.RandomHex(32); err != nil {
			return nil, errors.Wrap(err, "[sessions NewManager] generate session secret")
		}
		log.Warn().Msg("SESSION_SECRET not set, sessions will not survive a restart")
	}

	m := &Manager{
		store:       st,
		provider:    provider,
		communityID: cfg.CommunityID,
		stateTTL:    cfg.StateLifespan,
		sessionTTL:  cfg.SessionDuration,
		nowFunc:     time.Now,
	}
	if m.stateTTL <= 0 {
		m.stateTTL = DefaultStateLifespan
	}
	if m.sessionTTL <= 0 {
		m.sessionTTL = DefaultSessionDuration
	}
	for _, opt := range options {
		opt(m)
	}
	m.signer = NewHandleSigner(secret, m.nowFunc)
	return m, nil
}

// BeginLogin records a new auth state for address and returns the provider URL to send the
// visitor to.
func (m *Manager) BeginLogin(ctx context.Context, address string) (string, error) {
	state, err := utils.RandomHex(32)
	if err != nil {
		return "", errors.Wrap(err, "[Manager BeginLogin]")
	}
	if err := store.SetJSON(ctx, m.store, statePrefix+state, AuthState{NetworkAddress: address}, m.stateTTL); err != nil {
		return "", errors.Wrap(err, "[Manager BeginLogin] store state")
	}
	return m.provider.AuthCodeURL(state), nil
}

// CompleteLogin consumes the auth state, exchanges code and stores a new session. The state is
// deleted before any other check so it can never be replayed.
func (m *Manager) CompleteLogin(ctx context.Context, code, stateToken, address string) (string, *Session, error) {
	if stateToken == "" {
		return "", nil, apperrors.ErrInvalidState
	}

	authState, err := store.GetJSON[AuthState](ctx, m.store, statePrefix+stateToken)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, apperrors.ErrInvalidState
	}
	if err != nil {
		return "", nil, errors.Wrap(err, "[Manager CompleteLogin] load state")
	}
	if err := m.store.Delete(ctx, statePrefix+stateToken); err != nil {
		return "", nil, errors.Wrap(err, "[Manager CompleteLogin] delete state")
	}

	if authState.NetworkAddress != address {
		return "", nil, apperrors.ErrAddressMismatch
	}
	if code == "" {
		return "", nil, apperrors.ErrMissing
	}

	token, err := m.provider.ExchangeCode(ctx, code)
	if err != nil {
		return "", nil, apperrors.Wrapf(apperrors.ErrAuthExchangeFailed, "%v", err)
	}
	profile, err := m.provider.FetchProfile(ctx, token)
	if err != nil {
		return "", nil, apperrors.Wrapf(apperrors.ErrAuthExchangeFailed, "%v", err)
	}

	session := &Session{
		SubjectID:      profile.ID,
		DisplayName:    profile.DisplayName,
		AvatarRef:      profile.AvatarRef,
		NetworkAddress: address,
		IsMember:       m.isMember(ctx, token, profile.ID),
	}
	if session.IsMember {
		if lookup, ok := m.provider.(identity.JoinDateLookup); ok {
			session.MemberSince = lookup.FetchJoinDate(ctx, m.communityID, profile.ID)
		}
	}

	sessionID, err := utils.RandomHex(32)
	if err != nil {
		return "", nil, errors.Wrap(err, "[Manager CompleteLogin]")
	}
	if err := store.SetJSON(ctx, m.store, sessionPrefix+sessionID, session, m.sessionTTL); err != nil {
		return "", nil, errors.Wrap(err, "[Manager CompleteLogin] store session")
	}
	handle, err := m.signer.Sign(sessionID, session.SubjectID, m.sessionTTL)
	if err != nil {
		return "", nil, errors.Wrap(err, "[Manager CompleteLogin]")
	}

	log.Info().Str("subject", session.SubjectID).Str("address", address).Bool("member", session.IsMember).Msg("login completed")
	return handle, session, nil
}

// Get resolves a handle. Unknown, forged or expired handles return ErrSessionNotFound.
func (m *Manager) Get(ctx context.Context, handle string) (*Session, error) {
	if handle == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	sessionID, err := m.signer.Verify(handle)
	if err != nil {
		return nil, apperrors.ErrSessionNotFound
	}

	session, err := store.GetJSON[Session](ctx, m.store, sessionPrefix+sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Manager Get]")
	}
	return session, nil
}

// End deletes the session behind handle. Unknown handles are ignored.
func (m *Manager) End(ctx context.Context, handle string) error {
	sessionID, err := m.signer.Verify(handle)
	if err != nil {
		return nil
	}
	if err := m.store.Delete(ctx, sessionPrefix+sessionID); err != nil {
		return errors.Wrap(err, "[Manager End]")
	}
	return nil
}

func (m *Manager) CommunityID() string {
	return m.communityID
}

func (m *Manager) isMember(ctx context.Context, token *oauth2.Token, subjectID string) bool {
	if m.communityID == "" {
		return true
	}
	member, err := m.provider.FetchMembership(ctx, token, m.communityID)
	if err != nil {
		log.Warn().Err(err).Str("subject", subjectID).Msg("membership lookup failed, treating as non-member")
		return false
	}
	return member
}
