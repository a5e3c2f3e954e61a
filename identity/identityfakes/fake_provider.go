package identityfakes

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/lukextesst/user/identity"
	"golang.org/x/oauth2"
)

// FakeProvider accepts the codes registered with AddUser. The access token it hands out is the
// code itself.
type FakeProvider struct {
	mu            sync.RWMutex
	profiles      map[string]identity.Profile
	members       map[string]bool
	joinDates     map[string]time.Time
	MembershipErr error
	Exchanges     int
}

var (
	_ identity.Provider       = (*FakeProvider)(nil)
	_ identity.JoinDateLookup = (*FakeProvider)(nil)
)

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		profiles:  make(map[string]identity.Profile),
		members:   make(map[string]bool),
		joinDates: make(map[string]time.Time),
	}
}

// AddUser registers code as a valid authorization code for profile.
func (p *FakeProvider) AddUser(code string, profile identity.Profile, member bool, joinedAt *time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.profiles[code] = profile
	p.members[profile.ID] = member
	if joinedAt != nil {
		p.joinDates[profile.ID] = *joinedAt
	}
}

func (p *FakeProvider) AuthCodeURL(state string) string {
	return "https://idp.example/authorize?state=" + url.QueryEscape(state)
}

func (p *FakeProvider) ExchangeCode(_ context.Context, code string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Exchanges++
	if _, ok := p.profiles[code]; !ok {
		return nil, errors.New("invalid_grant")
	}
	return &oauth2.Token{AccessToken: code}, nil
}

func (p *FakeProvider) FetchProfile(_ context.Context, token *oauth2.Token) (identity.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	profile, ok := p.profiles[token.AccessToken]
	if !ok {
		return identity.Profile{}, errors.New("unknown access token")
	}
	return profile, nil
}

func (p *FakeProvider) FetchMembership(_ context.Context, token *oauth2.Token, _ string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.MembershipErr != nil {
		return false, p.MembershipErr
	}
	return p.members[p.profiles[token.AccessToken].ID], nil
}

func (p *FakeProvider) FetchJoinDate(_ context.Context, _, subjectID string) *time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if joinedAt, ok := p.joinDates[subjectID]; ok {
		return &joinedAt
	}
	return nil
}
