package keys_test

import (
	"context"
	"testing"
	"time"

	"github.com/lukextesst/user/inventory/repofakes"
	"github.com/lukextesst/user/keys"
	"github.com/lukextesst/user/ratelimit"
	"github.com/lukextesst/user/store"
	"github.com/lukextesst/user/verification"
	"github.com/stretchr/testify/require"
)

const (
	testAddress = "1.2.3.4"
	testSubject = "42"
)

type testFixture struct {
	repo         *repofakes.FakeRepo
	store        *store.MemoryStore
	verification *verification.Controller
	issuer       *keys.Issuer
	redeemer     *keys.Redeemer
	signer       *keys.DownloadSigner
	now          time.Time
}

type fixtureConfig struct {
	maxKeysPerDay int
	generateMax   int
}

func setupTestFixture(t *testing.T, cfg fixtureConfig) *testFixture {
	if cfg.maxKeysPerDay == 0 {
		cfg.maxKeysPerDay = 5
	}
	if cfg.generateMax == 0 {
		cfg.generateMax = 100
	}

	f := &testFixture{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }

	f.repo = repofakes.NewFakeRepo()
	f.store = store.NewMemoryStore(store.WithNowFunc(clock))
	limiter := ratelimit.New(10*time.Second, ratelimit.WithNowTime(clock))

	var err error
	f.verification, err = verification.NewController(f.store, limiter, verification.Config{RateLimitMax: 100})
	require.NoError(t, err)

	f.issuer, err = keys.NewIssuer(f.repo, f.verification, limiter, keys.IssuerConfig{
		MaxKeysPerDay:        cfg.maxKeysPerDay,
		GenerateRateLimitMax: cfg.generateMax,
	}, keys.WithIssuerNowTime(clock))
	require.NoError(t, err)

	f.signer = keys.NewDownloadSigner("download-secret", "https://files.example/artifact.zip")
	f.redeemer, err = keys.NewRedeemer(f.repo, f.store, f.signer, keys.RedeemerConfig{}, keys.WithRedeemerNowTime(clock))
	require.NoError(t, err)
	return f
}

func (f *testFixture) verificationToken(t *testing.T, address string) string {
	token, err := f.verification.Issue(context.Background(), address)
	require.NoError(t, err)
	return token
}

func (f *testFixture) issue(t *testing.T, subject, address string) *keys.IssueResult {
	result, err := f.issuer.Issue(context.Background(), subject, address, f.verificationToken(t, address))
	require.NoError(t, err)
	return result
}
