package keys

import (
	"context"
	"time"

	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/lukextesst/user/inventory"
	"github.com/lukextesst/user/ratelimit"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxKeysPerDay = 5

	// Attempts at the whole load/check/write cycle when another writer updated the ledger first.
	maxIssueAttempts = 3
	// Attempts at a single inventory write when another writer updated it first.
	maxInventoryAttempts = 5
)

// TokenConsumer spends a verification token.
type TokenConsumer interface {
	Consume(ctx context.Context, token, address string) error
}

type IssueResult struct {
	Key       string `json:"key"`
	Remaining int    `json:"keys_remaining"`
}

type IssuerConfig struct {
	MaxKeysPerDay int
	// GenerateRateLimitMax is the number of issue attempts an address may make per limiter window.
	GenerateRateLimitMax int
}

type Issuer struct {
	repo         inventory.Repo
	verifier     TokenConsumer
	limiter      *ratelimit.Limiter
	generator    *Generator
	maxPerDay    int
	rateLimitMax int
	nowFunc      func() time.Time
}

type IssuerOption func(*Issuer)

// WithIssuerNowTime sets the clock that decides "today" (primarily for testing)
func WithIssuerNowTime(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

// WithGenerator replaces the key generator
func WithGenerator(g *Generator) IssuerOption {
	return func(i *Issuer) {
		i.generator = g
	}
}

func NewIssuer(repo inventory.Repo, verifier TokenConsumer, limiter *ratelimit.Limiter, cfg IssuerConfig, options ...IssuerOption) (*Issuer, error) {
	if repo == nil {
		return nil, errors.New("[keys NewIssuer] inventory repo is required")
	}
	if verifier == nil {
		return nil, errors.New("[keys NewIssuer] verification controller is required")
	}
	if limiter == nil {
		return nil, errors.New("[keys NewIssuer] rate limiter is required")
	}
	if cfg.MaxKeysPerDay <= 0 {
		cfg.MaxKeysPerDay = DefaultMaxKeysPerDay
	}

	i := &Issuer{
		repo:         repo,
		verifier:     verifier,
		limiter:      limiter,
		generator:    NewGenerator(nil),
		maxPerDay:    cfg.MaxKeysPerDay,
		rateLimitMax: cfg.GenerateRateLimitMax,
		nowFunc:      time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

func (i *Issuer) MaxPerDay() int {
	return i.maxPerDay
}

// Issue spends verificationToken and generates a key for subjectID at address. The token stays
// spent even if a later step fails.
func (i *Issuer) Issue(ctx context.Context, subjectID, address, verificationToken string) (*IssueResult, error) {
	if !i.limiter.Allow(address, ratelimit.ActionGenerate, i.rateLimitMax) {
		return nil, apperrors.ErrRateLimited
	}
	if err := i.verifier.Consume(ctx, verificationToken, address); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		result, err := i.issueOnce(ctx, subjectID, address)
		if errors.Is(err, apperrors.ErrRevisionConflict) {
			log.Debug().Str("subject", subjectID).Int("attempt", attempt+1).Msg("ledger changed during issue, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		log.Info().Str("subject", subjectID).Str("address", address).Str("key", result.Key).Msg("key issued")
		return result, nil
	}
	return nil, apperrors.Wrapf(apperrors.ErrConflict, "[Issuer Issue] ledger kept changing")
}

func (i *Issuer) issueOnce(ctx context.Context, subjectID, address string) (*IssueResult, error) {
	today := inventory.Today(i.nowFunc())
	subjectKey := inventory.SubjectID(subjectID)
	addressKey := inventory.AddressID(address)

	ledger, err := i.repo.LoadLedgerEntries(ctx, subjectKey, addressKey)
	if err != nil {
		return nil, errors.Wrap(err, "[Issuer Issue] load ledger")
	}
	subject := ledger.Entry(subjectKey, today)
	subject.RollOver(today)
	if len(subject.Generated) >= i.maxPerDay {
		return nil, apperrors.ErrDailyLimitReached
	}
	addressEntry := ledger.Entry(addressKey, today)
	addressEntry.RollOver(today)

	key, err := i.reserve(ctx, (*inventory.Inventory).AddAvailable)
	if err != nil {
		return nil, err
	}

	// A ledger conflict from here on leaves key reserved but owned by nobody.
	subject.Generated = append(subject.Generated, key)
	addressEntry.Generated = append(addressEntry.Generated, key)
	if err := i.repo.SaveLedger(ctx, ledger); err != nil {
		return nil, errors.Wrap(err, "[Issuer Issue] save ledger")
	}

	return &IssueResult{Key: key, Remaining: i.maxPerDay - len(subject.Generated)}, nil
}

// IssueAdmin generates a key into the reserved admin namespace. It bypasses quota and ledger.
func (i *Issuer) IssueAdmin(ctx context.Context) (string, error) {
	key, err := i.reserve(ctx, (*inventory.Inventory).AddAdminIssued)
	if err != nil {
		return "", err
	}
	log.Info().Str("key", key).Msg("admin key issued")
	return key, nil
}

// reserve generates a key unknown to the inventory and records it with add.
func (i *Issuer) reserve(ctx context.Context, add func(*inventory.Inventory, string) bool) (string, error) {
	for attempt := 0; attempt < maxInventoryAttempts; attempt++ {
		inv, err := i.repo.LoadInventory(ctx)
		if err != nil {
			return "", errors.Wrap(err, "[Issuer reserve] load inventory")
		}
		key, err := i.generator.New(inv.Contains)
		if err != nil {
			return "", err
		}
		add(inv, key)

		err = i.repo.SaveInventory(ctx, inv)
		if errors.Is(err, apperrors.ErrRevisionConflict) {
			continue
		}
		if err != nil {
			return "", errors.Wrap(err, "[Issuer reserve] save inventory")
		}
		return key, nil
	}
	return "", apperrors.Wrapf(apperrors.ErrConflict, "[Issuer reserve] inventory kept changing")
}
