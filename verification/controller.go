// Package verification issues and consumes the single-use tokens a visitor collects before each
// key generation.
package verification

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/lukextesst/user/internal/utils"
	"github.com/lukextesst/user/ratelimit"
	"github.com/lukextesst/user/store"
	"github.com/pkg/errors"
)

const (
	tokenPrefix     = "vtoken:"
	DefaultLifespan = 5 * time.Minute
)

type Token struct {
	NetworkAddress string `json:"ip"`
	Used           bool   `json:"used"`
}

type Config struct {
	Lifespan time.Duration
	// RateLimitMax is the number of tokens an address may request per limiter window.
	RateLimitMax int
}

type Controller struct {
	store        store.Store
	limiter      *ratelimit.Limiter
	ttl          time.Duration
	rateLimitMax int

	// consumeMu serialises the read-modify-write of Consume within this process.
	consumeMu sync.Mutex
}

func NewController(st store.Store, limiter *ratelimit.Limiter, cfg Config) (*Controller, error) {
	if st == nil {
		return nil, errors.New("[verification NewController] store is required")
	}
	if limiter == nil {
		return nil, errors.New("[verification NewController] rate limiter is required")
	}
	if cfg.Lifespan <= 0 {
		cfg.Lifespan = DefaultLifespan
	}
	return &Controller{
		store:        st,
		limiter:      limiter,
		ttl:          cfg.Lifespan,
		rateLimitMax: cfg.RateLimitMax,
	}, nil
}

// Issue creates an unused token bound to address.
func (c *Controller) Issue(ctx context.Context, address string) (string, error) {
	if !c.limiter.Allow(address, ratelimit.ActionInitiateVerification, c.rateLimitMax) {
		return "", apperrors.ErrRateLimited
	}

	token, err := utils.RandomHex(24)
	if err != nil {
		return "", errors.Wrap(err, "[Controller Issue]")
	}
	if err := store.SetJSON(ctx, c.store, tokenPrefix+token, Token{NetworkAddress: address}, c.ttl); err != nil {
		return "", errors.Wrap(err, "[Controller Issue]")
	}
	return token, nil
}

// Consume marks token used. The record keeps its original deadline.
func (c *Controller) Consume(ctx context.Context, token, address string) error {
	if token == "" {
		return apperrors.ErrMissing
	}

	c.consumeMu.Lock()
	defer c.consumeMu.Unlock()

	key := tokenPrefix + token
	record, err := store.GetJSON[Token](ctx, c.store, key)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "[Controller Consume]")
	}

	if record.Used {
		return apperrors.ErrAlreadyUsed
	}
	if record.NetworkAddress != address {
		return apperrors.ErrAddressMismatch
	}

	record.Used = true
	err = store.ReplaceJSON(ctx, c.store, key, record)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "[Controller Consume]")
	}
	return nil
}
