package keys

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/lukextesst/user/internal/utils"
	"github.com/lukextesst/user/inventory"
	"github.com/lukextesst/user/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	downloadTokenPrefix   = "dtoken:"
	DefaultDownloadExpiry = 10 * time.Minute
)

type DownloadToken struct {
	Key            string `json:"key"`
	NetworkAddress string `json:"ip"`
	Used           bool   `json:"used"`
}

// RedeemResult carries either a download token or the informational already-used outcome.
type RedeemResult struct {
	DownloadToken string
	AlreadyUsed   bool
}

type RedeemerConfig struct {
	DownloadExpiry time.Duration
}

type Redeemer struct {
	repo     inventory.Repo
	store    store.Store
	signer   *DownloadSigner
	inFlight *inFlight
	tokenTTL time.Duration
	nowFunc  func() time.Time

	resolveMu sync.Mutex
}

type RedeemerOption func(*Redeemer)

// WithRedeemerNowTime sets the clock used for URL timestamps (primarily for testing)
func WithRedeemerNowTime(now func() time.Time) RedeemerOption {
	return func(r *Redeemer) {
		r.nowFunc = now
	}
}

func NewRedeemer(repo inventory.Repo, st store.Store, signer *DownloadSigner, cfg RedeemerConfig, options ...RedeemerOption) (*Redeemer, error) {
	if repo == nil {
		return nil, errors.New("[keys NewRedeemer] inventory repo is required")
	}
	if st == nil {
		return nil, errors.New("[keys NewRedeemer] store is required")
	}
	if signer == nil {
		return nil, errors.New("[keys NewRedeemer] download signer is required")
	}
	if cfg.DownloadExpiry <= 0 {
		cfg.DownloadExpiry = DefaultDownloadExpiry
	}

	r := &Redeemer{
		repo:     repo,
		store:    st,
		signer:   signer,
		inFlight: newInFlight(),
		tokenTTL: cfg.DownloadExpiry,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Redeem marks key used for address and issues a download token bound to both.
//
// The address ledger entry is written first and conditionally. When another writer changed the
// entry in between, the claim is re-checked against the fresh entry, so two processes redeeming
// the same key cannot both succeed: the loser sees the key as already used.
func (r *Redeemer) Redeem(ctx context.Context, key, address string) (*RedeemResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperrors.ErrMissing
	}
	if !ValidFormat(key) {
		return nil, apperrors.ErrNotOwned
	}
	if !r.inFlight.acquire(key) {
		return nil, apperrors.ErrConflict
	}
	defer r.inFlight.release(key)

	inv, err := r.claim(ctx, key, address)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return &RedeemResult{AlreadyUsed: true}, nil
	}

	if err := r.markUsed(ctx, inv, key); err != nil {
		return nil, err
	}

	token, err := utils.RandomHex(32)
	if err != nil {
		return nil, errors.Wrap(err, "[Redeemer Redeem]")
	}
	record := DownloadToken{Key: key, NetworkAddress: address}
	if err := store.SetJSON(ctx, r.store, downloadTokenPrefix+token, record, r.tokenTTL); err != nil {
		return nil, errors.Wrap(err, "[Redeemer Redeem] store download token")
	}

	log.Info().Str("address", address).Str("key", key).Msg("key redeemed")
	return &RedeemResult{DownloadToken: token}, nil
}

// claim records key in the used list of the address ledger entry and returns the inventory read
// alongside it. A nil inventory means key was already used.
func (r *Redeemer) claim(ctx context.Context, key, address string) (*inventory.Inventory, error) {
	addressKey := inventory.AddressID(address)
	for attempt := 0; attempt < maxInventoryAttempts; attempt++ {
		ledger, err := r.repo.LoadLedgerEntries(ctx, addressKey)
		if err != nil {
			return nil, errors.Wrap(err, "[Redeemer claim] load ledger")
		}
		entry, ok := ledger[addressKey]
		if !ok || !entry.HasGenerated(key) {
			return nil, apperrors.ErrNotOwned
		}

		inv, err := r.repo.LoadInventory(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "[Redeemer claim] load inventory")
		}
		if entry.HasUsed(key) || inv.IsUsed(key) {
			return nil, nil
		}

		entry.Used = append(entry.Used, key)
		err = r.repo.SaveLedger(ctx, inventory.Ledger{addressKey: entry})
		if errors.Is(err, apperrors.ErrRevisionConflict) {
			log.Debug().Str("address", address).Int("attempt", attempt+1).Msg("ledger changed during redeem, retrying")
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "[Redeemer claim] save ledger")
		}
		return inv, nil
	}
	return nil, apperrors.Wrapf(apperrors.ErrConflict, "[Redeemer claim] ledger kept changing")
}

// markUsed moves key to the used set, reloading on conflict. Applying it twice is harmless.
func (r *Redeemer) markUsed(ctx context.Context, inv *inventory.Inventory, key string) error {
	for attempt := 0; attempt < maxInventoryAttempts; attempt++ {
		if attempt > 0 {
			var err error
			if inv, err = r.repo.LoadInventory(ctx); err != nil {
				return errors.Wrap(err, "[Redeemer markUsed] load inventory")
			}
		}
		if !inv.MarkUsed(key) {
			return nil
		}

		err := r.repo.SaveInventory(ctx, inv)
		if errors.Is(err, apperrors.ErrRevisionConflict) {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "[Redeemer markUsed] save inventory")
		}
		return nil
	}
	return apperrors.Wrapf(apperrors.ErrConflict, "[Redeemer markUsed] inventory kept changing")
}

// ResolveDownload spends a download token and returns the signed artifact URL.
func (r *Redeemer) ResolveDownload(ctx context.Context, token, address string) (string, error) {
	if token == "" {
		return "", apperrors.ErrMissing
	}

	r.resolveMu.Lock()
	defer r.resolveMu.Unlock()

	key := downloadTokenPrefix + token
	record, err := store.GetJSON[DownloadToken](ctx, r.store, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[Redeemer ResolveDownload]")
	}
	if record.Used {
		return "", apperrors.ErrAlreadyUsed
	}
	if record.NetworkAddress != address {
		return "", apperrors.ErrAddressMismatch
	}

	record.Used = true
	err = store.ReplaceJSON(ctx, r.store, key, record)
	if errors.Is(err, store.ErrNotFound) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[Redeemer ResolveDownload]")
	}

	signedURL, err := r.signer.SignedURL(record.Key, r.nowFunc())
	if err != nil {
		return "", err
	}
	log.Info().Str("address", address).Str("key", record.Key).Msg("download resolved")
	return signedURL, nil
}
