package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/lukextesst/user/identity"
	"github.com/lukextesst/user/internal/config"
	"github.com/lukextesst/user/inventory"
	"github.com/lukextesst/user/keys"
	"github.com/lukextesst/user/ratelimit"
	"github.com/lukextesst/user/server"
	"github.com/lukextesst/user/sessions"
	"github.com/lukextesst/user/store"
	"github.com/lukextesst/user/verification"
	"github.com/rs/zerolog/log"
)

const (
	providerDiscord = "discord"
	providerOIDC    = "oidc"
)

// application owns the backends behind the HTTP server so they can be closed on shutdown.
type application struct {
	server    *server.Server
	store     store.Store
	inventory inventory.Repo
}

func newApplication(ctx context.Context, c config.Config) (*application, error) {
	st := store.Connect(ctx, c.GetRedisURL())
	repo, err := inventory.Open(ctx, c.GetDatabaseURL(), c.GetDataFolder())
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("inventory.Open: %w", err)
	}
	app := &application{store: st, inventory: repo}

	srv, err := app.wire(ctx, c)
	if err != nil {
		app.close()
		return nil, err
	}
	app.server = srv
	return app, nil
}

func (a *application) wire(ctx context.Context, c config.Config) (*server.Server, error) {
	provider, err := newProvider(ctx, c)
	if err != nil {
		return nil, err
	}

	manager, err := sessions.NewManager(a.store, provider, sessions.Config{
		CommunityID:     c.GetRequiredCommunityID(),
		StateLifespan:   c.GetAuthStateLifespan(),
		SessionDuration: c.GetSessionDuration(),
		Secret:          c.GetSessionSecret(),
	})
	if err != nil {
		return nil, fmt.Errorf("sessions.NewManager: %w", err)
	}

	limiter := ratelimit.New(c.GetRateLimitWindow())
	controller, err := verification.NewController(a.store, limiter, verification.Config{
		Lifespan:     c.GetVerificationTokenLifespan(),
		RateLimitMax: c.GetRateLimitMax(),
	})
	if err != nil {
		return nil, fmt.Errorf("verification.NewController: %w", err)
	}

	issuer, err := keys.NewIssuer(a.inventory, controller, limiter, keys.IssuerConfig{
		MaxKeysPerDay:        c.GetMaxKeysPerDay(),
		GenerateRateLimitMax: c.GetGenerateRateLimitMax(),
	})
	if err != nil {
		return nil, fmt.Errorf("keys.NewIssuer: %w", err)
	}

	if defaults, ok := c.(interface{ IsDefaultDownloadSecret() bool }); ok && defaults.IsDefaultDownloadSecret() {
		log.Warn().Msg("DOWNLOAD_SECRET not set, download URLs are signed with the placeholder secret")
	}
	signer := keys.NewDownloadSigner(c.GetDownloadSecret(), c.GetDownloadURL())
	redeemer, err := keys.NewRedeemer(a.inventory, a.store, signer, keys.RedeemerConfig{
		DownloadExpiry: c.GetDownloadExpiry(),
	})
	if err != nil {
		return nil, fmt.Errorf("keys.NewRedeemer: %w", err)
	}

	srv, err := server.New(c, server.Services{
		Store:        a.store,
		Sessions:     manager,
		Verification: controller,
		Issuer:       issuer,
		Redeemer:     redeemer,
		Inventory:    a.inventory,
	})
	if err != nil {
		return nil, fmt.Errorf("server.New: %w", err)
	}
	return srv, nil
}

// newProvider builds the identity provider named by IDENTITY_PROVIDER.
func newProvider(ctx context.Context, c config.IdentityConfig) (identity.Provider, error) {
	switch name := strings.ToLower(c.GetIdentityProvider()); name {
	case providerDiscord, "":
		if c.GetDiscordClientID() == "" || c.GetDiscordClientSecret() == "" {
			log.Warn().Msg("DISCORD_CLIENT_ID or DISCORD_CLIENT_SECRET not set, logins will fail")
		}
		if c.GetRequiredCommunityID() == "" {
			log.Warn().Msg("DISCORD_REQUIRED_GUILD_ID not set, every visitor counts as a member")
		}
		return identity.NewDiscord(identity.DiscordConfig{
			ClientID:     c.GetDiscordClientID(),
			ClientSecret: c.GetDiscordClientSecret(),
			RedirectURI:  c.GetDiscordRedirectURI(),
			APIURL:       c.GetDiscordAPIURL(),
			BotToken:     c.GetBotToken(),
		}), nil
	case providerOIDC:
		provider, err := identity.NewOIDC(ctx, identity.OIDCConfig{
			IssuerURL:    c.GetOIDCIssuerURL(),
			ClientID:     c.GetDiscordClientID(),
			ClientSecret: c.GetDiscordClientSecret(),
			RedirectURI:  c.GetDiscordRedirectURI(),
			GroupsClaim:  c.GetOIDCGroupsClaim(),
		})
		if err != nil {
			return nil, fmt.Errorf("identity.NewOIDC: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", name)
	}
}

func (a *application) close() {
	if err := a.inventory.Close(); err != nil {
		log.Err(err).Msg("closing inventory")
	}
	if err := a.store.Close(); err != nil {
		log.Err(err).Msg("closing store")
	}
}
