package config

import "time"

type Identity struct {
	src *Source
}

var _ IdentityConfig = Identity{}

// GetIdentityProvider selects the login adapter: "discord" or "oidc".
func (i Identity) GetIdentityProvider() string {
	return i.src.Get("IDENTITY_PROVIDER", "discord")
}

func (i Identity) GetDiscordClientID() string {
	return i.src.Get("DISCORD_CLIENT_ID", "")
}

func (i Identity) GetDiscordClientSecret() string {
	return i.src.Get("DISCORD_CLIENT_SECRET", "")
}

func (i Identity) GetDiscordRedirectURI() string {
	return i.src.Get("DISCORD_REDIRECT_URI", "")
}

func (i Identity) GetDiscordAPIURL() string {
	return i.src.Get("DISCORD_API_URL", "https://discord.com/api")
}

// GetRequiredCommunityID is the guild (or group) a visitor must belong to.
func (i Identity) GetRequiredCommunityID() string {
	return i.src.Get("DISCORD_REQUIRED_GUILD_ID", "")
}

// GetBotToken is the privileged credential used for the optional join date lookup.
func (i Identity) GetBotToken() string {
	return i.src.Get("DISCORD_BOT_TOKEN", "")
}

func (i Identity) GetInviteURL() string {
	return i.src.Get("DISCORD_INVITE_URL", "https://discord.gg/PwKxjszxaa")
}

func (i Identity) GetOIDCIssuerURL() string {
	return i.src.Get("OIDC_ISSUER_URL", "")
}

func (i Identity) GetOIDCGroupsClaim() string {
	return i.src.Get("OIDC_GROUPS_CLAIM", "groups")
}

func (i Identity) GetAuthStateLifespan() time.Duration {
	return time.Duration(i.src.Int("AUTH_STATE_LIFESPAN_SEC", 10*60)) * time.Second
}

func (i Identity) GetSessionDuration() time.Duration {
	return time.Duration(i.src.Int("SESSION_DURATION_SEC", 24*60*60)) * time.Second
}

// GetSessionSecret signs session handles. Empty means a per-process random secret.
func (i Identity) GetSessionSecret() string {
	return i.src.Get("SESSION_SECRET", "")
}
