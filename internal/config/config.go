package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	IdentityConfig
	KeyConfig
	SecurityConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
	GetFrontendURL() string
	GetTrustForwardedFor() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type IdentityConfig interface {
	GetIdentityProvider() string
	GetDiscordClientID() string
	GetDiscordClientSecret() string
	GetDiscordRedirectURI() string
	GetDiscordAPIURL() string
	GetRequiredCommunityID() string
	GetBotToken() string
	GetInviteURL() string
	GetOIDCIssuerURL() string
	GetOIDCGroupsClaim() string
	GetAuthStateLifespan() time.Duration
	GetSessionDuration() time.Duration
	GetSessionSecret() string
}

type KeyConfig interface {
	GetMaxKeysPerDay() int
	GetVerificationTokenLifespan() time.Duration
	GetDownloadSecret() string
	GetDownloadURL() string
	GetDownloadExpiry() time.Duration
}

type StorageConfig interface {
	GetRedisURL() string
	GetDatabaseURL() string
	GetDataFolder() string
}

type mainConfig struct {
	EnvVars
	Cors
	Identity
	Keys
	Security
	Storage
}

// New returns a configuration backed by environment variables only.
func New() Config {
	return newMainConfig(&Source{})
}

// Load returns a configuration backed by environment variables layered over the optional
// YAML file at path. An empty path behaves like New.
func Load(path string) (Config, error) {
	src, err := LoadSource(path)
	if err != nil {
		return nil, err
	}
	return newMainConfig(src), nil
}

func newMainConfig(src *Source) mainConfig {
	return mainConfig{
		EnvVars:  EnvVars{src: src},
		Cors:     Cors{src: src},
		Identity: Identity{src: src},
		Keys:     Keys{src: src},
		Security: Security{src: src},
		Storage:  Storage{src: src},
	}
}
