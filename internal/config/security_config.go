package config

import "time"

type SecurityConfig interface {
	GetRateLimitWindow() time.Duration
	GetRateLimitMax() int
	GetGenerateRateLimitMax() int
	GetAdminSecret() string
	GetAdminSecretHash() string
}

type Security struct {
	src *Source
}

var _ SecurityConfig = Security{}

func (s Security) GetRateLimitWindow() time.Duration {
	return time.Duration(s.src.Int("RATE_LIMIT_WINDOW_MS", 10*1000)) * time.Millisecond
}

func (s Security) GetRateLimitMax() int {
	return s.src.Int("RATE_LIMIT_MAX", 10)
}

// GetGenerateRateLimitMax is the tighter ceiling applied to key generation.
func (s Security) GetGenerateRateLimitMax() int {
	return max(2, s.GetRateLimitMax()/2)
}

func (s Security) GetAdminSecret() string {
	return s.src.Get("ADMIN_SECRET", "")
}

// GetAdminSecretHash is a bcrypt hash of the admin secret; it takes precedence over ADMIN_SECRET.
func (s Security) GetAdminSecretHash() string {
	return s.src.Get("ADMIN_SECRET_HASH", "")
}
