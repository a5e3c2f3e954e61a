package config

import (
	"fmt"
	"strings"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	baseURLVar     = "BASE_URL"
	frontendURLVar = "FRONTEND_URL"
)

type EnvVars struct {
	src *Source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.src.Get(portEnvVar, "3000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.src.Get(appNameVar, "Key Gate")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.src.Get("ENV", "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	return e.src.Get("LOG_LEVEL", "info")
}

// GetBaseURL returns the public base URL of this service (e.g., "https://keys.example.com")
func (e EnvVars) GetBaseURL() string {
	return e.src.Get(baseURLVar, "http://localhost:3000")
}

// GetFrontendURL is where browser callbacks are redirected once the login completes.
// When empty the callback answers with JSON instead.
func (e EnvVars) GetFrontendURL() string {
	return e.src.Get(frontendURLVar, "")
}

// GetTrustForwardedFor controls whether X-Forwarded-For decides the caller's network address.
func (e EnvVars) GetTrustForwardedFor() bool {
	return e.src.Bool("TRUST_FORWARDED_FOR", true)
}
