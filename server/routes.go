package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex, ChainMiddleware(s.IndexHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("/", ChainMiddleware(s.NotFoundHandler(), s.APIMiddleware()...))

	// Auth
	s.registerPaths("GET", ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...), RouteAuthLogin, LegacyRouteDiscordLogin)
	callback := ChainMiddleware(s.CallbackHandler(), s.APIMiddleware()...)
	s.registerPaths("GET", callback, RouteAuthCallback, LegacyRouteDiscordCallback)
	s.registerPaths("POST", callback, RouteAuthCallback, LegacyRouteDiscordCallback)
	s.registerPaths("POST", ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...), RouteAuthLogout)
	s.registerPaths("GET", ChainMiddleware(s.SessionHandler(), s.APIMiddleware(s.RequireSession())...), RouteAuthSession, LegacyRouteMe)
	s.registerPaths("GET", ChainMiddleware(s.StatsHandler(), s.APIMiddleware(s.RequireSession())...), RouteAuthStats, LegacyRouteUserStats)

	// Keys
	s.registerPaths("POST", ChainMiddleware(s.VerificationStartHandler(), s.APIMiddleware()...), RouteVerificationStart, LegacyRouteInitiateVerify)
	s.registerPaths("POST", ChainMiddleware(s.GenerateKeyHandler(), s.APIMiddleware(s.RequireSession(), s.RequireMembership())...), RouteKeys, LegacyRouteGenerateKey)
	s.registerPaths("GET", ChainMiddleware(s.MyKeysHandler(), s.APIMiddleware(s.RequireSession())...), RouteKeysMine, LegacyRouteUserKeys, LegacyRouteUserKeysSlash)
	s.registerPaths("GET", ChainMiddleware(s.RedeemHandler(), s.APIMiddleware()...), RouteKeysRedeem, LegacyRouteValidate)
	s.registerPaths("GET", ChainMiddleware(s.DownloadHandler(), s.APIMiddleware()...), RouteDownload, LegacyRouteGetDownloadURL)

	// Admin routes exist only when a secret is configured
	if len(s.adminHash) > 0 {
		s.RegisterRouteHandler("POST "+RouteAdminKeys, ChainMiddleware(s.AdminIssueKeyHandler(), s.APIMiddleware(s.RequireAdmin())...))
		s.RegisterRouteHandler("GET "+RouteAdminInventory, ChainMiddleware(s.AdminInventoryHandler(), s.APIMiddleware(s.RequireAdmin())...))
	}
}

// registerPaths registers handler for method on each path.
func (s *Server) registerPaths(method string, handler http.Handler, paths ...string) {
	for _, path := range paths {
		s.RegisterRouteHandler(method+" "+path, handler)
	}
}
