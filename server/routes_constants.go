package server

// Route path constants
const (
	RouteIndex  = "/{$}"
	RouteHealth = "/healthz"

	// Auth
	RouteAuthLogin    = "/auth/login"
	RouteAuthCallback = "/auth/callback"
	RouteAuthLogout   = "/auth/logout"
	RouteAuthSession  = "/auth/session"
	RouteAuthStats    = "/auth/stats"

	// Keys
	RouteVerificationStart = "/verification/start"
	RouteKeys              = "/keys"
	RouteKeysMine          = "/keys/mine"
	RouteKeysRedeem        = "/keys/redeem"
	RouteDownload          = "/download"

	// Admin
	RouteAdminKeys      = "/admin/keys"
	RouteAdminInventory = "/admin/inventory"
)

// Paths served by the first frontend release. Each maps onto the route it replaced.
const (
	LegacyRouteDiscordLogin    = "/auth/discord"
	LegacyRouteDiscordCallback = "/auth/discord/callback"
	LegacyRouteMe              = "/auth/me"
	LegacyRouteUserStats       = "/auth/user-stats"
	LegacyRouteInitiateVerify  = "/initiate-verification"
	LegacyRouteGenerateKey     = "/generate_key"
	LegacyRouteUserKeys        = "/user_keys"
	LegacyRouteUserKeysSlash   = "/user/keys"
	LegacyRouteValidate        = "/validate"
	LegacyRouteGetDownloadURL  = "/get-download-url"
)

// Parameter names shared by handlers and middleware.
const (
	HeaderSessionID         = "X-Session-ID"
	HeaderVerificationToken = "X-Verification-Token"
	HeaderAdminSecret       = "X-Admin-Secret"
	HeaderRequestID         = "X-Request-ID"
	HeaderForwardedFor      = "X-Forwarded-For"

	ParamSessionID         = "session_id"
	ParamVerificationToken = "verification_token"
	ParamKey               = "key"
	ParamToken             = "token"
	ParamCode              = "code"
	ParamState             = "state"
)
