package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - pages and forms
	RouteLogin       = "/login"
	RouteAuthLogin   = "/auth/login"
	RouteAuthLogout  = "/auth/logout"
	RouteAuthConfirm = "/auth/confirm"

	// Provider API used by the client SDK
	RouteAPIOTP      = "/auth/v1/otp"
	RouteAPIVerify   = "/auth/v1/verify"
	RouteAPIToken    = "/auth/v1/token"
	RouteAPIUser     = "/auth/v1/user"
	RouteAPILogout   = "/auth/v1/logout"
	RouteAPIProfile  = "/api/profiles/{id}"
	RouteAPIProfiles = "/api/profiles"

	// Portal pages
	RouteIndex         = "/{$}"
	RouteOpportunities = "/opportunities"
	RouteOpportunity   = "/opportunities/{id}"

	// Operations
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"

	// Static Asset Routes (patterns)
	RouteStatic  = "/static/"
	RouteImages  = "/images/"
	RouteFavicon = "/favicon.ico"
)
