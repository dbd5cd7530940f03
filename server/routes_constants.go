package server

// Route path constants for everything that is not a page in the router's
// route table. Pages are served from router.DefaultRoutes.
const (
	// Form actions
	RouteLogin           = "/login"
	RouteRegister        = "/register"
	RouteLogout          = "/logout"
	RouteProfile         = "/profile"
	RouteProfilePassword = "/profile/password"
	RouteTransactions    = "/transactions"

	RouteHealth = "/healthz"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
