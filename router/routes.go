package router

import "net/http"

// Route path constants
const (
	PathRoot         = "/"
	PathLogin        = "/login"
	PathRegister     = "/register"
	PathDashboard    = "/dashboard"
	PathTransactions = "/transactions"
	PathBudgets      = "/budgets"
)

// Meta holds the authentication requirements of a route.
type Meta struct {
	RequiresAuth  bool // Only reachable with an access token
	RequiresGuest bool // Only reachable without one
}

// ViewLoader produces the view for a route. It is called on the first
// navigation that lands on the route and its result is reused.
type ViewLoader func() (http.Handler, error)

type Route struct {
	Path     string
	Name     string
	Redirect string     // Static redirect target; routes with a Redirect have no View
	View     ViewLoader // Loader for the route's view
	Meta     Meta
}

// Views are the loaders for the application's pages.
type Views struct {
	Login        ViewLoader
	Register     ViewLoader
	Dashboard    ViewLoader
	Transactions ViewLoader
	Budgets      ViewLoader
}

// DefaultRoutes returns the application's route table.
func DefaultRoutes(v Views) []Route {
	return []Route{
		{
			Path:     PathRoot,
			Redirect: PathDashboard,
		},
		{
			Path: PathLogin,
			Name: "Login",
			View: v.Login,
			Meta: Meta{RequiresGuest: true},
		},
		{
			Path: PathRegister,
			Name: "Register",
			View: v.Register,
			Meta: Meta{RequiresGuest: true},
		},
		{
			Path: PathDashboard,
			Name: "Dashboard",
			View: v.Dashboard,
			Meta: Meta{RequiresAuth: true},
		},
		{
			Path: PathTransactions,
			Name: "Transactions",
			View: v.Transactions,
			Meta: Meta{RequiresAuth: true},
		},
		{
			Path: PathBudgets,
			Name: "Budgets",
			View: v.Budgets,
			Meta: Meta{RequiresAuth: true},
		},
	}
}
