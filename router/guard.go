package router

// Decision is the guard's verdict for one navigation. An empty RedirectTo means proceed.
type Decision struct {
	RedirectTo string
}

func (d Decision) Proceed() bool {
	return d.RedirectTo == ""
}

// Guard decides whether a navigation to route may go ahead. Only token
// presence is known here, so a missing token and an invalid one look the same.
func Guard(to Route, authenticated bool) Decision {
	switch {
	case to.Meta.RequiresAuth && !authenticated:
		return Decision{RedirectTo: PathLogin}
	case to.Meta.RequiresGuest && authenticated:
		return Decision{RedirectTo: PathDashboard}
	default:
		return Decision{}
	}
}
