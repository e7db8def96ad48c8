package session

// Guard decides whether a route may be entered based on the login state.
type Guard struct {
	mgr *Manager
}

// NewGuard returns a Guard over mgr.
func NewGuard(mgr *Manager) *Guard {
	return &Guard{mgr: mgr}
}

// CanActivate permits route when a user is logged in. Otherwise it
// navigates to the login route and denies. The login route itself is always
// permitted.
func (g *Guard) CanActivate(route string) bool {
	if route == g.mgr.loginRoute || g.mgr.IsAuthenticated() {
		return true
	}
	g.mgr.nav(g.mgr.loginRoute)
	return false
}
