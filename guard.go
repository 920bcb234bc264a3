package sdk

// GuardDecision is the outcome of a route guard check.
type GuardDecision string

const (
	// GuardAllow admits the navigation.
	GuardAllow GuardDecision = "allow"
	// GuardPending means session restoration is still running; hold the
	// navigation until it settles.
	GuardPending GuardDecision = "pending"
	// GuardRedirect sends the user to the login entry point.
	GuardRedirect GuardDecision = "redirect"
	// GuardForbidden means the session is valid but the role is not allowed.
	GuardForbidden GuardDecision = "forbidden"
)

// GuardResult carries the decision plus the redirect target and the notice
// to surface ("session expired" after a failed restore).
type GuardResult struct {
	Decision   GuardDecision
	RedirectTo string
	Notice     string
}

// sessionReader is the read-only view the guard needs. The guard never
// mutates session state.
type sessionReader interface {
	State() Session
}

// RouteGuard admits, blocks, or redirects navigation from the session state
// and role claim.
type RouteGuard struct {
	sessions  sessionReader
	loginPath string
}

// NewRouteGuard builds a guard redirecting to loginPath ("/login" when empty).
func NewRouteGuard(sessions sessionReader, loginPath string) *RouteGuard {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &RouteGuard{sessions: sessions, loginPath: loginPath}
}

// Check evaluates the current session against the roles allowed on a route.
// An empty allowed set admits any authenticated identity; superadmin is
// always admitted.
func (g *RouteGuard) Check(allowed ...Role) GuardResult {
	s := g.sessions.State()
	switch s.Status {
	case SessionAuthenticated:
		if roleAllowed(s.Identity.Role, allowed) {
			return GuardResult{Decision: GuardAllow}
		}
		return GuardResult{Decision: GuardForbidden}
	case SessionRestoring:
		return GuardResult{Decision: GuardPending}
	default:
		return GuardResult{
			Decision:   GuardRedirect,
			RedirectTo: g.loginPath,
			Notice:     s.LastError,
		}
	}
}

func roleAllowed(role Role, allowed []Role) bool {
	if len(allowed) == 0 || role == RoleSuperadmin {
		return true
	}
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
