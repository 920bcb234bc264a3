package sdk

import "testing"

type staticSession struct {
	session Session
}

func (s staticSession) State() Session { return s.session }

func TestRouteGuard(t *testing.T) {
	admin := &Identity{ID: "1", Role: RoleAdmin}
	super := &Identity{ID: "2", Role: RoleSuperadmin}

	cases := []struct {
		name    string
		session Session
		allowed []Role
		want    GuardDecision
	}{
		{"authenticated any role", Session{Status: SessionAuthenticated, Identity: admin}, nil, GuardAllow},
		{"authenticated allowed role", Session{Status: SessionAuthenticated, Identity: admin}, []Role{RoleAdmin}, GuardAllow},
		{"authenticated wrong role", Session{Status: SessionAuthenticated, Identity: admin}, []Role{RoleTienda}, GuardForbidden},
		{"superadmin bypasses role list", Session{Status: SessionAuthenticated, Identity: super}, []Role{RoleTienda}, GuardAllow},
		{"restoring holds navigation", Session{Status: SessionRestoring}, nil, GuardPending},
		{"anonymous redirects", Session{Status: SessionAnonymous}, nil, GuardRedirect},
		{"error redirects", Session{Status: SessionError, LastError: sessionExpiredNotice}, nil, GuardRedirect},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			guard := NewRouteGuard(staticSession{tc.session}, "")
			result := guard.Check(tc.allowed...)
			if result.Decision != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, result.Decision)
			}
			if tc.want == GuardRedirect {
				if result.RedirectTo != "/login" {
					t.Fatalf("expected /login redirect, got %q", result.RedirectTo)
				}
				if result.Notice != tc.session.LastError {
					t.Fatalf("expected notice %q, got %q", tc.session.LastError, result.Notice)
				}
			}
		})
	}
}
