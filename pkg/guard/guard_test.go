package guard

import (
	"testing"

	"github.com/Shahir-collab/bus-routes-website/pkg/session"
	"github.com/stretchr/testify/assert"
)

func sessionFor(role session.Role, status session.Status) session.Session {
	s := session.Session{Role: role, Status: status}
	if role != session.RoleAnonymous {
		s.Identity = "uid-" + role.String()
	}
	return s
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		session     session.Session
		requirement Requirement
		expected    Decision
	}{
		{"public anonymous", sessionFor(session.RoleAnonymous, session.StatusReady), Public, Decision{Outcome: Render}},
		{"public while initializing", sessionFor(session.RoleAnonymous, session.StatusInitializing), Public, Decision{Outcome: Render}},
		{"auth anonymous", sessionFor(session.RoleAnonymous, session.StatusReady), RequiresAuth, Decision{Outcome: RedirectLogin, Target: "/login"}},
		{"auth user", sessionFor(session.RoleUser, session.StatusReady), RequiresAuth, Decision{Outcome: Render}},
		{"auth admin", sessionFor(session.RoleAdmin, session.StatusReady), RequiresAuth, Decision{Outcome: Render}},
		{"admin anonymous", sessionFor(session.RoleAnonymous, session.StatusReady), RequiresAdmin, Decision{Outcome: RedirectLogin, Target: "/admin/login"}},
		{"admin as user", sessionFor(session.RoleUser, session.StatusReady), RequiresAdmin, Decision{Outcome: Deny, Target: "/"}},
		{"admin as admin", sessionFor(session.RoleAdmin, session.StatusReady), RequiresAdmin, Decision{Outcome: Render}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Evaluate(test.session, test.requirement))
		})
	}
}

func TestEvaluateNonAdminNeverRendersAdminViews(t *testing.T) {
	for _, role := range []session.Role{session.RoleAnonymous, session.RoleUser} {
		for _, status := range []session.Status{session.StatusInitializing, session.StatusReady} {
			decision := Evaluate(sessionFor(role, status), RequiresAdmin)
			assert.NotEqual(t, Render, decision.Outcome, "role %s status %s", role, status)
		}
	}
}

func TestEvaluateNotReadyIsUnauthenticated(t *testing.T) {
	for _, role := range []session.Role{session.RoleUser, session.RoleAdmin} {
		notReady := sessionFor(role, session.StatusInitializing)

		assert.Equal(t, Decision{Outcome: RedirectLogin, Target: LoginPath}, Evaluate(notReady, RequiresAuth))
		assert.Equal(t, Decision{Outcome: RedirectLogin, Target: AdminLoginPath}, Evaluate(notReady, RequiresAdmin))
	}
}

func TestEvaluateFailClosedSession(t *testing.T) {
	failed := session.Session{Identity: "uid-1", Role: session.RoleAnonymous, Status: session.StatusReady, Err: assert.AnError}

	assert.Equal(t, RedirectLogin, Evaluate(failed, RequiresAuth).Outcome)
	assert.Equal(t, RedirectLogin, Evaluate(failed, RequiresAdmin).Outcome)
}

func TestRouterMatch(t *testing.T) {
	router := DefaultRouter()

	route, params, ok := router.Match("/bus/42")
	assert.True(t, ok)
	assert.Equal(t, "bus-details", route.Name)
	assert.Equal(t, map[string]string{"id": "42"}, params)
	assert.Equal(t, RequiresAuth, route.Requirement)

	route, _, ok = router.Match("/admin/dashboard/")
	assert.True(t, ok)
	assert.Equal(t, RequiresAdmin, route.Requirement)

	route, _, ok = router.Match("/search?from=Central")
	assert.True(t, ok)
	assert.Equal(t, "search", route.Name)

	route, _, ok = router.Match("/")
	assert.True(t, ok)
	assert.Equal(t, "home", route.Name)

	_, _, ok = router.Match("/bus")
	assert.False(t, ok)

	_, _, ok = router.Match("/bus/42/extra")
	assert.False(t, ok)
}

func TestDefaultRouterRequirements(t *testing.T) {
	requirements := map[string]Requirement{}
	for _, route := range DefaultRouter().Routes() {
		requirements[route.Pattern] = route.Requirement
	}

	assert.Equal(t, Public, requirements["/admin/login"])
	assert.Equal(t, RequiresAuth, requirements["/profile"])
	for _, pattern := range []string{"/admin/dashboard", "/admin/buses", "/admin/stations", "/admin/schedules"} {
		assert.Equal(t, RequiresAdmin, requirements[pattern], pattern)
	}
}
