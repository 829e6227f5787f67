// Package guard decides whether a view may be shown for the current session.
package guard

import "github.com/Shahir-collab/bus-routes-website/pkg/session"

type Requirement int

const (
	Public Requirement = iota
	RequiresAuth
	RequiresAdmin
)

func (r Requirement) String() string {
	switch r {
	case RequiresAuth:
		return "auth"
	case RequiresAdmin:
		return "admin"
	default:
		return "public"
	}
}

type Outcome int

const (
	Render Outcome = iota
	RedirectLogin
	Deny
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case RedirectLogin:
		return "redirect-login"
	case Deny:
		return "deny"
	case NotFound:
		return "not-found"
	default:
		return "render"
	}
}

const LoginPath = "/login"
const AdminLoginPath = "/admin/login"
const HomePath = "/"

type Decision struct {
	Outcome Outcome
	// Target is where to send the user instead, empty when rendering
	Target string
}

// Evaluate is pure. A session that is not ready counts as signed out, and
// only the admin role renders admin views.
func Evaluate(s session.Session, requirement Requirement) Decision {
	if requirement == Public {
		return Decision{Outcome: Render}
	}

	if !s.IsAuthenticated() {
		target := LoginPath
		if requirement == RequiresAdmin {
			target = AdminLoginPath
		}

		return Decision{Outcome: RedirectLogin, Target: target}
	}

	if requirement == RequiresAdmin && !s.IsAdmin() {
		return Decision{Outcome: Deny, Target: HomePath}
	}

	return Decision{Outcome: Render}
}
